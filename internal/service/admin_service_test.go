package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/dom/hero-arena/internal/domain"
	"github.com/dom/hero-arena/internal/service"
	"github.com/dom/hero-arena/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminService_RequiresAdmin(t *testing.T) {
	a := testutil.NewTestArena(t)
	ctx := context.Background()
	const intruder = "mallory"

	tests := []struct {
		name string
		call func() error
	}{
		{name: "set battle status", call: func() error {
			return a.Services.Admin.SetBattleStatus(ctx, intruder, true)
		}},
		{name: "add bots", call: func() error {
			return a.Services.Admin.AddBots(ctx, intruder, []string{"bot"})
		}},
		{name: "remove bots", call: func() error {
			return a.Services.Admin.RemoveBots(ctx, intruder, []string{"bot"})
		}},
		{name: "add card contract", call: func() error {
			return a.Services.Admin.AddCardContract(ctx, intruder, domain.CardContract{Address: "x", URL: "http://x"})
		}},
		{name: "change admin", call: func() error {
			return a.Services.Admin.ChangeAdmin(ctx, intruder, intruder)
		}},
		{name: "reset tournament", call: func() error {
			return a.Services.Admin.ResetTournament(ctx, intruder)
		}},
		{name: "dump stats", call: func() error {
			_, err := a.Services.Admin.DumpStats(ctx, intruder, 0, 0)
			return err
		}},
		{name: "dump battles", call: func() error {
			_, err := a.Services.Admin.DumpBattles(ctx, intruder, 0, 0)
			return err
		}},
		{name: "issue service token", call: func() error {
			_, err := a.Services.Admin.IssueServiceToken(ctx, intruder, "cards-v2")
			return err
		}},
		{name: "set export target", call: func() error {
			return a.Services.Migration.SetExportTarget(ctx, intruder, service.ExportTarget{ID: "b", URL: "http://b"})
		}},
		{name: "set import source", call: func() error {
			return a.Services.Migration.SetImportSource(ctx, intruder, "b")
		}},
		{name: "export", call: func() error {
			_, err := a.Services.Migration.Export(ctx, intruder)
			return err
		}},
		{name: "export status", call: func() error {
			_, err := a.Services.Migration.ExportStatus(ctx, intruder)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrNotAdmin)
			assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))
		})
	}
}

func TestAdminService_SetBattleStatus(t *testing.T) {
	a := testutil.NewTestArena(t)
	ctx := context.Background()

	recorder := &eventRecorder{}
	a.Services.Engine.SetNotifier(recorder)

	a.SendHero(t, "alice", "alice-1", "Rex", testutil.Stats(20, 20, 20, 20))
	a.SendHero(t, "bob", "bob-1", "Fido", testutil.Stats(20, 20, 20, 20))

	require.NoError(t, a.Services.Admin.SetBattleStatus(ctx, testutil.TestAdminID, true))

	view, err := a.Services.Arena.Bullpen(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, view.HeroesWaiting, "halting returns every waiting hero")
	assert.Equal(t, 1, countKind(pendingKinds(t, a), domain.EffectBatchTransfer))

	cfg, err := a.Services.Arena.Config(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.BattlesHaveHalted)

	assert.Equal(t, []string{
		service.EventBullpenUpdated,
		service.EventBullpenUpdated,
		service.EventBullpenUpdated,
		service.EventBattleStatus,
	}, recorder.Types())

	require.NoError(t, a.Services.Admin.SetBattleStatus(ctx, testutil.TestAdminID, false))
	a.SendHero(t, "alice", "alice-1", "Rex", testutil.Stats(20, 20, 20, 20))
}

func TestAdminService_ResumeBlockedDuringExport(t *testing.T) {
	a := testutil.NewTestArena(t)
	ctx := context.Background()

	require.NoError(t, a.Services.Admin.SetBattleStatus(ctx, testutil.TestAdminID, true))
	require.NoError(t, a.DB.DB.Model(&domain.ArenaState{}).
		Where("id = ?", domain.ArenaStateID).
		Update("export_next", 1).Error)

	err := a.Services.Admin.SetBattleStatus(ctx, testutil.TestAdminID, false)
	assert.ErrorIs(t, err, domain.ErrExportInProgress)

	// Halting again is always allowed
	require.NoError(t, a.Services.Admin.SetBattleStatus(ctx, testutil.TestAdminID, true))
}

func TestAdminService_Bots(t *testing.T) {
	a := testutil.NewTestArena(t)
	ctx := context.Background()

	require.NoError(t, a.Services.Admin.AddBots(ctx, testutil.TestAdminID, []string{"bot-1", "bot-2"}))
	require.NoError(t, a.Services.Admin.AddBots(ctx, testutil.TestAdminID, []string{"bot-2"}))

	bots, err := a.Services.Arena.Bots(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bot-1", "bot-2"}, bots)

	require.NoError(t, a.Services.Admin.RemoveBots(ctx, testutil.TestAdminID, []string{"bot-1", "not-a-bot"}))

	bots, err = a.Services.Arena.Bots(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bot-2"}, bots)
}

func TestAdminService_AddCardContract(t *testing.T) {
	a := testutil.NewTestArena(t)
	ctx := context.Background()

	v2 := domain.CardContract{Address: "cards-v2", URL: "http://cards-v2.invalid"}
	require.NoError(t, a.Services.Admin.AddCardContract(ctx, testutil.TestAdminID, v2))
	require.NoError(t, a.Services.Admin.AddCardContract(ctx, testutil.TestAdminID, v2))

	cfg, err := a.Services.Arena.Config(ctx)
	require.NoError(t, err)
	require.Len(t, cfg.CardVersions, 2)
	assert.Equal(t, v2, cfg.CardVersions[1])

	effects := pendingEffects(t, a)
	require.Len(t, effects, 4, "genesis setup plus one setup for the new contract")
	assert.Equal(t, domain.EffectRegisterReceiver, effects[2].Kind)
	assert.Equal(t, domain.EffectSetViewingKey, effects[3].Kind)
	assert.Equal(t, "cards-v2", effects[2].Destination)

	// Heroes from the new contract are accepted and remember their version
	a.Registry.AddHero("v2-1", "Nova", testutil.Stats(30, 30, 30, 30))
	_, err = a.Services.Arena.Receive(ctx, "cards-v2", service.ReceiveInput{
		From: "alice", TokenIDs: []string{"v2-1"}, Entropy: "e",
	})
	require.NoError(t, err)

	view, err := a.Services.Arena.Bullpen(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, view.YourHero)
	assert.Equal(t, "cards-v2", view.YourHero.Address)
}

func TestAdminService_ChangeAdmin(t *testing.T) {
	a := testutil.NewTestArena(t)
	ctx := context.Background()

	require.NoError(t, a.Services.Admin.ChangeAdmin(ctx, testutil.TestAdminID, "new-admin"))

	err := a.Services.Admin.ResetTournament(ctx, testutil.TestAdminID)
	assert.ErrorIs(t, err, domain.ErrNotAdmin)
	require.NoError(t, a.Services.Admin.ResetTournament(ctx, "new-admin"))
}

func TestAdminService_ResetTournament(t *testing.T) {
	tests := []struct {
		name  string
		reset func(a *testutil.TestArena) error
	}{
		{name: "by the admin", reset: func(a *testutil.TestArena) error {
			return a.Services.Admin.ResetTournament(context.Background(), testutil.TestAdminID)
		}},
		{name: "by the scheduler", reset: func(a *testutil.TestArena) error {
			return a.Services.Admin.ScheduledTournamentReset(context.Background())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testutil.NewTestArena(t)
			ctx := context.Background()

			a.Battle(t, [3]string{"alice", "bob", "carol"})

			a.Clock.Advance(24 * time.Hour)
			require.NoError(t, tt.reset(a))

			tourney, err := a.Services.Arena.Tournament(ctx)
			require.NoError(t, err)
			assert.Equal(t, a.Clock.Now().Unix(), tourney.TournamentStarted)
			assert.Empty(t, tourney.Leaderboard)

			stats, err := a.Services.Arena.PlayerStats(ctx, "alice")
			require.NoError(t, err)
			assert.Zero(t, stats.Tournament.Counters, "old tournament stats read as zero")
			assert.Equal(t, uint32(1), stats.AllTime.Battles)

			boards, err := a.Services.Arena.Leaderboards(ctx)
			require.NoError(t, err)
			assert.Len(t, boards.AllTime, 3)

			// A new battle starts the tournament counters from zero
			a.Battle(t, [3]string{"alice", "bob", "dave"})
			stats, err = a.Services.Arena.PlayerStats(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, uint32(1), stats.Tournament.Battles)
			assert.Equal(t, uint32(2), stats.AllTime.Battles)
		})
	}
}

func TestAdminService_DumpStats(t *testing.T) {
	a := testutil.NewTestArena(t)
	ctx := context.Background()

	a.Battle(t, [3]string{"alice", "bob", "carol"})

	tests := []struct {
		name  string
		start uint32
		limit uint32
		want  []string
	}{
		{name: "everything with the default limit", start: 0, limit: 0, want: []string{"alice", "bob", "carol"}},
		{name: "from an offset", start: 1, limit: 0, want: []string{"bob", "carol"}},
		{name: "limited", start: 0, limit: 2, want: []string{"alice", "bob"}},
		{name: "past the end", start: 5, limit: 10, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dump, err := a.Services.Admin.DumpStats(ctx, testutil.TestAdminID, tt.start, tt.limit)
			require.NoError(t, err)

			got := make([]string, 0, len(dump))
			for i, d := range dump {
				assert.Equal(t, tt.start+uint32(i), d.Index)
				assert.Equal(t, uint32(1), d.Stats.Battles)
				got = append(got, d.Stats.PlayerID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdminService_DumpBattles(t *testing.T) {
	a := testutil.NewTestArena(t)
	ctx := context.Background()

	a.Battle(t, [3]string{"alice", "bob", "carol"})
	a.Clock.Advance(time.Minute)
	a.Battle(t, [3]string{"dave", "erin", "frank"})

	dump, err := a.Services.Admin.DumpBattles(ctx, testutil.TestAdminID, 0, 0)
	require.NoError(t, err)
	require.Len(t, dump, 2)
	assert.Equal(t, uint64(0), dump[0].BattleNumber)
	assert.Equal(t, uint64(1), dump[1].BattleNumber)
	assert.Equal(t, testutil.TestEpoch.Add(time.Minute).Unix(), dump[1].Timestamp)
	require.Len(t, dump[1].Heroes, 3)
	assert.Equal(t, "dave", dump[1].Heroes[0].Owner)
	assert.Equal(t, testutil.TestCardContract, dump[1].Heroes[0].Address)

	dump, err = a.Services.Admin.DumpBattles(ctx, testutil.TestAdminID, 1, 1)
	require.NoError(t, err)
	require.Len(t, dump, 1)
	assert.Equal(t, uint64(1), dump[0].BattleNumber)

	dump, err = a.Services.Admin.DumpBattles(ctx, testutil.TestAdminID, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, dump)
}

func TestAdminService_IssueServiceToken(t *testing.T) {
	a := testutil.NewTestArena(t)
	ctx := context.Background()

	token, err := a.Services.Admin.IssueServiceToken(ctx, testutil.TestAdminID, "cards-v2")
	require.NoError(t, err)

	claims, err := a.Services.Auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "cards-v2", (*claims)["sub"])
	assert.Equal(t, service.TokenKindService, (*claims)["kind"])

	_, err = a.Services.Admin.IssueServiceToken(ctx, testutil.TestAdminID, "")
	assert.Error(t, err)
}
