package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/dom/hero-arena/internal/domain"
	"github.com/dom/hero-arena/internal/service"
	"github.com/dom/hero-arena/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sourceID = "arena-test"
	targetID = "arena-next"
)

// exportedBatches returns the import batches queued for the export target.
func exportedBatches(t *testing.T, a *testutil.TestArena) []domain.ImportBatch {
	t.Helper()
	var batches []domain.ImportBatch
	for _, e := range pendingEffects(t, a) {
		if e.Kind != domain.EffectArenaImport {
			continue
		}
		assert.Equal(t, targetID, e.Destination)
		assert.Equal(t, "peer-token", e.Credential)
		var batch domain.ImportBatch
		require.NoError(t, json.Unmarshal(e.Payload, &batch))
		batches = append(batches, batch)
	}
	return batches
}

func prepareExport(t *testing.T, a *testutil.TestArena) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, a.Services.Admin.SetBattleStatus(ctx, testutil.TestAdminID, true))
	require.NoError(t, a.Services.Migration.SetExportTarget(ctx, testutil.TestAdminID, service.ExportTarget{
		ID:    targetID,
		URL:   "http://arena-next.invalid",
		Token: "peer-token",
	}))
}

func TestMigrationService_RoundTrip(t *testing.T) {
	source := testutil.NewTestArena(t)
	target := testutil.NewTestArena(t)
	ctx := context.Background()

	source.Battle(t, [3]string{"alice", "bob", "carol"})
	source.Battle(t, [3]string{"alice", "bob", "dave"})

	// The target has history of its own
	target.Battle(t, [3]string{"alice", "erin", "frank"})

	prepareExport(t, source)
	completed, err := source.Services.Migration.Export(ctx, testutil.TestAdminID)
	require.NoError(t, err)
	assert.True(t, completed, "four players fit in one page")

	batches := exportedBatches(t, source)
	require.Len(t, batches, 1)
	batch := batches[0]
	require.NotNil(t, batch.BattleCount)
	assert.Equal(t, uint64(2), *batch.BattleCount)
	require.Len(t, batch.Stats, 4)
	assert.Equal(t, "alice", batch.Stats[0].PlayerID)
	assert.Equal(t, uint32(2), batch.Stats[0].Battles)

	require.NoError(t, target.Services.Migration.SetImportSource(ctx, testutil.TestAdminID, sourceID))
	applied, err := target.Services.Migration.Import(ctx, sourceID, batch)
	require.NoError(t, err)
	assert.True(t, applied)

	usage, err := target.Services.Arena.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), usage.ArenaBattleCount)
	assert.Equal(t, uint64(2), usage.PreviousArenaBattles)
	assert.Equal(t, uint32(6), usage.PlayerCount, "alice is registered once")

	alice, err := target.Services.Arena.PlayerStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), alice.AllTime.Battles)
	assert.Equal(t, uint32(1), alice.Tournament.Battles, "imports only touch all-time stats")

	boards, err := target.Services.Arena.Leaderboards(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(boards.AllTime))
	for _, e := range boards.AllTime {
		ids = append(ids, e.PlayerID)
	}
	assert.ElementsMatch(t, []string{"alice", "bob", "carol", "dave", "erin", "frank"}, ids)

	// Redelivery changes nothing
	applied, err = target.Services.Migration.Import(ctx, sourceID, batch)
	require.NoError(t, err)
	assert.False(t, applied)

	again, err := target.Services.Arena.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, usage, again)
	alice, err = target.Services.Arena.PlayerStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), alice.AllTime.Battles)
}

func TestMigrationService_ExportPages(t *testing.T) {
	a := testutil.NewTestArena(t)
	ctx := context.Background()

	// Fill more than one registry page through the import path
	players := domain.PageSize + 44
	batch := domain.ImportBatch{BatchID: uuid.New()}
	for i := 0; i < players; i++ {
		batch.Stats = append(batch.Stats, domain.StatsEntry{
			PlayerID: fmt.Sprintf("player-%03d", i),
			Counters: domain.Counters{Score: int32(i), Battles: 1, Wins: 1},
		})
	}
	require.NoError(t, a.Services.Migration.SetImportSource(ctx, testutil.TestAdminID, "old-arena"))
	applied, err := a.Services.Migration.Import(ctx, "old-arena", batch)
	require.NoError(t, err)
	require.True(t, applied)

	prepareExport(t, a)

	status, err := a.Services.Migration.ExportStatus(ctx, testutil.TestAdminID)
	require.NoError(t, err)
	assert.Equal(t, &service.ExportStatusView{Next: 0, Last: 1}, status)

	completed, err := a.Services.Migration.Export(ctx, testutil.TestAdminID)
	require.NoError(t, err)
	assert.False(t, completed)

	status, err = a.Services.Migration.ExportStatus(ctx, testutil.TestAdminID)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), status.Next)

	err = a.Services.Admin.SetBattleStatus(ctx, testutil.TestAdminID, false)
	assert.ErrorIs(t, err, domain.ErrExportInProgress)

	completed, err = a.Services.Migration.Export(ctx, testutil.TestAdminID)
	require.NoError(t, err)
	assert.True(t, completed)

	batches := exportedBatches(t, a)
	require.Len(t, batches, 2)
	assert.Len(t, batches[0].Stats, domain.PageSize)
	assert.Nil(t, batches[0].BattleCount, "only the last page carries the battle count")
	assert.Len(t, batches[1].Stats, 44)
	require.NotNil(t, batches[1].BattleCount)
	assert.Zero(t, *batches[1].BattleCount)
	assert.NotEqual(t, batches[0].BatchID, batches[1].BatchID)

	// The pass is complete so battles may resume
	require.NoError(t, a.Services.Admin.SetBattleStatus(ctx, testutil.TestAdminID, false))

	// Each player was ranked on import; the board keeps the best twenty
	boards, err := a.Services.Arena.Leaderboards(ctx)
	require.NoError(t, err)
	require.Len(t, boards.AllTime, domain.LeaderboardView)
	assert.Equal(t, fmt.Sprintf("player-%03d", players-1), boards.AllTime[0].PlayerID)
}

func TestMigrationService_Export_Preconditions(t *testing.T) {
	a := testutil.NewTestArena(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		setup   func(t *testing.T)
		wantErr error
	}{
		{
			name: "battles running",
			setup: func(t *testing.T) {
				a.Battle(t, [3]string{"alice", "bob", "carol"})
			},
			wantErr: domain.ErrBattlesNotHalted,
		},
		{
			name: "no players",
			setup: func(t *testing.T) {
				prepareExport(t, a)
			},
			wantErr: domain.ErrNoPlayers,
		},
		{
			name: "no target",
			setup: func(t *testing.T) {
				a.Battle(t, [3]string{"alice", "bob", "carol"})
				require.NoError(t, a.Services.Admin.SetBattleStatus(ctx, testutil.TestAdminID, true))
			},
			wantErr: domain.ErrExportTargetUnset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a.Reset(t)
			tt.setup(t)

			_, err := a.Services.Migration.Export(ctx, testutil.TestAdminID)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, domain.KindState, domain.KindOf(err))
		})
	}
}

func TestMigrationService_Import_Source(t *testing.T) {
	a := testutil.NewTestArena(t)
	ctx := context.Background()

	batch := domain.ImportBatch{
		BatchID: uuid.New(),
		Stats:   []domain.StatsEntry{{PlayerID: "alice", Counters: domain.Counters{Score: 3, Battles: 1, Wins: 1}}},
	}

	_, err := a.Services.Migration.Import(ctx, sourceID, batch)
	assert.ErrorIs(t, err, domain.ErrImportSourceUnset)

	require.NoError(t, a.Services.Migration.SetImportSource(ctx, testutil.TestAdminID, sourceID))

	_, err = a.Services.Migration.Import(ctx, "arena-impostor", batch)
	assert.ErrorIs(t, err, domain.ErrImportSourceMismatch)

	for i := 0; i < 2; i++ {
		applied, err := a.Services.Migration.Import(ctx, sourceID, domain.ImportBatch{Stats: batch.Stats})
		assert.ErrorIs(t, err, domain.ErrMissingBatchID)
		assert.Equal(t, domain.KindState, domain.KindOf(err))
		assert.False(t, applied)
	}

	usage, err := a.Services.Arena.Usage(ctx)
	require.NoError(t, err)
	assert.Zero(t, usage.PlayerCount)
}

func TestMigrationService_ExportStatus(t *testing.T) {
	a := testutil.NewTestArena(t)
	ctx := context.Background()

	status, err := a.Services.Migration.ExportStatus(ctx, testutil.TestAdminID)
	require.NoError(t, err)
	assert.Nil(t, status)

	a.Battle(t, [3]string{"alice", "bob", "carol"})
	prepareExport(t, a)

	status, err = a.Services.Migration.ExportStatus(ctx, testutil.TestAdminID)
	require.NoError(t, err)
	assert.Equal(t, &service.ExportStatusView{Next: 0, Last: 0}, status)

	_, err = a.Services.Migration.Export(ctx, testutil.TestAdminID)
	require.NoError(t, err)

	status, err = a.Services.Migration.ExportStatus(ctx, testutil.TestAdminID)
	require.NoError(t, err)
	assert.Equal(t, &service.ExportStatusView{Next: 0, Last: 0}, status)
}
