package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dom/hero-arena/internal/domain"
	"github.com/dom/hero-arena/internal/repository"
	"github.com/dom/hero-arena/internal/repository/postgres"
	"github.com/dom/hero-arena/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaRepository_GetBeforeGenesis(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewArenaRepository(testDB.DB)
	ctx := context.Background()

	_, err := repo.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrArenaNotFound)

	state := &domain.ArenaState{
		PrngSeed:     []byte{1, 2, 3},
		Admin:        "admin",
		SharedSecret: "secret",
		CardVersions: []domain.CardContract{{Address: "cards", URL: "http://cards"}},
		Heroes: []domain.WaitingHero{{
			Owner:     "alice",
			Name:      "Rex",
			TokenInfo: domain.TokenInfo{TokenID: "1"},
			Stats:     testutil.Stats(10, 20, 30, 40),
		}},
		TourneyStart: 100,
	}
	require.NoError(t, repo.Create(ctx, state))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(domain.ArenaStateID), got.ID)
	assert.Equal(t, []byte{1, 2, 3}, got.PrngSeed)
	require.Len(t, got.Heroes, 1)
	assert.Equal(t, testutil.Stats(10, 20, 30, 40), got.Heroes[0].Stats)
	assert.Nil(t, got.ExportTargetID)

	got.BattleCount = 7
	got.Heroes = nil
	require.NoError(t, repo.Save(ctx, got))

	again, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), again.BattleCount)
	assert.Empty(t, again.Heroes)
}

func TestPlayerRepository_Append(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewPlayerRepository(testDB.DB)
	ctx := context.Background()

	ids := func(from, to int) []string {
		out := make([]string, 0, to-from)
		for i := from; i < to; i++ {
			out = append(out, fmt.Sprintf("p%d", i))
		}
		return out
	}

	count, err := repo.Append(ctx, 0, ids(0, 250))
	require.NoError(t, err)
	assert.Equal(t, uint32(250), count)

	// Crosses into the second page
	count, err = repo.Append(ctx, count, ids(250, 300))
	require.NoError(t, err)
	assert.Equal(t, uint32(300), count)

	count, err = repo.Append(ctx, count, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(300), count)

	first, err := repo.Page(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, ids(0, domain.PageSize), []string(first))

	second, err := repo.Page(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ids(domain.PageSize, 300), []string(second))

	missing, err := repo.Page(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestPlayerRepository_Seen(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewPlayerRepository(testDB.DB)
	ctx := context.Background()

	seen, err := repo.IsSeen(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, repo.MarkSeen(ctx, "alice"))
	require.NoError(t, repo.MarkSeen(ctx, "alice"))

	seen, err = repo.IsSeen(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestStatsRepository(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewStatsRepository(testDB.DB)
	ctx := context.Background()

	zero, err := repo.AllTime(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", zero.PlayerID)
	assert.Zero(t, zero.Counters)

	zero.Counters = domain.Counters{Score: 3, Battles: 1, Wins: 1}
	require.NoError(t, repo.SaveAllTime(ctx, zero))
	zero.Counters.Add(domain.Counters{Score: -1, Battles: 1, Losses: 1})
	require.NoError(t, repo.SaveAllTime(ctx, zero))

	all, err := repo.AllTimeFor(ctx, []string{"alice", "bob"})
	require.NoError(t, err)
	assert.Equal(t, domain.Counters{Score: 2, Battles: 2, Wins: 1, Losses: 1}, all["alice"])
	_, ok := all["bob"]
	assert.False(t, ok)

	require.NoError(t, repo.SaveTourney(ctx, &domain.TourneyStats{
		PlayerID: "bob",
		LastSeen: 50,
		Counters: domain.Counters{Score: 1, Battles: 1, Ties: 1},
	}))
	tourney, err := repo.TourneyFor(ctx, []string{"alice", "bob"})
	require.NoError(t, err)
	require.Contains(t, tourney, "bob")
	assert.Equal(t, int64(50), tourney["bob"].LastSeen)
	assert.NotContains(t, tourney, "alice")
}

func TestBattleRepository(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewBattleRepository(testDB.DB)
	ctx := context.Background()

	winner := uint8(1)
	for i, owners := range [][3]string{
		{"alice", "bob", "carol"},
		{"alice", "dave", "erin"},
		{"bob", "dave", "erin"},
	} {
		b := &domain.Battle{BattleNumber: uint64(i), Timestamp: int64(1000 + i), SkillUsed: 2, Winner: &winner, WinningSkillValue: 40}
		for _, o := range owners {
			b.Heroes = append(b.Heroes, domain.BattleHero{Owner: o, Name: o + "'s hero"})
		}
		require.NoError(t, repo.Create(ctx, b))
	}

	history, err := repo.History(ctx, "alice", 0, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, uint64(1), history[0].BattleNumber)
	assert.Equal(t, uint64(0), history[1].BattleNumber)
	require.NotNil(t, history[0].Winner)
	assert.Equal(t, uint8(1), *history[0].Winner)

	page, err := repo.History(ctx, "dave", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, uint64(1), page[0].BattleNumber)

	battles, err := repo.Range(ctx, 1, 3)
	require.NoError(t, err)
	require.Len(t, battles, 2)
	assert.Equal(t, "bob", battles[1].Heroes[0].Owner)

	dup := &domain.Battle{BattleNumber: 0, Heroes: []domain.BattleHero{{Owner: "x"}}}
	assert.Error(t, repo.Create(ctx, dup), "battle numbers are unique")
}

func TestOutboxRepository(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewOutboxRepository(testDB.DB)
	ctx := context.Background()

	effects := []*domain.OutboxEffect{
		{Kind: domain.EffectTransfer, Destination: "cards", URL: "http://cards", Payload: []byte(`{"a":1}`)},
		{Kind: domain.EffectApprovalGrant, Destination: "cards", URL: "http://cards", Payload: []byte(`{"b":2}`)},
		{Kind: domain.EffectArenaImport, Destination: "arena-b", URL: "http://b", Payload: []byte(`{}`), Credential: "tok"},
	}
	require.NoError(t, repo.Enqueue(ctx, effects))
	require.NoError(t, repo.Enqueue(ctx, nil))

	pending, err := repo.Pending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, domain.EffectTransfer, pending[0].Kind)
	assert.Less(t, pending[0].ID, pending[1].ID)

	require.NoError(t, repo.MarkFailed(ctx, pending[0].ID, "connection refused"))
	require.NoError(t, repo.MarkDelivered(ctx, pending[1].ID, time.Now()))

	pending, err = repo.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "connection refused", pending[0].LastError)
	assert.Equal(t, "tok", pending[1].Credential)

	count, err := repo.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestImportedBatchRepository(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewImportedBatchRepository(testDB.DB)
	ctx := context.Background()

	id := uuid.New()
	exists, err := repo.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Create(ctx, &domain.ImportedBatch{BatchID: id, SourceID: "arena-a", Players: 3}))

	exists, err = repo.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTransactor_RollsBack(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	tx := postgres.NewTransactor(testDB.DB)
	repos := postgres.NewRepositories(testDB.DB)
	ctx := context.Background()

	boom := errors.New("boom")
	err := tx.Transaction(ctx, func(r *repository.Repositories) error {
		if err := r.Bot.Add(ctx, []string{"bot-1"}); err != nil {
			return err
		}
		if err := r.Player.MarkSeen(ctx, "alice"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	bots, err := repos.Bot.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, bots)

	seen, err := repos.Player.IsSeen(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, seen)
}
