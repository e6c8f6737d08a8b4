package repository

import (
	"context"
	"time"

	"github.com/dom/hero-arena/internal/domain"
	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByDisplayName(ctx context.Context, displayName string) (*domain.User, error)
	// DisplayNames resolves account ids; ids without an account are absent
	// from the result.
	DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.UserSession) error
	// Latest returns gorm.ErrRecordNotFound when the user has no session.
	Latest(ctx context.Context, userID uuid.UUID) (*domain.UserSession, error)
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ArenaRepository stores the singleton arena state. Get and GetForUpdate
// return domain.ErrArenaNotFound before genesis.
type ArenaRepository interface {
	Create(ctx context.Context, state *domain.ArenaState) error
	Get(ctx context.Context) (*domain.ArenaState, error)
	GetForUpdate(ctx context.Context) (*domain.ArenaState, error)
	Save(ctx context.Context, state *domain.ArenaState) error
}

// StatsRepository stores per-player counters. Single-row loads return a
// zero row for unknown players.
type StatsRepository interface {
	AllTime(ctx context.Context, playerID string) (*domain.PlayerStats, error)
	SaveAllTime(ctx context.Context, stats *domain.PlayerStats) error
	Tourney(ctx context.Context, playerID string) (*domain.TourneyStats, error)
	SaveTourney(ctx context.Context, stats *domain.TourneyStats) error
	AllTimeFor(ctx context.Context, playerIDs []string) (map[string]domain.Counters, error)
	TourneyFor(ctx context.Context, playerIDs []string) (map[string]*domain.TourneyStats, error)
}

// PlayerRepository is the paged player registry plus its seen set.
type PlayerRepository interface {
	IsSeen(ctx context.Context, playerID string) (bool, error)
	MarkSeen(ctx context.Context, playerID string) error
	Append(ctx context.Context, count uint32, playerIDs []string) (uint32, error)
	Page(ctx context.Context, index uint32) ([]string, error)
}

type BattleRepository interface {
	Create(ctx context.Context, battle *domain.Battle) error
	History(ctx context.Context, playerID string, page, pageSize int) ([]*domain.Battle, error)
	Range(ctx context.Context, start, end uint64) ([]*domain.Battle, error)
}

type BotRepository interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, playerIDs []string) error
	Remove(ctx context.Context, playerIDs []string) error
	Contains(ctx context.Context, playerIDs []string) (map[string]bool, error)
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, effects []*domain.OutboxEffect) error
	Pending(ctx context.Context, limit int) ([]*domain.OutboxEffect, error)
	MarkDelivered(ctx context.Context, id uint64, at time.Time) error
	MarkFailed(ctx context.Context, id uint64, reason string) error
	CountPending(ctx context.Context) (int64, error)
}

type ImportedBatchRepository interface {
	Exists(ctx context.Context, batchID uuid.UUID) (bool, error)
	Create(ctx context.Context, batch *domain.ImportedBatch) error
}

type Repositories struct {
	User          UserRepository
	Session       SessionRepository
	Arena         ArenaRepository
	Stats         StatsRepository
	Player        PlayerRepository
	Battle        BattleRepository
	Bot           BotRepository
	Outbox        OutboxRepository
	ImportedBatch ImportedBatchRepository
}

// Transactor runs fn with repositories bound to one database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	Transaction(ctx context.Context, fn func(repos *Repositories) error) error
}
