package postgres

import (
	"context"

	"github.com/dom/hero-arena/internal/domain"
	"github.com/dom/hero-arena/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewConnection(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates every table the arena uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.UserSession{},
		&domain.ArenaState{},
		&domain.PlayerStats{},
		&domain.TourneyStats{},
		&domain.PlayerPage{},
		&domain.SeenPlayer{},
		&domain.Battle{},
		&domain.BattleParticipation{},
		&domain.FillerBot{},
		&domain.OutboxEffect{},
		&domain.ImportedBatch{},
	)
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User:          NewUserRepository(db),
		Session:       NewSessionRepository(db),
		Arena:         NewArenaRepository(db),
		Stats:         NewStatsRepository(db),
		Player:        NewPlayerRepository(db),
		Battle:        NewBattleRepository(db),
		Bot:           NewBotRepository(db),
		Outbox:        NewOutboxRepository(db),
		ImportedBatch: NewImportedBatchRepository(db),
	}
}

type transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *transactor {
	return &transactor{db: db}
}

func (t *transactor) Transaction(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
