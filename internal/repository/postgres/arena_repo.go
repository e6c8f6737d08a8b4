package postgres

import (
	"context"
	"errors"

	"github.com/dom/hero-arena/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type arenaRepository struct {
	db *gorm.DB
}

func NewArenaRepository(db *gorm.DB) *arenaRepository {
	return &arenaRepository{db: db}
}

func (r *arenaRepository) Create(ctx context.Context, state *domain.ArenaState) error {
	state.ID = domain.ArenaStateID
	return r.db.WithContext(ctx).Create(state).Error
}

func (r *arenaRepository) Get(ctx context.Context) (*domain.ArenaState, error) {
	return r.load(r.db.WithContext(ctx))
}

// GetForUpdate locks the arena row until the surrounding transaction ends.
func (r *arenaRepository) GetForUpdate(ctx context.Context) (*domain.ArenaState, error) {
	return r.load(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}))
}

func (r *arenaRepository) load(db *gorm.DB) (*domain.ArenaState, error) {
	var state domain.ArenaState
	err := db.First(&state, "id = ?", domain.ArenaStateID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrArenaNotFound
		}
		return nil, err
	}
	return &state, nil
}

func (r *arenaRepository) Save(ctx context.Context, state *domain.ArenaState) error {
	return r.db.WithContext(ctx).Save(state).Error
}
