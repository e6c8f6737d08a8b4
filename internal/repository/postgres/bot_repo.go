package postgres

import (
	"context"

	"github.com/dom/hero-arena/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type botRepository struct {
	db *gorm.DB
}

func NewBotRepository(db *gorm.DB) *botRepository {
	return &botRepository{db: db}
}

func (r *botRepository) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.FillerBot{}).
		Order("created_at ASC, player_id ASC").
		Pluck("player_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *botRepository) Add(ctx context.Context, playerIDs []string) error {
	if len(playerIDs) == 0 {
		return nil
	}
	bots := make([]*domain.FillerBot, 0, len(playerIDs))
	for _, id := range playerIDs {
		bots = append(bots, &domain.FillerBot{PlayerID: id})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(bots).Error
}

func (r *botRepository) Remove(ctx context.Context, playerIDs []string) error {
	if len(playerIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Delete(&domain.FillerBot{}, "player_id IN ?", playerIDs).Error
}

// Contains reports which of playerIDs are filler bots.
func (r *botRepository) Contains(ctx context.Context, playerIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(playerIDs))
	if len(playerIDs) == 0 {
		return out, nil
	}
	var found []string
	err := r.db.WithContext(ctx).Model(&domain.FillerBot{}).
		Where("player_id IN ?", playerIDs).
		Pluck("player_id", &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		out[id] = true
	}
	return out, nil
}
