package postgres

import (
	"context"

	"github.com/dom/hero-arena/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *statsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) AllTime(ctx context.Context, playerID string) (*domain.PlayerStats, error) {
	stats := domain.PlayerStats{PlayerID: playerID}
	err := r.db.WithContext(ctx).Where("player_id = ?", playerID).FirstOrInit(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *statsRepository) SaveAllTime(ctx context.Context, stats *domain.PlayerStats) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}},
		UpdateAll: true,
	}).Create(stats).Error
}

func (r *statsRepository) Tourney(ctx context.Context, playerID string) (*domain.TourneyStats, error) {
	stats := domain.TourneyStats{PlayerID: playerID}
	err := r.db.WithContext(ctx).Where("player_id = ?", playerID).FirstOrInit(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *statsRepository) SaveTourney(ctx context.Context, stats *domain.TourneyStats) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}},
		UpdateAll: true,
	}).Create(stats).Error
}

// AllTimeFor loads all-time counters for many players at once. Players
// without a row are absent from the map.
func (r *statsRepository) AllTimeFor(ctx context.Context, playerIDs []string) (map[string]domain.Counters, error) {
	out := make(map[string]domain.Counters, len(playerIDs))
	if len(playerIDs) == 0 {
		return out, nil
	}
	var rows []*domain.PlayerStats
	err := r.db.WithContext(ctx).Where("player_id IN ?", playerIDs).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PlayerID] = row.Counters
	}
	return out, nil
}

func (r *statsRepository) TourneyFor(ctx context.Context, playerIDs []string) (map[string]*domain.TourneyStats, error) {
	out := make(map[string]*domain.TourneyStats, len(playerIDs))
	if len(playerIDs) == 0 {
		return out, nil
	}
	var rows []*domain.TourneyStats
	err := r.db.WithContext(ctx).Where("player_id IN ?", playerIDs).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PlayerID] = row
	}
	return out, nil
}
