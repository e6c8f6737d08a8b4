package postgres

import (
	"context"

	"github.com/dom/hero-arena/internal/domain"
	"gorm.io/gorm"
)

type battleRepository struct {
	db *gorm.DB
}

func NewBattleRepository(db *gorm.DB) *battleRepository {
	return &battleRepository{db: db}
}

// Create stores the battle and indexes it under every participant.
func (r *battleRepository) Create(ctx context.Context, battle *domain.Battle) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(battle).Error; err != nil {
			return err
		}
		participations := make([]*domain.BattleParticipation, 0, len(battle.Heroes))
		for _, h := range battle.Heroes {
			participations = append(participations, &domain.BattleParticipation{
				PlayerID:     h.Owner,
				BattleNumber: battle.BattleNumber,
			})
		}
		return tx.Create(participations).Error
	})
}

// History returns a page of playerID's battles, most recent first.
func (r *battleRepository) History(ctx context.Context, playerID string, page, pageSize int) ([]*domain.Battle, error) {
	var battles []*domain.Battle
	err := r.db.WithContext(ctx).
		Select("battles.*").
		Joins("JOIN battle_participations ON battle_participations.battle_number = battles.battle_number").
		Where("battle_participations.player_id = ?", playerID).
		Order("battles.battle_number DESC").
		Offset(page * pageSize).
		Limit(pageSize).
		Find(&battles).Error
	if err != nil {
		return nil, err
	}
	return battles, nil
}

// Range returns battles numbered [start, end) in order.
func (r *battleRepository) Range(ctx context.Context, start, end uint64) ([]*domain.Battle, error) {
	var battles []*domain.Battle
	err := r.db.WithContext(ctx).
		Where("battle_number >= ? AND battle_number < ?", start, end).
		Order("battle_number ASC").
		Find(&battles).Error
	if err != nil {
		return nil, err
	}
	return battles, nil
}
