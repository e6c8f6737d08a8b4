package postgres

import (
	"context"
	"time"

	"github.com/dom/hero-arena/internal/domain"
	"gorm.io/gorm"
)

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *outboxRepository {
	return &outboxRepository{db: db}
}

// Enqueue stores effects in order; ids follow insertion order.
func (r *outboxRepository) Enqueue(ctx context.Context, effects []*domain.OutboxEffect) error {
	if len(effects) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(effects).Error
}

// Pending returns undelivered effects, oldest first.
func (r *outboxRepository) Pending(ctx context.Context, limit int) ([]*domain.OutboxEffect, error) {
	var effects []*domain.OutboxEffect
	err := r.db.WithContext(ctx).
		Where("delivered_at IS NULL").
		Order("id ASC").
		Limit(limit).
		Find(&effects).Error
	if err != nil {
		return nil, err
	}
	return effects, nil
}

func (r *outboxRepository) MarkDelivered(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.OutboxEffect{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"delivered_at": at,
			"attempts":     gorm.Expr("attempts + 1"),
			"last_error":   "",
		}).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uint64, reason string) error {
	return r.db.WithContext(ctx).Model(&domain.OutboxEffect{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error
}

func (r *outboxRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.OutboxEffect{}).
		Where("delivered_at IS NULL").
		Count(&count).Error
	return count, err
}
