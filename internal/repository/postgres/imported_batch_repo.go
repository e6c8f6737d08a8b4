package postgres

import (
	"context"

	"github.com/dom/hero-arena/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type importedBatchRepository struct {
	db *gorm.DB
}

func NewImportedBatchRepository(db *gorm.DB) *importedBatchRepository {
	return &importedBatchRepository{db: db}
}

func (r *importedBatchRepository) Exists(ctx context.Context, batchID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.ImportedBatch{}).Where("batch_id = ?", batchID).Count(&count).Error
	return count > 0, err
}

func (r *importedBatchRepository) Create(ctx context.Context, batch *domain.ImportedBatch) error {
	return r.db.WithContext(ctx).Create(batch).Error
}
