package postgres

import (
	"context"

	"github.com/dom/hero-arena/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type playerRepository struct {
	db *gorm.DB
}

func NewPlayerRepository(db *gorm.DB) *playerRepository {
	return &playerRepository{db: db}
}

func (r *playerRepository) IsSeen(ctx context.Context, playerID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SeenPlayer{}).Where("player_id = ?", playerID).Count(&count).Error
	return count > 0, err
}

func (r *playerRepository) MarkSeen(ctx context.Context, playerID string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.SeenPlayer{PlayerID: playerID}).Error
}

// Append adds players after the first count registered ones and returns the
// new count. Only the last page is loaded; full pages are written once.
func (r *playerRepository) Append(ctx context.Context, count uint32, playerIDs []string) (uint32, error) {
	if len(playerIDs) == 0 {
		return count, nil
	}

	page, err := r.loadPage(ctx, count/domain.PageSize)
	if err != nil {
		return count, err
	}
	for _, id := range playerIDs {
		if index := count / domain.PageSize; index != page.PageIndex {
			if err := r.savePage(ctx, page); err != nil {
				return count, err
			}
			page = &domain.PlayerPage{PageIndex: index}
		}
		page.Players = append(page.Players, id)
		count++
	}
	if err := r.savePage(ctx, page); err != nil {
		return count, err
	}
	return count, nil
}

// Page returns the players on one page, or nil if the page does not exist.
func (r *playerRepository) Page(ctx context.Context, index uint32) ([]string, error) {
	page, err := r.loadPage(ctx, index)
	if err != nil {
		return nil, err
	}
	return page.Players, nil
}

func (r *playerRepository) loadPage(ctx context.Context, index uint32) (*domain.PlayerPage, error) {
	page := domain.PlayerPage{PageIndex: index}
	err := r.db.WithContext(ctx).Where("page_index = ?", index).FirstOrInit(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *playerRepository) savePage(ctx context.Context, page *domain.PlayerPage) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "page_index"}},
		UpdateAll: true,
	}).Create(page).Error
}
