package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"gorm.io/gorm"
)

// RangeIntentRepository handles per-category range intents
type RangeIntentRepository struct {
	db *gorm.DB
}

// NewRangeIntentRepository creates a new range intent repository instance
func NewRangeIntentRepository(db *gorm.DB) *RangeIntentRepository {
	return &RangeIntentRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *RangeIntentRepository) WithTx(tx *gorm.DB) *RangeIntentRepository {
	return &RangeIntentRepository{db: tx}
}

// GetBySeasonCategory returns the intent of a category in a season
func (r *RangeIntentRepository) GetBySeasonCategory(ctx context.Context, seasonID, categoryID uuid.UUID) (*domain.RangeIntent, error) {
	var intent domain.RangeIntent
	err := r.db.WithContext(ctx).
		Where("season_id = ? AND category_id = ?", seasonID, categoryID).
		First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *RangeIntentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RangeIntent, error) {
	var intent domain.RangeIntent
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *RangeIntentRepository) Create(ctx context.Context, intent *domain.RangeIntent) error {
	return r.db.WithContext(ctx).Create(intent).Error
}

func (r *RangeIntentRepository) Update(ctx context.Context, intent *domain.RangeIntent) error {
	return r.db.WithContext(ctx).Save(intent).Error
}

func (r *RangeIntentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.RangeIntent{}, "id = ?", id).Error
}

// ListBySeason returns every range intent of a season
func (r *RangeIntentRepository) ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]domain.RangeIntent, error) {
	var intents []domain.RangeIntent
	err := r.db.WithContext(ctx).Where("season_id = ?", seasonID).Order("created_at ASC").Find(&intents).Error
	return intents, err
}
