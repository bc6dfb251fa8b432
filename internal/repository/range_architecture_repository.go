package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"gorm.io/gorm"
)

// RangeArchitectureRepository handles the planned assortment lines of a season
type RangeArchitectureRepository struct {
	db *gorm.DB
}

// RangeArchitectureFilters narrows a season's range architecture listing
type RangeArchitectureFilters struct {
	CategoryID *uuid.UUID
	Status     *domain.RangeArchitectureStatus
	PriceBand  string
}

// NewRangeArchitectureRepository creates a new range architecture repository instance
func NewRangeArchitectureRepository(db *gorm.DB) *RangeArchitectureRepository {
	return &RangeArchitectureRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *RangeArchitectureRepository) WithTx(tx *gorm.DB) *RangeArchitectureRepository {
	return &RangeArchitectureRepository{db: tx}
}

// CreateBatch inserts several lines in one statement
func (r *RangeArchitectureRepository) CreateBatch(ctx context.Context, items []domain.RangeArchitecture) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *RangeArchitectureRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RangeArchitecture, error) {
	var ra domain.RangeArchitecture
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ra).Error
	if err != nil {
		return nil, err
	}
	return &ra, nil
}

func (r *RangeArchitectureRepository) Update(ctx context.Context, ra *domain.RangeArchitecture) error {
	return r.db.WithContext(ctx).Save(ra).Error
}

// DeleteDraft removes a line only while it is still a draft
func (r *RangeArchitectureRepository) DeleteDraft(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, domain.RangeStatusDraft).
		Delete(&domain.RangeArchitecture{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Submit moves a draft or rejected line to submitted. It returns false when the
// line is in any other status.
func (r *RangeArchitectureRepository) Submit(ctx context.Context, id uuid.UUID, submittedBy string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.RangeArchitecture{}).
		Where("id = ? AND status IN ?", id, []domain.RangeArchitectureStatus{domain.RangeStatusDraft, domain.RangeStatusRejected}).
		Updates(map[string]interface{}{
			"status":       domain.RangeStatusSubmitted,
			"submitted_by": submittedBy,
			"submitted_at": at,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Review flips a submitted line to approved or rejected. Of two concurrent
// reviews of the same line exactly one succeeds.
func (r *RangeArchitectureRepository) Review(ctx context.Context, id uuid.UUID, to domain.RangeArchitectureStatus, reviewedBy, comment string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.RangeArchitecture{}).
		Where("id = ? AND status = ?", id, domain.RangeStatusSubmitted).
		Updates(map[string]interface{}{
			"status":         to,
			"reviewed_by":    reviewedBy,
			"reviewed_at":    at,
			"review_comment": comment,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListBySeason returns a season's lines ordered by category and price band
func (r *RangeArchitectureRepository) ListBySeason(ctx context.Context, seasonID uuid.UUID, filters *RangeArchitectureFilters) ([]domain.RangeArchitecture, error) {
	var items []domain.RangeArchitecture
	query := r.db.WithContext(ctx).Where("season_id = ?", seasonID)
	if filters != nil {
		if filters.CategoryID != nil {
			query = query.Where("category_id = ?", *filters.CategoryID)
		}
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
		if filters.PriceBand != "" {
			query = query.Where("price_band = ?", filters.PriceBand)
		}
	}
	err := query.Order("category_id ASC, price_band ASC, created_at ASC").Find(&items).Error
	return items, err
}
