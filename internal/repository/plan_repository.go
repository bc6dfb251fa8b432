package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"gorm.io/gorm"
)

// PlanFilters narrows a season's plan listing
type PlanFilters struct {
	LocationID *uuid.UUID
	CategoryID *uuid.UUID
	Approved   *bool
}

// PlanRepository handles season plan rows
type PlanRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates a new plan repository instance
func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *PlanRepository) WithTx(tx *gorm.DB) *PlanRepository {
	return &PlanRepository{db: tx}
}

func (r *PlanRepository) Create(ctx context.Context, plan *domain.SeasonPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *PlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.SeasonPlan, error) {
	var plan domain.SeasonPlan
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) Update(ctx context.Context, plan *domain.SeasonPlan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

func (r *PlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.SeasonPlan{}, "id = ?", id).Error
}

// Approve flags a plan as approved without touching its numbers
func (r *PlanRepository) Approve(ctx context.Context, id uuid.UUID, approvedBy string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.SeasonPlan{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"approved":    true,
			"approved_by": approvedBy,
			"approved_at": at,
			"updated_at":  time.Now(),
		}).Error
}

// ListBySeason returns the plan rows of a season
func (r *PlanRepository) ListBySeason(ctx context.Context, seasonID uuid.UUID, filters *PlanFilters) ([]domain.SeasonPlan, error) {
	var plans []domain.SeasonPlan
	query := r.db.WithContext(ctx).Where("season_id = ?", seasonID)
	if filters != nil {
		if filters.LocationID != nil {
			query = query.Where("location_id = ?", *filters.LocationID)
		}
		if filters.CategoryID != nil {
			query = query.Where("category_id = ?", *filters.CategoryID)
		}
		if filters.Approved != nil {
			query = query.Where("approved = ?", *filters.Approved)
		}
	}
	err := query.Order("created_at ASC").Find(&plans).Error
	return plans, err
}

// CountBySeason returns the number of plan rows of a season
func (r *PlanRepository) CountBySeason(ctx context.Context, seasonID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SeasonPlan{}).Where("season_id = ?", seasonID).Count(&count).Error
	return count, err
}
