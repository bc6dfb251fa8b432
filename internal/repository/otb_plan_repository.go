package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/season-planning-api/internal/domain"
	"gorm.io/gorm"
)

// OTBPlanFilters narrows a season's OTB listing
type OTBPlanFilters struct {
	LocationID *uuid.UUID
	CategoryID *uuid.UUID
}

// OTBPlanRepository handles open-to-buy plan rows
type OTBPlanRepository struct {
	db *gorm.DB
}

// NewOTBPlanRepository creates a new OTB plan repository instance
func NewOTBPlanRepository(db *gorm.DB) *OTBPlanRepository {
	return &OTBPlanRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *OTBPlanRepository) WithTx(tx *gorm.DB) *OTBPlanRepository {
	return &OTBPlanRepository{db: tx}
}

func (r *OTBPlanRepository) Create(ctx context.Context, plan *domain.OTBPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *OTBPlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.OTBPlan, error) {
	var plan domain.OTBPlan
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *OTBPlanRepository) Update(ctx context.Context, plan *domain.OTBPlan) error {
	return r.db.WithContext(ctx).Save(plan).Error
}

func (r *OTBPlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.OTBPlan{}, "id = ?", id).Error
}

// ListBySeason returns the OTB rows of a season ordered by month
func (r *OTBPlanRepository) ListBySeason(ctx context.Context, seasonID uuid.UUID, filters *OTBPlanFilters) ([]domain.OTBPlan, error) {
	var plans []domain.OTBPlan
	query := r.db.WithContext(ctx).Where("season_id = ?", seasonID)
	if filters != nil {
		if filters.LocationID != nil {
			query = query.Where("location_id = ?", *filters.LocationID)
		}
		if filters.CategoryID != nil {
			query = query.Where("category_id = ?", *filters.CategoryID)
		}
	}
	err := query.Order("month ASC, created_at ASC").Find(&plans).Error
	return plans, err
}

// CountBySeason returns the number of OTB rows of a season
func (r *OTBPlanRepository) CountBySeason(ctx context.Context, seasonID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.OTBPlan{}).Where("season_id = ?", seasonID).Count(&count).Error
	return count, err
}

// SetSpendLimitIfUnchanged writes a new approved spend limit only when the
// stored inputs still equal the ones the limit was derived from. It returns
// false when a concurrent edit changed the row.
func (r *OTBPlanRepository) SetSpendLimitIfUnchanged(ctx context.Context, seen *domain.OTBPlan, limit decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.OTBPlan{}).
		Where("id = ? AND planned_sales = ? AND planned_closing_stock = ? AND opening_stock = ? AND on_order = ?",
			seen.ID, seen.PlannedSales, seen.PlannedClosingStock, seen.OpeningStock, seen.OnOrder).
		Updates(map[string]interface{}{
			"approved_spend_limit": limit,
			"updated_at":           time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
