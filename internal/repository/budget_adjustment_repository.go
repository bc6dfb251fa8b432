package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"gorm.io/gorm"
)

// BudgetAdjustmentRepository handles category-to-category budget transfers
type BudgetAdjustmentRepository struct {
	db *gorm.DB
}

// NewBudgetAdjustmentRepository creates a new budget adjustment repository instance
func NewBudgetAdjustmentRepository(db *gorm.DB) *BudgetAdjustmentRepository {
	return &BudgetAdjustmentRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *BudgetAdjustmentRepository) WithTx(tx *gorm.DB) *BudgetAdjustmentRepository {
	return &BudgetAdjustmentRepository{db: tx}
}

func (r *BudgetAdjustmentRepository) Create(ctx context.Context, adj *domain.BudgetAdjustment) error {
	return r.db.WithContext(ctx).Create(adj).Error
}

func (r *BudgetAdjustmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BudgetAdjustment, error) {
	var adj domain.BudgetAdjustment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&adj).Error
	if err != nil {
		return nil, err
	}
	return &adj, nil
}

// Approve flips a pending adjustment to approved. It returns false when the
// adjustment is no longer pending, so of two concurrent approvals exactly one wins.
func (r *BudgetAdjustmentRepository) Approve(ctx context.Context, id uuid.UUID, approvedBy string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.BudgetAdjustment{}).
		Where("id = ? AND status = ?", id, domain.AdjustmentStatusPending).
		Updates(map[string]interface{}{
			"status":      domain.AdjustmentStatusApproved,
			"approved_by": approvedBy,
			"approved_at": at,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Reject flips a pending adjustment to rejected under the same condition as Approve
func (r *BudgetAdjustmentRepository) Reject(ctx context.Context, id uuid.UUID, rejectedBy, reason string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.BudgetAdjustment{}).
		Where("id = ? AND status = ?", id, domain.AdjustmentStatusPending).
		Updates(map[string]interface{}{
			"status":           domain.AdjustmentStatusRejected,
			"approved_by":      rejectedBy,
			"approved_at":      at,
			"rejection_reason": reason,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListBySeason returns a season's adjustments, optionally filtered by status
func (r *BudgetAdjustmentRepository) ListBySeason(ctx context.Context, seasonID uuid.UUID, status *domain.AdjustmentStatus) ([]domain.BudgetAdjustment, error) {
	var adjustments []domain.BudgetAdjustment
	query := r.db.WithContext(ctx).Where("season_id = ?", seasonID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	err := query.Order("created_at ASC").Find(&adjustments).Error
	return adjustments, err
}

// CountPending returns the number of pending adjustments of a season
func (r *BudgetAdjustmentRepository) CountPending(ctx context.Context, seasonID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.BudgetAdjustment{}).
		Where("season_id = ? AND status = ?", seasonID, domain.AdjustmentStatusPending).
		Count(&count).Error
	return count, err
}
