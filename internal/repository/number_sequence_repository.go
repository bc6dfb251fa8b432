package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/straye-as/season-planning-api/internal/domain"
	"gorm.io/gorm"
)

// NumberSequenceRepository handles counters behind generated document numbers.
// A counter is keyed by prefix and period, e.g. ("PO", "20250314").
type NumberSequenceRepository struct {
	db *gorm.DB
}

// NewNumberSequenceRepository creates a new NumberSequenceRepository
func NewNumberSequenceRepository(db *gorm.DB) *NumberSequenceRepository {
	return &NumberSequenceRepository{db: db}
}

// WithTx returns a repository bound to an open transaction. GetNextNumber then
// runs in a savepoint of that transaction.
func (r *NumberSequenceRepository) WithTx(tx *gorm.DB) *NumberSequenceRepository {
	return &NumberSequenceRepository{db: tx}
}

// GetNextNumber atomically increments and returns the counter for a prefix and
// period, starting at 1. The row is read under SELECT FOR UPDATE so
// concurrent callers never receive the same number.
func (r *NumberSequenceRepository) GetNextNumber(ctx context.Context, prefix, period string) (int, error) {
	var nextSeq int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq domain.NumberSequence
		result := forUpdate(tx).
			Where("prefix = ? AND period = ?", prefix, period).
			First(&seq)

		if IsNotFound(result.Error) {
			seq = domain.NumberSequence{
				Prefix:       prefix,
				Period:       period,
				LastSequence: 1,
				CreatedAt:    time.Now(),
				UpdatedAt:    time.Now(),
			}
			if err := tx.Create(&seq).Error; err != nil {
				return fmt.Errorf("failed to create number sequence: %w", err)
			}
			nextSeq = 1
			return nil
		}
		if result.Error != nil {
			return fmt.Errorf("failed to get number sequence: %w", result.Error)
		}

		nextSeq = seq.LastSequence + 1
		if err := tx.Model(&seq).Updates(map[string]interface{}{
			"last_sequence": nextSeq,
			"updated_at":    time.Now(),
		}).Error; err != nil {
			return fmt.Errorf("failed to update number sequence: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return nextSeq, nil
}

// GetCurrentSequence retrieves the current counter without incrementing.
// Returns 0 if no counter exists yet.
func (r *NumberSequenceRepository) GetCurrentSequence(ctx context.Context, prefix, period string) (int, error) {
	var seq domain.NumberSequence
	result := r.db.WithContext(ctx).
		Where("prefix = ? AND period = ?", prefix, period).
		First(&seq)

	if IsNotFound(result.Error) {
		return 0, nil
	}
	if result.Error != nil {
		return 0, fmt.Errorf("failed to get number sequence: %w", result.Error)
	}

	return seq.LastSequence, nil
}
