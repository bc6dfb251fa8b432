package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/straye-as/season-planning-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PurchaseOrderPrefix prefixes generated purchase order numbers
const PurchaseOrderPrefix = "PO"

var poNumberPattern = regexp.MustCompile(`^PO-\d{8}-\d{6}$`)

// NumberSequenceService hands out formatted document numbers. Sequences are
// kept per prefix and day, so numbers restart at 1 every day.
//
// Format: {PREFIX}-{YYYYMMDD}-{SEQUENCE}
// Example: PO-20260315-000042
type NumberSequenceService struct {
	repo   *repository.NumberSequenceRepository
	logger *zap.Logger
}

// NewNumberSequenceService creates a new NumberSequenceService
func NewNumberSequenceService(
	repo *repository.NumberSequenceRepository,
	logger *zap.Logger,
) *NumberSequenceService {
	return &NumberSequenceService{
		repo:   repo,
		logger: logger,
	}
}

// NextPONumber issues the next purchase order number for the day of at.
// When tx is non-nil the counter moves in that transaction, so a rolled back
// order does not burn a number.
func (s *NumberSequenceService) NextPONumber(ctx context.Context, tx *gorm.DB, at time.Time) (string, error) {
	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	period := at.Format("20060102")
	next, err := repo.GetNextNumber(ctx, PurchaseOrderPrefix, period)
	if err != nil {
		s.logger.Error("failed to get next sequence number",
			zap.String("prefix", PurchaseOrderPrefix),
			zap.String("period", period),
			zap.Error(err))
		return "", fmt.Errorf("failed to generate purchase order number: %w", err)
	}

	number := fmt.Sprintf("%s-%s-%06d", PurchaseOrderPrefix, period, next)
	s.logger.Debug("generated number",
		zap.String("number", number),
		zap.Int("sequence", next))
	return number, nil
}

// CurrentSequence returns the last issued sequence for a prefix and day
// without incrementing it. Returns 0 if nothing was issued yet.
func (s *NumberSequenceService) CurrentSequence(ctx context.Context, prefix string, day time.Time) (int, error) {
	return s.repo.GetCurrentSequence(ctx, prefix, day.Format("20060102"))
}

// IsGeneratedPONumber reports whether number has the generated format
func IsGeneratedPONumber(number string) bool {
	return poNumberPattern.MatchString(number)
}
