package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/auth"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/mapper"
	"github.com/straye-as/season-planning-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RangeIntentService manages the per-category assortment intent of a season
type RangeIntentService struct {
	intentRepo   *repository.RangeIntentRepository
	categoryRepo *repository.CategoryRepository
	guard        *MutationGuard
	auditSvc     *AuditLogService
	logger       *zap.Logger
}

// NewRangeIntentService creates a new range intent service
func NewRangeIntentService(
	intentRepo *repository.RangeIntentRepository,
	categoryRepo *repository.CategoryRepository,
	guard *MutationGuard,
	auditSvc *AuditLogService,
	logger *zap.Logger,
) *RangeIntentService {
	return &RangeIntentService{
		intentRepo:   intentRepo,
		categoryRepo: categoryRepo,
		guard:        guard,
		auditSvc:     auditSvc,
		logger:       logger,
	}
}

// Upsert creates or replaces the range intent of a category in the season
func (s *RangeIntentService) Upsert(ctx context.Context, seasonID uuid.UUID, req *domain.UpsertRangeIntentRequest) (*domain.RangeIntentDTO, error) {
	if err := validateRangeIntent(req); err != nil {
		return nil, err
	}
	if err := checkCategories(ctx, s.categoryRepo, req.CategoryID); err != nil {
		return nil, err
	}

	_, actorName := auth.Actor(ctx)
	mix := normalizeMix(req.PriceBandMix)

	var intent *domain.RangeIntent
	var created bool
	err := s.guard.Guarded(ctx, seasonID, domain.EntityKindRangeIntent, domain.OperationUpdate, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.intentRepo.WithTx(tx)

		existing, err := repo.GetBySeasonCategory(ctx, seasonID, req.CategoryID)
		if err != nil && !repository.IsNotFound(err) {
			return err
		}

		entry := LogEntry{SeasonID: &seasonID, EntityType: domain.EntityKindRangeIntent}
		if existing == nil {
			intent = &domain.RangeIntent{
				SeasonID:       seasonID,
				CategoryID:     req.CategoryID,
				CorePercent:    money(req.CorePercent),
				FashionPercent: money(req.FashionPercent),
				PriceBandMix:   mix,
				UploadedBy:     actorName,
			}
			if err := repo.Create(ctx, intent); err != nil {
				if repository.IsDuplicateKey(err) {
					return ErrConflict
				}
				return mapper.FormatError("range intent", "create", err)
			}
			created = true
			entry.Action = domain.AuditActionCreate
		} else {
			entry.Action = domain.AuditActionUpdate
			entry.OldValues = mapper.ToRangeIntentDTO(existing)

			existing.CorePercent = money(req.CorePercent)
			existing.FashionPercent = money(req.FashionPercent)
			existing.PriceBandMix = mix
			existing.UploadedBy = actorName
			if err := repo.Update(ctx, existing); err != nil {
				return mapper.FormatError("range intent", "update", err)
			}
			intent = existing
		}

		entry.EntityID = &intent.ID
		entry.NewValues = mapper.ToRangeIntentDTO(intent)
		return s.auditSvc.Record(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("range intent saved",
		zap.String("season_id", seasonID.String()),
		zap.String("category_id", req.CategoryID.String()),
		zap.Bool("created", created))
	dto := mapper.ToRangeIntentDTO(intent)
	return &dto, nil
}

// Delete removes a range intent
func (s *RangeIntentService) Delete(ctx context.Context, seasonID, id uuid.UUID) error {
	return s.guard.Guarded(ctx, seasonID, domain.EntityKindRangeIntent, domain.OperationDelete, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.intentRepo.WithTx(tx)
		existing, err := repo.GetByID(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return newNotFoundError("range intent", id)
			}
			return err
		}
		if existing.SeasonID != seasonID {
			return newNotFoundError("range intent", id)
		}
		if err := repo.Delete(ctx, id); err != nil {
			return mapper.FormatError("range intent", "delete", err)
		}
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionDelete,
			EntityType: domain.EntityKindRangeIntent,
			EntityID:   &id,
			OldValues:  mapper.ToRangeIntentDTO(existing),
		})
	})
}

// List returns the range intents of a season
func (s *RangeIntentService) List(ctx context.Context, seasonID uuid.UUID) ([]domain.RangeIntentDTO, error) {
	intents, err := s.intentRepo.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	dtos := make([]domain.RangeIntentDTO, len(intents))
	for i := range intents {
		dtos[i] = mapper.ToRangeIntentDTO(&intents[i])
	}
	return dtos, nil
}

// validateRangeIntent checks the split and the mix. An empty mix means the
// price bands are not planned yet.
func validateRangeIntent(req *domain.UpsertRangeIntentRequest) error {
	if err := requireNonNegative("corePercent", req.CorePercent); err != nil {
		return err
	}
	if err := requireNonNegative("fashionPercent", req.FashionPercent); err != nil {
		return err
	}
	if !money(req.CorePercent).Add(money(req.FashionPercent)).Equal(hundred) {
		return newValidationError("corePercent", "corePercent and fashionPercent must add up to 100")
	}

	if len(req.PriceBandMix) == 0 {
		return nil
	}
	for band, weight := range req.PriceBandMix {
		if strings.TrimSpace(band) == "" {
			return newValidationError("priceBandMix", "price band labels must not be empty")
		}
		if weight < 0 {
			return newValidationError("priceBandMix", fmt.Sprintf("weight of %q must not be negative", band))
		}
	}
	if total := req.PriceBandMix.Total(); total != 100 {
		return newValidationError("priceBandMix", fmt.Sprintf("weights must add up to 100, got %d", total))
	}
	return nil
}

func normalizeMix(mix domain.PriceBandMix) domain.PriceBandMix {
	if mix == nil {
		return domain.PriceBandMix{}
	}
	return mix
}
