package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/season-planning-api/internal/auth"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/mapper"
	"github.com/straye-as/season-planning-api/internal/metrics"
	"github.com/straye-as/season-planning-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxRecalcAttempts bounds the compare-and-set retries for one OTB row
const maxRecalcAttempts = 3

// CalculateOTB returns the open-to-buy spend limit:
// planned sales + planned closing stock - opening stock - on order.
// A negative result means the location is overstocked and is returned as is.
func CalculateOTB(in domain.OTBInputs) (decimal.Decimal, error) {
	if err := validateOTBInputs(in); err != nil {
		return decimal.Zero, err
	}
	return otbFormula(in), nil
}

func otbFormula(in domain.OTBInputs) decimal.Decimal {
	return in.PlannedSales.
		Add(in.PlannedClosingStock).
		Sub(in.OpeningStock).
		Sub(in.OnOrder)
}

func validateOTBInputs(in domain.OTBInputs) error {
	checks := []struct {
		field string
		value decimal.Decimal
	}{
		{"plannedSales", in.PlannedSales},
		{"plannedClosingStock", in.PlannedClosingStock},
		{"openingStock", in.OpeningStock},
		{"onOrder", in.OnOrder},
	}
	for _, c := range checks {
		if err := requireNonNegative(c.field, c.value); err != nil {
			return err
		}
	}
	return nil
}

func roundInputs(in domain.OTBInputs) domain.OTBInputs {
	return domain.OTBInputs{
		PlannedSales:        money(in.PlannedSales),
		PlannedClosingStock: money(in.PlannedClosingStock),
		OpeningStock:        money(in.OpeningStock),
		OnOrder:             money(in.OnOrder),
	}
}

func inputsOf(p *domain.OTBPlan) domain.OTBInputs {
	return domain.OTBInputs{
		PlannedSales:        p.PlannedSales,
		PlannedClosingStock: p.PlannedClosingStock,
		OpeningStock:        p.OpeningStock,
		OnOrder:             p.OnOrder,
	}
}

func applyInputs(p *domain.OTBPlan, in domain.OTBInputs) {
	p.PlannedSales = in.PlannedSales
	p.PlannedClosingStock = in.PlannedClosingStock
	p.OpeningStock = in.OpeningStock
	p.OnOrder = in.OnOrder
	p.ApprovedSpendLimit = otbFormula(in)
}

// OTBService manages monthly open-to-buy plans. The approved spend limit is
// always derived here and never taken from a client.
type OTBService struct {
	otbRepo      *repository.OTBPlanRepository
	locationRepo *repository.LocationRepository
	categoryRepo *repository.CategoryRepository
	guard        *MutationGuard
	auditSvc     *AuditLogService
	metrics      *metrics.Recorder
	logger       *zap.Logger
}

// NewOTBService creates a new OTB service
func NewOTBService(
	otbRepo *repository.OTBPlanRepository,
	locationRepo *repository.LocationRepository,
	categoryRepo *repository.CategoryRepository,
	guard *MutationGuard,
	auditSvc *AuditLogService,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) *OTBService {
	return &OTBService{
		otbRepo:      otbRepo,
		locationRepo: locationRepo,
		categoryRepo: categoryRepo,
		guard:        guard,
		auditSvc:     auditSvc,
		metrics:      recorder,
		logger:       logger,
	}
}

// Calculate evaluates the formula without storing anything
func (s *OTBService) Calculate(in domain.OTBInputs) (*domain.CalculateOTBResponse, error) {
	limit, err := CalculateOTB(in)
	if err != nil {
		return nil, err
	}
	return &domain.CalculateOTBResponse{OTBInputs: in, ApprovedSpendLimit: limit}, nil
}

// Create stores an OTB row for the first day of the requested month
func (s *OTBService) Create(ctx context.Context, seasonID uuid.UUID, req *domain.CreateOTBPlanRequest) (*domain.OTBPlanDTO, error) {
	if err := validateOTBInputs(req.OTBInputs); err != nil {
		return nil, err
	}
	month, err := parseDate("month", req.Month)
	if err != nil {
		return nil, err
	}
	if err := checkCategories(ctx, s.categoryRepo, req.CategoryID); err != nil {
		return nil, err
	}

	_, actorName := auth.Actor(ctx)
	plan := &domain.OTBPlan{
		SeasonID:   seasonID,
		LocationID: req.LocationID,
		CategoryID: req.CategoryID,
		Month:      monthStart(month),
		UploadedBy: actorName,
	}
	applyInputs(plan, roundInputs(req.OTBInputs))

	err = s.guard.Guarded(ctx, seasonID, domain.EntityKindOTBPlan, domain.OperationCreate, func(tx *gorm.DB, season *domain.Season) error {
		if err := checkAssigned(ctx, s.locationRepo.WithTx(tx), seasonID, req.LocationID); err != nil {
			return err
		}
		if err := s.otbRepo.WithTx(tx).Create(ctx, plan); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrConflict
			}
			return mapper.FormatError("OTB plan", "create", err)
		}
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionCreate,
			EntityType: domain.EntityKindOTBPlan,
			EntityID:   &plan.ID,
			NewValues:  mapper.ToOTBPlanDTO(plan),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("OTB plan created",
		zap.String("season_id", seasonID.String()),
		zap.String("otb_plan_id", plan.ID.String()),
		zap.String("approved_spend_limit", plan.ApprovedSpendLimit.StringFixed(2)))
	dto := mapper.ToOTBPlanDTO(plan)
	return &dto, nil
}

// GetByID returns an OTB row of the season
func (s *OTBService) GetByID(ctx context.Context, seasonID, id uuid.UUID) (*domain.OTBPlanDTO, error) {
	plan, err := s.get(ctx, s.otbRepo, seasonID, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToOTBPlanDTO(plan)
	return &dto, nil
}

// Update replaces the inputs of an OTB row and re-derives its limit
func (s *OTBService) Update(ctx context.Context, seasonID, id uuid.UUID, req *domain.UpdateOTBPlanRequest) (*domain.OTBPlanDTO, error) {
	if err := validateOTBInputs(req.OTBInputs); err != nil {
		return nil, err
	}

	var plan *domain.OTBPlan
	err := s.guard.Guarded(ctx, seasonID, domain.EntityKindOTBPlan, domain.OperationUpdate, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.otbRepo.WithTx(tx)
		existing, err := s.get(ctx, repo, seasonID, id)
		if err != nil {
			return err
		}
		old := mapper.ToOTBPlanDTO(existing)

		applyInputs(existing, roundInputs(req.OTBInputs))
		if err := repo.Update(ctx, existing); err != nil {
			return mapper.FormatError("OTB plan", "update", err)
		}
		plan = existing
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionUpdate,
			EntityType: domain.EntityKindOTBPlan,
			EntityID:   &id,
			OldValues:  old,
			NewValues:  mapper.ToOTBPlanDTO(existing),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("OTB plan updated",
		zap.String("season_id", seasonID.String()),
		zap.String("otb_plan_id", id.String()))
	dto := mapper.ToOTBPlanDTO(plan)
	return &dto, nil
}

// Delete removes an OTB row
func (s *OTBService) Delete(ctx context.Context, seasonID, id uuid.UUID) error {
	return s.guard.Guarded(ctx, seasonID, domain.EntityKindOTBPlan, domain.OperationDelete, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.otbRepo.WithTx(tx)
		existing, err := s.get(ctx, repo, seasonID, id)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return mapper.FormatError("OTB plan", "delete", err)
		}
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionDelete,
			EntityType: domain.EntityKindOTBPlan,
			EntityID:   &id,
			OldValues:  mapper.ToOTBPlanDTO(existing),
		})
	})
}

// List returns the OTB rows of a season ordered by month
func (s *OTBService) List(ctx context.Context, seasonID uuid.UUID, filters *repository.OTBPlanFilters) ([]domain.OTBPlanDTO, error) {
	plans, err := s.otbRepo.ListBySeason(ctx, seasonID, filters)
	if err != nil {
		return nil, err
	}
	dtos := make([]domain.OTBPlanDTO, len(plans))
	for i := range plans {
		dtos[i] = mapper.ToOTBPlanDTO(&plans[i])
	}
	return dtos, nil
}

// Recalculate re-derives the approved spend limit of every OTB row in the
// season from its stored inputs and returns the number of rows written. Each
// write is a compare-and-set on the inputs it was derived from; a row whose
// inputs changed underneath is re-read and derived again.
func (s *OTBService) Recalculate(ctx context.Context, seasonID uuid.UUID) (int, error) {
	updated := 0
	err := s.guard.Guarded(ctx, seasonID, domain.EntityKindOTBPlan, domain.OperationRecalculate, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.otbRepo.WithTx(tx)
		plans, err := repo.ListBySeason(ctx, seasonID, nil)
		if err != nil {
			return err
		}

		for i := range plans {
			ok, err := s.recalculateRow(ctx, repo, &plans[i])
			if err != nil {
				return err
			}
			if ok {
				updated++
			}
		}

		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionRecalc,
			EntityType: domain.EntityKindOTBPlan,
			NewValues:  map[string]interface{}{"updatedCount": updated},
		})
	})
	if err != nil {
		return 0, err
	}

	s.metrics.OTBRecalculated(updated)
	s.logger.Info("OTB plans recalculated",
		zap.String("season_id", seasonID.String()),
		zap.Int("updated_count", updated))
	return updated, nil
}

// recalculateRow reports false when the row disappeared while retrying
func (s *OTBService) recalculateRow(ctx context.Context, repo *repository.OTBPlanRepository, plan *domain.OTBPlan) (bool, error) {
	seen := plan
	for attempt := 0; attempt < maxRecalcAttempts; attempt++ {
		limit := otbFormula(inputsOf(seen))
		ok, err := repo.SetSpendLimitIfUnchanged(ctx, seen, limit)
		if err != nil {
			return false, mapper.FormatError("OTB plan", "recalculate", err)
		}
		if ok {
			return true, nil
		}

		s.logger.Debug("OTB row changed during recalculation, retrying",
			zap.String("otb_plan_id", plan.ID.String()),
			zap.Int("attempt", attempt+1))
		seen, err = repo.GetByID(ctx, plan.ID)
		if err != nil {
			if repository.IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
	}
	return false, fmt.Errorf("%w: OTB plan %s kept changing during recalculation", ErrConflict, plan.ID)
}

func (s *OTBService) get(ctx context.Context, repo *repository.OTBPlanRepository, seasonID, id uuid.UUID) (*domain.OTBPlan, error) {
	plan, err := repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newNotFoundError("OTB plan", id)
		}
		return nil, err
	}
	if plan.SeasonID != seasonID {
		return nil, newNotFoundError("OTB plan", id)
	}
	return plan, nil
}
