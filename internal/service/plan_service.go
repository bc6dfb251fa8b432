package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/season-planning-api/internal/auth"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/mapper"
	"github.com/straye-as/season-planning-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PlanService manages season sales and margin plans
type PlanService struct {
	planRepo     *repository.PlanRepository
	locationRepo *repository.LocationRepository
	categoryRepo *repository.CategoryRepository
	guard        *MutationGuard
	auditSvc     *AuditLogService
	logger       *zap.Logger
}

// NewPlanService creates a new plan service
func NewPlanService(
	planRepo *repository.PlanRepository,
	locationRepo *repository.LocationRepository,
	categoryRepo *repository.CategoryRepository,
	guard *MutationGuard,
	auditSvc *AuditLogService,
	logger *zap.Logger,
) *PlanService {
	return &PlanService{
		planRepo:     planRepo,
		locationRepo: locationRepo,
		categoryRepo: categoryRepo,
		guard:        guard,
		auditSvc:     auditSvc,
		logger:       logger,
	}
}

// Create adds a plan row for a location assigned to the season
func (s *PlanService) Create(ctx context.Context, seasonID uuid.UUID, req *domain.CreateSeasonPlanRequest) (*domain.SeasonPlanDTO, error) {
	if err := validatePlanFigures(req.PlannedSales, req.InventoryTurns, req.LYSales); err != nil {
		return nil, err
	}
	if err := checkCategories(ctx, s.categoryRepo, req.CategoryID); err != nil {
		return nil, err
	}

	_, actorName := auth.Actor(ctx)
	plan := &domain.SeasonPlan{
		SeasonID:       seasonID,
		LocationID:     req.LocationID,
		CategoryID:     req.CategoryID,
		PlannedSales:   money(req.PlannedSales),
		PlannedMargin:  money(req.PlannedMargin),
		InventoryTurns: money(req.InventoryTurns),
		PlannedUnits:   req.PlannedUnits,
		LYSales:        roundPtr(req.LYSales),
		Version:        1,
		UploadedBy:     actorName,
	}

	err := s.guard.Guarded(ctx, seasonID, domain.EntityKindPlan, domain.OperationCreate, func(tx *gorm.DB, season *domain.Season) error {
		if err := checkAssigned(ctx, s.locationRepo.WithTx(tx), seasonID, req.LocationID); err != nil {
			return err
		}
		if err := s.planRepo.WithTx(tx).Create(ctx, plan); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrConflict
			}
			return mapper.FormatError("season plan", "create", err)
		}
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionCreate,
			EntityType: domain.EntityKindPlan,
			EntityID:   &plan.ID,
			NewValues:  mapper.ToSeasonPlanDTO(plan),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("season plan created",
		zap.String("season_id", seasonID.String()),
		zap.String("plan_id", plan.ID.String()))
	dto := mapper.ToSeasonPlanDTO(plan)
	return &dto, nil
}

// GetByID returns a plan row of the season
func (s *PlanService) GetByID(ctx context.Context, seasonID, id uuid.UUID) (*domain.SeasonPlanDTO, error) {
	plan, err := s.get(ctx, s.planRepo, seasonID, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToSeasonPlanDTO(plan)
	return &dto, nil
}

// Update replaces the figures of a plan row and bumps its version
func (s *PlanService) Update(ctx context.Context, seasonID, id uuid.UUID, req *domain.UpdateSeasonPlanRequest) (*domain.SeasonPlanDTO, error) {
	if err := validatePlanFigures(req.PlannedSales, req.InventoryTurns, req.LYSales); err != nil {
		return nil, err
	}

	var plan *domain.SeasonPlan
	err := s.guard.Guarded(ctx, seasonID, domain.EntityKindPlan, domain.OperationUpdate, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.planRepo.WithTx(tx)
		existing, err := s.get(ctx, repo, seasonID, id)
		if err != nil {
			return err
		}
		old := mapper.ToSeasonPlanDTO(existing)

		existing.PlannedSales = money(req.PlannedSales)
		existing.PlannedMargin = money(req.PlannedMargin)
		existing.InventoryTurns = money(req.InventoryTurns)
		existing.PlannedUnits = req.PlannedUnits
		existing.LYSales = roundPtr(req.LYSales)
		existing.Version++

		if err := repo.Update(ctx, existing); err != nil {
			return mapper.FormatError("season plan", "update", err)
		}
		plan = existing
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionUpdate,
			EntityType: domain.EntityKindPlan,
			EntityID:   &id,
			OldValues:  old,
			NewValues:  mapper.ToSeasonPlanDTO(existing),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("season plan updated",
		zap.String("season_id", seasonID.String()),
		zap.String("plan_id", id.String()),
		zap.Int("version", plan.Version))
	dto := mapper.ToSeasonPlanDTO(plan)
	return &dto, nil
}

// Delete removes a plan row
func (s *PlanService) Delete(ctx context.Context, seasonID, id uuid.UUID) error {
	err := s.guard.Guarded(ctx, seasonID, domain.EntityKindPlan, domain.OperationDelete, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.planRepo.WithTx(tx)
		existing, err := s.get(ctx, repo, seasonID, id)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return mapper.FormatError("season plan", "delete", err)
		}
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionDelete,
			EntityType: domain.EntityKindPlan,
			EntityID:   &id,
			OldValues:  mapper.ToSeasonPlanDTO(existing),
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("season plan deleted",
		zap.String("season_id", seasonID.String()),
		zap.String("plan_id", id.String()))
	return nil
}

// Approve marks a plan row approved without touching its figures
func (s *PlanService) Approve(ctx context.Context, seasonID, id uuid.UUID) (*domain.SeasonPlanDTO, error) {
	_, actorName := auth.Actor(ctx)

	var plan *domain.SeasonPlan
	err := s.guard.Guarded(ctx, seasonID, domain.EntityKindPlan, domain.OperationApprove, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.planRepo.WithTx(tx)
		existing, err := s.get(ctx, repo, seasonID, id)
		if err != nil {
			return err
		}
		if existing.Approved {
			return newInvalidStateError("season plan", id, "approved", "plan is already approved")
		}

		now := time.Now()
		if err := repo.Approve(ctx, id, actorName, now); err != nil {
			return mapper.FormatError("season plan", "approve", err)
		}
		existing.Approved = true
		existing.ApprovedBy = actorName
		existing.ApprovedAt = &now
		plan = existing

		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionApprove,
			EntityType: domain.EntityKindPlan,
			EntityID:   &id,
			NewValues:  map[string]interface{}{"approved": true, "approvedBy": actorName},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("season plan approved",
		zap.String("season_id", seasonID.String()),
		zap.String("plan_id", id.String()),
		zap.String("approved_by", actorName))
	dto := mapper.ToSeasonPlanDTO(plan)
	return &dto, nil
}

// List returns the plan rows of a season
func (s *PlanService) List(ctx context.Context, seasonID uuid.UUID, filters *repository.PlanFilters) ([]domain.SeasonPlanDTO, error) {
	plans, err := s.planRepo.ListBySeason(ctx, seasonID, filters)
	if err != nil {
		return nil, err
	}
	dtos := make([]domain.SeasonPlanDTO, len(plans))
	for i := range plans {
		dtos[i] = mapper.ToSeasonPlanDTO(&plans[i])
	}
	return dtos, nil
}

func (s *PlanService) get(ctx context.Context, repo *repository.PlanRepository, seasonID, id uuid.UUID) (*domain.SeasonPlan, error) {
	plan, err := repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newNotFoundError("season plan", id)
		}
		return nil, err
	}
	if plan.SeasonID != seasonID {
		return nil, newNotFoundError("season plan", id)
	}
	return plan, nil
}

func validatePlanFigures(sales, turns decimal.Decimal, lySales *decimal.Decimal) error {
	if err := requireNonNegative("plannedSales", sales); err != nil {
		return err
	}
	if err := requireNonNegative("inventoryTurns", turns); err != nil {
		return err
	}
	if lySales != nil {
		return requireNonNegative("lySales", *lySales)
	}
	return nil
}

func roundPtr(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := money(*d)
	return &r
}
