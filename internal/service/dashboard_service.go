package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/mapper"
	"github.com/straye-as/season-planning-api/internal/repository"
	"go.uber.org/zap"
)

// DashboardService assembles the season overview and the analytics reports
type DashboardService struct {
	seasonRepo     *repository.SeasonRepository
	locationRepo   *repository.LocationRepository
	clusterRepo    *repository.ClusterRepository
	planRepo       *repository.PlanRepository
	otbRepo        *repository.OTBPlanRepository
	intentRepo     *repository.RangeIntentRepository
	adjustmentRepo *repository.BudgetAdjustmentRepository
	consumption    *ConsumptionService
	logger         *zap.Logger
}

func NewDashboardService(
	seasonRepo *repository.SeasonRepository,
	locationRepo *repository.LocationRepository,
	clusterRepo *repository.ClusterRepository,
	planRepo *repository.PlanRepository,
	otbRepo *repository.OTBPlanRepository,
	intentRepo *repository.RangeIntentRepository,
	adjustmentRepo *repository.BudgetAdjustmentRepository,
	consumption *ConsumptionService,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		seasonRepo:     seasonRepo,
		locationRepo:   locationRepo,
		clusterRepo:    clusterRepo,
		planRepo:       planRepo,
		otbRepo:        otbRepo,
		intentRepo:     intentRepo,
		adjustmentRepo: adjustmentRepo,
		consumption:    consumption,
		logger:         logger,
	}
}

func (s *DashboardService) GetSeasonDashboard(ctx context.Context, seasonID uuid.UUID) (*domain.SeasonDashboardDTO, error) {
	figures, err := s.consumption.load(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	locationCount, err := s.locationRepo.CountForSeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to count season locations: %w", err)
	}
	planCount, err := s.planRepo.CountBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to count season plans: %w", err)
	}
	otbCount, err := s.otbRepo.CountBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to count OTB plans: %w", err)
	}
	pending, err := s.adjustmentRepo.CountPending(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending adjustments: %w", err)
	}
	alerts, err := s.consumption.Alerts(ctx, seasonID, time.Now())
	if err != nil {
		s.logger.Warn("failed to evaluate alerts for dashboard",
			zap.String("season_id", seasonID.String()),
			zap.Error(err))
		alerts = &domain.AlertReport{}
	}

	position := figures.position(domain.GroupByCategory)
	return &domain.SeasonDashboardDTO{
		Season:             mapper.ToSeasonDTO(figures.season),
		Workflow:           mapper.ToWorkflowView(figures.season),
		LocationCount:      locationCount,
		PlanCount:          planCount,
		OTBPlanCount:       otbCount,
		Position:           position.Totals,
		ByCategory:         position.Lines,
		POStatusBreakdown:  statusBreakdown(figures.orders),
		PendingAdjustments: pending,
		AlertCount:         len(alerts.Alerts),
	}, nil
}

// statusBreakdown counts and sums purchase orders per status
func statusBreakdown(orders []domain.PurchaseOrder) []domain.POStatusCount {
	byStatus := make(map[domain.POStatus]*domain.POStatusCount)
	for _, o := range orders {
		c, ok := byStatus[o.Status]
		if !ok {
			c = &domain.POStatusCount{Status: o.Status, Value: decimal.Zero}
			byStatus[o.Status] = c
		}
		c.Count++
		c.Value = c.Value.Add(o.POValue)
	}

	out := make([]domain.POStatusCount, 0, len(byStatus))
	for _, c := range byStatus {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}
