package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/season-planning-api/internal/auth"
	"github.com/straye-as/season-planning-api/internal/config"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/mapper"
	"github.com/straye-as/season-planning-api/internal/metrics"
	"github.com/straye-as/season-planning-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ConsumptionService reports how a season's open-to-buy budget is being used
// and moves budget between categories through approved adjustments.
//
// All figures are aggregated in memory with decimal arithmetic from the
// stored rows, so every report is exact to the cent.
type ConsumptionService struct {
	seasonRepo     *repository.SeasonRepository
	otbRepo        *repository.OTBPlanRepository
	poRepo         *repository.PurchaseOrderRepository
	adjustmentRepo *repository.BudgetAdjustmentRepository
	categoryRepo   *repository.CategoryRepository
	guard          *MutationGuard
	auditSvc       *AuditLogService
	metrics        *metrics.Recorder
	thresholds     config.PlanningConfig
	logger         *zap.Logger
}

// NewConsumptionService creates a new consumption service
func NewConsumptionService(
	seasonRepo *repository.SeasonRepository,
	otbRepo *repository.OTBPlanRepository,
	poRepo *repository.PurchaseOrderRepository,
	adjustmentRepo *repository.BudgetAdjustmentRepository,
	categoryRepo *repository.CategoryRepository,
	guard *MutationGuard,
	auditSvc *AuditLogService,
	recorder *metrics.Recorder,
	thresholds config.PlanningConfig,
	logger *zap.Logger,
) *ConsumptionService {
	return &ConsumptionService{
		seasonRepo:     seasonRepo,
		otbRepo:        otbRepo,
		poRepo:         poRepo,
		adjustmentRepo: adjustmentRepo,
		categoryRepo:   categoryRepo,
		guard:          guard,
		auditSvc:       auditSvc,
		metrics:        recorder,
		thresholds:     thresholds,
		logger:         logger,
	}
}

// seasonFigures is everything the reports aggregate over
type seasonFigures struct {
	season      *domain.Season
	otbPlans    []domain.OTBPlan
	orders      []domain.PurchaseOrder
	adjustments []domain.BudgetAdjustment
	categories  map[uuid.UUID]domain.Category
}

func (s *ConsumptionService) load(ctx context.Context, seasonID uuid.UUID) (*seasonFigures, error) {
	season, err := s.seasonRepo.GetByID(ctx, seasonID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newNotFoundError("season", seasonID)
		}
		return nil, err
	}

	otbPlans, err := s.otbRepo.ListBySeason(ctx, seasonID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load OTB plans: %w", err)
	}
	orders, err := s.poRepo.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase orders: %w", err)
	}
	approved := domain.AdjustmentStatusApproved
	adjustments, err := s.adjustmentRepo.ListBySeason(ctx, seasonID, &approved)
	if err != nil {
		return nil, fmt.Errorf("failed to load budget adjustments: %w", err)
	}

	ids := make(map[uuid.UUID]struct{})
	for _, p := range otbPlans {
		ids[p.CategoryID] = struct{}{}
	}
	for _, o := range orders {
		ids[o.CategoryID] = struct{}{}
	}
	for _, a := range adjustments {
		ids[a.FromCategoryID] = struct{}{}
		ids[a.ToCategoryID] = struct{}{}
	}
	list := make([]uuid.UUID, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	categories := map[uuid.UUID]domain.Category{}
	if len(list) > 0 {
		categories, err = s.categoryRepo.GetByIDs(ctx, list)
		if err != nil {
			return nil, fmt.Errorf("failed to load categories: %w", err)
		}
	}

	return &seasonFigures{
		season:      season,
		otbPlans:    otbPlans,
		orders:      orders,
		adjustments: adjustments,
		categories:  categories,
	}, nil
}

// tally accumulates the money columns of one report line
type tally struct {
	planned   decimal.Decimal
	adjIn     decimal.Decimal
	adjOut    decimal.Decimal
	committed decimal.Decimal
	received  decimal.Decimal
}

func (t *tally) approved() decimal.Decimal {
	return t.planned.Add(t.adjIn).Sub(t.adjOut)
}

func (t *tally) add(o *tally) {
	t.planned = t.planned.Add(o.planned)
	t.adjIn = t.adjIn.Add(o.adjIn)
	t.adjOut = t.adjOut.Add(o.adjOut)
	t.committed = t.committed.Add(o.committed)
	t.received = t.received.Add(o.received)
}

func (t *tally) line(categoryID uuid.UUID, categoryName string, locationID *uuid.UUID) domain.BudgetPositionLine {
	approved := t.approved()
	return domain.BudgetPositionLine{
		CategoryID:        categoryID,
		CategoryName:      categoryName,
		LocationID:        locationID,
		PlannedOTB:        t.planned,
		AdjustmentIn:      t.adjIn,
		AdjustmentOut:     t.adjOut,
		ApprovedOTB:       approved,
		Committed:         t.committed,
		Received:          t.received,
		Remaining:         approved.Sub(t.committed),
		BudgetUtilization: percentOf(t.committed, approved),
		FulfillmentRate:   percentOf(t.received, t.committed),
	}
}

type positionKey struct {
	category uuid.UUID
	location uuid.UUID
}

// tallies groups the season's figures. With byLocation unset every key has a
// nil location. Approved adjustments move budget between categories, not
// locations, so with byLocation set they land on a per-category line with a
// nil location.
func (f *seasonFigures) tallies(byLocation bool) map[positionKey]*tally {
	out := make(map[positionKey]*tally)
	at := func(category, location uuid.UUID) *tally {
		if !byLocation {
			location = uuid.Nil
		}
		k := positionKey{category: category, location: location}
		t, ok := out[k]
		if !ok {
			t = &tally{}
			out[k] = t
		}
		return t
	}

	for _, p := range f.otbPlans {
		t := at(p.CategoryID, p.LocationID)
		t.planned = t.planned.Add(p.ApprovedSpendLimit)
	}
	for _, a := range f.adjustments {
		to := at(a.ToCategoryID, uuid.Nil)
		to.adjIn = to.adjIn.Add(a.Amount)
		from := at(a.FromCategoryID, uuid.Nil)
		from.adjOut = from.adjOut.Add(a.Amount)
	}
	for i := range f.orders {
		o := &f.orders[i]
		if !o.Status.Commits() {
			continue
		}
		t := at(o.CategoryID, o.LocationID)
		t.committed = t.committed.Add(o.POValue)
		t.received = t.received.Add(mapper.ReceivedValue(o))
	}
	return out
}

func (f *seasonFigures) categoryName(id uuid.UUID) string {
	if c, ok := f.categories[id]; ok {
		return c.Name
	}
	return ""
}

// Position reports approved budget, committed and received spend per category,
// or per category and location. Approved adjustments move budget between
// categories only, so under category_location they are reported on an extra
// line per category with a nil location; summing a category's lines still
// gives its approved OTB.
func (s *ConsumptionService) Position(ctx context.Context, seasonID uuid.UUID, groupBy domain.PositionGrouping) (*domain.BudgetPositionReport, error) {
	if groupBy == "" {
		groupBy = domain.GroupByCategory
	}
	if groupBy != domain.GroupByCategory && groupBy != domain.GroupByCategoryLocation {
		return nil, newValidationError("groupBy", "must be category or category_location")
	}

	figures, err := s.load(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	return figures.position(groupBy), nil
}

func (f *seasonFigures) position(groupBy domain.PositionGrouping) *domain.BudgetPositionReport {
	byLocation := groupBy == domain.GroupByCategoryLocation
	tallies := f.tallies(byLocation)

	keys := make([]positionKey, 0, len(tallies))
	for k := range tallies {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, nj := f.categoryName(keys[i].category), f.categoryName(keys[j].category)
		if ni != nj {
			return ni < nj
		}
		if keys[i].category != keys[j].category {
			return keys[i].category.String() < keys[j].category.String()
		}
		return keys[i].location.String() < keys[j].location.String()
	})

	var total tally
	lines := make([]domain.BudgetPositionLine, 0, len(keys))
	for _, k := range keys {
		t := tallies[k]
		total.add(t)

		var location *uuid.UUID
		if byLocation && k.location != uuid.Nil {
			loc := k.location
			location = &loc
		}
		lines = append(lines, t.line(k.category, f.categoryName(k.category), location))
	}

	return &domain.BudgetPositionReport{
		SeasonID:  f.season.ID,
		GroupBy:   groupBy,
		Lines:     lines,
		Totals:    total.line(uuid.Nil, "", nil),
		Generated: time.Now().UTC().Format(time.RFC3339),
	}
}

// Consumption reports the same figures per month. Budget is placed in the OTB
// month, spend and receipts in the order month of the PO. Adjustments have no
// month and are left out.
func (s *ConsumptionService) Consumption(ctx context.Context, seasonID uuid.UUID) (*domain.ConsumptionReport, error) {
	figures, err := s.load(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	months := make(map[time.Time]*tally)
	at := func(t time.Time) *tally {
		m := monthStart(t)
		if _, ok := months[m]; !ok {
			months[m] = &tally{}
		}
		return months[m]
	}
	for _, p := range figures.otbPlans {
		t := at(p.Month)
		t.planned = t.planned.Add(p.ApprovedSpendLimit)
	}
	for i := range figures.orders {
		o := &figures.orders[i]
		if !o.Status.Commits() {
			continue
		}
		t := at(o.OrderDate)
		t.committed = t.committed.Add(o.POValue)
		t.received = t.received.Add(mapper.ReceivedValue(o))
	}

	keys := make([]time.Time, 0, len(months))
	for m := range months {
		keys = append(keys, m)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	report := &domain.ConsumptionReport{SeasonID: seasonID, Months: make([]domain.ConsumptionMonth, 0, len(keys))}
	for _, m := range keys {
		t := months[m]
		approved := t.approved()
		report.Months = append(report.Months, domain.ConsumptionMonth{
			Month:             mapper.FormatDate(m),
			ApprovedOTB:       approved,
			Committed:         t.committed,
			Received:          t.received,
			Remaining:         approved.Sub(t.committed),
			BudgetUtilization: percentOf(t.committed, approved),
			FulfillmentRate:   percentOf(t.received, t.committed),
		})
	}
	return report, nil
}

// seasonMonths returns the number of calendar months the season touches and
// how many of them have started by asOf, clamped to [1, total]
func seasonMonths(season *domain.Season, asOf time.Time) (total, elapsed int) {
	total = monthsBetween(season.StartDate, season.EndDate) + 1
	if total < 1 {
		total = 1
	}
	elapsed = monthsBetween(season.StartDate, asOf) + 1
	if elapsed < 1 {
		elapsed = 1
	}
	if elapsed > total {
		elapsed = total
	}
	return total, elapsed
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

// Forecast projects end-of-season spend per category from the average
// monthly commitment so far.
func (s *ConsumptionService) Forecast(ctx context.Context, seasonID uuid.UUID, asOf time.Time) (*domain.ForecastReport, error) {
	figures, err := s.load(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	totalMonths, elapsed := seasonMonths(figures.season, asOf)
	remaining := totalMonths - elapsed

	// spend ordered after asOf is not known yet
	var known []domain.PurchaseOrder
	for _, o := range figures.orders {
		if !o.OrderDate.After(asOf) {
			known = append(known, o)
		}
	}
	view := *figures
	view.orders = known

	report := &domain.ForecastReport{
		SeasonID:   seasonID,
		AsOf:       mapper.FormatDate(asOf),
		Categories: []domain.CategoryForecast{},
	}
	for _, line := range view.position(domain.GroupByCategory).Lines {
		runRate := line.Committed.Div(decimal.NewFromInt(int64(elapsed))).Round(2)
		projected := line.Committed.Add(runRate.Mul(decimal.NewFromInt(int64(remaining))))
		utilization := percentOf(projected, line.ApprovedOTB)

		exceeds := projected.IsPositive() && projected.GreaterThan(line.ApprovedOTB)

		report.Categories = append(report.Categories, domain.CategoryForecast{
			CategoryID:           line.CategoryID,
			CategoryName:         line.CategoryName,
			ApprovedOTB:          line.ApprovedOTB,
			Committed:            line.Committed,
			MonthlyRunRate:       runRate,
			ElapsedMonths:        elapsed,
			RemainingMonths:      remaining,
			ProjectedCommitted:   projected,
			ProjectedUtilization: utilization,
			ExceedsBudget:        exceeds,
			Trend:                s.trend(runRate, line.ApprovedOTB, totalMonths),
		})
	}
	return report, nil
}

// trend compares the run-rate with an even monthly share of the budget
func (s *ConsumptionService) trend(runRate, approved decimal.Decimal, totalMonths int) domain.ForecastTrend {
	monthlyPlan := approved.Div(decimal.NewFromInt(int64(totalMonths)))
	if !monthlyPlan.IsPositive() {
		if runRate.IsPositive() {
			return domain.TrendIncreasing
		}
		return domain.TrendStable
	}

	increasing := monthlyPlan.Mul(decimal.NewFromFloat(s.thresholds.TrendIncreasingPercent)).Div(hundred)
	decreasing := monthlyPlan.Mul(decimal.NewFromFloat(s.thresholds.TrendDecreasingPercent)).Div(hundred)
	switch {
	case runRate.GreaterThan(increasing):
		return domain.TrendIncreasing
	case runRate.LessThan(decreasing):
		return domain.TrendDecreasing
	}
	return domain.TrendStable
}

// Alerts evaluates the per-category position against the planning thresholds
func (s *ConsumptionService) Alerts(ctx context.Context, seasonID uuid.UUID, asOf time.Time) (*domain.AlertReport, error) {
	figures, err := s.load(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	highUtilization := decimal.NewFromFloat(s.thresholds.HighUtilizationPercent)
	fulfillmentLag := decimal.NewFromFloat(s.thresholds.FulfillmentLagPercent)
	pastMidpoint := asOf.After(figures.season.Midpoint())

	alerts := []domain.BudgetAlert{}
	for _, line := range figures.position(domain.GroupByCategory).Lines {
		name := line.CategoryName
		if name == "" {
			name = line.CategoryID.String()
		}

		if line.Committed.GreaterThan(line.ApprovedOTB) {
			alerts = append(alerts, domain.BudgetAlert{
				Type:           domain.AlertOTBExceeded,
				Severity:       domain.SeverityCritical,
				CategoryID:     line.CategoryID,
				CategoryName:   line.CategoryName,
				Message:        fmt.Sprintf("OTB for %s exceeded: committed %s against approved %s", name, line.Committed.StringFixed(2), line.ApprovedOTB.StringFixed(2)),
				CurrentValue:   line.Committed,
				ThresholdValue: line.ApprovedOTB,
			})
		} else if line.BudgetUtilization != nil && line.BudgetUtilization.GreaterThan(highUtilization) {
			alerts = append(alerts, domain.BudgetAlert{
				Type:           domain.AlertHighUtilization,
				Severity:       domain.SeverityWarning,
				CategoryID:     line.CategoryID,
				CategoryName:   line.CategoryName,
				Message:        fmt.Sprintf("OTB for %s is %s%% used", name, line.BudgetUtilization.StringFixed(2)),
				CurrentValue:   *line.BudgetUtilization,
				ThresholdValue: highUtilization,
			})
		}

		if pastMidpoint && line.FulfillmentRate != nil && line.FulfillmentRate.LessThan(fulfillmentLag) {
			alerts = append(alerts, domain.BudgetAlert{
				Type:           domain.AlertFulfillmentLag,
				Severity:       domain.SeverityWarning,
				CategoryID:     line.CategoryID,
				CategoryName:   line.CategoryName,
				Message:        fmt.Sprintf("only %s%% of committed spend for %s has been received", line.FulfillmentRate.StringFixed(2), name),
				CurrentValue:   *line.FulfillmentRate,
				ThresholdValue: fulfillmentLag,
			})
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity == domain.SeverityCritical && alerts[j].Severity != domain.SeverityCritical
	})

	return &domain.AlertReport{
		SeasonID: seasonID,
		AsOf:     mapper.FormatDate(asOf),
		Alerts:   alerts,
	}, nil
}

// ProposeAdjustment creates a pending transfer of budget between two categories
func (s *ConsumptionService) ProposeAdjustment(ctx context.Context, seasonID uuid.UUID, req *domain.ProposeAdjustmentRequest) (*domain.BudgetAdjustmentDTO, error) {
	if err := requirePositive("amount", req.Amount); err != nil {
		return nil, err
	}
	if req.FromCategoryID == req.ToCategoryID {
		return nil, newValidationError("toCategoryId", "must differ from fromCategoryId")
	}
	if err := checkCategories(ctx, s.categoryRepo, req.FromCategoryID, req.ToCategoryID); err != nil {
		return nil, err
	}

	_, actorName := auth.Actor(ctx)
	adj := &domain.BudgetAdjustment{
		SeasonID:       seasonID,
		FromCategoryID: req.FromCategoryID,
		ToCategoryID:   req.ToCategoryID,
		Amount:         money(req.Amount),
		Reason:         req.Reason,
		Status:         domain.AdjustmentStatusPending,
		CreatedBy:      actorName,
	}

	err := s.guard.Guarded(ctx, seasonID, domain.EntityKindBudgetAdjustment, domain.OperationCreate, func(tx *gorm.DB, season *domain.Season) error {
		if err := s.adjustmentRepo.WithTx(tx).Create(ctx, adj); err != nil {
			return mapper.FormatError("budget adjustment", "create", err)
		}
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionCreate,
			EntityType: domain.EntityKindBudgetAdjustment,
			EntityID:   &adj.ID,
			NewValues:  mapper.ToBudgetAdjustmentDTO(adj),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Adjustment("proposed")
	s.logger.Info("budget adjustment proposed",
		zap.String("season_id", seasonID.String()),
		zap.String("adjustment_id", adj.ID.String()),
		zap.String("amount", adj.Amount.StringFixed(2)))
	dto := mapper.ToBudgetAdjustmentDTO(adj)
	return &dto, nil
}

// ApproveAdjustment approves a pending adjustment. Only one of any number of
// approvals or rejections can succeed; the others get an InvalidStateError.
func (s *ConsumptionService) ApproveAdjustment(ctx context.Context, seasonID, id uuid.UUID) (*domain.BudgetAdjustmentDTO, error) {
	_, approver := auth.Actor(ctx)
	now := time.Now()

	adj, err := s.decide(ctx, seasonID, id, domain.AuditActionApprove, func(repo *repository.BudgetAdjustmentRepository) (bool, error) {
		return repo.Approve(ctx, id, approver, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Adjustment("approved")
	s.logger.Info("budget adjustment approved",
		zap.String("season_id", seasonID.String()),
		zap.String("adjustment_id", id.String()),
		zap.String("approved_by", approver))
	dto := mapper.ToBudgetAdjustmentDTO(adj)
	return &dto, nil
}

// RejectAdjustment rejects a pending adjustment with a reason
func (s *ConsumptionService) RejectAdjustment(ctx context.Context, seasonID, id uuid.UUID, reason string) (*domain.BudgetAdjustmentDTO, error) {
	if reason == "" {
		return nil, newValidationError("reason", "is required")
	}
	_, rejecter := auth.Actor(ctx)
	now := time.Now()

	adj, err := s.decide(ctx, seasonID, id, domain.AuditActionReject, func(repo *repository.BudgetAdjustmentRepository) (bool, error) {
		return repo.Reject(ctx, id, rejecter, reason, now)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Adjustment("rejected")
	s.logger.Info("budget adjustment rejected",
		zap.String("season_id", seasonID.String()),
		zap.String("adjustment_id", id.String()),
		zap.String("rejected_by", rejecter))
	dto := mapper.ToBudgetAdjustmentDTO(adj)
	return &dto, nil
}

// decide runs a pending-only conditional update and reloads the adjustment
func (s *ConsumptionService) decide(
	ctx context.Context,
	seasonID, id uuid.UUID,
	action domain.AuditAction,
	update func(repo *repository.BudgetAdjustmentRepository) (bool, error),
) (*domain.BudgetAdjustment, error) {
	var adj *domain.BudgetAdjustment
	err := s.guard.Guarded(ctx, seasonID, domain.EntityKindBudgetAdjustment, domain.OperationApprove, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.adjustmentRepo.WithTx(tx)
		existing, err := s.getAdjustment(ctx, repo, seasonID, id)
		if err != nil {
			return err
		}

		ok, err := update(repo)
		if err != nil {
			return mapper.FormatError("budget adjustment", string(action), err)
		}
		if !ok {
			latest, err := s.getAdjustment(ctx, repo, seasonID, id)
			if err != nil {
				return err
			}
			return newInvalidStateError("budget adjustment", id, string(latest.Status), "only pending adjustments can be decided")
		}

		adj, err = s.getAdjustment(ctx, repo, seasonID, id)
		if err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     action,
			EntityType: domain.EntityKindBudgetAdjustment,
			EntityID:   &id,
			OldValues:  map[string]interface{}{"status": existing.Status},
			NewValues:  mapper.ToBudgetAdjustmentDTO(adj),
		})
	})
	if err != nil {
		return nil, err
	}
	return adj, nil
}

// ListAdjustments returns a season's adjustments, optionally by status
func (s *ConsumptionService) ListAdjustments(ctx context.Context, seasonID uuid.UUID, status *domain.AdjustmentStatus) ([]domain.BudgetAdjustmentDTO, error) {
	adjustments, err := s.adjustmentRepo.ListBySeason(ctx, seasonID, status)
	if err != nil {
		return nil, err
	}
	dtos := make([]domain.BudgetAdjustmentDTO, len(adjustments))
	for i := range adjustments {
		dtos[i] = mapper.ToBudgetAdjustmentDTO(&adjustments[i])
	}
	return dtos, nil
}

// GetAdjustment returns one adjustment of the season
func (s *ConsumptionService) GetAdjustment(ctx context.Context, seasonID, id uuid.UUID) (*domain.BudgetAdjustmentDTO, error) {
	adj, err := s.getAdjustment(ctx, s.adjustmentRepo, seasonID, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToBudgetAdjustmentDTO(adj)
	return &dto, nil
}

func (s *ConsumptionService) getAdjustment(ctx context.Context, repo *repository.BudgetAdjustmentRepository, seasonID, id uuid.UUID) (*domain.BudgetAdjustment, error) {
	adj, err := repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newNotFoundError("budget adjustment", id)
		}
		return nil, err
	}
	if adj.SeasonID != seasonID {
		return nil, newNotFoundError("budget adjustment", id)
	}
	return adj, nil
}
