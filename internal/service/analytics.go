package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/mapper"
	"github.com/straye-as/season-planning-api/internal/repository"
)

const (
	defaultPerformerLimit = 5
	recentTransitionLimit = 10
)

// executionTolerance is the share of planned sales within which received
// value counts as on plan
var executionTolerance = decimal.RequireFromString("0.01")

// locationTallies sums the per category and location figures of each
// location. Adjustments have no location and are left out.
func (f *seasonFigures) locationTallies() map[uuid.UUID]*tally {
	out := make(map[uuid.UUID]*tally)
	for k, t := range f.tallies(true) {
		if k.location == uuid.Nil {
			continue
		}
		lt, ok := out[k.location]
		if !ok {
			lt = &tally{}
			out[k.location] = lt
		}
		lt.add(t)
	}
	return out
}

// seasonLocations returns the season's assigned locations plus any location
// that carries OTB or orders without being assigned.
func (s *DashboardService) seasonLocations(ctx context.Context, seasonID uuid.UUID, tallies map[uuid.UUID]*tally) ([]domain.Location, error) {
	locations, err := s.locationRepo.ListForSeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load season locations: %w", err)
	}
	known := make(map[uuid.UUID]struct{}, len(locations))
	for _, l := range locations {
		known[l.ID] = struct{}{}
	}
	var missing []uuid.UUID
	for id := range tallies {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		extra, err := s.locationRepo.GetByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("failed to load locations: %w", err)
		}
		for _, l := range extra {
			locations = append(locations, l)
		}
	}
	return locations, nil
}

// GetClusterSummary totals approved OTB, committed and received spend per
// cluster. Locations without a cluster are grouped under "Unassigned".
func (s *DashboardService) GetClusterSummary(ctx context.Context, seasonID uuid.UUID) (*domain.ClusterSummaryReport, error) {
	figures, err := s.consumption.load(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	byLocation := figures.locationTallies()
	locations, err := s.seasonLocations(ctx, seasonID, byLocation)
	if err != nil {
		return nil, err
	}
	clusters, err := s.clusterRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load clusters: %w", err)
	}
	names := make(map[uuid.UUID]string, len(clusters))
	for _, c := range clusters {
		names[c.ID] = c.Name
	}

	type group struct {
		id        *uuid.UUID
		locations int
		sum       tally
	}
	groups := make(map[uuid.UUID]*group)
	for _, l := range locations {
		key := uuid.Nil
		if l.ClusterID != nil {
			key = *l.ClusterID
		}
		g, ok := groups[key]
		if !ok {
			g = &group{id: l.ClusterID}
			groups[key] = g
		}
		g.locations++
		if t, ok := byLocation[l.ID]; ok {
			g.sum.add(t)
		}
	}

	report := &domain.ClusterSummaryReport{SeasonID: seasonID, Clusters: make([]domain.ClusterSummaryLine, 0, len(groups))}
	for key, g := range groups {
		name := "Unassigned"
		if key != uuid.Nil {
			name = names[key]
		}
		approved := g.sum.approved()
		report.Clusters = append(report.Clusters, domain.ClusterSummaryLine{
			ClusterID:     g.id,
			ClusterName:   name,
			LocationCount: g.locations,
			ApprovedOTB:   approved,
			Committed:     g.sum.committed,
			Received:      g.sum.received,
			Utilization:   percentOf(g.sum.committed, approved),
		})
	}
	sort.Slice(report.Clusters, func(i, j int) bool {
		a, b := report.Clusters[i], report.Clusters[j]
		if (a.ClusterID == nil) != (b.ClusterID == nil) {
			return b.ClusterID == nil
		}
		return a.ClusterName < b.ClusterName
	})
	return report, nil
}

// GetLocationPerformance ranks the season's locations by budget utilization,
// highest first. Locations without budget sort last.
func (s *DashboardService) GetLocationPerformance(ctx context.Context, seasonID uuid.UUID, clusterID *uuid.UUID, limit int) (*domain.LocationPerformanceReport, error) {
	if limit <= 0 {
		limit = defaultPerformerLimit
	}
	figures, err := s.consumption.load(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	byLocation := figures.locationTallies()
	locations, err := s.seasonLocations(ctx, seasonID, byLocation)
	if err != nil {
		return nil, err
	}

	lines := make([]domain.LocationPerformanceLine, 0, len(locations))
	for _, l := range locations {
		if clusterID != nil && (l.ClusterID == nil || *l.ClusterID != *clusterID) {
			continue
		}
		t := byLocation[l.ID]
		if t == nil {
			t = &tally{}
		}
		approved := t.approved()
		lines = append(lines, domain.LocationPerformanceLine{
			LocationID:      l.ID,
			LocationCode:    l.Code,
			LocationName:    l.Name,
			ClusterID:       l.ClusterID,
			ApprovedOTB:     approved,
			Committed:       t.committed,
			Received:        t.received,
			Utilization:     percentOf(t.committed, approved),
			FulfillmentRate: percentOf(t.received, t.committed),
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i].Utilization, lines[j].Utilization
		switch {
		case a == nil && b == nil:
			return lines[i].LocationCode < lines[j].LocationCode
		case a == nil:
			return false
		case b == nil:
			return true
		case !a.Equal(*b):
			return a.GreaterThan(*b)
		}
		return lines[i].LocationCode < lines[j].LocationCode
	})

	n := limit
	if n > len(lines) {
		n = len(lines)
	}
	top := append([]domain.LocationPerformanceLine(nil), lines[:n]...)
	bottom := make([]domain.LocationPerformanceLine, 0, n)
	for i := len(lines) - 1; i >= len(lines)-n; i-- {
		bottom = append(bottom, lines[i])
	}

	return &domain.LocationPerformanceReport{
		SeasonID:  seasonID,
		Locations: lines,
		Top:       top,
		Bottom:    bottom,
	}, nil
}

// GetPriceBandAnalysis averages the season's range intents. Band weights are
// averaged over the intents that plan price bands at all, a band missing from
// such an intent counting as zero.
func (s *DashboardService) GetPriceBandAnalysis(ctx context.Context, seasonID uuid.UUID, categoryID *uuid.UUID) (*domain.PriceBandAnalysis, error) {
	if _, err := s.seasonRepo.GetByID(ctx, seasonID); err != nil {
		if repository.IsNotFound(err) {
			return nil, newNotFoundError("season", seasonID)
		}
		return nil, err
	}
	intents, err := s.intentRepo.ListBySeason(ctx, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load range intents: %w", err)
	}

	analysis := &domain.PriceBandAnalysis{
		SeasonID:       seasonID,
		CategoryID:     categoryID,
		AverageCore:    decimal.Zero,
		AverageFashion: decimal.Zero,
		Bands:          []domain.PriceBandWeight{},
	}
	totalCore, totalFashion := decimal.Zero, decimal.Zero
	bandTotals := make(map[string]int)
	bandCounts := make(map[string]int)
	withMix := 0
	for _, intent := range intents {
		if categoryID != nil && intent.CategoryID != *categoryID {
			continue
		}
		analysis.IntentCount++
		totalCore = totalCore.Add(intent.CorePercent)
		totalFashion = totalFashion.Add(intent.FashionPercent)
		if len(intent.PriceBandMix) == 0 {
			continue
		}
		withMix++
		for band, weight := range intent.PriceBandMix {
			bandTotals[band] += weight
			bandCounts[band]++
		}
	}
	if analysis.IntentCount == 0 {
		return analysis, nil
	}

	n := decimal.NewFromInt(int64(analysis.IntentCount))
	analysis.AverageCore = money(totalCore.Div(n))
	analysis.AverageFashion = money(totalFashion.Div(n))
	if withMix > 0 {
		m := decimal.NewFromInt(int64(withMix))
		for band, total := range bandTotals {
			analysis.Bands = append(analysis.Bands, domain.PriceBandWeight{
				PriceBand:     band,
				AverageWeight: money(decimal.NewFromInt(int64(total)).Div(m)),
				IntentCount:   bandCounts[band],
			})
		}
		sort.Slice(analysis.Bands, func(i, j int) bool { return analysis.Bands[i].PriceBand < analysis.Bands[j].PriceBand })
	}
	return analysis, nil
}

// GetWorkflowStatusSummary counts seasons per workflow status and lists the
// latest transitions across all seasons
func (s *DashboardService) GetWorkflowStatusSummary(ctx context.Context) (*domain.WorkflowStatusSummary, error) {
	counts, err := s.seasonRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count seasons by status: %w", err)
	}
	byStatus := make(map[domain.SeasonStatus]int64, len(counts))
	for _, c := range counts {
		byStatus[c.Status] = c.Count
	}

	summary := &domain.WorkflowStatusSummary{
		ByStatus:          make([]domain.WorkflowStatusCount, 0, len(domain.SeasonWorkflowOrder)),
		RecentTransitions: []domain.RecentTransition{},
	}
	for _, status := range domain.SeasonWorkflowOrder {
		summary.ByStatus = append(summary.ByStatus, domain.WorkflowStatusCount{Status: status, Count: byStatus[status]})
		summary.TotalSeasons += byStatus[status]
	}

	history, err := s.seasonRepo.ListRecentHistory(ctx, recentTransitionLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow history: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(history))
	for _, h := range history {
		ids = append(ids, h.SeasonID)
	}
	seasons, err := s.seasonRepo.GetByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load seasons: %w", err)
	}
	for i := range history {
		h := history[i]
		summary.RecentTransitions = append(summary.RecentTransitions, mapper.ToRecentTransition(&h, seasons[h.SeasonID].Code))
	}
	return summary, nil
}

// GetPlanVsExecution sets planned sales per category against committed and
// received purchase value. Variance is received minus planned.
func (s *DashboardService) GetPlanVsExecution(ctx context.Context, seasonID uuid.UUID) (*domain.PlanExecutionReport, error) {
	figures, err := s.consumption.load(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	plans, err := s.planRepo.ListBySeason(ctx, seasonID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load season plans: %w", err)
	}

	planned := make(map[uuid.UUID]decimal.Decimal)
	for _, p := range plans {
		planned[p.CategoryID] = planned[p.CategoryID].Add(p.PlannedSales)
	}
	spend := make(map[uuid.UUID]*tally)
	for k, t := range figures.tallies(false) {
		spend[k.category] = t
	}

	ids := make([]uuid.UUID, 0, len(planned)+len(spend))
	for id := range planned {
		ids = append(ids, id)
	}
	for id, t := range spend {
		if _, ok := planned[id]; !ok && (t.committed.IsPositive() || t.received.IsPositive()) {
			ids = append(ids, id)
		}
	}
	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := figures.categories[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		extra, err := s.consumption.categoryRepo.GetByIDs(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("failed to load categories: %w", err)
		}
		for id, c := range extra {
			figures.categories[id] = c
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		ni, nj := figures.categoryName(ids[i]), figures.categoryName(ids[j])
		if ni != nj {
			return ni < nj
		}
		return ids[i].String() < ids[j].String()
	})

	report := &domain.PlanExecutionReport{SeasonID: seasonID, Lines: make([]domain.PlanExecutionLine, 0, len(ids))}
	totalPlanned, totalCommitted, totalReceived := decimal.Zero, decimal.Zero, decimal.Zero
	for _, id := range ids {
		committed, received := decimal.Zero, decimal.Zero
		if t, ok := spend[id]; ok {
			committed, received = t.committed, t.received
		}
		line := executionLine(planned[id], committed, received)
		line.CategoryID = id
		line.CategoryName = figures.categoryName(id)
		report.Lines = append(report.Lines, line)

		totalPlanned = totalPlanned.Add(line.PlannedSales)
		totalCommitted = totalCommitted.Add(committed)
		totalReceived = totalReceived.Add(received)
	}
	report.Totals = executionLine(totalPlanned, totalCommitted, totalReceived)
	return report, nil
}

func executionLine(planned, committed, received decimal.Decimal) domain.PlanExecutionLine {
	variance := received.Sub(planned)
	line := domain.PlanExecutionLine{
		PlannedSales:    planned,
		Committed:       committed,
		Received:        received,
		Variance:        variance,
		VariancePercent: percentOf(variance, planned),
	}
	switch {
	case planned.IsZero():
		line.Verdict = domain.VerdictNoPlan
	case variance.Abs().LessThan(planned.Abs().Mul(executionTolerance)):
		line.Verdict = domain.VerdictWithinTolerance
	case variance.IsPositive():
		line.Verdict = domain.VerdictOverSupplied
	default:
		line.Verdict = domain.VerdictUnderSupplied
	}
	return line
}
