package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/service"
	"github.com/straye-as/season-planning-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// clusterFixture spreads one category over four stores:
//
//	north-a (North): OTB 1000, committed  900, received 450
//	north-b (North): OTB 2000, committed  500
//	south-c (South): OTB 1000, committed 1200
//	loose-d:         no OTB, no orders, no cluster
type clusterFixture struct {
	env    *testEnv
	season *domain.Season
	north  *domain.Cluster
	south  *domain.Cluster
	a      *domain.Location
	b      *domain.Location
	c      *domain.Location
	d      *domain.Location
}

func clusteredLocation(t *testing.T, db *gorm.DB, seasonID uuid.UUID, name string, cluster *domain.Cluster) *domain.Location {
	t.Helper()
	location := testutil.CreateTestLocation(t, db, name)
	if cluster != nil {
		require.NoError(t, db.Model(location).Update("cluster_id", cluster.ID).Error)
		location.ClusterID = &cluster.ID
	}
	testutil.AssignTestLocation(t, db, seasonID, location.ID)
	return location
}

func newClusterFixture(t *testing.T) *clusterFixture {
	env := newTestEnv(t)
	db := env.db
	month := testutil.Date(2025, time.March, 1)

	season := testutil.CreateTestSeason(t, db, domain.SeasonStatusRangeUploaded)
	north := testutil.CreateTestCluster(t, db, "North")
	south := testutil.CreateTestCluster(t, db, "South")
	knit := testutil.CreateTestCategory(t, db, "Knitwear")

	a := clusteredLocation(t, db, season.ID, "north-a", north)
	b := clusteredLocation(t, db, season.ID, "north-b", north)
	c := clusteredLocation(t, db, season.ID, "south-c", south)
	d := clusteredLocation(t, db, season.ID, "loose-d", nil)

	testutil.CreateTestOTBPlan(t, db, season.ID, a.ID, knit.ID, month, "1000")
	testutil.CreateTestOTBPlan(t, db, season.ID, b.ID, knit.ID, month, "2000")
	testutil.CreateTestOTBPlan(t, db, season.ID, c.ID, knit.ID, month, "1000")

	po := testutil.CreateTestPurchaseOrder(t, db, season.ID, a.ID, knit.ID, month, "900")
	testutil.CreateTestGRN(t, db, po.ID, month, "450")
	testutil.CreateTestPurchaseOrder(t, db, season.ID, b.ID, knit.ID, month, "500")
	testutil.CreateTestPurchaseOrder(t, db, season.ID, c.ID, knit.ID, month, "1200")

	return &clusterFixture{env: env, season: season, north: north, south: south, a: a, b: b, c: c, d: d}
}

func TestDashboardService_ClusterSummary(t *testing.T) {
	f := newClusterFixture(t)

	report, err := f.env.dashboard.GetClusterSummary(plannerContext(), f.season.ID)
	require.NoError(t, err)
	require.Len(t, report.Clusters, 3)

	north, south, unassigned := report.Clusters[0], report.Clusters[1], report.Clusters[2]

	assert.Equal(t, "North", north.ClusterName)
	assert.Equal(t, 2, north.LocationCount)
	assertMoney(t, "3000", north.ApprovedOTB, "north approved")
	assertMoney(t, "1400", north.Committed, "north committed")
	assertMoney(t, "450", north.Received, "north received")
	require.NotNil(t, north.Utilization)
	assertMoney(t, "46.67", *north.Utilization, "north utilization")

	assert.Equal(t, "South", south.ClusterName)
	require.NotNil(t, south.Utilization)
	assertMoney(t, "120", *south.Utilization, "south utilization")

	assert.Nil(t, unassigned.ClusterID)
	assert.Equal(t, "Unassigned", unassigned.ClusterName)
	assert.Equal(t, 1, unassigned.LocationCount)
	assert.Nil(t, unassigned.Utilization)

	t.Run("unknown season", func(t *testing.T) {
		_, err := f.env.dashboard.GetClusterSummary(plannerContext(), uuid.New())
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestDashboardService_LocationPerformance(t *testing.T) {
	f := newClusterFixture(t)
	ctx := plannerContext()

	t.Run("ranks by utilization with unbudgeted stores last", func(t *testing.T) {
		report, err := f.env.dashboard.GetLocationPerformance(ctx, f.season.ID, nil, 2)
		require.NoError(t, err)

		require.Len(t, report.Locations, 4)
		order := []uuid.UUID{report.Locations[0].LocationID, report.Locations[1].LocationID,
			report.Locations[2].LocationID, report.Locations[3].LocationID}
		assert.Equal(t, []uuid.UUID{f.c.ID, f.a.ID, f.b.ID, f.d.ID}, order)
		assert.Nil(t, report.Locations[3].Utilization)

		require.Len(t, report.Top, 2)
		assert.Equal(t, f.c.ID, report.Top[0].LocationID)
		assert.Equal(t, f.a.ID, report.Top[1].LocationID)

		require.Len(t, report.Bottom, 2)
		assert.Equal(t, f.d.ID, report.Bottom[0].LocationID)
		assert.Equal(t, f.b.ID, report.Bottom[1].LocationID)

		a := report.Locations[1]
		require.NotNil(t, a.FulfillmentRate)
		assertMoney(t, "50", *a.FulfillmentRate, "north-a fulfillment")
	})

	t.Run("limit larger than the season", func(t *testing.T) {
		report, err := f.env.dashboard.GetLocationPerformance(ctx, f.season.ID, nil, 10)
		require.NoError(t, err)
		assert.Len(t, report.Top, 4)
		assert.Len(t, report.Bottom, 4)
	})

	t.Run("filtered to one cluster", func(t *testing.T) {
		report, err := f.env.dashboard.GetLocationPerformance(ctx, f.season.ID, &f.north.ID, 0)
		require.NoError(t, err)
		require.Len(t, report.Locations, 2)
		assert.Equal(t, f.a.ID, report.Locations[0].LocationID)
		assert.Equal(t, f.b.ID, report.Locations[1].LocationID)
	})
}

func TestDashboardService_PriceBandAnalysis(t *testing.T) {
	env := newTestEnv(t)
	ctx := plannerContext()
	season := testutil.CreateTestSeason(t, env.db, domain.SeasonStatusOTBUploaded)
	knit := testutil.CreateTestCategory(t, env.db, "Knitwear")
	denim := testutil.CreateTestCategory(t, env.db, "Denim")
	basics := testutil.CreateTestCategory(t, env.db, "Basics")

	intents := []domain.RangeIntent{
		{SeasonID: season.ID, CategoryID: knit.ID, CorePercent: testutil.Money(t, "60"), FashionPercent: testutil.Money(t, "40"),
			PriceBandMix: domain.PriceBandMix{"low": 30, "mid": 70}},
		{SeasonID: season.ID, CategoryID: denim.ID, CorePercent: testutil.Money(t, "50"), FashionPercent: testutil.Money(t, "50"),
			PriceBandMix: domain.PriceBandMix{"mid": 50, "high": 50}},
		{SeasonID: season.ID, CategoryID: basics.ID, CorePercent: testutil.Money(t, "70"), FashionPercent: testutil.Money(t, "30"),
			PriceBandMix: domain.PriceBandMix{}},
	}
	for i := range intents {
		require.NoError(t, env.db.Create(&intents[i]).Error)
	}

	t.Run("whole season", func(t *testing.T) {
		analysis, err := env.dashboard.GetPriceBandAnalysis(ctx, season.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, analysis.IntentCount)
		assertMoney(t, "60", analysis.AverageCore, "core")
		assertMoney(t, "40", analysis.AverageFashion, "fashion")

		require.Len(t, analysis.Bands, 3)
		high, low, mid := analysis.Bands[0], analysis.Bands[1], analysis.Bands[2]
		assert.Equal(t, "high", high.PriceBand)
		assertMoney(t, "25", high.AverageWeight, "high")
		assert.Equal(t, "low", low.PriceBand)
		assertMoney(t, "15", low.AverageWeight, "low")
		assert.Equal(t, "mid", mid.PriceBand)
		assertMoney(t, "60", mid.AverageWeight, "mid")
		assert.Equal(t, 2, mid.IntentCount)
	})

	t.Run("one category", func(t *testing.T) {
		analysis, err := env.dashboard.GetPriceBandAnalysis(ctx, season.ID, &basics.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, analysis.IntentCount)
		assertMoney(t, "70", analysis.AverageCore, "core")
		assert.Empty(t, analysis.Bands)
	})

	t.Run("season without intents", func(t *testing.T) {
		empty := testutil.CreateTestSeason(t, env.db, domain.SeasonStatusOTBUploaded)
		analysis, err := env.dashboard.GetPriceBandAnalysis(ctx, empty.ID, nil)
		require.NoError(t, err)
		assert.Zero(t, analysis.IntentCount)
		assert.True(t, analysis.AverageCore.IsZero())
	})
}

func TestDashboardService_WorkflowStatusSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := plannerContext()

	moving := testutil.CreateTestSeason(t, env.db, domain.SeasonStatusCreated)
	testutil.CreateTestSeason(t, env.db, domain.SeasonStatusCreated)
	testutil.CreateTestSeason(t, env.db, domain.SeasonStatusLocked)
	_, err := env.workflow.Transition(ctx, moving.ID, domain.SeasonStatusLocationsDefined)
	require.NoError(t, err)

	summary, err := env.dashboard.GetWorkflowStatusSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.TotalSeasons)

	require.Len(t, summary.ByStatus, len(domain.SeasonWorkflowOrder))
	counts := make(map[domain.SeasonStatus]int64)
	for _, c := range summary.ByStatus {
		counts[c.Status] = c.Count
	}
	assert.Equal(t, int64(1), counts[domain.SeasonStatusCreated])
	assert.Equal(t, int64(1), counts[domain.SeasonStatusLocationsDefined])
	assert.Equal(t, int64(1), counts[domain.SeasonStatusLocked])
	assert.Zero(t, counts[domain.SeasonStatusOTBUploaded])

	require.Len(t, summary.RecentTransitions, 1)
	recent := summary.RecentTransitions[0]
	assert.Equal(t, moving.ID, recent.SeasonID)
	assert.Equal(t, moving.Code, recent.SeasonCode)
	assert.Equal(t, domain.SeasonStatusCreated, recent.FromStatus)
	assert.Equal(t, domain.SeasonStatusLocationsDefined, recent.ToStatus)
	assert.Equal(t, "Test Planner", recent.ChangedByName)
}

func TestDashboardService_PlanVsExecution(t *testing.T) {
	env := newTestEnv(t)
	db := env.db
	ctx := plannerContext()
	month := testutil.Date(2025, time.April, 1)

	season := testutil.CreateTestSeason(t, db, domain.SeasonStatusRangeUploaded)
	oslo := testutil.CreateTestLocation(t, db, "Oslo")
	bergen := testutil.CreateTestLocation(t, db, "Bergen")
	knit := testutil.CreateTestCategory(t, db, "Knit")
	shoes := testutil.CreateTestCategory(t, db, "Shoes")
	hats := testutil.CreateTestCategory(t, db, "Hats")
	bags := testutil.CreateTestCategory(t, db, "Bags")

	plan := func(locationID, categoryID uuid.UUID, sales string) {
		require.NoError(t, db.Create(&domain.SeasonPlan{
			SeasonID:       season.ID,
			LocationID:     locationID,
			CategoryID:     categoryID,
			PlannedSales:   testutil.Money(t, sales),
			PlannedMargin:  testutil.Money(t, "40"),
			InventoryTurns: testutil.Money(t, "3"),
		}).Error)
	}
	order := func(categoryID uuid.UUID, value, received string) {
		po := testutil.CreateTestPurchaseOrder(t, db, season.ID, oslo.ID, categoryID, month, value)
		testutil.CreateTestGRN(t, db, po.ID, month, received)
	}

	plan(oslo.ID, knit.ID, "600")
	plan(bergen.ID, knit.ID, "400")
	order(knit.ID, "1000", "995")

	plan(oslo.ID, shoes.ID, "2000")
	order(shoes.ID, "1500", "1500")

	plan(oslo.ID, hats.ID, "100")
	order(hats.ID, "200", "150")

	order(bags.ID, "300", "100")

	report, err := env.dashboard.GetPlanVsExecution(ctx, season.ID)
	require.NoError(t, err)
	require.Len(t, report.Lines, 4)

	byName := make(map[string]domain.PlanExecutionLine, len(report.Lines))
	names := make([]string, 0, len(report.Lines))
	for _, line := range report.Lines {
		byName[line.CategoryName] = line
		names = append(names, line.CategoryName)
	}
	assert.Equal(t, []string{"Bags", "Hats", "Knit", "Shoes"}, names)

	k := byName["Knit"]
	assertMoney(t, "1000", k.PlannedSales, "knit planned")
	assertMoney(t, "-5", k.Variance, "knit variance")
	assert.Equal(t, domain.VerdictWithinTolerance, k.Verdict)

	s := byName["Shoes"]
	require.NotNil(t, s.VariancePercent)
	assertMoney(t, "-25", *s.VariancePercent, "shoes variance percent")
	assert.Equal(t, domain.VerdictUnderSupplied, s.Verdict)

	h := byName["Hats"]
	assertMoney(t, "50", h.Variance, "hats variance")
	assert.Equal(t, domain.VerdictOverSupplied, h.Verdict)

	b := byName["Bags"]
	assert.True(t, b.PlannedSales.IsZero())
	assert.Nil(t, b.VariancePercent)
	assert.Equal(t, domain.VerdictNoPlan, b.Verdict)

	assertMoney(t, "3100", report.Totals.PlannedSales, "total planned")
	assertMoney(t, "2745", report.Totals.Received, "total received")
	assertMoney(t, "3000", report.Totals.Committed, "total committed")
	require.NotNil(t, report.Totals.VariancePercent)
	assertMoney(t, "-11.45", *report.Totals.VariancePercent, "total variance percent")
	assert.Equal(t, domain.VerdictUnderSupplied, report.Totals.Verdict)
}
