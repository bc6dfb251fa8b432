package service_test

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/service"
	"github.com/straye-as/season-planning-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// budgetFixture is a range_uploaded season with two categories:
//
//	Accessories: OTB 10000, committed 9500 (received 2000), plus a cancelled 3000
//	Bags:        OTB  5000, committed 6000 ordered in April, nothing received
type budgetFixture struct {
	env         *testEnv
	season      *domain.Season
	location    *domain.Location
	accessories *domain.Category
	bags        *domain.Category
}

func newBudgetFixture(t *testing.T) *budgetFixture {
	env := newTestEnv(t)
	db := env.db

	season := testutil.CreateTestSeason(t, db, domain.SeasonStatusRangeUploaded)
	location := testutil.CreateTestLocation(t, db, "Oslo Storo")
	testutil.AssignTestLocation(t, db, season.ID, location.ID)
	accessories := testutil.CreateTestCategory(t, db, "Accessories")
	bags := testutil.CreateTestCategory(t, db, "Bags")

	testutil.CreateTestOTBPlan(t, db, season.ID, location.ID, accessories.ID, testutil.Date(2025, time.January, 1), "6000")
	testutil.CreateTestOTBPlan(t, db, season.ID, location.ID, accessories.ID, testutil.Date(2025, time.February, 1), "4000")
	testutil.CreateTestOTBPlan(t, db, season.ID, location.ID, bags.ID, testutil.Date(2025, time.April, 1), "5000")

	first := testutil.CreateTestPurchaseOrder(t, db, season.ID, location.ID, accessories.ID, testutil.Date(2025, time.January, 20), "4500")
	testutil.CreateTestGRN(t, db, first.ID, testutil.Date(2025, time.February, 1), "2000")
	testutil.CreateTestPurchaseOrder(t, db, season.ID, location.ID, accessories.ID, testutil.Date(2025, time.February, 5), "5000")

	cancelled := testutil.CreateTestPurchaseOrder(t, db, season.ID, location.ID, accessories.ID, testutil.Date(2025, time.February, 6), "3000")
	require.NoError(t, db.Model(cancelled).Update("status", domain.POStatusCancelled).Error)

	testutil.CreateTestPurchaseOrder(t, db, season.ID, location.ID, bags.ID, testutil.Date(2025, time.April, 1), "6000")

	return &budgetFixture{
		env:         env,
		season:      season,
		location:    location,
		accessories: accessories,
		bags:        bags,
	}
}

func assertMoney(t *testing.T, expected string, actual decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, testutil.Money(t, expected).Equal(actual), "%s: expected %s, got %s", field, expected, actual)
}

func TestConsumptionService_Position(t *testing.T) {
	f := newBudgetFixture(t)
	ctx := plannerContext()

	report, err := f.env.consumption.Position(ctx, f.season.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.GroupByCategory, report.GroupBy)
	require.Len(t, report.Lines, 2)

	acc := report.Lines[0]
	assert.Equal(t, f.accessories.ID, acc.CategoryID)
	assert.Equal(t, "Accessories", acc.CategoryName)
	assertMoney(t, "10000", acc.ApprovedOTB, "approved")
	assertMoney(t, "9500", acc.Committed, "committed")
	assertMoney(t, "2000", acc.Received, "received")
	assertMoney(t, "500", acc.Remaining, "remaining")
	require.NotNil(t, acc.BudgetUtilization)
	assertMoney(t, "95", *acc.BudgetUtilization, "utilization")
	require.NotNil(t, acc.FulfillmentRate)
	assertMoney(t, "21.05", *acc.FulfillmentRate, "fulfillment")

	bags := report.Lines[1]
	assert.Equal(t, f.bags.ID, bags.CategoryID)
	assertMoney(t, "-1000", bags.Remaining, "remaining")
	assertMoney(t, "120", *bags.BudgetUtilization, "utilization")

	assertMoney(t, "15000", report.Totals.ApprovedOTB, "total approved")
	assertMoney(t, "15500", report.Totals.Committed, "total committed")

	t.Run("by category and location", func(t *testing.T) {
		report, err := f.env.consumption.Position(ctx, f.season.ID, domain.GroupByCategoryLocation)
		require.NoError(t, err)
		require.Len(t, report.Lines, 2)
		for _, line := range report.Lines {
			require.NotNil(t, line.LocationID)
			assert.Equal(t, f.location.ID, *line.LocationID)
		}
	})

	t.Run("unknown grouping is rejected", func(t *testing.T) {
		_, err := f.env.consumption.Position(ctx, f.season.ID, "supplier")
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("unknown season is not found", func(t *testing.T) {
		_, err := f.env.consumption.Position(ctx, uuid.New(), "")
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("ratios are nil without budget", func(t *testing.T) {
		empty := testutil.CreateTestSeason(t, f.env.db, domain.SeasonStatusRangeUploaded)
		shoes := testutil.CreateTestCategory(t, f.env.db, "Shoes")
		testutil.CreateTestPurchaseOrder(t, f.env.db, empty.ID, f.location.ID, shoes.ID, testutil.Date(2025, time.March, 1), "100")

		report, err := f.env.consumption.Position(ctx, empty.ID, "")
		require.NoError(t, err)
		require.Len(t, report.Lines, 1)
		assert.Nil(t, report.Lines[0].BudgetUtilization)
		require.NotNil(t, report.Lines[0].FulfillmentRate)
		assert.True(t, report.Lines[0].FulfillmentRate.IsZero())
	})
}

func TestConsumptionService_Consumption(t *testing.T) {
	f := newBudgetFixture(t)

	report, err := f.env.consumption.Consumption(plannerContext(), f.season.ID)
	require.NoError(t, err)

	months := make(map[string]domain.ConsumptionMonth)
	for _, m := range report.Months {
		months[m.Month] = m
	}
	require.Len(t, months, 3)

	assertMoney(t, "6000", months["2025-01-01"].ApprovedOTB, "january approved")
	assertMoney(t, "4500", months["2025-01-01"].Committed, "january committed")
	assertMoney(t, "2000", months["2025-01-01"].Received, "january received")
	assertMoney(t, "5000", months["2025-02-01"].Committed, "february committed")
	assertMoney(t, "-1000", months["2025-04-01"].Remaining, "april remaining")

	assert.Equal(t, "2025-01-01", report.Months[0].Month)
}

func TestConsumptionService_Forecast(t *testing.T) {
	f := newBudgetFixture(t)

	report, err := f.env.consumption.Forecast(plannerContext(), f.season.ID, testutil.Date(2025, time.February, 15))
	require.NoError(t, err)
	require.Len(t, report.Categories, 2)

	acc := report.Categories[0]
	assert.Equal(t, 2, acc.ElapsedMonths)
	assert.Equal(t, 4, acc.RemainingMonths)
	assertMoney(t, "4750", acc.MonthlyRunRate, "run rate")
	assertMoney(t, "28500", acc.ProjectedCommitted, "projected")
	assert.True(t, acc.ExceedsBudget)
	assert.Equal(t, domain.TrendIncreasing, acc.Trend)

	// the April order is after asOf
	bags := report.Categories[1]
	assert.True(t, bags.Committed.IsZero())
	assert.False(t, bags.ExceedsBudget)
	assert.Equal(t, domain.TrendDecreasing, bags.Trend)
}

func TestConsumptionService_Alerts(t *testing.T) {
	f := newBudgetFixture(t)
	ctx := plannerContext()

	t.Run("before the midpoint", func(t *testing.T) {
		report, err := f.env.consumption.Alerts(ctx, f.season.ID, testutil.Date(2025, time.February, 1))
		require.NoError(t, err)
		require.Len(t, report.Alerts, 2)

		assert.Equal(t, domain.AlertOTBExceeded, report.Alerts[0].Type)
		assert.Equal(t, domain.SeverityCritical, report.Alerts[0].Severity)
		assert.Equal(t, f.bags.ID, report.Alerts[0].CategoryID)

		assert.Equal(t, domain.AlertHighUtilization, report.Alerts[1].Type)
		assert.Equal(t, f.accessories.ID, report.Alerts[1].CategoryID)
	})

	t.Run("past the midpoint adds fulfillment lag", func(t *testing.T) {
		report, err := f.env.consumption.Alerts(ctx, f.season.ID, testutil.Date(2025, time.May, 1))
		require.NoError(t, err)
		require.Len(t, report.Alerts, 4)

		assert.Equal(t, domain.SeverityCritical, report.Alerts[0].Severity)
		lag := 0
		for _, a := range report.Alerts[1:] {
			assert.Equal(t, domain.SeverityWarning, a.Severity)
			if a.Type == domain.AlertFulfillmentLag {
				lag++
			}
		}
		assert.Equal(t, 2, lag)
	})
}

func TestConsumptionService_Adjustments(t *testing.T) {
	f := newBudgetFixture(t)
	ctx := plannerContext()

	propose := func(t *testing.T, amount string) *domain.BudgetAdjustmentDTO {
		adj, err := f.env.consumption.ProposeAdjustment(ctx, f.season.ID, &domain.ProposeAdjustmentRequest{
			FromCategoryID: f.accessories.ID,
			ToCategoryID:   f.bags.ID,
			Amount:         testutil.Money(t, amount),
			Reason:         "Bags are selling faster than planned",
		})
		require.NoError(t, err)
		return adj
	}

	t.Run("pending adjustments do not move budget", func(t *testing.T) {
		adj := propose(t, "500")
		assert.Equal(t, domain.AdjustmentStatusPending, adj.Status)
		assert.Equal(t, "Test Planner", adj.CreatedBy)

		report, err := f.env.consumption.Position(ctx, f.season.ID, "")
		require.NoError(t, err)
		assertMoney(t, "10000", report.Lines[0].ApprovedOTB, "accessories approved")
	})

	t.Run("approval moves budget between categories", func(t *testing.T) {
		adj := propose(t, "2000")
		approved, err := f.env.consumption.ApproveAdjustment(ctx, f.season.ID, adj.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.AdjustmentStatusApproved, approved.Status)
		assert.Equal(t, "Test Planner", approved.ApprovedBy)
		assert.NotNil(t, approved.ApprovedAt)

		report, err := f.env.consumption.Position(ctx, f.season.ID, "")
		require.NoError(t, err)
		acc, bags := report.Lines[0], report.Lines[1]
		assertMoney(t, "2000", acc.AdjustmentOut, "accessories out")
		assertMoney(t, "8000", acc.ApprovedOTB, "accessories approved")
		assertMoney(t, "2000", bags.AdjustmentIn, "bags in")
		assertMoney(t, "7000", bags.ApprovedOTB, "bags approved")
		assertMoney(t, "85.71", *bags.BudgetUtilization, "bags utilization")
		assertMoney(t, "15000", report.Totals.ApprovedOTB, "total approved")
	})

	t.Run("adjustments stay off location lines", func(t *testing.T) {
		report, err := f.env.consumption.Position(ctx, f.season.ID, domain.GroupByCategoryLocation)
		require.NoError(t, err)

		adjusted := 0
		for _, line := range report.Lines {
			if line.LocationID == nil {
				adjusted++
				assert.True(t, line.PlannedOTB.IsZero())
				assert.True(t, line.Committed.IsZero())
				continue
			}
			assert.True(t, line.AdjustmentIn.IsZero())
			assert.True(t, line.AdjustmentOut.IsZero())
		}
		assert.Equal(t, 2, adjusted)
		assertMoney(t, "15000", report.Totals.ApprovedOTB, "total approved")
	})

	t.Run("second approval is an invalid state", func(t *testing.T) {
		adj := propose(t, "100")
		_, err := f.env.consumption.ApproveAdjustment(ctx, f.season.ID, adj.ID)
		require.NoError(t, err)

		_, err = f.env.consumption.ApproveAdjustment(ctx, f.season.ID, adj.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, service.ErrInvalidState)

		_, err = f.env.consumption.RejectAdjustment(ctx, f.season.ID, adj.ID, "too late")
		assert.ErrorIs(t, err, service.ErrInvalidState)
	})

	t.Run("concurrent approvals succeed once", func(t *testing.T) {
		adj := propose(t, "50")

		var wg sync.WaitGroup
		errs := make([]error, 4)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.env.consumption.ApproveAdjustment(ctx, f.season.ID, adj.ID)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, service.ErrInvalidState)
		}
		assert.Equal(t, 1, succeeded)
	})

	t.Run("rejection keeps the reason", func(t *testing.T) {
		adj := propose(t, "300")
		rejected, err := f.env.consumption.RejectAdjustment(ctx, f.season.ID, adj.ID, "budget is final")
		require.NoError(t, err)
		assert.Equal(t, domain.AdjustmentStatusRejected, rejected.Status)
		assert.Equal(t, "budget is final", rejected.RejectionReason)

		status := domain.AdjustmentStatusRejected
		list, err := f.env.consumption.ListAdjustments(ctx, f.season.ID, &status)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, adj.ID, list[0].ID)
	})

	t.Run("invalid proposals", func(t *testing.T) {
		tests := []struct {
			name string
			req  domain.ProposeAdjustmentRequest
		}{
			{"zero amount", domain.ProposeAdjustmentRequest{FromCategoryID: f.accessories.ID, ToCategoryID: f.bags.ID, Amount: decimal.Zero, Reason: "x"}},
			{"negative amount", domain.ProposeAdjustmentRequest{FromCategoryID: f.accessories.ID, ToCategoryID: f.bags.ID, Amount: decimal.NewFromInt(-5), Reason: "x"}},
			{"same category", domain.ProposeAdjustmentRequest{FromCategoryID: f.bags.ID, ToCategoryID: f.bags.ID, Amount: decimal.NewFromInt(5), Reason: "x"}},
			{"unknown category", domain.ProposeAdjustmentRequest{FromCategoryID: f.bags.ID, ToCategoryID: uuid.New(), Amount: decimal.NewFromInt(5), Reason: "x"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.env.consumption.ProposeAdjustment(ctx, f.season.ID, &tt.req)
				assert.ErrorIs(t, err, service.ErrInvalidInput)
			})
		}
	})

	t.Run("adjustment of another season is not found", func(t *testing.T) {
		adj := propose(t, "10")
		other := testutil.CreateTestSeason(t, f.env.db, domain.SeasonStatusRangeUploaded)
		_, err := f.env.consumption.ApproveAdjustment(ctx, other.ID, adj.ID)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestConsumptionService_ProposeAdjustment_Workflow(t *testing.T) {
	env := newTestEnv(t)
	ctx := plannerContext()
	a := testutil.CreateTestCategory(t, env.db, "A")
	b := testutil.CreateTestCategory(t, env.db, "B")

	req := &domain.ProposeAdjustmentRequest{FromCategoryID: a.ID, ToCategoryID: b.ID, Amount: decimal.NewFromInt(10), Reason: "x"}

	tests := []struct {
		status  domain.SeasonStatus
		allowed bool
	}{
		{domain.SeasonStatusPlanUploaded, false},
		{domain.SeasonStatusOTBUploaded, true},
		{domain.SeasonStatusRangeUploaded, true},
		{domain.SeasonStatusLocked, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			season := testutil.CreateTestSeason(t, env.db, tt.status)
			_, err := env.consumption.ProposeAdjustment(ctx, season.ID, req)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, service.ErrWorkflowViolation)
		})
	}
}

func TestConsumptionService_NegativeApprovedBudget(t *testing.T) {
	env := newTestEnv(t)
	db := env.db
	season := testutil.CreateTestSeason(t, db, domain.SeasonStatusRangeUploaded)
	location := testutil.CreateTestLocation(t, db, "Tromsø")
	testutil.AssignTestLocation(t, db, season.ID, location.ID)
	outlet := testutil.CreateTestCategory(t, db, "Outlet")

	testutil.CreateTestOTBPlan(t, db, season.ID, location.ID, outlet.ID, testutil.Date(2025, time.January, 1), "-1000")
	testutil.CreateTestPurchaseOrder(t, db, season.ID, location.ID, outlet.ID, testutil.Date(2025, time.January, 10), "500")

	report, err := env.consumption.Position(plannerContext(), season.ID, "")
	require.NoError(t, err)
	require.Len(t, report.Lines, 1)

	line := report.Lines[0]
	assertMoney(t, "-1000", line.ApprovedOTB, "approved")
	require.NotNil(t, line.BudgetUtilization)
	assertMoney(t, "-50", *line.BudgetUtilization, "utilization")
	require.NotNil(t, line.FulfillmentRate)
	assert.True(t, line.FulfillmentRate.IsZero())

	forecast, err := env.consumption.Forecast(plannerContext(), season.ID, testutil.Date(2025, time.February, 15))
	require.NoError(t, err)
	require.Len(t, forecast.Categories, 1)
	assert.True(t, forecast.Categories[0].ExceedsBudget)
	require.NotNil(t, forecast.Categories[0].ProjectedUtilization)
	assert.True(t, forecast.Categories[0].ProjectedUtilization.IsNegative())
}
