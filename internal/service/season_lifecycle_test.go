package service_test

import (
	"testing"

	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/service"
	"github.com/straye-as/season-planning-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSeasonLifecycle drives one season from creation to lock through the
// services a planner would call.
func TestSeasonLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := plannerContext()

	season, err := env.seasons.Create(ctx, &domain.CreateSeasonRequest{
		Name:      "Spring/Summer 2025",
		StartDate: "2025-01-01",
		EndDate:   "2025-06-30",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SeasonStatusCreated, season.Status)

	location := testutil.CreateTestLocation(t, env.db, "Oslo Flagship")
	category := testutil.CreateTestCategory(t, env.db, "Dresses")

	_, err = env.locations.AssignToSeason(ctx, season.ID, location.ID)
	require.NoError(t, err)

	transition := func(target domain.SeasonStatus) {
		t.Helper()
		_, err := env.workflow.Transition(ctx, season.ID, target)
		require.NoError(t, err, "transition to %s", target)
	}

	transition(domain.SeasonStatusLocationsDefined)

	plan, err := env.plans.Create(ctx, season.ID, &domain.CreateSeasonPlanRequest{
		LocationID:     location.ID,
		CategoryID:     category.ID,
		PlannedSales:   testutil.Money(t, "100000"),
		PlannedMargin:  testutil.Money(t, "52"),
		InventoryTurns: testutil.Money(t, "3.5"),
	})
	require.NoError(t, err)

	transition(domain.SeasonStatusPlanUploaded)

	otb, err := env.otb.Create(ctx, season.ID, &domain.CreateOTBPlanRequest{
		LocationID: location.ID,
		CategoryID: category.ID,
		Month:      "2025-02-01",
		OTBInputs:  otbInputs(t, "100000", "50000", "30000", "10000"),
	})
	require.NoError(t, err)
	assertMoney(t, "110000", otb.ApprovedSpendLimit, "approved spend limit")

	transition(domain.SeasonStatusOTBUploaded)

	_, err = env.plans.Update(ctx, season.ID, plan.ID, &domain.UpdateSeasonPlanRequest{
		PlannedSales:   testutil.Money(t, "120000"),
		PlannedMargin:  testutil.Money(t, "52"),
		InventoryTurns: testutil.Money(t, "3.5"),
	})
	require.Error(t, err)
	var violation *service.WorkflowViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, domain.EntityKindPlan, violation.Kind)
	assert.Equal(t, domain.SeasonStatusOTBUploaded, violation.State)

	_, err = env.ranges.Upsert(ctx, season.ID, &domain.UpsertRangeIntentRequest{
		CategoryID:     category.ID,
		CorePercent:    testutil.Money(t, "65"),
		FashionPercent: testutil.Money(t, "35"),
	})
	require.NoError(t, err)

	transition(domain.SeasonStatusRangeUploaded)

	// the OTB is frozen from here, orders are open
	_, err = env.otb.Update(ctx, season.ID, otb.ID, &domain.UpdateOTBPlanRequest{OTBInputs: otbInputs(t, "1", "0", "0", "0")})
	assert.ErrorIs(t, err, service.ErrWorkflowViolation)

	po, err := env.orders.Create(ctx, season.ID, &domain.CreatePurchaseOrderRequest{
		LocationID: location.ID,
		CategoryID: category.ID,
		POValue:    testutil.Money(t, "12500"),
		OrderDate:  "2025-02-03",
	})
	require.NoError(t, err)
	for _, value := range []string{"6000", "5250"} {
		_, err := env.orders.CreateGRN(ctx, season.ID, &domain.CreateGRNRequest{
			POID:          po.ID,
			GRNDate:       "2025-03-01",
			ReceivedValue: testutil.Money(t, value),
		})
		require.NoError(t, err)
	}

	position, err := env.consumption.Position(ctx, season.ID, domain.GroupByCategory)
	require.NoError(t, err)
	require.Len(t, position.Lines, 1)
	assertMoney(t, "110000", position.Lines[0].ApprovedOTB, "approved")
	assertMoney(t, "12500", position.Lines[0].Committed, "committed")
	assertMoney(t, "90", *position.Lines[0].FulfillmentRate, "fulfillment")

	transition(domain.SeasonStatusLocked)

	_, err = env.orders.Create(ctx, season.ID, &domain.CreatePurchaseOrderRequest{
		LocationID: location.ID,
		CategoryID: category.ID,
		POValue:    testutil.Money(t, "1"),
		OrderDate:  "2025-05-01",
	})
	assert.ErrorIs(t, err, service.ErrWorkflowViolation)

	_, err = env.workflow.Transition(ctx, season.ID, domain.SeasonStatusCreated)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	// recalculation stops at lock too
	_, err = env.otb.Recalculate(ctx, season.ID)
	assert.ErrorIs(t, err, service.ErrWorkflowViolation)
}
