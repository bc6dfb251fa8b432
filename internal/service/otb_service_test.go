package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/service"
	"github.com/straye-as/season-planning-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func otbInputs(t *testing.T, sales, closing, opening, onOrder string) domain.OTBInputs {
	return domain.OTBInputs{
		PlannedSales:        testutil.Money(t, sales),
		PlannedClosingStock: testutil.Money(t, closing),
		OpeningStock:        testutil.Money(t, opening),
		OnOrder:             testutil.Money(t, onOrder),
	}
}

func TestCalculateOTB(t *testing.T) {
	tests := []struct {
		name     string
		inputs   [4]string
		expected string
	}{
		{"positive result", [4]string{"100000", "50000", "30000", "10000"}, "110000"},
		{"negative result is kept", [4]string{"10000", "5000", "30000", "1000"}, "-16000"},
		{"all zero", [4]string{"0", "0", "0", "0"}, "0"},
		{"cents are exact", [4]string{"0.10", "0.20", "0.05", "0.05"}, "0.20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.CalculateOTB(otbInputs(t, tt.inputs[0], tt.inputs[1], tt.inputs[2], tt.inputs[3]))
			require.NoError(t, err)
			assert.True(t, testutil.Money(t, tt.expected).Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestCalculateOTB_RejectsNegativeInputs(t *testing.T) {
	fields := map[string]domain.OTBInputs{
		"plannedSales":        otbInputs(t, "-1", "0", "0", "0"),
		"plannedClosingStock": otbInputs(t, "0", "-1", "0", "0"),
		"openingStock":        otbInputs(t, "0", "0", "-1", "0"),
		"onOrder":             otbInputs(t, "0", "0", "0", "-1"),
	}

	for field, in := range fields {
		t.Run(field, func(t *testing.T) {
			_, err := service.CalculateOTB(in)
			require.Error(t, err)

			var verr *service.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, field, verr.Field)
			assert.ErrorIs(t, err, service.ErrInvalidInput)
		})
	}
}

func TestOTBService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := plannerContext()

	season := testutil.CreateTestSeason(t, env.db, domain.SeasonStatusPlanUploaded)
	location := testutil.CreateTestLocation(t, env.db, "Oslo City")
	testutil.AssignTestLocation(t, env.db, season.ID, location.ID)
	category := testutil.CreateTestCategory(t, env.db, "Outerwear")

	t.Run("derives the spend limit and normalizes the month", func(t *testing.T) {
		plan, err := env.otb.Create(ctx, season.ID, &domain.CreateOTBPlanRequest{
			LocationID: location.ID,
			CategoryID: category.ID,
			Month:      "2025-03-17",
			OTBInputs:  otbInputs(t, "100000", "50000", "30000", "10000"),
		})
		require.NoError(t, err)
		assert.Equal(t, "2025-03-01", plan.Month)
		assert.True(t, testutil.Money(t, "110000").Equal(plan.ApprovedSpendLimit))
	})

	t.Run("rejects a location outside the season", func(t *testing.T) {
		other := testutil.CreateTestLocation(t, env.db, "Bergen")
		_, err := env.otb.Create(ctx, season.ID, &domain.CreateOTBPlanRequest{
			LocationID: other.ID,
			CategoryID: category.ID,
			Month:      "2025-03-01",
			OTBInputs:  otbInputs(t, "1", "0", "0", "0"),
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("is frozen once the range is uploaded", func(t *testing.T) {
		frozen := testutil.CreateTestSeason(t, env.db, domain.SeasonStatusRangeUploaded)
		testutil.AssignTestLocation(t, env.db, frozen.ID, location.ID)

		_, err := env.otb.Create(ctx, frozen.ID, &domain.CreateOTBPlanRequest{
			LocationID: location.ID,
			CategoryID: category.ID,
			Month:      "2025-03-01",
			OTBInputs:  otbInputs(t, "1", "0", "0", "0"),
		})
		assert.ErrorIs(t, err, service.ErrWorkflowViolation)
	})
}

func TestOTBService_Recalculate(t *testing.T) {
	env := newTestEnv(t)
	ctx := plannerContext()

	season := testutil.CreateTestSeason(t, env.db, domain.SeasonStatusRangeUploaded)
	location := testutil.CreateTestLocation(t, env.db, "Trondheim")
	category := testutil.CreateTestCategory(t, env.db, "Knitwear")

	march := testutil.CreateTestOTBPlan(t, env.db, season.ID, location.ID, category.ID, testutil.Date(2025, time.March, 1), "40000")
	testutil.CreateTestOTBPlan(t, env.db, season.ID, location.ID, category.ID, testutil.Date(2025, time.April, 1), "25000")

	// a stale stored limit is corrected from the inputs
	require.NoError(t, env.db.Model(&domain.OTBPlan{}).
		Where("id = ?", march.ID).
		Update("approved_spend_limit", decimal.NewFromInt(1)).Error)

	count, err := env.otb.Recalculate(ctx, season.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	stored, err := env.otbRepo.GetByID(ctx, march.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Money(t, "40000").Equal(stored.ApprovedSpendLimit))

	t.Run("locked season is refused", func(t *testing.T) {
		locked := testutil.CreateTestSeason(t, env.db, domain.SeasonStatusLocked)
		_, err := env.otb.Recalculate(ctx, locked.ID)
		assert.ErrorIs(t, err, service.ErrWorkflowViolation)
	})

	t.Run("empty season updates nothing", func(t *testing.T) {
		empty := testutil.CreateTestSeason(t, env.db, domain.SeasonStatusOTBUploaded)
		count, err := env.otb.Recalculate(ctx, empty.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestOTBService_Calculate(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.otb.Calculate(otbInputs(t, "10000", "5000", "30000", "1000"))
	require.NoError(t, err)
	assert.True(t, testutil.Money(t, "-16000").Equal(result.ApprovedSpendLimit))
	assert.True(t, testutil.Money(t, "10000").Equal(result.PlannedSales))
}
