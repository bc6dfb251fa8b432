package service_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/service"
	"github.com/straye-as/season-planning-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type poFixture struct {
	env      *testEnv
	season   *domain.Season
	location *domain.Location
	category *domain.Category
}

func newPOFixture(t *testing.T, status domain.SeasonStatus) *poFixture {
	env := newTestEnv(t)
	season := testutil.CreateTestSeason(t, env.db, status)
	location := testutil.CreateTestLocation(t, env.db, "Stavanger")
	testutil.AssignTestLocation(t, env.db, season.ID, location.ID)
	return &poFixture{
		env:      env,
		season:   season,
		location: location,
		category: testutil.CreateTestCategory(t, env.db, "Footwear"),
	}
}

func (f *poFixture) createRequest(t *testing.T, value string) *domain.CreatePurchaseOrderRequest {
	return &domain.CreatePurchaseOrderRequest{
		LocationID:   f.location.ID,
		CategoryID:   f.category.ID,
		POValue:      testutil.Money(t, value),
		OrderDate:    "2025-02-10",
		SupplierName: "Nordic Supply AS",
	}
}

func TestPurchaseOrderService_Create(t *testing.T) {
	f := newPOFixture(t, domain.SeasonStatusRangeUploaded)
	ctx := plannerContext()

	t.Run("defaults status and source and issues a number", func(t *testing.T) {
		po, err := f.env.orders.Create(ctx, f.season.ID, f.createRequest(t, "12500"))
		require.NoError(t, err)

		assert.Equal(t, domain.POStatusConfirmed, po.Status)
		assert.Equal(t, domain.POSourceAPI, po.Source)
		assert.Regexp(t, regexp.MustCompile(`^PO-\d{8}-\d{6}$`), po.PONumber)
		assert.True(t, testutil.Money(t, "12500").Equal(po.POValue))
	})

	t.Run("issued numbers are sequential", func(t *testing.T) {
		first, err := f.env.orders.Create(ctx, f.season.ID, f.createRequest(t, "1"))
		require.NoError(t, err)
		second, err := f.env.orders.Create(ctx, f.season.ID, f.createRequest(t, "1"))
		require.NoError(t, err)
		assert.Less(t, first.PONumber, second.PONumber)
	})

	t.Run("duplicate number conflicts", func(t *testing.T) {
		req := f.createRequest(t, "100")
		req.PONumber = "PO-MANUAL-1"
		_, err := f.env.orders.Create(ctx, f.season.ID, req)
		require.NoError(t, err)

		_, err = f.env.orders.Create(ctx, f.season.ID, req)
		assert.ErrorIs(t, err, service.ErrConflict)
	})

	t.Run("negative value is rejected", func(t *testing.T) {
		_, err := f.env.orders.Create(ctx, f.season.ID, f.createRequest(t, "-1"))
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("unknown category is rejected", func(t *testing.T) {
		req := f.createRequest(t, "1")
		req.CategoryID = uuid.New()
		_, err := f.env.orders.Create(ctx, f.season.ID, req)
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("not allowed before the range is uploaded", func(t *testing.T) {
		early := testutil.CreateTestSeason(t, f.env.db, domain.SeasonStatusOTBUploaded)
		testutil.AssignTestLocation(t, f.env.db, early.ID, f.location.ID)

		_, err := f.env.orders.Create(ctx, early.ID, f.createRequest(t, "1"))
		assert.ErrorIs(t, err, service.ErrWorkflowViolation)
	})
}

func TestPurchaseOrderService_Fulfillment(t *testing.T) {
	f := newPOFixture(t, domain.SeasonStatusRangeUploaded)
	ctx := plannerContext()

	po, err := f.env.orders.Create(ctx, f.season.ID, f.createRequest(t, "12500"))
	require.NoError(t, err)

	for _, value := range []string{"6000", "5250"} {
		_, err := f.env.orders.CreateGRN(ctx, f.season.ID, &domain.CreateGRNRequest{
			POID:          po.ID,
			GRNDate:       "2025-03-01",
			ReceivedValue: testutil.Money(t, value),
		})
		require.NoError(t, err)
	}

	result, err := f.env.orders.Fulfillment(ctx, f.season.ID, po.ID)
	require.NoError(t, err)
	assert.True(t, testutil.Money(t, "90").Equal(result.FulfillmentPercent), "got %s", result.FulfillmentPercent)
	assert.True(t, testutil.Money(t, "11250").Equal(result.ReceivedValue))
	assert.Equal(t, 2, result.GRNCount)

	stored, err := f.env.orders.GetByID(ctx, f.season.ID, po.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.POStatusPartial, stored.Status)

	t.Run("over-receipt completes the order and caps the display value", func(t *testing.T) {
		_, err := f.env.orders.CreateGRN(ctx, f.season.ID, &domain.CreateGRNRequest{
			POID:          po.ID,
			GRNDate:       "2025-03-15",
			ReceivedValue: testutil.Money(t, "2500"),
		})
		require.NoError(t, err)

		result, err := f.env.orders.Fulfillment(ctx, f.season.ID, po.ID)
		require.NoError(t, err)
		assert.True(t, testutil.Money(t, "110").Equal(result.FulfillmentPercent))
		assert.True(t, testutil.Money(t, "100").Equal(result.DisplayPercent))

		stored, err := f.env.orders.GetByID(ctx, f.season.ID, po.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.POStatusComplete, stored.Status)
	})

	t.Run("order of another season is not found", func(t *testing.T) {
		other := testutil.CreateTestSeason(t, f.env.db, domain.SeasonStatusRangeUploaded)
		_, err := f.env.orders.Fulfillment(ctx, other.ID, po.ID)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestPurchaseOrderService_CreateGRN_CancelledOrder(t *testing.T) {
	f := newPOFixture(t, domain.SeasonStatusRangeUploaded)
	ctx := plannerContext()

	po, err := f.env.orders.Create(ctx, f.season.ID, f.createRequest(t, "500"))
	require.NoError(t, err)
	_, err = f.env.orders.UpdateStatus(ctx, f.season.ID, po.ID, domain.POStatusCancelled)
	require.NoError(t, err)

	_, err = f.env.orders.CreateGRN(ctx, f.season.ID, &domain.CreateGRNRequest{
		POID:          po.ID,
		GRNDate:       "2025-03-01",
		ReceivedValue: testutil.Money(t, "100"),
	})
	require.Error(t, err)

	var stateErr *service.InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, string(domain.POStatusCancelled), stateErr.State)
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

func TestPurchaseOrderService_DeleteGRN_RevertsStatus(t *testing.T) {
	f := newPOFixture(t, domain.SeasonStatusRangeUploaded)
	ctx := plannerContext()

	po := testutil.CreateTestPurchaseOrder(t, f.env.db, f.season.ID, f.location.ID, f.category.ID, testutil.Date(2025, time.February, 1), "1000")
	grn, err := f.env.orders.CreateGRN(ctx, f.season.ID, &domain.CreateGRNRequest{
		POID:          po.ID,
		GRNDate:       "2025-02-20",
		ReceivedValue: testutil.Money(t, "1000"),
	})
	require.NoError(t, err)

	stored, err := f.env.orders.GetByID(ctx, f.season.ID, po.ID)
	require.NoError(t, err)
	require.Equal(t, domain.POStatusComplete, stored.Status)

	require.NoError(t, f.env.orders.DeleteGRN(ctx, f.season.ID, grn.ID))

	stored, err = f.env.orders.GetByID(ctx, f.season.ID, po.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.POStatusConfirmed, stored.Status)

	grns, err := f.env.orders.ListGRNs(ctx, f.season.ID, po.ID)
	require.NoError(t, err)
	assert.Empty(t, grns)
}
