package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/straye-as/season-planning-api/internal/datawarehouse"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/repository"
	"github.com/straye-as/season-planning-api/internal/service"
	"github.com/straye-as/season-planning-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeFeed serves fixed rows, filtered by the watermark like the ERP views
type fakeFeed struct {
	orders   []datawarehouse.PurchaseOrderRow
	receipts []datawarehouse.GoodsReceiptRow
	fetchErr error

	poSince  []time.Time
	grnSince []time.Time
}

func (f *fakeFeed) FetchPurchaseOrders(_ context.Context, since time.Time) ([]datawarehouse.PurchaseOrderRow, error) {
	f.poSince = append(f.poSince, since)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []datawarehouse.PurchaseOrderRow
	for _, r := range f.orders {
		if r.ModifiedAt.After(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeFeed) FetchGoodsReceipts(_ context.Context, since time.Time) ([]datawarehouse.GoodsReceiptRow, error) {
	f.grnSince = append(f.grnSince, since)
	var out []datawarehouse.GoodsReceiptRow
	for _, r := range f.receipts {
		if r.ModifiedAt.After(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func newERPSync(env *testEnv, feed service.ERPFeed) *service.ERPSyncService {
	return service.NewERPSyncService(feed, env.poRepo, env.seasonRepo, env.locationRepo, env.categoryRepo, env.orders, zap.NewNop())
}

func TestERPSyncService_Sync(t *testing.T) {
	env := newTestEnv(t)
	season := testutil.CreateTestSeason(t, env.db, domain.SeasonStatusRangeUploaded)
	location := testutil.CreateTestLocation(t, env.db, "Kristiansand")
	testutil.AssignTestLocation(t, env.db, season.ID, location.ID)
	category := testutil.CreateTestCategory(t, env.db, "Knitwear")
	require.NoError(t, env.db.Model(category).Update("code", "KNIT-01").Error)

	t1 := time.Date(2025, time.February, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	feed := &fakeFeed{
		orders: []datawarehouse.PurchaseOrderRow{
			{
				ExternalRef: "ERP-PO-1", SeasonCode: season.Code, LocationCode: location.Code, CategoryCode: "knit-01",
				PONumber: "ERP-1001", POValue: testutil.Money(t, "12500"), Status: "confirmed",
				OrderDate: testutil.Date(2025, time.January, 28), SupplierName: "Fjord Wool", ModifiedAt: t1,
			},
			{
				ExternalRef: "ERP-PO-2", SeasonCode: "NOPE-2025", LocationCode: location.Code, CategoryCode: "KNIT-01",
				PONumber: "ERP-1002", POValue: testutil.Money(t, "100"), Status: "CONFIRMED",
				OrderDate: testutil.Date(2025, time.January, 29), ModifiedAt: t2,
			},
			{
				ExternalRef: "ERP-PO-3", SeasonCode: season.Code, LocationCode: location.Code, CategoryCode: "KNIT-01",
				PONumber: "ERP-1003", POValue: testutil.Money(t, "4000"), Status: "SHIPPED",
				OrderDate: testutil.Date(2025, time.January, 30), ModifiedAt: t3,
			},
		},
		receipts: []datawarehouse.GoodsReceiptRow{
			{ExternalRef: "ERP-GRN-1", POExternalRef: "ERP-PO-1", GRNDate: testutil.Date(2025, time.February, 10), ReceivedValue: testutil.Money(t, "6000"), ModifiedAt: t1},
		},
	}
	syncer := newERPSync(env, feed)
	ctx := context.Background()

	result, err := syncer.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.ERPSyncResult{POsCreated: 2, GRNsCreated: 1, Failed: 1}, *result)

	po, err := env.poRepo.GetByExternalRef(ctx, "ERP-PO-1")
	require.NoError(t, err)
	assert.Equal(t, domain.POSourceERP, po.Source)
	assert.Equal(t, "ERP-1001", po.PONumber)
	assert.Equal(t, domain.POStatusPartial, po.Status)

	t.Run("watermark stops at the failed row", func(t *testing.T) {
		result, err := syncer.Sync(ctx)
		require.NoError(t, err)
		assert.Equal(t, service.ERPSyncResult{POsSkipped: 1, Failed: 1}, *result)

		require.Len(t, feed.poSince, 2)
		assert.True(t, feed.poSince[1].Equal(t1))
		assert.True(t, feed.grnSince[1].Equal(t1))
	})

	t.Run("rows imported once only", func(t *testing.T) {
		orders, err := env.poRepo.ListBySeason(ctx, season.ID)
		require.NoError(t, err)
		assert.Len(t, orders, 2)
	})

	t.Run("feed errors are returned", func(t *testing.T) {
		broken := newERPSync(env, &fakeFeed{fetchErr: errors.New("connection refused")})
		_, err := broken.Sync(ctx)
		assert.Error(t, err)
	})

	t.Run("disabled feed", func(t *testing.T) {
		disabled := newERPSync(env, nil)
		_, err := disabled.Sync(ctx)
		assert.ErrorIs(t, err, service.ErrERPNotAvailable)
	})
}

func TestERPSyncService_RespectsWorkflow(t *testing.T) {
	env := newTestEnv(t)
	season := testutil.CreateTestSeason(t, env.db, domain.SeasonStatusLocked)
	location := testutil.CreateTestLocation(t, env.db, "Tromso")
	testutil.AssignTestLocation(t, env.db, season.ID, location.ID)
	category := testutil.CreateTestCategory(t, env.db, "Outdoor")
	require.NoError(t, env.db.Model(category).Update("code", "OUT-01").Error)

	feed := &fakeFeed{orders: []datawarehouse.PurchaseOrderRow{{
		ExternalRef: "ERP-PO-9", SeasonCode: season.Code, LocationCode: location.Code, CategoryCode: "OUT-01",
		POValue: testutil.Money(t, "10"), Status: "CONFIRMED", OrderDate: testutil.Date(2025, time.March, 1),
		ModifiedAt: time.Now(),
	}}}

	synced, failed, err := newERPSync(env, feed).SyncAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, synced)
	assert.Equal(t, 1, failed)

	_, err = env.poRepo.GetByExternalRef(context.Background(), "ERP-PO-9")
	assert.True(t, repository.IsNotFound(err))
}
