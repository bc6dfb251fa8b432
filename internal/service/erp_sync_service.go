package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/straye-as/season-planning-api/internal/auth"
	"github.com/straye-as/season-planning-api/internal/datawarehouse"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/repository"
	"go.uber.org/zap"
)

// ErrERPNotAvailable indicates the ERP feed is disabled or not configured
var ErrERPNotAvailable = errors.New("ERP feed not available")

// ERPFeed reads purchasing rows changed after a watermark
type ERPFeed interface {
	FetchPurchaseOrders(ctx context.Context, since time.Time) ([]datawarehouse.PurchaseOrderRow, error)
	FetchGoodsReceipts(ctx context.Context, since time.Time) ([]datawarehouse.GoodsReceiptRow, error)
}

// ERPSyncResult counts what one sync pass did
type ERPSyncResult struct {
	POsCreated  int `json:"posCreated"`
	POsSkipped  int `json:"posSkipped"`
	GRNsCreated int `json:"grnsCreated"`
	GRNsSkipped int `json:"grnsSkipped"`
	Failed      int `json:"failed"`
}

// ERPSyncService imports purchase orders and goods receipts from the ERP views.
// Imports go through the purchase order service, so the mutation guard applies
// to them exactly as it does to API writes. Rows already imported are matched
// by external reference and skipped.
type ERPSyncService struct {
	feed         ERPFeed
	poRepo       *repository.PurchaseOrderRepository
	seasonRepo   *repository.SeasonRepository
	locationRepo *repository.LocationRepository
	categoryRepo *repository.CategoryRepository
	poSvc        *PurchaseOrderService
	logger       *zap.Logger

	mu           sync.Mutex
	poWatermark  time.Time
	grnWatermark time.Time
}

func NewERPSyncService(
	feed ERPFeed,
	poRepo *repository.PurchaseOrderRepository,
	seasonRepo *repository.SeasonRepository,
	locationRepo *repository.LocationRepository,
	categoryRepo *repository.CategoryRepository,
	poSvc *PurchaseOrderService,
	logger *zap.Logger,
) *ERPSyncService {
	return &ERPSyncService{
		feed:         feed,
		poRepo:       poRepo,
		seasonRepo:   seasonRepo,
		locationRepo: locationRepo,
		categoryRepo: categoryRepo,
		poSvc:        poSvc,
		logger:       logger,
	}
}

// Sync pulls everything changed since the previous pass. Purchase orders are
// imported before receipts so a receipt can land on an order from the same pass.
func (s *ERPSyncService) Sync(ctx context.Context) (*ERPSyncResult, error) {
	if s.feed == nil {
		return nil, ErrERPNotAvailable
	}
	// One pass at a time. A watermark stops at the first failed row so the
	// failure is retried next pass; rows after it are skipped by reference.
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = auth.SystemContext(ctx, "erp-sync")
	result := &ERPSyncResult{}

	orders, err := s.feed.FetchPurchaseOrders(ctx, s.poWatermark)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ERP purchase orders: %w", err)
	}
	blocked := false
	for _, row := range orders {
		created, err := s.importPurchaseOrder(ctx, row)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Warn("ERP purchase order not imported",
				zap.String("external_ref", row.ExternalRef),
				zap.String("season_code", row.SeasonCode),
				zap.Error(err))
		case created:
			result.POsCreated++
		default:
			result.POsSkipped++
		}
		blocked = blocked || err != nil
		if !blocked && row.ModifiedAt.After(s.poWatermark) {
			s.poWatermark = row.ModifiedAt
		}
	}

	receipts, err := s.feed.FetchGoodsReceipts(ctx, s.grnWatermark)
	if err != nil {
		return result, fmt.Errorf("failed to fetch ERP goods receipts: %w", err)
	}
	blocked = false
	for _, row := range receipts {
		created, err := s.importGoodsReceipt(ctx, row)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Warn("ERP goods receipt not imported",
				zap.String("external_ref", row.ExternalRef),
				zap.String("po_external_ref", row.POExternalRef),
				zap.Error(err))
		case created:
			result.GRNsCreated++
		default:
			result.GRNsSkipped++
		}
		blocked = blocked || err != nil
		if !blocked && row.ModifiedAt.After(s.grnWatermark) {
			s.grnWatermark = row.ModifiedAt
		}
	}

	s.logger.Info("ERP sync completed",
		zap.Int("pos_created", result.POsCreated),
		zap.Int("pos_skipped", result.POsSkipped),
		zap.Int("grns_created", result.GRNsCreated),
		zap.Int("grns_skipped", result.GRNsSkipped),
		zap.Int("failed", result.Failed))
	return result, nil
}

// SyncAll runs a pass for the scheduler, which only needs the counts
func (s *ERPSyncService) SyncAll(ctx context.Context) (synced int, failed int, err error) {
	result, err := s.Sync(ctx)
	if result == nil {
		return 0, 0, err
	}
	return result.POsCreated + result.GRNsCreated, result.Failed, err
}

func (s *ERPSyncService) importPurchaseOrder(ctx context.Context, row datawarehouse.PurchaseOrderRow) (bool, error) {
	if row.ExternalRef == "" {
		return false, newValidationError("externalRef", "ERP row has no reference")
	}
	if _, err := s.poRepo.GetByExternalRef(ctx, row.ExternalRef); err == nil {
		return false, nil
	} else if !repository.IsNotFound(err) {
		return false, err
	}

	season, err := s.seasonRepo.GetByCode(ctx, row.SeasonCode)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, newValidationError("seasonCode", fmt.Sprintf("unknown season %q", row.SeasonCode))
		}
		return false, err
	}
	location, err := s.locationRepo.GetByCode(ctx, row.LocationCode)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, newValidationError("locationCode", fmt.Sprintf("unknown location %q", row.LocationCode))
		}
		return false, err
	}
	category, err := s.categoryRepo.GetByCode(ctx, strings.ToUpper(row.CategoryCode))
	if err != nil {
		if repository.IsNotFound(err) {
			return false, newValidationError("categoryCode", fmt.Sprintf("unknown category %q", row.CategoryCode))
		}
		return false, err
	}

	ref := row.ExternalRef
	req := &domain.CreatePurchaseOrderRequest{
		PONumber:     row.PONumber,
		LocationID:   location.ID,
		CategoryID:   category.ID,
		POValue:      row.POValue,
		Status:       domain.POStatus(strings.ToUpper(row.Status)),
		Source:       domain.POSourceERP,
		OrderDate:    row.OrderDate.Format("2006-01-02"),
		SupplierName: row.SupplierName,
		ExternalRef:  &ref,
	}
	if _, err := s.poSvc.Create(ctx, season.ID, req); err != nil {
		return false, err
	}
	return true, nil
}

func (s *ERPSyncService) importGoodsReceipt(ctx context.Context, row datawarehouse.GoodsReceiptRow) (bool, error) {
	if row.ExternalRef == "" {
		return false, newValidationError("externalRef", "ERP row has no reference")
	}
	exists, err := s.poRepo.GRNExistsByExternalRef(ctx, row.ExternalRef)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	po, err := s.poRepo.GetByExternalRef(ctx, row.POExternalRef)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, newValidationError("poExternalRef", fmt.Sprintf("unknown purchase order %q", row.POExternalRef))
		}
		return false, err
	}

	ref := row.ExternalRef
	req := &domain.CreateGRNRequest{
		POID:          po.ID,
		GRNDate:       row.GRNDate.Format("2006-01-02"),
		ReceivedValue: row.ReceivedValue,
		ExternalRef:   &ref,
	}
	if _, err := s.poSvc.CreateGRN(ctx, po.SeasonID, req); err != nil {
		return false, err
	}
	return true, nil
}
