package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/mapper"
	"github.com/straye-as/season-planning-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PurchaseOrderService manages purchase orders and goods-received notes
type PurchaseOrderService struct {
	poRepo       *repository.PurchaseOrderRepository
	locationRepo *repository.LocationRepository
	categoryRepo *repository.CategoryRepository
	numberSvc    *NumberSequenceService
	guard        *MutationGuard
	auditSvc     *AuditLogService
	logger       *zap.Logger
}

// NewPurchaseOrderService creates a new purchase order service
func NewPurchaseOrderService(
	poRepo *repository.PurchaseOrderRepository,
	locationRepo *repository.LocationRepository,
	categoryRepo *repository.CategoryRepository,
	numberSvc *NumberSequenceService,
	guard *MutationGuard,
	auditSvc *AuditLogService,
	logger *zap.Logger,
) *PurchaseOrderService {
	return &PurchaseOrderService{
		poRepo:       poRepo,
		locationRepo: locationRepo,
		categoryRepo: categoryRepo,
		numberSvc:    numberSvc,
		guard:        guard,
		auditSvc:     auditSvc,
		logger:       logger,
	}
}

// Create records a purchase order against the season. Without a PO number
// one is issued from the daily number sequence.
func (s *PurchaseOrderService) Create(ctx context.Context, seasonID uuid.UUID, req *domain.CreatePurchaseOrderRequest) (*domain.PurchaseOrderDTO, error) {
	if err := requireNonNegative("poValue", req.POValue); err != nil {
		return nil, err
	}
	orderDate, err := parseDate("orderDate", req.OrderDate)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = domain.POStatusConfirmed
	}
	if !status.IsValid() {
		return nil, newValidationError("status", "unknown purchase order status")
	}
	source := req.Source
	if source == "" {
		source = domain.POSourceAPI
	}
	if !source.IsValid() {
		return nil, newValidationError("source", "must be api, csv or erp")
	}
	if err := checkCategories(ctx, s.categoryRepo, req.CategoryID); err != nil {
		return nil, err
	}

	po := &domain.PurchaseOrder{
		PONumber:     strings.TrimSpace(req.PONumber),
		SeasonID:     seasonID,
		LocationID:   req.LocationID,
		CategoryID:   req.CategoryID,
		POValue:      money(req.POValue),
		Status:       status,
		Source:       source,
		OrderDate:    orderDate,
		SupplierName: req.SupplierName,
		ExternalRef:  req.ExternalRef,
	}

	err = s.guard.Guarded(ctx, seasonID, domain.EntityKindPurchaseOrder, domain.OperationCreate, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.poRepo.WithTx(tx)
		if err := checkAssigned(ctx, s.locationRepo.WithTx(tx), seasonID, req.LocationID); err != nil {
			return err
		}

		if po.PONumber == "" {
			number, err := s.numberSvc.NextPONumber(ctx, tx, time.Now())
			if err != nil {
				return err
			}
			po.PONumber = number
		} else {
			taken, err := repo.ExistsByNumber(ctx, po.PONumber)
			if err != nil {
				return err
			}
			if taken {
				return ErrConflict
			}
		}

		if err := repo.Create(ctx, po); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrConflict
			}
			return mapper.FormatError("purchase order", "create", err)
		}
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionCreate,
			EntityType: domain.EntityKindPurchaseOrder,
			EntityID:   &po.ID,
			NewValues:  mapper.ToPurchaseOrderDTO(po),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase order created",
		zap.String("season_id", seasonID.String()),
		zap.String("po_number", po.PONumber),
		zap.String("po_value", po.POValue.StringFixed(2)),
		zap.String("source", string(po.Source)))
	dto := mapper.ToPurchaseOrderDTO(po)
	return &dto, nil
}

// GetByID returns a purchase order of the season with its receipts
func (s *PurchaseOrderService) GetByID(ctx context.Context, seasonID, id uuid.UUID) (*domain.PurchaseOrderDTO, error) {
	po, err := s.get(ctx, s.poRepo, seasonID, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToPurchaseOrderDTO(po)
	return &dto, nil
}

// List returns a page of the season's purchase orders
func (s *PurchaseOrderService) List(ctx context.Context, seasonID uuid.UUID, page, pageSize int, filters *repository.PurchaseOrderFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePagination(page, pageSize)
	orders, total, err := s.poRepo.List(ctx, seasonID, page, pageSize, filters, sort)
	if err != nil {
		return nil, err
	}
	dtos := make([]domain.PurchaseOrderDTO, len(orders))
	for i := range orders {
		dtos[i] = mapper.ToPurchaseOrderDTO(&orders[i])
	}
	return mapper.NewPaginatedResponse(dtos, total, page, pageSize), nil
}

// UpdateStatus sets the status of a purchase order
func (s *PurchaseOrderService) UpdateStatus(ctx context.Context, seasonID, id uuid.UUID, status domain.POStatus) (*domain.PurchaseOrderDTO, error) {
	if !status.IsValid() {
		return nil, newValidationError("status", "unknown purchase order status")
	}

	var po *domain.PurchaseOrder
	err := s.guard.Guarded(ctx, seasonID, domain.EntityKindPurchaseOrder, domain.OperationUpdate, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.poRepo.WithTx(tx)
		existing, err := s.get(ctx, repo, seasonID, id)
		if err != nil {
			return err
		}
		old := existing.Status
		if old == status {
			po = existing
			return nil
		}

		if err := repo.UpdateStatus(ctx, id, status); err != nil {
			return mapper.FormatError("purchase order", "update status of", err)
		}
		existing.Status = status
		po = existing
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionUpdate,
			EntityType: domain.EntityKindPurchaseOrder,
			EntityID:   &id,
			OldValues:  map[string]interface{}{"status": old},
			NewValues:  map[string]interface{}{"status": status},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("purchase order status updated",
		zap.String("season_id", seasonID.String()),
		zap.String("po_number", po.PONumber),
		zap.String("status", string(status)))
	dto := mapper.ToPurchaseOrderDTO(po)
	return &dto, nil
}

// Delete removes a purchase order and its receipts
func (s *PurchaseOrderService) Delete(ctx context.Context, seasonID, id uuid.UUID) error {
	return s.guard.Guarded(ctx, seasonID, domain.EntityKindPurchaseOrder, domain.OperationDelete, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.poRepo.WithTx(tx)
		existing, err := s.get(ctx, repo, seasonID, id)
		if err != nil {
			return err
		}
		if err := repo.Delete(ctx, id); err != nil {
			return mapper.FormatError("purchase order", "delete", err)
		}
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionDelete,
			EntityType: domain.EntityKindPurchaseOrder,
			EntityID:   &id,
			OldValues:  mapper.ToPurchaseOrderDTO(existing),
		})
	})
}

// Fulfillment reports receipts against a purchase order
func (s *PurchaseOrderService) Fulfillment(ctx context.Context, seasonID, id uuid.UUID) (*domain.FulfillmentDTO, error) {
	po, err := s.get(ctx, s.poRepo, seasonID, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToFulfillmentDTO(po)
	return &dto, nil
}

// CreateGRN records a receipt against a purchase order. Receiving more than
// was ordered is allowed. The PO status follows the cumulative receipts.
func (s *PurchaseOrderService) CreateGRN(ctx context.Context, seasonID uuid.UUID, req *domain.CreateGRNRequest) (*domain.GRNDTO, error) {
	if err := requireNonNegative("receivedValue", req.ReceivedValue); err != nil {
		return nil, err
	}
	grnDate, err := parseDate("grnDate", req.GRNDate)
	if err != nil {
		return nil, err
	}

	grn := &domain.GRN{
		POID:          req.POID,
		GRNDate:       grnDate,
		ReceivedValue: money(req.ReceivedValue),
		ExternalRef:   req.ExternalRef,
	}

	var poNumber string
	err = s.guard.Guarded(ctx, seasonID, domain.EntityKindGRN, domain.OperationCreate, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.poRepo.WithTx(tx)
		po, err := s.get(ctx, repo, seasonID, req.POID)
		if err != nil {
			return err
		}
		if po.Status == domain.POStatusCancelled {
			return newInvalidStateError("purchase order", po.ID, string(po.Status),
				"cannot receive goods against a cancelled purchase order")
		}
		poNumber = po.PONumber

		if err := repo.CreateGRN(ctx, grn); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrConflict
			}
			return mapper.FormatError("GRN", "create", err)
		}
		if err := s.syncReceiptStatus(ctx, repo, po); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionCreate,
			EntityType: domain.EntityKindGRN,
			EntityID:   &grn.ID,
			NewValues:  mapper.ToGRNDTO(grn),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("GRN recorded",
		zap.String("season_id", seasonID.String()),
		zap.String("po_number", poNumber),
		zap.String("received_value", grn.ReceivedValue.StringFixed(2)))
	dto := mapper.ToGRNDTO(grn)
	return &dto, nil
}

// DeleteGRN removes a receipt and moves the PO status back if needed
func (s *PurchaseOrderService) DeleteGRN(ctx context.Context, seasonID, grnID uuid.UUID) error {
	return s.guard.Guarded(ctx, seasonID, domain.EntityKindGRN, domain.OperationDelete, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.poRepo.WithTx(tx)
		grn, err := repo.GetGRN(ctx, grnID)
		if err != nil {
			if repository.IsNotFound(err) {
				return newNotFoundError("GRN", grnID)
			}
			return err
		}
		po, err := s.get(ctx, repo, seasonID, grn.POID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return newNotFoundError("GRN", grnID)
			}
			return err
		}

		if err := repo.DeleteGRN(ctx, grnID); err != nil {
			return mapper.FormatError("GRN", "delete", err)
		}
		if err := s.syncReceiptStatus(ctx, repo, po); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionDelete,
			EntityType: domain.EntityKindGRN,
			EntityID:   &grnID,
			OldValues:  mapper.ToGRNDTO(grn),
		})
	})
}

// ListGRNs returns the receipts of a purchase order
func (s *PurchaseOrderService) ListGRNs(ctx context.Context, seasonID, poID uuid.UUID) ([]domain.GRNDTO, error) {
	po, err := s.get(ctx, s.poRepo, seasonID, poID)
	if err != nil {
		return nil, err
	}
	dtos := make([]domain.GRNDTO, len(po.GRNs))
	for i := range po.GRNs {
		dtos[i] = mapper.ToGRNDTO(&po.GRNs[i])
	}
	return dtos, nil
}

// syncReceiptStatus derives PARTIAL or COMPLETE from the stored receipts.
// Removing every receipt moves a PARTIAL or COMPLETE order back to CONFIRMED.
func (s *PurchaseOrderService) syncReceiptStatus(ctx context.Context, repo *repository.PurchaseOrderRepository, po *domain.PurchaseOrder) error {
	grns, err := repo.ListGRNs(ctx, po.ID)
	if err != nil {
		return err
	}
	received := decimal.Zero
	for _, g := range grns {
		received = received.Add(g.ReceivedValue)
	}

	next := receiptStatus(po.Status, po.POValue, received)
	if next == po.Status {
		return nil
	}
	if err := repo.UpdateStatus(ctx, po.ID, next); err != nil {
		return mapper.FormatError("purchase order", "update status of", err)
	}
	s.logger.Debug("purchase order status follows receipts",
		zap.String("po_number", po.PONumber),
		zap.String("from", string(po.Status)),
		zap.String("to", string(next)))
	po.Status = next
	return nil
}

func receiptStatus(current domain.POStatus, ordered, received decimal.Decimal) domain.POStatus {
	if current == domain.POStatusCancelled {
		return current
	}
	switch {
	case received.IsPositive() && received.GreaterThanOrEqual(ordered):
		return domain.POStatusComplete
	case received.IsPositive():
		return domain.POStatusPartial
	case current == domain.POStatusPartial || current == domain.POStatusComplete:
		return domain.POStatusConfirmed
	}
	return current
}

func (s *PurchaseOrderService) get(ctx context.Context, repo *repository.PurchaseOrderRepository, seasonID, id uuid.UUID) (*domain.PurchaseOrder, error) {
	po, err := repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newNotFoundError("purchase order", id)
		}
		return nil, err
	}
	if po.SeasonID != seasonID {
		return nil, newNotFoundError("purchase order", id)
	}
	return po, nil
}
