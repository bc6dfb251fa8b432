package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"gorm.io/gorm"
)

// PurchaseOrderFilters narrows a season's purchase order listing
type PurchaseOrderFilters struct {
	Search     string
	LocationID *uuid.UUID
	CategoryID *uuid.UUID
	Status     *domain.POStatus
	Source     *domain.POSource
}

var purchaseOrderSortableFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"orderDate": "order_date",
	"poNumber":  "po_number",
	"poValue":   "po_value",
	"status":    "status",
}

// PurchaseOrderRepository handles purchase orders and their receipts
type PurchaseOrderRepository struct {
	db *gorm.DB
}

// NewPurchaseOrderRepository creates a new purchase order repository instance
func NewPurchaseOrderRepository(db *gorm.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *PurchaseOrderRepository) WithTx(tx *gorm.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{db: tx}
}

func (r *PurchaseOrderRepository) Create(ctx context.Context, po *domain.PurchaseOrder) error {
	return r.db.WithContext(ctx).Omit("GRNs").Create(po).Error
}

// GetByID retrieves a purchase order with its GRNs
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PurchaseOrder, error) {
	var po domain.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("GRNs", func(db *gorm.DB) *gorm.DB { return db.Order("grn_date ASC, created_at ASC") }).
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}

// GetByExternalRef finds a purchase order imported from an external system
func (r *PurchaseOrderRepository) GetByExternalRef(ctx context.Context, ref string) (*domain.PurchaseOrder, error) {
	var po domain.PurchaseOrder
	err := r.db.WithContext(ctx).Where("external_ref = ?", ref).First(&po).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}

// ExistsByNumber reports whether a PO number is taken
func (r *PurchaseOrderRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.PurchaseOrder{}).Where("po_number = ?", number).Count(&count).Error
	return count > 0, err
}

// UpdateStatus sets the status of a purchase order
func (r *PurchaseOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.POStatus) error {
	return r.db.WithContext(ctx).Model(&domain.PurchaseOrder{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

// Delete removes a purchase order together with its GRNs
func (r *PurchaseOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("po_id = ?", id).Delete(&domain.GRN{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.PurchaseOrder{}, "id = ?", id).Error
	})
}

// List returns a paginated list of a season's purchase orders with GRNs
func (r *PurchaseOrderRepository) List(ctx context.Context, seasonID uuid.UUID, page, pageSize int, filters *PurchaseOrderFilters, sort SortConfig) ([]domain.PurchaseOrder, int64, error) {
	var orders []domain.PurchaseOrder
	var total int64

	page, pageSize = NormalizePagination(page, pageSize)
	query := r.db.WithContext(ctx).Model(&domain.PurchaseOrder{}).Where("season_id = ?", seasonID)

	if filters != nil {
		if filters.Search != "" {
			searchPattern := "%" + strings.ToLower(filters.Search) + "%"
			query = query.Where("LOWER(po_number) LIKE ? OR LOWER(supplier_name) LIKE ?", searchPattern, searchPattern)
		}
		if filters.LocationID != nil {
			query = query.Where("location_id = ?", *filters.LocationID)
		}
		if filters.CategoryID != nil {
			query = query.Where("category_id = ?", *filters.CategoryID)
		}
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
		if filters.Source != nil {
			query = query.Where("source = ?", *filters.Source)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderClause := BuildOrderClause(sort, purchaseOrderSortableFields, "order_date")
	offset := (page - 1) * pageSize
	err := query.Preload("GRNs").Offset(offset).Limit(pageSize).Order(orderClause).Find(&orders).Error

	return orders, total, err
}

// ListBySeason returns every purchase order of a season with its GRNs. The
// consumption engine aggregates these in memory with decimal arithmetic.
func (r *PurchaseOrderRepository) ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]domain.PurchaseOrder, error) {
	var orders []domain.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("GRNs").
		Where("season_id = ?", seasonID).
		Order("order_date ASC, created_at ASC").
		Find(&orders).Error
	return orders, err
}

// StatusCount is the number of purchase orders in one status
type StatusCount struct {
	Status domain.POStatus
	Count  int64
}

// CountByStatus groups a season's purchase orders by status
func (r *PurchaseOrderRepository) CountByStatus(ctx context.Context, seasonID uuid.UUID) ([]StatusCount, error) {
	var results []StatusCount
	err := r.db.WithContext(ctx).Model(&domain.PurchaseOrder{}).
		Select("status, COUNT(*) as count").
		Where("season_id = ?", seasonID).
		Group("status").
		Order("status ASC").
		Scan(&results).Error
	return results, err
}

// CreateGRN records a goods-received note
func (r *PurchaseOrderRepository) CreateGRN(ctx context.Context, grn *domain.GRN) error {
	return r.db.WithContext(ctx).Create(grn).Error
}

// GetGRN retrieves a goods-received note
func (r *PurchaseOrderRepository) GetGRN(ctx context.Context, id uuid.UUID) (*domain.GRN, error) {
	var grn domain.GRN
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&grn).Error
	if err != nil {
		return nil, err
	}
	return &grn, nil
}

// GRNExistsByExternalRef reports whether an imported receipt is already stored
func (r *PurchaseOrderRepository) GRNExistsByExternalRef(ctx context.Context, ref string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.GRN{}).Where("external_ref = ?", ref).Count(&count).Error
	return count > 0, err
}

// DeleteGRN removes a goods-received note
func (r *PurchaseOrderRepository) DeleteGRN(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.GRN{}, "id = ?", id).Error
}

// ListGRNs returns the receipts of a purchase order
func (r *PurchaseOrderRepository) ListGRNs(ctx context.Context, poID uuid.UUID) ([]domain.GRN, error) {
	var grns []domain.GRN
	err := r.db.WithContext(ctx).Where("po_id = ?", poID).Order("grn_date ASC, created_at ASC").Find(&grns).Error
	return grns, err
}
