package handler

import (
	"errors"
	"net/http"

	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/repository"
	"github.com/straye-as/season-planning-api/internal/service"
	"go.uber.org/zap"
)

// PurchaseOrderHandler handles purchase orders, goods receipts and the ERP import trigger
type PurchaseOrderHandler struct {
	poService *service.PurchaseOrderService
	erpSync   *service.ERPSyncService
	logger    *zap.Logger
}

// NewPurchaseOrderHandler creates a new purchase order handler. erpSync may be
// nil when the ERP feed is disabled.
func NewPurchaseOrderHandler(poService *service.PurchaseOrderService, erpSync *service.ERPSyncService, logger *zap.Logger) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		poService: poService,
		erpSync:   erpSync,
		logger:    logger,
	}
}

// List godoc
// @Summary List purchase orders
// @Tags Purchasing
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search by PO number or supplier"
// @Param locationId query string false "Filter by location" format(uuid)
// @Param categoryId query string false "Filter by category" format(uuid)
// @Param status query string false "Filter by status"
// @Param source query string false "Filter by source" Enums(api, csv, erp)
// @Param sortBy query string false "Sort field" Enums(createdAt, updatedAt, poNumber, poValue, orderDate, status)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.PurchaseOrderDTO}
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/purchase-orders [get]
func (h *PurchaseOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	page, pageSize := parsePagination(r)

	locationID, err := queryUUID(r, "locationId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	categoryID, err := queryUUID(r, "categoryId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	filters := &repository.PurchaseOrderFilters{
		Search:     r.URL.Query().Get("search"),
		LocationID: locationID,
		CategoryID: categoryID,
	}
	if status := r.URL.Query().Get("status"); status != "" {
		s := domain.POStatus(status)
		filters.Status = &s
	}
	if source := r.URL.Query().Get("source"); source != "" {
		s := domain.POSource(source)
		filters.Source = &s
	}

	result, err := h.poService.List(r.Context(), seasonID, page, pageSize, filters, parseSort(r))
	if err != nil {
		respondServiceError(w, h.logger, "list purchase orders", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Create purchase order
// @Description Without a poNumber one is issued as PO-YYYYMMDD-NNNNNN
// @Tags Purchasing
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param request body domain.CreatePurchaseOrderRequest true "Purchase order"
// @Success 201 {object} domain.PurchaseOrderDTO
// @Failure 409 {object} domain.APIError "Duplicate number or workflow violation"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/purchase-orders [post]
func (h *PurchaseOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	var req domain.CreatePurchaseOrderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	po, err := h.poService.Create(r.Context(), seasonID, &req)
	if err != nil {
		respondServiceError(w, h.logger, "create purchase order", err)
		return
	}
	respondJSON(w, http.StatusCreated, po)
}

func (h *PurchaseOrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "poId")
	if !ok {
		return
	}

	po, err := h.poService.GetByID(r.Context(), seasonID, id)
	if err != nil {
		respondServiceError(w, h.logger, "get purchase order", err)
		return
	}
	respondJSON(w, http.StatusOK, po)
}

// UpdateStatus godoc
// @Summary Set purchase order status
// @Tags Purchasing
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param poId path string true "Purchase order ID" format(uuid)
// @Param request body domain.UpdatePurchaseOrderStatusRequest true "New status"
// @Success 200 {object} domain.PurchaseOrderDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/purchase-orders/{poId}/status [put]
func (h *PurchaseOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "poId")
	if !ok {
		return
	}
	var req domain.UpdatePurchaseOrderStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	po, err := h.poService.UpdateStatus(r.Context(), seasonID, id, req.Status)
	if err != nil {
		respondServiceError(w, h.logger, "update purchase order status", err)
		return
	}
	respondJSON(w, http.StatusOK, po)
}

func (h *PurchaseOrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "poId")
	if !ok {
		return
	}

	if err := h.poService.Delete(r.Context(), seasonID, id); err != nil {
		respondServiceError(w, h.logger, "delete purchase order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Fulfillment godoc
// @Summary Fulfillment of a purchase order
// @Description Received value against ordered value. displayPercent is capped at 100.
// @Tags Purchasing
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param poId path string true "Purchase order ID" format(uuid)
// @Success 200 {object} domain.FulfillmentDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/purchase-orders/{poId}/fulfillment [get]
func (h *PurchaseOrderHandler) Fulfillment(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "poId")
	if !ok {
		return
	}

	result, err := h.poService.Fulfillment(r.Context(), seasonID, id)
	if err != nil {
		respondServiceError(w, h.logger, "get fulfillment", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *PurchaseOrderHandler) ListGRNs(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "poId")
	if !ok {
		return
	}

	grns, err := h.poService.ListGRNs(r.Context(), seasonID, id)
	if err != nil {
		respondServiceError(w, h.logger, "list grns", err)
		return
	}
	respondJSON(w, http.StatusOK, grns)
}

// CreateGRN godoc
// @Summary Record a goods receipt
// @Tags Purchasing
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param request body domain.CreateGRNRequest true "Goods receipt"
// @Success 201 {object} domain.GRNDTO
// @Failure 409 {object} domain.APIError "Cancelled purchase order or workflow violation"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/grns [post]
func (h *PurchaseOrderHandler) CreateGRN(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	var req domain.CreateGRNRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	grn, err := h.poService.CreateGRN(r.Context(), seasonID, &req)
	if err != nil {
		respondServiceError(w, h.logger, "create grn", err)
		return
	}
	respondJSON(w, http.StatusCreated, grn)
}

func (h *PurchaseOrderHandler) DeleteGRN(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "grnId")
	if !ok {
		return
	}

	if err := h.poService.DeleteGRN(r.Context(), seasonID, id); err != nil {
		respondServiceError(w, h.logger, "delete grn", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncERP godoc
// @Summary Import purchase orders and receipts from the ERP now
// @Tags Purchasing
// @Produce json
// @Success 200 {object} service.ERPSyncResult
// @Failure 503 {object} domain.APIError "ERP feed disabled"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /erp/sync [post]
func (h *PurchaseOrderHandler) SyncERP(w http.ResponseWriter, r *http.Request) {
	if h.erpSync == nil {
		respondWithError(w, http.StatusServiceUnavailable, service.ErrERPNotAvailable.Error())
		return
	}

	result, err := h.erpSync.Sync(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrERPNotAvailable) {
			respondWithError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		respondServiceError(w, h.logger, "erp sync", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
