package handler

import (
	"net/http"

	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/service"
	"go.uber.org/zap"
)

// BudgetHandler exposes the budget consumption engine: position, monthly
// consumption, forecast, alerts and budget adjustments
type BudgetHandler struct {
	consumptionService *service.ConsumptionService
	logger             *zap.Logger
}

// NewBudgetHandler creates a new budget handler instance
func NewBudgetHandler(consumptionService *service.ConsumptionService, logger *zap.Logger) *BudgetHandler {
	return &BudgetHandler{
		consumptionService: consumptionService,
		logger:             logger,
	}
}

// Position godoc
// @Summary Budget position
// @Description Approved OTB, committed and received spend with utilization and fulfillment ratios.
// @Description With groupBy=category_location, approved adjustments appear on their own line per
// @Description category without a locationId, since adjustments move budget between categories only.
// @Tags Budget
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param groupBy query string false "Grouping" Enums(category, category_location) default(category)
// @Success 200 {object} domain.BudgetPositionReport
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/budget/position [get]
func (h *BudgetHandler) Position(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	groupBy := domain.PositionGrouping(r.URL.Query().Get("groupBy"))

	report, err := h.consumptionService.Position(r.Context(), seasonID, groupBy)
	if err != nil {
		respondServiceError(w, h.logger, "budget position", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Consumption godoc
// @Summary Monthly budget consumption
// @Tags Budget
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Success 200 {object} domain.ConsumptionReport
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/budget/consumption [get]
func (h *BudgetHandler) Consumption(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}

	report, err := h.consumptionService.Consumption(r.Context(), seasonID)
	if err != nil {
		respondServiceError(w, h.logger, "budget consumption", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Forecast godoc
// @Summary Spend forecast
// @Description Projects season-end spend per category from the run rate up to asOf
// @Tags Budget
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param asOf query string false "Reference date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} domain.ForecastReport
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/budget/forecast [get]
func (h *BudgetHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	asOf, err := queryDate(r, "asOf")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.consumptionService.Forecast(r.Context(), seasonID, asOf)
	if err != nil {
		respondServiceError(w, h.logger, "budget forecast", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// Alerts godoc
// @Summary Budget alerts
// @Tags Budget
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param asOf query string false "Reference date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} domain.AlertReport
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/budget/alerts [get]
func (h *BudgetHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	asOf, err := queryDate(r, "asOf")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.consumptionService.Alerts(r.Context(), seasonID, asOf)
	if err != nil {
		respondServiceError(w, h.logger, "budget alerts", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// ListAdjustments godoc
// @Summary List budget adjustments
// @Tags Budget
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param status query string false "Filter by status" Enums(pending, approved, rejected)
// @Success 200 {array} domain.BudgetAdjustmentDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/adjustments [get]
func (h *BudgetHandler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	var status *domain.AdjustmentStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.AdjustmentStatus(raw)
		status = &s
	}

	adjustments, err := h.consumptionService.ListAdjustments(r.Context(), seasonID, status)
	if err != nil {
		respondServiceError(w, h.logger, "list adjustments", err)
		return
	}
	respondJSON(w, http.StatusOK, adjustments)
}

func (h *BudgetHandler) GetAdjustment(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "adjustmentId")
	if !ok {
		return
	}

	adj, err := h.consumptionService.GetAdjustment(r.Context(), seasonID, id)
	if err != nil {
		respondServiceError(w, h.logger, "get adjustment", err)
		return
	}
	respondJSON(w, http.StatusOK, adj)
}

// ProposeAdjustment godoc
// @Summary Propose moving budget between categories
// @Tags Budget
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param request body domain.ProposeAdjustmentRequest true "Adjustment"
// @Success 201 {object} domain.BudgetAdjustmentDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/adjustments [post]
func (h *BudgetHandler) ProposeAdjustment(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	var req domain.ProposeAdjustmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	adj, err := h.consumptionService.ProposeAdjustment(r.Context(), seasonID, &req)
	if err != nil {
		respondServiceError(w, h.logger, "propose adjustment", err)
		return
	}
	respondJSON(w, http.StatusCreated, adj)
}

// ApproveAdjustment godoc
// @Summary Approve a pending adjustment
// @Tags Budget
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param adjustmentId path string true "Adjustment ID" format(uuid)
// @Success 200 {object} domain.BudgetAdjustmentDTO
// @Failure 403 {object} domain.APIError "Not an approver"
// @Failure 409 {object} domain.APIError "Not pending"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/adjustments/{adjustmentId}/approve [post]
func (h *BudgetHandler) ApproveAdjustment(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "adjustmentId")
	if !ok {
		return
	}

	adj, err := h.consumptionService.ApproveAdjustment(r.Context(), seasonID, id)
	if err != nil {
		respondServiceError(w, h.logger, "approve adjustment", err)
		return
	}
	respondJSON(w, http.StatusOK, adj)
}

// RejectAdjustment godoc
// @Summary Reject a pending adjustment
// @Tags Budget
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param adjustmentId path string true "Adjustment ID" format(uuid)
// @Param request body domain.RejectAdjustmentRequest true "Rejection reason"
// @Success 200 {object} domain.BudgetAdjustmentDTO
// @Failure 409 {object} domain.APIError "Not pending"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/adjustments/{adjustmentId}/reject [post]
func (h *BudgetHandler) RejectAdjustment(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "adjustmentId")
	if !ok {
		return
	}
	var req domain.RejectAdjustmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	adj, err := h.consumptionService.RejectAdjustment(r.Context(), seasonID, id, req.Reason)
	if err != nil {
		respondServiceError(w, h.logger, "reject adjustment", err)
		return
	}
	respondJSON(w, http.StatusOK, adj)
}
