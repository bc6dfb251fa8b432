package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/repository"
	"github.com/straye-as/season-planning-api/internal/service"
	"go.uber.org/zap"
)

// RangeArchitectureHandler handles the planned assortment lines of a season
type RangeArchitectureHandler struct {
	rangeService *service.RangeArchitectureService
	logger       *zap.Logger
}

// NewRangeArchitectureHandler creates a new range architecture handler instance
func NewRangeArchitectureHandler(rangeService *service.RangeArchitectureService, logger *zap.Logger) *RangeArchitectureHandler {
	return &RangeArchitectureHandler{
		rangeService: rangeService,
		logger:       logger,
	}
}

// List godoc
// @Summary List range architecture lines
// @Tags Range
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param categoryId query string false "Filter by category" format(uuid)
// @Param status query string false "Filter by status" Enums(DRAFT, SUBMITTED, APPROVED, REJECTED)
// @Param priceBand query string false "Filter by price band"
// @Success 200 {array} domain.RangeArchitectureDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/range-architectures [get]
func (h *RangeArchitectureHandler) List(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	categoryID, err := queryUUID(r, "categoryId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	filters := &repository.RangeArchitectureFilters{
		CategoryID: categoryID,
		PriceBand:  strings.TrimSpace(r.URL.Query().Get("priceBand")),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.RangeArchitectureStatus(strings.ToUpper(raw))
		if !status.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		filters.Status = &status
	}

	items, err := h.rangeService.List(r.Context(), seasonID, filters)
	if err != nil {
		respondServiceError(w, h.logger, "list range architecture", err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Create godoc
// @Summary Add a range architecture line
// @Description Allowed from otb_uploaded until the season is locked. New lines start as DRAFT.
// @Tags Range
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param request body domain.RangeArchitectureRequest true "Range line"
// @Success 201 {object} domain.RangeArchitectureDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Workflow violation"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/range-architectures [post]
func (h *RangeArchitectureHandler) Create(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	var req domain.RangeArchitectureRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ra, err := h.rangeService.Create(r.Context(), seasonID, &req)
	if err != nil {
		respondServiceError(w, h.logger, "create range architecture", err)
		return
	}
	respondJSON(w, http.StatusCreated, ra)
}

// BulkCreate godoc
// @Summary Add several range architecture lines at once
// @Description All lines are created in one transaction or none are.
// @Tags Range
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param request body domain.BulkRangeArchitectureRequest true "Range lines"
// @Success 201 {array} domain.RangeArchitectureDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Workflow violation"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/range-architectures/bulk [post]
func (h *RangeArchitectureHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	var req domain.BulkRangeArchitectureRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	items, err := h.rangeService.BulkCreate(r.Context(), seasonID, &req)
	if err != nil {
		respondServiceError(w, h.logger, "bulk create range architecture", err)
		return
	}
	respondJSON(w, http.StatusCreated, items)
}

func (h *RangeArchitectureHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "rangeId")
	if !ok {
		return
	}

	ra, err := h.rangeService.Get(r.Context(), seasonID, id)
	if err != nil {
		respondServiceError(w, h.logger, "get range architecture", err)
		return
	}
	respondJSON(w, http.StatusOK, ra)
}

// Update godoc
// @Summary Edit a range architecture line
// @Description Approved lines cannot be edited. Editing a submitted line moves it back to DRAFT.
// @Tags Range
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param rangeId path string true "Range line ID" format(uuid)
// @Param request body domain.RangeArchitectureRequest true "Range line"
// @Success 200 {object} domain.RangeArchitectureDTO
// @Failure 409 {object} domain.APIError "Approved line or workflow violation"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/range-architectures/{rangeId} [put]
func (h *RangeArchitectureHandler) Update(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "rangeId")
	if !ok {
		return
	}
	var req domain.RangeArchitectureRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ra, err := h.rangeService.Update(r.Context(), seasonID, id, &req)
	if err != nil {
		respondServiceError(w, h.logger, "update range architecture", err)
		return
	}
	respondJSON(w, http.StatusOK, ra)
}

// Delete godoc
// @Summary Delete a draft range architecture line
// @Tags Range
// @Param seasonId path string true "Season ID" format(uuid)
// @Param rangeId path string true "Range line ID" format(uuid)
// @Success 204
// @Failure 409 {object} domain.APIError "Line is not a draft"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/range-architectures/{rangeId} [delete]
func (h *RangeArchitectureHandler) Delete(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "rangeId")
	if !ok {
		return
	}

	if err := h.rangeService.Delete(r.Context(), seasonID, id); err != nil {
		respondServiceError(w, h.logger, "delete range architecture", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Submit godoc
// @Summary Submit range lines for review
// @Description Lines must be DRAFT or REJECTED. One line in another status fails the batch.
// @Tags Range
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param request body domain.RangeReviewRequest true "Lines to submit"
// @Success 200 {object} domain.RangeReviewResponse
// @Failure 409 {object} domain.APIError "Invalid line status or workflow violation"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/range-architectures/submit [post]
func (h *RangeArchitectureHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "submit range architecture", h.rangeService.Submit)
}

// Approve godoc
// @Summary Approve submitted range lines
// @Tags Range
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param request body domain.RangeReviewRequest true "Lines to approve"
// @Success 200 {object} domain.RangeReviewResponse
// @Failure 409 {object} domain.APIError "Line not submitted or workflow violation"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/range-architectures/approve [post]
func (h *RangeArchitectureHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "approve range architecture", h.rangeService.Approve)
}

// Reject godoc
// @Summary Reject submitted range lines
// @Description A comment is required
// @Tags Range
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param request body domain.RangeReviewRequest true "Lines to reject"
// @Success 200 {object} domain.RangeReviewResponse
// @Failure 400 {object} domain.APIError "Missing comment"
// @Failure 409 {object} domain.APIError "Line not submitted or workflow violation"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/range-architectures/reject [post]
func (h *RangeArchitectureHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, "reject range architecture", h.rangeService.Reject)
}

type reviewFunc func(ctx context.Context, seasonID uuid.UUID, req *domain.RangeReviewRequest) (*domain.RangeReviewResponse, error)

func (h *RangeArchitectureHandler) review(w http.ResponseWriter, r *http.Request, op string, fn reviewFunc) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	var req domain.RangeReviewRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := fn(r.Context(), seasonID, &req)
	if err != nil {
		respondServiceError(w, h.logger, op, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Compare godoc
// @Summary Compare range architecture with a prior season
// @Description Lines are matched on category, price band and style type
// @Tags Range
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param priorSeasonId query string true "Prior season ID" format(uuid)
// @Success 200 {object} domain.RangeComparisonReport
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/range-architectures/compare [get]
func (h *RangeArchitectureHandler) Compare(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	priorID, err := queryUUID(r, "priorSeasonId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if priorID == nil {
		respondWithError(w, http.StatusBadRequest, "priorSeasonId is required")
		return
	}

	report, err := h.rangeService.CompareSeasons(r.Context(), seasonID, *priorID)
	if err != nil {
		respondServiceError(w, h.logger, "compare range architecture", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
