package handler

import (
	"net/http"

	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/repository"
	"github.com/straye-as/season-planning-api/internal/service"
	"go.uber.org/zap"
)

// PlanHandler handles season plans and range intents
type PlanHandler struct {
	planService  *service.PlanService
	rangeService *service.RangeIntentService
	logger       *zap.Logger
}

// NewPlanHandler creates a new plan handler instance
func NewPlanHandler(planService *service.PlanService, rangeService *service.RangeIntentService, logger *zap.Logger) *PlanHandler {
	return &PlanHandler{
		planService:  planService,
		rangeService: rangeService,
		logger:       logger,
	}
}

// List godoc
// @Summary List season plans
// @Tags Plans
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param locationId query string false "Filter by location" format(uuid)
// @Param categoryId query string false "Filter by category" format(uuid)
// @Param approved query bool false "Filter by approval"
// @Success 200 {array} domain.SeasonPlanDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/plans [get]
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
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

	plans, err := h.planService.List(r.Context(), seasonID, &repository.PlanFilters{
		LocationID: locationID,
		CategoryID: categoryID,
		Approved:   parseBoolQuery(r, "approved"),
	})
	if err != nil {
		respondServiceError(w, h.logger, "list plans", err)
		return
	}
	respondJSON(w, http.StatusOK, plans)
}

// Create godoc
// @Summary Create a season plan row
// @Description Allowed from locations_defined until the OTB is uploaded
// @Tags Plans
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param request body domain.CreateSeasonPlanRequest true "Plan figures"
// @Success 201 {object} domain.SeasonPlanDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Workflow violation"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/plans [post]
func (h *PlanHandler) Create(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	var req domain.CreateSeasonPlanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	plan, err := h.planService.Create(r.Context(), seasonID, &req)
	if err != nil {
		respondServiceError(w, h.logger, "create plan", err)
		return
	}
	respondJSON(w, http.StatusCreated, plan)
}

func (h *PlanHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "planId")
	if !ok {
		return
	}

	plan, err := h.planService.GetByID(r.Context(), seasonID, id)
	if err != nil {
		respondServiceError(w, h.logger, "get plan", err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// Update godoc
// @Summary Update a season plan row
// @Tags Plans
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param planId path string true "Plan ID" format(uuid)
// @Param request body domain.UpdateSeasonPlanRequest true "Plan figures"
// @Success 200 {object} domain.SeasonPlanDTO
// @Failure 409 {object} domain.APIError "Workflow violation"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/plans/{planId} [put]
func (h *PlanHandler) Update(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "planId")
	if !ok {
		return
	}
	var req domain.UpdateSeasonPlanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	plan, err := h.planService.Update(r.Context(), seasonID, id, &req)
	if err != nil {
		respondServiceError(w, h.logger, "update plan", err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

func (h *PlanHandler) Delete(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "planId")
	if !ok {
		return
	}

	if err := h.planService.Delete(r.Context(), seasonID, id); err != nil {
		respondServiceError(w, h.logger, "delete plan", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Approve godoc
// @Summary Approve a season plan row
// @Tags Plans
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param planId path string true "Plan ID" format(uuid)
// @Success 200 {object} domain.SeasonPlanDTO
// @Failure 409 {object} domain.APIError "Already approved"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/plans/{planId}/approve [post]
func (h *PlanHandler) Approve(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "planId")
	if !ok {
		return
	}

	plan, err := h.planService.Approve(r.Context(), seasonID, id)
	if err != nil {
		respondServiceError(w, h.logger, "approve plan", err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

// ListRangeIntents godoc
// @Summary List range intents
// @Tags Range
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Success 200 {array} domain.RangeIntentDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/range-intents [get]
func (h *PlanHandler) ListRangeIntents(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}

	intents, err := h.rangeService.List(r.Context(), seasonID)
	if err != nil {
		respondServiceError(w, h.logger, "list range intents", err)
		return
	}
	respondJSON(w, http.StatusOK, intents)
}

// UpsertRangeIntent godoc
// @Summary Create or replace the range intent of a category
// @Description Core and fashion must sum to 100. A non-empty price band mix must also sum to 100.
// @Tags Range
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param request body domain.UpsertRangeIntentRequest true "Range intent"
// @Success 200 {object} domain.RangeIntentDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Workflow violation"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/range-intents [put]
func (h *PlanHandler) UpsertRangeIntent(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	var req domain.UpsertRangeIntentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	intent, err := h.rangeService.Upsert(r.Context(), seasonID, &req)
	if err != nil {
		respondServiceError(w, h.logger, "upsert range intent", err)
		return
	}
	respondJSON(w, http.StatusOK, intent)
}

func (h *PlanHandler) DeleteRangeIntent(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "intentId")
	if !ok {
		return
	}

	if err := h.rangeService.Delete(r.Context(), seasonID, id); err != nil {
		respondServiceError(w, h.logger, "delete range intent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
