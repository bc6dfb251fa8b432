package handler

import (
	"net/http"

	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/repository"
	"github.com/straye-as/season-planning-api/internal/service"
	"go.uber.org/zap"
)

// OTBHandler handles open-to-buy rows and the OTB calculator
type OTBHandler struct {
	otbService *service.OTBService
	logger     *zap.Logger
}

// NewOTBHandler creates a new OTB handler instance
func NewOTBHandler(otbService *service.OTBService, logger *zap.Logger) *OTBHandler {
	return &OTBHandler{
		otbService: otbService,
		logger:     logger,
	}
}

// Calculate godoc
// @Summary Evaluate the OTB formula
// @Description sales + closing stock - opening stock - on order. Negative results are returned as is.
// @Tags OTB
// @Accept json
// @Produce json
// @Param request body domain.OTBInputs true "Formula inputs"
// @Success 200 {object} domain.CalculateOTBResponse
// @Failure 400 {object} domain.APIError "Negative input"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /otb/calculate [post]
func (h *OTBHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req domain.OTBInputs
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.otbService.Calculate(req)
	if err != nil {
		respondServiceError(w, h.logger, "calculate otb", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// List godoc
// @Summary List OTB rows of a season
// @Tags OTB
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param locationId query string false "Filter by location" format(uuid)
// @Param categoryId query string false "Filter by category" format(uuid)
// @Success 200 {array} domain.OTBPlanDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/otb [get]
func (h *OTBHandler) List(w http.ResponseWriter, r *http.Request) {
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

	plans, err := h.otbService.List(r.Context(), seasonID, &repository.OTBPlanFilters{
		LocationID: locationID,
		CategoryID: categoryID,
	})
	if err != nil {
		respondServiceError(w, h.logger, "list otb plans", err)
		return
	}
	respondJSON(w, http.StatusOK, plans)
}

// Create godoc
// @Summary Create an OTB row
// @Description The spend limit is derived from the inputs. Allowed from plan_uploaded until the range is uploaded.
// @Tags OTB
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param request body domain.CreateOTBPlanRequest true "OTB inputs"
// @Success 201 {object} domain.OTBPlanDTO
// @Failure 409 {object} domain.APIError "Workflow violation"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/otb [post]
func (h *OTBHandler) Create(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	var req domain.CreateOTBPlanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	plan, err := h.otbService.Create(r.Context(), seasonID, &req)
	if err != nil {
		respondServiceError(w, h.logger, "create otb plan", err)
		return
	}
	respondJSON(w, http.StatusCreated, plan)
}

func (h *OTBHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "otbId")
	if !ok {
		return
	}

	plan, err := h.otbService.GetByID(r.Context(), seasonID, id)
	if err != nil {
		respondServiceError(w, h.logger, "get otb plan", err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

func (h *OTBHandler) Update(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "otbId")
	if !ok {
		return
	}
	var req domain.UpdateOTBPlanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	plan, err := h.otbService.Update(r.Context(), seasonID, id, &req)
	if err != nil {
		respondServiceError(w, h.logger, "update otb plan", err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

func (h *OTBHandler) Delete(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "otbId")
	if !ok {
		return
	}

	if err := h.otbService.Delete(r.Context(), seasonID, id); err != nil {
		respondServiceError(w, h.logger, "delete otb plan", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recalculate godoc
// @Summary Recalculate all OTB rows of a season
// @Tags OTB
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Success 200 {object} domain.RecalculateResponse
// @Failure 409 {object} domain.APIError "Season is locked"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/otb/recalculate [post]
func (h *OTBHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}

	count, err := h.otbService.Recalculate(r.Context(), seasonID)
	if err != nil {
		respondServiceError(w, h.logger, "recalculate otb", err)
		return
	}
	respondJSON(w, http.StatusOK, domain.RecalculateResponse{SeasonID: seasonID, UpdatedCount: count})
}
