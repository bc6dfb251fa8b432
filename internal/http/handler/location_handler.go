package handler

import (
	"net/http"

	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/repository"
	"github.com/straye-as/season-planning-api/internal/service"
	"go.uber.org/zap"
)

// LocationHandler handles location master data and season assignments
type LocationHandler struct {
	locationService *service.LocationService
	logger          *zap.Logger
}

// NewLocationHandler creates a new location handler instance
func NewLocationHandler(locationService *service.LocationService, logger *zap.Logger) *LocationHandler {
	return &LocationHandler{
		locationService: locationService,
		logger:          logger,
	}
}

// List godoc
// @Summary List locations
// @Tags Locations
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search by name, code or city"
// @Param type query string false "Filter by type" Enums(store, warehouse)
// @Param clusterId query string false "Filter by cluster" format(uuid)
// @Param isActive query bool false "Filter by active flag"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.LocationDTO}
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /locations [get]
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	clusterID, err := queryUUID(r, "clusterId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	filters := &repository.LocationFilters{
		Search:    r.URL.Query().Get("search"),
		ClusterID: clusterID,
		IsActive:  parseBoolQuery(r, "isActive"),
	}
	if t := r.URL.Query().Get("type"); t != "" {
		lt := domain.LocationType(t)
		filters.Type = &lt
	}

	result, err := h.locationService.List(r.Context(), page, pageSize, filters, parseSort(r))
	if err != nil {
		respondServiceError(w, h.logger, "list locations", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Create location
// @Tags Locations
// @Accept json
// @Produce json
// @Param request body domain.CreateLocationRequest true "Location data"
// @Success 201 {object} domain.LocationDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /locations [post]
func (h *LocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLocationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	location, err := h.locationService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, "create location", err)
		return
	}
	respondJSON(w, http.StatusCreated, location)
}

// GetByID godoc
// @Summary Get location
// @Tags Locations
// @Produce json
// @Param locationId path string true "Location ID" format(uuid)
// @Success 200 {object} domain.LocationDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /locations/{locationId} [get]
func (h *LocationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "locationId")
	if !ok {
		return
	}

	location, err := h.locationService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, "get location", err)
		return
	}
	respondJSON(w, http.StatusOK, location)
}

// Update godoc
// @Summary Update location
// @Tags Locations
// @Accept json
// @Produce json
// @Param locationId path string true "Location ID" format(uuid)
// @Param request body domain.UpdateLocationRequest true "Location data"
// @Success 200 {object} domain.LocationDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /locations/{locationId} [put]
func (h *LocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "locationId")
	if !ok {
		return
	}
	var req domain.UpdateLocationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	location, err := h.locationService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, "update location", err)
		return
	}
	respondJSON(w, http.StatusOK, location)
}

// Delete godoc
// @Summary Delete location
// @Description A location assigned to any season cannot be deleted
// @Tags Locations
// @Param locationId path string true "Location ID" format(uuid)
// @Success 204
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /locations/{locationId} [delete]
func (h *LocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "locationId")
	if !ok {
		return
	}

	if err := h.locationService.Delete(r.Context(), id); err != nil {
		respondServiceError(w, h.logger, "delete location", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListForSeason godoc
// @Summary List locations assigned to a season
// @Tags Locations
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Success 200 {array} domain.LocationDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/locations [get]
func (h *LocationHandler) ListForSeason(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}

	locations, err := h.locationService.ListForSeason(r.Context(), seasonID)
	if err != nil {
		respondServiceError(w, h.logger, "list season locations", err)
		return
	}
	respondJSON(w, http.StatusOK, locations)
}

// Assign godoc
// @Summary Assign a location to a season
// @Tags Locations
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param request body domain.AssignLocationRequest true "Location to assign"
// @Success 201 {object} domain.LocationDTO
// @Failure 409 {object} domain.APIError "Already assigned or season locked"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/locations [post]
func (h *LocationHandler) Assign(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	var req domain.AssignLocationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	location, err := h.locationService.AssignToSeason(r.Context(), seasonID, req.LocationID)
	if err != nil {
		respondServiceError(w, h.logger, "assign location", err)
		return
	}
	respondJSON(w, http.StatusCreated, location)
}

// Unassign godoc
// @Summary Remove a location from a season
// @Tags Locations
// @Param seasonId path string true "Season ID" format(uuid)
// @Param locationId path string true "Location ID" format(uuid)
// @Success 204
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/locations/{locationId} [delete]
func (h *LocationHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	locationID, ok := urlUUID(w, r, "locationId")
	if !ok {
		return
	}

	if err := h.locationService.UnassignFromSeason(r.Context(), seasonID, locationID); err != nil {
		respondServiceError(w, h.logger, "unassign location", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
