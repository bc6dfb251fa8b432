package handler

import (
	"errors"
	"net/http"

	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/repository"
	"github.com/straye-as/season-planning-api/internal/service"
	"github.com/straye-as/season-planning-api/internal/storage"
	"go.uber.org/zap"
)

// SeasonHandler handles seasons and their workflow
type SeasonHandler struct {
	seasonService   *service.SeasonService
	workflowService *service.WorkflowService
	archiveService  *service.ArchiveService
	guard           *service.MutationGuard
	logger          *zap.Logger
}

// NewSeasonHandler creates a new season handler instance
func NewSeasonHandler(
	seasonService *service.SeasonService,
	workflowService *service.WorkflowService,
	archiveService *service.ArchiveService,
	guard *service.MutationGuard,
	logger *zap.Logger,
) *SeasonHandler {
	return &SeasonHandler{
		seasonService:   seasonService,
		workflowService: workflowService,
		archiveService:  archiveService,
		guard:           guard,
		logger:          logger,
	}
}

// Create godoc
// @Summary Create season
// @Description Create a season in status created with a generated code
// @Tags Seasons
// @Accept json
// @Produce json
// @Param request body domain.CreateSeasonRequest true "Season data"
// @Success 201 {object} domain.SeasonDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons [post]
func (h *SeasonHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateSeasonRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	season, err := h.seasonService.Create(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, "create season", err)
		return
	}

	w.Header().Set("Location", "/api/v1/seasons/"+season.ID.String())
	respondJSON(w, http.StatusCreated, season)
}

// List godoc
// @Summary List seasons
// @Tags Seasons
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param search query string false "Search by name or code"
// @Param status query string false "Filter by workflow status"
// @Param sortBy query string false "Sort field" Enums(createdAt, updatedAt, name, code, startDate, status)
// @Param sortOrder query string false "Sort order" Enums(asc, desc) default(desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.SeasonDTO}
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons [get]
func (h *SeasonHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	filters := &repository.SeasonFilters{
		Search: r.URL.Query().Get("search"),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		s := domain.SeasonStatus(status)
		if !s.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Unknown season status")
			return
		}
		filters.Status = &s
	}

	result, err := h.seasonService.List(r.Context(), page, pageSize, filters, parseSort(r))
	if err != nil {
		respondServiceError(w, h.logger, "list seasons", err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetByID godoc
// @Summary Get season
// @Tags Seasons
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Success 200 {object} domain.SeasonDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId} [get]
func (h *SeasonHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}

	season, err := h.seasonService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, "get season", err)
		return
	}
	respondJSON(w, http.StatusOK, season)
}

// Update godoc
// @Summary Update season details
// @Description Update name and dates. Allowed until the season is locked.
// @Tags Seasons
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param request body domain.UpdateSeasonRequest true "Season data"
// @Success 200 {object} domain.SeasonDTO
// @Failure 409 {object} domain.APIError "Season is locked"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId} [put]
func (h *SeasonHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	var req domain.UpdateSeasonRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	season, err := h.seasonService.Update(r.Context(), id, &req)
	if err != nil {
		respondServiceError(w, h.logger, "update season", err)
		return
	}
	respondJSON(w, http.StatusOK, season)
}

// Workflow godoc
// @Summary Get workflow status
// @Tags Workflow
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Success 200 {object} domain.WorkflowView
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/workflow [get]
func (h *SeasonHandler) Workflow(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}

	view, err := h.workflowService.Status(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, "get workflow", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Transition godoc
// @Summary Advance the season workflow
// @Description Move the season to the next status. Skipping, repeating or reversing a step is rejected.
// @Tags Workflow
// @Accept json
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param request body domain.TransitionRequest true "Target status"
// @Success 200 {object} domain.WorkflowView
// @Failure 409 {object} domain.APIError "Invalid transition"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/workflow/transition [post]
func (h *SeasonHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	var req domain.TransitionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	view, err := h.workflowService.Transition(r.Context(), id, req.TargetStatus)
	if err != nil {
		respondServiceError(w, h.logger, "transition season", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// History godoc
// @Summary List workflow transitions
// @Tags Workflow
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Success 200 {array} domain.WorkflowHistoryDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/workflow/history [get]
func (h *SeasonHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}

	history, err := h.workflowService.History(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, "get workflow history", err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// Snapshot godoc
// @Summary Get the archived snapshot of a locked season
// @Tags Seasons
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Success 200 {object} service.SeasonSnapshot
// @Failure 404 {object} domain.APIError "Season not archived"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/snapshot [get]
func (h *SeasonHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	if h.archiveService == nil {
		respondWithError(w, http.StatusNotFound, "Season archiving is not enabled")
		return
	}

	season, err := h.seasonService.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, "get season", err)
		return
	}

	snapshot, err := h.archiveService.LoadSnapshot(r.Context(), season.Code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Season has not been archived")
			return
		}
		respondServiceError(w, h.logger, "load snapshot", err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// Permissions godoc
// @Summary Check what the season's workflow status allows
// @Description With kind and operation, answers whether that write would be accepted now and why not.
// @Description Without them, lists the allowed operations of every entity kind.
// @Description The answer can change as soon as the season transitions; writes are checked again.
// @Tags Workflow
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param kind query string false "Entity kind" Enums(season, location, plan, otb_plan, range_intent, range_architecture, purchase_order, grn, budget_adjustment)
// @Param operation query string false "Operation" Enums(create, update, delete, approve, recalculate)
// @Success 200 {object} domain.PermissionDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/permissions [get]
func (h *SeasonHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	kind := domain.EntityKind(r.URL.Query().Get("kind"))
	op := domain.Operation(r.URL.Query().Get("operation"))

	if kind == "" && op == "" {
		matrix, err := h.guard.Permissions(r.Context(), seasonID)
		if err != nil {
			respondServiceError(w, h.logger, "season permissions", err)
			return
		}
		respondJSON(w, http.StatusOK, matrix)
		return
	}
	if !kind.IsValid() {
		respondWithError(w, http.StatusBadRequest, "Unknown entity kind")
		return
	}
	if !op.IsValid() {
		respondWithError(w, http.StatusBadRequest, "Unknown operation")
		return
	}

	view, err := h.workflowService.Status(r.Context(), seasonID)
	if err != nil {
		respondServiceError(w, h.logger, "season permissions", err)
		return
	}
	answer := domain.PermissionDTO{
		SeasonID:      seasonID,
		CurrentStatus: view.CurrentStatus,
		EntityKind:    kind,
		Operation:     op,
		Allowed:       true,
	}

	err = h.guard.Authorize(r.Context(), seasonID, kind, op)
	var violation *service.WorkflowViolationError
	switch {
	case errors.As(err, &violation):
		answer.Allowed = false
		answer.CurrentStatus = violation.State
		answer.Reason = violation.Error()
	case err != nil:
		respondServiceError(w, h.logger, "season permissions", err)
		return
	}
	respondJSON(w, http.StatusOK, answer)
}
