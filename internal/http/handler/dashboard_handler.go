package handler

import (
	"net/http"

	"github.com/straye-as/season-planning-api/internal/service"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
	logger           *zap.Logger
}

func NewDashboardHandler(dashboardService *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// @Summary Get season dashboard
// @Description Returns the season overview in one call.
// @Description
// @Description **Workflow:** current status, flags and the next allowed status
// @Description
// @Description **Counts:** assigned locations, plan rows, OTB rows and pending adjustments
// @Description
// @Description **Budget:** season totals and per-category lines of the budget position.
// @Description `budgetUtilization` is committed / approved OTB and `fulfillmentRate` is received / committed,
// @Description both as percentages and null when the denominator is zero.
// @Description
// @Description **Purchase orders:** count and value per status
// @Description
// @Description **Alerts:** number of alerts raised as of today
// @Tags Dashboard
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Success 200 {object} domain.SeasonDashboardDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/dashboard [get]
func (h *DashboardHandler) GetSeasonDashboard(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}

	dashboard, err := h.dashboardService.GetSeasonDashboard(r.Context(), seasonID)
	if err != nil {
		respondServiceError(w, h.logger, "season dashboard", err)
		return
	}
	respondJSON(w, http.StatusOK, dashboard)
}

// GetClusterSummary godoc
// @Summary Budget and spend per cluster
// @Description Locations without a cluster are reported under "Unassigned". Adjustments are category-wide and not included.
// @Tags Analytics
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Success 200 {object} domain.ClusterSummaryReport
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/analytics/clusters [get]
func (h *DashboardHandler) GetClusterSummary(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}

	report, err := h.dashboardService.GetClusterSummary(r.Context(), seasonID)
	if err != nil {
		respondServiceError(w, h.logger, "cluster summary", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GetLocationPerformance godoc
// @Summary Locations ranked by budget utilization
// @Tags Analytics
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param clusterId query string false "Filter by cluster" format(uuid)
// @Param limit query int false "Top and bottom performers to return" default(5)
// @Success 200 {object} domain.LocationPerformanceReport
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/analytics/locations [get]
func (h *DashboardHandler) GetLocationPerformance(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	clusterID, err := queryUUID(r, "clusterId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := parseIntQuery(r, "limit", 5)
	if limit > 100 {
		limit = 100
	}

	report, err := h.dashboardService.GetLocationPerformance(r.Context(), seasonID, clusterID, limit)
	if err != nil {
		respondServiceError(w, h.logger, "location performance", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GetPriceBandAnalysis godoc
// @Summary Average core, fashion and price band weights of the range intents
// @Tags Analytics
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Param categoryId query string false "Filter by category" format(uuid)
// @Success 200 {object} domain.PriceBandAnalysis
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/analytics/price-bands [get]
func (h *DashboardHandler) GetPriceBandAnalysis(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}
	categoryID, err := queryUUID(r, "categoryId")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	analysis, err := h.dashboardService.GetPriceBandAnalysis(r.Context(), seasonID, categoryID)
	if err != nil {
		respondServiceError(w, h.logger, "price band analysis", err)
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}

// GetPlanVsExecution godoc
// @Summary Planned sales against committed and received value per category
// @Description Variance is received minus planned. Within 1% of plan counts as within tolerance.
// @Tags Analytics
// @Produce json
// @Param seasonId path string true "Season ID" format(uuid)
// @Success 200 {object} domain.PlanExecutionReport
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /seasons/{seasonId}/analytics/plan-vs-execution [get]
func (h *DashboardHandler) GetPlanVsExecution(w http.ResponseWriter, r *http.Request) {
	seasonID, ok := urlUUID(w, r, "seasonId")
	if !ok {
		return
	}

	report, err := h.dashboardService.GetPlanVsExecution(r.Context(), seasonID)
	if err != nil {
		respondServiceError(w, h.logger, "plan vs execution", err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// GetWorkflowStatusSummary godoc
// @Summary Seasons per workflow status
// @Description Counts every season by status and lists the ten latest transitions
// @Tags Analytics
// @Produce json
// @Success 200 {object} domain.WorkflowStatusSummary
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /analytics/workflow-status [get]
func (h *DashboardHandler) GetWorkflowStatusSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.dashboardService.GetWorkflowStatusSummary(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, "workflow status summary", err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
