package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/season-planning-api/internal/auth"
	"github.com/straye-as/season-planning-api/internal/config"
	"github.com/straye-as/season-planning-api/internal/database"
	"github.com/straye-as/season-planning-api/internal/datawarehouse"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/http/handler"
	"github.com/straye-as/season-planning-api/internal/http/middleware"
	"github.com/straye-as/season-planning-api/internal/metrics"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/straye-as/season-planning-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg                  *config.Config
	logger               *zap.Logger
	db                   *gorm.DB
	erp                  *datawarehouse.Client
	recorder             *metrics.Recorder
	authMiddleware       *auth.Middleware
	rateLimiter          *middleware.RateLimiter
	seasonHandler        *handler.SeasonHandler
	locationHandler      *handler.LocationHandler
	masterDataHandler    *handler.MasterDataHandler
	planHandler          *handler.PlanHandler
	rangeHandler         *handler.RangeArchitectureHandler
	otbHandler           *handler.OTBHandler
	purchaseOrderHandler *handler.PurchaseOrderHandler
	budgetHandler        *handler.BudgetHandler
	dashboardHandler     *handler.DashboardHandler
	auditHandler         *handler.AuditHandler
	authHandler          *handler.AuthHandler
	userHandler          *handler.UserHandler
}

// NewRouter wires handlers onto routes. erp may be nil when the ERP feed is
// disabled and recorder may be nil when metrics are off.
func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	erp *datawarehouse.Client,
	recorder *metrics.Recorder,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	seasonHandler *handler.SeasonHandler,
	locationHandler *handler.LocationHandler,
	masterDataHandler *handler.MasterDataHandler,
	planHandler *handler.PlanHandler,
	rangeHandler *handler.RangeArchitectureHandler,
	otbHandler *handler.OTBHandler,
	purchaseOrderHandler *handler.PurchaseOrderHandler,
	budgetHandler *handler.BudgetHandler,
	dashboardHandler *handler.DashboardHandler,
	auditHandler *handler.AuditHandler,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
) *Router {
	return &Router{
		cfg:                  cfg,
		logger:               logger,
		db:                   db,
		erp:                  erp,
		recorder:             recorder,
		authMiddleware:       authMiddleware,
		rateLimiter:          rateLimiter,
		seasonHandler:        seasonHandler,
		locationHandler:      locationHandler,
		masterDataHandler:    masterDataHandler,
		planHandler:          planHandler,
		rangeHandler:         rangeHandler,
		otbHandler:           otbHandler,
		purchaseOrderHandler: purchaseOrderHandler,
		budgetHandler:        budgetHandler,
		dashboardHandler:     dashboardHandler,
		auditHandler:         auditHandler,
		authHandler:          authHandler,
		userHandler:          userHandler,
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	if rt.cfg.Metrics.Enabled {
		r.Use(middleware.Metrics(rt.recorder))
	}
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Health check (basic liveness)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	if rt.cfg.Metrics.Enabled && rt.recorder != nil {
		r.Method(http.MethodGet, rt.cfg.Metrics.Path, rt.recorder.Handler())
	}

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	planner := rt.authMiddleware.RequireRole(domain.RolePlanner)
	purchaser := rt.authMiddleware.RequireRole(domain.RolePlanner, domain.RoleBuyer, domain.RoleAPIService)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		r.Use(rt.rateLimiter.Limit)

		r.Get("/auth/me", rt.authHandler.Me)

		// Formula only, no season state involved
		r.Post("/otb/calculate", rt.otbHandler.Calculate)

		r.Route("/audit", func(r chi.Router) {
			r.Use(rt.authMiddleware.RequireRole(domain.RoleFinanceLead))
			r.Get("/", rt.auditHandler.List)
			r.Get("/{id}", rt.auditHandler.GetByID)
			r.Get("/entity/{entityType}/{entityId}", rt.auditHandler.EntityHistory)
		})

		r.With(rt.authMiddleware.RequireRole(domain.RoleAPIService)).Post("/erp/sync", rt.purchaseOrderHandler.SyncERP)

		r.Get("/analytics/workflow-status", rt.dashboardHandler.GetWorkflowStatusSummary)

		// User directory, admin only for writes
		r.Route("/users", func(r chi.Router) {
			admin := rt.authMiddleware.RequireRole(domain.RoleAdmin)
			r.Get("/", rt.userHandler.List)
			r.With(admin).Post("/", rt.userHandler.Create)
			r.Get("/{id}", rt.userHandler.GetByID)
			r.With(admin).Put("/{id}", rt.userHandler.Update)
			r.With(admin).Delete("/{id}", rt.userHandler.Delete)
		})

		// Master data
		r.Route("/locations", func(r chi.Router) {
			r.Get("/", rt.locationHandler.List)
			r.With(planner).Post("/", rt.locationHandler.Create)
			r.Get("/{locationId}", rt.locationHandler.GetByID)
			r.With(planner).Put("/{locationId}", rt.locationHandler.Update)
			r.With(planner).Delete("/{locationId}", rt.locationHandler.Delete)
		})
		r.Route("/clusters", func(r chi.Router) {
			r.Get("/", rt.masterDataHandler.ListClusters)
			r.With(planner).Post("/", rt.masterDataHandler.CreateCluster)
			r.Get("/{clusterId}", rt.masterDataHandler.GetCluster)
			r.With(planner).Put("/{clusterId}", rt.masterDataHandler.UpdateCluster)
			r.With(planner).Delete("/{clusterId}", rt.masterDataHandler.DeleteCluster)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", rt.masterDataHandler.ListCategories)
			r.With(planner).Post("/", rt.masterDataHandler.CreateCategory)
			r.Get("/{categoryId}", rt.masterDataHandler.GetCategory)
			r.With(planner).Put("/{categoryId}", rt.masterDataHandler.UpdateCategory)
			r.With(planner).Delete("/{categoryId}", rt.masterDataHandler.DeleteCategory)
		})

		// Seasons
		r.Route("/seasons", func(r chi.Router) {
			r.Get("/", rt.seasonHandler.List)
			r.With(planner).Post("/", rt.seasonHandler.Create)

			r.Route("/{seasonId}", func(r chi.Router) {
				r.Get("/", rt.seasonHandler.GetByID)
				r.With(planner).Put("/", rt.seasonHandler.Update)
				r.Get("/dashboard", rt.dashboardHandler.GetSeasonDashboard)
				r.Get("/snapshot", rt.seasonHandler.Snapshot)
				r.Get("/permissions", rt.seasonHandler.Permissions)

				// Analytics
				r.Route("/analytics", func(r chi.Router) {
					r.Get("/clusters", rt.dashboardHandler.GetClusterSummary)
					r.Get("/locations", rt.dashboardHandler.GetLocationPerformance)
					r.Get("/price-bands", rt.dashboardHandler.GetPriceBandAnalysis)
					r.Get("/plan-vs-execution", rt.dashboardHandler.GetPlanVsExecution)
				})

				// Workflow
				r.Get("/workflow", rt.seasonHandler.Workflow)
				r.Get("/workflow/history", rt.seasonHandler.History)
				r.With(planner).Post("/workflow/transition", rt.seasonHandler.Transition)

				// Season locations
				r.Get("/locations", rt.locationHandler.ListForSeason)
				r.With(planner).Post("/locations", rt.locationHandler.Assign)
				r.With(planner).Delete("/locations/{locationId}", rt.locationHandler.Unassign)

				// Plans
				r.Route("/plans", func(r chi.Router) {
					r.Get("/", rt.planHandler.List)
					r.With(planner).Post("/", rt.planHandler.Create)
					r.Get("/{planId}", rt.planHandler.GetByID)
					r.With(planner).Put("/{planId}", rt.planHandler.Update)
					r.With(planner).Delete("/{planId}", rt.planHandler.Delete)
					r.With(rt.authMiddleware.RequireApprover).Post("/{planId}/approve", rt.planHandler.Approve)
				})

				// Open to buy
				r.Route("/otb", func(r chi.Router) {
					r.Get("/", rt.otbHandler.List)
					r.With(planner).Post("/", rt.otbHandler.Create)
					r.With(planner).Post("/recalculate", rt.otbHandler.Recalculate)
					r.Get("/{otbId}", rt.otbHandler.GetByID)
					r.With(planner).Put("/{otbId}", rt.otbHandler.Update)
					r.With(planner).Delete("/{otbId}", rt.otbHandler.Delete)
				})

				// Range intents
				r.Route("/range-intents", func(r chi.Router) {
					r.Get("/", rt.planHandler.ListRangeIntents)
					r.With(planner).Put("/", rt.planHandler.UpsertRangeIntent)
					r.With(planner).Delete("/{intentId}", rt.planHandler.DeleteRangeIntent)
				})

				// Range architecture
				r.Route("/range-architectures", func(r chi.Router) {
					r.Get("/", rt.rangeHandler.List)
					r.With(planner).Post("/", rt.rangeHandler.Create)
					r.With(planner).Post("/bulk", rt.rangeHandler.BulkCreate)
					r.Get("/compare", rt.rangeHandler.Compare)
					r.With(planner).Post("/submit", rt.rangeHandler.Submit)
					r.With(rt.authMiddleware.RequireApprover).Post("/approve", rt.rangeHandler.Approve)
					r.With(rt.authMiddleware.RequireApprover).Post("/reject", rt.rangeHandler.Reject)
					r.Get("/{rangeId}", rt.rangeHandler.GetByID)
					r.With(planner).Put("/{rangeId}", rt.rangeHandler.Update)
					r.With(planner).Delete("/{rangeId}", rt.rangeHandler.Delete)
				})

				// Purchasing
				r.Route("/purchase-orders", func(r chi.Router) {
					r.Get("/", rt.purchaseOrderHandler.List)
					r.With(purchaser).Post("/", rt.purchaseOrderHandler.Create)
					r.Get("/{poId}", rt.purchaseOrderHandler.GetByID)
					r.With(purchaser).Put("/{poId}/status", rt.purchaseOrderHandler.UpdateStatus)
					r.With(purchaser).Delete("/{poId}", rt.purchaseOrderHandler.Delete)
					r.Get("/{poId}/fulfillment", rt.purchaseOrderHandler.Fulfillment)
					r.Get("/{poId}/grns", rt.purchaseOrderHandler.ListGRNs)
				})
				r.With(purchaser).Post("/grns", rt.purchaseOrderHandler.CreateGRN)
				r.With(purchaser).Delete("/grns/{grnId}", rt.purchaseOrderHandler.DeleteGRN)

				// Budget consumption
				r.Route("/budget", func(r chi.Router) {
					r.Get("/position", rt.budgetHandler.Position)
					r.Get("/consumption", rt.budgetHandler.Consumption)
					r.Get("/forecast", rt.budgetHandler.Forecast)
					r.Get("/alerts", rt.budgetHandler.Alerts)
				})
				r.Route("/adjustments", func(r chi.Router) {
					r.Get("/", rt.budgetHandler.ListAdjustments)
					r.With(purchaser).Post("/", rt.budgetHandler.ProposeAdjustment)
					r.Get("/{adjustmentId}", rt.budgetHandler.GetAdjustment)
					r.With(rt.authMiddleware.RequireApprover).Post("/{adjustmentId}/approve", rt.budgetHandler.ApproveAdjustment)
					r.With(rt.authMiddleware.RequireApprover).Post("/{adjustmentId}/reject", rt.budgetHandler.RejectAdjustment)
				})
			})
		})
	})

	return r
}

// databaseHealth is the readiness check with detailed pool stats
func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := database.HealthCheckWithStats(rt.db)
	if err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats": map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		},
	})
}

// readiness checks every dependency. The ERP feed is optional and only
// degrades readiness when it is configured and unreachable.
func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	allHealthy := true

	if err := database.HealthCheck(rt.db); err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		checks["database"] = map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		}
		allHealthy = false
	} else {
		checks["database"] = map[string]interface{}{"status": "healthy"}
	}

	erpStatus := rt.erp.HealthCheck(r.Context())
	checks["erp"] = erpStatus
	if erpStatus.Status == "unhealthy" {
		allHealthy = false
	}

	status, code := "healthy", http.StatusOK
	if !allHealthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}
