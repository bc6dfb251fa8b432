package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/straye-as/season-planning-api/docs"
	"github.com/straye-as/season-planning-api/internal/auth"
	"github.com/straye-as/season-planning-api/internal/config"
	"github.com/straye-as/season-planning-api/internal/database"
	"github.com/straye-as/season-planning-api/internal/datawarehouse"
	"github.com/straye-as/season-planning-api/internal/http/handler"
	"github.com/straye-as/season-planning-api/internal/http/middleware"
	"github.com/straye-as/season-planning-api/internal/http/router"
	"github.com/straye-as/season-planning-api/internal/jobs"
	"github.com/straye-as/season-planning-api/internal/lock"
	"github.com/straye-as/season-planning-api/internal/logger"
	"github.com/straye-as/season-planning-api/internal/metrics"
	"github.com/straye-as/season-planning-api/internal/repository"
	"github.com/straye-as/season-planning-api/internal/service"
	"github.com/straye-as/season-planning-api/internal/storage"
	"go.uber.org/zap"
)

// @title Straye Season Planning API
// @version 1.0
// @description Season workflow, open-to-buy planning and budget consumption for retail buying seasons

// @contact.name Straye Planning Team

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations
// @Security BearerAuth
// @Security ApiKeyAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	} else {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Secrets come from the environment in development and Key Vault elsewhere
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	archiveStore, err := storage.NewStorage(ctx, &cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Redis is optional; without it the row lock in the database serializes season mutations
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = lock.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, continuing without distributed season locks", zap.Error(err))
		} else {
			log.Info("Redis connected", zap.String("address", cfg.Redis.Address))
		}
	}
	locker := lock.NewSeasonLocker(redisClient, &cfg.Redis, log)

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.NewRecorder()
	}

	// ERP purchasing views are optional and read-only
	erpClient, err := datawarehouse.NewClient(&cfg.ERP, log)
	if err != nil {
		log.Warn("ERP connection failed, continuing without it", zap.Error(err))
		erpClient = nil
	} else if erpClient == nil {
		log.Info("ERP feed not configured, skipping", zap.Bool("enabled", cfg.ERP.Enabled))
	}

	// Repositories
	seasonRepo := repository.NewSeasonRepository(db)
	clusterRepo := repository.NewClusterRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	planRepo := repository.NewPlanRepository(db)
	otbRepo := repository.NewOTBPlanRepository(db)
	intentRepo := repository.NewRangeIntentRepository(db)
	rangeArchRepo := repository.NewRangeArchitectureRepository(db)
	poRepo := repository.NewPurchaseOrderRepository(db)
	adjustmentRepo := repository.NewBudgetAdjustmentRepository(db)
	numberRepo := repository.NewNumberSequenceRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Services
	auditSvc := service.NewAuditLogService(auditRepo, log)
	guard := service.NewMutationGuard(db, seasonRepo, locker, recorder, log)
	workflowSvc := service.NewWorkflowService(db, seasonRepo, auditSvc, locker, recorder, log)
	seasonSvc := service.NewSeasonService(seasonRepo, guard, auditSvc, log)
	clusterSvc := service.NewClusterService(clusterRepo, log)
	categorySvc := service.NewCategoryService(categoryRepo, log)
	locationSvc := service.NewLocationService(locationRepo, clusterRepo, guard, auditSvc, log)
	planSvc := service.NewPlanService(planRepo, locationRepo, categoryRepo, guard, auditSvc, log)
	otbSvc := service.NewOTBService(otbRepo, locationRepo, categoryRepo, guard, auditSvc, recorder, log)
	rangeSvc := service.NewRangeIntentService(intentRepo, categoryRepo, guard, auditSvc, log)
	rangeArchSvc := service.NewRangeArchitectureService(rangeArchRepo, seasonRepo, categoryRepo, guard, auditSvc, log)
	userSvc := service.NewUserService(userRepo, log)
	numberSvc := service.NewNumberSequenceService(numberRepo, log)
	poSvc := service.NewPurchaseOrderService(poRepo, locationRepo, categoryRepo, numberSvc, guard, auditSvc, log)
	consumptionSvc := service.NewConsumptionService(seasonRepo, otbRepo, poRepo, adjustmentRepo, categoryRepo, guard, auditSvc, recorder, cfg.Planning, log)
	dashboardSvc := service.NewDashboardService(seasonRepo, locationRepo, clusterRepo, planRepo, otbRepo, intentRepo, adjustmentRepo, consumptionSvc, log)
	archiveSvc := service.NewArchiveService(archiveStore, workflowSvc, consumptionSvc, log)
	if cfg.Storage.ArchiveOnLock {
		workflowSvc.SetArchiver(archiveSvc)
	}

	var erpSyncSvc *service.ERPSyncService
	if erpClient != nil {
		erpSyncSvc = service.NewERPSyncService(erpClient, poRepo, seasonRepo, locationRepo, categoryRepo, poSvc, log)
	}

	// Handlers
	authMiddleware := auth.NewMiddleware(&cfg.Auth, log)
	authMiddleware.SetUserDirectory(userRepo)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		erpClient,
		recorder,
		authMiddleware,
		rateLimiter,
		handler.NewSeasonHandler(seasonSvc, workflowSvc, archiveSvc, guard, log),
		handler.NewLocationHandler(locationSvc, log),
		handler.NewMasterDataHandler(clusterSvc, categorySvc, log),
		handler.NewPlanHandler(planSvc, rangeSvc, log),
		handler.NewRangeArchitectureHandler(rangeArchSvc, log),
		handler.NewOTBHandler(otbSvc, log),
		handler.NewPurchaseOrderHandler(poSvc, erpSyncSvc, log),
		handler.NewBudgetHandler(consumptionSvc, log),
		handler.NewDashboardHandler(dashboardSvc, log),
		handler.NewAuditHandler(auditSvc, log),
		handler.NewAuthHandler(authMiddleware.ApproverRoles(), log),
		handler.NewUserHandler(userSvc, log),
	)

	// Background jobs
	var scheduler *jobs.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = jobs.NewScheduler(log)
		timeout := cfg.Scheduler.JobTimeoutDuration()

		register := func(cronExpr string, job jobs.Job) {
			if err := scheduler.Register(cronExpr, job); err != nil {
				log.Error("Failed to register job", zap.String("job", job.Name()), zap.Error(err))
			}
		}
		register(cfg.Scheduler.RecalculateCron, jobs.NewOTBRecalcJob(seasonRepo, otbSvc, recorder, log, timeout))
		register(cfg.Scheduler.AlertSweepCron, jobs.NewAlertSweepJob(seasonRepo, consumptionSvc, recorder, log, timeout))
		register(cfg.Scheduler.AuditCleanupCron, jobs.NewAuditCleanupJob(auditSvc, cfg.Scheduler.AuditRetentionDays, recorder, log, timeout))
		if erpSyncSvc != nil {
			register(cfg.Scheduler.ERPSyncCron, jobs.NewERPSyncJob(erpSyncSvc, recorder, log, timeout))
		}

		scheduler.Start()
	} else {
		log.Info("Scheduler disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      http.TimeoutHandler(rt.Setup(), cfg.Server.RequestTimeoutDuration(), `{"type":"internal_error","title":"Service Unavailable","status":503,"detail":"Request timed out"}`),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			stopped := scheduler.Stop()
			<-stopped.Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if erpClient != nil {
			if err := erpClient.Close(); err != nil {
				log.Warn("Error closing ERP connection", zap.Error(err))
			}
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Warn("Error closing Redis connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
