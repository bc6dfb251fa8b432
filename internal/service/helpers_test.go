package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/auth"
	"github.com/straye-as/season-planning-api/internal/config"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/lock"
	"github.com/straye-as/season-planning-api/internal/metrics"
	"github.com/straye-as/season-planning-api/internal/repository"
	"github.com/straye-as/season-planning-api/internal/service"
	"github.com/straye-as/season-planning-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testEnv wires every planning service against one sqlite database
type testEnv struct {
	db *gorm.DB

	seasonRepo   *repository.SeasonRepository
	locationRepo *repository.LocationRepository
	categoryRepo *repository.CategoryRepository
	otbRepo      *repository.OTBPlanRepository
	poRepo       *repository.PurchaseOrderRepository
	userRepo     *repository.UserRepository

	guard       *service.MutationGuard
	audit       *service.AuditLogService
	workflow    *service.WorkflowService
	seasons     *service.SeasonService
	locations   *service.LocationService
	plans       *service.PlanService
	otb         *service.OTBService
	ranges      *service.RangeIntentService
	orders      *service.PurchaseOrderService
	consumption *service.ConsumptionService
	rangeArch   *service.RangeArchitectureService
	dashboard   *service.DashboardService
	users       *service.UserService
}

func testThresholds() config.PlanningConfig {
	return config.PlanningConfig{
		HighUtilizationPercent: 90,
		FulfillmentLagPercent:  50,
		TrendIncreasingPercent: 80,
		TrendDecreasingPercent: 30,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	log := zap.NewNop()
	var recorder *metrics.Recorder
	locker := lock.NewSeasonLocker(nil, &config.RedisConfig{}, log)

	seasonRepo := repository.NewSeasonRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	clusterRepo := repository.NewClusterRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	planRepo := repository.NewPlanRepository(db)
	otbRepo := repository.NewOTBPlanRepository(db)
	intentRepo := repository.NewRangeIntentRepository(db)
	poRepo := repository.NewPurchaseOrderRepository(db)
	adjustmentRepo := repository.NewBudgetAdjustmentRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	sequenceRepo := repository.NewNumberSequenceRepository(db)
	rangeArchRepo := repository.NewRangeArchitectureRepository(db)
	userRepo := repository.NewUserRepository(db)

	audit := service.NewAuditLogService(auditRepo, log)
	guard := service.NewMutationGuard(db, seasonRepo, locker, recorder, log)
	numbers := service.NewNumberSequenceService(sequenceRepo, log)
	consumption := service.NewConsumptionService(
		seasonRepo, otbRepo, poRepo, adjustmentRepo, categoryRepo,
		guard, audit, recorder, testThresholds(), log,
	)

	return &testEnv{
		db:           db,
		seasonRepo:   seasonRepo,
		locationRepo: locationRepo,
		categoryRepo: categoryRepo,
		otbRepo:      otbRepo,
		poRepo:       poRepo,
		userRepo:     userRepo,
		guard:        guard,
		audit:        audit,
		workflow:     service.NewWorkflowService(db, seasonRepo, audit, locker, recorder, log),
		seasons:      service.NewSeasonService(seasonRepo, guard, audit, log),
		locations:    service.NewLocationService(locationRepo, clusterRepo, guard, audit, log),
		plans:        service.NewPlanService(planRepo, locationRepo, categoryRepo, guard, audit, log),
		otb:          service.NewOTBService(otbRepo, locationRepo, categoryRepo, guard, audit, recorder, log),
		ranges:       service.NewRangeIntentService(intentRepo, categoryRepo, guard, audit, log),
		orders:       service.NewPurchaseOrderService(poRepo, locationRepo, categoryRepo, numbers, guard, audit, log),
		consumption:  consumption,
		rangeArch:    service.NewRangeArchitectureService(rangeArchRepo, seasonRepo, categoryRepo, guard, audit, log),
		dashboard: service.NewDashboardService(
			seasonRepo, locationRepo, clusterRepo, planRepo, otbRepo, intentRepo, adjustmentRepo, consumption, log,
		),
		users: service.NewUserService(userRepo, log),
	}
}

// plannerContext returns a context carrying an authenticated planner
func plannerContext() context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      uuid.New(),
		DisplayName: "Test Planner",
		Email:       "planner@example.com",
		Roles:       []domain.UserRoleType{domain.RolePlanner, domain.RoleApprover},
		AuthMethod:  auth.AuthMethodJWT,
	})
}
