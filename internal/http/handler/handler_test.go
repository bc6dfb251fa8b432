package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/auth"
	"github.com/straye-as/season-planning-api/internal/config"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/http/handler"
	"github.com/straye-as/season-planning-api/internal/lock"
	"github.com/straye-as/season-planning-api/internal/metrics"
	"github.com/straye-as/season-planning-api/internal/repository"
	"github.com/straye-as/season-planning-api/internal/service"
	"github.com/straye-as/season-planning-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testServer mounts the season, plan and OTB handlers on a chi router
// backed by an in-memory database
type testServer struct {
	db     *gorm.DB
	router chi.Router
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testutil.SetupTestDB(t)
	log := zap.NewNop()
	var recorder *metrics.Recorder
	locker := lock.NewSeasonLocker(nil, &config.RedisConfig{}, log)

	seasonRepo := repository.NewSeasonRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)

	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db), log)
	guard := service.NewMutationGuard(db, seasonRepo, locker, recorder, log)

	seasons := handler.NewSeasonHandler(
		service.NewSeasonService(seasonRepo, guard, audit, log),
		service.NewWorkflowService(db, seasonRepo, audit, locker, recorder, log),
		nil,
		guard,
		log,
	)
	plans := handler.NewPlanHandler(
		service.NewPlanService(repository.NewPlanRepository(db), locationRepo, categoryRepo, guard, audit, log),
		service.NewRangeIntentService(repository.NewRangeIntentRepository(db), categoryRepo, guard, audit, log),
		log,
	)
	otb := handler.NewOTBHandler(
		service.NewOTBService(repository.NewOTBPlanRepository(db), locationRepo, categoryRepo, guard, audit, recorder, log),
		log,
	)
	me := handler.NewAuthHandler([]domain.UserRoleType{domain.RoleApprover, domain.RoleFinanceLead}, log)

	r := chi.NewRouter()
	r.Get("/auth/me", me.Me)
	r.Post("/otb/calculate", otb.Calculate)
	r.Get("/seasons/{seasonId}/workflow", seasons.Workflow)
	r.Post("/seasons/{seasonId}/workflow/transition", seasons.Transition)
	r.Get("/seasons/{seasonId}/permissions", seasons.Permissions)
	r.Put("/seasons/{seasonId}/plans/{planId}", plans.Update)

	return &testServer{db: db, router: r}
}

func plannerContext() context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      uuid.New(),
		DisplayName: "Kari Nordmann",
		Email:       "kari@straye.no",
		Roles:       []domain.UserRoleType{domain.RolePlanner},
		AuthMethod:  auth.AuthMethodJWT,
	})
}

func (s *testServer) do(t *testing.T, ctx context.Context, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) domain.APIError {
	t.Helper()
	require.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var problem domain.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	return problem
}
