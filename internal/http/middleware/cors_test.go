package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/straye-as/season-planning-api/internal/config"
	"github.com/straye-as/season-planning-api/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func corsRequest(t *testing.T, cfg *config.CORSConfig, environment, origin string) *httptest.ResponseRecorder {
	t.Helper()
	handler := middleware.CORS(cfg, environment, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/seasons", nil)
	req.Header.Set("Origin", origin)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestCORS_DevelopmentAllowsAnyOrigin(t *testing.T) {
	cfg := &config.CORSConfig{AllowedMethods: []string{"GET", "POST"}}

	for _, env := range []string{"development", "local", ""} {
		w := corsRequest(t, cfg, env, "http://localhost:5173")
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"), "environment %q", env)
	}
}

func TestCORS_ExplicitOrigins(t *testing.T) {
	cfg := &config.CORSConfig{
		AllowedOrigins: []string{"https://planning.straye.no"},
		AllowedMethods: []string{"GET"},
	}

	w := corsRequest(t, cfg, "production", "https://planning.straye.no")
	assert.Equal(t, "https://planning.straye.no", w.Header().Get("Access-Control-Allow-Origin"))

	w = corsRequest(t, cfg, "production", "https://evil.example.com")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ProductionWithoutOriginsDeniesAll(t *testing.T) {
	w := corsRequest(t, &config.CORSConfig{}, "production", "https://planning.straye.no")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ExposesRequestID(t *testing.T) {
	cfg := &config.CORSConfig{
		AllowedOrigins: []string{"*"},
		ExposedHeaders: []string{"Content-Length"},
	}

	w := corsRequest(t, cfg, "development", "http://localhost:3000")
	exposed := w.Header().Get("Access-Control-Expose-Headers")
	assert.Contains(t, exposed, "Content-Length")
	assert.Contains(t, exposed, "X-Request-Id")
	assert.Equal(t, []string{"Content-Length"}, cfg.ExposedHeaders, "config must not be modified")
}
