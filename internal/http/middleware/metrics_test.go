package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/straye-as/season-planning-api/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	route  string
	method string
	status int
}

type fakeObserver struct {
	seen []observation
}

func (f *fakeObserver) ObserveHTTP(route, method string, status int, _ time.Duration) {
	f.seen = append(f.seen, observation{route: route, method: method, status: status})
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	obs := &fakeObserver{}
	r := chi.NewRouter()
	r.Use(middleware.Metrics(obs))
	r.Get("/api/v1/seasons/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/api/v1/seasons/{id}/transition", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/v1/seasons/7a1c", nil),
		httptest.NewRequest(http.MethodPost, "/api/v1/seasons/7a1c/transition", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.Len(t, obs.seen, 2)
	assert.Equal(t, observation{"/api/v1/seasons/{id}", http.MethodGet, http.StatusOK}, obs.seen[0])
	assert.Equal(t, observation{"/api/v1/seasons/{id}/transition", http.MethodPost, http.StatusConflict}, obs.seen[1])
}

func TestMetrics_Unmatched(t *testing.T) {
	obs := &fakeObserver{}
	handler := middleware.Metrics(obs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	require.Len(t, obs.seen, 1)
	assert.Equal(t, "unmatched", obs.seen[0].route)
	assert.Equal(t, http.StatusNotFound, obs.seen[0].status)
}
