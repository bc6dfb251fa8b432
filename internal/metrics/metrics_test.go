package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()

	r.Transition("locked")
	r.Transition("locked")
	r.WorkflowViolation("plan", "update", "otb_uploaded")
	r.Adjustment("approved")
	r.OTBRecalculated(3)
	r.OTBRecalculated(0)
	r.JobRun("otb_recalculate", nil)
	r.JobRun("otb_recalculate", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.transitions.WithLabelValues("locked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.workflowViolations.WithLabelValues("plan", "update", "otb_uploaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.adjustments.WithLabelValues("approved")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.otbRecalculated))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobRuns.WithLabelValues("otb_recalculate", "error")))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveHTTP("/api/v1/seasons/{id}", http.MethodGet, http.StatusOK, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "season_planning_http_request_duration_seconds"))
}

func TestRecorder_NilIsSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Transition("locked")
		r.TransitionRejected("created")
		r.WorkflowViolation("plan", "create", "created")
		r.Adjustment("approved")
		r.OTBRecalculated(2)
		r.JobRun("x", nil)
		r.ObserveHTTP("/", http.MethodGet, 200, time.Second)
	})
	assert.Nil(t, r.Registry())
}
