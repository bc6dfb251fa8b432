package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "season_planning"

// Recorder holds the service's Prometheus collectors. A nil *Recorder is valid
// and records nothing, so services can be constructed without metrics in tests.
type Recorder struct {
	registry *prometheus.Registry

	transitions        *prometheus.CounterVec
	transitionRejects  *prometheus.CounterVec
	workflowViolations *prometheus.CounterVec
	adjustments        *prometheus.CounterVec
	otbRecalculated    prometheus.Counter
	jobRuns            *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewRecorder creates a recorder with its own registry, including Go runtime
// and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_transitions_total",
			Help:      "Successful season workflow transitions by target status.",
		}, []string{"to"}),
		transitionRejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_transition_rejections_total",
			Help:      "Rejected season workflow transitions by current status.",
		}, []string{"from"}),
		workflowViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_violations_total",
			Help:      "Writes denied by the season mutation guard.",
		}, []string{"kind", "operation", "status"}),
		adjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_adjustments_total",
			Help:      "Budget adjustment decisions by outcome.",
		}, []string{"outcome"}),
		otbRecalculated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "otb_rows_recalculated_total",
			Help:      "OTB plan rows whose approved spend limit was rewritten.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and result.",
		}, []string{"job", "result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern, method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.transitions,
		r.transitionRejects,
		r.workflowViolations,
		r.adjustments,
		r.otbRecalculated,
		r.jobRuns,
		r.httpDuration,
	)
	return r
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus text format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Transition(to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(to).Inc()
}

func (r *Recorder) TransitionRejected(from string) {
	if r == nil {
		return
	}
	r.transitionRejects.WithLabelValues(from).Inc()
}

func (r *Recorder) WorkflowViolation(kind, operation, status string) {
	if r == nil {
		return
	}
	r.workflowViolations.WithLabelValues(kind, operation, status).Inc()
}

// Adjustment records an adjustment outcome: proposed, approved or rejected
func (r *Recorder) Adjustment(outcome string) {
	if r == nil {
		return
	}
	r.adjustments.WithLabelValues(outcome).Inc()
}

func (r *Recorder) OTBRecalculated(rows int) {
	if r == nil || rows <= 0 {
		return
	}
	r.otbRecalculated.Add(float64(rows))
}

func (r *Recorder) JobRun(job string, err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	r.jobRuns.WithLabelValues(job, result).Inc()
}

func (r *Recorder) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.httpDuration.WithLabelValues(route, method, strconv.Itoa(code)).Observe(elapsed.Seconds())
}
