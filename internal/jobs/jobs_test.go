package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSeasons struct {
	open     []domain.Season
	budgeted []domain.Season
	err      error
	statuses []domain.SeasonStatus
}

func (f *fakeSeasons) ListOpen(context.Context) ([]domain.Season, error) {
	return f.open, f.err
}

func (f *fakeSeasons) ListByStatus(_ context.Context, statuses ...domain.SeasonStatus) ([]domain.Season, error) {
	f.statuses = statuses
	return f.budgeted, f.err
}

type fakeRecalculator struct {
	counts map[uuid.UUID]int
	fail   map[uuid.UUID]error
	calls  []uuid.UUID
}

func (f *fakeRecalculator) Recalculate(_ context.Context, seasonID uuid.UUID) (int, error) {
	f.calls = append(f.calls, seasonID)
	if err := f.fail[seasonID]; err != nil {
		return 0, err
	}
	return f.counts[seasonID], nil
}

type runRecord struct {
	job string
	err error
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []runRecord
}

func (f *fakeRecorder) JobRun(job string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, runRecord{job: job, err: err})
}

func season(code string) domain.Season {
	s := domain.Season{Code: code}
	s.ID = uuid.New()
	return s
}

func TestOTBRecalcJob_RunOnce(t *testing.T) {
	a, b, c := season("SS25"), season("AW25"), season("SS26")
	seasons := &fakeSeasons{open: []domain.Season{a, b, c}}
	recalc := &fakeRecalculator{
		counts: map[uuid.UUID]int{a.ID: 4, c.ID: 2},
		fail:   map[uuid.UUID]error{b.ID: errors.New("database is gone")},
	}

	job := jobs.NewOTBRecalcJob(seasons, recalc, &fakeRecorder{}, zap.NewNop(), time.Minute)
	total, err := job.RunOnce(context.Background())

	assert.Equal(t, 6, total)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is gone")
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, c.ID}, recalc.calls, "a failing season must not stop the rest")
}

func TestOTBRecalcJob_Run_RecordsOutcome(t *testing.T) {
	recorder := &fakeRecorder{}
	job := jobs.NewOTBRecalcJob(&fakeSeasons{err: errors.New("boom")}, &fakeRecalculator{}, recorder, zap.NewNop(), time.Minute)

	job.Run()

	require.Len(t, recorder.runs, 1)
	assert.Equal(t, jobs.OTBRecalcJobName, recorder.runs[0].job)
	assert.Error(t, recorder.runs[0].err)
	assert.Equal(t, jobs.OTBRecalcJobName, job.Name())
}

type fakeAlerts struct {
	reports map[uuid.UUID]*domain.AlertReport
	asOf    time.Time
}

func (f *fakeAlerts) Alerts(_ context.Context, seasonID uuid.UUID, asOf time.Time) (*domain.AlertReport, error) {
	f.asOf = asOf
	if r, ok := f.reports[seasonID]; ok {
		return r, nil
	}
	return nil, errors.New("season not found")
}

func TestAlertSweepJob_RunOnce(t *testing.T) {
	a, b := season("SS25"), season("AW25")
	seasons := &fakeSeasons{budgeted: []domain.Season{a, b}}
	alerts := &fakeAlerts{reports: map[uuid.UUID]*domain.AlertReport{
		a.ID: {SeasonID: a.ID, Alerts: []domain.BudgetAlert{
			{Type: domain.AlertOTBExceeded, Severity: domain.SeverityCritical, Message: "OTB exceeded", CurrentValue: decimal.NewFromInt(11), ThresholdValue: decimal.NewFromInt(10)},
			{Type: domain.AlertHighUtilization, Severity: domain.SeverityWarning, Message: "high"},
		}},
		b.ID: {SeasonID: b.ID, Alerts: []domain.BudgetAlert{
			{Type: domain.AlertOTBExceeded, Severity: domain.SeverityCritical, Message: "OTB exceeded"},
		}},
	}}

	job := jobs.NewAlertSweepJob(seasons, alerts, &fakeRecorder{}, zap.NewNop(), time.Minute)
	critical, err := job.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, critical)
	assert.Equal(t, []domain.SeasonStatus{domain.SeasonStatusOTBUploaded, domain.SeasonStatusRangeUploaded}, seasons.statuses)
	assert.False(t, alerts.asOf.IsZero())
}

func TestAlertSweepJob_RunOnce_CollectsErrors(t *testing.T) {
	seasons := &fakeSeasons{budgeted: []domain.Season{season("SS25")}}
	job := jobs.NewAlertSweepJob(seasons, &fakeAlerts{}, &fakeRecorder{}, zap.NewNop(), time.Minute)

	critical, err := job.RunOnce(context.Background())
	assert.Zero(t, critical)
	assert.Error(t, err)
}

type fakeSyncer struct {
	synced, failed int
	err            error
	called         bool
}

func (f *fakeSyncer) SyncAll(context.Context) (int, int, error) {
	f.called = true
	return f.synced, f.failed, f.err
}

func TestERPSyncJob_Run(t *testing.T) {
	tests := []struct {
		name   string
		syncer *fakeSyncer
	}{
		{"success", &fakeSyncer{synced: 12, failed: 1}},
		{"failure", &fakeSyncer{err: errors.New("erp unreachable")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := &fakeRecorder{}
			job := jobs.NewERPSyncJob(tt.syncer, recorder, zap.NewNop(), time.Minute)

			job.Run()

			assert.True(t, tt.syncer.called)
			require.Len(t, recorder.runs, 1)
			assert.Equal(t, jobs.ERPSyncJobName, recorder.runs[0].job)
			assert.Equal(t, tt.syncer.err, recorder.runs[0].err)
		})
	}
}

type fakePruner struct {
	days int
}

func (f *fakePruner) CleanupOldLogs(_ context.Context, retentionDays int) (int64, error) {
	f.days = retentionDays
	return 3, nil
}

func TestAuditCleanupJob_Run(t *testing.T) {
	t.Run("prunes with the configured retention", func(t *testing.T) {
		pruner := &fakePruner{}
		recorder := &fakeRecorder{}
		jobs.NewAuditCleanupJob(pruner, 730, recorder, zap.NewNop(), time.Minute).Run()

		assert.Equal(t, 730, pruner.days)
		require.Len(t, recorder.runs, 1)
		assert.NoError(t, recorder.runs[0].err)
	})

	t.Run("disabled without retention", func(t *testing.T) {
		pruner := &fakePruner{}
		recorder := &fakeRecorder{}
		jobs.NewAuditCleanupJob(pruner, 0, recorder, zap.NewNop(), time.Minute).Run()

		assert.Zero(t, pruner.days)
		assert.Empty(t, recorder.runs)
	})
}

type namedJob struct {
	name string
}

func (j namedJob) Name() string { return j.name }
func (j namedJob) Run()         {}

func TestScheduler(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())

	require.NoError(t, s.Register("0 */15 * * * *", namedJob{"six_fields"}))
	require.NoError(t, s.Register("0 5 * * *", namedJob{"five_fields"}))
	require.NoError(t, s.Register("@hourly", namedJob{"descriptor"}))
	require.NoError(t, s.Register("", namedJob{"unscheduled"}))

	assert.Equal(t, []string{"descriptor", "five_fields", "six_fields"}, s.GetJobNames())

	assert.Error(t, s.Register("@hourly", namedJob{"descriptor"}), "duplicate names are rejected")
	assert.Error(t, s.Register("not a cron", namedJob{"broken"}))

	require.NoError(t, s.RemoveJob("five_fields"))
	assert.Error(t, s.RemoveJob("five_fields"))
	assert.Equal(t, []string{"descriptor", "six_fields"}, s.GetJobNames())
}
