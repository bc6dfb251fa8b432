package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"go.uber.org/zap"
)

// AlertSweepJobName is the name of the budget alert sweep job
const AlertSweepJobName = "alert_sweep"

// AlertSource evaluates budget alerts for a season
type AlertSource interface {
	Alerts(ctx context.Context, seasonID uuid.UUID, asOf time.Time) (*domain.AlertReport, error)
}

// AlertSweepJob evaluates alerts for every season with an OTB budget and logs
// what it finds. Critical alerts are logged at error level.
type AlertSweepJob struct {
	seasons  SeasonLister
	alerts   AlertSource
	recorder RunRecorder
	logger   *zap.Logger
	timeout  time.Duration
	now      func() time.Time
}

func NewAlertSweepJob(seasons SeasonLister, alerts AlertSource, recorder RunRecorder, logger *zap.Logger, timeout time.Duration) *AlertSweepJob {
	return &AlertSweepJob{
		seasons:  seasons,
		alerts:   alerts,
		recorder: recorder,
		logger:   logger,
		timeout:  timeout,
		now:      time.Now,
	}
}

func (j *AlertSweepJob) Name() string { return AlertSweepJobName }

func (j *AlertSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.RunOnce(ctx)
	j.recorder.JobRun(AlertSweepJobName, err)
}

// RunOnce sweeps all budgeted seasons and returns the number of critical alerts
func (j *AlertSweepJob) RunOnce(ctx context.Context) (int, error) {
	seasons, err := j.seasons.ListByStatus(ctx, domain.SeasonStatusOTBUploaded, domain.SeasonStatusRangeUploaded)
	if err != nil {
		j.logger.Error("failed to list budgeted seasons", zap.Error(err))
		return 0, err
	}

	asOf := j.now()
	var errs []error
	critical := 0
	for _, season := range seasons {
		report, err := j.alerts.Alerts(ctx, season.ID, asOf)
		if err != nil {
			errs = append(errs, err)
			j.logger.Warn("alert evaluation failed",
				zap.String("season_id", season.ID.String()),
				zap.Error(err))
			continue
		}
		for _, alert := range report.Alerts {
			fields := []zap.Field{
				zap.String("season_code", season.Code),
				zap.String("alert_type", string(alert.Type)),
				zap.String("category_id", alert.CategoryID.String()),
				zap.String("category_name", alert.CategoryName),
				zap.String("current_value", alert.CurrentValue.String()),
				zap.String("threshold_value", alert.ThresholdValue.String()),
			}
			if alert.Severity == domain.SeverityCritical {
				critical++
				j.logger.Error(alert.Message, fields...)
			} else {
				j.logger.Warn(alert.Message, fields...)
			}
		}
	}

	j.logger.Info("alert sweep completed",
		zap.Int("seasons", len(seasons)),
		zap.Int("critical", critical),
		zap.Int("failed", len(errs)))
	return critical, errors.Join(errs...)
}
