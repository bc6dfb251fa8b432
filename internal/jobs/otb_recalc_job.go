package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"go.uber.org/zap"
)

// OTBRecalcJobName is the name of the OTB recalculation job
const OTBRecalcJobName = "otb_recalculate"

// SeasonLister returns seasons by workflow position
type SeasonLister interface {
	ListOpen(ctx context.Context) ([]domain.Season, error)
	ListByStatus(ctx context.Context, statuses ...domain.SeasonStatus) ([]domain.Season, error)
}

// OTBRecalculator re-derives the spend limit of every OTB row in a season
type OTBRecalculator interface {
	Recalculate(ctx context.Context, seasonID uuid.UUID) (int, error)
}

// OTBRecalcJob recalculates OTB spend limits for every season that is not locked
type OTBRecalcJob struct {
	seasons      SeasonLister
	recalculator OTBRecalculator
	recorder     RunRecorder
	logger       *zap.Logger
	timeout      time.Duration
}

func NewOTBRecalcJob(seasons SeasonLister, recalculator OTBRecalculator, recorder RunRecorder, logger *zap.Logger, timeout time.Duration) *OTBRecalcJob {
	return &OTBRecalcJob{
		seasons:      seasons,
		recalculator: recalculator,
		recorder:     recorder,
		logger:       logger,
		timeout:      timeout,
	}
}

func (j *OTBRecalcJob) Name() string { return OTBRecalcJobName }

// Run recalculates each open season in turn. A failing season is logged and
// the rest still run.
func (j *OTBRecalcJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.RunOnce(ctx)
	j.recorder.JobRun(OTBRecalcJobName, err)
}

// RunOnce performs one pass and returns the number of rows rewritten
func (j *OTBRecalcJob) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()

	seasons, err := j.seasons.ListOpen(ctx)
	if err != nil {
		j.logger.Error("failed to list open seasons", zap.Error(err))
		return 0, err
	}

	var errs []error
	total := 0
	for _, season := range seasons {
		count, err := j.recalculator.Recalculate(ctx, season.ID)
		if err != nil {
			j.logger.Warn("OTB recalculation failed",
				zap.String("season_id", season.ID.String()),
				zap.String("season_code", season.Code),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		total += count
	}

	j.logger.Info("OTB recalculation job completed",
		zap.Int("seasons", len(seasons)),
		zap.Int("rows_updated", total),
		zap.Int("failed", len(errs)),
		zap.Duration("duration", time.Since(start)))
	return total, errors.Join(errs...)
}
