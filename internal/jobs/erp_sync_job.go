package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ERPSyncJobName is the name of the ERP purchase order import job
const ERPSyncJobName = "erp_sync"

// ERPSyncer imports purchase orders and goods receipts from the ERP.
// This interface allows the job to call the service without importing the service package directly.
type ERPSyncer interface {
	// SyncAll imports everything changed since the previous pass.
	// Returns counts for imported and failed rows.
	SyncAll(ctx context.Context) (synced int, failed int, err error)
}

// ERPSyncJob pulls purchase orders and receipts from the ERP views into open seasons
type ERPSyncJob struct {
	syncer   ERPSyncer
	recorder RunRecorder
	logger   *zap.Logger
	timeout  time.Duration
}

// NewERPSyncJob creates a new ERP sync job.
// The timeout controls how long the sync operation is allowed to run.
func NewERPSyncJob(syncer ERPSyncer, recorder RunRecorder, logger *zap.Logger, timeout time.Duration) *ERPSyncJob {
	return &ERPSyncJob{
		syncer:   syncer,
		recorder: recorder,
		logger:   logger,
		timeout:  timeout,
	}
}

func (j *ERPSyncJob) Name() string { return ERPSyncJobName }

// Run executes the ERP sync job.
// This is called by the scheduler according to the cron expression.
func (j *ERPSyncJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	j.logger.Info("starting ERP sync job")

	synced, failed, err := j.syncer.SyncAll(ctx)
	j.recorder.JobRun(ERPSyncJobName, err)
	if err != nil {
		j.logger.Error("ERP sync job failed",
			zap.Error(err),
			zap.Int("synced", synced),
			zap.Int("failed", failed),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("ERP sync job completed",
		zap.Int("synced", synced),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)))
}
