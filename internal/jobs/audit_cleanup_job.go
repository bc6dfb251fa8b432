package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AuditCleanupJobName is the name of the audit retention job
const AuditCleanupJobName = "audit_cleanup"

// AuditPruner deletes audit entries past the retention window
type AuditPruner interface {
	CleanupOldLogs(ctx context.Context, retentionDays int) (int64, error)
}

// AuditCleanupJob prunes the audit trail on a schedule
type AuditCleanupJob struct {
	pruner        AuditPruner
	retentionDays int
	recorder      RunRecorder
	logger        *zap.Logger
	timeout       time.Duration
}

// NewAuditCleanupJob creates a new audit cleanup job. A non-positive
// retention disables pruning.
func NewAuditCleanupJob(pruner AuditPruner, retentionDays int, recorder RunRecorder, logger *zap.Logger, timeout time.Duration) *AuditCleanupJob {
	return &AuditCleanupJob{
		pruner:        pruner,
		retentionDays: retentionDays,
		recorder:      recorder,
		logger:        logger,
		timeout:       timeout,
	}
}

func (j *AuditCleanupJob) Name() string { return AuditCleanupJobName }

// Run executes the cleanup
func (j *AuditCleanupJob) Run() {
	if j.retentionDays <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	deleted, err := j.pruner.CleanupOldLogs(ctx, j.retentionDays)
	j.recorder.JobRun(AuditCleanupJobName, err)
	if err != nil {
		j.logger.Error("audit cleanup job failed", zap.Error(err))
		return
	}
	j.logger.Info("audit cleanup job completed",
		zap.Int64("deleted", deleted),
		zap.Int("retention_days", j.retentionDays))
}
