package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/auth"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/lock"
	"github.com/straye-as/season-planning-api/internal/mapper"
	"github.com/straye-as/season-planning-api/internal/metrics"
	"github.com/straye-as/season-planning-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SeasonArchiver persists a snapshot of a season once it is locked
type SeasonArchiver interface {
	ArchiveSeason(ctx context.Context, seasonID uuid.UUID) error
}

// WorkflowService owns the season status. It is the only writer of
// Season.Status and the SeasonWorkflow flags.
type WorkflowService struct {
	db         *gorm.DB
	seasonRepo *repository.SeasonRepository
	auditSvc   *AuditLogService
	locker     *lock.SeasonLocker
	metrics    *metrics.Recorder
	archiver   SeasonArchiver
	logger     *zap.Logger
}

// NewWorkflowService creates a new workflow service
func NewWorkflowService(
	db *gorm.DB,
	seasonRepo *repository.SeasonRepository,
	auditSvc *AuditLogService,
	locker *lock.SeasonLocker,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) *WorkflowService {
	return &WorkflowService{
		db:         db,
		seasonRepo: seasonRepo,
		auditSvc:   auditSvc,
		locker:     locker,
		metrics:    recorder,
		logger:     logger,
	}
}

// SetArchiver registers the archiver run after a season is locked
func (s *WorkflowService) SetArchiver(a SeasonArchiver) {
	s.archiver = a
}

// Transition advances a season to target, which must be the direct successor
// of its current status. Status, flags, history and audit entry commit together.
func (s *WorkflowService) Transition(ctx context.Context, seasonID uuid.UUID, target domain.SeasonStatus) (*domain.WorkflowView, error) {
	if !target.IsValid() {
		return nil, newValidationError("targetStatus", "unknown workflow status: "+string(target))
	}

	release := s.locker.Acquire(ctx, seasonID)
	defer release()

	actorID, actorName := auth.Actor(ctx)
	var updated *domain.Season

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.seasonRepo.WithTx(tx)

		season, err := repo.GetByIDForUpdate(ctx, seasonID)
		if err != nil {
			if repository.IsNotFound(err) {
				return newNotFoundError("season", seasonID)
			}
			return err
		}

		current := season.Status
		next, ok := current.Next()
		if !ok || next != target {
			s.metrics.TransitionRejected(string(current))
			s.logger.Warn("workflow transition rejected",
				zap.String("season_id", seasonID.String()),
				zap.String("current_status", string(current)),
				zap.String("requested_status", string(target)))
			return &InvalidTransitionError{Current: current, Requested: target}
		}

		swapped, err := repo.CompareAndSetStatus(ctx, seasonID, current, target)
		if err != nil {
			return mapper.FormatError("season", "update status of", err)
		}
		if !swapped {
			// another writer moved the season after our read
			latest, err := repo.GetByID(ctx, seasonID)
			if err != nil {
				return err
			}
			return &InvalidTransitionError{Current: latest.Status, Requested: target}
		}

		if err := repo.SaveWorkflowFlags(ctx, seasonID, domain.FlagsFor(target)); err != nil {
			return mapper.FormatError("season workflow", "update", err)
		}

		if err := repo.AddHistory(ctx, &domain.SeasonWorkflowHistory{
			SeasonID:      seasonID,
			FromStatus:    current,
			ToStatus:      target,
			ChangedByID:   actorID,
			ChangedByName: actorName,
			ChangedAt:     time.Now(),
		}); err != nil {
			return mapper.FormatError("workflow history", "create", err)
		}

		if err := s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionTransition,
			EntityType: domain.EntityKindSeason,
			EntityID:   &seasonID,
			OldValues:  map[string]interface{}{"status": current},
			NewValues:  map[string]interface{}{"status": target},
		}); err != nil {
			return err
		}

		season.Status = target
		updated = season
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Transition(string(target))
	s.logger.Info("season workflow transitioned",
		zap.String("season_id", seasonID.String()),
		zap.String("season_code", updated.Code),
		zap.String("to_status", string(target)),
		zap.String("changed_by", actorName))

	if target == domain.SeasonStatusLocked && s.archiver != nil {
		// the transition is committed; archiving is best-effort
		if err := s.archiver.ArchiveSeason(ctx, seasonID); err != nil {
			s.logger.Error("failed to archive locked season",
				zap.String("season_id", seasonID.String()),
				zap.Error(err))
		}
	}

	view := mapper.ToWorkflowView(updated)
	return &view, nil
}

// Status returns the workflow view of a season
func (s *WorkflowService) Status(ctx context.Context, seasonID uuid.UUID) (*domain.WorkflowView, error) {
	season, err := s.seasonRepo.GetByID(ctx, seasonID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newNotFoundError("season", seasonID)
		}
		return nil, err
	}
	view := mapper.ToWorkflowView(season)
	return &view, nil
}

// History returns the transitions of a season, oldest first
func (s *WorkflowService) History(ctx context.Context, seasonID uuid.UUID) ([]domain.WorkflowHistoryDTO, error) {
	if _, err := s.seasonRepo.GetByID(ctx, seasonID); err != nil {
		if repository.IsNotFound(err) {
			return nil, newNotFoundError("season", seasonID)
		}
		return nil, err
	}

	history, err := s.seasonRepo.ListHistory(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	dtos := make([]domain.WorkflowHistoryDTO, len(history))
	for i := range history {
		dtos[i] = mapper.ToWorkflowHistoryDTO(&history[i])
	}
	return dtos, nil
}
