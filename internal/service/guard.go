package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/lock"
	"github.com/straye-as/season-planning-api/internal/metrics"
	"github.com/straye-as/season-planning-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GuardedFunc is a write that runs while the season row is locked. The season
// passed in is the row as read under the lock.
type GuardedFunc func(tx *gorm.DB, season *domain.Season) error

// MutationGuard gates every write to season-scoped data on the season's
// workflow status. Status is never cached: each check reads the season row.
type MutationGuard struct {
	db         *gorm.DB
	seasonRepo *repository.SeasonRepository
	locker     *lock.SeasonLocker
	metrics    *metrics.Recorder
	logger     *zap.Logger
}

// NewMutationGuard creates a new mutation guard
func NewMutationGuard(
	db *gorm.DB,
	seasonRepo *repository.SeasonRepository,
	locker *lock.SeasonLocker,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) *MutationGuard {
	return &MutationGuard{
		db:         db,
		seasonRepo: seasonRepo,
		locker:     locker,
		metrics:    recorder,
		logger:     logger,
	}
}

// Authorize reports whether kind may be written with op in the season's
// current status. It only answers the question: a denial is not counted as a
// violation. Use Guarded for the write itself so the check and the write are
// serialized against transitions.
func (g *MutationGuard) Authorize(ctx context.Context, seasonID uuid.UUID, kind domain.EntityKind, op domain.Operation) error {
	season, err := g.load(ctx, seasonID)
	if err != nil {
		return err
	}
	if !domain.CanWrite(season.Status, kind, op) {
		return &WorkflowViolationError{Kind: kind, Operation: op, State: season.Status}
	}
	return nil
}

// Permissions lists the operations every entity kind accepts in the season's
// current status
func (g *MutationGuard) Permissions(ctx context.Context, seasonID uuid.UUID) (*domain.PermissionMatrixDTO, error) {
	season, err := g.load(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	matrix := &domain.PermissionMatrixDTO{
		SeasonID:      season.ID,
		CurrentStatus: season.Status,
		Allowed:       make(map[domain.EntityKind][]domain.Operation, len(domain.EntityKinds)),
	}
	for _, kind := range domain.EntityKinds {
		ops := []domain.Operation{}
		for _, op := range domain.Operations {
			if domain.CanWrite(season.Status, kind, op) {
				ops = append(ops, op)
			}
		}
		matrix.Allowed[kind] = ops
	}
	return matrix, nil
}

func (g *MutationGuard) load(ctx context.Context, seasonID uuid.UUID) (*domain.Season, error) {
	season, err := g.seasonRepo.GetByID(ctx, seasonID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newNotFoundError("season", seasonID)
		}
		return nil, err
	}
	return season, nil
}

// Guarded locks the season row, checks the permission table and runs fn in
// the same transaction. A transition to a freezing status has to wait for the
// lock, so it can never interleave with a write it would have denied.
func (g *MutationGuard) Guarded(ctx context.Context, seasonID uuid.UUID, kind domain.EntityKind, op domain.Operation, fn GuardedFunc) error {
	release := g.locker.Acquire(ctx, seasonID)
	defer release()

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		season, err := g.seasonRepo.WithTx(tx).GetByIDForUpdate(ctx, seasonID)
		if err != nil {
			if repository.IsNotFound(err) {
				return newNotFoundError("season", seasonID)
			}
			return err
		}
		if err := g.check(season, kind, op); err != nil {
			return err
		}
		return fn(tx, season)
	})
}

func (g *MutationGuard) check(season *domain.Season, kind domain.EntityKind, op domain.Operation) error {
	if domain.CanWrite(season.Status, kind, op) {
		return nil
	}

	g.metrics.WorkflowViolation(string(kind), string(op), string(season.Status))
	g.logger.Warn("write denied by season workflow",
		zap.String("season_id", season.ID.String()),
		zap.String("season_status", string(season.Status)),
		zap.String("entity_kind", string(kind)),
		zap.String("operation", string(op)))

	return &WorkflowViolationError{Kind: kind, Operation: op, State: season.Status}
}
