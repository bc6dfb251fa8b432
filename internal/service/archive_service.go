package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/mapper"
	"github.com/straye-as/season-planning-api/internal/storage"
	"go.uber.org/zap"
)

// SeasonSnapshot is the archived state of a locked season
type SeasonSnapshot struct {
	Season      domain.SeasonDTO             `json:"season"`
	Workflow    domain.WorkflowView          `json:"workflow"`
	History     []domain.WorkflowHistoryDTO  `json:"history"`
	Position    *domain.BudgetPositionReport `json:"position"`
	Adjustments []domain.BudgetAdjustmentDTO `json:"adjustments"`
	ArchivedAt  string                       `json:"archivedAt"`
}

// ArchiveService writes season snapshots to object storage
type ArchiveService struct {
	store       storage.Storage
	workflow    *WorkflowService
	consumption *ConsumptionService
	logger      *zap.Logger
}

// NewArchiveService creates a new archive service
func NewArchiveService(store storage.Storage, workflow *WorkflowService, consumption *ConsumptionService, logger *zap.Logger) *ArchiveService {
	return &ArchiveService{
		store:       store,
		workflow:    workflow,
		consumption: consumption,
		logger:      logger,
	}
}

// SnapshotKey is the storage key of a season's snapshot
func SnapshotKey(seasonCode string) string {
	return fmt.Sprintf("seasons/%s/snapshot.json", seasonCode)
}

// ArchiveSeason builds the season snapshot and stores it, replacing any
// earlier snapshot of the same season
func (s *ArchiveService) ArchiveSeason(ctx context.Context, seasonID uuid.UUID) error {
	snapshot, err := s.Snapshot(ctx, seasonID)
	if err != nil {
		return err
	}

	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode season snapshot: %w", err)
	}

	key := SnapshotKey(snapshot.Season.Code)
	size, err := s.store.Put(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to store season snapshot: %w", err)
	}

	s.logger.Info("season snapshot archived",
		zap.String("season_id", seasonID.String()),
		zap.String("key", key),
		zap.Int64("size", size))
	return nil
}

// Snapshot assembles the archived view of a season without storing it
func (s *ArchiveService) Snapshot(ctx context.Context, seasonID uuid.UUID) (*SeasonSnapshot, error) {
	figures, err := s.consumption.load(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	history, err := s.workflow.History(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	adjustments, err := s.consumption.ListAdjustments(ctx, seasonID, nil)
	if err != nil {
		return nil, err
	}

	return &SeasonSnapshot{
		Season:      mapper.ToSeasonDTO(figures.season),
		Workflow:    mapper.ToWorkflowView(figures.season),
		History:     history,
		Position:    figures.position(domain.GroupByCategoryLocation),
		Adjustments: adjustments,
		ArchivedAt:  time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// LoadSnapshot reads back the stored snapshot of a season
func (s *ArchiveService) LoadSnapshot(ctx context.Context, seasonCode string) (*SeasonSnapshot, error) {
	rc, err := s.store.Get(ctx, SnapshotKey(seasonCode))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read season snapshot: %w", err)
	}
	var snapshot SeasonSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode season snapshot: %w", err)
	}
	return &snapshot, nil
}
