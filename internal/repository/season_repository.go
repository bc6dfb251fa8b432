package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"gorm.io/gorm"
)

// SeasonFilters defines filter options for season listing
type SeasonFilters struct {
	Search string
	Status *domain.SeasonStatus
}

var seasonSortableFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"code":      "code",
	"startDate": "start_date",
	"status":    "status",
}

// SeasonRepository handles seasons together with their workflow flags and history
type SeasonRepository struct {
	db *gorm.DB
}

// NewSeasonRepository creates a new season repository instance
func NewSeasonRepository(db *gorm.DB) *SeasonRepository {
	return &SeasonRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *SeasonRepository) WithTx(tx *gorm.DB) *SeasonRepository {
	return &SeasonRepository{db: tx}
}

// Create inserts a season and its all-false workflow row in one transaction
func (r *SeasonRepository) Create(ctx context.Context, season *domain.Season) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		workflow := season.Workflow
		season.Workflow = nil
		if err := tx.Create(season).Error; err != nil {
			return err
		}
		if workflow == nil {
			workflow = &domain.SeasonWorkflow{}
		}
		workflow.SeasonID = season.ID
		workflow.Apply(domain.FlagsFor(season.Status))
		workflow.UpdatedAt = time.Now()
		if err := tx.Create(workflow).Error; err != nil {
			return fmt.Errorf("failed to create season workflow: %w", err)
		}
		season.Workflow = workflow
		return nil
	})
}

// GetByID retrieves a season with its workflow row
func (r *SeasonRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Season, error) {
	var season domain.Season
	err := r.db.WithContext(ctx).Preload("Workflow").Where("id = ?", id).First(&season).Error
	if err != nil {
		return nil, err
	}
	return &season, nil
}

// GetByIDForUpdate reads the season row under a row lock. Must be called
// inside a transaction.
func (r *SeasonRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Season, error) {
	var season domain.Season
	err := forUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&season).Error
	if err != nil {
		return nil, err
	}
	return &season, nil
}

// ExistsByCode reports whether a season code is taken
func (r *SeasonRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Season{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// GetByCode finds a season by code
func (r *SeasonRepository) GetByCode(ctx context.Context, code string) (*domain.Season, error) {
	var season domain.Season
	err := r.db.WithContext(ctx).Preload("Workflow").Where("code = ?", code).First(&season).Error
	if err != nil {
		return nil, err
	}
	return &season, nil
}

// UpdateDetails writes name and dates only. Status is owned by the workflow.
func (r *SeasonRepository) UpdateDetails(ctx context.Context, season *domain.Season) error {
	return r.db.WithContext(ctx).Model(&domain.Season{}).
		Where("id = ?", season.ID).
		Updates(map[string]interface{}{
			"name":       season.Name,
			"start_date": season.StartDate,
			"end_date":   season.EndDate,
			"updated_at": time.Now(),
		}).Error
}

// CompareAndSetStatus moves the season from one status to another. It returns
// false when the stored status no longer equals from.
func (r *SeasonRepository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to domain.SeasonStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Season{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// SaveWorkflowFlags overwrites the workflow flags of a season
func (r *SeasonRepository) SaveWorkflowFlags(ctx context.Context, seasonID uuid.UUID, flags domain.WorkflowFlags) error {
	result := r.db.WithContext(ctx).Model(&domain.SeasonWorkflow{}).
		Where("season_id = ?", seasonID).
		Updates(map[string]interface{}{
			"locations_defined": flags.LocationsDefined,
			"plan_uploaded":     flags.PlanUploaded,
			"otb_uploaded":      flags.OTBUploaded,
			"range_uploaded":    flags.RangeUploaded,
			"locked":            flags.Locked,
			"updated_at":        time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		workflow := &domain.SeasonWorkflow{SeasonID: seasonID, UpdatedAt: time.Now()}
		workflow.Apply(flags)
		return r.db.WithContext(ctx).Create(workflow).Error
	}
	return nil
}

// GetWorkflow reads the workflow flags row of a season
func (r *SeasonRepository) GetWorkflow(ctx context.Context, seasonID uuid.UUID) (*domain.SeasonWorkflow, error) {
	var workflow domain.SeasonWorkflow
	err := r.db.WithContext(ctx).Where("season_id = ?", seasonID).First(&workflow).Error
	if err != nil {
		return nil, err
	}
	return &workflow, nil
}

// AddHistory appends a workflow transition record
func (r *SeasonRepository) AddHistory(ctx context.Context, history *domain.SeasonWorkflowHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

// ListHistory returns the transitions of a season, oldest first
func (r *SeasonRepository) ListHistory(ctx context.Context, seasonID uuid.UUID) ([]domain.SeasonWorkflowHistory, error) {
	var history []domain.SeasonWorkflowHistory
	err := r.db.WithContext(ctx).
		Where("season_id = ?", seasonID).
		Order("changed_at ASC").
		Find(&history).Error
	return history, err
}

// List returns a paginated list of seasons
func (r *SeasonRepository) List(ctx context.Context, page, pageSize int, filters *SeasonFilters, sort SortConfig) ([]domain.Season, int64, error) {
	var seasons []domain.Season
	var total int64

	page, pageSize = NormalizePagination(page, pageSize)
	query := r.db.WithContext(ctx).Model(&domain.Season{})

	if filters != nil {
		if filters.Search != "" {
			searchPattern := "%" + strings.ToLower(filters.Search) + "%"
			query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", searchPattern, searchPattern)
		}
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderClause := BuildOrderClause(sort, seasonSortableFields, "updated_at")
	offset := (page - 1) * pageSize
	err := query.Preload("Workflow").Offset(offset).Limit(pageSize).Order(orderClause).Find(&seasons).Error

	return seasons, total, err
}

// ListOpen returns every season that is not locked
func (r *SeasonRepository) ListOpen(ctx context.Context) ([]domain.Season, error) {
	var seasons []domain.Season
	err := r.db.WithContext(ctx).
		Where("status <> ?", domain.SeasonStatusLocked).
		Order("start_date ASC").
		Find(&seasons).Error
	return seasons, err
}

// ListByStatus returns seasons in one of the given statuses
func (r *SeasonRepository) ListByStatus(ctx context.Context, statuses ...domain.SeasonStatus) ([]domain.Season, error) {
	var seasons []domain.Season
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("start_date ASC").
		Find(&seasons).Error
	return seasons, err
}

// SeasonStatusCount is the number of seasons in one status
type SeasonStatusCount struct {
	Status domain.SeasonStatus
	Count  int64
}

// CountByStatus counts seasons per workflow status. Statuses without seasons
// are absent.
func (r *SeasonRepository) CountByStatus(ctx context.Context) ([]SeasonStatusCount, error) {
	var counts []SeasonStatusCount
	err := r.db.WithContext(ctx).Model(&domain.Season{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&counts).Error
	return counts, err
}

// ListRecentHistory returns the latest transitions across all seasons, newest first
func (r *SeasonRepository) ListRecentHistory(ctx context.Context, limit int) ([]domain.SeasonWorkflowHistory, error) {
	var history []domain.SeasonWorkflowHistory
	err := r.db.WithContext(ctx).
		Order("changed_at DESC").
		Limit(limit).
		Find(&history).Error
	return history, err
}

// GetByIDs loads seasons keyed by id
func (r *SeasonRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Season, error) {
	out := make(map[uuid.UUID]domain.Season, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var seasons []domain.Season
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&seasons).Error; err != nil {
		return nil, err
	}
	for _, s := range seasons {
		out[s.ID] = s
	}
	return out, nil
}
