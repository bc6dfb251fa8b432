package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/auth"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/mapper"
	"github.com/straye-as/season-planning-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SeasonService handles season lifecycle outside of workflow transitions
type SeasonService struct {
	seasonRepo *repository.SeasonRepository
	guard      *MutationGuard
	auditSvc   *AuditLogService
	logger     *zap.Logger
}

// NewSeasonService creates a new season service
func NewSeasonService(
	seasonRepo *repository.SeasonRepository,
	guard *MutationGuard,
	auditSvc *AuditLogService,
	logger *zap.Logger,
) *SeasonService {
	return &SeasonService{
		seasonRepo: seasonRepo,
		guard:      guard,
		auditSvc:   auditSvc,
		logger:     logger,
	}
}

// Create creates a season in CREATED with a generated code
func (s *SeasonService) Create(ctx context.Context, req *domain.CreateSeasonRequest) (*domain.SeasonDTO, error) {
	start, end, err := parseSeasonDates(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	code, err := uniqueCode(ctx, seasonCode, s.seasonRepo.ExistsByCode)
	if err != nil {
		return nil, err
	}

	_, actorName := auth.Actor(ctx)
	season := &domain.Season{
		Code:      code,
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
		Status:    domain.SeasonStatusCreated,
		CreatedBy: actorName,
	}

	if err := s.seasonRepo.Create(ctx, season); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrConflict
		}
		return nil, mapper.FormatError("season", "create", err)
	}

	if err := s.auditSvc.Record(ctx, nil, LogEntry{
		SeasonID:   &season.ID,
		Action:     domain.AuditActionCreate,
		EntityType: domain.EntityKindSeason,
		EntityID:   &season.ID,
		NewValues:  mapper.ToSeasonDTO(season),
	}); err != nil {
		s.logger.Warn("failed to audit season creation", zap.Error(err))
	}

	s.logger.Info("season created",
		zap.String("season_id", season.ID.String()),
		zap.String("season_code", season.Code))

	dto := mapper.ToSeasonDTO(season)
	return &dto, nil
}

// GetByID returns a season
func (s *SeasonService) GetByID(ctx context.Context, id uuid.UUID) (*domain.SeasonDTO, error) {
	season, err := s.seasonRepo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newNotFoundError("season", id)
		}
		return nil, err
	}
	dto := mapper.ToSeasonDTO(season)
	return &dto, nil
}

// List returns a page of seasons
func (s *SeasonService) List(ctx context.Context, page, pageSize int, filters *repository.SeasonFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePagination(page, pageSize)
	seasons, total, err := s.seasonRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, err
	}

	dtos := make([]domain.SeasonDTO, len(seasons))
	for i := range seasons {
		dtos[i] = mapper.ToSeasonDTO(&seasons[i])
	}
	return mapper.NewPaginatedResponse(dtos, total, page, pageSize), nil
}

// Update changes the name and dates of a season that is not locked
func (s *SeasonService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateSeasonRequest) (*domain.SeasonDTO, error) {
	start, end, err := parseSeasonDates(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	var updated *domain.Season
	err = s.guard.Guarded(ctx, id, domain.EntityKindSeason, domain.OperationUpdate, func(tx *gorm.DB, season *domain.Season) error {
		old := mapper.ToSeasonDTO(season)

		season.Name = req.Name
		season.StartDate = start
		season.EndDate = end
		if err := s.seasonRepo.WithTx(tx).UpdateDetails(ctx, season); err != nil {
			return mapper.FormatError("season", "update", err)
		}

		updated = season
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &id,
			Action:     domain.AuditActionUpdate,
			EntityType: domain.EntityKindSeason,
			EntityID:   &id,
			OldValues:  old,
			NewValues:  mapper.ToSeasonDTO(season),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("season updated", zap.String("season_id", id.String()))
	dto := mapper.ToSeasonDTO(updated)
	return &dto, nil
}

func parseSeasonDates(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := parseDate("startDate", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDate("endDate", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, newValidationError("endDate", "must not be before startDate")
	}
	return start, end, nil
}

// parseDate parses a YYYY-MM-DD date as midnight UTC
func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, newValidationError(field, "must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

// monthStart normalizes a date to the first day of its month
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
