package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/auth"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/mapper"
	"github.com/straye-as/season-planning-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RangeArchitectureService manages the planned styles, options and depth per
// category and price band, and their review cycle.
type RangeArchitectureService struct {
	rangeRepo    *repository.RangeArchitectureRepository
	seasonRepo   *repository.SeasonRepository
	categoryRepo *repository.CategoryRepository
	guard        *MutationGuard
	auditSvc     *AuditLogService
	logger       *zap.Logger
}

// NewRangeArchitectureService creates a new range architecture service
func NewRangeArchitectureService(
	rangeRepo *repository.RangeArchitectureRepository,
	seasonRepo *repository.SeasonRepository,
	categoryRepo *repository.CategoryRepository,
	guard *MutationGuard,
	auditSvc *AuditLogService,
	logger *zap.Logger,
) *RangeArchitectureService {
	return &RangeArchitectureService{
		rangeRepo:    rangeRepo,
		seasonRepo:   seasonRepo,
		categoryRepo: categoryRepo,
		guard:        guard,
		auditSvc:     auditSvc,
		logger:       logger,
	}
}

// Create adds one draft line to the season
func (s *RangeArchitectureService) Create(ctx context.Context, seasonID uuid.UUID, req *domain.RangeArchitectureRequest) (*domain.RangeArchitectureDTO, error) {
	created, err := s.createLines(ctx, seasonID, []domain.RangeArchitectureRequest{*req})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

// BulkCreate adds several draft lines in one transaction
func (s *RangeArchitectureService) BulkCreate(ctx context.Context, seasonID uuid.UUID, req *domain.BulkRangeArchitectureRequest) ([]domain.RangeArchitectureDTO, error) {
	if len(req.Items) == 0 {
		return nil, newValidationError("items", "at least one range line is required")
	}
	return s.createLines(ctx, seasonID, req.Items)
}

func (s *RangeArchitectureService) createLines(ctx context.Context, seasonID uuid.UUID, reqs []domain.RangeArchitectureRequest) ([]domain.RangeArchitectureDTO, error) {
	categoryIDs := make([]uuid.UUID, 0, len(reqs))
	for i := range reqs {
		if err := validateRangeLine(&reqs[i]); err != nil {
			return nil, err
		}
		categoryIDs = append(categoryIDs, reqs[i].CategoryID)
	}
	if err := checkCategories(ctx, s.categoryRepo, categoryIDs...); err != nil {
		return nil, err
	}

	_, actorName := auth.Actor(ctx)
	items := make([]domain.RangeArchitecture, len(reqs))
	for i := range reqs {
		items[i] = domain.RangeArchitecture{
			SeasonID:  seasonID,
			Status:    domain.RangeStatusDraft,
			CreatedBy: actorName,
		}
		applyRangeLine(&items[i], &reqs[i])
	}

	err := s.guard.Guarded(ctx, seasonID, domain.EntityKindRangeArchitecture, domain.OperationCreate, func(tx *gorm.DB, season *domain.Season) error {
		if err := s.rangeRepo.WithTx(tx).CreateBatch(ctx, items); err != nil {
			return mapper.FormatError("range architecture", "create", err)
		}
		for i := range items {
			if err := s.auditSvc.Record(ctx, tx, LogEntry{
				SeasonID:   &seasonID,
				Action:     domain.AuditActionCreate,
				EntityType: domain.EntityKindRangeArchitecture,
				EntityID:   &items[i].ID,
				NewValues:  mapper.ToRangeArchitectureDTO(&items[i]),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("range architecture created",
		zap.String("season_id", seasonID.String()),
		zap.Int("lines", len(items)))
	return toRangeDTOs(items), nil
}

// Get returns one line of the season
func (s *RangeArchitectureService) Get(ctx context.Context, seasonID, id uuid.UUID) (*domain.RangeArchitectureDTO, error) {
	ra, err := s.getLine(ctx, s.rangeRepo, seasonID, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToRangeArchitectureDTO(ra)
	return &dto, nil
}

// List returns the season's lines
func (s *RangeArchitectureService) List(ctx context.Context, seasonID uuid.UUID, filters *repository.RangeArchitectureFilters) ([]domain.RangeArchitectureDTO, error) {
	items, err := s.rangeRepo.ListBySeason(ctx, seasonID, filters)
	if err != nil {
		return nil, err
	}
	return toRangeDTOs(items), nil
}

// Update edits a line. Approved lines are immutable, and editing a submitted
// line takes it back to draft so it has to be submitted again.
func (s *RangeArchitectureService) Update(ctx context.Context, seasonID, id uuid.UUID, req *domain.RangeArchitectureRequest) (*domain.RangeArchitectureDTO, error) {
	if err := validateRangeLine(req); err != nil {
		return nil, err
	}
	if err := checkCategories(ctx, s.categoryRepo, req.CategoryID); err != nil {
		return nil, err
	}

	var ra *domain.RangeArchitecture
	err := s.guard.Guarded(ctx, seasonID, domain.EntityKindRangeArchitecture, domain.OperationUpdate, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.rangeRepo.WithTx(tx)
		existing, err := s.getLine(ctx, repo, seasonID, id)
		if err != nil {
			return err
		}
		if existing.Status == domain.RangeStatusApproved {
			return newInvalidStateError("range architecture", id, string(existing.Status), "approved range lines cannot be modified")
		}

		old := mapper.ToRangeArchitectureDTO(existing)
		applyRangeLine(existing, req)
		if existing.Status == domain.RangeStatusSubmitted {
			existing.Status = domain.RangeStatusDraft
			existing.SubmittedBy = ""
			existing.SubmittedAt = nil
		}
		if err := repo.Update(ctx, existing); err != nil {
			return mapper.FormatError("range architecture", "update", err)
		}
		ra = existing

		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionUpdate,
			EntityType: domain.EntityKindRangeArchitecture,
			EntityID:   &id,
			OldValues:  old,
			NewValues:  mapper.ToRangeArchitectureDTO(ra),
		})
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToRangeArchitectureDTO(ra)
	return &dto, nil
}

// Delete removes a draft line
func (s *RangeArchitectureService) Delete(ctx context.Context, seasonID, id uuid.UUID) error {
	return s.guard.Guarded(ctx, seasonID, domain.EntityKindRangeArchitecture, domain.OperationDelete, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.rangeRepo.WithTx(tx)
		existing, err := s.getLine(ctx, repo, seasonID, id)
		if err != nil {
			return err
		}
		ok, err := repo.DeleteDraft(ctx, id)
		if err != nil {
			return mapper.FormatError("range architecture", "delete", err)
		}
		if !ok {
			return newInvalidStateError("range architecture", id, string(existing.Status), "only draft range lines can be deleted")
		}
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionDelete,
			EntityType: domain.EntityKindRangeArchitecture,
			EntityID:   &id,
			OldValues:  mapper.ToRangeArchitectureDTO(existing),
		})
	})
}

// Submit sends draft or rejected lines for review
func (s *RangeArchitectureService) Submit(ctx context.Context, seasonID uuid.UUID, req *domain.RangeReviewRequest) (*domain.RangeReviewResponse, error) {
	_, actorName := auth.Actor(ctx)
	return s.review(ctx, seasonID, req.RangeIDs, domain.OperationUpdate, domain.RangeStatusSubmitted, domain.AuditActionUpdate,
		func(repo *repository.RangeArchitectureRepository, id uuid.UUID, at time.Time) (bool, error) {
			return repo.Submit(ctx, id, actorName, at)
		})
}

// Approve approves submitted lines
func (s *RangeArchitectureService) Approve(ctx context.Context, seasonID uuid.UUID, req *domain.RangeReviewRequest) (*domain.RangeReviewResponse, error) {
	_, actorName := auth.Actor(ctx)
	comment := strings.TrimSpace(req.Comment)
	return s.review(ctx, seasonID, req.RangeIDs, domain.OperationApprove, domain.RangeStatusApproved, domain.AuditActionApprove,
		func(repo *repository.RangeArchitectureRepository, id uuid.UUID, at time.Time) (bool, error) {
			return repo.Review(ctx, id, domain.RangeStatusApproved, actorName, comment, at)
		})
}

// Reject sends submitted lines back with a comment
func (s *RangeArchitectureService) Reject(ctx context.Context, seasonID uuid.UUID, req *domain.RangeReviewRequest) (*domain.RangeReviewResponse, error) {
	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		return nil, newValidationError("comment", "a rejection comment is required")
	}
	_, actorName := auth.Actor(ctx)
	return s.review(ctx, seasonID, req.RangeIDs, domain.OperationApprove, domain.RangeStatusRejected, domain.AuditActionReject,
		func(repo *repository.RangeArchitectureRepository, id uuid.UUID, at time.Time) (bool, error) {
			return repo.Review(ctx, id, domain.RangeStatusRejected, actorName, comment, at)
		})
}

// review applies one status change to every listed line. Any line in the
// wrong status fails the whole batch.
func (s *RangeArchitectureService) review(
	ctx context.Context,
	seasonID uuid.UUID,
	ids []uuid.UUID,
	op domain.Operation,
	to domain.RangeArchitectureStatus,
	action domain.AuditAction,
	update func(repo *repository.RangeArchitectureRepository, id uuid.UUID, at time.Time) (bool, error),
) (*domain.RangeReviewResponse, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, newValidationError("rangeIds", "at least one range line is required")
	}

	var updated []domain.RangeArchitecture
	err := s.guard.Guarded(ctx, seasonID, domain.EntityKindRangeArchitecture, op, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.rangeRepo.WithTx(tx)
		now := time.Now()

		for _, id := range ids {
			existing, err := s.getLine(ctx, repo, seasonID, id)
			if err != nil {
				return err
			}
			ok, err := update(repo, id, now)
			if err != nil {
				return mapper.FormatError("range architecture", string(action), err)
			}
			if !ok {
				return newInvalidStateError("range architecture", id, string(existing.Status),
					"range line cannot move from "+string(existing.Status)+" to "+string(to))
			}

			latest, err := s.getLine(ctx, repo, seasonID, id)
			if err != nil {
				return err
			}
			updated = append(updated, *latest)

			if err := s.auditSvc.Record(ctx, tx, LogEntry{
				SeasonID:   &seasonID,
				Action:     action,
				EntityType: domain.EntityKindRangeArchitecture,
				EntityID:   &latest.ID,
				OldValues:  map[string]interface{}{"status": existing.Status},
				NewValues:  mapper.ToRangeArchitectureDTO(latest),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("range architecture reviewed",
		zap.String("season_id", seasonID.String()),
		zap.String("status", string(to)),
		zap.Int("lines", len(updated)))
	return &domain.RangeReviewResponse{
		Status:  to,
		Updated: len(updated),
		Ranges:  toRangeDTOs(updated),
	}, nil
}

type rangeKey struct {
	categoryID uuid.UUID
	priceBand  string
	styleType  string
}

type rangeFigures struct {
	styles  int
	options int
	units   int
}

func (f rangeFigures) depth() int {
	if f.options == 0 {
		return 0
	}
	return (f.units + f.options/2) / f.options
}

// CompareSeasons sets the season's lines against a prior season's, matched on
// category, price band and style type. Lines sharing a key are summed and
// their depth is the unit-weighted average.
func (s *RangeArchitectureService) CompareSeasons(ctx context.Context, seasonID, priorSeasonID uuid.UUID) (*domain.RangeComparisonReport, error) {
	if seasonID == priorSeasonID {
		return nil, newValidationError("priorSeasonId", "prior season must differ from the season")
	}
	for _, id := range []uuid.UUID{seasonID, priorSeasonID} {
		if _, err := s.seasonRepo.GetByID(ctx, id); err != nil {
			if repository.IsNotFound(err) {
				return nil, newNotFoundError("season", id)
			}
			return nil, err
		}
	}

	current, err := s.rangeRepo.ListBySeason(ctx, seasonID, nil)
	if err != nil {
		return nil, err
	}
	prior, err := s.rangeRepo.ListBySeason(ctx, priorSeasonID, nil)
	if err != nil {
		return nil, err
	}

	currentByKey := groupRangeLines(current)
	priorByKey := groupRangeLines(prior)

	keys := make([]rangeKey, 0, len(currentByKey)+len(priorByKey))
	categoryIDs := make([]uuid.UUID, 0, len(keys))
	for k := range currentByKey {
		keys = append(keys, k)
		categoryIDs = append(categoryIDs, k.categoryID)
	}
	for k := range priorByKey {
		if _, ok := currentByKey[k]; !ok {
			keys = append(keys, k)
			categoryIDs = append(categoryIDs, k.categoryID)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].categoryID != keys[j].categoryID {
			return keys[i].categoryID.String() < keys[j].categoryID.String()
		}
		if keys[i].priceBand != keys[j].priceBand {
			return keys[i].priceBand < keys[j].priceBand
		}
		return keys[i].styleType < keys[j].styleType
	})

	categories, err := s.categoryRepo.GetByIDs(ctx, uniqueIDs(categoryIDs))
	if err != nil {
		return nil, err
	}

	report := &domain.RangeComparisonReport{
		SeasonID:      seasonID,
		PriorSeasonID: priorSeasonID,
		Lines:         make([]domain.RangeComparisonLine, 0, len(keys)),
	}
	for _, k := range keys {
		c, p := currentByKey[k], priorByKey[k]
		line := domain.RangeComparisonLine{
			CategoryID:      k.categoryID,
			CategoryName:    categories[k.categoryID].Name,
			PriceBand:       k.priceBand,
			StyleType:       k.styleType,
			CurrentStyles:   c.styles,
			CurrentOptions:  c.options,
			CurrentDepth:    c.depth(),
			PriorStyles:     p.styles,
			PriorOptions:    p.options,
			PriorDepth:      p.depth(),
			StylesVariance:  c.styles - p.styles,
			OptionsVariance: c.options - p.options,
			DepthVariance:   c.depth() - p.depth(),
		}
		report.Lines = append(report.Lines, line)

		report.Totals.CurrentStyles += c.styles
		report.Totals.PriorStyles += p.styles
		report.Totals.CurrentOptions += c.options
		report.Totals.PriorOptions += p.options
	}
	report.Totals.StylesVariance = report.Totals.CurrentStyles - report.Totals.PriorStyles
	report.Totals.OptionsVariance = report.Totals.CurrentOptions - report.Totals.PriorOptions
	return report, nil
}

func groupRangeLines(items []domain.RangeArchitecture) map[rangeKey]rangeFigures {
	grouped := make(map[rangeKey]rangeFigures, len(items))
	for _, ra := range items {
		k := rangeKey{categoryID: ra.CategoryID, priceBand: ra.PriceBand, styleType: ra.StyleType}
		f := grouped[k]
		f.styles += ra.PlannedStyles
		f.options += ra.PlannedOptions
		f.units += ra.PlannedOptions * ra.PlannedDepth
		grouped[k] = f
	}
	return grouped
}

func (s *RangeArchitectureService) getLine(ctx context.Context, repo *repository.RangeArchitectureRepository, seasonID, id uuid.UUID) (*domain.RangeArchitecture, error) {
	ra, err := repo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newNotFoundError("range architecture", id)
		}
		return nil, err
	}
	if ra.SeasonID != seasonID {
		return nil, newNotFoundError("range architecture", id)
	}
	return ra, nil
}

// validateRangeLine checks what the request tags cannot: a band label made of
// whitespace, and options below styles.
func validateRangeLine(req *domain.RangeArchitectureRequest) error {
	req.PriceBand = strings.TrimSpace(req.PriceBand)
	req.StyleType = strings.ToLower(strings.TrimSpace(req.StyleType))
	if req.PriceBand == "" {
		return newValidationError("priceBand", "price band is required")
	}
	if req.PlannedStyles < 0 || req.PlannedOptions < 0 || req.PlannedDepth < 0 {
		return newValidationError("plannedStyles", "planned styles, options and depth must not be negative")
	}
	if req.PlannedOptions < req.PlannedStyles {
		return newValidationError("plannedOptions", "every style needs at least one option")
	}
	return nil
}

func applyRangeLine(ra *domain.RangeArchitecture, req *domain.RangeArchitectureRequest) {
	ra.CategoryID = req.CategoryID
	ra.PriceBand = req.PriceBand
	ra.Fabric = strings.TrimSpace(req.Fabric)
	ra.ColorFamily = strings.TrimSpace(req.ColorFamily)
	ra.StyleType = req.StyleType
	ra.PlannedStyles = req.PlannedStyles
	ra.PlannedOptions = req.PlannedOptions
	ra.PlannedDepth = req.PlannedDepth
}

func toRangeDTOs(items []domain.RangeArchitecture) []domain.RangeArchitectureDTO {
	dtos := make([]domain.RangeArchitectureDTO, len(items))
	for i := range items {
		dtos[i] = mapper.ToRangeArchitectureDTO(&items[i])
	}
	return dtos
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
