package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/mapper"
	"github.com/straye-as/season-planning-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LocationService manages location master data and season assignments
type LocationService struct {
	locationRepo *repository.LocationRepository
	clusterRepo  *repository.ClusterRepository
	guard        *MutationGuard
	auditSvc     *AuditLogService
	logger       *zap.Logger
}

// NewLocationService creates a new location service
func NewLocationService(
	locationRepo *repository.LocationRepository,
	clusterRepo *repository.ClusterRepository,
	guard *MutationGuard,
	auditSvc *AuditLogService,
	logger *zap.Logger,
) *LocationService {
	return &LocationService{
		locationRepo: locationRepo,
		clusterRepo:  clusterRepo,
		guard:        guard,
		auditSvc:     auditSvc,
		logger:       logger,
	}
}

// Create creates a location with a generated 16 character code
func (s *LocationService) Create(ctx context.Context, req *domain.CreateLocationRequest) (*domain.LocationDTO, error) {
	if !req.Type.IsValid() {
		return nil, newValidationError("type", "must be store or warehouse")
	}
	if err := s.checkCluster(ctx, req.ClusterID); err != nil {
		return nil, err
	}

	code, err := uniqueCode(ctx, locationCode, s.locationRepo.ExistsByCode)
	if err != nil {
		return nil, err
	}

	location := &domain.Location{
		Code:       code,
		Name:       req.Name,
		Type:       req.Type,
		ClusterID:  req.ClusterID,
		Address:    req.Address,
		City:       req.City,
		State:      req.State,
		Country:    req.Country,
		PostalCode: req.PostalCode,
		IsActive:   true,
	}
	if err := s.locationRepo.Create(ctx, location); err != nil {
		return nil, mapper.FormatError("location", "create", err)
	}

	s.audit(ctx, domain.AuditActionCreate, location.ID, nil, mapper.ToLocationDTO(location))
	s.logger.Info("location created",
		zap.String("location_id", location.ID.String()),
		zap.String("code", location.Code))

	dto := mapper.ToLocationDTO(location)
	return &dto, nil
}

// GetByID returns a location
func (s *LocationService) GetByID(ctx context.Context, id uuid.UUID) (*domain.LocationDTO, error) {
	location, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToLocationDTO(location)
	return &dto, nil
}

// Update updates a location. The code never changes.
func (s *LocationService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateLocationRequest) (*domain.LocationDTO, error) {
	if !req.Type.IsValid() {
		return nil, newValidationError("type", "must be store or warehouse")
	}
	location, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkCluster(ctx, req.ClusterID); err != nil {
		return nil, err
	}

	old := mapper.ToLocationDTO(location)
	location.Name = req.Name
	location.Type = req.Type
	location.ClusterID = req.ClusterID
	location.Address = req.Address
	location.City = req.City
	location.State = req.State
	location.Country = req.Country
	location.PostalCode = req.PostalCode
	if req.IsActive != nil {
		location.IsActive = *req.IsActive
	}

	if err := s.locationRepo.Update(ctx, location); err != nil {
		return nil, mapper.FormatError("location", "update", err)
	}

	s.audit(ctx, domain.AuditActionUpdate, id, old, mapper.ToLocationDTO(location))
	dto := mapper.ToLocationDTO(location)
	return &dto, nil
}

// Delete removes a location that is not assigned to any season
func (s *LocationService) Delete(ctx context.Context, id uuid.UUID) error {
	location, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	assigned, err := s.locationRepo.CountAssignments(ctx, id)
	if err != nil {
		return err
	}
	if assigned > 0 {
		return newInvalidStateError("location", id, "assigned", "location is assigned to one or more seasons")
	}

	if err := s.locationRepo.Delete(ctx, id); err != nil {
		return mapper.FormatError("location", "delete", err)
	}
	s.audit(ctx, domain.AuditActionDelete, id, mapper.ToLocationDTO(location), nil)
	return nil
}

// List returns a page of locations
func (s *LocationService) List(ctx context.Context, page, pageSize int, filters *repository.LocationFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePagination(page, pageSize)
	locations, total, err := s.locationRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, err
	}
	dtos := make([]domain.LocationDTO, len(locations))
	for i := range locations {
		dtos[i] = mapper.ToLocationDTO(&locations[i])
	}
	return mapper.NewPaginatedResponse(dtos, total, page, pageSize), nil
}

// AssignToSeason adds a location to a season's set of planned locations
func (s *LocationService) AssignToSeason(ctx context.Context, seasonID, locationID uuid.UUID) (*domain.LocationDTO, error) {
	location, err := s.get(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if !location.IsActive {
		return nil, newValidationError("locationId", "location is inactive")
	}

	err = s.guard.Guarded(ctx, seasonID, domain.EntityKindLocation, domain.OperationCreate, func(tx *gorm.DB, season *domain.Season) error {
		repo := s.locationRepo.WithTx(tx)
		assigned, err := repo.IsAssigned(ctx, seasonID, locationID)
		if err != nil {
			return err
		}
		if assigned {
			return ErrConflict
		}
		if err := repo.Assign(ctx, &domain.SeasonLocation{SeasonID: seasonID, LocationID: locationID}); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrConflict
			}
			return mapper.FormatError("season location", "create", err)
		}
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionCreate,
			EntityType: domain.EntityKindLocation,
			EntityID:   &locationID,
			NewValues:  map[string]interface{}{"seasonId": seasonID, "locationId": locationID},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("location assigned to season",
		zap.String("season_id", seasonID.String()),
		zap.String("location_id", locationID.String()))
	dto := mapper.ToLocationDTO(location)
	return &dto, nil
}

// UnassignFromSeason removes a location from a season
func (s *LocationService) UnassignFromSeason(ctx context.Context, seasonID, locationID uuid.UUID) error {
	return s.guard.Guarded(ctx, seasonID, domain.EntityKindLocation, domain.OperationDelete, func(tx *gorm.DB, season *domain.Season) error {
		removed, err := s.locationRepo.WithTx(tx).Unassign(ctx, seasonID, locationID)
		if err != nil {
			return mapper.FormatError("season location", "delete", err)
		}
		if removed == 0 {
			return newNotFoundError("season location", locationID)
		}
		return s.auditSvc.Record(ctx, tx, LogEntry{
			SeasonID:   &seasonID,
			Action:     domain.AuditActionDelete,
			EntityType: domain.EntityKindLocation,
			EntityID:   &locationID,
			OldValues:  map[string]interface{}{"seasonId": seasonID, "locationId": locationID},
		})
	})
}

// ListForSeason returns the locations assigned to a season
func (s *LocationService) ListForSeason(ctx context.Context, seasonID uuid.UUID) ([]domain.LocationDTO, error) {
	locations, err := s.locationRepo.ListForSeason(ctx, seasonID)
	if err != nil {
		return nil, err
	}
	dtos := make([]domain.LocationDTO, len(locations))
	for i := range locations {
		dtos[i] = mapper.ToLocationDTO(&locations[i])
	}
	return dtos, nil
}

func (s *LocationService) get(ctx context.Context, id uuid.UUID) (*domain.Location, error) {
	location, err := s.locationRepo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newNotFoundError("location", id)
		}
		return nil, err
	}
	return location, nil
}

func (s *LocationService) checkCluster(ctx context.Context, clusterID *uuid.UUID) error {
	if clusterID == nil {
		return nil
	}
	if _, err := s.clusterRepo.GetByID(ctx, *clusterID); err != nil {
		if repository.IsNotFound(err) {
			return newValidationError("clusterId", "cluster does not exist")
		}
		return err
	}
	return nil
}

// audit records a master data change. Failures are logged since the change
// itself has already been committed.
func (s *LocationService) audit(ctx context.Context, action domain.AuditAction, id uuid.UUID, oldValues, newValues interface{}) {
	if err := s.auditSvc.Record(ctx, nil, LogEntry{
		Action:     action,
		EntityType: domain.EntityKindLocation,
		EntityID:   &id,
		OldValues:  oldValues,
		NewValues:  newValues,
	}); err != nil {
		s.logger.Warn("failed to record location audit entry", zap.Error(err))
	}
}
