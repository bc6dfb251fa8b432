package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"gorm.io/gorm"
)

// LocationFilters defines filter options for location listing
type LocationFilters struct {
	Search    string
	Type      *domain.LocationType
	ClusterID *uuid.UUID
	IsActive  *bool
}

var locationSortableFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"code":      "code",
	"city":      "city",
	"type":      "type",
}

// LocationRepository handles location master data and season assignments
type LocationRepository struct {
	db *gorm.DB
}

// NewLocationRepository creates a new location repository instance
func NewLocationRepository(db *gorm.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *LocationRepository) WithTx(tx *gorm.DB) *LocationRepository {
	return &LocationRepository{db: tx}
}

func (r *LocationRepository) Create(ctx context.Context, location *domain.Location) error {
	return r.db.WithContext(ctx).Omit("Cluster").Create(location).Error
}

func (r *LocationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Location, error) {
	var location domain.Location
	err := r.db.WithContext(ctx).Preload("Cluster").Where("id = ?", id).First(&location).Error
	if err != nil {
		return nil, err
	}
	return &location, nil
}

// GetByCode finds a location by its unique code
func (r *LocationRepository) GetByCode(ctx context.Context, code string) (*domain.Location, error) {
	var location domain.Location
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&location).Error
	if err != nil {
		return nil, err
	}
	return &location, nil
}

// ExistsByCode reports whether a location code is taken
func (r *LocationRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Location{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

func (r *LocationRepository) Update(ctx context.Context, location *domain.Location) error {
	return r.db.WithContext(ctx).Omit("Cluster").Save(location).Error
}

func (r *LocationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Location{}, "id = ?", id).Error
}

// List returns a paginated list of locations
func (r *LocationRepository) List(ctx context.Context, page, pageSize int, filters *LocationFilters, sort SortConfig) ([]domain.Location, int64, error) {
	var locations []domain.Location
	var total int64

	page, pageSize = NormalizePagination(page, pageSize)
	query := r.db.WithContext(ctx).Model(&domain.Location{})

	if filters != nil {
		if filters.Search != "" {
			searchPattern := "%" + strings.ToLower(filters.Search) + "%"
			query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR LOWER(city) LIKE ?", searchPattern, searchPattern, searchPattern)
		}
		if filters.Type != nil {
			query = query.Where("type = ?", *filters.Type)
		}
		if filters.ClusterID != nil {
			query = query.Where("cluster_id = ?", *filters.ClusterID)
		}
		if filters.IsActive != nil {
			query = query.Where("is_active = ?", *filters.IsActive)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderClause := BuildOrderClause(sort, locationSortableFields, "name")
	offset := (page - 1) * pageSize
	err := query.Preload("Cluster").Offset(offset).Limit(pageSize).Order(orderClause).Find(&locations).Error

	return locations, total, err
}

// Assign links a location to a season
func (r *LocationRepository) Assign(ctx context.Context, assignment *domain.SeasonLocation) error {
	return r.db.WithContext(ctx).Omit("Location").Create(assignment).Error
}

// Unassign removes a location from a season and returns the rows removed
func (r *LocationRepository) Unassign(ctx context.Context, seasonID, locationID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("season_id = ? AND location_id = ?", seasonID, locationID).
		Delete(&domain.SeasonLocation{})
	return result.RowsAffected, result.Error
}

// IsAssigned reports whether a location belongs to a season
func (r *LocationRepository) IsAssigned(ctx context.Context, seasonID, locationID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SeasonLocation{}).
		Where("season_id = ? AND location_id = ?", seasonID, locationID).
		Count(&count).Error
	return count > 0, err
}

// ListForSeason returns the locations assigned to a season ordered by name
func (r *LocationRepository) ListForSeason(ctx context.Context, seasonID uuid.UUID) ([]domain.Location, error) {
	var locations []domain.Location
	err := r.db.WithContext(ctx).
		Joins("JOIN season_locations sl ON sl.location_id = locations.id").
		Where("sl.season_id = ?", seasonID).
		Order("locations.name ASC").
		Find(&locations).Error
	return locations, err
}

// CountForSeason returns the number of locations assigned to a season
func (r *LocationRepository) CountForSeason(ctx context.Context, seasonID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SeasonLocation{}).Where("season_id = ?", seasonID).Count(&count).Error
	return count, err
}

// CountAssignments returns how many seasons a location is assigned to
func (r *LocationRepository) CountAssignments(ctx context.Context, locationID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SeasonLocation{}).Where("location_id = ?", locationID).Count(&count).Error
	return count, err
}

// GetByIDs loads locations keyed by id
func (r *LocationRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Location, error) {
	out := make(map[uuid.UUID]domain.Location, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var locations []domain.Location
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&locations).Error; err != nil {
		return nil, err
	}
	for _, l := range locations {
		out[l.ID] = l
	}
	return out, nil
}
