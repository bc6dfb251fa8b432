package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"gorm.io/gorm"
)

// ClusterRepository handles cluster data access operations
type ClusterRepository struct {
	db *gorm.DB
}

// NewClusterRepository creates a new cluster repository instance
func NewClusterRepository(db *gorm.DB) *ClusterRepository {
	return &ClusterRepository{db: db}
}

func (r *ClusterRepository) Create(ctx context.Context, cluster *domain.Cluster) error {
	return r.db.WithContext(ctx).Create(cluster).Error
}

func (r *ClusterRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Cluster, error) {
	var cluster domain.Cluster
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cluster).Error
	if err != nil {
		return nil, err
	}
	return &cluster, nil
}

func (r *ClusterRepository) Update(ctx context.Context, cluster *domain.Cluster) error {
	return r.db.WithContext(ctx).Omit("Locations").Save(cluster).Error
}

func (r *ClusterRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Cluster{}, "id = ?", id).Error
}

// List returns all clusters ordered by name
func (r *ClusterRepository) List(ctx context.Context) ([]domain.Cluster, error) {
	var clusters []domain.Cluster
	err := r.db.WithContext(ctx).Order("name ASC").Find(&clusters).Error
	return clusters, err
}

// CountLocations returns how many locations reference a cluster
func (r *ClusterRepository) CountLocations(ctx context.Context, clusterID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Location{}).Where("cluster_id = ?", clusterID).Count(&count).Error
	return count, err
}
