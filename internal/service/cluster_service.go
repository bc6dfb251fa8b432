package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/mapper"
	"github.com/straye-as/season-planning-api/internal/repository"
	"go.uber.org/zap"
)

// ClusterService manages location clusters
type ClusterService struct {
	clusterRepo *repository.ClusterRepository
	logger      *zap.Logger
}

// NewClusterService creates a new cluster service
func NewClusterService(clusterRepo *repository.ClusterRepository, logger *zap.Logger) *ClusterService {
	return &ClusterService{
		clusterRepo: clusterRepo,
		logger:      logger,
	}
}

func (s *ClusterService) Create(ctx context.Context, req *domain.CreateClusterRequest) (*domain.ClusterDTO, error) {
	cluster := &domain.Cluster{
		Name:        req.Name,
		Code:        strings.ToUpper(req.Code),
		Description: req.Description,
	}
	if err := s.clusterRepo.Create(ctx, cluster); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrConflict
		}
		return nil, mapper.FormatError("cluster", "create", err)
	}

	s.logger.Info("cluster created", zap.String("cluster_id", cluster.ID.String()))
	dto := mapper.ToClusterDTO(cluster)
	return &dto, nil
}

func (s *ClusterService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ClusterDTO, error) {
	cluster, err := s.clusterRepo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newNotFoundError("cluster", id)
		}
		return nil, err
	}
	dto := mapper.ToClusterDTO(cluster)
	return &dto, nil
}

func (s *ClusterService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateClusterRequest) (*domain.ClusterDTO, error) {
	cluster, err := s.clusterRepo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newNotFoundError("cluster", id)
		}
		return nil, err
	}

	cluster.Name = req.Name
	cluster.Description = req.Description
	if err := s.clusterRepo.Update(ctx, cluster); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrConflict
		}
		return nil, mapper.FormatError("cluster", "update", err)
	}
	dto := mapper.ToClusterDTO(cluster)
	return &dto, nil
}

// Delete removes a cluster that no location belongs to
func (s *ClusterService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.clusterRepo.GetByID(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return newNotFoundError("cluster", id)
		}
		return err
	}
	count, err := s.clusterRepo.CountLocations(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return newInvalidStateError("cluster", id, "in_use", "cluster still has locations")
	}
	return s.clusterRepo.Delete(ctx, id)
}

func (s *ClusterService) List(ctx context.Context) ([]domain.ClusterDTO, error) {
	clusters, err := s.clusterRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	dtos := make([]domain.ClusterDTO, len(clusters))
	for i := range clusters {
		dtos[i] = mapper.ToClusterDTO(&clusters[i])
	}
	return dtos, nil
}
