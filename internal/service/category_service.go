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

// maxCategoryDepth bounds the category tree
const maxCategoryDepth = 5

// CategoryService manages the product category hierarchy
type CategoryService struct {
	categoryRepo *repository.CategoryRepository
	logger       *zap.Logger
}

// NewCategoryService creates a new category service
func NewCategoryService(categoryRepo *repository.CategoryRepository, logger *zap.Logger) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		logger:       logger,
	}
}

// Create creates a category. Level and path are derived from the parent: the
// path is the slash-joined chain of ancestor IDs ending in the category's own.
func (s *CategoryService) Create(ctx context.Context, req *domain.CreateCategoryRequest) (*domain.CategoryDTO, error) {
	category := &domain.Category{
		BaseModel:   domain.BaseModel{ID: uuid.New()},
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	}
	if code := strings.TrimSpace(req.Code); code != "" {
		code = strings.ToUpper(code)
		category.Code = &code
	}

	category.Path = category.ID.String()
	if req.ParentID != nil {
		parent, err := s.categoryRepo.GetByID(ctx, *req.ParentID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, newValidationError("parentId", "parent category does not exist")
			}
			return nil, err
		}
		if parent.Level+1 >= maxCategoryDepth {
			return nil, newValidationError("parentId", "category hierarchy is too deep")
		}
		category.Level = parent.Level + 1
		category.Path = parent.Path + "/" + category.ID.String()
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrConflict
		}
		return nil, mapper.FormatError("category", "create", err)
	}

	s.logger.Info("category created",
		zap.String("category_id", category.ID.String()),
		zap.Int("level", category.Level))
	dto := mapper.ToCategoryDTO(category)
	return &dto, nil
}

func (s *CategoryService) GetByID(ctx context.Context, id uuid.UUID) (*domain.CategoryDTO, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newNotFoundError("category", id)
		}
		return nil, err
	}
	dto := mapper.ToCategoryDTO(category)
	return &dto, nil
}

// Update renames a category. The position in the tree is fixed.
func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateCategoryRequest) (*domain.CategoryDTO, error) {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, newNotFoundError("category", id)
		}
		return nil, err
	}

	category.Name = req.Name
	category.Description = req.Description
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, mapper.FormatError("category", "update", err)
	}
	dto := mapper.ToCategoryDTO(category)
	return &dto, nil
}

// Delete removes a leaf category that no season data refers to
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.categoryRepo.GetByID(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return newNotFoundError("category", id)
		}
		return err
	}

	children, err := s.categoryRepo.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return newInvalidStateError("category", id, "has_children", "category has subcategories")
	}

	referenced, err := s.categoryRepo.IsReferenced(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return newInvalidStateError("category", id, "in_use", "category is used by season data")
	}

	return s.categoryRepo.Delete(ctx, id)
}

// List returns every category, or only the children of parentID
func (s *CategoryService) List(ctx context.Context, parentID *uuid.UUID) ([]domain.CategoryDTO, error) {
	categories, err := s.categoryRepo.List(ctx, parentID)
	if err != nil {
		return nil, err
	}
	dtos := make([]domain.CategoryDTO, len(categories))
	for i := range categories {
		dtos[i] = mapper.ToCategoryDTO(&categories[i])
	}
	return dtos, nil
}
