package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"gorm.io/gorm"
)

// CategoryRepository handles the shared product category tree
type CategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository instance
func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *CategoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	var category domain.Category
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// GetByCode finds a category by its external code
func (r *CategoryRepository) GetByCode(ctx context.Context, code string) (*domain.Category, error) {
	var category domain.Category
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *CategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *CategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Category{}, "id = ?", id).Error
}

// List returns categories ordered by their materialized path, optionally
// restricted to the direct children of parentID
func (r *CategoryRepository) List(ctx context.Context, parentID *uuid.UUID) ([]domain.Category, error) {
	var categories []domain.Category
	query := r.db.WithContext(ctx)
	if parentID != nil {
		query = query.Where("parent_id = ?", *parentID)
	}
	err := query.Order("path ASC, name ASC").Find(&categories).Error
	return categories, err
}

// CountChildren returns the number of direct children of a category
func (r *CategoryRepository) CountChildren(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Category{}).Where("parent_id = ?", id).Count(&count).Error
	return count, err
}

// CountExisting returns how many of ids exist
func (r *CategoryRepository) CountExisting(ctx context.Context, ids ...uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Category{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

// GetByIDs loads categories keyed by id
func (r *CategoryRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Category, error) {
	out := make(map[uuid.UUID]domain.Category, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var categories []domain.Category
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&categories).Error; err != nil {
		return nil, err
	}
	for _, c := range categories {
		out[c.ID] = c
	}
	return out, nil
}

// IsReferenced reports whether any season data points at the category
func (r *CategoryRepository) IsReferenced(ctx context.Context, id uuid.UUID) (bool, error) {
	checks := []struct {
		model interface{}
		where string
		args  []interface{}
	}{
		{&domain.SeasonPlan{}, "category_id = ?", []interface{}{id}},
		{&domain.OTBPlan{}, "category_id = ?", []interface{}{id}},
		{&domain.RangeIntent{}, "category_id = ?", []interface{}{id}},
		{&domain.PurchaseOrder{}, "category_id = ?", []interface{}{id}},
		{&domain.BudgetAdjustment{}, "from_category_id = ? OR to_category_id = ?", []interface{}{id, id}},
	}
	for _, c := range checks {
		var count int64
		if err := r.db.WithContext(ctx).Model(c.model).Where(c.where, c.args...).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}
