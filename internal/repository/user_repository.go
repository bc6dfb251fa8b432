package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"gorm.io/gorm"
)

// UserRepository handles the user directory
type UserRepository struct {
	db *gorm.DB
}

// UserFilters narrows a user listing
type UserFilters struct {
	Role       *domain.UserRoleType
	ActiveOnly bool
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	user.Email = strings.ToLower(user.Email)
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(email)).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	user.Email = strings.ToLower(user.Email)
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.User{}, "id = ?", id).Error
}

// List returns users ordered by name
func (r *UserRepository) List(ctx context.Context, filters *UserFilters) ([]domain.User, error) {
	var users []domain.User
	query := r.db.WithContext(ctx)
	if filters != nil {
		if filters.Role != nil {
			query = query.Where("role = ?", *filters.Role)
		}
		if filters.ActiveOnly {
			query = query.Where("is_active = ?", true)
		}
	}
	err := query.Order("name ASC").Find(&users).Error
	return users, err
}

// Lookup finds the directory entry of an authenticated caller, first by id and
// then by email. It returns nil without an error when neither matches.
func (r *UserRepository) Lookup(ctx context.Context, id uuid.UUID, email string) (*domain.User, error) {
	if id != uuid.Nil {
		user, err := r.GetByID(ctx, id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if email == "" {
		return nil, nil
	}
	user, err := r.GetByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return user, err
}
