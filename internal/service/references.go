package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/repository"
)

// checkCategories fails with a ValidationError unless every id is a category
func checkCategories(ctx context.Context, repo *repository.CategoryRepository, ids ...uuid.UUID) error {
	unique := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	count, err := repo.CountExisting(ctx, ids...)
	if err != nil {
		return err
	}
	if int(count) != len(unique) {
		return newValidationError("categoryId", "category does not exist")
	}
	return nil
}

// checkAssigned fails with a ValidationError unless the location belongs to the season
func checkAssigned(ctx context.Context, repo *repository.LocationRepository, seasonID, locationID uuid.UUID) error {
	assigned, err := repo.IsAssigned(ctx, seasonID, locationID)
	if err != nil {
		return err
	}
	if !assigned {
		return newValidationError("locationId", "location is not assigned to the season")
	}
	return nil
}
