package service_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/repository"
	"github.com/straye-as/season-planning-api/internal/service"
	"github.com/straye-as/season-planning-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rangeLine(categoryID uuid.UUID, band, styleType string, styles, options, depth int) domain.RangeArchitectureRequest {
	return domain.RangeArchitectureRequest{
		CategoryID:     categoryID,
		PriceBand:      band,
		Fabric:         "Cotton",
		ColorFamily:    "Earth",
		StyleType:      styleType,
		PlannedStyles:  styles,
		PlannedOptions: options,
		PlannedDepth:   depth,
	}
}

func TestRangeArchitectureService_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := plannerContext()
	season := testutil.CreateTestSeason(t, env.db, domain.SeasonStatusOTBUploaded)
	knitwear := testutil.CreateTestCategory(t, env.db, "Knitwear")

	create := func(t *testing.T) *domain.RangeArchitectureDTO {
		t.Helper()
		req := rangeLine(knitwear.ID, " Mid ", "Core", 10, 25, 12)
		ra, err := env.rangeArch.Create(ctx, season.ID, &req)
		require.NoError(t, err)
		return ra
	}

	t.Run("new lines start as draft", func(t *testing.T) {
		ra := create(t)
		assert.Equal(t, domain.RangeStatusDraft, ra.Status)
		assert.Equal(t, "Mid", ra.PriceBand)
		assert.Equal(t, "core", ra.StyleType)
		assert.Equal(t, "Test Planner", ra.CreatedBy)
	})

	t.Run("submit then approve", func(t *testing.T) {
		ra := create(t)

		submitted, err := env.rangeArch.Submit(ctx, season.ID, &domain.RangeReviewRequest{RangeIDs: []uuid.UUID{ra.ID, ra.ID}})
		require.NoError(t, err)
		assert.Equal(t, 1, submitted.Updated)
		assert.Equal(t, domain.RangeStatusSubmitted, submitted.Ranges[0].Status)
		assert.Equal(t, "Test Planner", submitted.Ranges[0].SubmittedBy)

		approved, err := env.rangeArch.Approve(ctx, season.ID, &domain.RangeReviewRequest{RangeIDs: []uuid.UUID{ra.ID}})
		require.NoError(t, err)
		assert.Equal(t, domain.RangeStatusApproved, approved.Status)
		assert.Equal(t, domain.RangeStatusApproved, approved.Ranges[0].Status)
		assert.NotNil(t, approved.Ranges[0].ReviewedAt)

		_, err = env.rangeArch.Approve(ctx, season.ID, &domain.RangeReviewRequest{RangeIDs: []uuid.UUID{ra.ID}})
		assert.ErrorIs(t, err, service.ErrInvalidState)

		req := rangeLine(knitwear.ID, "High", "core", 1, 1, 1)
		_, err = env.rangeArch.Update(ctx, season.ID, ra.ID, &req)
		assert.ErrorIs(t, err, service.ErrInvalidState)

		err = env.rangeArch.Delete(ctx, season.ID, ra.ID)
		assert.ErrorIs(t, err, service.ErrInvalidState)
	})

	t.Run("approving a draft is an invalid state", func(t *testing.T) {
		ra := create(t)
		_, err := env.rangeArch.Approve(ctx, season.ID, &domain.RangeReviewRequest{RangeIDs: []uuid.UUID{ra.ID}})
		assert.ErrorIs(t, err, service.ErrInvalidState)
	})

	t.Run("one bad line fails the whole batch", func(t *testing.T) {
		draft := create(t)
		submitted := create(t)
		_, err := env.rangeArch.Submit(ctx, season.ID, &domain.RangeReviewRequest{RangeIDs: []uuid.UUID{submitted.ID}})
		require.NoError(t, err)

		_, err = env.rangeArch.Approve(ctx, season.ID, &domain.RangeReviewRequest{RangeIDs: []uuid.UUID{submitted.ID, draft.ID}})
		assert.ErrorIs(t, err, service.ErrInvalidState)

		got, err := env.rangeArch.Get(ctx, season.ID, submitted.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RangeStatusSubmitted, got.Status)
	})

	t.Run("rejection needs a comment and can be resubmitted", func(t *testing.T) {
		ra := create(t)
		_, err := env.rangeArch.Submit(ctx, season.ID, &domain.RangeReviewRequest{RangeIDs: []uuid.UUID{ra.ID}})
		require.NoError(t, err)

		_, err = env.rangeArch.Reject(ctx, season.ID, &domain.RangeReviewRequest{RangeIDs: []uuid.UUID{ra.ID}, Comment: "  "})
		var verr *service.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "comment", verr.Field)

		rejected, err := env.rangeArch.Reject(ctx, season.ID, &domain.RangeReviewRequest{RangeIDs: []uuid.UUID{ra.ID}, Comment: "too many options"})
		require.NoError(t, err)
		assert.Equal(t, domain.RangeStatusRejected, rejected.Ranges[0].Status)
		assert.Equal(t, "too many options", rejected.Ranges[0].ReviewComment)

		resubmitted, err := env.rangeArch.Submit(ctx, season.ID, &domain.RangeReviewRequest{RangeIDs: []uuid.UUID{ra.ID}})
		require.NoError(t, err)
		assert.Equal(t, domain.RangeStatusSubmitted, resubmitted.Ranges[0].Status)
	})

	t.Run("editing a submitted line returns it to draft", func(t *testing.T) {
		ra := create(t)
		_, err := env.rangeArch.Submit(ctx, season.ID, &domain.RangeReviewRequest{RangeIDs: []uuid.UUID{ra.ID}})
		require.NoError(t, err)

		req := rangeLine(knitwear.ID, "Mid", "fashion", 8, 20, 10)
		updated, err := env.rangeArch.Update(ctx, season.ID, ra.ID, &req)
		require.NoError(t, err)
		assert.Equal(t, domain.RangeStatusDraft, updated.Status)
		assert.Equal(t, "fashion", updated.StyleType)
		assert.Empty(t, updated.SubmittedBy)
		assert.Nil(t, updated.SubmittedAt)
	})

	t.Run("only drafts are deleted", func(t *testing.T) {
		ra := create(t)
		require.NoError(t, env.rangeArch.Delete(ctx, season.ID, ra.ID))

		_, err := env.rangeArch.Get(ctx, season.ID, ra.ID)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("list filters by status", func(t *testing.T) {
		status := domain.RangeStatusRejected
		items, err := env.rangeArch.List(ctx, season.ID, &repository.RangeArchitectureFilters{Status: &status})
		require.NoError(t, err)
		for _, item := range items {
			assert.Equal(t, domain.RangeStatusRejected, item.Status)
		}
	})

	t.Run("line of another season is not found", func(t *testing.T) {
		ra := create(t)
		other := testutil.CreateTestSeason(t, env.db, domain.SeasonStatusOTBUploaded)
		_, err := env.rangeArch.Get(ctx, other.ID, ra.ID)
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}

func TestRangeArchitectureService_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := plannerContext()
	season := testutil.CreateTestSeason(t, env.db, domain.SeasonStatusOTBUploaded)
	knitwear := testutil.CreateTestCategory(t, env.db, "Knitwear")

	tests := []struct {
		name string
		req  domain.RangeArchitectureRequest
	}{
		{"blank price band", rangeLine(knitwear.ID, "   ", "core", 1, 1, 1)},
		{"fewer options than styles", rangeLine(knitwear.ID, "Mid", "core", 5, 4, 1)},
		{"negative depth", rangeLine(knitwear.ID, "Mid", "core", 1, 1, -1)},
		{"unknown category", rangeLine(uuid.New(), "Mid", "core", 1, 1, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.rangeArch.Create(ctx, season.ID, &tt.req)
			assert.ErrorIs(t, err, service.ErrInvalidInput)
		})
	}

	t.Run("bulk create is all or nothing", func(t *testing.T) {
		_, err := env.rangeArch.BulkCreate(ctx, season.ID, &domain.BulkRangeArchitectureRequest{
			Items: []domain.RangeArchitectureRequest{
				rangeLine(knitwear.ID, "Mid", "core", 1, 2, 3),
				rangeLine(knitwear.ID, "Mid", "core", 3, 2, 3),
			},
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		items, err := env.rangeArch.List(ctx, season.ID, nil)
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestRangeArchitectureService_WorkflowGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := plannerContext()
	knitwear := testutil.CreateTestCategory(t, env.db, "Knitwear")

	for _, status := range []domain.SeasonStatus{domain.SeasonStatusPlanUploaded, domain.SeasonStatusLocked} {
		t.Run(string(status), func(t *testing.T) {
			season := testutil.CreateTestSeason(t, env.db, status)
			req := rangeLine(knitwear.ID, "Mid", "core", 1, 1, 1)
			_, err := env.rangeArch.Create(ctx, season.ID, &req)
			assert.ErrorIs(t, err, service.ErrWorkflowViolation)
		})
	}

	t.Run("approval is refused once locked", func(t *testing.T) {
		season := testutil.CreateTestSeason(t, env.db, domain.SeasonStatusRangeUploaded)
		req := rangeLine(knitwear.ID, "Mid", "core", 1, 1, 1)
		ra, err := env.rangeArch.Create(ctx, season.ID, &req)
		require.NoError(t, err)
		_, err = env.rangeArch.Submit(ctx, season.ID, &domain.RangeReviewRequest{RangeIDs: []uuid.UUID{ra.ID}})
		require.NoError(t, err)

		require.NoError(t, env.db.Model(&domain.Season{}).Where("id = ?", season.ID).
			Update("status", domain.SeasonStatusLocked).Error)

		_, err = env.rangeArch.Approve(ctx, season.ID, &domain.RangeReviewRequest{RangeIDs: []uuid.UUID{ra.ID}})
		assert.ErrorIs(t, err, service.ErrWorkflowViolation)
	})
}

func TestRangeArchitectureService_CompareSeasons(t *testing.T) {
	env := newTestEnv(t)
	ctx := plannerContext()
	knitwear := testutil.CreateTestCategory(t, env.db, "Knitwear")
	current := testutil.CreateTestSeason(t, env.db, domain.SeasonStatusOTBUploaded)
	prior := testutil.CreateTestSeason(t, env.db, domain.SeasonStatusOTBUploaded)

	// Current Mid/core: 10 options at depth 12 plus 10 at depth 6 -> 20 options, depth 9
	_, err := env.rangeArch.BulkCreate(ctx, current.ID, &domain.BulkRangeArchitectureRequest{
		Items: []domain.RangeArchitectureRequest{
			rangeLine(knitwear.ID, "Mid", "core", 4, 10, 12),
			rangeLine(knitwear.ID, "Mid", "core", 4, 10, 6),
			rangeLine(knitwear.ID, "High", "fashion", 2, 4, 5),
		},
	})
	require.NoError(t, err)
	_, err = env.rangeArch.BulkCreate(ctx, prior.ID, &domain.BulkRangeArchitectureRequest{
		Items: []domain.RangeArchitectureRequest{
			rangeLine(knitwear.ID, "Mid", "core", 6, 15, 10),
			rangeLine(knitwear.ID, "Entry", "core", 3, 3, 20),
		},
	})
	require.NoError(t, err)

	report, err := env.rangeArch.CompareSeasons(ctx, current.ID, prior.ID)
	require.NoError(t, err)
	require.Len(t, report.Lines, 3)

	byBand := make(map[string]domain.RangeComparisonLine, len(report.Lines))
	for _, line := range report.Lines {
		assert.Equal(t, "Knitwear", line.CategoryName)
		byBand[line.PriceBand] = line
	}

	mid := byBand["Mid"]
	assert.Equal(t, 8, mid.CurrentStyles)
	assert.Equal(t, 20, mid.CurrentOptions)
	assert.Equal(t, 9, mid.CurrentDepth)
	assert.Equal(t, 6, mid.PriorStyles)
	assert.Equal(t, 10, mid.PriorDepth)
	assert.Equal(t, 2, mid.StylesVariance)
	assert.Equal(t, 5, mid.OptionsVariance)
	assert.Equal(t, -1, mid.DepthVariance)

	entry := byBand["Entry"]
	assert.Zero(t, entry.CurrentStyles)
	assert.Equal(t, -3, entry.StylesVariance)

	high := byBand["High"]
	assert.Equal(t, "fashion", high.StyleType)
	assert.Zero(t, high.PriorOptions)
	assert.Equal(t, 4, high.OptionsVariance)

	assert.Equal(t, 10, report.Totals.CurrentStyles)
	assert.Equal(t, 9, report.Totals.PriorStyles)
	assert.Equal(t, 24, report.Totals.CurrentOptions)
	assert.Equal(t, 18, report.Totals.PriorOptions)
	assert.Equal(t, 6, report.Totals.OptionsVariance)

	t.Run("same season is rejected", func(t *testing.T) {
		_, err := env.rangeArch.CompareSeasons(ctx, current.ID, current.ID)
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("unknown prior season", func(t *testing.T) {
		_, err := env.rangeArch.CompareSeasons(ctx, current.ID, uuid.New())
		assert.ErrorIs(t, err, service.ErrNotFound)
	})
}
