package mapper_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/straye-as/season-planning-api/internal/mapper"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestFulfillmentPercent(t *testing.T) {
	tests := []struct {
		name     string
		poValue  string
		received string
		expected string
	}{
		{"partial", "12500", "11250", "90"},
		{"over received", "12500", "13750", "110"},
		{"rounded", "3", "1", "33.33"},
		{"nothing received", "500", "0", "0"},
		{"zero value order", "0", "100", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapper.FulfillmentPercent(dec(tt.poValue), dec(tt.received))
			assert.True(t, dec(tt.expected).Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, "100", mapper.ClampPercent(dec("110")).String())
	assert.Equal(t, "0", mapper.ClampPercent(dec("-5")).String())
	assert.Equal(t, "42.5", mapper.ClampPercent(dec("42.5")).String())
}

func TestToFulfillmentDTO(t *testing.T) {
	po := &domain.PurchaseOrder{
		PONumber: "PO-20250203-000001",
		POValue:  dec("12500"),
		GRNs: []domain.GRN{
			{ReceivedValue: dec("6000")},
			{ReceivedValue: dec("5250")},
			{ReceivedValue: dec("2500")},
		},
	}

	dto := mapper.ToFulfillmentDTO(po)

	assert.Equal(t, "13750", dto.ReceivedValue.String())
	assert.Equal(t, "110", dto.FulfillmentPercent.String())
	assert.Equal(t, "100", dto.DisplayPercent.String())
	assert.Equal(t, 3, dto.GRNCount)
}

func TestToWorkflowView(t *testing.T) {
	season := &domain.Season{Code: "SS25", Status: domain.SeasonStatusRangeUploaded}

	view := mapper.ToWorkflowView(season)
	assert.Equal(t, domain.FlagsFor(domain.SeasonStatusRangeUploaded), view.Flags)
	assert.True(t, view.IsEditable)
	if assert.NotNil(t, view.NextStatus) {
		assert.Equal(t, domain.SeasonStatusLocked, *view.NextStatus)
	}

	season.Status = domain.SeasonStatusLocked
	view = mapper.ToWorkflowView(season)
	assert.Nil(t, view.NextStatus)
	assert.False(t, view.IsEditable)
}

func TestFormatting(t *testing.T) {
	oslo := time.FixedZone("CET", 3600)
	ts := time.Date(2025, time.March, 1, 0, 30, 0, 0, oslo)

	adj := &domain.BudgetAdjustment{ApprovedAt: &ts}
	adj.CreatedAt = ts
	dto := mapper.ToBudgetAdjustmentDTO(adj)

	assert.Equal(t, "2025-02-28T23:30:00Z", dto.CreatedAt, "timestamps are rendered in UTC")
	if assert.NotNil(t, dto.ApprovedAt) {
		assert.Equal(t, "2025-02-28T23:30:00Z", *dto.ApprovedAt)
	}
	assert.Nil(t, mapper.ToBudgetAdjustmentDTO(&domain.BudgetAdjustment{}).ApprovedAt)

	assert.Equal(t, "2025-03-01", mapper.FormatDate(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))
}

func TestNewPaginatedResponse(t *testing.T) {
	tests := []struct {
		total    int64
		pageSize int
		pages    int
	}{
		{0, 20, 0},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 0},
	}

	for _, tt := range tests {
		resp := mapper.NewPaginatedResponse([]string{}, tt.total, 1, tt.pageSize)
		assert.Equal(t, tt.pages, resp.TotalPages, "total %d size %d", tt.total, tt.pageSize)
	}
}
