package domain_test

import (
	"testing"

	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSeasonStatus_Next(t *testing.T) {
	tests := []struct {
		name   string
		status domain.SeasonStatus
		next   domain.SeasonStatus
		ok     bool
	}{
		{"created advances to locations defined", domain.SeasonStatusCreated, domain.SeasonStatusLocationsDefined, true},
		{"locations defined advances to plan uploaded", domain.SeasonStatusLocationsDefined, domain.SeasonStatusPlanUploaded, true},
		{"plan uploaded advances to otb uploaded", domain.SeasonStatusPlanUploaded, domain.SeasonStatusOTBUploaded, true},
		{"otb uploaded advances to range uploaded", domain.SeasonStatusOTBUploaded, domain.SeasonStatusRangeUploaded, true},
		{"range uploaded advances to locked", domain.SeasonStatusRangeUploaded, domain.SeasonStatusLocked, true},
		{"locked is terminal", domain.SeasonStatusLocked, "", false},
		{"unknown status has no successor", domain.SeasonStatus("archived"), "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, ok := tc.status.Next()
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.next, next)
		})
	}
}

func TestSeasonStatus_Position(t *testing.T) {
	for i, s := range domain.SeasonWorkflowOrder {
		assert.Equal(t, i, s.Position())
		assert.True(t, s.IsValid())
	}
	assert.Equal(t, -1, domain.SeasonStatus("bogus").Position())
	assert.False(t, domain.SeasonStatus("bogus").IsValid())
	assert.True(t, domain.SeasonStatusLocked.IsTerminal())
	assert.False(t, domain.SeasonStatusRangeUploaded.IsTerminal())
}

func TestFlagsFor(t *testing.T) {
	t.Run("created has no flags", func(t *testing.T) {
		assert.Equal(t, domain.WorkflowFlags{}, domain.FlagsFor(domain.SeasonStatusCreated))
	})

	t.Run("otb uploaded sets the prefix up to otb", func(t *testing.T) {
		assert.Equal(t, domain.WorkflowFlags{
			LocationsDefined: true,
			PlanUploaded:     true,
			OTBUploaded:      true,
		}, domain.FlagsFor(domain.SeasonStatusOTBUploaded))
	})

	t.Run("locked sets every flag", func(t *testing.T) {
		assert.Equal(t, domain.WorkflowFlags{
			LocationsDefined: true,
			PlanUploaded:     true,
			OTBUploaded:      true,
			RangeUploaded:    true,
			Locked:           true,
		}, domain.FlagsFor(domain.SeasonStatusLocked))
	})

	t.Run("flags are always a true prefix", func(t *testing.T) {
		for _, s := range domain.SeasonWorkflowOrder {
			f := domain.FlagsFor(s)
			seq := []bool{f.LocationsDefined, f.PlanUploaded, f.OTBUploaded, f.RangeUploaded, f.Locked}
			seenFalse := false
			for _, v := range seq {
				if !v {
					seenFalse = true
				}
				assert.False(t, seenFalse && v, "flag set after an unset one for %s", s)
			}
		}
	})
}

func TestCanWrite(t *testing.T) {
	tests := []struct {
		name   string
		status domain.SeasonStatus
		kind   domain.EntityKind
		op     domain.Operation
		want   bool
	}{
		{"plan editable once locations are defined", domain.SeasonStatusLocationsDefined, domain.EntityKindPlan, domain.OperationCreate, true},
		{"plan not editable before locations", domain.SeasonStatusCreated, domain.EntityKindPlan, domain.OperationCreate, false},
		{"plan frozen after otb upload", domain.SeasonStatusOTBUploaded, domain.EntityKindPlan, domain.OperationUpdate, false},
		{"plan approval stays open after otb upload", domain.SeasonStatusOTBUploaded, domain.EntityKindPlan, domain.OperationApprove, true},
		{"otb editable after plan upload", domain.SeasonStatusPlanUploaded, domain.EntityKindOTBPlan, domain.OperationCreate, true},
		{"otb frozen after range upload", domain.SeasonStatusRangeUploaded, domain.EntityKindOTBPlan, domain.OperationUpdate, false},
		{"otb recalculation open until locked", domain.SeasonStatusRangeUploaded, domain.EntityKindOTBPlan, domain.OperationRecalculate, true},
		{"purchase orders open after range upload", domain.SeasonStatusRangeUploaded, domain.EntityKindPurchaseOrder, domain.OperationCreate, true},
		{"purchase orders closed before range upload", domain.SeasonStatusOTBUploaded, domain.EntityKindPurchaseOrder, domain.OperationCreate, false},
		{"range architecture closed before otb upload", domain.SeasonStatusPlanUploaded, domain.EntityKindRangeArchitecture, domain.OperationCreate, false},
		{"range architecture open after otb upload", domain.SeasonStatusOTBUploaded, domain.EntityKindRangeArchitecture, domain.OperationCreate, true},
		{"range architecture review open after range upload", domain.SeasonStatusRangeUploaded, domain.EntityKindRangeArchitecture, domain.OperationApprove, true},
		{"adjustments open after otb upload", domain.SeasonStatusOTBUploaded, domain.EntityKindBudgetAdjustment, domain.OperationCreate, true},
		{"unknown kind is never writable", domain.SeasonStatusPlanUploaded, domain.EntityKind("widget"), domain.OperationCreate, false},
		{"unknown status is never writable", domain.SeasonStatus("bogus"), domain.EntityKindSeason, domain.OperationUpdate, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.CanWrite(tc.status, tc.kind, tc.op))
		})
	}

	t.Run("everything is frozen at locked", func(t *testing.T) {
		for kind := range domain.SeasonWritePermissions {
			for _, op := range domain.Operations {
				assert.False(t, domain.CanWrite(domain.SeasonStatusLocked, kind, op), "%s %s", kind, op)
			}
		}
	})
}

func TestEntityKinds(t *testing.T) {
	assert.Len(t, domain.EntityKinds, len(domain.SeasonWritePermissions))
	for _, kind := range domain.EntityKinds {
		assert.True(t, kind.IsValid(), kind)
	}
	assert.False(t, domain.EntityKind("widget").IsValid())
	assert.True(t, domain.OperationRecalculate.IsValid())
	assert.False(t, domain.Operation("publish").IsValid())
}

func TestRangeArchitectureStatus(t *testing.T) {
	assert.True(t, domain.RangeStatusDraft.Submittable())
	assert.True(t, domain.RangeStatusRejected.Submittable())
	assert.False(t, domain.RangeStatusSubmitted.Submittable())
	assert.False(t, domain.RangeStatusApproved.Submittable())
	assert.False(t, domain.RangeArchitectureStatus("LOCKED").IsValid())
}
