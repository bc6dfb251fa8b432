package domain

// SeasonStatus is the season's position in the planning workflow
type SeasonStatus string

const (
	SeasonStatusCreated          SeasonStatus = "created"
	SeasonStatusLocationsDefined SeasonStatus = "locations_defined"
	SeasonStatusPlanUploaded     SeasonStatus = "plan_uploaded"
	SeasonStatusOTBUploaded      SeasonStatus = "otb_uploaded"
	SeasonStatusRangeUploaded    SeasonStatus = "range_uploaded"
	SeasonStatusLocked           SeasonStatus = "locked"
)

// SeasonWorkflowOrder is the canonical order of the season lifecycle.
// A season may only advance to the status directly after its current one.
var SeasonWorkflowOrder = []SeasonStatus{
	SeasonStatusCreated,
	SeasonStatusLocationsDefined,
	SeasonStatusPlanUploaded,
	SeasonStatusOTBUploaded,
	SeasonStatusRangeUploaded,
	SeasonStatusLocked,
}

var seasonStatusPosition = func() map[SeasonStatus]int {
	m := make(map[SeasonStatus]int, len(SeasonWorkflowOrder))
	for i, s := range SeasonWorkflowOrder {
		m[s] = i
	}
	return m
}()

// IsValid checks if the status is part of the workflow
func (s SeasonStatus) IsValid() bool {
	_, ok := seasonStatusPosition[s]
	return ok
}

// Position returns the index of the status in SeasonWorkflowOrder, or -1 if unknown
func (s SeasonStatus) Position() int {
	if p, ok := seasonStatusPosition[s]; ok {
		return p
	}
	return -1
}

// Next returns the successor status. ok is false for LOCKED and unknown statuses.
func (s SeasonStatus) Next() (SeasonStatus, bool) {
	p := s.Position()
	if p < 0 || p+1 >= len(SeasonWorkflowOrder) {
		return "", false
	}
	return SeasonWorkflowOrder[p+1], true
}

// AtLeast reports whether s is at or past other in the workflow
func (s SeasonStatus) AtLeast(other SeasonStatus) bool {
	return s.Position() >= other.Position()
}

// IsTerminal reports whether no transition leaves s
func (s SeasonStatus) IsTerminal() bool {
	return s == SeasonStatusLocked
}

// WorkflowFlags is the boolean view of a season's progress
type WorkflowFlags struct {
	LocationsDefined bool `json:"locationsDefined"`
	PlanUploaded     bool `json:"planUploaded"`
	OTBUploaded      bool `json:"otbUploaded"`
	RangeUploaded    bool `json:"rangeUploaded"`
	Locked           bool `json:"locked"`
}

// FlagsFor derives the workflow flags from a status. The flags are a true-prefix
// of the canonical order, so they can never be ahead of or behind the status.
func FlagsFor(s SeasonStatus) WorkflowFlags {
	return WorkflowFlags{
		LocationsDefined: s.AtLeast(SeasonStatusLocationsDefined),
		PlanUploaded:     s.AtLeast(SeasonStatusPlanUploaded),
		OTBUploaded:      s.AtLeast(SeasonStatusOTBUploaded),
		RangeUploaded:    s.AtLeast(SeasonStatusRangeUploaded),
		Locked:           s.AtLeast(SeasonStatusLocked),
	}
}

// EntityKind identifies a category of season-scoped data for write permissions
type EntityKind string

const (
	EntityKindSeason            EntityKind = "season"
	EntityKindLocation          EntityKind = "location"
	EntityKindPlan              EntityKind = "plan"
	EntityKindOTBPlan           EntityKind = "otb_plan"
	EntityKindRangeIntent       EntityKind = "range_intent"
	EntityKindRangeArchitecture EntityKind = "range_architecture"
	EntityKindPurchaseOrder     EntityKind = "purchase_order"
	EntityKindGRN               EntityKind = "grn"
	EntityKindBudgetAdjustment  EntityKind = "budget_adjustment"
)

// EntityKinds lists every guarded kind in workflow order
var EntityKinds = []EntityKind{
	EntityKindSeason,
	EntityKindLocation,
	EntityKindPlan,
	EntityKindOTBPlan,
	EntityKindRangeIntent,
	EntityKindRangeArchitecture,
	EntityKindPurchaseOrder,
	EntityKindGRN,
	EntityKindBudgetAdjustment,
}

// IsValid checks if the entity kind is known to the permission table
func (k EntityKind) IsValid() bool {
	_, ok := SeasonWritePermissions[k]
	return ok
}

// Operation is a write operation on a season-scoped entity
type Operation string

const (
	OperationCreate  Operation = "create"
	OperationUpdate  Operation = "update"
	OperationDelete  Operation = "delete"
	OperationApprove Operation = "approve"

	// OperationRecalculate rewrites derived values without touching inputs
	OperationRecalculate Operation = "recalculate"
)

// Operations lists every guarded operation
var Operations = []Operation{
	OperationCreate,
	OperationUpdate,
	OperationDelete,
	OperationApprove,
	OperationRecalculate,
}

// IsValid checks if the operation is known
func (o Operation) IsValid() bool {
	for _, known := range Operations {
		if o == known {
			return true
		}
	}
	return false
}

// WriteWindow is the half-open range of statuses [From, FrozenAt) in which an
// entity kind accepts writes.
type WriteWindow struct {
	From     SeasonStatus
	FrozenAt SeasonStatus
}

// Allows reports whether s falls inside the window
func (w WriteWindow) Allows(s SeasonStatus) bool {
	if !s.IsValid() {
		return false
	}
	return s.AtLeast(w.From) && !s.AtLeast(w.FrozenAt)
}

// SeasonWritePermissions maps each entity kind to the statuses in which it may be
// written. Everything is frozen at LOCKED.
var SeasonWritePermissions = map[EntityKind]WriteWindow{
	EntityKindSeason:            {From: SeasonStatusCreated, FrozenAt: SeasonStatusLocked},
	EntityKindLocation:          {From: SeasonStatusCreated, FrozenAt: SeasonStatusLocked},
	EntityKindPlan:              {From: SeasonStatusLocationsDefined, FrozenAt: SeasonStatusOTBUploaded},
	EntityKindOTBPlan:           {From: SeasonStatusPlanUploaded, FrozenAt: SeasonStatusRangeUploaded},
	EntityKindRangeIntent:       {From: SeasonStatusOTBUploaded, FrozenAt: SeasonStatusLocked},
	EntityKindRangeArchitecture: {From: SeasonStatusOTBUploaded, FrozenAt: SeasonStatusLocked},
	EntityKindPurchaseOrder:     {From: SeasonStatusRangeUploaded, FrozenAt: SeasonStatusLocked},
	EntityKindGRN:               {From: SeasonStatusRangeUploaded, FrozenAt: SeasonStatusLocked},
	EntityKindBudgetAdjustment:  {From: SeasonStatusOTBUploaded, FrozenAt: SeasonStatusLocked},
}

// operationOverrides widens the window for specific operations. Plan approval
// flags a plan without touching its numbers, and OTB recalculation only
// re-derives the spend limit from stored inputs, so both stay open until LOCKED.
var operationOverrides = map[EntityKind]map[Operation]WriteWindow{
	EntityKindPlan: {
		OperationApprove: {From: SeasonStatusLocationsDefined, FrozenAt: SeasonStatusLocked},
	},
	EntityKindOTBPlan: {
		OperationRecalculate: {From: SeasonStatusCreated, FrozenAt: SeasonStatusLocked},
	},
}

// CanWrite consults the permission table for a kind and operation under status s
func CanWrite(s SeasonStatus, kind EntityKind, op Operation) bool {
	if ops, ok := operationOverrides[kind]; ok {
		if w, ok := ops[op]; ok {
			return w.Allows(s)
		}
	}
	w, ok := SeasonWritePermissions[kind]
	if !ok {
		return false
	}
	return w.Allows(s)
}
