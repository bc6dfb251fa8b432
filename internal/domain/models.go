package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns a UUID when the caller did not set one
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Season is a bounded planning period and the root of all season-scoped data
type Season struct {
	BaseModel
	Code      string          `gorm:"type:varchar(9);not null;uniqueIndex"`
	Name      string          `gorm:"type:varchar(255);not null"`
	StartDate time.Time       `gorm:"type:date;not null;column:start_date"`
	EndDate   time.Time       `gorm:"type:date;not null;column:end_date"`
	Status    SeasonStatus    `gorm:"type:varchar(50);not null;default:'created';index"`
	CreatedBy string          `gorm:"type:varchar(100);column:created_by"`
	Workflow  *SeasonWorkflow `gorm:"foreignKey:SeasonID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Season
func (Season) TableName() string {
	return "seasons"
}

// Midpoint returns the halfway instant between start and end date
func (s *Season) Midpoint() time.Time {
	return s.StartDate.Add(s.EndDate.Sub(s.StartDate) / 2)
}

// SeasonWorkflow is the denormalized flag view of a season's status.
// It is written only together with Season.Status.
type SeasonWorkflow struct {
	SeasonID         uuid.UUID `gorm:"type:uuid;primaryKey;column:season_id"`
	LocationsDefined bool      `gorm:"not null;default:false;column:locations_defined"`
	PlanUploaded     bool      `gorm:"not null;default:false;column:plan_uploaded"`
	OTBUploaded      bool      `gorm:"not null;default:false;column:otb_uploaded"`
	RangeUploaded    bool      `gorm:"not null;default:false;column:range_uploaded"`
	Locked           bool      `gorm:"not null;default:false"`
	UpdatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for SeasonWorkflow
func (SeasonWorkflow) TableName() string {
	return "season_workflows"
}

// Flags returns the stored flags
func (w *SeasonWorkflow) Flags() WorkflowFlags {
	return WorkflowFlags{
		LocationsDefined: w.LocationsDefined,
		PlanUploaded:     w.PlanUploaded,
		OTBUploaded:      w.OTBUploaded,
		RangeUploaded:    w.RangeUploaded,
		Locked:           w.Locked,
	}
}

// Apply overwrites the stored flags
func (w *SeasonWorkflow) Apply(f WorkflowFlags) {
	w.LocationsDefined = f.LocationsDefined
	w.PlanUploaded = f.PlanUploaded
	w.OTBUploaded = f.OTBUploaded
	w.RangeUploaded = f.RangeUploaded
	w.Locked = f.Locked
}

// SeasonWorkflowHistory tracks every workflow transition of a season
type SeasonWorkflowHistory struct {
	BaseModel
	SeasonID      uuid.UUID    `gorm:"type:uuid;not null;index;column:season_id"`
	FromStatus    SeasonStatus `gorm:"type:varchar(50);not null;column:from_status"`
	ToStatus      SeasonStatus `gorm:"type:varchar(50);not null;column:to_status"`
	ChangedByID   string       `gorm:"type:varchar(100);column:changed_by_id"`
	ChangedByName string       `gorm:"type:varchar(200);column:changed_by_name"`
	ChangedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP;column:changed_at"`
}

// TableName specifies the table name for SeasonWorkflowHistory
func (SeasonWorkflowHistory) TableName() string {
	return "season_workflow_history"
}

// Cluster groups locations
type Cluster struct {
	BaseModel
	Name        string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	Code        string     `gorm:"type:varchar(50);uniqueIndex"`
	Description string     `gorm:"type:text"`
	Locations   []Location `gorm:"foreignKey:ClusterID"`
}

// TableName specifies the table name for Cluster
func (Cluster) TableName() string {
	return "clusters"
}

// LocationType distinguishes stores from warehouses
type LocationType string

const (
	LocationTypeStore     LocationType = "store"
	LocationTypeWarehouse LocationType = "warehouse"
)

// IsValid checks if the location type is valid
func (t LocationType) IsValid() bool {
	return t == LocationTypeStore || t == LocationTypeWarehouse
}

// Location is a store or warehouse
type Location struct {
	BaseModel
	Code       string       `gorm:"type:varchar(16);not null;uniqueIndex"`
	Name       string       `gorm:"type:varchar(255);not null"`
	Type       LocationType `gorm:"type:varchar(20);not null"`
	ClusterID  *uuid.UUID   `gorm:"type:uuid;index;column:cluster_id"`
	Cluster    *Cluster     `gorm:"foreignKey:ClusterID"`
	Address    string       `gorm:"type:varchar(500)"`
	City       string       `gorm:"type:varchar(100)"`
	State      string       `gorm:"type:varchar(100)"`
	Country    string       `gorm:"type:varchar(100)"`
	PostalCode string       `gorm:"type:varchar(20);column:postal_code"`
	IsActive   bool         `gorm:"not null;default:true;column:is_active"`
}

// TableName specifies the table name for Location
func (Location) TableName() string {
	return "locations"
}

// SeasonLocation assigns a location to a season
type SeasonLocation struct {
	BaseModel
	SeasonID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_season_location;column:season_id"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_season_location;column:location_id"`
	Location   *Location `gorm:"foreignKey:LocationID"`
}

// TableName specifies the table name for SeasonLocation
func (SeasonLocation) TableName() string {
	return "season_locations"
}

// Category is a node in the product hierarchy shared across seasons
type Category struct {
	BaseModel
	Name        string     `gorm:"type:varchar(255);not null"`
	Code        *string    `gorm:"type:varchar(50);uniqueIndex"`
	Description string     `gorm:"type:text"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index;column:parent_id"`
	Level       int        `gorm:"not null;default:0"`
	Path        string     `gorm:"type:text;index"`
}

// TableName specifies the table name for Category
func (Category) TableName() string {
	return "categories"
}

// SeasonPlan is the sales and margin target for a location and category
type SeasonPlan struct {
	BaseModel
	SeasonID       uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uq_season_plan;column:season_id"`
	LocationID     uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uq_season_plan;column:location_id"`
	CategoryID     uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:uq_season_plan;column:category_id"`
	PlannedSales   decimal.Decimal  `gorm:"type:numeric(18,2);not null;column:planned_sales"`
	PlannedMargin  decimal.Decimal  `gorm:"type:numeric(7,2);not null;column:planned_margin"`
	InventoryTurns decimal.Decimal  `gorm:"type:numeric(10,2);not null;column:inventory_turns"`
	PlannedUnits   *int             `gorm:"column:planned_units"`
	LYSales        *decimal.Decimal `gorm:"type:numeric(18,2);column:ly_sales"`
	Version        int              `gorm:"not null;default:1"`
	Approved       bool             `gorm:"not null;default:false"`
	ApprovedBy     string           `gorm:"type:varchar(100);column:approved_by"`
	ApprovedAt     *time.Time       `gorm:"column:approved_at"`
	UploadedBy     string           `gorm:"type:varchar(100);column:uploaded_by"`
}

// TableName specifies the table name for SeasonPlan
func (SeasonPlan) TableName() string {
	return "season_plans"
}

// OTBPlan holds the open-to-buy inputs and derived limit for one month
type OTBPlan struct {
	BaseModel
	SeasonID            uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_otb_plan;column:season_id"`
	LocationID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_otb_plan;column:location_id"`
	CategoryID          uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_otb_plan;column:category_id"`
	Month               time.Time       `gorm:"type:date;not null;uniqueIndex:uq_otb_plan"`
	PlannedSales        decimal.Decimal `gorm:"type:numeric(18,2);not null;column:planned_sales"`
	PlannedClosingStock decimal.Decimal `gorm:"type:numeric(18,2);not null;column:planned_closing_stock"`
	OpeningStock        decimal.Decimal `gorm:"type:numeric(18,2);not null;column:opening_stock"`
	OnOrder             decimal.Decimal `gorm:"type:numeric(18,2);not null;column:on_order"`
	ApprovedSpendLimit  decimal.Decimal `gorm:"type:numeric(18,2);not null;column:approved_spend_limit"`
	UploadedBy          string          `gorm:"type:varchar(100);column:uploaded_by"`
}

// TableName specifies the table name for OTBPlan
func (OTBPlan) TableName() string {
	return "otb_plans"
}

// PriceBandMix maps a price band label to its integer percentage weight
type PriceBandMix map[string]int

// Total returns the sum of all weights
func (m PriceBandMix) Total() int {
	total := 0
	for _, w := range m {
		total += w
	}
	return total
}

// Value implements driver.Valuer
func (m PriceBandMix) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (m *PriceBandMix) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = PriceBandMix{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("unsupported type for price band mix")
	}
	return json.Unmarshal(raw, m)
}

// RangeIntent is the assortment intent for a category within a season
type RangeIntent struct {
	BaseModel
	SeasonID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_range_intent;column:season_id"`
	CategoryID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_range_intent;column:category_id"`
	CorePercent    decimal.Decimal `gorm:"type:numeric(5,2);not null;column:core_percent"`
	FashionPercent decimal.Decimal `gorm:"type:numeric(5,2);not null;column:fashion_percent"`
	PriceBandMix   PriceBandMix    `gorm:"type:jsonb;not null;column:price_band_mix"`
	UploadedBy     string          `gorm:"type:varchar(100);column:uploaded_by"`
}

// TableName specifies the table name for RangeIntent
func (RangeIntent) TableName() string {
	return "range_intents"
}

// RangeArchitectureStatus is the review state of a range architecture line
type RangeArchitectureStatus string

const (
	RangeStatusDraft     RangeArchitectureStatus = "DRAFT"
	RangeStatusSubmitted RangeArchitectureStatus = "SUBMITTED"
	RangeStatusApproved  RangeArchitectureStatus = "APPROVED"
	RangeStatusRejected  RangeArchitectureStatus = "REJECTED"
)

// IsValid checks if the range architecture status is valid
func (s RangeArchitectureStatus) IsValid() bool {
	switch s {
	case RangeStatusDraft, RangeStatusSubmitted, RangeStatusApproved, RangeStatusRejected:
		return true
	}
	return false
}

// Submittable reports whether a line in this status may be sent for review
func (s RangeArchitectureStatus) Submittable() bool {
	return s == RangeStatusDraft || s == RangeStatusRejected
}

// RangeArchitecture is one planned assortment line of a category: how many
// styles, options and units per option are bought in a price band.
type RangeArchitecture struct {
	BaseModel
	SeasonID       uuid.UUID               `gorm:"type:uuid;not null;index;column:season_id"`
	CategoryID     uuid.UUID               `gorm:"type:uuid;not null;index;column:category_id"`
	PriceBand      string                  `gorm:"type:varchar(50);not null;column:price_band"`
	Fabric         string                  `gorm:"type:varchar(100);column:fabric"`
	ColorFamily    string                  `gorm:"type:varchar(100);column:color_family"`
	StyleType      string                  `gorm:"type:varchar(20);column:style_type"`
	PlannedStyles  int                     `gorm:"not null;default:0;column:planned_styles"`
	PlannedOptions int                     `gorm:"not null;default:0;column:planned_options"`
	PlannedDepth   int                     `gorm:"not null;default:0;column:planned_depth"`
	Status         RangeArchitectureStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	CreatedBy      string                  `gorm:"type:varchar(100);column:created_by"`
	SubmittedBy    string                  `gorm:"type:varchar(100);column:submitted_by"`
	SubmittedAt    *time.Time              `gorm:"column:submitted_at"`
	ReviewedBy     string                  `gorm:"type:varchar(100);column:reviewed_by"`
	ReviewedAt     *time.Time              `gorm:"column:reviewed_at"`
	ReviewComment  string                  `gorm:"type:text;column:review_comment"`
}

// TableName specifies the table name for RangeArchitecture
func (RangeArchitecture) TableName() string {
	return "range_architectures"
}

// User is a known person in the planning team. Identity still comes from the
// token; the directory supplies display names and can deactivate an account.
type User struct {
	BaseModel
	Name       string       `gorm:"type:varchar(200);not null"`
	Email      string       `gorm:"type:varchar(255);not null;uniqueIndex"`
	Role       UserRoleType `gorm:"type:varchar(50);not null;default:'viewer'"`
	IsActive   bool         `gorm:"not null;default:true;column:is_active"`
	LastSeenAt *time.Time   `gorm:"column:last_seen_at"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// POStatus is the lifecycle status of a purchase order
type POStatus string

const (
	POStatusDraft     POStatus = "DRAFT"
	POStatusSubmitted POStatus = "SUBMITTED"
	POStatusConfirmed POStatus = "CONFIRMED"
	POStatusShipped   POStatus = "SHIPPED"
	POStatusPartial   POStatus = "PARTIAL"
	POStatusComplete  POStatus = "COMPLETE"
	POStatusCancelled POStatus = "CANCELLED"
)

// IsValid checks if the PO status is valid
func (s POStatus) IsValid() bool {
	switch s {
	case POStatusDraft, POStatusSubmitted, POStatusConfirmed, POStatusShipped,
		POStatusPartial, POStatusComplete, POStatusCancelled:
		return true
	}
	return false
}

// Commits reports whether a PO in this status counts against the budget
func (s POStatus) Commits() bool {
	return s != POStatusCancelled
}

// POSource records where a purchase order came from
type POSource string

const (
	POSourceAPI POSource = "api"
	POSourceCSV POSource = "csv"
	POSourceERP POSource = "erp"
)

// IsValid checks if the PO source is valid
func (s POSource) IsValid() bool {
	return s == POSourceAPI || s == POSourceCSV || s == POSourceERP
}

// PurchaseOrder is a supplier order committed against a season's budget
type PurchaseOrder struct {
	BaseModel
	PONumber     string          `gorm:"type:varchar(100);not null;uniqueIndex;column:po_number"`
	SeasonID     uuid.UUID       `gorm:"type:uuid;not null;index;column:season_id"`
	LocationID   uuid.UUID       `gorm:"type:uuid;not null;index;column:location_id"`
	CategoryID   uuid.UUID       `gorm:"type:uuid;not null;index;column:category_id"`
	POValue      decimal.Decimal `gorm:"type:numeric(18,2);not null;column:po_value"`
	Status       POStatus        `gorm:"type:varchar(20);not null;default:'CONFIRMED';index"`
	Source       POSource        `gorm:"type:varchar(10);not null;default:'api'"`
	OrderDate    time.Time       `gorm:"type:date;not null;column:order_date"`
	SupplierName string          `gorm:"type:varchar(255);column:supplier_name"`
	ExternalRef  *string         `gorm:"type:varchar(100);uniqueIndex;column:external_ref"`
	GRNs         []GRN           `gorm:"foreignKey:POID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for PurchaseOrder
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// GRN is a goods-received note against exactly one purchase order
type GRN struct {
	BaseModel
	POID          uuid.UUID       `gorm:"type:uuid;not null;index;column:po_id"`
	GRNDate       time.Time       `gorm:"type:date;not null;column:grn_date"`
	ReceivedValue decimal.Decimal `gorm:"type:numeric(18,2);not null;column:received_value"`
	ExternalRef   *string         `gorm:"type:varchar(100);uniqueIndex;column:external_ref"`
}

// TableName specifies the table name for GRN
func (GRN) TableName() string {
	return "grn_records"
}

// AdjustmentStatus is the approval state of a budget adjustment
type AdjustmentStatus string

const (
	AdjustmentStatusPending  AdjustmentStatus = "pending"
	AdjustmentStatusApproved AdjustmentStatus = "approved"
	AdjustmentStatusRejected AdjustmentStatus = "rejected"
)

// BudgetAdjustment moves OTB budget from one category to another within a season
type BudgetAdjustment struct {
	BaseModel
	SeasonID        uuid.UUID        `gorm:"type:uuid;not null;index;column:season_id"`
	FromCategoryID  uuid.UUID        `gorm:"type:uuid;not null;column:from_category_id"`
	ToCategoryID    uuid.UUID        `gorm:"type:uuid;not null;column:to_category_id"`
	Amount          decimal.Decimal  `gorm:"type:numeric(18,2);not null"`
	Reason          string           `gorm:"type:text;not null"`
	Status          AdjustmentStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	CreatedBy       string           `gorm:"type:varchar(100);column:created_by"`
	ApprovedBy      string           `gorm:"type:varchar(100);column:approved_by"`
	ApprovedAt      *time.Time       `gorm:"column:approved_at"`
	RejectionReason string           `gorm:"type:text;column:rejection_reason"`
}

// TableName specifies the table name for BudgetAdjustment
func (BudgetAdjustment) TableName() string {
	return "budget_adjustments"
}

// NumberSequence tracks the last issued sequence per prefix and period
type NumberSequence struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Prefix       string    `gorm:"type:varchar(20);not null;uniqueIndex:uq_number_sequence"`
	Period       string    `gorm:"type:varchar(20);not null;uniqueIndex:uq_number_sequence"`
	LastSequence int       `gorm:"not null;default:0;column:last_sequence"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for NumberSequence
func (NumberSequence) TableName() string {
	return "number_sequences"
}

// AuditAction represents the type of audit action
type AuditAction string

const (
	AuditActionCreate     AuditAction = "create"
	AuditActionUpdate     AuditAction = "update"
	AuditActionDelete     AuditAction = "delete"
	AuditActionApprove    AuditAction = "approve"
	AuditActionReject     AuditAction = "reject"
	AuditActionTransition AuditAction = "workflow_transition"
	AuditActionRecalc     AuditAction = "recalculate"
	AuditActionImport     AuditAction = "import"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey"`
	SeasonID    *uuid.UUID  `gorm:"type:uuid;index;column:season_id"`
	UserID      string      `gorm:"type:varchar(100);column:user_id"`
	UserEmail   string      `gorm:"type:varchar(255);column:user_email"`
	UserName    string      `gorm:"type:varchar(200);column:user_name"`
	Action      AuditAction `gorm:"type:varchar(50);not null"`
	EntityType  string      `gorm:"type:varchar(50);not null;column:entity_type"`
	EntityID    *uuid.UUID  `gorm:"type:uuid;column:entity_id"`
	OldValues   string      `gorm:"type:jsonb;column:old_values"`
	NewValues   string      `gorm:"type:jsonb;column:new_values"`
	RequestID   string      `gorm:"type:varchar(100);column:request_id"`
	PerformedAt time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP;column:performed_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeCreate assigns a UUID when the caller did not set one
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// BeforeCreate assigns a UUID when the caller did not set one
func (n *NumberSequence) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
