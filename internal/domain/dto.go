package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// PaginatedResponse wraps a page of results
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}

// ---- Seasons & workflow ----

type SeasonDTO struct {
	ID        uuid.UUID    `json:"id"`
	Code      string       `json:"code"`
	Name      string       `json:"name"`
	StartDate string       `json:"startDate"`
	EndDate   string       `json:"endDate"`
	Status    SeasonStatus `json:"status"`
	CreatedBy string       `json:"createdBy,omitempty"`
	CreatedAt string       `json:"createdAt"`
	UpdatedAt string       `json:"updatedAt"`
}

type CreateSeasonRequest struct {
	Name      string `json:"name" validate:"required,max=255"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

type UpdateSeasonRequest struct {
	Name      string `json:"name" validate:"required,max=255"`
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

// WorkflowView is the read model of a season's workflow
type WorkflowView struct {
	SeasonID      uuid.UUID     `json:"seasonId"`
	SeasonCode    string        `json:"seasonCode"`
	SeasonName    string        `json:"seasonName"`
	CurrentStatus SeasonStatus  `json:"currentStatus"`
	Flags         WorkflowFlags `json:"workflow"`
	NextStatus    *SeasonStatus `json:"nextStatus"`
	IsEditable    bool          `json:"isEditable"`
}

type TransitionRequest struct {
	TargetStatus SeasonStatus `json:"targetStatus" validate:"required"`
}

type WorkflowHistoryDTO struct {
	ID            uuid.UUID    `json:"id"`
	FromStatus    SeasonStatus `json:"fromStatus"`
	ToStatus      SeasonStatus `json:"toStatus"`
	ChangedByID   string       `json:"changedById,omitempty"`
	ChangedByName string       `json:"changedByName,omitempty"`
	ChangedAt     string       `json:"changedAt"`
}

// ---- Master data ----

type ClusterDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   string    `json:"createdAt"`
	UpdatedAt   string    `json:"updatedAt"`
}

type CreateClusterRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Code        string `json:"code" validate:"omitempty,max=50,alphanum"`
	Description string `json:"description"`
}

type UpdateClusterRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
}

type LocationDTO struct {
	ID         uuid.UUID    `json:"id"`
	Code       string       `json:"code"`
	Name       string       `json:"name"`
	Type       LocationType `json:"type"`
	ClusterID  *uuid.UUID   `json:"clusterId,omitempty"`
	Address    string       `json:"address,omitempty"`
	City       string       `json:"city,omitempty"`
	State      string       `json:"state,omitempty"`
	Country    string       `json:"country,omitempty"`
	PostalCode string       `json:"postalCode,omitempty"`
	IsActive   bool         `json:"isActive"`
	CreatedAt  string       `json:"createdAt"`
	UpdatedAt  string       `json:"updatedAt"`
}

type CreateLocationRequest struct {
	Name       string       `json:"name" validate:"required,max=255"`
	Type       LocationType `json:"type" validate:"required,oneof=store warehouse"`
	ClusterID  *uuid.UUID   `json:"clusterId"`
	Address    string       `json:"address" validate:"max=500"`
	City       string       `json:"city" validate:"max=100"`
	State      string       `json:"state" validate:"max=100"`
	Country    string       `json:"country" validate:"max=100"`
	PostalCode string       `json:"postalCode" validate:"max=20"`
}

type UpdateLocationRequest struct {
	CreateLocationRequest
	IsActive *bool `json:"isActive"`
}

type AssignLocationRequest struct {
	LocationID uuid.UUID `json:"locationId" validate:"required"`
}

type CategoryDTO struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Code        string     `json:"code,omitempty"`
	Description string     `json:"description,omitempty"`
	ParentID    *uuid.UUID `json:"parentId,omitempty"`
	Level       int        `json:"level"`
	Path        string     `json:"path"`
	CreatedAt   string     `json:"createdAt"`
	UpdatedAt   string     `json:"updatedAt"`
}

type CreateCategoryRequest struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Code        string     `json:"code" validate:"omitempty,max=50"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parentId"`
}

type UpdateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
}

// ---- Plans ----

type SeasonPlanDTO struct {
	ID             uuid.UUID        `json:"id"`
	SeasonID       uuid.UUID        `json:"seasonId"`
	LocationID     uuid.UUID        `json:"locationId"`
	CategoryID     uuid.UUID        `json:"categoryId"`
	PlannedSales   decimal.Decimal  `json:"plannedSales"`
	PlannedMargin  decimal.Decimal  `json:"plannedMargin"`
	InventoryTurns decimal.Decimal  `json:"inventoryTurns"`
	PlannedUnits   *int             `json:"plannedUnits,omitempty"`
	LYSales        *decimal.Decimal `json:"lySales,omitempty"`
	Version        int              `json:"version"`
	Approved       bool             `json:"approved"`
	ApprovedBy     string           `json:"approvedBy,omitempty"`
	ApprovedAt     *string          `json:"approvedAt,omitempty"`
	CreatedAt      string           `json:"createdAt"`
	UpdatedAt      string           `json:"updatedAt"`
}

type CreateSeasonPlanRequest struct {
	LocationID     uuid.UUID        `json:"locationId" validate:"required"`
	CategoryID     uuid.UUID        `json:"categoryId" validate:"required"`
	PlannedSales   decimal.Decimal  `json:"plannedSales"`
	PlannedMargin  decimal.Decimal  `json:"plannedMargin"`
	InventoryTurns decimal.Decimal  `json:"inventoryTurns"`
	PlannedUnits   *int             `json:"plannedUnits" validate:"omitempty,gte=0"`
	LYSales        *decimal.Decimal `json:"lySales"`
}

type UpdateSeasonPlanRequest struct {
	PlannedSales   decimal.Decimal  `json:"plannedSales"`
	PlannedMargin  decimal.Decimal  `json:"plannedMargin"`
	InventoryTurns decimal.Decimal  `json:"inventoryTurns"`
	PlannedUnits   *int             `json:"plannedUnits" validate:"omitempty,gte=0"`
	LYSales        *decimal.Decimal `json:"lySales"`
}

// ---- OTB ----

// OTBInputs are the four inputs of the open-to-buy formula
type OTBInputs struct {
	PlannedSales        decimal.Decimal `json:"plannedSales"`
	PlannedClosingStock decimal.Decimal `json:"plannedClosingStock"`
	OpeningStock        decimal.Decimal `json:"openingStock"`
	OnOrder             decimal.Decimal `json:"onOrder"`
}

type OTBPlanDTO struct {
	ID                  uuid.UUID       `json:"id"`
	SeasonID            uuid.UUID       `json:"seasonId"`
	LocationID          uuid.UUID       `json:"locationId"`
	CategoryID          uuid.UUID       `json:"categoryId"`
	Month               string          `json:"month"`
	PlannedSales        decimal.Decimal `json:"plannedSales"`
	PlannedClosingStock decimal.Decimal `json:"plannedClosingStock"`
	OpeningStock        decimal.Decimal `json:"openingStock"`
	OnOrder             decimal.Decimal `json:"onOrder"`
	ApprovedSpendLimit  decimal.Decimal `json:"approvedSpendLimit"`
	CreatedAt           string          `json:"createdAt"`
	UpdatedAt           string          `json:"updatedAt"`
}

type CreateOTBPlanRequest struct {
	LocationID uuid.UUID `json:"locationId" validate:"required"`
	CategoryID uuid.UUID `json:"categoryId" validate:"required"`
	Month      string    `json:"month" validate:"required,datetime=2006-01-02"`
	OTBInputs
}

type UpdateOTBPlanRequest struct {
	OTBInputs
}

type CalculateOTBResponse struct {
	OTBInputs
	ApprovedSpendLimit decimal.Decimal `json:"approvedSpendLimit"`
}

type RecalculateResponse struct {
	SeasonID     uuid.UUID `json:"seasonId"`
	UpdatedCount int       `json:"updatedCount"`
}

// ---- Range intent ----

type RangeIntentDTO struct {
	ID             uuid.UUID       `json:"id"`
	SeasonID       uuid.UUID       `json:"seasonId"`
	CategoryID     uuid.UUID       `json:"categoryId"`
	CorePercent    decimal.Decimal `json:"corePercent"`
	FashionPercent decimal.Decimal `json:"fashionPercent"`
	PriceBandMix   PriceBandMix    `json:"priceBandMix"`
	CreatedAt      string          `json:"createdAt"`
	UpdatedAt      string          `json:"updatedAt"`
}

type UpsertRangeIntentRequest struct {
	CategoryID     uuid.UUID       `json:"categoryId" validate:"required"`
	CorePercent    decimal.Decimal `json:"corePercent"`
	FashionPercent decimal.Decimal `json:"fashionPercent"`
	PriceBandMix   PriceBandMix    `json:"priceBandMix"`
}

// ---- Range architecture ----

type RangeArchitectureDTO struct {
	ID             uuid.UUID               `json:"id"`
	SeasonID       uuid.UUID               `json:"seasonId"`
	CategoryID     uuid.UUID               `json:"categoryId"`
	PriceBand      string                  `json:"priceBand"`
	Fabric         string                  `json:"fabric,omitempty"`
	ColorFamily    string                  `json:"colorFamily,omitempty"`
	StyleType      string                  `json:"styleType,omitempty"`
	PlannedStyles  int                     `json:"plannedStyles"`
	PlannedOptions int                     `json:"plannedOptions"`
	PlannedDepth   int                     `json:"plannedDepth"`
	Status         RangeArchitectureStatus `json:"status"`
	CreatedBy      string                  `json:"createdBy,omitempty"`
	SubmittedBy    string                  `json:"submittedBy,omitempty"`
	SubmittedAt    *string                 `json:"submittedAt,omitempty"`
	ReviewedBy     string                  `json:"reviewedBy,omitempty"`
	ReviewedAt     *string                 `json:"reviewedAt,omitempty"`
	ReviewComment  string                  `json:"reviewComment,omitempty"`
	CreatedAt      string                  `json:"createdAt"`
	UpdatedAt      string                  `json:"updatedAt"`
}

type RangeArchitectureRequest struct {
	CategoryID     uuid.UUID `json:"categoryId" validate:"required"`
	PriceBand      string    `json:"priceBand" validate:"required,max=50"`
	Fabric         string    `json:"fabric" validate:"max=100"`
	ColorFamily    string    `json:"colorFamily" validate:"max=100"`
	StyleType      string    `json:"styleType" validate:"max=20"`
	PlannedStyles  int       `json:"plannedStyles" validate:"gte=0"`
	PlannedOptions int       `json:"plannedOptions" validate:"gte=0"`
	PlannedDepth   int       `json:"plannedDepth" validate:"gte=0"`
}

type BulkRangeArchitectureRequest struct {
	Items []RangeArchitectureRequest `json:"items" validate:"required,min=1,max=500,dive"`
}

// RangeReviewRequest submits, approves or rejects a batch of lines. Rejection
// requires a comment.
type RangeReviewRequest struct {
	RangeIDs []uuid.UUID `json:"rangeIds" validate:"required,min=1"`
	Comment  string      `json:"comment" validate:"max=2000"`
}

type RangeReviewResponse struct {
	Status  RangeArchitectureStatus `json:"status"`
	Updated int                     `json:"updated"`
	Ranges  []RangeArchitectureDTO  `json:"ranges"`
}

// RangeComparisonLine matches lines of two seasons on category, price band
// and style type
type RangeComparisonLine struct {
	CategoryID      uuid.UUID `json:"categoryId"`
	CategoryName    string    `json:"categoryName,omitempty"`
	PriceBand       string    `json:"priceBand"`
	StyleType       string    `json:"styleType,omitempty"`
	CurrentStyles   int       `json:"currentStyles"`
	CurrentOptions  int       `json:"currentOptions"`
	CurrentDepth    int       `json:"currentDepth"`
	PriorStyles     int       `json:"priorStyles"`
	PriorOptions    int       `json:"priorOptions"`
	PriorDepth      int       `json:"priorDepth"`
	StylesVariance  int       `json:"stylesVariance"`
	OptionsVariance int       `json:"optionsVariance"`
	DepthVariance   int       `json:"depthVariance"`
}

type RangeComparisonTotals struct {
	CurrentStyles   int `json:"currentStyles"`
	PriorStyles     int `json:"priorStyles"`
	StylesVariance  int `json:"stylesVariance"`
	CurrentOptions  int `json:"currentOptions"`
	PriorOptions    int `json:"priorOptions"`
	OptionsVariance int `json:"optionsVariance"`
}

type RangeComparisonReport struct {
	SeasonID      uuid.UUID             `json:"seasonId"`
	PriorSeasonID uuid.UUID             `json:"priorSeasonId"`
	Lines         []RangeComparisonLine `json:"lines"`
	Totals        RangeComparisonTotals `json:"totals"`
}

// ---- Purchase orders & GRNs ----

type PurchaseOrderDTO struct {
	ID                 uuid.UUID       `json:"id"`
	PONumber           string          `json:"poNumber"`
	SeasonID           uuid.UUID       `json:"seasonId"`
	LocationID         uuid.UUID       `json:"locationId"`
	CategoryID         uuid.UUID       `json:"categoryId"`
	POValue            decimal.Decimal `json:"poValue"`
	Status             POStatus        `json:"status"`
	Source             POSource        `json:"source"`
	OrderDate          string          `json:"orderDate"`
	SupplierName       string          `json:"supplierName,omitempty"`
	ReceivedValue      decimal.Decimal `json:"receivedValue"`
	FulfillmentPercent decimal.Decimal `json:"fulfillmentPercent"`
	CreatedAt          string          `json:"createdAt"`
	UpdatedAt          string          `json:"updatedAt"`
}

type CreatePurchaseOrderRequest struct {
	PONumber     string          `json:"poNumber" validate:"omitempty,max=100"`
	LocationID   uuid.UUID       `json:"locationId" validate:"required"`
	CategoryID   uuid.UUID       `json:"categoryId" validate:"required"`
	POValue      decimal.Decimal `json:"poValue"`
	Status       POStatus        `json:"status" validate:"omitempty,oneof=DRAFT SUBMITTED CONFIRMED SHIPPED PARTIAL COMPLETE CANCELLED"`
	Source       POSource        `json:"source" validate:"omitempty,oneof=api csv erp"`
	OrderDate    string          `json:"orderDate" validate:"required,datetime=2006-01-02"`
	SupplierName string          `json:"supplierName" validate:"max=255"`
	ExternalRef  *string         `json:"externalRef" validate:"omitempty,max=100"`
}

type UpdatePurchaseOrderStatusRequest struct {
	Status POStatus `json:"status" validate:"required,oneof=DRAFT SUBMITTED CONFIRMED SHIPPED PARTIAL COMPLETE CANCELLED"`
}

type GRNDTO struct {
	ID            uuid.UUID       `json:"id"`
	POID          uuid.UUID       `json:"poId"`
	GRNDate       string          `json:"grnDate"`
	ReceivedValue decimal.Decimal `json:"receivedValue"`
	CreatedAt     string          `json:"createdAt"`
}

type CreateGRNRequest struct {
	POID          uuid.UUID       `json:"poId" validate:"required"`
	GRNDate       string          `json:"grnDate" validate:"required,datetime=2006-01-02"`
	ReceivedValue decimal.Decimal `json:"receivedValue"`
	ExternalRef   *string         `json:"externalRef" validate:"omitempty,max=100"`
}

// FulfillmentDTO reports receipts against one purchase order
type FulfillmentDTO struct {
	POID               uuid.UUID       `json:"poId"`
	PONumber           string          `json:"poNumber"`
	POValue            decimal.Decimal `json:"poValue"`
	ReceivedValue      decimal.Decimal `json:"receivedValue"`
	FulfillmentPercent decimal.Decimal `json:"fulfillmentPercent"`
	DisplayPercent     decimal.Decimal `json:"displayPercent"`
	GRNCount           int             `json:"grnCount"`
}

// ---- Budget consumption ----

// PositionGrouping selects the grouping of a position report
type PositionGrouping string

const (
	GroupByCategory         PositionGrouping = "category"
	GroupByCategoryLocation PositionGrouping = "category_location"
)

// BudgetPositionLine is one grouping in a position report. Ratios are nil when
// their denominator is zero and carry the sign of a negative approved budget.
// Adjustments are category-wide, so under category_location grouping they land
// on a line of their own with no locationId.
type BudgetPositionLine struct {
	CategoryID        uuid.UUID        `json:"categoryId"`
	CategoryName      string           `json:"categoryName,omitempty"`
	LocationID        *uuid.UUID       `json:"locationId,omitempty"`
	PlannedOTB        decimal.Decimal  `json:"plannedOtb"`
	AdjustmentIn      decimal.Decimal  `json:"adjustmentIn"`
	AdjustmentOut     decimal.Decimal  `json:"adjustmentOut"`
	ApprovedOTB       decimal.Decimal  `json:"approvedOtb"`
	Committed         decimal.Decimal  `json:"committed"`
	Received          decimal.Decimal  `json:"received"`
	Remaining         decimal.Decimal  `json:"remaining"`
	BudgetUtilization *decimal.Decimal `json:"budgetUtilization"`
	FulfillmentRate   *decimal.Decimal `json:"fulfillmentRate"`
}

type BudgetPositionReport struct {
	SeasonID  uuid.UUID            `json:"seasonId"`
	GroupBy   PositionGrouping     `json:"groupBy"`
	Lines     []BudgetPositionLine `json:"lines"`
	Totals    BudgetPositionLine   `json:"totals"`
	Generated string               `json:"generatedAt"`
}

type ConsumptionMonth struct {
	Month             string           `json:"month"`
	ApprovedOTB       decimal.Decimal  `json:"approvedOtb"`
	Committed         decimal.Decimal  `json:"committed"`
	Received          decimal.Decimal  `json:"received"`
	Remaining         decimal.Decimal  `json:"remaining"`
	BudgetUtilization *decimal.Decimal `json:"budgetUtilization"`
	FulfillmentRate   *decimal.Decimal `json:"fulfillmentRate"`
}

type ConsumptionReport struct {
	SeasonID uuid.UUID          `json:"seasonId"`
	Months   []ConsumptionMonth `json:"months"`
}

// ForecastTrend labels the run-rate against the monthly plan
type ForecastTrend string

const (
	TrendIncreasing ForecastTrend = "increasing"
	TrendStable     ForecastTrend = "stable"
	TrendDecreasing ForecastTrend = "decreasing"
)

type CategoryForecast struct {
	CategoryID           uuid.UUID        `json:"categoryId"`
	CategoryName         string           `json:"categoryName,omitempty"`
	ApprovedOTB          decimal.Decimal  `json:"approvedOtb"`
	Committed            decimal.Decimal  `json:"committed"`
	MonthlyRunRate       decimal.Decimal  `json:"monthlyRunRate"`
	ElapsedMonths        int              `json:"elapsedMonths"`
	RemainingMonths      int              `json:"remainingMonths"`
	ProjectedCommitted   decimal.Decimal  `json:"projectedCommitted"`
	ProjectedUtilization *decimal.Decimal `json:"projectedUtilization"`
	ExceedsBudget        bool             `json:"exceedsBudget"`
	Trend                ForecastTrend    `json:"trend"`
}

type ForecastReport struct {
	SeasonID   uuid.UUID          `json:"seasonId"`
	AsOf       string             `json:"asOf"`
	Categories []CategoryForecast `json:"categories"`
}

// AlertType identifies a budget alert
type AlertType string

const (
	AlertHighUtilization AlertType = "high_utilization"
	AlertOTBExceeded     AlertType = "otb_exceeded"
	AlertFulfillmentLag  AlertType = "fulfillment_lag"
)

// AlertSeverity ranks alerts
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

type BudgetAlert struct {
	Type           AlertType       `json:"type"`
	Severity       AlertSeverity   `json:"severity"`
	CategoryID     uuid.UUID       `json:"categoryId"`
	CategoryName   string          `json:"categoryName,omitempty"`
	Message        string          `json:"message"`
	CurrentValue   decimal.Decimal `json:"currentValue"`
	ThresholdValue decimal.Decimal `json:"thresholdValue"`
}

type AlertReport struct {
	SeasonID uuid.UUID     `json:"seasonId"`
	AsOf     string        `json:"asOf"`
	Alerts   []BudgetAlert `json:"alerts"`
}

type BudgetAdjustmentDTO struct {
	ID              uuid.UUID        `json:"id"`
	SeasonID        uuid.UUID        `json:"seasonId"`
	FromCategoryID  uuid.UUID        `json:"fromCategoryId"`
	ToCategoryID    uuid.UUID        `json:"toCategoryId"`
	Amount          decimal.Decimal  `json:"amount"`
	Reason          string           `json:"reason"`
	Status          AdjustmentStatus `json:"status"`
	CreatedBy       string           `json:"createdBy,omitempty"`
	ApprovedBy      string           `json:"approvedBy,omitempty"`
	ApprovedAt      *string          `json:"approvedAt,omitempty"`
	RejectionReason string           `json:"rejectionReason,omitempty"`
	CreatedAt       string           `json:"createdAt"`
}

type ProposeAdjustmentRequest struct {
	FromCategoryID uuid.UUID       `json:"fromCategoryId" validate:"required"`
	ToCategoryID   uuid.UUID       `json:"toCategoryId" validate:"required"`
	Amount         decimal.Decimal `json:"amount"`
	Reason         string          `json:"reason" validate:"required,max=2000"`
}

type RejectAdjustmentRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// ---- Dashboard ----

type POStatusCount struct {
	Status POStatus        `json:"status"`
	Count  int             `json:"count"`
	Value  decimal.Decimal `json:"value"`
}

type SeasonDashboardDTO struct {
	Season             SeasonDTO            `json:"season"`
	Workflow           WorkflowView         `json:"workflow"`
	LocationCount      int64                `json:"locationCount"`
	PlanCount          int64                `json:"planCount"`
	OTBPlanCount       int64                `json:"otbPlanCount"`
	Position           BudgetPositionLine   `json:"position"`
	ByCategory         []BudgetPositionLine `json:"byCategory"`
	POStatusBreakdown  []POStatusCount      `json:"poStatusBreakdown"`
	PendingAdjustments int64                `json:"pendingAdjustments"`
	AlertCount         int                  `json:"alertCount"`
}

// ---- Analytics ----

type ClusterSummaryLine struct {
	ClusterID     *uuid.UUID       `json:"clusterId"`
	ClusterName   string           `json:"clusterName"`
	LocationCount int              `json:"locationCount"`
	ApprovedOTB   decimal.Decimal  `json:"approvedOtb"`
	Committed     decimal.Decimal  `json:"committed"`
	Received      decimal.Decimal  `json:"received"`
	Utilization   *decimal.Decimal `json:"utilization"`
}

type ClusterSummaryReport struct {
	SeasonID uuid.UUID            `json:"seasonId"`
	Clusters []ClusterSummaryLine `json:"clusters"`
}

type LocationPerformanceLine struct {
	LocationID      uuid.UUID        `json:"locationId"`
	LocationCode    string           `json:"locationCode"`
	LocationName    string           `json:"locationName"`
	ClusterID       *uuid.UUID       `json:"clusterId,omitempty"`
	ApprovedOTB     decimal.Decimal  `json:"approvedOtb"`
	Committed       decimal.Decimal  `json:"committed"`
	Received        decimal.Decimal  `json:"received"`
	Utilization     *decimal.Decimal `json:"utilization"`
	FulfillmentRate *decimal.Decimal `json:"fulfillmentRate"`
}

// LocationPerformanceReport ranks locations by budget utilization. Top and
// Bottom hold at most the requested limit each.
type LocationPerformanceReport struct {
	SeasonID  uuid.UUID                 `json:"seasonId"`
	Locations []LocationPerformanceLine `json:"locations"`
	Top       []LocationPerformanceLine `json:"topPerformers"`
	Bottom    []LocationPerformanceLine `json:"bottomPerformers"`
}

type PriceBandWeight struct {
	PriceBand     string          `json:"priceBand"`
	AverageWeight decimal.Decimal `json:"averageWeight"`
	IntentCount   int             `json:"intentCount"`
}

type PriceBandAnalysis struct {
	SeasonID       uuid.UUID         `json:"seasonId"`
	CategoryID     *uuid.UUID        `json:"categoryId,omitempty"`
	IntentCount    int               `json:"intentCount"`
	AverageCore    decimal.Decimal   `json:"averageCorePercent"`
	AverageFashion decimal.Decimal   `json:"averageFashionPercent"`
	Bands          []PriceBandWeight `json:"priceBands"`
}

type WorkflowStatusCount struct {
	Status SeasonStatus `json:"status"`
	Count  int64        `json:"count"`
}

type RecentTransition struct {
	SeasonID      uuid.UUID    `json:"seasonId"`
	SeasonCode    string       `json:"seasonCode,omitempty"`
	FromStatus    SeasonStatus `json:"fromStatus"`
	ToStatus      SeasonStatus `json:"toStatus"`
	ChangedByName string       `json:"changedByName,omitempty"`
	ChangedAt     string       `json:"changedAt"`
}

type WorkflowStatusSummary struct {
	TotalSeasons      int64                 `json:"totalSeasons"`
	ByStatus          []WorkflowStatusCount `json:"byStatus"`
	RecentTransitions []RecentTransition    `json:"recentTransitions"`
}

// ExecutionVerdict explains a plan versus execution variance
type ExecutionVerdict string

const (
	VerdictWithinTolerance ExecutionVerdict = "within_tolerance"
	VerdictOverSupplied    ExecutionVerdict = "over_supplied"
	VerdictUnderSupplied   ExecutionVerdict = "under_supplied"
	VerdictNoPlan          ExecutionVerdict = "no_plan"
)

type PlanExecutionLine struct {
	CategoryID      uuid.UUID        `json:"categoryId"`
	CategoryName    string           `json:"categoryName,omitempty"`
	PlannedSales    decimal.Decimal  `json:"plannedSales"`
	Committed       decimal.Decimal  `json:"committed"`
	Received        decimal.Decimal  `json:"received"`
	Variance        decimal.Decimal  `json:"variance"`
	VariancePercent *decimal.Decimal `json:"variancePercent"`
	Verdict         ExecutionVerdict `json:"verdict"`
}

type PlanExecutionReport struct {
	SeasonID uuid.UUID           `json:"seasonId"`
	Lines    []PlanExecutionLine `json:"lines"`
	Totals   PlanExecutionLine   `json:"totals"`
}

// ---- Users ----

type UserDTO struct {
	ID         uuid.UUID    `json:"id"`
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	Role       UserRoleType `json:"role"`
	IsActive   bool         `json:"isActive"`
	LastSeenAt *string      `json:"lastSeenAt,omitempty"`
	CreatedAt  string       `json:"createdAt"`
	UpdatedAt  string       `json:"updatedAt"`
}

type CreateUserRequest struct {
	Name  string       `json:"name" validate:"required,max=200"`
	Email string       `json:"email" validate:"required,email,max=255"`
	Role  UserRoleType `json:"role" validate:"required"`
}

type UpdateUserRequest struct {
	Name     string       `json:"name" validate:"required,max=200"`
	Email    string       `json:"email" validate:"required,email,max=255"`
	Role     UserRoleType `json:"role" validate:"required"`
	IsActive bool         `json:"isActive"`
}

// ---- Permissions ----

// PermissionDTO answers whether one kind and operation may be written in the
// season's current status
type PermissionDTO struct {
	SeasonID      uuid.UUID    `json:"seasonId"`
	CurrentStatus SeasonStatus `json:"currentStatus"`
	EntityKind    EntityKind   `json:"entityKind"`
	Operation     Operation    `json:"operation"`
	Allowed       bool         `json:"allowed"`
	Reason        string       `json:"reason,omitempty"`
}

// PermissionMatrixDTO lists the operations each kind accepts in the season's
// current status
type PermissionMatrixDTO struct {
	SeasonID      uuid.UUID                  `json:"seasonId"`
	CurrentStatus SeasonStatus               `json:"currentStatus"`
	Allowed       map[EntityKind][]Operation `json:"allowed"`
}

// ---- Audit ----

type AuditLogDTO struct {
	ID          uuid.UUID   `json:"id"`
	SeasonID    *uuid.UUID  `json:"seasonId,omitempty"`
	UserID      string      `json:"userId,omitempty"`
	UserEmail   string      `json:"userEmail,omitempty"`
	UserName    string      `json:"userName,omitempty"`
	Action      AuditAction `json:"action"`
	EntityType  string      `json:"entityType"`
	EntityID    *uuid.UUID  `json:"entityId,omitempty"`
	OldValues   string      `json:"oldValues,omitempty"`
	NewValues   string      `json:"newValues,omitempty"`
	RequestID   string      `json:"requestId,omitempty"`
	PerformedAt string      `json:"performedAt"`
}

// AuthUserDTO describes the authenticated caller
type AuthUserDTO struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Initials   string   `json:"initials"`
	Roles      []string `json:"roles"`
	AuthMethod string   `json:"authMethod"`
	IsAdmin    bool     `json:"isAdmin"`
	IsApprover bool     `json:"isApprover"`
}
