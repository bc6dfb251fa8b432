package mapper

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/straye-as/season-planning-api/internal/domain"
)

const (
	timestampLayout = "2006-01-02T15:04:05Z"
	dateLayout      = "2006-01-02"
)

var hundred = decimal.NewFromInt(100)

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// FormatDate renders a calendar date
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ToSeasonDTO converts Season to SeasonDTO
func ToSeasonDTO(season *domain.Season) domain.SeasonDTO {
	return domain.SeasonDTO{
		ID:        season.ID,
		Code:      season.Code,
		Name:      season.Name,
		StartDate: FormatDate(season.StartDate),
		EndDate:   FormatDate(season.EndDate),
		Status:    season.Status,
		CreatedBy: season.CreatedBy,
		CreatedAt: formatTime(season.CreatedAt),
		UpdatedAt: formatTime(season.UpdatedAt),
	}
}

// ToWorkflowView builds the workflow read model. Flags are derived from the
// status so the view can never disagree with it.
func ToWorkflowView(season *domain.Season) domain.WorkflowView {
	view := domain.WorkflowView{
		SeasonID:      season.ID,
		SeasonCode:    season.Code,
		SeasonName:    season.Name,
		CurrentStatus: season.Status,
		Flags:         domain.FlagsFor(season.Status),
		IsEditable:    !season.Status.IsTerminal(),
	}
	if next, ok := season.Status.Next(); ok {
		view.NextStatus = &next
	}
	return view
}

// ToWorkflowHistoryDTO converts SeasonWorkflowHistory to WorkflowHistoryDTO
func ToWorkflowHistoryDTO(h *domain.SeasonWorkflowHistory) domain.WorkflowHistoryDTO {
	return domain.WorkflowHistoryDTO{
		ID:            h.ID,
		FromStatus:    h.FromStatus,
		ToStatus:      h.ToStatus,
		ChangedByID:   h.ChangedByID,
		ChangedByName: h.ChangedByName,
		ChangedAt:     formatTime(h.ChangedAt),
	}
}

// ToRecentTransition converts a workflow history row for the cross-season summary
func ToRecentTransition(h *domain.SeasonWorkflowHistory, seasonCode string) domain.RecentTransition {
	return domain.RecentTransition{
		SeasonID:      h.SeasonID,
		SeasonCode:    seasonCode,
		FromStatus:    h.FromStatus,
		ToStatus:      h.ToStatus,
		ChangedByName: h.ChangedByName,
		ChangedAt:     formatTime(h.ChangedAt),
	}
}

// ToClusterDTO converts Cluster to ClusterDTO
func ToClusterDTO(cluster *domain.Cluster) domain.ClusterDTO {
	return domain.ClusterDTO{
		ID:          cluster.ID,
		Name:        cluster.Name,
		Code:        cluster.Code,
		Description: cluster.Description,
		CreatedAt:   formatTime(cluster.CreatedAt),
		UpdatedAt:   formatTime(cluster.UpdatedAt),
	}
}

// ToLocationDTO converts Location to LocationDTO
func ToLocationDTO(location *domain.Location) domain.LocationDTO {
	return domain.LocationDTO{
		ID:         location.ID,
		Code:       location.Code,
		Name:       location.Name,
		Type:       location.Type,
		ClusterID:  location.ClusterID,
		Address:    location.Address,
		City:       location.City,
		State:      location.State,
		Country:    location.Country,
		PostalCode: location.PostalCode,
		IsActive:   location.IsActive,
		CreatedAt:  formatTime(location.CreatedAt),
		UpdatedAt:  formatTime(location.UpdatedAt),
	}
}

// ToCategoryDTO converts Category to CategoryDTO
func ToCategoryDTO(category *domain.Category) domain.CategoryDTO {
	dto := domain.CategoryDTO{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		ParentID:    category.ParentID,
		Level:       category.Level,
		Path:        category.Path,
		CreatedAt:   formatTime(category.CreatedAt),
		UpdatedAt:   formatTime(category.UpdatedAt),
	}
	if category.Code != nil {
		dto.Code = *category.Code
	}
	return dto
}

// ToSeasonPlanDTO converts SeasonPlan to SeasonPlanDTO
func ToSeasonPlanDTO(plan *domain.SeasonPlan) domain.SeasonPlanDTO {
	return domain.SeasonPlanDTO{
		ID:             plan.ID,
		SeasonID:       plan.SeasonID,
		LocationID:     plan.LocationID,
		CategoryID:     plan.CategoryID,
		PlannedSales:   plan.PlannedSales,
		PlannedMargin:  plan.PlannedMargin,
		InventoryTurns: plan.InventoryTurns,
		PlannedUnits:   plan.PlannedUnits,
		LYSales:        plan.LYSales,
		Version:        plan.Version,
		Approved:       plan.Approved,
		ApprovedBy:     plan.ApprovedBy,
		ApprovedAt:     formatTimePtr(plan.ApprovedAt),
		CreatedAt:      formatTime(plan.CreatedAt),
		UpdatedAt:      formatTime(plan.UpdatedAt),
	}
}

// ToOTBPlanDTO converts OTBPlan to OTBPlanDTO
func ToOTBPlanDTO(plan *domain.OTBPlan) domain.OTBPlanDTO {
	return domain.OTBPlanDTO{
		ID:                  plan.ID,
		SeasonID:            plan.SeasonID,
		LocationID:          plan.LocationID,
		CategoryID:          plan.CategoryID,
		Month:               FormatDate(plan.Month),
		PlannedSales:        plan.PlannedSales,
		PlannedClosingStock: plan.PlannedClosingStock,
		OpeningStock:        plan.OpeningStock,
		OnOrder:             plan.OnOrder,
		ApprovedSpendLimit:  plan.ApprovedSpendLimit,
		CreatedAt:           formatTime(plan.CreatedAt),
		UpdatedAt:           formatTime(plan.UpdatedAt),
	}
}

// ToRangeIntentDTO converts RangeIntent to RangeIntentDTO
func ToRangeIntentDTO(intent *domain.RangeIntent) domain.RangeIntentDTO {
	return domain.RangeIntentDTO{
		ID:             intent.ID,
		SeasonID:       intent.SeasonID,
		CategoryID:     intent.CategoryID,
		CorePercent:    intent.CorePercent,
		FashionPercent: intent.FashionPercent,
		PriceBandMix:   intent.PriceBandMix,
		CreatedAt:      formatTime(intent.CreatedAt),
		UpdatedAt:      formatTime(intent.UpdatedAt),
	}
}

// ToRangeArchitectureDTO converts RangeArchitecture to RangeArchitectureDTO
func ToRangeArchitectureDTO(r *domain.RangeArchitecture) domain.RangeArchitectureDTO {
	return domain.RangeArchitectureDTO{
		ID:             r.ID,
		SeasonID:       r.SeasonID,
		CategoryID:     r.CategoryID,
		PriceBand:      r.PriceBand,
		Fabric:         r.Fabric,
		ColorFamily:    r.ColorFamily,
		StyleType:      r.StyleType,
		PlannedStyles:  r.PlannedStyles,
		PlannedOptions: r.PlannedOptions,
		PlannedDepth:   r.PlannedDepth,
		Status:         r.Status,
		CreatedBy:      r.CreatedBy,
		SubmittedBy:    r.SubmittedBy,
		SubmittedAt:    formatTimePtr(r.SubmittedAt),
		ReviewedBy:     r.ReviewedBy,
		ReviewedAt:     formatTimePtr(r.ReviewedAt),
		ReviewComment:  r.ReviewComment,
		CreatedAt:      formatTime(r.CreatedAt),
		UpdatedAt:      formatTime(r.UpdatedAt),
	}
}

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	return domain.UserDTO{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Role:       user.Role,
		IsActive:   user.IsActive,
		LastSeenAt: formatTimePtr(user.LastSeenAt),
		CreatedAt:  formatTime(user.CreatedAt),
		UpdatedAt:  formatTime(user.UpdatedAt),
	}
}

// ReceivedValue sums the GRNs loaded on a purchase order
func ReceivedValue(po *domain.PurchaseOrder) decimal.Decimal {
	total := decimal.Zero
	for _, grn := range po.GRNs {
		total = total.Add(grn.ReceivedValue)
	}
	return total
}

// FulfillmentPercent is received/ordered as a percentage, unclamped so
// over-receipt stays visible. A zero-value PO reports zero.
func FulfillmentPercent(poValue, received decimal.Decimal) decimal.Decimal {
	if !poValue.IsPositive() {
		return decimal.Zero
	}
	return received.Div(poValue).Mul(hundred).Round(2)
}

// ClampPercent limits a percentage to [0, 100] for display
func ClampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// ToPurchaseOrderDTO converts PurchaseOrder to PurchaseOrderDTO. GRNs must be loaded.
func ToPurchaseOrderDTO(po *domain.PurchaseOrder) domain.PurchaseOrderDTO {
	received := ReceivedValue(po)
	return domain.PurchaseOrderDTO{
		ID:                 po.ID,
		PONumber:           po.PONumber,
		SeasonID:           po.SeasonID,
		LocationID:         po.LocationID,
		CategoryID:         po.CategoryID,
		POValue:            po.POValue,
		Status:             po.Status,
		Source:             po.Source,
		OrderDate:          FormatDate(po.OrderDate),
		SupplierName:       po.SupplierName,
		ReceivedValue:      received,
		FulfillmentPercent: FulfillmentPercent(po.POValue, received),
		CreatedAt:          formatTime(po.CreatedAt),
		UpdatedAt:          formatTime(po.UpdatedAt),
	}
}

// ToFulfillmentDTO reports receipts against a purchase order. GRNs must be loaded.
func ToFulfillmentDTO(po *domain.PurchaseOrder) domain.FulfillmentDTO {
	received := ReceivedValue(po)
	percent := FulfillmentPercent(po.POValue, received)
	return domain.FulfillmentDTO{
		POID:               po.ID,
		PONumber:           po.PONumber,
		POValue:            po.POValue,
		ReceivedValue:      received,
		FulfillmentPercent: percent,
		DisplayPercent:     ClampPercent(percent),
		GRNCount:           len(po.GRNs),
	}
}

// ToGRNDTO converts GRN to GRNDTO
func ToGRNDTO(grn *domain.GRN) domain.GRNDTO {
	return domain.GRNDTO{
		ID:            grn.ID,
		POID:          grn.POID,
		GRNDate:       FormatDate(grn.GRNDate),
		ReceivedValue: grn.ReceivedValue,
		CreatedAt:     formatTime(grn.CreatedAt),
	}
}

// ToBudgetAdjustmentDTO converts BudgetAdjustment to BudgetAdjustmentDTO
func ToBudgetAdjustmentDTO(adj *domain.BudgetAdjustment) domain.BudgetAdjustmentDTO {
	return domain.BudgetAdjustmentDTO{
		ID:              adj.ID,
		SeasonID:        adj.SeasonID,
		FromCategoryID:  adj.FromCategoryID,
		ToCategoryID:    adj.ToCategoryID,
		Amount:          adj.Amount,
		Reason:          adj.Reason,
		Status:          adj.Status,
		CreatedBy:       adj.CreatedBy,
		ApprovedBy:      adj.ApprovedBy,
		ApprovedAt:      formatTimePtr(adj.ApprovedAt),
		RejectionReason: adj.RejectionReason,
		CreatedAt:       formatTime(adj.CreatedAt),
	}
}

// ToAuditLogDTO converts AuditLog to AuditLogDTO
func ToAuditLogDTO(log *domain.AuditLog) domain.AuditLogDTO {
	return domain.AuditLogDTO{
		ID:          log.ID,
		SeasonID:    log.SeasonID,
		UserID:      log.UserID,
		UserEmail:   log.UserEmail,
		UserName:    log.UserName,
		Action:      log.Action,
		EntityType:  log.EntityType,
		EntityID:    log.EntityID,
		OldValues:   log.OldValues,
		NewValues:   log.NewValues,
		RequestID:   log.RequestID,
		PerformedAt: formatTime(log.PerformedAt),
	}
}

// NewPaginatedResponse wraps a page of results
func NewPaginatedResponse(data interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// FormatError wraps a repository error with the entity and operation it came from
func FormatError(entity, operation string, err error) error {
	return fmt.Errorf("failed to %s %s: %w", operation, entity, err)
}
