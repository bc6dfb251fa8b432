package domain

// UserRoleType represents a role carried in a user's token
type UserRoleType string

const (
	RoleAdmin       UserRoleType = "admin"
	RolePlanner     UserRoleType = "planner"
	RoleBuyer       UserRoleType = "buyer"
	RoleApprover    UserRoleType = "approver"
	RoleViewer      UserRoleType = "viewer"
	RoleAPIService  UserRoleType = "api_service"
	RoleFinanceLead UserRoleType = "finance_lead"
)

// IsValid checks if the role is known
func (r UserRoleType) IsValid() bool {
	switch r {
	case RoleAdmin, RolePlanner, RoleBuyer, RoleApprover, RoleViewer, RoleAPIService, RoleFinanceLead:
		return true
	}
	return false
}
