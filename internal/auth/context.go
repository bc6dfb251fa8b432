package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/domain"
)

// AuthMethod records how a request was authenticated
type AuthMethod string

const (
	AuthMethodJWT    AuthMethod = "jwt"
	AuthMethodAPIKey AuthMethod = "api_key"
	AuthMethodSystem AuthMethod = "system"
)

// SystemUserID identifies API-key callers and scheduled jobs
var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000000")

// UserContext holds authenticated user information
type UserContext struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
	Roles       []domain.UserRoleType
	AuthMethod  AuthMethod
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// SystemContext returns ctx carrying the system user, for scheduled jobs
func SystemContext(ctx context.Context, name string) context.Context {
	return WithUserContext(ctx, &UserContext{
		UserID:      SystemUserID,
		DisplayName: name,
		Email:       "system@season-planning.local",
		Roles:       []domain.UserRoleType{domain.RoleAPIService},
		AuthMethod:  AuthMethodSystem,
	})
}

// Actor returns the id and display name recorded on writes. Requests without
// a user are attributed to "system".
func Actor(ctx context.Context) (string, string) {
	if user, ok := FromContext(ctx); ok {
		name := user.DisplayName
		if name == "" {
			name = user.Email
		}
		return user.UserID.String(), name
	}
	return SystemUserID.String(), "system"
}

// HasRole checks if user has a specific role
func (u *UserContext) HasRole(role domain.UserRoleType) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.UserRoleType) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin checks if user has the admin role
func (u *UserContext) IsAdmin() bool {
	return u.HasRole(domain.RoleAdmin)
}

// RolesAsStrings returns roles as a slice of strings
func (u *UserContext) RolesAsStrings() []string {
	result := make([]string, len(u.Roles))
	for i, role := range u.Roles {
		result[i] = string(role)
	}
	return result
}
