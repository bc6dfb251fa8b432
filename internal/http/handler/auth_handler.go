package handler

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/straye-as/season-planning-api/internal/auth"
	"github.com/straye-as/season-planning-api/internal/domain"
	"go.uber.org/zap"
)

// AuthHandler handles authentication related HTTP requests
type AuthHandler struct {
	approverRoles []domain.UserRoleType
	logger        *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(approverRoles []domain.UserRoleType, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		approverRoles: approverRoles,
		logger:        logger,
	}
}

// Me godoc
// @Summary Get current authenticated user
// @Description Returns the current authenticated user with roles and whether the user may decide budget adjustments
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.AuthUserDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	respondJSON(w, http.StatusOK, domain.AuthUserDTO{
		ID:         userCtx.UserID.String(),
		Name:       userCtx.DisplayName,
		Email:      userCtx.Email,
		Initials:   initials(userCtx.DisplayName),
		Roles:      userCtx.RolesAsStrings(),
		AuthMethod: string(userCtx.AuthMethod),
		IsAdmin:    userCtx.IsAdmin(),
		IsApprover: userCtx.IsAdmin() || userCtx.HasAnyRole(h.approverRoles...),
	})
}

// initials returns up to two upper-case letters from a display name
func initials(name string) string {
	var b strings.Builder
	for _, part := range strings.Fields(name) {
		r := []rune(part)[0]
		if !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if b.Len() >= 2 {
			break
		}
	}
	return b.String()
}
