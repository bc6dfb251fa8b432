package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/auth"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_Me(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		user       *auth.UserContext
		initials   string
		isApprover bool
	}{
		{
			name:     "planner",
			user:     &auth.UserContext{UserID: uuid.New(), DisplayName: "kari nordmann", Roles: []domain.UserRoleType{domain.RolePlanner}, AuthMethod: auth.AuthMethodJWT},
			initials: "KN",
		},
		{
			name:       "finance lead approves",
			user:       &auth.UserContext{UserID: uuid.New(), DisplayName: "Ola Jakob Hansen", Roles: []domain.UserRoleType{domain.RoleFinanceLead}, AuthMethod: auth.AuthMethodJWT},
			initials:   "OJ",
			isApprover: true,
		},
		{
			name:       "admin approves",
			user:       &auth.UserContext{UserID: uuid.New(), DisplayName: "Admin", Roles: []domain.UserRoleType{domain.RoleAdmin}, AuthMethod: auth.AuthMethodJWT},
			initials:   "A",
			isApprover: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := auth.WithUserContext(context.Background(), tt.user)
			w := srv.do(t, ctx, http.MethodGet, "/auth/me", nil)
			require.Equal(t, http.StatusOK, w.Code)

			var me domain.AuthUserDTO
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
			assert.Equal(t, tt.user.UserID.String(), me.ID)
			assert.Equal(t, tt.initials, me.Initials)
			assert.Equal(t, tt.isApprover, me.IsApprover)
			assert.Equal(t, "jwt", me.AuthMethod)
		})
	}

	t.Run("unauthenticated", func(t *testing.T) {
		w := srv.do(t, context.Background(), http.MethodGet, "/auth/me", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, domain.ErrorTypeUnauthorized, decodeProblem(t, w).Type)
	})
}
