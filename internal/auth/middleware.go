package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/season-planning-api/internal/config"
	"github.com/straye-as/season-planning-api/internal/domain"
	"go.uber.org/zap"
)

// Middleware handles authentication for HTTP requests
type Middleware struct {
	jwtValidator  *JWTValidator
	apiKey        string
	approverRoles []domain.UserRoleType
	directory     UserDirectory
	logger        *zap.Logger
}

// UserDirectory resolves an authenticated caller to a known user. Lookup
// returns nil without an error for callers the directory does not know.
type UserDirectory interface {
	Lookup(ctx context.Context, id uuid.UUID, email string) (*domain.User, error)
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(cfg *config.AuthConfig, logger *zap.Logger) *Middleware {
	approvers := make([]domain.UserRoleType, 0, len(cfg.ApproverRoles))
	for _, r := range cfg.ApproverRoles {
		approvers = append(approvers, domain.UserRoleType(strings.TrimSpace(r)))
	}
	return &Middleware{
		jwtValidator:  NewJWTValidator(cfg),
		apiKey:        cfg.APIKey,
		approverRoles: approvers,
		logger:        logger,
	}
}

// SetUserDirectory makes token callers resolve against the user directory, so
// writes are attributed to the directory name and deactivated users are refused.
func (m *Middleware) SetUserDirectory(directory UserDirectory) {
	m.directory = directory
}

// resolve applies the directory entry of a token caller. Directory failures
// are logged and the token claims are used as they are.
func (m *Middleware) resolve(r *http.Request, userCtx *UserContext) (allowed bool) {
	if m.directory == nil {
		return true
	}
	user, err := m.directory.Lookup(r.Context(), userCtx.UserID, userCtx.Email)
	if err != nil {
		m.logger.Warn("user directory lookup failed",
			zap.String("user_id", userCtx.UserID.String()),
			zap.Error(err),
		)
		return true
	}
	if user == nil {
		return true
	}
	if !user.IsActive {
		m.logger.Warn("deactivated user refused",
			zap.String("user_id", userCtx.UserID.String()),
			zap.String("email", user.Email),
		)
		return false
	}
	if user.Name != "" {
		userCtx.DisplayName = user.Name
	}
	return true
}

// Authenticate is the main authentication middleware
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Try API key first
		if apiKey := r.Header.Get("x-api-key"); apiKey != "" {
			if !m.validateAPIKey(apiKey) {
				m.logger.Warn("invalid API key attempt",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			userCtx := &UserContext{
				UserID:      SystemUserID,
				DisplayName: "System",
				Email:       "system@season-planning.local",
				Roles:       []domain.UserRoleType{domain.RoleAdmin, domain.RoleAPIService},
				AuthMethod:  AuthMethodAPIKey,
			}
			if name := r.Header.Get("X-Actor-Name"); name != "" {
				userCtx.DisplayName = name
			}

			m.logger.Debug("request authenticated",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("auth_type", string(AuthMethodAPIKey)),
				zap.Duration("auth_duration", time.Since(start)),
			)

			next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized: missing authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			http.Error(w, "Unauthorized: invalid authorization header format", http.StatusUnauthorized)
			return
		}

		userCtx, err := m.jwtValidator.ValidateToken(parts[1])
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
			return
		}
		if !m.resolve(r, userCtx) {
			http.Error(w, "Forbidden: user is deactivated", http.StatusForbidden)
			return
		}

		m.logger.Debug("request authenticated",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("auth_type", string(AuthMethodJWT)),
			zap.String("user_id", userCtx.UserID.String()),
			zap.Strings("roles", userCtx.RolesAsStrings()),
			zap.Duration("auth_duration", time.Since(start)),
		)

		next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
	})
}

// RequireRole middleware ensures user has one of the given roles. Admins always pass.
func (m *Middleware) RequireRole(roles ...domain.UserRoleType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := FromContext(r.Context())
			if !ok {
				http.Error(w, "Forbidden: no user context", http.StatusForbidden)
				return
			}

			if !userCtx.IsAdmin() && !userCtx.HasAnyRole(roles...) {
				m.logger.Warn("role check failed",
					zap.String("path", r.URL.Path),
					zap.String("user_id", userCtx.UserID.String()),
					zap.Strings("roles", userCtx.RolesAsStrings()),
				)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireApprover allows only the configured adjustment approver roles
func (m *Middleware) RequireApprover(next http.Handler) http.Handler {
	return m.RequireRole(m.approverRoles...)(next)
}

func (m *Middleware) validateAPIKey(key string) bool {
	if m.apiKey == "" {
		return false
	}
	// Constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}

// ApproverRoles returns the roles allowed to decide budget adjustments
func (m *Middleware) ApproverRoles() []domain.UserRoleType {
	return m.approverRoles
}
