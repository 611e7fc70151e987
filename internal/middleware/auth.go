package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mo-amir99/lms-access-gateway/internal/utils/jwt"
	"github.com/mo-amir99/lms-access-gateway/pkg/apperrors"
	"github.com/mo-amir99/lms-access-gateway/pkg/response"
	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

const (
	userContextKey   = "user"
	userIDContextKey = "userId"
)

// Client-facing messages. Deliberately generic.
const (
	msgNoToken      = "Authentication token is missing. Please sign in."
	msgInvalidToken = "Invalid session. Please sign in again."
	msgForbidden    = "Access denied."
)

// ErrProfileNotFound is returned by RoleSource implementations when the
// authenticated user has no profile row yet.
var ErrProfileNotFound = errors.New("profile not found")

// RoleSource resolves the platform role of an authenticated user.
type RoleSource interface {
	RoleOf(ctx context.Context, userID uuid.UUID) (types.UserRole, error)
}

// User is the authenticated caller stored in the gin context.
type User struct {
	ID   uuid.UUID
	Role types.UserRole
}

// IsAdmin reports whether the caller has the admin role.
func (u *User) IsAdmin() bool { return u != nil && u.Role == types.UserRoleAdmin }

// AuthMiddleware authenticates bearer tokens and loads the caller's role.
type AuthMiddleware struct {
	verifier *jwt.Verifier
	roles    RoleSource
	logger   *slog.Logger
}

// NewAuthMiddleware creates an auth middleware instance.
func NewAuthMiddleware(verifier *jwt.Verifier, roles RoleSource, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		roles:    roles,
		logger:   logger,
	}
}

// Authenticate validates the bearer token and stores the caller in context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := m.ensureAuthenticated(c); !ok {
			return
		}
		c.Next()
	}
}

// RequireAdmin authenticates the caller and rejects anyone without the admin role.
func (m *AuthMiddleware) RequireAdmin() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Authenticate(),
		func(c *gin.Context) {
			usr, ok := GetUserFromContext(c)
			if !ok || !usr.IsAdmin() {
				response.AppError(c, apperrors.Forbidden(msgForbidden))
				c.Abort()
				return
			}
			c.Next()
		},
	}
}

// GetUserFromContext retrieves the authenticated user from the Gin context.
func GetUserFromContext(c *gin.Context) (*User, bool) {
	userVal, exists := c.Get(userContextKey)
	if !exists {
		return nil, false
	}

	usr, ok := userVal.(*User)
	if !ok || usr == nil {
		return nil, false
	}

	return usr, true
}

// SetUser stores an authenticated user in the context.
func SetUser(c *gin.Context, usr *User) {
	c.Set(userContextKey, usr)
	c.Set(userIDContextKey, usr.ID)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (m *AuthMiddleware) ensureAuthenticated(c *gin.Context) (*User, bool) {
	if usr, ok := GetUserFromContext(c); ok {
		return usr, true
	}

	token, ok := BearerToken(c.GetHeader("Authorization"))
	if !ok {
		m.reject(c, apperrors.Unauthorized(msgNoToken, nil))
		return nil, false
	}

	claims, err := m.verifier.Verify(token)
	if err != nil {
		m.reject(c, apperrors.Unauthorized(msgInvalidToken, err))
		return nil, false
	}

	userID, err := claims.UserID()
	if err != nil {
		m.reject(c, apperrors.Unauthorized(msgInvalidToken, err))
		return nil, false
	}

	// Role is read on every request; nothing is cached beyond this request.
	role, err := m.roles.RoleOf(c.Request.Context(), userID)
	switch {
	case err == nil:
	case errors.Is(err, ErrProfileNotFound):
		role = types.UserRoleStudent
	default:
		m.logger.ErrorContext(c.Request.Context(), "role lookup failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		m.reject(c, apperrors.Upstream(err))
		return nil, false
	}

	if !role.Valid() {
		role = types.UserRoleStudent
	}

	usr := &User{ID: userID, Role: role}
	SetUser(c, usr)
	return usr, true
}

func (m *AuthMiddleware) reject(c *gin.Context, err *apperrors.AppError) {
	if err.Unwrap() != nil {
		m.logger.WarnContext(c.Request.Context(), "authentication rejected",
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	response.AppError(c, err)
	c.Abort()
}
