package profile

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/lms-access-gateway/internal/middleware"
	"github.com/mo-amir99/lms-access-gateway/pkg/apperrors"
	"github.com/mo-amir99/lms-access-gateway/pkg/pagination"
	"github.com/mo-amir99/lms-access-gateway/pkg/response"
	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

// Handler serves profile endpoints.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewHandler constructs a profile handler.
func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

// Me returns the caller's profile. A user without a profile row is reported
// with the student role, matching how the auth middleware treats them.
func (h *Handler) Me(c *gin.Context) {
	usr, ok := middleware.GetUserFromContext(c)
	if !ok {
		_ = c.Error(apperrors.Unauthorized("Authentication required.", nil))
		return
	}

	p, err := Get(c.Request.Context(), h.db, usr.ID)
	switch {
	case err == nil:
	case errors.Is(err, ErrProfileNotFound):
		p = Profile{ID: usr.ID, Role: types.UserRoleStudent}
	default:
		_ = c.Error(apperrors.Upstream(err))
		return
	}

	response.OK(c, gin.H{"data": p})
}

// List returns profiles for the admin console.
func (h *Handler) List(c *gin.Context) {
	role := types.UserRole(strings.ToLower(strings.TrimSpace(c.Query("role"))))
	if role != "" && !role.Valid() {
		_ = c.Error(apperrors.Validation("Invalid request.", map[string]string{"role": "must be student or admin"}))
		return
	}

	params := pagination.Extract(c)
	profiles, total, err := List(c.Request.Context(), h.db, c.Query("filterKeyword"), role, params)
	if err != nil {
		_ = c.Error(apperrors.Upstream(err))
		return
	}

	response.Paged(c, profiles, pagination.MetadataFrom(total, params))
}

// SetRole changes a user's role. Admins cannot demote themselves.
func (h *Handler) SetRole(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		_ = c.Error(apperrors.Validation("Invalid request.", map[string]string{"userId": "must be a UUID"}))
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Validation("Invalid request body.", map[string]string{"body": "must be a JSON object"}))
		return
	}
	role := types.UserRole(strings.ToLower(strings.TrimSpace(req.Role)))
	if !role.Valid() {
		_ = c.Error(apperrors.Validation("Invalid request.", map[string]string{"role": "must be student or admin"}))
		return
	}

	if caller, ok := middleware.GetUserFromContext(c); ok && caller.ID == userID && role != types.UserRoleAdmin {
		_ = c.Error(apperrors.Forbidden("You cannot remove your own admin role."))
		return
	}

	if err := SetRole(c.Request.Context(), h.db, userID, role); err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			_ = c.Error(apperrors.New("Profile not found.", http.StatusNotFound, apperrors.ErrNotFound, err))
			return
		}
		_ = c.Error(apperrors.Upstream(err))
		return
	}

	h.logger.InfoContext(c.Request.Context(), "role changed",
		slog.String("user_id", userID.String()),
		slog.String("role", string(role)),
	)
	response.OK(c, nil)
}
