package section

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mo-amir99/lms-access-gateway/internal/middleware"
	"github.com/mo-amir99/lms-access-gateway/pkg/apperrors"
	"github.com/mo-amir99/lms-access-gateway/pkg/pagination"
	"github.com/mo-amir99/lms-access-gateway/pkg/request"
	"github.com/mo-amir99/lms-access-gateway/pkg/response"
	"github.com/mo-amir99/lms-access-gateway/pkg/types"
	"github.com/mo-amir99/lms-access-gateway/pkg/validation"
)

// CapabilityRevoker invalidates signed capabilities already handed to a user
// for content in one section.
type CapabilityRevoker interface {
	RevokeSection(ctx context.Context, userID uuid.UUID, sectionID int64) error
}

// Handler serves activation, entitlement listing and admin grant endpoints.
type Handler struct {
	db      *gorm.DB
	revoker CapabilityRevoker
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler constructs a section handler.
func NewHandler(db *gorm.DB, revoker CapabilityRevoker, logger *slog.Logger) *Handler {
	return &Handler{db: db, revoker: revoker, logger: logger, now: time.Now}
}

const msgInvalidCode = "Invalid or already used activation code."

// Activate redeems an activation code for the section in the path.
func (h *Handler) Activate(c *gin.Context) {
	usr, ok := middleware.GetUserFromContext(c)
	if !ok {
		_ = c.Error(apperrors.Unauthorized("Authentication required.", nil))
		return
	}

	sectionID, err := strconv.ParseInt(c.Param("sectionId"), 10, 64)
	if err != nil || sectionID <= 0 {
		_ = c.Error(apperrors.Validation("Invalid request.", map[string]string{"sectionId": "must be a positive integer"}))
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		_ = c.Error(apperrors.Validation("Activation code is required.", map[string]string{"code": "is required"}))
		return
	}

	code, err := validation.NormalizeActivationCode(req.Code)
	if err != nil {
		// Malformed codes cannot match a stored code.
		_ = c.Error(apperrors.Forbidden(msgInvalidCode))
		return
	}

	result, err := Activate(c.Request.Context(), h.db, usr.ID, sectionID, code, h.now())
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidCode):
		_ = c.Error(apperrors.Forbidden(msgInvalidCode))
		return
	default:
		_ = c.Error(apperrors.Upstream(err))
		return
	}

	if !result.AlreadyActive {
		h.logger.InfoContext(c.Request.Context(), "section activated",
			slog.String("user_id", usr.ID.String()),
			slog.Int64("section_id", sectionID),
		)
	}
	response.OK(c, gin.H{"data": result})
}

// Accessible lists the caller's entitled sections.
func (h *Handler) Accessible(c *gin.Context) {
	usr, ok := middleware.GetUserFromContext(c)
	if !ok {
		_ = c.Error(apperrors.Unauthorized("Authentication required.", nil))
		return
	}

	params := pagination.Extract(c)
	rows, total, err := ListAccessible(c.Request.Context(), h.db, usr.ID, params)
	if err != nil {
		_ = c.Error(apperrors.Upstream(err))
		return
	}

	response.Paged(c, rows, pagination.MetadataFrom(total, params))
}

type grantRequest struct {
	UserID    string      `json:"userId"`
	SectionID interface{} `json:"sectionId"`
}

func parseGrant(c *gin.Context) (uuid.UUID, int64, bool) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Validation("Invalid request body.", map[string]string{"body": "must be a JSON object"}))
		return uuid.Nil, 0, false
	}

	fields := map[string]string{}
	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		fields["userId"] = "must be a UUID"
	}
	rawSection, err := request.ReadID(req.SectionID)
	if err != nil {
		fields["sectionId"] = err.Error()
	}
	if len(fields) > 0 {
		_ = c.Error(apperrors.Validation("Invalid request.", fields))
		return uuid.Nil, 0, false
	}

	sectionID, _ := strconv.ParseInt(rawSection, 10, 64)
	return userID, sectionID, true
}

// Grant records an admin-issued entitlement.
func (h *Handler) Grant(c *gin.Context) {
	userID, sectionID, ok := parseGrant(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if _, err := Get(ctx, h.db, sectionID); err != nil {
		if errors.Is(err, ErrSectionNotFound) {
			_ = c.Error(apperrors.New("Section not found.", http.StatusNotFound, apperrors.ErrNotFound, err))
			return
		}
		_ = c.Error(apperrors.Upstream(err))
		return
	}

	if err := Grant(ctx, h.db, userID, sectionID, types.AccessSourceAdminGrant, h.now()); err != nil {
		_ = c.Error(apperrors.Upstream(err))
		return
	}

	h.audit(c, "section access granted", userID, sectionID)
	response.OK(c, nil)
}

// Revoke removes an entitlement and invalidates the user's outstanding
// capabilities for that section. Capabilities go first so a failure leaves
// the grant intact.
func (h *Handler) Revoke(c *gin.Context) {
	userID, sectionID, ok := parseGrant(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.revoker.RevokeSection(ctx, userID, sectionID); err != nil {
		_ = c.Error(apperrors.Upstream(err))
		return
	}

	if err := Revoke(ctx, h.db, userID, sectionID); err != nil {
		if errors.Is(err, ErrAccessNotFound) {
			_ = c.Error(apperrors.New("Section access not found.", http.StatusNotFound, apperrors.ErrNotFound, err))
			return
		}
		_ = c.Error(apperrors.Upstream(err))
		return
	}

	h.audit(c, "section access revoked", userID, sectionID)
	response.OK(c, nil)
}

func (h *Handler) audit(c *gin.Context, msg string, userID uuid.UUID, sectionID int64) {
	attrs := []any{
		slog.String("user_id", userID.String()),
		slog.Int64("section_id", sectionID),
	}
	if admin, ok := middleware.GetUserFromContext(c); ok {
		attrs = append(attrs, slog.String("admin_id", admin.ID.String()))
	}
	h.logger.InfoContext(c.Request.Context(), msg, attrs...)
}
