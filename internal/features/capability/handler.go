package capability

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mo-amir99/lms-access-gateway/internal/features/access"
	"github.com/mo-amir99/lms-access-gateway/internal/middleware"
	"github.com/mo-amir99/lms-access-gateway/pkg/apperrors"
	"github.com/mo-amir99/lms-access-gateway/pkg/response"
)

const (
	msgNoAccess     = "You do not have access to this content."
	msgInvalidLink  = "Invalid or expired link."
	msgNotYourLink  = "This link was not issued to you."
	msgParamsNeeded = "Signed parameters are missing."
)

// Handler serves the signed-url endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a capability handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type generateRequest struct {
	ContentID   interface{} `json:"contentId"`
	ContentType string      `json:"contentType"`
}

type signedParamsRequest struct {
	SignedParams map[string]interface{} `json:"signedParams"`
}

type revokeRequest struct {
	SignedParams map[string]interface{} `json:"signedParams"`
	UserID       string                 `json:"userId"`
}

// Generate handles POST /api/generate-signed-url.
func (h *Handler) Generate(c *gin.Context) {
	usr, ok := middleware.GetUserFromContext(c)
	if !ok {
		_ = c.Error(apperrors.Unauthorized("Authentication required.", nil))
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Validation("Invalid request body.", map[string]string{"body": "must be a JSON object"}))
		return
	}

	ct, id, fields := access.ParseTarget(req.ContentType, nil, nil, req.ContentID, false)
	if len(fields) > 0 {
		_ = c.Error(apperrors.Validation("Invalid request.", fields))
		return
	}

	issued, err := h.service.Issue(c.Request.Context(), usr.ID, ct, id)
	if err != nil {
		if errors.Is(err, ErrAccessDenied) {
			_ = c.Error(apperrors.Forbidden(msgNoAccess))
			return
		}
		_ = c.Error(apperrors.Upstream(err))
		return
	}

	response.OK(c, gin.H{
		"signedParams": issued.Capability,
		"expiresAt":    issued.ExpiresAt.Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

// Verify handles POST /api/verify-signed-url.
func (h *Handler) Verify(c *gin.Context) {
	usr, ok := middleware.GetUserFromContext(c)
	if !ok {
		_ = c.Error(apperrors.Unauthorized("Authentication required.", nil))
		return
	}

	var req signedParamsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SignedParams == nil {
		_ = c.Error(apperrors.Validation(msgParamsNeeded, map[string]string{"signedParams": "is required"}))
		return
	}

	err := h.service.Validate(c.Request.Context(), usr.ID, FromMap(req.SignedParams))
	switch {
	case err == nil:
		response.JSON(c, http.StatusOK, gin.H{"valid": true})
	case errors.Is(err, ErrSubjectMismatch):
		_ = c.Error(apperrors.Forbidden(msgNotYourLink))
	default:
		_ = c.Error(apperrors.Forbidden(msgInvalidLink))
	}
}

// Revoke handles POST /api/admin/capabilities/revoke. The body names either a
// single capability or a user whose capabilities are all revoked.
func (h *Handler) Revoke(c *gin.Context) {
	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Validation("Invalid request body.", map[string]string{"body": "must be a JSON object"}))
		return
	}

	ctx := c.Request.Context()

	switch {
	case req.SignedParams != nil:
		err := h.service.Revoke(ctx, FromMap(req.SignedParams))
		if errors.Is(err, ErrMalformed) || errors.Is(err, ErrBadSignature) {
			_ = c.Error(apperrors.Validation("Invalid request.", map[string]string{"signedParams": "is not a valid capability"}))
			return
		}
		if err != nil {
			_ = c.Error(apperrors.Upstream(err))
			return
		}
	case strings.TrimSpace(req.UserID) != "":
		userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
		if err != nil {
			_ = c.Error(apperrors.Validation("Invalid request.", map[string]string{"userId": "must be a UUID"}))
			return
		}
		if err := h.service.RevokeUser(ctx, userID); err != nil {
			_ = c.Error(apperrors.Upstream(err))
			return
		}
	default:
		_ = c.Error(apperrors.Validation("Invalid request.", map[string]string{"signedParams": "signedParams or userId is required"}))
		return
	}

	response.OK(c, nil)
}

// FromMap converts loosely typed signed parameters, as echoed back by browsers,
// into a Capability. Unusable values are left empty so Check rejects them.
func FromMap(params map[string]interface{}) Capability {
	return Capability{
		ContentID:   looseString(params["contentId"]),
		ContentType: looseString(params["contentType"]),
		UserID:      looseString(params["userId"]),
		Expires:     looseInt(params["expires"]),
		Signature:   looseString(params["signature"]),
	}
}

func looseString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return strconv.FormatInt(int64(val), 10)
		}
	case json.Number:
		return val.String()
	}
	return ""
}

func looseInt(v interface{}) int64 {
	switch val := v.(type) {
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int64(val)
		}
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err == nil {
			return n
		}
	case json.Number:
		n, err := val.Int64()
		if err == nil {
			return n
		}
	}
	return 0
}
