package access

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mo-amir99/lms-access-gateway/internal/middleware"
	"github.com/mo-amir99/lms-access-gateway/pkg/apperrors"
	"github.com/mo-amir99/lms-access-gateway/pkg/request"
	"github.com/mo-amir99/lms-access-gateway/pkg/response"
	"github.com/mo-amir99/lms-access-gateway/pkg/types"
)

// Handler serves access-check endpoints.
type Handler struct {
	checker *Checker
	logger  *slog.Logger
}

// NewHandler constructs an access handler.
func NewHandler(checker *Checker, logger *slog.Logger) *Handler {
	return &Handler{checker: checker, logger: logger}
}

type verifyAccessRequest struct {
	SectionID   interface{} `json:"sectionId"`
	SubjectID   interface{} `json:"subjectId"`
	ContentType string      `json:"contentType"`
	ContentID   interface{} `json:"contentId"`
}

// VerifyAccess answers POST /api/verify-access with {"hasAccess": bool}.
func (h *Handler) VerifyAccess(c *gin.Context) {
	usr, ok := middleware.GetUserFromContext(c)
	if !ok {
		_ = c.Error(apperrors.Unauthorized("Authentication required.", nil))
		return
	}

	var req verifyAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Validation("Invalid request body.", map[string]string{"body": "must be a JSON object"}))
		return
	}

	ct, id, fields := ParseTarget(req.ContentType, req.SectionID, req.SubjectID, req.ContentID, true)
	if len(fields) > 0 {
		_ = c.Error(apperrors.Validation("Invalid request.", fields))
		return
	}

	hasAccess := h.checker.Check(c.Request.Context(), usr.ID, ct, id)
	response.JSON(c, http.StatusOK, gin.H{"hasAccess": hasAccess})
}

// SectionStatus answers GET /api/sections/:sectionId/access with the decision
// and its reason for the calling user.
func (h *Handler) SectionStatus(c *gin.Context) {
	h.groupStatus(c, "sectionId", h.checker.SectionStatus)
}

// SubjectStatus answers GET /api/subjects/:subjectId/access.
func (h *Handler) SubjectStatus(c *gin.Context) {
	h.groupStatus(c, "subjectId", h.checker.SubjectStatus)
}

func (h *Handler) groupStatus(c *gin.Context, param string, status func(ctx context.Context, userID uuid.UUID, id int64) Status) {
	usr, ok := middleware.GetUserFromContext(c)
	if !ok {
		_ = c.Error(apperrors.Unauthorized("Authentication required.", nil))
		return
	}

	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		_ = c.Error(apperrors.Validation("Invalid request.", map[string]string{param: "must be a positive integer"}))
		return
	}

	result := status(c.Request.Context(), usr.ID, id)
	if result.Reason == ReasonError {
		// Error detail was logged by the checker.
		result.Reason = ReasonDenied
	}
	response.JSON(c, http.StatusOK, result)
}

// ParseTarget validates the (contentType, sectionId, subjectId, contentId)
// tuple shared by the access and signed-url endpoints. allowGroups permits the
// "section" and "subject" types, which take their ID from sectionId or
// subjectId respectively, or from contentId when that field is absent.
func ParseTarget(rawType string, sectionID, subjectID, contentID interface{}, allowGroups bool) (types.ContentType, string, map[string]string) {
	fields := map[string]string{}

	ct, err := types.ParseContentType(rawType)
	if err != nil || (!allowGroups && ct.IsGroup()) {
		if allowGroups {
			fields["contentType"] = "must be one of subject, section, video, quiz, file"
		} else {
			fields["contentType"] = "must be one of video, quiz, file"
		}
		return "", "", fields
	}

	if ct.IsGroup() {
		raw, field := sectionID, "sectionId"
		if ct == types.ContentTypeSubject {
			raw, field = subjectID, "subjectId"
		}
		if raw == nil {
			raw = contentID
		}
		id, err := request.ReadID(raw)
		if err != nil {
			fields[field] = err.Error()
			return "", "", fields
		}
		return ct, id, nil
	}

	id, err := request.ReadID(contentID)
	if err != nil {
		fields["contentId"] = err.Error()
		return "", "", fields
	}
	return ct, id, nil
}
