package subject

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mo-amir99/lms-access-gateway/internal/middleware"
	"github.com/mo-amir99/lms-access-gateway/pkg/apperrors"
	"github.com/mo-amir99/lms-access-gateway/pkg/response"
	"github.com/mo-amir99/lms-access-gateway/pkg/validation"
)

const msgInvalidCode = "Invalid or already used activation code."

// Handler serves subject activation.
type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewHandler constructs a subject handler.
func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger, now: time.Now}
}

// Activate redeems an activation code for the subject in the path.
func (h *Handler) Activate(c *gin.Context) {
	usr, ok := middleware.GetUserFromContext(c)
	if !ok {
		_ = c.Error(apperrors.Unauthorized("Authentication required.", nil))
		return
	}

	subjectID, err := strconv.ParseInt(c.Param("subjectId"), 10, 64)
	if err != nil || subjectID <= 0 {
		_ = c.Error(apperrors.Validation("Invalid request.", map[string]string{"subjectId": "must be a positive integer"}))
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
		_ = c.Error(apperrors.Forbidden(msgInvalidCode))
		return
	}

	result, err := Activate(c.Request.Context(), h.db, usr.ID, subjectID, code, h.now())
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
		h.logger.InfoContext(c.Request.Context(), "subject activated",
			slog.String("user_id", usr.ID.String()),
			slog.Int64("subject_id", subjectID),
		)
	}
	response.OK(c, gin.H{"data": result})
}
