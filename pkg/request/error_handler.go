package request

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mo-amir99/lms-access-gateway/pkg/apperrors"
	"github.com/mo-amir99/lms-access-gateway/pkg/response"
)

// Handler returns a middleware that renders errors attached with c.Error.
// Server-side failures are logged with full detail; clients only get the
// AppError message, or a generic one for unclassified errors.
func Handler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := errors.Join(errorsFromContext(c.Errors)...)
		if err == nil {
			return
		}

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			if appErr.StatusCode() >= http.StatusInternalServerError {
				logger.ErrorContext(c.Request.Context(), appErr.Message(),
					slog.String("code", string(appErr.Code())),
					slog.String("path", c.FullPath()),
					slog.String("error", err.Error()),
				)
			}
			response.AppError(c, appErr)
			return
		}

		status, message := classify(err)
		response.ErrorWithLog(logger, c, status, message, err)
	}
}

func errorsFromContext(errs []*gin.Error) []error {
	list := make([]error, 0, len(errs))
	for _, item := range errs {
		if item != nil && item.Err != nil {
			list = append(list, item.Err)
		}
	}
	return list
}

func classify(err error) (int, string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return http.StatusNotFound, "Resource not found"
	}
	return http.StatusInternalServerError, "Internal server error"
}
