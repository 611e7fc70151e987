package response

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/lms-access-gateway/pkg/apperrors"
)

// ErrorBody is the error shape shared with the browser application.
type ErrorBody struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Page wraps a list response with pagination metadata.
type Page struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data"`
	Pagination interface{} `json:"pagination,omitempty"`
}

// JSON writes an arbitrary payload. Access endpoints use flat bodies such as
// {"hasAccess": true} instead of an envelope.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes {"success": true} merged with the supplied fields.
func OK(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Paged writes a list with pagination metadata.
func Paged(c *gin.Context, data interface{}, pagination interface{}) {
	c.JSON(http.StatusOK, Page{Success: true, Data: data, Pagination: pagination})
}

// Error writes an error body with the given status and client-safe message.
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorBody{Success: false, Error: message})
}

// AppError writes an AppError, including its code and field detail.
func AppError(c *gin.Context, err *apperrors.AppError) {
	c.JSON(err.StatusCode(), ErrorBody{
		Success: false,
		Error:   err.Message(),
		Code:    string(err.Code()),
		Fields:  err.Fields(),
	})
}

// ErrorWithLog writes an error response and logs the cause via slog. The cause
// never reaches the client.
func ErrorWithLog(logger *slog.Logger, c *gin.Context, status int, message string, err error) {
	if logger != nil && err != nil {
		logger.ErrorContext(c.Request.Context(), message, slog.Int("status", status), slog.String("error", err.Error()))
	}

	Error(c, status, message)
}
