package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/mo-amir99/lms-access-gateway/pkg/response"
)

// Recovery recovers from panics and logs them with stack traces. The client
// gets a generic 500; panic values never leave the process.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetRequestID(c)

				logger.ErrorContext(c.Request.Context(),
					"panic recovered",
					slog.String("request_id", requestID),
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("client_ip", c.ClientIP()),
					slog.Any("error", err),
					slog.String("stack", string(debug.Stack())),
				)

				if !c.Writer.Written() {
					response.Error(c, http.StatusInternalServerError, "Internal server error")
				}
				c.Abort()
			}
		}()

		c.Next()
	}
}
