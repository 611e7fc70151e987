package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs failed requests at warn/error and everything else at debug.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		attrs := []slog.Attr{
			slog.String("request_id", GetRequestID(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			logger.LogAttrs(ctx, slog.LevelError, "http_request_error", attrs...)
		case status >= 400:
			logger.LogAttrs(ctx, slog.LevelWarn, "http_request_warning", append(attrs, slog.String("client_ip", c.ClientIP()))...)
		default:
			logger.LogAttrs(ctx, slog.LevelDebug, "http_request", attrs...)
		}
	}
}
