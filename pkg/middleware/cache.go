package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// CacheControl marks responses under the given prefixes as uncacheable.
// Access decisions and capabilities are per-user and must never be reused.
func CacheControl(prefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		for _, prefix := range prefixes {
			if strings.HasPrefix(path, prefix) {
				c.Header("Cache-Control", "no-store, no-cache, must-revalidate, private")
				c.Header("Pragma", "no-cache")
				c.Header("Expires", "0")
				break
			}
		}

		c.Next()
	}
}
