package capability

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the signed-url endpoints.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth gin.HandlerFunc, admin []gin.HandlerFunc) {
	router.POST("/generate-signed-url", auth, handler.Generate)
	router.POST("/verify-signed-url", auth, handler.Verify)

	adminGroup := router.Group("/admin/capabilities", admin...)
	adminGroup.POST("/revoke", handler.Revoke)
}
