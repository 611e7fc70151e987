package section

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts section endpoints.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth gin.HandlerFunc, admin []gin.HandlerFunc) {
	router.GET("/sections/accessible", auth, handler.Accessible)
	router.POST("/sections/:sectionId/activate", auth, handler.Activate)

	adminGroup := router.Group("/admin/section-access", admin...)
	adminGroup.POST("", handler.Grant)
	adminGroup.DELETE("", handler.Revoke)
}
