package profile

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts profile endpoints.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth gin.HandlerFunc, admin []gin.HandlerFunc) {
	router.GET("/profile", auth, handler.Me)

	adminGroup := router.Group("/admin/profiles", admin...)
	adminGroup.GET("", handler.List)
	adminGroup.PATCH("/:userId/role", handler.SetRole)
}
