package subject

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts subject endpoints.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth gin.HandlerFunc) {
	router.POST("/subjects/:subjectId/activate", auth, handler.Activate)
}
