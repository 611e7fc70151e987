package access

import "github.com/gin-gonic/gin"

// RegisterRoutes attaches access-check endpoints to the router.
func RegisterRoutes(router *gin.RouterGroup, handler *Handler, auth gin.HandlerFunc) {
	router.POST("/verify-access", auth, handler.VerifyAccess)
	router.GET("/sections/:sectionId/access", auth, handler.SectionStatus)
	router.GET("/subjects/:subjectId/access", auth, handler.SubjectStatus)
}
