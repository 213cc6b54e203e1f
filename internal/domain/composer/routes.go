package composer

import "github.com/gin-gonic/gin"

// RegisterRoutes registers composer routes under the protected group.
// uploadLimit guards the upload endpoint.
func RegisterRoutes(r *gin.RouterGroup, h *Handler, uploadLimit gin.HandlerFunc) {
	r.POST("/projects/:projectId/composers", h.Create)

	composers := r.Group("/composers")
	{
		composers.GET("/:id", h.Get)
		composers.PUT("/:id/subject", h.SetSubject)
		composers.PUT("/:id/text", h.SetText)
		composers.POST("/:id/uploads", uploadLimit, h.Upload)
		composers.DELETE("/:id/attachments/:rowId", h.RemoveAttachment)
		composers.POST("/:id/submit", h.Submit)
		composers.DELETE("/:id", h.Discard)
	}

	r.GET("/ws/composers/:id", h.WebSocket)
}
