package comment

import "github.com/gin-gonic/gin"

// RegisterRoutes registers comment routes under the protected group.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	r.GET("/comments", h.List)
}
