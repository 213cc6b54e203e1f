package resource

import "github.com/gin-gonic/gin"

// RegisterRoutes registers resource routes under the protected group.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	resources := r.Group("/resources")
	{
		resources.GET("", h.List)
		resources.GET("/content", h.Download)
	}
}
