package resource

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"projectcomments/internal/pkg/response"
	"projectcomments/internal/session"
)

// Handler exposes stored attachments for reading.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List godoc
// @Summary List resources below a path
// @Tags Resources
// @Produce json
// @Security BearerAuth
// @Param path query string false "Path prefix"
// @Success 200 {object} map[string]interface{}
// @Failure 400,401,500 {object} map[string]interface{}
// @Router /resources [get]
func (h *Handler) List(c *gin.Context) {
	sess, err := session.From(c)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	items, err := h.service.List(c.Request.Context(), sess.AccountID, c.Query("path"))
	if err != nil {
		if errors.Is(err, ErrInvalidPath) {
			response.Error(c, http.StatusBadRequest, "INVALID_PATH", err.Error())
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list resources")
		return
	}
	response.OK(c, gin.H{"items": items, "total": len(items)})
}

// Download godoc
// @Summary Download a resource
// @Tags Resources
// @Produce octet-stream
// @Security BearerAuth
// @Param path query string true "Resource path"
// @Success 200 {file} binary
// @Failure 400,401,404,500 {object} map[string]interface{}
// @Router /resources/content [get]
func (h *Handler) Download(c *gin.Context) {
	sess, err := session.From(c)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	res, f, err := h.service.Open(c.Request.Context(), sess.AccountID, c.Query("path"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPath):
			response.Error(c, http.StatusBadRequest, "INVALID_PATH", err.Error())
		case errors.Is(err, ErrResourceNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "resource not found")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to open resource")
		}
		return
	}
	defer f.Close()

	c.DataFromReader(http.StatusOK, res.Size, res.MimeType, f, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", res.Name),
	})
}
