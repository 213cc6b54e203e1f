package comment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"projectcomments/internal/pkg/response"
	"projectcomments/internal/session"
)

// Handler serves the comment list a composer reloads after submit.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List godoc
// @Summary List comments of a subject
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param type query string true "Subject type"
// @Param type_id query string true "Subject id"
// @Success 200 {object} map[string]interface{}
// @Failure 400,401,500 {object} map[string]interface{}
// @Router /comments [get]
func (h *Handler) List(c *gin.Context) {
	sess, err := session.From(c)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	comments, err := h.service.ListBySubject(c.Request.Context(), sess.AccountID, c.Query("type"), c.Query("type_id"))
	if err != nil {
		if errors.Is(err, ErrMissingSubject) {
			response.Error(c, http.StatusBadRequest, "INVALID_SUBJECT", err.Error())
			return
		}
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list comments")
		return
	}
	response.OK(c, gin.H{"items": comments, "total": len(comments)})
}
