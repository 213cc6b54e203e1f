package composer

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projectcomments/internal/pkg/response"
	"projectcomments/internal/pkg/validator"
	"projectcomments/internal/session"
)

// Handler exposes composers over HTTP and websocket.
type Handler struct {
	registry *Registry
	receiver *Receiver
	hub      *Hub
	logger   *zap.Logger
}

func NewHandler(registry *Registry, receiver *Receiver, hub *Hub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{registry: registry, receiver: receiver, hub: hub, logger: logger}
}

// Create godoc
// @Summary Open a comment composer on a project subject
// @Tags Composers
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param projectId path int true "Project ID"
// @Param body body createComposerRequest true "Subject"
// @Success 201 {object} map[string]interface{}
// @Failure 400,401 {object} map[string]interface{}
// @Router /projects/{projectId}/composers [post]
func (h *Handler) Create(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	projectID, err := strconv.ParseInt(c.Param("projectId"), 10, 64)
	if err != nil || projectID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_PROJECT_ID", "Invalid project ID")
		return
	}

	var req createComposerRequest
	if !bindJSON(c, &req) {
		return
	}

	comp := h.registry.Create(sess, Options{
		ProjectID:   projectID,
		SubjectType: req.Type,
		SubjectID:   req.TypeID,
		ExtraTypeID: req.ExtraTypeID,
	})
	response.Created(c, comp.Snapshot(sess.Locale))
}

// Get godoc
// @Summary Composer state
// @Tags Composers
// @Security BearerAuth
// @Produce json
// @Param id path string true "Composer ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403,404 {object} map[string]interface{}
// @Router /composers/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	sess, comp, ok := h.load(c)
	if !ok {
		return
	}
	response.OK(c, comp.Snapshot(sess.Locale))
}

// SetSubject godoc
// @Summary Bind the composer to a subject id
// @Tags Composers
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Composer ID"
// @Param body body setSubjectRequest true "Subject id"
// @Success 200 {object} map[string]interface{}
// @Router /composers/{id}/subject [put]
func (h *Handler) SetSubject(c *gin.Context) {
	sess, comp, ok := h.load(c)
	if !ok {
		return
	}
	var req setSubjectRequest
	if !bindJSON(c, &req) {
		return
	}
	comp.SetSubjectID(req.TypeID)
	response.OK(c, comp.Snapshot(sess.Locale))
}

// SetText godoc
// @Summary Replace the composer text
// @Tags Composers
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Composer ID"
// @Param body body setTextRequest true "Text"
// @Success 200 {object} map[string]interface{}
// @Router /composers/{id}/text [put]
func (h *Handler) SetText(c *gin.Context) {
	_, comp, ok := h.load(c)
	if !ok {
		return
	}
	var req setTextRequest
	if !bindJSON(c, &req) {
		return
	}
	comp.SetText(req.Text)
	response.OK(c, gin.H{"text": comp.Text()})
}

// Upload godoc
// @Summary Stream attachments into the composer
// @Description Optional "manifest" field (JSON [{name,size,mime_type}]) first, then one or more "files" parts.
// @Tags Composers
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Composer ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400,413 {object} map[string]interface{}
// @Router /composers/{id}/uploads [post]
func (h *Handler) Upload(c *gin.Context) {
	sess, comp, ok := h.load(c)
	if !ok {
		return
	}
	mr, err := c.Request.MultipartReader()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_MULTIPART", "multipart/form-data body required")
		return
	}

	res, err := h.receiver.Receive(c.Request.Context(), mr, comp)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoFiles):
			response.Error(c, http.StatusBadRequest, "NO_FILES", err.Error())
		case errors.Is(err, ErrInvalidManifest):
			response.Error(c, http.StatusBadRequest, "INVALID_MANIFEST", err.Error())
		default:
			h.logger.Warn("upload aborted", zap.String("composer_id", comp.ID()), zap.Error(err))
			response.ErrorWithDetails(c, http.StatusBadRequest, "UPLOAD_ABORTED", "upload aborted", res)
		}
		return
	}
	response.OK(c, gin.H{"result": res, "composer": comp.Snapshot(sess.Locale)})
}

// RemoveAttachment godoc
// @Summary Remove an attachment or failure row
// @Tags Composers
// @Security BearerAuth
// @Produce json
// @Param id path string true "Composer ID"
// @Param rowId path string true "Status row ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /composers/{id}/attachments/{rowId} [delete]
func (h *Handler) RemoveAttachment(c *gin.Context) {
	sess, comp, ok := h.load(c)
	if !ok {
		return
	}
	if err := comp.RemoveAttachment(c.Param("rowId")); err != nil {
		handleComposerError(c, err)
		return
	}
	response.OK(c, comp.Snapshot(sess.Locale))
}

// Submit godoc
// @Summary Save the comment and its attachments
// @Tags Composers
// @Security BearerAuth
// @Produce json
// @Param id path string true "Composer ID"
// @Success 201 {object} map[string]interface{}
// @Failure 409,500 {object} map[string]interface{}
// @Router /composers/{id}/submit [post]
func (h *Handler) Submit(c *gin.Context) {
	sess, comp, ok := h.load(c)
	if !ok {
		return
	}
	res, err := comp.Submit(c.Request.Context(), sess)
	if err != nil {
		handleComposerError(c, err)
		return
	}
	response.Created(c, res)
}

// Discard godoc
// @Summary Close a composer and drop its pending files
// @Tags Composers
// @Security BearerAuth
// @Produce json
// @Param id path string true "Composer ID"
// @Success 200 {object} map[string]interface{}
// @Router /composers/{id} [delete]
func (h *Handler) Discard(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}
	if err := h.registry.Remove(c.Param("id"), sess); err != nil {
		handleComposerError(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Composer discarded"})
}

// WebSocket streams composer events.
// Endpoint: GET /ws/composers/:id?token=JWT
func (h *Handler) WebSocket(c *gin.Context) {
	sess, comp, ok := h.load(c)
	if !ok {
		return
	}
	conn, err := h.hub.Upgrade(c.Writer, c.Request)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.hub.ServeWS(conn, sess.Username, comp.ID())
}

func (h *Handler) load(c *gin.Context) (session.Context, *Composer, bool) {
	sess, ok := mustSession(c)
	if !ok {
		return sess, nil, false
	}
	comp, err := h.registry.Get(c.Param("id"), sess)
	if err != nil {
		handleComposerError(c, err)
		return sess, nil, false
	}
	return sess, comp, true
}

func mustSession(c *gin.Context) (session.Context, bool) {
	sess, err := session.From(c)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return sess, false
	}
	return sess, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", errs)
		return false
	}
	return true
}

func handleComposerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrComposerNotFound):
		response.Error(c, http.StatusNotFound, "COMPOSER_NOT_FOUND", err.Error())
	case errors.Is(err, ErrNotOwner):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, ErrRowNotFound):
		response.Error(c, http.StatusNotFound, "ROW_NOT_FOUND", err.Error())
	case errors.Is(err, ErrSubjectNotSet):
		response.Error(c, http.StatusConflict, "SUBJECT_NOT_SET", err.Error())
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}
