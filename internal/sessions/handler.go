package sessions

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-seminar/backend/internal/middleware"
	"github.com/aura-seminar/backend/pkg/response"
)

// CreateRequest is the body for POST /seminars/:id/sessions.
type CreateRequest struct {
	Sequence        int       `json:"sequence"`
	ScheduledAt     time.Time `json:"scheduled_at" binding:"required"`
	DurationMinutes int       `json:"duration_minutes"`
	Location        string    `json:"location"`
}

// UpdateRequest is the body for PATCH /sessions/:id.
type UpdateRequest struct {
	Sequence        *int       `json:"sequence"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	DurationMinutes *int       `json:"duration_minutes"`
	Location        *string    `json:"location"`
}

// Handler handles session HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a session handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /seminars/:id/sessions.
func (h *Handler) List(c *gin.Context) {
	seminarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	list, err := h.svc.List(c.Request.Context(), seminarID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /seminars/:id/sessions.
func (h *Handler) Create(c *gin.Context) {
	seminarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sess, err := h.svc.Create(c.Request.Context(), middleware.CurrentActor(c), seminarID, Input{
		Sequence:        req.Sequence,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: req.DurationMinutes,
		Location:        req.Location,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sess)
}

// Get handles GET /sessions/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	sess, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sess)
}

// Update handles PATCH /sessions/:id.
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	sess, err := h.svc.Update(c.Request.Context(), middleware.CurrentActor(c), id, Patch(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sess)
}

// Delete handles DELETE /sessions/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
