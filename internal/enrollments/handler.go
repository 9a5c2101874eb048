package enrollments

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-seminar/backend/internal/middleware"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/pkg/response"
)

// DecideRequest is the body for POST /enrollments/decide.
type DecideRequest struct {
	EnrollmentID string `json:"enrollmentId" binding:"required"`
	Status       string `json:"status" binding:"required"`
}

// Handler handles enrollment HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an enrollment handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Request handles POST /seminars/:id/enrollments.
func (h *Handler) Request(c *gin.Context) {
	seminarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	e, err := h.svc.Request(c.Request.Context(), middleware.CurrentActor(c).UserID, seminarID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, e)
}

// List handles GET /seminars/:id/enrollments.
func (h *Handler) List(c *gin.Context) {
	seminarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	list, err := h.svc.List(c.Request.Context(), middleware.CurrentActor(c), seminarID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Stats handles GET /seminars/:id/enrollments/stats.
func (h *Handler) Stats(c *gin.Context) {
	seminarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	st, err := h.svc.Stats(c.Request.Context(), seminarID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, st)
}

// Decide handles POST /enrollments/decide.
func (h *Handler) Decide(c *gin.Context) {
	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	id, err := uuid.Parse(req.EnrollmentID)
	if err != nil {
		response.BadRequest(c, "invalid enrollmentId")
		return
	}
	e, err := h.svc.Decide(c.Request.Context(), middleware.CurrentActor(c), id, models.EnrollmentStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}

// Cancel handles POST /enrollments/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid enrollment id")
		return
	}
	e, err := h.svc.Cancel(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}
