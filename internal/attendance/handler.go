package attendance

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-seminar/backend/internal/middleware"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/pkg/response"
)

// SetRequest is the body for POST /sessions/:id/attendance.
type SetRequest struct {
	UserID string `json:"userId" binding:"required"`
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// Handler handles attendance HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an attendance handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Set handles POST /sessions/:id/attendance.
func (h *Handler) Set(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req SetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.BadRequest(c, "invalid userId")
		return
	}
	a, err := h.svc.Set(c.Request.Context(), middleware.CurrentActor(c), sessionID, SetInput{
		UserID: userID,
		Status: models.AttendanceStatus(req.Status),
		Notes:  req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}

// List handles GET /sessions/:id/attendance.
func (h *Handler) List(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	list, err := h.svc.ListBySession(c.Request.Context(), middleware.CurrentActor(c), sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Export handles POST /seminars/:id/attendance/export.
func (h *Handler) Export(c *gin.Context) {
	seminarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	res, err := h.svc.Export(c.Request.Context(), middleware.CurrentActor(c), seminarID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}
