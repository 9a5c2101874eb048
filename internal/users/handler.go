package users

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-seminar/backend/internal/middleware"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/pkg/response"
)

// ChangeRoleRequest is the body for PATCH /users/:id/role.
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// Handler handles user management HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a users handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /users.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), middleware.CurrentActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// ChangeRole handles PATCH /users/:id/role.
func (h *Handler) ChangeRole(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	u, err := h.svc.ChangeRole(c.Request.Context(), middleware.CurrentActor(c), userID, models.Role(req.Role))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, u)
}
