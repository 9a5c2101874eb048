package seminars

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-seminar/backend/internal/access"
	"github.com/aura-seminar/backend/internal/apperr"
	"github.com/aura-seminar/backend/internal/middleware"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/pkg/response"
)

// Store is the seminar persistence used by the handler.
type Store interface {
	Create(ctx context.Context, s *models.Seminar) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Seminar, error)
	List(ctx context.Context, ownerID *uuid.UUID) ([]models.Seminar, error)
	Update(ctx context.Context, s *models.Seminar) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateRequest is the body for POST /seminars.
type CreateRequest struct {
	Title            string  `json:"title" binding:"required"`
	Description      string  `json:"description"`
	Capacity         int     `json:"capacity" binding:"required,gt=0"`
	Status           string  `json:"status"`
	ApplicationStart *string `json:"application_start"`
	ApplicationEnd   *string `json:"application_end"`
}

// UpdateRequest is the body for PATCH /seminars/:id. Date span fields are derived and not accepted.
type UpdateRequest struct {
	Title            *string `json:"title"`
	Description      *string `json:"description"`
	Capacity         *int    `json:"capacity"`
	Status           *string `json:"status"`
	ApplicationStart *string `json:"application_start"`
	ApplicationEnd   *string `json:"application_end"`
}

// Handler handles seminar HTTP endpoints.
type Handler struct {
	repo    Store
	checker *access.Checker
	logger  *zap.Logger
}

// NewHandler creates a seminar handler.
func NewHandler(repo Store, checker *access.Checker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, checker: checker, logger: logger}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func parseOptionalTime(s *string, field string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil, apperr.BadRequest("invalid " + field)
	}
	return &t, nil
}

func validWindow(start, end *time.Time) bool {
	return start == nil || end == nil || !end.Before(*start)
}

// Create handles POST /seminars (admin or organizer). The caller becomes the owner.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	status := models.SeminarDraft
	if req.Status != "" {
		status = models.SeminarStatus(req.Status)
		if !status.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
	}
	appStart, err := parseOptionalTime(req.ApplicationStart, "application_start")
	if err != nil {
		response.Error(c, err)
		return
	}
	appEnd, err := parseOptionalTime(req.ApplicationEnd, "application_end")
	if err != nil {
		response.Error(c, err)
		return
	}
	if !validWindow(appStart, appEnd) {
		response.BadRequest(c, "application_end must not precede application_start")
		return
	}

	s := &models.Seminar{
		Title:            req.Title,
		Description:      req.Description,
		OwnerID:          middleware.CurrentActor(c).UserID,
		Capacity:         req.Capacity,
		Status:           status,
		ApplicationStart: appStart,
		ApplicationEnd:   appEnd,
	}
	if err := h.repo.Create(c.Request.Context(), s); err != nil {
		response.Error(c, apperr.Internal("create seminar", err))
		return
	}
	h.logger.Info("seminar created", zap.String("seminar_id", s.ID.String()), zap.String("owner_id", s.OwnerID.String()))
	response.Created(c, s)
}

// GetByID handles GET /seminars/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	s, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, apperr.Internal("load seminar", err))
		return
	}
	if s == nil {
		response.NotFound(c, "seminar not found")
		return
	}
	response.OK(c, s)
}

// List handles GET /seminars. Query ?mine=1 returns only seminars owned by the caller.
func (h *Handler) List(c *gin.Context) {
	var owner *uuid.UUID
	if c.Query("mine") == "1" {
		uid := middleware.CurrentActor(c).UserID
		owner = &uid
	}
	list, err := h.repo.List(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, apperr.Internal("list seminars", err))
		return
	}
	response.OK(c, list)
}

// Update handles PATCH /seminars/:id (owner or admin).
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request")
		return
	}
	s, err := h.checker.RequireManager(c.Request.Context(), middleware.CurrentActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if req.Title != nil {
		s.Title = *req.Title
	}
	if req.Description != nil {
		s.Description = *req.Description
	}
	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			response.BadRequest(c, "capacity must be positive")
			return
		}
		s.Capacity = *req.Capacity
	}
	if req.Status != nil {
		status := models.SeminarStatus(*req.Status)
		if !status.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		s.Status = status
	}
	if req.ApplicationStart != nil {
		if s.ApplicationStart, err = parseOptionalTime(req.ApplicationStart, "application_start"); err != nil {
			response.Error(c, err)
			return
		}
	}
	if req.ApplicationEnd != nil {
		if s.ApplicationEnd, err = parseOptionalTime(req.ApplicationEnd, "application_end"); err != nil {
			response.Error(c, err)
			return
		}
	}
	if !validWindow(s.ApplicationStart, s.ApplicationEnd) {
		response.BadRequest(c, "application_end must not precede application_start")
		return
	}
	if err := h.repo.Update(c.Request.Context(), s); err != nil {
		response.Error(c, apperr.Internal("update seminar", err))
		return
	}
	response.OK(c, s)
}

// Delete handles DELETE /seminars/:id (owner or admin).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	if _, err := h.checker.RequireManager(c.Request.Context(), middleware.CurrentActor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, apperr.Internal("delete seminar", err))
		return
	}
	h.logger.Info("seminar deleted", zap.String("seminar_id", id.String()))
	response.NoContent(c)
}
