package notifications

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-seminar/backend/internal/access"
	"github.com/aura-seminar/backend/internal/apperr"
	"github.com/aura-seminar/backend/internal/middleware"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/pkg/response"
)

const (
	defaultInboxLimit = 50
	maxInboxLimit     = 200
)

// Inbox reads and updates a user's notifications.
type Inbox interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

// Audience lists the approved members of a seminar.
type Audience interface {
	ListApprovedUserIDs(ctx context.Context, seminarID uuid.UUID) ([]uuid.UUID, error)
}

// Notifier is implemented by Dispatcher.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, msg Message)
	NotifyBulk(ctx context.Context, userIDs []uuid.UUID, msg Message)
}

// AnnouncementRequest is the body for POST /seminars/:id/announcements.
type AnnouncementRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
}

// Handler serves the inbox and seminar announcements.
type Handler struct {
	inbox    Inbox
	audience Audience
	notifier Notifier
	checker  *access.Checker
	logger   *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(inbox Inbox, audience Audience, notifier Notifier, checker *access.Checker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{inbox: inbox, audience: audience, notifier: notifier, checker: checker, logger: logger}
}

// List handles GET /notifications?limit=.
func (h *Handler) List(c *gin.Context) {
	limit := defaultInboxLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		if n > maxInboxLimit {
			n = maxInboxLimit
		}
		limit = n
	}
	list, err := h.inbox.ListByUser(c.Request.Context(), middleware.CurrentActor(c).UserID, limit)
	if err != nil {
		response.Error(c, apperr.Internal("list notifications", err))
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	response.OK(c, list)
}

// MarkRead handles PATCH /notifications/:id/read.
func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid notification id")
		return
	}
	ok, err := h.inbox.MarkRead(c.Request.Context(), id, middleware.CurrentActor(c).UserID)
	if err != nil {
		response.Error(c, apperr.Internal("mark notification read", err))
		return
	}
	if !ok {
		response.NotFound(c, "notification not found")
		return
	}
	response.NoContent(c)
}

// Announce handles POST /seminars/:id/announcements: one notification to every approved member.
func (h *Handler) Announce(c *gin.Context) {
	seminarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid seminar id")
		return
	}
	var req AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	sem, err := h.checker.RequireManager(ctx, middleware.CurrentActor(c), seminarID)
	if err != nil {
		response.Error(c, err)
		return
	}
	ids, err := h.audience.ListApprovedUserIDs(ctx, seminarID)
	if err != nil {
		response.Error(c, apperr.Internal("list seminar members", err))
		return
	}
	h.notifier.NotifyBulk(ctx, ids, Message{
		Kind:  models.NotificationAnnouncement,
		Title: req.Title,
		Body:  req.Body,
		Data:  map[string]string{"seminar_id": sem.ID.String(), "seminar_title": sem.Title},
	})
	h.logger.Info("announcement queued", zap.String("seminar_id", seminarID.String()), zap.Int("recipients", len(ids)))
	response.Accepted(c, gin.H{"recipients": len(ids)})
}
