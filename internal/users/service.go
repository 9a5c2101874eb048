// Package users lets admins list accounts and change platform roles.
package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-seminar/backend/internal/access"
	"github.com/aura-seminar/backend/internal/apperr"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/internal/notifications"
)

// Store is the user persistence used by Service.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]models.UserPublic, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) error
}

// Notifier queues a notification without waiting for delivery.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, msg notifications.Message)
}

// Service implements admin user management.
type Service struct {
	store    Store
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates a users service.
func NewService(store Store, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, notifier: notifier, logger: logger}
}

// List returns every account. Admin only.
func (s *Service) List(ctx context.Context, actor access.Actor) ([]models.UserPublic, error) {
	if !actor.IsAdmin() {
		return nil, apperr.PermissionDenied("only admins can list users")
	}
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, apperr.Internal("list users", err)
	}
	return list, nil
}

// ChangeRole sets a user's platform role and tells them about it. A promotion is sent as
// permission_granted, anything else as role_changed. Setting the current role again is a no-op.
func (s *Service) ChangeRole(ctx context.Context, actor access.Actor, userID uuid.UUID, role models.Role) (*models.UserPublic, error) {
	if !actor.IsAdmin() {
		return nil, apperr.PermissionDenied("only admins can change roles")
	}
	if !role.Valid() {
		return nil, apperr.BadRequest("role must be admin, organizer or member")
	}
	if userID == actor.UserID {
		return nil, apperr.BadRequest("admins cannot change their own role")
	}
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	if u == nil {
		return nil, apperr.NotFound("user not found")
	}
	prev := u.Role
	if prev == role {
		pub := u.ToPublic()
		return &pub, nil
	}
	if err := s.store.UpdateRole(ctx, userID, role); err != nil {
		return nil, apperr.Internal("update role", err)
	}
	u.Role = role
	s.logger.Info("role changed",
		zap.String("user_id", userID.String()),
		zap.String("from", string(prev)),
		zap.String("to", string(role)),
		zap.String("by", actor.UserID.String()))

	kind := models.NotificationRoleChanged
	title := fmt.Sprintf("Your role is now %s", role)
	if role.Rank() > prev.Rank() {
		kind = models.NotificationPermissionGranted
		title = fmt.Sprintf("You have been granted %s access", role)
	}
	s.notifier.Notify(ctx, userID, notifications.Message{
		Kind:  kind,
		Title: title,
		Data:  map[string]string{"from": string(prev), "to": string(role)},
	})
	pub := u.ToPublic()
	return &pub, nil
}
