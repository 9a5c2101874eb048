// Package access centralises the "owner or admin" check used by every manager-gated operation.
package access

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-seminar/backend/internal/apperr"
	"github.com/aura-seminar/backend/internal/models"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uuid.UUID
	Role   models.Role
}

// IsAdmin reports whether the actor holds the platform admin role.
func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// SeminarLookup loads a seminar; it returns (nil, nil) when none exists.
type SeminarLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Seminar, error)
}

// Checker answers manager-permission questions for seminars.
type Checker struct {
	seminars SeminarLookup
}

// NewChecker creates a Checker.
func NewChecker(seminars SeminarLookup) *Checker {
	return &Checker{seminars: seminars}
}

// CanManage reports whether actor owns the seminar or is an admin.
func (c *Checker) CanManage(ctx context.Context, actor Actor, seminarID uuid.UUID) (bool, error) {
	s, err := c.load(ctx, seminarID)
	if err != nil {
		return false, err
	}
	return canManage(actor, s), nil
}

// RequireManager returns the seminar when actor may manage it, PermissionDenied otherwise.
func (c *Checker) RequireManager(ctx context.Context, actor Actor, seminarID uuid.UUID) (*models.Seminar, error) {
	s, err := c.load(ctx, seminarID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, s) {
		return nil, apperr.PermissionDenied("only the seminar owner or an admin can do this")
	}
	return s, nil
}

func (c *Checker) load(ctx context.Context, seminarID uuid.UUID) (*models.Seminar, error) {
	s, err := c.seminars.GetByID(ctx, seminarID)
	if err != nil {
		return nil, apperr.Internal("load seminar", err)
	}
	if s == nil {
		return nil, apperr.NotFound("seminar not found")
	}
	return s, nil
}

func canManage(actor Actor, s *models.Seminar) bool {
	return actor.IsAdmin() || (actor.UserID != uuid.Nil && actor.UserID == s.OwnerID)
}
