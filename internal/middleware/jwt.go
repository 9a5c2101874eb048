package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-seminar/backend/internal/access"
	"github.com/aura-seminar/backend/internal/auth"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
)

// JWT returns a middleware that authenticates the bearer token and stores the caller in context.
func JWT(authn *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		actor, err := authn.Authenticate(c.Request.Context(), parts[1])
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			response.Unauthorized(c, "token expired")
			c.Abort()
			return
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrUnknownAccount):
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		case err != nil:
			_ = c.Error(err)
			response.Internal(c, "authentication failed")
			c.Abort()
			return
		}
		SetActor(c, actor)
		c.Next()
	}
}

// SetActor stores the authenticated caller in the gin context.
func SetActor(c *gin.Context, actor access.Actor) {
	c.Set(ContextUserID, actor.UserID)
	c.Set(ContextUserRole, actor.Role)
}

// CurrentActor returns the caller set by JWT. The zero Actor is returned on unauthenticated routes.
func CurrentActor(c *gin.Context) access.Actor {
	var actor access.Actor
	if v, ok := c.Get(ContextUserID); ok {
		actor.UserID, _ = v.(uuid.UUID)
	}
	if v, ok := c.Get(ContextUserRole); ok {
		actor.Role, _ = v.(models.Role)
	}
	return actor
}
