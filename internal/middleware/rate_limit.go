package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-seminar/backend/pkg/response"
)

// Limiter counts hits per key inside a window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit bounds requests per caller (user ID when authenticated, client IP otherwise) on a route.
// A nil limiter or a limiter error lets the request through.
func RateLimit(limiter Limiter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}
		who := c.ClientIP()
		if actor := CurrentActor(c); actor.UserID != uuid.Nil {
			who = actor.UserID.String()
		}
		key := fmt.Sprintf("%s:%s", c.FullPath(), who)
		allowed, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			_ = c.Error(err)
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			response.TooManyRequests(c, "too many attempts, try again shortly")
			c.Abort()
			return
		}
		c.Next()
	}
}
