package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization"
)

// corsPolicy is the parsed CORS_ALLOWED_ORIGINS setting.
type corsPolicy struct {
	any     bool
	origins map[string]bool
}

func parseCORSPolicy(s string) corsPolicy {
	p := corsPolicy{origins: make(map[string]bool)}
	for _, o := range strings.Split(s, ",") {
		switch o = strings.TrimSpace(o); o {
		case "":
		case "*":
			p.any = true
		default:
			p.origins[strings.TrimSuffix(o, "/")] = true
		}
	}
	if len(p.origins) == 0 {
		p.any = true
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or "" when it is refused.
func (p corsPolicy) allowOrigin(origin string) string {
	switch {
	case p.any:
		return "*"
	case origin != "" && p.origins[origin]:
		return origin
	}
	return ""
}

// CORS lets the attendee web app call the API. allowedOrigins is "*" or a comma-separated list
// such as "https://seminars.example.com,http://localhost:3000". Preflights from other origins get 403.
// Retry-After is exposed so the app can read verify rate-limit responses.
func CORS(allowedOrigins string) gin.HandlerFunc {
	policy := parseCORSPolicy(allowedOrigins)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allow := policy.allowOrigin(origin)
		if !policy.any {
			c.Header("Vary", "Origin")
		}
		if allow != "" {
			c.Header("Access-Control-Allow-Origin", allow)
			c.Header("Access-Control-Expose-Headers", "Retry-After")
		}

		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""
		if !preflight {
			c.Next()
			return
		}
		if allow == "" {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Header("Access-Control-Allow-Methods", corsMethods)
		c.Header("Access-Control-Allow-Headers", corsHeaders)
		c.Header("Access-Control-Max-Age", "86400")
		c.AbortWithStatus(http.StatusNoContent)
	}
}
