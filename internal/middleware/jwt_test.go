package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-seminar/backend/internal/auth"
	"github.com/aura-seminar/backend/internal/memstore"
	"github.com/aura-seminar/backend/internal/models"
)

func adminRouter(authn *auth.Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(JWT(authn))
	r.GET("/users", RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentActor(c).UserID.String())
	})
	return r
}

func get(r http.Handler, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTDemotedAdminLosesAccess(t *testing.T) {
	users := memstore.New().Users
	admin := users.Add(models.User{Email: "root@example.com", FullName: "Root", Role: models.RoleAdmin})
	tokens := auth.NewTokenService("secret", time.Hour)
	token, err := tokens.Issue(admin)
	require.NoError(t, err)
	r := adminRouter(auth.NewAuthenticator(tokens, users))

	w := get(r, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, admin.ID.String(), w.Body.String())

	require.NoError(t, users.UpdateRole(context.Background(), admin.ID, models.RoleOrganizer))
	assert.Equal(t, http.StatusForbidden, get(r, token).Code)
}

func TestJWTRejections(t *testing.T) {
	users := memstore.New().Users
	tokens := auth.NewTokenService("secret", -time.Minute)
	r := adminRouter(auth.NewAuthenticator(tokens, users))

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "not-a-token").Code)

	expired, err := tokens.Issue(users.Add(models.User{Email: "a@example.com", Role: models.RoleAdmin}))
	require.NoError(t, err)
	w := get(r, expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token expired")

	live := auth.NewTokenService("secret", time.Hour)
	ghost, err := live.Issue(&models.User{ID: uuid.New(), Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(adminRouter(auth.NewAuthenticator(live, users)), ghost).Code)
}
