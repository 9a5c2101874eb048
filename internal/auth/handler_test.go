package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-seminar/backend/internal/memstore"
	"github.com/aura-seminar/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(users *memstore.Users, tokens *TokenService) *gin.Engine {
	h := NewHandler(users, tokens, nil)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterCreatesMember(t *testing.T) {
	users := memstore.New().Users
	tokens := NewTokenService("secret", time.Hour)
	r := newRouter(users, tokens)

	w := post(r, "/auth/register", `{"email":"ana@example.com","password":"hunter22","full_name":"Ana"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.RoleMember, body.Data.User.Role)

	claims, err := tokens.Parse(body.Data.Token)
	require.NoError(t, err)
	actor, err := claims.Actor()
	require.NoError(t, err)
	assert.Equal(t, body.Data.User.ID, actor.UserID)
	assert.Equal(t, models.RoleMember, actor.Role)

	w = post(r, "/auth/register", `{"email":"ANA@example.com","password":"hunter22","full_name":"Ana Again"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	r := newRouter(memstore.New().Users, NewTokenService("secret", time.Hour))
	w := post(r, "/auth/register", `{"email":"not-an-email","password":"hunter22","full_name":"X"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = post(r, "/auth/register", `{"email":"x@example.com","password":"123","full_name":"X"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = post(r, "/auth/register", `{"email":"x@example.com","password":"`+strings.Repeat("p", 73)+`","full_name":"X"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "password must be")
}

func TestLogin(t *testing.T) {
	users := memstore.New().Users
	r := newRouter(users, NewTokenService("secret", time.Hour))
	require.Equal(t, http.StatusCreated, post(r, "/auth/register", `{"email":"bo@example.com","password":"correct-horse","full_name":"Bo"}`).Code)

	assert.Equal(t, http.StatusOK, post(r, "/auth/login", `{"email":"bo@example.com","password":"correct-horse"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(r, "/auth/login", `{"email":"bo@example.com","password":"wrong"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(r, "/auth/login", `{"email":"nobody@example.com","password":"x"}`).Code)
}

func TestParseRejectsForeignSecret(t *testing.T) {
	token, err := NewTokenService("one", time.Hour).Issue(&models.User{ID: uuid.New(), Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = NewTokenService("two", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseReportsExpiry(t *testing.T) {
	tokens := NewTokenService("secret", time.Hour)
	issued := time.Date(2025, 5, 12, 10, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }
	token, err := tokens.Issue(&models.User{ID: uuid.New(), Role: models.RoleMember})
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(59 * time.Minute) }
	_, err = tokens.Parse(token)
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(61 * time.Minute) }
	_, err = tokens.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateUsesStoredRole(t *testing.T) {
	ctx := context.Background()
	users := memstore.New().Users
	admin := users.Add(models.User{Email: "root@example.com", FullName: "Root", Role: models.RoleAdmin})
	tokens := NewTokenService("secret", time.Hour)
	token, err := tokens.Issue(admin)
	require.NoError(t, err)
	authn := NewAuthenticator(tokens, users)

	actor, err := authn.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.True(t, actor.IsAdmin())

	require.NoError(t, users.UpdateRole(ctx, admin.ID, models.RoleMember))
	actor, err = authn.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, actor.Role)

	ghost, err := tokens.Issue(&models.User{ID: uuid.New(), Role: models.RoleAdmin})
	require.NoError(t, err)
	_, err = authn.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, ErrUnknownAccount)
}
