package users

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-seminar/backend/internal/access"
	"github.com/aura-seminar/backend/internal/apperr"
	"github.com/aura-seminar/backend/internal/memstore"
	"github.com/aura-seminar/backend/internal/middleware"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/internal/notifications"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type sent struct {
	userID uuid.UUID
	msg    notifications.Message
}

type recordingNotifier struct{ sent []sent }

func (n *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, msg notifications.Message) {
	n.sent = append(n.sent, sent{userID, msg})
}

var admin = access.Actor{UserID: uuid.New(), Role: models.RoleAdmin}

func TestChangeRoleNotificationKind(t *testing.T) {
	store := memstore.New()
	n := &recordingNotifier{}
	svc := NewService(store.Users, n, nil)
	ctx := context.Background()
	u := store.Users.Add(models.User{Email: "kim@example.com", FullName: "Kim", Role: models.RoleMember})

	got, err := svc.ChangeRole(ctx, admin, u.ID, models.RoleOrganizer)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOrganizer, got.Role)
	require.Len(t, n.sent, 1)
	assert.Equal(t, u.ID, n.sent[0].userID)
	assert.Equal(t, models.NotificationPermissionGranted, n.sent[0].msg.Kind)

	_, err = svc.ChangeRole(ctx, admin, u.ID, models.RoleMember)
	require.NoError(t, err)
	require.Len(t, n.sent, 2)
	assert.Equal(t, models.NotificationRoleChanged, n.sent[1].msg.Kind)

	stored, _ := store.Users.GetByID(ctx, u.ID)
	assert.Equal(t, models.RoleMember, stored.Role)

	_, err = svc.ChangeRole(ctx, admin, u.ID, models.RoleMember)
	require.NoError(t, err)
	assert.Len(t, n.sent, 2)
}

func TestChangeRoleRejections(t *testing.T) {
	store := memstore.New()
	n := &recordingNotifier{}
	svc := NewService(store.Users, n, nil)
	ctx := context.Background()
	u := store.Users.Add(models.User{Email: "lee@example.com", Role: models.RoleMember})

	_, err := svc.ChangeRole(ctx, access.Actor{UserID: uuid.New(), Role: models.RoleOrganizer}, u.ID, models.RoleAdmin)
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))

	_, err = svc.ChangeRole(ctx, admin, u.ID, "owner")
	assert.True(t, errors.Is(err, apperr.ErrBadRequest))

	_, err = svc.ChangeRole(ctx, admin, admin.UserID, models.RoleMember)
	assert.True(t, errors.Is(err, apperr.ErrBadRequest))

	_, err = svc.ChangeRole(ctx, admin, uuid.New(), models.RoleOrganizer)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	assert.Empty(t, n.sent)
}

func TestEndpoints(t *testing.T) {
	store := memstore.New()
	u := store.Users.Add(models.User{Email: "max@example.com", FullName: "Max", Role: models.RoleMember})
	h := NewHandler(NewService(store.Users, &recordingNotifier{}, nil))

	route := func(actor access.Actor) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) { middleware.SetActor(c, actor) })
		r.GET("/users", h.List)
		r.PATCH("/users/:id/role", h.ChangeRole)
		return r
	}

	w := httptest.NewRecorder()
	route(admin).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "max@example.com")

	w = httptest.NewRecorder()
	route(admin).ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/users/"+u.ID.String()+"/role", strings.NewReader(`{"role":"admin"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)

	w = httptest.NewRecorder()
	route(access.Actor{UserID: u.ID, Role: models.RoleMember}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
