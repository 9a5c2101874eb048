package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-seminar/backend/internal/access"
	"github.com/aura-seminar/backend/internal/memstore"
	"github.com/aura-seminar/backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBus struct {
	mu        sync.Mutex
	handlers  map[uuid.UUID]func(string, []byte)
	published int
}

func newFakeBus() *fakeBus { return &fakeBus{handlers: make(map[uuid.UUID]func(string, []byte))} }

func (b *fakeBus) PublishSessionEvent(_ context.Context, sessionID uuid.UUID, event string, payload []byte) error {
	b.mu.Lock()
	b.published++
	h := b.handlers[sessionID]
	b.mu.Unlock()
	if h != nil {
		h(event, payload)
	}
	return nil
}

func (b *fakeBus) SubscribeSession(sessionID uuid.UUID, handler func(string, []byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[sessionID] = handler
	return func() {
		b.mu.Lock()
		delete(b.handlers, sessionID)
		b.mu.Unlock()
	}, nil
}

func newTestClient(hub *Hub, sessionID uuid.UUID) *Client {
	return &Client{ID: uuid.NewString(), SessionID: sessionID, hub: hub, send: make(chan WSMessage, 8)}
}

func next(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case m := <-c.send:
		return m
	case <-time.After(time.Second):
		t.Fatal("no message")
		return WSMessage{}
	}
}

func TestPublishCheckInLocal(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	sessionID := uuid.New()
	c := newTestClient(hub, sessionID)
	other := newTestClient(hub, uuid.New())
	hub.Register(c)
	hub.Register(other)

	assert.Equal(t, EventViewers, next(t, c).Event)
	assert.Equal(t, EventViewers, next(t, other).Event)
	assert.Equal(t, 1, hub.ViewerCount(sessionID))

	userID := uuid.New()
	hub.PublishCheckIn(context.Background(), models.Attendance{UserID: userID, SessionID: sessionID, Status: models.AttendancePresent, CheckedAt: time.Now()})

	m := next(t, c)
	require.Equal(t, EventCheckIn, m.Event)
	var ev CheckInEvent
	require.NoError(t, json.Unmarshal(m.Data, &ev))
	assert.Equal(t, userID, ev.UserID)
	assert.Equal(t, models.AttendancePresent, ev.Status)
	assert.Empty(t, other.send)

	hub.Unregister(c)
	assert.Equal(t, 0, hub.ViewerCount(sessionID))
}

func TestPublishCheckInThroughRedisDeliversOnce(t *testing.T) {
	bus := newFakeBus()
	hub := NewHub(nil, bus, bus)
	sessionID := uuid.New()
	c := newTestClient(hub, sessionID)
	hub.Register(c)
	next(t, c)

	hub.PublishCheckIn(context.Background(), models.Attendance{UserID: uuid.New(), SessionID: sessionID, Status: models.AttendancePresent})
	assert.Equal(t, EventCheckIn, next(t, c).Event)
	assert.Empty(t, c.send)
	assert.Equal(t, 1, bus.published)

	hub.Unregister(c)
	bus.mu.Lock()
	assert.Empty(t, bus.handlers)
	bus.mu.Unlock()
}

func TestServeWsBoard(t *testing.T) {
	store := memstore.New()
	owner := access.Actor{UserID: uuid.New(), Role: models.RoleOrganizer}
	member := access.Actor{UserID: uuid.New(), Role: models.RoleMember}
	sem := store.Seminars.Add(models.Seminar{Title: "Live", OwnerID: owner.UserID, Capacity: 5})
	sess := store.Sessions.Add(models.Session{SeminarID: sem.ID, Sequence: 1, ScheduledAt: time.Now()})

	validate := func(_ context.Context, token string) (access.Actor, error) {
		switch token {
		case "owner":
			return owner, nil
		case "member":
			return member, nil
		}
		return access.Actor{}, errors.New("bad token")
	}
	hub := NewHub(nil, nil, nil)
	r := gin.New()
	r.GET("/ws/sessions/:id", ServeWs(hub, NewGuard(store.Sessions, store.Seminars), validate, nil))
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/sessions/" + sess.ID.String()

	_, resp, err := websocket.DefaultDialer.Dial(base+"?token=member", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?token=nope", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+"?token=owner", nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventViewers, msg.Event)

	hub.PublishCheckIn(context.Background(), models.Attendance{UserID: member.UserID, SessionID: sess.ID, Status: models.AttendancePresent, CheckedAt: time.Now()})
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, EventCheckIn, msg.Event)
	assert.Contains(t, string(msg.Data), member.UserID.String())
}
