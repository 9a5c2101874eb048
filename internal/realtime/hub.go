// Package realtime streams live check-ins to managers watching a session's board.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-seminar/backend/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	EventCheckIn = "check_in"
	EventViewers = "viewers"
)

// CheckInEvent is broadcast to a session's board for every successful verification.
type CheckInEvent struct {
	UserID    uuid.UUID               `json:"user_id"`
	SessionID uuid.UUID               `json:"session_id"`
	Status    models.AttendanceStatus `json:"status"`
	CheckedAt int64                   `json:"checked_at"`
}

// Hub maintains session_id -> set of board connections.
// With Redis configured, events go through pub/sub so every instance's viewers see them.
type Hub struct {
	// sessionID -> map[clientID]*Client
	sessions map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per session
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishSessionEvent(ctx context.Context, sessionID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to session channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeSession(sessionID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. Both Redis arguments may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		sessions: make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to a session board. Starts the Redis subscription for the session if first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.sessions[c.SessionID] == nil {
		h.sessions[c.SessionID] = make(map[string]*Client)
		if h.redisSub != nil {
			sessionID := c.SessionID
			cancel, err := h.redisSub.SubscribeSession(sessionID, func(event string, payload []byte) {
				h.Broadcast(sessionID, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("board subscribe failed", zap.String("session_id", sessionID.String()), zap.Error(err))
			} else {
				h.subs[sessionID] = cancel
			}
		}
	}
	h.sessions[c.SessionID][c.ID] = c
	count := len(h.sessions[c.SessionID])
	h.mu.Unlock()
	h.Broadcast(c.SessionID, EventViewers, map[string]int{"count": count})
	h.logger.Debug("board viewer joined", zap.String("client_id", c.ID), zap.String("session_id", c.SessionID.String()))
}

// Unregister removes a client. Cancels the Redis subscription when the last viewer leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	var count int
	if m, ok := h.sessions[c.SessionID]; ok {
		if _, present := m[c.ID]; present {
			delete(m, c.ID)
			close(c.send)
		}
		count = len(m)
		if count == 0 {
			delete(h.sessions, c.SessionID)
			if cancel, ok := h.subs[c.SessionID]; ok {
				cancel()
				delete(h.subs, c.SessionID)
			}
		}
	}
	h.mu.Unlock()
	if count > 0 {
		h.Broadcast(c.SessionID, EventViewers, map[string]int{"count": count})
	}
	h.logger.Debug("board viewer left", zap.String("client_id", c.ID), zap.String("session_id", c.SessionID.String()))
}

// Broadcast sends a message to all local viewers of a session.
func (h *Hub) Broadcast(sessionID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.sessions[sessionID] {
		select {
		case c.send <- msg:
		default:
			// slow viewer, drop
		}
	}
}

// PublishCheckIn announces a check-in on the session's board. With Redis the event is
// published only, and the subscription callback delivers it locally exactly once.
func (h *Hub) PublishCheckIn(ctx context.Context, a models.Attendance) {
	ev := CheckInEvent{UserID: a.UserID, SessionID: a.SessionID, Status: a.Status, CheckedAt: a.CheckedAt.Unix()}
	if h.redis != nil {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		err = h.redis.PublishSessionEvent(ctx, a.SessionID, EventCheckIn, data)
		if err == nil {
			return
		}
		h.logger.Warn("board publish failed, delivering locally", zap.Error(err))
	}
	h.Broadcast(a.SessionID, EventCheckIn, ev)
}

// ViewerCount returns the number of connected viewers of a session.
func (h *Hub) ViewerCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
