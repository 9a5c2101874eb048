package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aura-seminar/backend/internal/access"
	"github.com/aura-seminar/backend/internal/apperr"
	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the JWT in the query string authenticates the viewer
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client represents a single board connection.
type Client struct {
	ID        string
	SessionID uuid.UUID
	UserID    uuid.UUID
	hub       *Hub
	conn      *websocket.Conn
	send      chan WSMessage
	logger    *zap.Logger
}

// TokenValidator turns the ?token= query parameter into the caller.
type TokenValidator func(ctx context.Context, token string) (access.Actor, error)

// SessionLookup loads a session; (nil, nil) when missing.
type SessionLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// Guard decides who may watch a session's board: its seminar's owner or an admin.
type Guard struct {
	sessions SessionLookup
	checker  *access.Checker
}

// NewGuard creates a Guard.
func NewGuard(sessions SessionLookup, seminars access.SeminarLookup) *Guard {
	return &Guard{sessions: sessions, checker: access.NewChecker(seminars)}
}

// Authorize returns nil when actor may watch sessionID.
func (g *Guard) Authorize(ctx context.Context, actor access.Actor, sessionID uuid.UUID) error {
	sess, err := g.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return apperr.Internal("load session", err)
	}
	if sess == nil {
		return apperr.NotFound("session not found")
	}
	_, err = g.checker.RequireManager(ctx, actor, sess.SeminarID)
	return err
}

// ServeWs handles GET /ws/sessions/:id?token=..., upgrades and runs the client loop.
func ServeWs(hub *Hub, guard *Guard, validate TokenValidator, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		sessionID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid session id")
			return
		}
		token := c.Query("token")
		if token == "" {
			response.Unauthorized(c, "token required")
			return
		}
		actor, err := validate(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "invalid token")
			return
		}
		if err := guard.Authorize(c.Request.Context(), actor, sessionID); err != nil {
			response.Error(c, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			UserID:    actor.UserID,
			hub:       hub,
			conn:      conn,
			send:      make(chan WSMessage, 256),
			logger:    logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// readPump only services heartbeats; the board is read-only for viewers.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("board connection closed", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
