// Package notifications fans out inbox messages without blocking the operation that caused them.
package notifications

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-seminar/backend/internal/models"
)

// DefaultTimeout bounds one delivery when the dispatcher is built with a zero timeout.
const DefaultTimeout = 10 * time.Second

// Message is one notification addressed to one or more users.
type Message struct {
	Kind  models.NotificationKind
	Title string
	Body  string
	Data  any
}

func (m Message) payload() (json.RawMessage, error) {
	if m.Data == nil {
		return nil, nil
	}
	return json.Marshal(m.Data)
}

// Sink delivers a message to its recipients.
type Sink interface {
	Deliver(ctx context.Context, userIDs []uuid.UUID, msg Message) error
}

// Dispatcher hands messages to a Sink on background goroutines. Callers never see
// delivery errors; they are logged. Close waits for in-flight deliveries.
type Dispatcher struct {
	sink    Sink
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(sink Sink, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{sink: sink, timeout: timeout, logger: logger}
}

// Notify queues msg for one user and returns immediately.
func (d *Dispatcher) Notify(ctx context.Context, userID uuid.UUID, msg Message) {
	d.NotifyBulk(ctx, []uuid.UUID{userID}, msg)
}

// NotifyBulk queues msg for every user in userIDs and returns immediately.
func (d *Dispatcher) NotifyBulk(ctx context.Context, userIDs []uuid.UUID, msg Message) {
	if len(userIDs) == 0 {
		return
	}
	ids := append([]uuid.UUID(nil), userIDs...)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("notification dropped after shutdown", zap.String("kind", string(msg.Kind)), zap.Int("recipients", len(ids)))
		return
	}
	d.wg.Add(1)
	go d.deliver(context.WithoutCancel(ctx), ids, msg)
}

func (d *Dispatcher) deliver(parent context.Context, userIDs []uuid.UUID, msg Message) {
	defer d.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification delivery panicked", zap.Any("panic", r), zap.String("kind", string(msg.Kind)))
		}
	}()
	ctx, cancel := context.WithTimeout(parent, d.timeout)
	defer cancel()
	if err := d.sink.Deliver(ctx, userIDs, msg); err != nil {
		d.logger.Error("notification delivery failed",
			zap.Error(err),
			zap.String("kind", string(msg.Kind)),
			zap.Int("recipients", len(userIDs)),
		)
		return
	}
	d.logger.Debug("notification delivered", zap.String("kind", string(msg.Kind)), zap.Int("recipients", len(userIDs)))
}

// Close stops accepting messages and waits for in-flight deliveries.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
