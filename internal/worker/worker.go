package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aura-seminar/backend/internal/models"
	"github.com/aura-seminar/backend/internal/notifications"
	"github.com/aura-seminar/backend/pkg/queue"
)

// JobQueue is the part of the Redis queue the processor consumes.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// NotificationProcessor writes queued notification jobs into the inbox.
type NotificationProcessor struct {
	inbox   notifications.Sink
	queue   JobQueue
	backoff time.Duration
	logger  *zap.Logger
}

// NewNotificationProcessor creates a notification job processor.
func NewNotificationProcessor(inbox notifications.Sink, q JobQueue, logger *zap.Logger) *NotificationProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationProcessor{inbox: inbox, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one notification job.
func (p *NotificationProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeNotification {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.NotificationPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if len(payload.UserIDs) == 0 {
		return nil
	}
	msg := notifications.Message{
		Kind:  models.NotificationKind(payload.Kind),
		Title: payload.Title,
		Body:  payload.Body,
	}
	if len(payload.Data) > 0 {
		msg.Data = payload.Data
	}
	if err := p.inbox.Deliver(ctx, payload.UserIDs, msg); err != nil {
		var partial *notifications.PartialError
		if errors.As(err, &partial) && partial.Delivered > 0 && partial.Delivered < len(payload.UserIDs) {
			p.narrow(job, payload, partial.Delivered)
		}
		return err
	}
	p.logger.Info("notification job completed",
		zap.String("job_id", job.ID),
		zap.String("kind", payload.Kind),
		zap.Int("recipients", len(payload.UserIDs)),
	)
	return nil
}

// narrow drops the first delivered recipients from the job so a retry only writes the rest.
func (p *NotificationProcessor) narrow(job *queue.Job, payload queue.NotificationPayload, delivered int) {
	payload.UserIDs = payload.UserIDs[delivered:]
	raw, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("narrow notification job", zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	job.Payload = raw
	p.logger.Warn("notification job partially delivered",
		zap.String("job_id", job.ID),
		zap.Int("delivered", delivered),
		zap.Int("remaining", len(payload.UserIDs)),
	)
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *NotificationProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *NotificationProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
