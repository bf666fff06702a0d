package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// TurnEvent notifies the worker that a discussion may have new input to
// process. TurnIndex is the sender's view of the cursor at emit time and
// drives the worker's idempotency guard.
type TurnEvent struct {
	DiscussionID int64
	TurnIndex    int
	Message      string // optional user message carried by the notification
	ActorName    string
	TraceID      *string
	Attempt      int
}

type Producer interface {
	Enqueue(ctx context.Context, event TurnEvent) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, event TurnEvent) error {
	attempt := event.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	fields := map[string]any{
		"discussion_id": event.DiscussionID,
		"turn_index":    event.TurnIndex,
		"attempt":       attempt,
	}
	if event.Message != "" {
		fields["message"] = event.Message
	}
	if event.ActorName != "" {
		fields["actor_name"] = event.ActorName
	}
	if event.TraceID != nil && *event.TraceID != "" {
		fields["trace_id"] = *event.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue turn event: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued turn event",
		"discussion_id", event.DiscussionID,
		"turn_index", event.TurnIndex,
		"attempt", attempt)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
