package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"wealthos.app/roundtable/common/logger"
	"wealthos.app/roundtable/internal/engine"
	"wealthos.app/roundtable/internal/queue"
	"wealthos.app/roundtable/internal/service"
	"wealthos.app/roundtable/internal/store"
)

// Consumer is the queue surface the worker drives. Satisfied by
// *queue.RedisConsumer.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

type Config struct {
	MaxAttempts int
}

// Worker consumes turn events and drives discussions forward through the
// same advance path the HTTP API uses. The in-flight marker inside the
// service makes concurrent HTTP and queue triggers safe.
type Worker struct {
	consumer    Consumer
	discussions service.DiscussionService
	cursors     store.CursorStore
	cfg         Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, discussions service.DiscussionService, cursors store.CursorStore, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		consumer:    consumer,
		discussions: discussions,
		cursors:     cursors,
		cfg:         cfg,
		stopCh:      make(chan struct{}),
		stoppedCh:   make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				// Brief backoff on error
				time.Sleep(time.Second)
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		if err := w.processMessageSafe(ctx, msg); err != nil {
			slog.ErrorContext(ctx, "message processing failed",
				"error", err,
				"message_id", msg.ID,
				"discussion_id", msg.DiscussionID)
			w.handleFailedMessage(ctx, msg, err)
		}
	}

	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"discussion_id", msg.DiscussionID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage handles one turn event. A notification whose turn index is
// behind the discussion's cursor has already been handled: it is acked and
// ignored. Eligible events run the regular advance path; terminal outcomes
// (completed, not found, spent user quota) are acked rather than retried.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	sc := logger.StartSpanFromTraceID(ctx, msg.TraceID, "worker.process_turn_event",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer sc.End()
	ctx = sc.Context()

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DiscussionID: logger.Ptr(msg.DiscussionID),
		TurnIndex:    logger.Ptr(msg.TurnIndex),
		MessageID:    logger.Ptr(msg.ID),
		Component:    "roundtable.worker",
	})

	slog.InfoContext(ctx, "processing turn event",
		"message_id", msg.ID,
		"attempt", msg.Attempt)

	cursor, err := w.cursors.Get(ctx, msg.DiscussionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "turn event for unknown discussion, dropping")
			return w.consumer.Ack(ctx, msg)
		}
		return fmt.Errorf("loading cursor: %w", err)
	}

	if msg.TurnIndex < cursor.TurnIndex {
		// Stale notification: something already advanced past this point.
		slog.InfoContext(ctx, "stale turn event, skipping",
			"event_turn_index", msg.TurnIndex,
			"cursor_turn_index", cursor.TurnIndex)
		return w.consumer.Ack(ctx, msg)
	}

	_, err = w.discussions.Advance(ctx, msg.DiscussionID, msg.UserMessage, msg.ActorName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAdvanceInFlight):
			// Another trigger got there first; let the retry re-check the cursor.
			return err
		case errors.Is(err, engine.ErrDiscussionCompleted),
			errors.Is(err, engine.ErrUserQuotaExhausted),
			errors.Is(err, service.ErrDiscussionNotFound):
			slog.InfoContext(ctx, "turn event not actionable, dropping", "reason", err)
			return w.consumer.Ack(ctx, msg)
		default:
			sc.RecordError(err)
			return fmt.Errorf("advancing discussion: %w", err)
		}
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// Message will be redelivered; the idempotency guard makes that safe.
		slog.WarnContext(ctx, "failed to ACK message",
			"error", err,
			"message_id", msg.ID)
	}

	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"discussion_id", msg.DiscussionID,
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"discussion_id", msg.DiscussionID,
		"attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
