package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"wealthos.app/roundtable/internal/http/dto"
	"wealthos.app/roundtable/internal/queue"
)

// HooksHandler accepts turn-event notifications and hands them to the worker
// via the Redis stream. Delivery is at-least-once; the worker's idempotency
// guard drops anything the cursor has already passed.
type HooksHandler struct {
	producer    queue.Producer
	traceHeader string
}

func NewHooksHandler(producer queue.Producer, traceHeader string) *HooksHandler {
	return &HooksHandler{
		producer:    producer,
		traceHeader: traceHeader,
	}
}

func (h *HooksHandler) IngestTurnEvent(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.TurnEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid turn event payload", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	traceID := c.GetHeader(h.traceHeader)
	if traceID == "" {
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			traceID = spanCtx.TraceID().String()
		}
	}

	event := queue.TurnEvent{
		DiscussionID: req.DiscussionID,
		TurnIndex:    req.TurnIndex,
		Message:      req.Message,
		ActorName:    req.ActorName,
	}
	if traceID != "" {
		event.TraceID = &traceID
	}

	if err := h.producer.Enqueue(ctx, event); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue turn event",
			"error", err,
			"discussion_id", req.DiscussionID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue turn event"})
		return
	}

	c.JSON(http.StatusAccepted, dto.TurnEventResponse{Enqueued: true})
}
