package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, enabling zero-touch logging where business
// context (discussion_id, turn_index, etc.) is automatically included in all log statements.
type LogFields struct {
	DiscussionID *int64  // Discussion being orchestrated
	OrgID        *int64  // Organization scope of the discussion
	TurnIndex    *int    // Cursor turn index at the time of logging
	Round        *int    // Cursor round at the time of logging
	MessageID    *string // Redis stream message ID (webhook-delivery path)
	Component    string  // Component name (OTel semantic convention style, e.g., "roundtable.engine.orchestrator")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

// mergeFields merges two LogFields, preferring non-nil/non-empty values from 'new'.
func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.DiscussionID != nil {
		result.DiscussionID = new.DiscussionID
	}
	if new.OrgID != nil {
		result.OrgID = new.OrgID
	}
	if new.TurnIndex != nil {
		result.TurnIndex = new.TurnIndex
	}
	if new.Round != nil {
		result.Round = new.Round
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{DiscussionID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like prompts or error messages.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
