package model

import "time"

// Persona is a reusable agent definition: display name, system prompt and
// model configuration. Personas are shared, read-only inputs to the engine.
type Persona struct {
	ID            int64
	Name          string
	SystemPrompt  string
	Provider      string // "openai" or "anthropic"; empty = service default
	Model         string // empty = provider default
	Temperature   *float64
	MaxTokens     int
	StopSequences []string
	CreatedAt     time.Time
}
