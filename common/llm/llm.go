package llm

import (
	"context"
	"fmt"
	"regexp"
)

var nameInvalidChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds LLM client configuration.
type Config struct {
	Provider string // "openai" or "anthropic"
	APIKey   string // Required: API key for the provider
	BaseURL  string // Optional: custom API endpoint
	Model    string // Model name (e.g., "gpt-4o-mini", "claude-sonnet-4-5-20250514")
}

// Completer produces one chat completion given a system instruction and a
// conversation transcript. It is the engine's only view of a model backend.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	Model() string
}

// CompletionRequest contains the instruction block and transcript for one completion.
type CompletionRequest struct {
	SystemPrompt  string
	Messages      []Message
	MaxTokens     int
	Temperature   *float64 // nil = model default, explicit 0 = deterministic
	StopSequences []string
}

// Message represents a conversation message.
type Message struct {
	Role    string // "user" or "assistant"
	Name    string // Optional: participant name for multi-user conversations (user messages only)
	Content string // Text content
}

// Completion contains the model's response.
type Completion struct {
	Content          string
	FinishReason     string // "stop", "length", "stop_sequence"
	PromptTokens     int
	CompletionTokens int
}

// NewCompleter creates a Completer for the configured provider.
// It selects the appropriate backend based on cfg.Provider ("openai" or "anthropic").
// Defaults to OpenAI if no provider is specified.
func NewCompleter(cfg Config) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		return newOpenAICompleter(cfg)
	case ProviderAnthropic:
		return newAnthropicCompleter(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// Temp is a helper for inline temperature pointers.
func Temp(t float64) *float64 {
	return &t
}

// SanitizeName converts a speaker name to a valid OpenAI name parameter.
// The name must match ^[a-zA-Z0-9_-]{1,64}$.
// Invalid characters are replaced with underscores, and the result is truncated to 64 characters.
func SanitizeName(name string) string {
	sanitized := nameInvalidChars.ReplaceAllString(name, "_")
	if len(sanitized) > 64 {
		sanitized = sanitized[:64]
	}
	return sanitized
}
