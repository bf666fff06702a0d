package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"wealthos.app/roundtable/common/llm"
	"wealthos.app/roundtable/internal/model"
)

// FallbackContent is persisted in place of a contribution when the model
// backend fails transiently, so the cursor can still advance and the caller
// gets a usable response.
const FallbackContent = "I could not produce a contribution this turn, please continue without me."

// ContributionRequest carries everything the generator needs for one turn.
type ContributionRequest struct {
	Persona *model.Persona
	History []model.Turn // conversation so far, oldest first
	Rules   []string     // discussion rules, rendered as bullet constraints
	Roster  []string     // full speaker order, for situational awareness
	Window  int          // how many trailing turns are sent to the model
	Summary bool         // closing synthesis override for the manager
}

// Generator produces one participant's next contribution.
type Generator interface {
	Generate(ctx context.Context, req ContributionRequest) (string, error)
}

// CompleterResolver resolves a persona's provider/model fields to a
// Completer, falling back to the service default when unset or unsupported.
type CompleterResolver interface {
	For(persona *model.Persona) (llm.Completer, error)
}

type completerResolver struct {
	defaultCfg llm.Config

	mu      sync.Mutex
	clients map[string]llm.Completer
}

// NewCompleterResolver creates a resolver with the given default backend
// configuration. Clients are constructed lazily and cached per provider/model.
func NewCompleterResolver(defaultCfg llm.Config) CompleterResolver {
	return &completerResolver{
		defaultCfg: defaultCfg,
		clients:    make(map[string]llm.Completer),
	}
}

func (r *completerResolver) For(persona *model.Persona) (llm.Completer, error) {
	cfg := r.defaultCfg
	if persona.Provider == llm.ProviderOpenAI || persona.Provider == llm.ProviderAnthropic {
		cfg.Provider = persona.Provider
	}
	if persona.Model != "" {
		cfg.Model = persona.Model
	}

	if cfg.APIKey == "" {
		return nil, ErrNoBackend
	}

	key := cfg.Provider + "/" + cfg.Model

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[key]; ok {
		return c, nil
	}

	c, err := llm.NewCompleter(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoBackend, err)
	}
	r.clients[key] = c
	return c, nil
}

type llmGenerator struct {
	resolver CompleterResolver
}

// NewGenerator creates the production Generator backed by LLM completions.
func NewGenerator(resolver CompleterResolver) Generator {
	return &llmGenerator{resolver: resolver}
}

// Generate builds the instruction block and transcript for the persona and
// runs one completion. Transient backend failures are recovered locally with
// FallbackContent; a missing backend configuration (ErrNoBackend) is fatal
// and propagates. The returned text is always normalized.
func (g *llmGenerator) Generate(ctx context.Context, req ContributionRequest) (string, error) {
	completer, err := g.resolver.For(req.Persona)
	if err != nil {
		return "", err
	}

	completion, err := completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt:  buildInstructions(req),
		Messages:      []llm.Message{{Role: "user", Content: renderHistory(req.History, req.Window)}},
		MaxTokens:     req.Persona.MaxTokens,
		Temperature:   req.Persona.Temperature,
		StopSequences: req.Persona.StopSequences,
	})
	if err != nil {
		if ctx.Err() != nil {
			// Out of budget: stop instead of flooding the log with fallbacks.
			return "", ctx.Err()
		}
		slog.WarnContext(ctx, "model backend failed, using fallback contribution",
			"persona", req.Persona.Name,
			"model", completer.Model(),
			"error", err)
		return FallbackContent, nil
	}

	return NormalizeContribution(completion.Content), nil
}

// buildInstructions concatenates the persona's system prompt, the rules list,
// the speaker order and the output constraint into one instruction block.
func buildInstructions(req ContributionRequest) string {
	var b strings.Builder

	b.WriteString(req.Persona.SystemPrompt)
	b.WriteString("\n")

	if len(req.Rules) > 0 {
		b.WriteString("\nDiscussion rules:\n")
		for _, rule := range req.Rules {
			b.WriteString("- ")
			b.WriteString(rule)
			b.WriteString("\n")
		}
	}

	if len(req.Roster) > 0 {
		b.WriteString("\nSpeaker order: ")
		b.WriteString(strings.Join(req.Roster, ", "))
		b.WriteString("\n")
	}

	if req.Summary {
		b.WriteString("\nProduce a closing synthesis of the discussion so far, not a regular contribution.")
	}

	b.WriteString(fmt.Sprintf("\nAnswer with at most %d non-empty lines. No preamble.", MaxTurnLines))

	return b.String()
}

// renderHistory serializes the trailing window of turns as one
// "{speaker}: {content}" line each.
func renderHistory(history []model.Turn, window int) string {
	if window <= 0 {
		window = len(history)
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	if len(history) == 0 {
		return "(the discussion has not started yet)"
	}

	lines := make([]string, 0, len(history))
	for _, t := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", t.SpeakerName, t.Content))
	}
	return strings.Join(lines, "\n")
}
