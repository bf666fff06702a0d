package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"wealthos.app/roundtable/common/id"
	"wealthos.app/roundtable/common/llm"
	"wealthos.app/roundtable/internal/model"
	"wealthos.app/roundtable/internal/store"
)

var (
	ErrPersonaNameRequired   = errors.New("persona name is required")
	ErrPersonaPromptRequired = errors.New("persona system prompt is required")
	ErrUnknownProvider       = errors.New("unknown model provider")
)

type CreatePersonaInput struct {
	Name          string
	SystemPrompt  string
	Provider      string // empty = service default
	Model         string // empty = provider default
	Temperature   *float64
	MaxTokens     int
	StopSequences []string
}

type PersonaService interface {
	Create(ctx context.Context, input CreatePersonaInput) (*model.Persona, error)
	Get(ctx context.Context, personaID int64) (*model.Persona, error)
	List(ctx context.Context, limit, offset int32) ([]model.Persona, error)
}

type personaService struct {
	personas         store.PersonaStore
	defaultMaxTokens int
}

func NewPersonaService(personas store.PersonaStore, defaultMaxTokens int) PersonaService {
	return &personaService{personas: personas, defaultMaxTokens: defaultMaxTokens}
}

func (s *personaService) Create(ctx context.Context, input CreatePersonaInput) (*model.Persona, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrPersonaNameRequired
	}
	if strings.TrimSpace(input.SystemPrompt) == "" {
		return nil, ErrPersonaPromptRequired
	}
	if input.Provider != "" && input.Provider != llm.ProviderOpenAI && input.Provider != llm.ProviderAnthropic {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, input.Provider)
	}

	maxTokens := input.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.defaultMaxTokens
	}

	persona := &model.Persona{
		ID:            id.New(),
		Name:          name,
		SystemPrompt:  input.SystemPrompt,
		Provider:      input.Provider,
		Model:         input.Model,
		Temperature:   input.Temperature,
		MaxTokens:     maxTokens,
		StopSequences: input.StopSequences,
	}

	if err := s.personas.Create(ctx, persona); err != nil {
		return nil, fmt.Errorf("creating persona: %w", err)
	}

	slog.InfoContext(ctx, "persona created",
		"persona_id", persona.ID,
		"name", persona.Name,
		"provider", persona.Provider,
	)

	return persona, nil
}

func (s *personaService) Get(ctx context.Context, personaID int64) (*model.Persona, error) {
	persona, err := s.personas.GetByID(ctx, personaID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPersonaNotFound
		}
		return nil, fmt.Errorf("getting persona: %w", err)
	}
	return persona, nil
}

func (s *personaService) List(ctx context.Context, limit, offset int32) ([]model.Persona, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.personas.List(ctx, limit, offset)
}
