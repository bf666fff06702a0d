package dto

import "wealthos.app/roundtable/internal/model"

type CreatePersonaRequest struct {
	Name          string   `json:"name" binding:"required"`
	SystemPrompt  string   `json:"system_prompt" binding:"required"`
	Provider      string   `json:"provider"`
	Model         string   `json:"model"`
	Temperature   *float64 `json:"temperature"`
	MaxTokens     int      `json:"max_tokens"`
	StopSequences []string `json:"stop_sequences"`
}

type PersonaResponse struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	SystemPrompt  string   `json:"system_prompt"`
	Provider      string   `json:"provider,omitempty"`
	Model         string   `json:"model,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	MaxTokens     int      `json:"max_tokens"`
	StopSequences []string `json:"stop_sequences,omitempty"`
	CreatedAt     string   `json:"created_at"`
}

type ListPersonasResponse struct {
	Personas []PersonaResponse `json:"personas"`
}

func ToPersonaResponse(p *model.Persona) PersonaResponse {
	return PersonaResponse{
		ID:            p.ID,
		Name:          p.Name,
		SystemPrompt:  p.SystemPrompt,
		Provider:      p.Provider,
		Model:         p.Model,
		Temperature:   p.Temperature,
		MaxTokens:     p.MaxTokens,
		StopSequences: p.StopSequences,
		CreatedAt:     p.CreatedAt.Format(timeFormat),
	}
}
