package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"wealthos.app/roundtable/core/db"
	"wealthos.app/roundtable/internal/model"
)

type personaStore struct {
	db *db.DB
}

// NewPersonaStore creates a new PersonaStore
func NewPersonaStore(database *db.DB) PersonaStore {
	return &personaStore{db: database}
}

func (s *personaStore) GetByID(ctx context.Context, id int64) (*model.Persona, error) {
	row := s.db.Pool().QueryRow(ctx, `
		SELECT id, name, system_prompt, provider, model, temperature, max_tokens, stop_sequences, created_at
		FROM personas
		WHERE id = $1`, id)

	p, err := scanPersona(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *personaStore) Create(ctx context.Context, p *model.Persona) error {
	row := s.db.Pool().QueryRow(ctx, `
		INSERT INTO personas (id, name, system_prompt, provider, model, temperature, max_tokens, stop_sequences)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`,
		p.ID, p.Name, p.SystemPrompt, p.Provider, p.Model, p.Temperature, p.MaxTokens, p.StopSequences)
	return row.Scan(&p.CreatedAt)
}

func (s *personaStore) List(ctx context.Context, limit, offset int32) ([]model.Persona, error) {
	rows, err := s.db.Pool().Query(ctx, `
		SELECT id, name, system_prompt, provider, model, temperature, max_tokens, stop_sequences, created_at
		FROM personas
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func scanPersona(row pgx.Row) (*model.Persona, error) {
	var p model.Persona
	if err := row.Scan(&p.ID, &p.Name, &p.SystemPrompt, &p.Provider, &p.Model,
		&p.Temperature, &p.MaxTokens, &p.StopSequences, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
