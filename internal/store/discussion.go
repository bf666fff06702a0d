package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"wealthos.app/roundtable/core/db"
	"wealthos.app/roundtable/internal/model"
)

type discussionStore struct {
	db *db.DB
}

// NewDiscussionStore creates a new DiscussionStore
func NewDiscussionStore(database *db.DB) DiscussionStore {
	return &discussionStore{db: database}
}

func (s *discussionStore) GetByID(ctx context.Context, id int64) (*model.Discussion, error) {
	row := s.db.Pool().QueryRow(ctx, `
		SELECT id, org_id, name, status, rules, max_rounds, created_at, completed_at
		FROM discussions
		WHERE id = $1`, id)

	d, err := scanDiscussion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// Create inserts the discussion, its fixed participant seats and the initial
// cursor row in a single transaction.
func (s *discussionStore) Create(ctx context.Context, d *model.Discussion, participants []model.Participant) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO discussions (id, org_id, name, status, rules, max_rounds)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at`,
			d.ID, d.OrgID, d.Name, d.Status, d.Rules, d.MaxRounds)
		if err := row.Scan(&d.CreatedAt); err != nil {
			return fmt.Errorf("inserting discussion: %w", err)
		}

		for i := range participants {
			p := &participants[i]
			if _, err := tx.Exec(ctx, `
				INSERT INTO participants (id, discussion_id, seat, role, persona_id)
				VALUES ($1, $2, $3, $4, $5)`,
				p.ID, p.DiscussionID, p.Seat, p.Role, p.PersonaID); err != nil {
				return fmt.Errorf("inserting participant seat %d: %w", p.Seat, err)
			}
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO discussion_cursors (discussion_id, turn_index, round, active)
			VALUES ($1, 0, 1, true)`, d.ID); err != nil {
			return fmt.Errorf("inserting cursor: %w", err)
		}

		return nil
	})
}

func (s *discussionStore) MarkCompleted(ctx context.Context, id int64, completedAt time.Time) error {
	tag, err := s.db.Pool().Exec(ctx, `
		UPDATE discussions
		SET status = $1, completed_at = $2
		WHERE id = $3 AND status = $4`,
		model.DiscussionStatusCompleted, completedAt, id, model.DiscussionStatusActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *discussionStore) ListByOrg(ctx context.Context, orgID int64) ([]model.Discussion, error) {
	rows, err := s.db.Pool().Query(ctx, `
		SELECT id, org_id, name, status, rules, max_rounds, created_at, completed_at
		FROM discussions
		WHERE org_id = $1
		ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Discussion
	for rows.Next() {
		d, err := scanDiscussion(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func scanDiscussion(row pgx.Row) (*model.Discussion, error) {
	var d model.Discussion
	if err := row.Scan(&d.ID, &d.OrgID, &d.Name, &d.Status, &d.Rules,
		&d.MaxRounds, &d.CreatedAt, &d.CompletedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

type participantStore struct {
	db *db.DB
}

// NewParticipantStore creates a new ParticipantStore
func NewParticipantStore(database *db.DB) ParticipantStore {
	return &participantStore{db: database}
}

func (s *participantStore) ListByDiscussion(ctx context.Context, discussionID int64) ([]model.Participant, error) {
	rows, err := s.db.Pool().Query(ctx, `
		SELECT id, discussion_id, seat, role, persona_id
		FROM participants
		WHERE discussion_id = $1
		ORDER BY seat`, discussionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.DiscussionID, &p.Seat, &p.Role, &p.PersonaID); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
