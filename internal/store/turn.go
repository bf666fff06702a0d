package store

import (
	"context"

	"wealthos.app/roundtable/core/db"
	"wealthos.app/roundtable/internal/model"
)

type turnStore struct {
	db *db.DB
}

// NewTurnStore creates a new TurnStore
func NewTurnStore(database *db.DB) TurnStore {
	return &turnStore{db: database}
}

func (s *turnStore) Append(ctx context.Context, turn *model.Turn) error {
	row := s.db.Pool().QueryRow(ctx, `
		INSERT INTO turns (id, discussion_id, seat, speaker_name, role, turn_index, round, kind, content)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		turn.ID, turn.DiscussionID, turn.Seat, turn.SpeakerName, turn.Role,
		turn.TurnIndex, turn.Round, turn.Kind, turn.Content)
	return row.Scan(&turn.CreatedAt)
}

func (s *turnStore) ListByDiscussion(ctx context.Context, discussionID int64) ([]model.Turn, error) {
	rows, err := s.db.Pool().Query(ctx, `
		SELECT id, discussion_id, seat, speaker_name, role, turn_index, round, kind, content, created_at
		FROM turns
		WHERE discussion_id = $1
		ORDER BY round, turn_index`, discussionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Turn
	for rows.Next() {
		var t model.Turn
		if err := rows.Scan(&t.ID, &t.DiscussionID, &t.Seat, &t.SpeakerName, &t.Role,
			&t.TurnIndex, &t.Round, &t.Kind, &t.Content, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *turnStore) CountBySeat(ctx context.Context, discussionID int64) (map[int]int, error) {
	rows, err := s.db.Pool().Query(ctx, `
		SELECT seat, COUNT(*)
		FROM turns
		WHERE discussion_id = $1 AND kind = 'regular'
		GROUP BY seat`, discussionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var seat, count int
		if err := rows.Scan(&seat, &count); err != nil {
			return nil, err
		}
		counts[seat] = count
	}
	return counts, rows.Err()
}
