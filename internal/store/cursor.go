package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"wealthos.app/roundtable/core/db"
	"wealthos.app/roundtable/internal/model"
)

type cursorStore struct {
	db *db.DB
}

// NewCursorStore creates a new CursorStore
func NewCursorStore(database *db.DB) CursorStore {
	return &cursorStore{db: database}
}

func (s *cursorStore) Get(ctx context.Context, discussionID int64) (*model.Cursor, error) {
	row := s.db.Pool().QueryRow(ctx, `
		SELECT discussion_id, turn_index, round, active, updated_at
		FROM discussion_cursors
		WHERE discussion_id = $1`, discussionID)

	var c model.Cursor
	if err := row.Scan(&c.DiscussionID, &c.TurnIndex, &c.Round, &c.Active, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *cursorStore) Create(ctx context.Context, cursor *model.Cursor) error {
	row := s.db.Pool().QueryRow(ctx, `
		INSERT INTO discussion_cursors (discussion_id, turn_index, round, active)
		VALUES ($1, $2, $3, $4)
		RETURNING updated_at`,
		cursor.DiscussionID, cursor.TurnIndex, cursor.Round, cursor.Active)
	return row.Scan(&cursor.UpdatedAt)
}

// Update is a conditional overwrite: it only succeeds while the stored turn
// index still matches what the caller read. A lost race returns ErrStaleCursor.
func (s *cursorStore) Update(ctx context.Context, cursor *model.Cursor, expectedTurnIndex int) error {
	tag, err := s.db.Pool().Exec(ctx, `
		UPDATE discussion_cursors
		SET turn_index = $1, round = $2, active = $3, updated_at = now()
		WHERE discussion_id = $4 AND turn_index = $5`,
		cursor.TurnIndex, cursor.Round, cursor.Active, cursor.DiscussionID, expectedTurnIndex)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleCursor
	}
	cursor.UpdatedAt = time.Now()
	return nil
}
