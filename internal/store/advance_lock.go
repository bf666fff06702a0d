package store

import (
	"context"
	"fmt"
	"time"

	"wealthos.app/roundtable/core/db"
)

type advanceLockStore struct {
	db *db.DB
}

// NewAdvanceLockStore creates a new AdvanceLockStore
func NewAdvanceLockStore(database *db.DB) AdvanceLockStore {
	return &advanceLockStore{db: database}
}

// Acquire inserts the in-flight marker row for the discussion. A marker held
// by another owner blocks acquisition unless it is stale (older than ttl), in
// which case it is taken over. Session advisory locks are unsuitable here
// because pgxpool hands out arbitrary connections.
func (s *advanceLockStore) Acquire(ctx context.Context, discussionID int64, owner string, ttl time.Duration) error {
	staleBefore := time.Now().Add(-ttl)

	tag, err := s.db.Pool().Exec(ctx, `
		INSERT INTO advance_locks (discussion_id, locked_by, locked_at)
		VALUES ($1, $2, now())
		ON CONFLICT (discussion_id) DO UPDATE
		SET locked_by = EXCLUDED.locked_by, locked_at = EXCLUDED.locked_at
		WHERE advance_locks.locked_at < $3`,
		discussionID, owner, staleBefore)
	if err != nil {
		return fmt.Errorf("acquiring advance lock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLocked
	}
	return nil
}

// Release deletes the marker row. Scoped to the owner so a takeover by a
// later caller is not released by the original, slower one.
func (s *advanceLockStore) Release(ctx context.Context, discussionID int64, owner string) error {
	_, err := s.db.Pool().Exec(ctx, `
		DELETE FROM advance_locks
		WHERE discussion_id = $1 AND locked_by = $2`,
		discussionID, owner)
	if err != nil {
		return fmt.Errorf("releasing advance lock: %w", err)
	}
	return nil
}
