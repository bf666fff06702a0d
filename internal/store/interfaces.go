package store

import (
	"context"
	"errors"
	"time"

	"wealthos.app/roundtable/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrLocked is returned when an advance lock is already held for a discussion
var ErrLocked = errors.New("discussion advance already in flight")

// ErrStaleCursor is returned when a conditional cursor update loses a race
var ErrStaleCursor = errors.New("cursor was modified concurrently")

// DiscussionStore defines the contract for discussion data access
type DiscussionStore interface {
	GetByID(ctx context.Context, id int64) (*model.Discussion, error)
	Create(ctx context.Context, d *model.Discussion, participants []model.Participant) error
	MarkCompleted(ctx context.Context, id int64, completedAt time.Time) error
	ListByOrg(ctx context.Context, orgID int64) ([]model.Discussion, error)
}

// ParticipantStore defines the contract for participant data access.
// Participants are fixed for the life of a discussion, so there is no update.
type ParticipantStore interface {
	ListByDiscussion(ctx context.Context, discussionID int64) ([]model.Participant, error)
}

// PersonaStore defines the contract for persona data access.
// The engine only ever reads personas; writes serve the admin cockpit.
type PersonaStore interface {
	GetByID(ctx context.Context, id int64) (*model.Persona, error)
	Create(ctx context.Context, p *model.Persona) error
	List(ctx context.Context, limit, offset int32) ([]model.Persona, error)
}

// TurnStore defines the contract for the append-only turn log
type TurnStore interface {
	Append(ctx context.Context, turn *model.Turn) error
	ListByDiscussion(ctx context.Context, discussionID int64) ([]model.Turn, error)
	// CountBySeat returns per-seat speech counts for a discussion. Only
	// regular turns count as speeches; the closing summary is excluded.
	CountBySeat(ctx context.Context, discussionID int64) (map[int]int, error)
}

// CursorStore defines the contract for the single-row turn cursor
type CursorStore interface {
	Get(ctx context.Context, discussionID int64) (*model.Cursor, error)
	Create(ctx context.Context, cursor *model.Cursor) error
	// Update overwrites the cursor only if the stored turn index still equals
	// expectedTurnIndex; returns ErrStaleCursor otherwise.
	Update(ctx context.Context, cursor *model.Cursor, expectedTurnIndex int) error
}

// AdvanceLockStore serializes concurrent advance calls per discussion via a
// unique in-flight marker row. Stale locks (older than the TTL) may be taken
// over, guarding against crashed holders.
type AdvanceLockStore interface {
	Acquire(ctx context.Context, discussionID int64, owner string, ttl time.Duration) error
	Release(ctx context.Context, discussionID int64, owner string) error
}
