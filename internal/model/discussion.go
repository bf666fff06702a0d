package model

import "time"

// DiscussionStatus represents lifecycle state of a discussion.
type DiscussionStatus string

const (
	DiscussionStatusActive    DiscussionStatus = "active"
	DiscussionStatusCompleted DiscussionStatus = "completed"
)

// Discussion is one orchestrated multi-party conversation instance.
// Becomes immutable once completed.
type Discussion struct {
	ID          int64
	OrgID       int64
	Name        string
	Status      DiscussionStatus
	Rules       []string // free-text constraints shown to every participant
	MaxRounds   int      // per-discussion override for the round limit
	CreatedAt   time.Time
	CompletedAt *time.Time
}

func (d *Discussion) IsCompleted() bool {
	return d.Status == DiscussionStatusCompleted
}

// ParticipantRole classifies a seat in the turn order.
type ParticipantRole string

const (
	RoleManager ParticipantRole = "manager"
	RoleExpert  ParticipantRole = "expert"
	RoleUser    ParticipantRole = "user"
)

// Participant is one seat in the turn order, fixed for the life of a
// discussion. Non-user seats reference a Persona.
type Participant struct {
	ID           int64
	DiscussionID int64
	Seat         int // stable sequence position, 0..N-1
	Role         ParticipantRole
	PersonaID    *int64 // nil for the user seat
}

// Cursor is the engine's resumable position within a discussion.
// Exactly one cursor exists per discussion; it is the single mutable piece
// of orchestration state and is updated with a conditional write.
type Cursor struct {
	DiscussionID int64
	TurnIndex    int
	Round        int
	Active       bool
	UpdatedAt    time.Time
}
