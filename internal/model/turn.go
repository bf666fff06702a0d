package model

import "time"

// TurnKind distinguishes regular contributions from the terminal synthesis.
type TurnKind string

const (
	TurnKindRegular TurnKind = "regular"
	TurnKindSummary TurnKind = "summary"
)

// Turn is one persisted utterance in a discussion. Turns are append-only;
// they are the engine's only persisted output besides the cursor.
type Turn struct {
	ID           int64
	DiscussionID int64
	Seat         int // seat of the speaking participant (the user seat included)
	SpeakerName  string
	Role         ParticipantRole
	TurnIndex    int // ordinal position in the discussion log
	Round        int
	Kind         TurnKind
	Content      string
	CreatedAt    time.Time
}
