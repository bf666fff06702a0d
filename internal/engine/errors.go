package engine

import "errors"

var (
	// ErrDiscussionCompleted is returned when advance is called on a
	// discussion that has already reached its terminal state.
	ErrDiscussionCompleted = errors.New("discussion already finished")

	// ErrNoParticipants is returned when a discussion has no configured seats.
	ErrNoParticipants = errors.New("discussion has no participants")

	// ErrUserQuotaExhausted is returned when the user seat has already spoken
	// its full quota.
	ErrUserQuotaExhausted = errors.New("user speech quota exhausted")

	// ErrNoBackend means no usable model backend is configured at all.
	// Unlike transient backend failures this is fatal and propagates.
	ErrNoBackend = errors.New("no usable model backend configured")
)
