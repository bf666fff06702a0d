package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"wealthos.app/roundtable/common/id"
	"wealthos.app/roundtable/common/logger"
	"wealthos.app/roundtable/internal/engine"
	"wealthos.app/roundtable/internal/model"
	"wealthos.app/roundtable/internal/store"
)

// LockTTL is how long an in-flight advance marker is honored before another
// caller may take it over. Kept above the advance timeout so a live holder is
// never preempted.
const LockTTL = 90 * time.Second

var (
	ErrDiscussionNotFound = errors.New("discussion not found")
	ErrPersonaNotFound    = errors.New("persona not found")

	// ErrAdvanceInFlight means another advance is currently running for this
	// discussion. The caller should retry after a short delay.
	ErrAdvanceInFlight = errors.New("an advance is already in flight for this discussion")

	ErrNoManagerSeat    = errors.New("discussion requires exactly one manager seat")
	ErrTooManyUserSeats = errors.New("discussion allows at most one user seat")
)

// CreateDiscussionInput describes a new discussion: the roster is taken in
// order, seat numbers are assigned 0..N-1.
type CreateDiscussionInput struct {
	OrgID     int64
	Name      string
	Rules     []string
	MaxRounds int // 0 = service default
	Seats     []SeatInput
}

type SeatInput struct {
	Role      model.ParticipantRole
	PersonaID *int64 // required for manager/expert seats, nil for the user seat
}

// Engine is the orchestration surface the discussion service drives.
// Satisfied by *engine.Orchestrator.
type Engine interface {
	Snapshot(ctx context.Context, discussionID int64) (*engine.Result, error)
	Advance(ctx context.Context, discussionID int64, message, actorName string) (*engine.Result, error)
}

type DiscussionService interface {
	Create(ctx context.Context, input CreateDiscussionInput) (*model.Discussion, error)
	Get(ctx context.Context, discussionID int64) (*engine.Result, error)
	List(ctx context.Context, orgID int64) ([]model.Discussion, error)
	// Advance records the message (when non-empty) and runs the turn loop. At
	// most one advance per discussion runs at a time; concurrent callers get
	// ErrAdvanceInFlight.
	Advance(ctx context.Context, discussionID int64, message, actorName string) (*engine.Result, error)
}

type discussionService struct {
	discussions  store.DiscussionStore
	personas     store.PersonaStore
	locks        store.AdvanceLockStore
	orchestrator Engine

	advanceTimeout time.Duration
	owner          string
}

func NewDiscussionService(
	discussions store.DiscussionStore,
	personas store.PersonaStore,
	locks store.AdvanceLockStore,
	orchestrator Engine,
	advanceTimeout time.Duration,
) DiscussionService {
	if advanceTimeout <= 0 {
		advanceTimeout = 60 * time.Second
	}
	hostname, _ := os.Hostname()
	return &discussionService{
		discussions:    discussions,
		personas:       personas,
		locks:          locks,
		orchestrator:   orchestrator,
		advanceTimeout: advanceTimeout,
		owner:          fmt.Sprintf("%s-%d", hostname, id.New()),
	}
}

func (s *discussionService) Create(ctx context.Context, input CreateDiscussionInput) (*model.Discussion, error) {
	if err := validateRoster(input.Seats); err != nil {
		return nil, err
	}

	discussion := &model.Discussion{
		ID:        id.New(),
		OrgID:     input.OrgID,
		Name:      input.Name,
		Status:    model.DiscussionStatusActive,
		Rules:     input.Rules,
		MaxRounds: input.MaxRounds,
	}

	participants := make([]model.Participant, 0, len(input.Seats))
	for seat, in := range input.Seats {
		if in.Role != model.RoleUser {
			if in.PersonaID == nil {
				return nil, fmt.Errorf("seat %d (%s): persona is required", seat, in.Role)
			}
			if _, err := s.personas.GetByID(ctx, *in.PersonaID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return nil, fmt.Errorf("seat %d: %w", seat, ErrPersonaNotFound)
				}
				return nil, fmt.Errorf("loading persona for seat %d: %w", seat, err)
			}
		}
		participants = append(participants, model.Participant{
			ID:           id.New(),
			DiscussionID: discussion.ID,
			Seat:         seat,
			Role:         in.Role,
			PersonaID:    in.PersonaID,
		})
	}

	if err := s.discussions.Create(ctx, discussion, participants); err != nil {
		return nil, fmt.Errorf("creating discussion: %w", err)
	}

	slog.InfoContext(ctx, "discussion created",
		"discussion_id", discussion.ID,
		"org_id", discussion.OrgID,
		"seats", len(participants),
	)

	return discussion, nil
}

func (s *discussionService) Get(ctx context.Context, discussionID int64) (*engine.Result, error) {
	res, err := s.orchestrator.Snapshot(ctx, discussionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDiscussionNotFound
		}
		return nil, err
	}
	return res, nil
}

func (s *discussionService) List(ctx context.Context, orgID int64) ([]model.Discussion, error) {
	return s.discussions.ListByOrg(ctx, orgID)
}

func (s *discussionService) Advance(ctx context.Context, discussionID int64, message, actorName string) (*engine.Result, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DiscussionID: logger.Ptr(discussionID),
		Component:    "roundtable.service.discussion",
	})

	if err := s.locks.Acquire(ctx, discussionID, s.owner, LockTTL); err != nil {
		if errors.Is(err, store.ErrLocked) {
			slog.InfoContext(ctx, "advance already in flight, rejecting")
			return nil, ErrAdvanceInFlight
		}
		return nil, fmt.Errorf("acquiring advance lock: %w", err)
	}
	defer func() {
		// Release with a fresh context: the advance budget may be spent, but
		// the marker must still go away.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.locks.Release(releaseCtx, discussionID, s.owner); err != nil {
			slog.WarnContext(ctx, "releasing advance lock failed",
				"discussion_id", discussionID,
				"error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.advanceTimeout)
	defer cancel()

	res, err := s.orchestrator.Advance(ctx, discussionID, message, actorName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDiscussionNotFound
		}
		if errors.Is(err, context.DeadlineExceeded) {
			// Partial progress is already durable; the next call resumes.
			slog.WarnContext(ctx, "advance timed out, progress persisted",
				"discussion_id", discussionID)
		}
		return nil, err
	}
	return res, nil
}

func validateRoster(seats []SeatInput) error {
	if len(seats) == 0 {
		return engine.ErrNoParticipants
	}

	managers, users := 0, 0
	for _, s := range seats {
		switch s.Role {
		case model.RoleManager:
			managers++
		case model.RoleUser:
			users++
		case model.RoleExpert:
		default:
			return fmt.Errorf("unknown participant role %q", s.Role)
		}
	}
	if managers != 1 {
		return ErrNoManagerSeat
	}
	if users > 1 {
		return ErrTooManyUserSeats
	}
	return nil
}
