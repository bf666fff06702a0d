package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wealthos.app/roundtable/common/id"
	"wealthos.app/roundtable/common/logger"
	"wealthos.app/roundtable/internal/model"
	"wealthos.app/roundtable/internal/store"
)

// Limits bounds one advance loop. Zero values are replaced with the product
// defaults at construction time.
type Limits struct {
	SpeechQuota       int // max speeches per participant per discussion
	MaxRounds         int // default max passes through the speaker order
	HistoryWindow     int // trailing turns sent to the model
	MaxLoopIterations int // hard ceiling against sequencing bugs
}

// Result is the updated discussion snapshot returned to the caller after an
// advance call or a read-only state query.
type Result struct {
	Discussion   *model.Discussion
	Turns        []model.Turn
	SpeechCounts map[int]int
	SpeakerOrder []model.Participant
	NextSpeaker  *model.Participant // nil once the discussion is completed
}

// Orchestrator runs the turn loop for one discussion: sequencing, contribution
// generation, completion detection and the closing summary. All persistent
// state goes through the injected stores; the per-discussion serialization
// guard is the caller's responsibility.
type Orchestrator struct {
	discussions  store.DiscussionStore
	participants store.ParticipantStore
	personas     store.PersonaStore
	turns        store.TurnStore
	cursors      store.CursorStore
	generator    Generator
	limits       Limits
}

func NewOrchestrator(
	discussions store.DiscussionStore,
	participants store.ParticipantStore,
	personas store.PersonaStore,
	turns store.TurnStore,
	cursors store.CursorStore,
	generator Generator,
	limits Limits,
) *Orchestrator {
	if limits.SpeechQuota <= 0 {
		limits.SpeechQuota = 2
	}
	if limits.MaxRounds <= 0 {
		limits.MaxRounds = 3
	}
	if limits.HistoryWindow <= 0 {
		limits.HistoryWindow = 10
	}
	if limits.MaxLoopIterations <= 0 {
		limits.MaxLoopIterations = 20
	}

	return &Orchestrator{
		discussions:  discussions,
		participants: participants,
		personas:     personas,
		turns:        turns,
		cursors:      cursors,
		generator:    generator,
		limits:       limits,
	}
}

// Snapshot returns the read-only discussion state without running the loop.
func (o *Orchestrator) Snapshot(ctx context.Context, discussionID int64) (*Result, error) {
	st, err := o.load(ctx, discussionID)
	if err != nil {
		return nil, err
	}
	return st.result(), nil
}

// Advance records the incoming message (when non-empty), then runs the turn
// loop: pick the next eligible speaker, generate and persist their turn,
// advance the cursor, until it is the user's turn again, the round limit is
// hit, or every quota is exhausted. Completion appends one manager summary
// turn and flips the discussion to its terminal state.
//
// Already-committed turns stay committed when a later step fails; the cursor
// always reflects the last successfully persisted step.
func (o *Orchestrator) Advance(ctx context.Context, discussionID int64, message string, actorName string) (*Result, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DiscussionID: logger.Ptr(discussionID),
		Component:    "roundtable.engine.orchestrator",
	})

	st, err := o.load(ctx, discussionID)
	if err != nil {
		return nil, err
	}

	if st.discussion.IsCompleted() || !st.cursor.Active {
		return nil, ErrDiscussionCompleted
	}

	if message != "" {
		user := UserOf(st.order)
		if user == nil {
			return nil, fmt.Errorf("discussion has no user seat to attribute the message to")
		}
		if st.counts[user.Seat] >= o.limits.SpeechQuota {
			return nil, ErrUserQuotaExhausted
		}
		name := actorName
		if name == "" {
			name = "user"
		}
		if err := st.appendTurn(ctx, o, *user, name, message, model.TurnKindRegular); err != nil {
			return nil, err
		}
	}

	if err := o.runLoop(ctx, st); err != nil {
		return nil, err
	}

	return st.result(), nil
}

func (o *Orchestrator) runLoop(ctx context.Context, st *loopState) error {
	maxRounds := o.limits.MaxRounds
	if st.discussion.MaxRounds > 0 {
		maxRounds = st.discussion.MaxRounds
	}

	for i := 0; i < o.limits.MaxLoopIterations; i++ {
		if AllQuotasMet(st.order, st.counts, o.limits.SpeechQuota) || st.cursor.Round > maxRounds {
			return o.complete(ctx, st)
		}

		next, wrapped := PickNextEligible(st.order, st.scanStart, st.counts, o.limits.SpeechQuota)
		if next == nil {
			return o.complete(ctx, st)
		}

		if wrapped {
			st.cursor.Round++
			if st.cursor.Round > maxRounds {
				return o.complete(ctx, st)
			}
		}

		if next.Role == model.RoleUser {
			// Back to the human: persist where we stopped and wait. A wrap
			// that lands here has no turn write to carry the round bump, so
			// the cursor is written explicitly.
			if wrapped {
				if err := o.cursors.Update(ctx, st.cursor, st.cursor.TurnIndex); err != nil {
					return fmt.Errorf("persisting round wrap: %w", err)
				}
			}
			st.nextSpeaker = next
			slog.InfoContext(ctx, "waiting for user turn",
				"turn_index", st.cursor.TurnIndex,
				"round", st.cursor.Round)
			return nil
		}

		persona := st.personaBySeat[next.Seat]
		if persona == nil {
			return fmt.Errorf("seat %d has no persona: %w", next.Seat, store.ErrNotFound)
		}

		content, err := o.generator.Generate(ctx, ContributionRequest{
			Persona: persona,
			History: st.log,
			Rules:   st.discussion.Rules,
			Roster:  st.rosterNames(),
			Window:  o.limits.HistoryWindow,
		})
		if err != nil {
			return fmt.Errorf("generating contribution for %s: %w", persona.Name, err)
		}

		if err := st.appendTurn(ctx, o, *next, persona.Name, content, model.TurnKindRegular); err != nil {
			return err
		}
	}

	slog.ErrorContext(ctx, "advance loop hit iteration ceiling",
		"ceiling", o.limits.MaxLoopIterations,
		"turn_index", st.cursor.TurnIndex,
		"round", st.cursor.Round)
	return fmt.Errorf("advance loop exceeded %d iterations", o.limits.MaxLoopIterations)
}

// complete runs the terminal step: one closing synthesis by the manager
// persona, persisted as a summary turn, then the cursor goes inactive and the
// discussion flips to completed. A summary already at the tail of the log is
// not repeated, so a retry after a partial completion stays single-summary.
func (o *Orchestrator) complete(ctx context.Context, st *loopState) error {
	manager := ManagerOf(st.order)
	summarized := len(st.log) > 0 && st.log[len(st.log)-1].Kind == model.TurnKindSummary
	if manager != nil && manager.PersonaID != nil && !summarized {
		persona := st.personaBySeat[manager.Seat]
		if persona == nil {
			return fmt.Errorf("manager persona: %w", store.ErrNotFound)
		}

		content, err := o.generator.Generate(ctx, ContributionRequest{
			Persona: persona,
			History: st.log,
			Rules:   st.discussion.Rules,
			Roster:  st.rosterNames(),
			Window:  o.limits.HistoryWindow,
			Summary: true,
		})
		if err != nil {
			return fmt.Errorf("generating summary: %w", err)
		}

		if err := st.appendTurn(ctx, o, *manager, persona.Name, content, model.TurnKindSummary); err != nil {
			return err
		}
	}

	st.cursor.Active = false
	if err := o.cursors.Update(ctx, st.cursor, st.cursor.TurnIndex); err != nil {
		return fmt.Errorf("deactivating cursor: %w", err)
	}

	now := time.Now()
	if err := o.discussions.MarkCompleted(ctx, st.discussion.ID, now); err != nil {
		return fmt.Errorf("marking discussion completed: %w", err)
	}
	st.discussion.Status = model.DiscussionStatusCompleted
	st.discussion.CompletedAt = &now
	st.nextSpeaker = nil

	slog.InfoContext(ctx, "discussion completed",
		"turns", len(st.log),
		"round", st.cursor.Round)
	return nil
}

// loopState is the in-memory working set for one advance call.
type loopState struct {
	discussion    *model.Discussion
	order         []model.Participant
	cursor        *model.Cursor
	counts        map[int]int
	log           []model.Turn
	personaBySeat map[int]*model.Persona
	scanStart     int
	nextSpeaker   *model.Participant
}

func (o *Orchestrator) load(ctx context.Context, discussionID int64) (*loopState, error) {
	discussion, err := o.discussions.GetByID(ctx, discussionID)
	if err != nil {
		return nil, fmt.Errorf("loading discussion: %w", err)
	}

	order, err := o.participants.ListByDiscussion(ctx, discussionID)
	if err != nil {
		return nil, fmt.Errorf("loading participants: %w", err)
	}
	if len(order) == 0 {
		return nil, ErrNoParticipants
	}

	cursor, err := o.cursors.Get(ctx, discussionID)
	if err != nil {
		return nil, fmt.Errorf("loading cursor: %w", err)
	}

	counts, err := o.turns.CountBySeat(ctx, discussionID)
	if err != nil {
		return nil, fmt.Errorf("loading speech counts: %w", err)
	}

	log, err := o.turns.ListByDiscussion(ctx, discussionID)
	if err != nil {
		return nil, fmt.Errorf("loading turns: %w", err)
	}

	personaBySeat := make(map[int]*model.Persona, len(order))
	for _, p := range order {
		if p.PersonaID == nil {
			continue
		}
		persona, err := o.personas.GetByID(ctx, *p.PersonaID)
		if err != nil {
			return nil, fmt.Errorf("loading persona for seat %d: %w", p.Seat, err)
		}
		personaBySeat[p.Seat] = persona
	}

	st := &loopState{
		discussion:    discussion,
		order:         order,
		cursor:        cursor,
		counts:        counts,
		log:           log,
		personaBySeat: personaBySeat,
	}
	st.scanStart = st.resumeSeat()

	if st.cursor.Active {
		next, _ := PickNextEligible(order, st.scanStart, counts, o.limits.SpeechQuota)
		st.nextSpeaker = next
	}

	return st, nil
}

// resumeSeat derives where the sequencer scan starts: one past the last
// persisted turn's seat, or the manager's seat for a fresh discussion (the
// opening-move override). The user's kickoff message at turn index 0 does not
// move the scan position, so the manager still opens the first pass.
func (st *loopState) resumeSeat() int {
	for i := len(st.log) - 1; i >= 0; i-- {
		t := st.log[i]
		if t.Kind != model.TurnKindRegular {
			continue
		}
		if t.Role == model.RoleUser && t.TurnIndex == 0 {
			break
		}
		return (t.Seat + 1) % len(st.order)
	}
	return OpeningSeat(st.order)
}

// appendTurn persists one turn and advances the cursor conditionally. The
// wrap of the post-turn seat past the end of the order increments the round.
func (st *loopState) appendTurn(ctx context.Context, o *Orchestrator, p model.Participant, speaker, content string, kind model.TurnKind) error {
	turn := &model.Turn{
		ID:           id.New(),
		DiscussionID: st.discussion.ID,
		Seat:         p.Seat,
		SpeakerName:  speaker,
		Role:         p.Role,
		TurnIndex:    st.cursor.TurnIndex,
		Round:        st.cursor.Round,
		Kind:         kind,
		Content:      content,
	}

	if err := o.turns.Append(ctx, turn); err != nil {
		return fmt.Errorf("appending turn: %w", err)
	}

	expected := st.cursor.TurnIndex
	st.cursor.TurnIndex++
	opening := turn.TurnIndex == 0 && p.Role == model.RoleUser
	if kind == model.TurnKindRegular && !opening {
		st.scanStart = (p.Seat + 1) % len(st.order)
		if st.scanStart == 0 {
			st.cursor.Round++
		}
	}

	if err := o.cursors.Update(ctx, st.cursor, expected); err != nil {
		return fmt.Errorf("advancing cursor: %w", err)
	}

	st.log = append(st.log, *turn)
	if kind == model.TurnKindRegular {
		st.counts[p.Seat]++
	}

	slog.InfoContext(ctx, "turn persisted",
		"speaker", speaker,
		"seat", p.Seat,
		"kind", kind,
		"turn_index", turn.TurnIndex,
		"round", turn.Round,
		"content", logger.Truncate(content, 120))
	return nil
}

func (st *loopState) rosterNames() []string {
	names := make([]string, 0, len(st.order))
	for _, p := range st.order {
		if persona := st.personaBySeat[p.Seat]; persona != nil {
			names = append(names, persona.Name)
		} else {
			names = append(names, string(p.Role))
		}
	}
	return names
}

func (st *loopState) result() *Result {
	return &Result{
		Discussion:   st.discussion,
		Turns:        st.log,
		SpeechCounts: st.counts,
		SpeakerOrder: st.order,
		NextSpeaker:  st.nextSpeaker,
	}
}
