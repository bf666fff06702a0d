package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"wealthos.app/roundtable/common/llm"
	"wealthos.app/roundtable/internal/engine"
	"wealthos.app/roundtable/internal/model"
	"wealthos.app/roundtable/internal/store"
)

// fakeStores is an in-memory persistence layer backing every store interface
// the orchestrator touches. Cursor updates keep the real conditional-write
// semantics so stale-cursor behavior is exercised too.
type fakeStores struct {
	discussion   *model.Discussion
	participants []model.Participant
	personas     map[int64]*model.Persona
	turns        []model.Turn
	cursor       *model.Cursor

	appendErr    error // forced turn-append failure
	markedAt     *time.Time
	cursorWrites int
}

func newFakeStores(d *model.Discussion, parts []model.Participant, personas ...*model.Persona) *fakeStores {
	byID := make(map[int64]*model.Persona)
	for _, p := range personas {
		byID[p.ID] = p
	}
	return &fakeStores{
		discussion:   d,
		participants: parts,
		personas:     byID,
		cursor:       &model.Cursor{DiscussionID: d.ID, TurnIndex: 0, Round: 1, Active: true},
	}
}

func (f *fakeStores) GetByID(ctx context.Context, id int64) (*model.Discussion, error) {
	if f.discussion == nil || f.discussion.ID != id {
		return nil, store.ErrNotFound
	}
	d := *f.discussion
	return &d, nil
}

func (f *fakeStores) Create(ctx context.Context, d *model.Discussion, parts []model.Participant) error {
	f.discussion = d
	f.participants = parts
	return nil
}

func (f *fakeStores) MarkCompleted(ctx context.Context, id int64, completedAt time.Time) error {
	if f.discussion == nil || f.discussion.ID != id {
		return store.ErrNotFound
	}
	f.discussion.Status = model.DiscussionStatusCompleted
	f.discussion.CompletedAt = &completedAt
	f.markedAt = &completedAt
	return nil
}

func (f *fakeStores) ListByOrg(ctx context.Context, orgID int64) ([]model.Discussion, error) {
	return nil, nil
}

func (f *fakeStores) ListByDiscussion(ctx context.Context, discussionID int64) ([]model.Participant, error) {
	return f.participants, nil
}

type fakePersonaStore struct{ f *fakeStores }

func (f *fakeStores) PersonaStore() store.PersonaStore { return &fakePersonaStore{f: f} }

func (p *fakePersonaStore) GetByID(ctx context.Context, id int64) (*model.Persona, error) {
	persona, ok := p.f.personas[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return persona, nil
}

func (p *fakePersonaStore) Create(ctx context.Context, persona *model.Persona) error {
	p.f.personas[persona.ID] = persona
	return nil
}

func (p *fakePersonaStore) List(ctx context.Context, limit, offset int32) ([]model.Persona, error) {
	return nil, nil
}

type fakeTurnStore struct{ f *fakeStores }

func (f *fakeStores) TurnStore() store.TurnStore { return &fakeTurnStore{f: f} }

func (t *fakeTurnStore) Append(ctx context.Context, turn *model.Turn) error {
	if t.f.appendErr != nil {
		return t.f.appendErr
	}
	turn.CreatedAt = time.Now()
	t.f.turns = append(t.f.turns, *turn)
	return nil
}

func (t *fakeTurnStore) ListByDiscussion(ctx context.Context, discussionID int64) ([]model.Turn, error) {
	turns := make([]model.Turn, len(t.f.turns))
	copy(turns, t.f.turns)
	sort.Slice(turns, func(i, j int) bool { return turns[i].TurnIndex < turns[j].TurnIndex })
	return turns, nil
}

func (t *fakeTurnStore) CountBySeat(ctx context.Context, discussionID int64) (map[int]int, error) {
	counts := make(map[int]int)
	for _, turn := range t.f.turns {
		if turn.Kind == model.TurnKindRegular {
			counts[turn.Seat]++
		}
	}
	return counts, nil
}

type fakeCursorStore struct{ f *fakeStores }

func (f *fakeStores) CursorStore() store.CursorStore { return &fakeCursorStore{f: f} }

func (c *fakeCursorStore) Get(ctx context.Context, discussionID int64) (*model.Cursor, error) {
	if c.f.cursor == nil {
		return nil, store.ErrNotFound
	}
	cur := *c.f.cursor
	return &cur, nil
}

func (c *fakeCursorStore) Create(ctx context.Context, cursor *model.Cursor) error {
	c.f.cursor = cursor
	return nil
}

func (c *fakeCursorStore) Update(ctx context.Context, cursor *model.Cursor, expectedTurnIndex int) error {
	if c.f.cursor.TurnIndex != expectedTurnIndex {
		return store.ErrStaleCursor
	}
	cur := *cursor
	cur.UpdatedAt = time.Now()
	c.f.cursor = &cur
	c.f.cursorWrites++
	return nil
}

// stubGen implements engine.Generator with canned per-persona replies and a
// record of every request, in order.
type stubGen struct {
	replies  map[string]string // persona name -> content; "" falls back to a generic line
	err      error
	requests []engine.ContributionRequest
}

func (g *stubGen) Generate(ctx context.Context, req engine.ContributionRequest) (string, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return "", g.err
	}
	if reply, ok := g.replies[req.Persona.Name]; ok {
		return reply, nil
	}
	if req.Summary {
		return fmt.Sprintf("%s closes the discussion.", req.Persona.Name), nil
	}
	return fmt.Sprintf("%s makes a point.", req.Persona.Name), nil
}

// stubCompleter implements llm.Completer with a fixed reply or error.
type stubCompleter struct {
	reply    string
	err      error
	requests []llm.CompletionRequest
}

func (s *stubCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Completion{Content: s.reply, FinishReason: "stop"}, nil
}

func (s *stubCompleter) Model() string { return "stub-model" }

// stubResolver hands out one fixed completer, or an error.
type stubResolver struct {
	completer llm.Completer
	err       error
}

func (r *stubResolver) For(persona *model.Persona) (llm.Completer, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.completer, nil
}

var errBackendDown = errors.New("model backend unavailable")

func personaFixture(id int64, name string) *model.Persona {
	return &model.Persona{
		ID:           id,
		Name:         name,
		SystemPrompt: fmt.Sprintf("You are %s, a wealth-engineering specialist.", name),
		MaxTokens:    256,
	}
}
