package handler_test

import (
	"context"

	"wealthos.app/roundtable/internal/engine"
	"wealthos.app/roundtable/internal/model"
	"wealthos.app/roundtable/internal/queue"
	"wealthos.app/roundtable/internal/service"
)

type mockDiscussionService struct {
	createFn  func(ctx context.Context, input service.CreateDiscussionInput) (*model.Discussion, error)
	getFn     func(ctx context.Context, discussionID int64) (*engine.Result, error)
	listFn    func(ctx context.Context, orgID int64) ([]model.Discussion, error)
	advanceFn func(ctx context.Context, discussionID int64, message, actorName string) (*engine.Result, error)
}

func (m *mockDiscussionService) Create(ctx context.Context, input service.CreateDiscussionInput) (*model.Discussion, error) {
	if m.createFn != nil {
		return m.createFn(ctx, input)
	}
	return &model.Discussion{}, nil
}

func (m *mockDiscussionService) Get(ctx context.Context, discussionID int64) (*engine.Result, error) {
	if m.getFn != nil {
		return m.getFn(ctx, discussionID)
	}
	return &engine.Result{Discussion: &model.Discussion{}}, nil
}

func (m *mockDiscussionService) List(ctx context.Context, orgID int64) ([]model.Discussion, error) {
	if m.listFn != nil {
		return m.listFn(ctx, orgID)
	}
	return nil, nil
}

func (m *mockDiscussionService) Advance(ctx context.Context, discussionID int64, message, actorName string) (*engine.Result, error) {
	if m.advanceFn != nil {
		return m.advanceFn(ctx, discussionID, message, actorName)
	}
	return &engine.Result{Discussion: &model.Discussion{}}, nil
}

type mockPlannerService struct {
	planFn func(ctx context.Context, topic string) (*service.RosterPlan, error)
}

func (m *mockPlannerService) Plan(ctx context.Context, topic string) (*service.RosterPlan, error) {
	if m.planFn != nil {
		return m.planFn(ctx, topic)
	}
	return &service.RosterPlan{}, nil
}

type mockPersonaService struct {
	createFn func(ctx context.Context, input service.CreatePersonaInput) (*model.Persona, error)
	getFn    func(ctx context.Context, personaID int64) (*model.Persona, error)
	listFn   func(ctx context.Context, limit, offset int32) ([]model.Persona, error)
}

func (m *mockPersonaService) Create(ctx context.Context, input service.CreatePersonaInput) (*model.Persona, error) {
	if m.createFn != nil {
		return m.createFn(ctx, input)
	}
	return &model.Persona{}, nil
}

func (m *mockPersonaService) Get(ctx context.Context, personaID int64) (*model.Persona, error) {
	if m.getFn != nil {
		return m.getFn(ctx, personaID)
	}
	return &model.Persona{ID: personaID}, nil
}

func (m *mockPersonaService) List(ctx context.Context, limit, offset int32) ([]model.Persona, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

type mockProducer struct {
	enqueueFn func(ctx context.Context, event queue.TurnEvent) error
	events    []queue.TurnEvent
}

func (m *mockProducer) Enqueue(ctx context.Context, event queue.TurnEvent) error {
	m.events = append(m.events, event)
	if m.enqueueFn != nil {
		return m.enqueueFn(ctx, event)
	}
	return nil
}

func (m *mockProducer) Close() error { return nil }
