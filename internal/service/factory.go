package service

import (
	"wealthos.app/roundtable/common/llm"
	"wealthos.app/roundtable/core/config"
	"wealthos.app/roundtable/internal/engine"
	"wealthos.app/roundtable/internal/store"
)

type Services struct {
	stores       *store.Stores
	orchestrator *engine.Orchestrator
	llmClient    llm.Client
	cfg          config.Config
}

func NewServices(stores *store.Stores, orchestrator *engine.Orchestrator, llmClient llm.Client, cfg config.Config) *Services {
	return &Services{
		stores:       stores,
		orchestrator: orchestrator,
		llmClient:    llmClient,
		cfg:          cfg,
	}
}

func (s *Services) Discussions() DiscussionService {
	return NewDiscussionService(
		s.stores.Discussions(),
		s.stores.Personas(),
		s.stores.AdvanceLocks(),
		s.orchestrator,
		s.cfg.Engine.AdvanceTimeout,
	)
}

func (s *Services) Personas() PersonaService {
	return NewPersonaService(s.stores.Personas(), s.cfg.DefaultLLM.MaxTokens)
}

func (s *Services) RosterPlanner() RosterPlannerService {
	return NewRosterPlannerService(s.llmClient)
}
