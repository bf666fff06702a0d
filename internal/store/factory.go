package store

import (
	"wealthos.app/roundtable/core/db"
)

type Stores struct {
	db *db.DB
}

func NewStores(database *db.DB) *Stores {
	return &Stores{db: database}
}

func (s *Stores) Discussions() DiscussionStore {
	return NewDiscussionStore(s.db)
}

func (s *Stores) Participants() ParticipantStore {
	return NewParticipantStore(s.db)
}

func (s *Stores) Personas() PersonaStore {
	return NewPersonaStore(s.db)
}

func (s *Stores) Turns() TurnStore {
	return NewTurnStore(s.db)
}

func (s *Stores) Cursors() CursorStore {
	return NewCursorStore(s.db)
}

func (s *Stores) AdvanceLocks() AdvanceLockStore {
	return NewAdvanceLockStore(s.db)
}
