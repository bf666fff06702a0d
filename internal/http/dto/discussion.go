package dto

import (
	"wealthos.app/roundtable/internal/engine"
	"wealthos.app/roundtable/internal/model"
)

type CreateDiscussionRequest struct {
	OrgID     int64         `json:"org_id" binding:"required"`
	Name      string        `json:"name" binding:"required"`
	Rules     []string      `json:"rules"`
	MaxRounds int           `json:"max_rounds"`
	Seats     []SeatRequest `json:"seats" binding:"required,min=1,dive"`
}

type SeatRequest struct {
	Role      string `json:"role" binding:"required"`
	PersonaID *int64 `json:"persona_id"`
}

type AdvanceRequest struct {
	Message   string `json:"message"`
	ActorName string `json:"actor_name"`
}

type PlanRequest struct {
	Topic string `json:"topic" binding:"required"`
}

type DiscussionResponse struct {
	ID          int64    `json:"id"`
	OrgID       int64    `json:"org_id"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	Rules       []string `json:"rules,omitempty"`
	MaxRounds   int      `json:"max_rounds,omitempty"`
	CreatedAt   string   `json:"created_at"`
	CompletedAt *string  `json:"completed_at,omitempty"`
}

type TurnResponse struct {
	ID          int64  `json:"id"`
	Seat        int    `json:"seat"`
	SpeakerName string `json:"speaker_name"`
	Role        string `json:"role"`
	TurnIndex   int    `json:"turn_index"`
	Round       int    `json:"round"`
	Kind        string `json:"kind"`
	Content     string `json:"content"`
	CreatedAt   string `json:"created_at"`
}

type ParticipantResponse struct {
	Seat      int    `json:"seat"`
	Role      string `json:"role"`
	PersonaID *int64 `json:"persona_id,omitempty"`
}

// SnapshotResponse is the full discussion state returned by both the read
// endpoint and a successful advance.
type SnapshotResponse struct {
	Discussion   DiscussionResponse    `json:"discussion"`
	Turns        []TurnResponse        `json:"turns"`
	SpeechCounts map[int]int           `json:"speech_counts"`
	SpeakerOrder []ParticipantResponse `json:"speaker_order"`
	NextSpeaker  *ParticipantResponse  `json:"next_speaker,omitempty"`
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

func ToSnapshotResponse(res *engine.Result) SnapshotResponse {
	resp := SnapshotResponse{
		Discussion:   toDiscussionResponse(res.Discussion),
		Turns:        make([]TurnResponse, len(res.Turns)),
		SpeechCounts: res.SpeechCounts,
		SpeakerOrder: make([]ParticipantResponse, len(res.SpeakerOrder)),
	}
	for i, t := range res.Turns {
		resp.Turns[i] = TurnResponse{
			ID:          t.ID,
			Seat:        t.Seat,
			SpeakerName: t.SpeakerName,
			Role:        string(t.Role),
			TurnIndex:   t.TurnIndex,
			Round:       t.Round,
			Kind:        string(t.Kind),
			Content:     t.Content,
			CreatedAt:   t.CreatedAt.Format(timeFormat),
		}
	}
	for i, p := range res.SpeakerOrder {
		resp.SpeakerOrder[i] = toParticipantResponse(p)
	}
	if res.NextSpeaker != nil {
		next := toParticipantResponse(*res.NextSpeaker)
		resp.NextSpeaker = &next
	}
	return resp
}

func ToDiscussionResponse(d *model.Discussion) DiscussionResponse {
	return toDiscussionResponse(d)
}

func toDiscussionResponse(d *model.Discussion) DiscussionResponse {
	resp := DiscussionResponse{
		ID:        d.ID,
		OrgID:     d.OrgID,
		Name:      d.Name,
		Status:    string(d.Status),
		Rules:     d.Rules,
		MaxRounds: d.MaxRounds,
		CreatedAt: d.CreatedAt.Format(timeFormat),
	}
	if d.CompletedAt != nil {
		completedAt := d.CompletedAt.Format(timeFormat)
		resp.CompletedAt = &completedAt
	}
	return resp
}

func toParticipantResponse(p model.Participant) ParticipantResponse {
	return ParticipantResponse{
		Seat:      p.Seat,
		Role:      string(p.Role),
		PersonaID: p.PersonaID,
	}
}
