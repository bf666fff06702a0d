package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"wealthos.app/roundtable/common/llm"
)

const (
	plannerMaxSeats  = 6
	plannerMaxTokens = 800
)

var ErrEmptyTopic = errors.New("a discussion topic is required")

// RosterPlan is the model's proposed speaker lineup for a topic. The manager
// is always present; experts are suggestions the caller may edit before
// creating the discussion.
type RosterPlan struct {
	Title   string        `json:"title" jsonschema_description:"Short working title for the discussion"`
	Experts []PlannedSeat `json:"experts" jsonschema_description:"Proposed expert seats in speaking order"`
	Rules   []string      `json:"rules" jsonschema_description:"Suggested ground rules for the discussion"`
}

type PlannedSeat struct {
	Name      string `json:"name" jsonschema_description:"Display name of the expert"`
	Specialty string `json:"specialty" jsonschema_description:"One-line description of the expertise this seat contributes"`
}

type RosterPlannerService interface {
	Plan(ctx context.Context, topic string) (*RosterPlan, error)
}

type rosterPlannerService struct {
	client llm.Client
}

func NewRosterPlannerService(client llm.Client) RosterPlannerService {
	return &rosterPlannerService{client: client}
}

const plannerSystemPrompt = `You assemble expert panels for wealth-engineering discussions.
Given a client topic, propose the smallest useful set of experts (2 to %d seats) whose
specialties together cover the topic. Do not include a moderator or the client; those
seats exist already. Keep specialties concrete (e.g. "cross-border inheritance tax"),
not generic (e.g. "finance expert").`

func (s *rosterPlannerService) Plan(ctx context.Context, topic string) (*RosterPlan, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	var plan RosterPlan
	_, err := s.client.Chat(ctx, llm.Request{
		SystemPrompt: fmt.Sprintf(plannerSystemPrompt, plannerMaxSeats),
		UserPrompt:   fmt.Sprintf("Topic: %s", topic),
		SchemaName:   "roster_plan",
		Schema:       llm.GenerateSchema[RosterPlan](),
		MaxTokens:    plannerMaxTokens,
		Temperature:  llm.Temp(0.3),
	}, &plan)
	if err != nil {
		return nil, fmt.Errorf("planning roster: %w", err)
	}

	if len(plan.Experts) > plannerMaxSeats {
		plan.Experts = plan.Experts[:plannerMaxSeats]
	}

	slog.InfoContext(ctx, "roster planned",
		"topic", topic,
		"experts", len(plan.Experts),
		"model", s.client.Model(),
	)

	return &plan, nil
}
