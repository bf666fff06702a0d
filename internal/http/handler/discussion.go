package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wealthos.app/roundtable/internal/engine"
	"wealthos.app/roundtable/internal/http/dto"
	"wealthos.app/roundtable/internal/model"
	"wealthos.app/roundtable/internal/service"
)

type DiscussionHandler struct {
	discussions service.DiscussionService
	planner     service.RosterPlannerService
}

func NewDiscussionHandler(discussions service.DiscussionService, planner service.RosterPlannerService) *DiscussionHandler {
	return &DiscussionHandler{
		discussions: discussions,
		planner:     planner,
	}
}

// Get returns the full discussion snapshot.
func (h *DiscussionHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	discussionID, ok := parseIDParam(c)
	if !ok {
		return
	}

	res, err := h.discussions.Get(ctx, discussionID)
	if err != nil {
		if errors.Is(err, service.ErrDiscussionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "discussion not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load discussion", "error", err, "discussion_id", discussionID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load discussion"})
		return
	}

	c.JSON(http.StatusOK, dto.ToSnapshotResponse(res))
}

// Advance records the caller's message (when given) and runs the turn loop.
// A busy discussion returns 409; the caller should retry shortly.
func (h *DiscussionHandler) Advance(c *gin.Context) {
	ctx := c.Request.Context()

	discussionID, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req dto.AdvanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.discussions.Advance(ctx, discussionID, req.Message, req.ActorName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDiscussionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "discussion not found"})
		case errors.Is(err, service.ErrAdvanceInFlight):
			c.Header("Retry-After", "2")
			c.JSON(http.StatusConflict, gin.H{"error": "an advance is already in flight, retry shortly", "code": "busy"})
		case errors.Is(err, engine.ErrDiscussionCompleted):
			c.JSON(http.StatusBadRequest, gin.H{"error": "discussion is completed", "code": "completed"})
		case errors.Is(err, engine.ErrUserQuotaExhausted):
			c.JSON(http.StatusBadRequest, gin.H{"error": "user speech quota exhausted", "code": "quota_exhausted"})
		case errors.Is(err, engine.ErrNoParticipants):
			c.JSON(http.StatusBadRequest, gin.H{"error": "discussion has no participants", "code": "no_participants"})
		default:
			slog.ErrorContext(ctx, "advance failed", "error", err, "discussion_id", discussionID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to advance discussion"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToSnapshotResponse(res))
}

// Create sets up a new discussion with its full roster.
func (h *DiscussionHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateDiscussionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seats := make([]service.SeatInput, len(req.Seats))
	for i, s := range req.Seats {
		seats[i] = service.SeatInput{
			Role:      model.ParticipantRole(s.Role),
			PersonaID: s.PersonaID,
		}
	}

	discussion, err := h.discussions.Create(ctx, service.CreateDiscussionInput{
		OrgID:     req.OrgID,
		Name:      req.Name,
		Rules:     req.Rules,
		MaxRounds: req.MaxRounds,
		Seats:     seats,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPersonaNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrNoManagerSeat),
			errors.Is(err, service.ErrTooManyUserSeats),
			errors.Is(err, engine.ErrNoParticipants):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			slog.ErrorContext(ctx, "failed to create discussion", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create discussion"})
		}
		return
	}

	c.JSON(http.StatusCreated, dto.ToDiscussionResponse(discussion))
}

// Plan proposes an expert roster for a topic.
func (h *DiscussionHandler) Plan(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
		return
	}

	plan, err := h.planner.Plan(ctx, req.Topic)
	if err != nil {
		if errors.Is(err, service.ErrEmptyTopic) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
			return
		}
		slog.ErrorContext(ctx, "roster planning failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to plan roster"})
		return
	}

	c.JSON(http.StatusOK, plan)
}

func parseIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid discussion id"})
		return 0, false
	}
	return id, true
}
