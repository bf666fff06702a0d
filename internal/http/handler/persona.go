package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wealthos.app/roundtable/internal/http/dto"
	"wealthos.app/roundtable/internal/service"
)

type PersonaHandler struct {
	personas    service.PersonaService
	adminAPIKey string
}

func NewPersonaHandler(personas service.PersonaService, adminAPIKey string) *PersonaHandler {
	return &PersonaHandler{
		personas:    personas,
		adminAPIKey: adminAPIKey,
	}
}

// Create registers a new persona (admin only).
func (h *PersonaHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreatePersonaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	persona, err := h.personas.Create(ctx, service.CreatePersonaInput{
		Name:          req.Name,
		SystemPrompt:  req.SystemPrompt,
		Provider:      req.Provider,
		Model:         req.Model,
		Temperature:   req.Temperature,
		MaxTokens:     req.MaxTokens,
		StopSequences: req.StopSequences,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPersonaNameRequired),
			errors.Is(err, service.ErrPersonaPromptRequired),
			errors.Is(err, service.ErrUnknownProvider):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			slog.ErrorContext(ctx, "failed to create persona", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create persona"})
		}
		return
	}

	c.JSON(http.StatusCreated, dto.ToPersonaResponse(persona))
}

func (h *PersonaHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	personaID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid persona id"})
		return
	}

	persona, err := h.personas.Get(ctx, personaID)
	if err != nil {
		if errors.Is(err, service.ErrPersonaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "persona not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load persona", "error", err, "persona_id", personaID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load persona"})
		return
	}

	c.JSON(http.StatusOK, dto.ToPersonaResponse(persona))
}

func (h *PersonaHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 32)
	offset, _ := strconv.ParseInt(c.DefaultQuery("offset", "0"), 10, 32)

	personas, err := h.personas.List(ctx, int32(limit), int32(offset))
	if err != nil {
		slog.ErrorContext(ctx, "failed to list personas", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list personas"})
		return
	}

	resp := dto.ListPersonasResponse{
		Personas: make([]dto.PersonaResponse, len(personas)),
	}
	for i := range personas {
		resp.Personas[i] = dto.ToPersonaResponse(&personas[i])
	}

	c.JSON(http.StatusOK, resp)
}

// RequireAdminAPIKey middleware checks for a valid admin API key.
func (h *PersonaHandler) RequireAdminAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.adminAPIKey == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin API not configured"})
			c.Abort()
			return
		}

		apiKey := c.GetHeader("X-Admin-API-Key")
		if apiKey == "" {
			apiKey = c.GetHeader("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}

		if apiKey != h.adminAPIKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
