package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/verkkograph/verkko"
	"github.com/verkkograph/verkko/pkg/match"
)

// EntityHandler handles entity lookup requests.
type EntityHandler struct {
	engine verkko.Verkko
}

// NewEntityHandler creates a new entity handler.
func NewEntityHandler(engine verkko.Verkko) *EntityHandler {
	return &EntityHandler{engine: engine}
}

// Search handles GET /api/v1/entities/search.
func (h *EntityHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if strings.TrimSpace(query) == "" {
		badRequest(c, "q parameter is required and cannot be empty")
		return
	}

	threshold := match.DefaultThreshold
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			badRequest(c, "threshold must be a number")
			return
		}
		threshold = parsed
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "limit must be an integer")
			return
		}
		limit = parsed
	}

	matches, err := h.engine.FindByName(c.Request.Context(), query, threshold, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"matches": matches,
		"total":   len(matches),
	})
}

// GetEntity handles GET /api/v1/entities/:id.
func (h *EntityHandler) GetEntity(c *gin.Context) {
	entity, err := h.engine.GetEntity(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

// ListByType handles GET /api/v1/entities (filtered by entity_type).
func (h *EntityHandler) ListByType(c *gin.Context) {
	entityType := c.Query("entity_type")
	if strings.TrimSpace(entityType) == "" {
		badRequest(c, "entity_type parameter is required")
		return
	}

	entities, err := h.engine.EntitiesByType(c.Request.Context(), entityType)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entities": entities,
		"total":    len(entities),
	})
}

// DocumentGraph handles GET /api/v1/documents/:id/graph.
func (h *EntityHandler) DocumentGraph(c *gin.Context) {
	graph, err := h.engine.DocumentGraph(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}
