package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verkkograph/verkko"
	"github.com/verkkograph/verkko/pkg/server/dto"
)

// ContextHandler handles community context requests.
type ContextHandler struct {
	engine verkko.Verkko
}

// NewContextHandler creates a new context handler.
func NewContextHandler(engine verkko.Verkko) *ContextHandler {
	return &ContextHandler{engine: engine}
}

// CommunityContext handles POST /api/v1/context.
func (h *ContextHandler) CommunityContext(c *gin.Context) {
	var req dto.ContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}

	bundles, err := h.engine.CommunityContext(c.Request.Context(), req.EntityIDs, req.IncludeNeighbors)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"communities": bundles,
		"total":       len(bundles),
	})
}
