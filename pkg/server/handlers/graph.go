package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verkkograph/verkko"
	"github.com/verkkograph/verkko/pkg/server/dto"
	"github.com/verkkograph/verkko/pkg/traversal"
)

// GraphHandler handles traversal requests.
type GraphHandler struct {
	engine verkko.Verkko
}

// NewGraphHandler creates a new graph handler.
func NewGraphHandler(engine verkko.Verkko) *GraphHandler {
	return &GraphHandler{engine: engine}
}

func toOptions(o dto.TraversalOptions, defaultDepth int) traversal.Options {
	depth := o.MaxDepth
	if depth == 0 {
		depth = defaultDepth
	}
	return traversal.Options{
		MaxDepth:      depth,
		RelationTypes: o.RelationTypes,
		MinConfidence: o.MinConfidence,
		MaxVisited:    o.MaxVisited,
	}
}

// Neighbors handles POST /api/v1/graph/neighbors.
func (h *GraphHandler) Neighbors(c *gin.Context) {
	var req dto.NeighborsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}

	neighbors, err := h.engine.Neighbors(c.Request.Context(), req.EntityID, toOptions(req.TraversalOptions, 1))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entity_id": req.EntityID,
		"neighbors": neighbors,
		"total":     len(neighbors),
	})
}

// ShortestPath handles POST /api/v1/graph/path.
func (h *GraphHandler) ShortestPath(c *gin.Context) {
	var req dto.PathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}

	path, err := h.engine.ShortestPath(c.Request.Context(), req.StartID, req.EndID, toOptions(req.TraversalOptions, 1))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, path)
}

// Subgraph handles POST /api/v1/graph/subgraph.
func (h *GraphHandler) Subgraph(c *gin.Context) {
	var req dto.SubgraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}

	// Depth zero is meaningful here (seed to seed relationships only), so
	// the request depth is passed through untouched.
	rels, err := h.engine.Subgraph(c.Request.Context(), req.EntityIDs, toOptions(req.TraversalOptions, 0))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"relationships": rels,
		"total":         len(rels),
	})
}
