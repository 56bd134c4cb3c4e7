package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verkkograph/verkko"
)

// StatsHandler handles graph statistics requests.
type StatsHandler struct {
	engine verkko.Verkko
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(engine verkko.Verkko) *StatsHandler {
	return &StatsHandler{engine: engine}
}

// GetStats handles GET /api/v1/stats. The cached row is returned by
// default; extended=true computes the live per-type breakdown instead.
func (h *StatsHandler) GetStats(c *gin.Context) {
	scope := c.Query("scope")

	if c.Query("extended") == "true" {
		stats, err := h.engine.ExtendedStatistics(c.Request.Context(), scope)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
		return
	}

	row, err := h.engine.GetStatistics(c.Request.Context(), scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// ComputeStats handles POST /api/v1/stats/compute.
func (h *StatsHandler) ComputeStats(c *gin.Context) {
	scope := c.Query("scope")

	stats, err := h.engine.ComputeStatistics(c.Request.Context(), scope)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
