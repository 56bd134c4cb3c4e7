package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verkkograph/verkko"
	"github.com/verkkograph/verkko/pkg/types"
)

// Build information - can be set at build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	engine verkko.Verkko
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(engine verkko.Verkko) *HealthHandler {
	return &HealthHandler{engine: engine}
}

// HealthCheck handles GET /health - basic liveness check.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "verkko",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// ReadinessCheck handles GET /ready. The store probe looks up an id that
// cannot exist; a not-found answer proves the store is reachable.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	response := gin.H{
		"status":    "ready",
		"service":   "verkko",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    gin.H{},
	}

	allHealthy := true
	checks := response["checks"].(gin.H)

	if h.engine != nil {
		start := time.Now()
		_, err := h.engine.GetEntity(ctx, "readiness-probe-nonexistent-id")
		duration := time.Since(start)

		switch {
		case err == nil, errors.Is(err, types.ErrNotFound):
			checks["store"] = gin.H{
				"status":   "healthy",
				"duration": duration.String(),
			}
		default:
			checks["store"] = gin.H{
				"status":   "unhealthy",
				"error":    err.Error(),
				"duration": duration.String(),
			}
			allHealthy = false
		}
	} else {
		checks["store"] = gin.H{
			"status": "unhealthy",
			"error":  "engine not initialized",
		}
		allHealthy = false
	}

	if !allHealthy {
		response["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	c.JSON(http.StatusOK, response)
}

// LivenessCheck handles GET /live - Kubernetes liveness probe endpoint.
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   "verkko",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// DetailedHealthCheck handles GET /health/detailed.
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	startTime := time.Now()
	response := gin.H{
		"status":  "healthy",
		"service": "verkko",
		"version": Version,
		"build_info": gin.H{
			"git_commit": GitCommit,
			"build_time": BuildTime,
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"environment": gin.H{
			"go_version": GoVersion,
		},
		"checks":  gin.H{},
		"metrics": gin.H{},
	}

	allHealthy := true
	checks := response["checks"].(gin.H)

	if h.engine != nil {
		probeStart := time.Now()
		_, err := h.engine.GetEntity(ctx, "health-check-detailed")
		probeDuration := time.Since(probeStart)

		storeStatus := gin.H{
			"status":      "healthy",
			"duration_ms": probeDuration.Milliseconds(),
			"operation":   "GetEntity",
		}
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			storeStatus["status"] = "unhealthy"
			storeStatus["error"] = err.Error()
			allHealthy = false
		}
		checks["store_connectivity"] = storeStatus

		statsStart := time.Now()
		_, statsErr := h.engine.GetStatistics(ctx, "")
		statsDuration := time.Since(statsStart)

		statsStatus := gin.H{
			"status":      "healthy",
			"duration_ms": statsDuration.Milliseconds(),
			"operation":   "GetStatistics",
		}
		if statsErr != nil && !errors.Is(statsErr, types.ErrNotFound) {
			statsStatus["status"] = "unhealthy"
			statsStatus["error"] = statsErr.Error()
			allHealthy = false
		}
		checks["statistics_cache"] = statsStatus
	} else {
		checks["engine"] = gin.H{
			"status": "unhealthy",
			"error":  "engine not initialized",
		}
		allHealthy = false
	}

	metrics := h.getSystemMetrics()
	checks["system"] = gin.H{
		"status":       "healthy",
		"memory_usage": metrics.MemoryUsage,
		"goroutines":   metrics.Goroutines,
		"gc_cycles":    metrics.GCCycles,
		"heap_objects": metrics.HeapObjects,
	}

	response["metrics"].(gin.H)["response_time_ms"] = time.Since(startTime).Milliseconds()

	if !allHealthy {
		response["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	c.JSON(http.StatusOK, response)
}

// SystemMetrics holds system runtime metrics.
type SystemMetrics struct {
	MemoryUsage string `json:"memory_usage"`
	Goroutines  int    `json:"goroutines"`
	GCCycles    uint32 `json:"gc_cycles"`
	HeapObjects uint64 `json:"heap_objects"`
}

func (h *HealthHandler) getSystemMetrics() SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemMetrics{
		MemoryUsage: fmt.Sprintf("%.2f MB", float64(m.Alloc)/(1024*1024)),
		Goroutines:  runtime.NumGoroutine(),
		GCCycles:    m.NumGC,
		HeapObjects: m.HeapObjects,
	}
}
