package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/chemindex/pkg/types/common"
)

// HealthChecker is a backend that can report its health.
type HealthChecker interface {
	Health(ctx context.Context) common.ComponentHealth
}

// HealthHandler serves the liveness and health probes.
type HealthHandler struct {
	checkers []HealthChecker
	version  string
	timeout  time.Duration
	startAt  time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		version:  version,
		timeout:  5 * time.Second,
		startAt:  time.Now(),
	}
}

// LivenessResponse is the body of /livez.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status     common.HealthStatus      `json:"status"`
	Version    string                   `json:"version"`
	Components []common.ComponentHealth `json:"components"`
}

// Liveness handles GET /livez. It never checks dependencies.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Health handles GET /healthz. It answers 503 only when every component is
// down; a degraded service still serves reads.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	components := h.checkAll(ctx)
	status := common.HealthUp
	if len(components) > 0 {
		status = common.Overall(components)
	}

	code := http.StatusOK
	if status == common.HealthDown {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{Status: status, Version: h.version, Components: components})
}

// checkAll runs every checker concurrently; results keep checker order.
func (h *HealthHandler) checkAll(ctx context.Context) []common.ComponentHealth {
	results := make([]common.ComponentHealth, len(h.checkers))
	var wg sync.WaitGroup
	for i, checker := range h.checkers {
		wg.Add(1)
		go func(i int, checker HealthChecker) {
			defer wg.Done()
			results[i] = checker.Health(ctx)
		}(i, checker)
	}
	wg.Wait()
	return results
}

//Personal.AI order the ending
