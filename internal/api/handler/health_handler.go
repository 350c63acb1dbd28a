package handler

import (
	"context"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 3 * time.Second

// HealthHandler answers liveness and readiness checks
type HealthHandler struct {
	logger *slog.Logger
	checks map[string]HealthChecker
}

func NewHealthHandler(deps *Dependencies) *HealthHandler {
	return &HealthHandler{
		logger: deps.Logger,
		checks: deps.HealthChecks,
	}
}

// Healthy handles GET /api/v1/healthy
func (h *HealthHandler) Healthy(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Ready handles GET /api/v1/ready
// 503 names the first backing service that fails its check.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	for _, name := range slices.Sorted(maps.Keys(h.checks)) {
		if err := h.checks[name].HealthCheck(ctx); err != nil {
			h.logger.Warn("Readiness check failed",
				slog.String("service", name),
				slog.Any("error", err),
			)
			respondError(c, http.StatusServiceUnavailable, name+" unavailable")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
