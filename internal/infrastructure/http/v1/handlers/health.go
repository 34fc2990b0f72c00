// Package handlers provides HTTP request handlers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ledgertree/internal/infrastructure/storage/postgres"
)

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	db      Pinger
	cache   Pinger
	version string
}

// NewHealthHandler creates a health handler. cache may be nil.
func NewHealthHandler(db, cache Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, version: version}
}

// Live handles the liveness probe.
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready checks the database and, when configured, the cache.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	checks := map[string]string{}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		healthy = false
	} else {
		checks["database"] = "healthy"
	}

	// A cache outage degrades to direct computation, so it is reported
	// without failing readiness.
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			checks["cache"] = "degraded: " + err.Error()
		} else {
			checks["cache"] = "healthy"
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	body := gin.H{
		"app":     "ledgertree",
		"version": h.version,
	}
	if pool, ok := h.db.(*postgres.Pool); ok {
		body["database"] = pool.Stats()
	}
	c.JSON(http.StatusOK, body)
}
