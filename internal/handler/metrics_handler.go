package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/satriadp/supervision-api/internal/service"
)

// MetricsHandler exposes the scrape endpoint plus liveness and readiness
// probes. readyCheck pings the dependencies a request actually needs; nil
// means readiness degrades to liveness.
type MetricsHandler struct {
	metrics    *service.MetricsService
	readyCheck func(context.Context) error
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, readyCheck func(context.Context) error) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, readyCheck: readyCheck}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health is the liveness probe, it answers as long as the process runs.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the service can take traffic.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.readyCheck != nil {
		if err := h.readyCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
