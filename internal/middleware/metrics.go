package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/satriadp/supervision-api/internal/service"
)

// Metrics records duration and status per route template. The scrape
// endpoint itself is left out so it does not inflate its own series.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, status, duration)
	}
}
