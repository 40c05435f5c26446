package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/videobuds/backend/internal/metrics"
)

// MetricsMiddleware records request counts, latency and in-flight
// connections for Prometheus.
func MetricsMiddleware() gin.HandlerFunc {
	m := metrics.Get()

	return func(c *gin.Context) {
		method := c.Request.Method
		m.HTTPActiveConnections.WithLabelValues(method).Inc()
		defer m.HTTPActiveConnections.WithLabelValues(method).Dec()

		startTime := time.Now()
		c.Next()
		duration := time.Since(startTime).Seconds()

		// FullPath keeps the route template (/api/brands/:id) so the
		// label cardinality stays bounded.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		statusStr := strconv.Itoa(c.Writer.Status())

		m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration)
	}
}
