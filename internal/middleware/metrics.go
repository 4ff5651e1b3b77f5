// Package middleware provides the Gin HTTP middleware for the admin API. All
// middleware in this package is registered in internal/api/router.go before
// any route handlers so that every request is covered regardless of handler.
package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atriumhq/atrium/internal/telemetry"
)

// MetricsMiddleware returns a Gin handler that records request count and
// duration for every request.
//
// Recorded metrics:
//   - http_requests_total{method, path, status}    — CounterVec
//   - http_request_duration_seconds{method, path}  — HistogramVec
//
// The path label is set from c.FullPath(), the matched route template (e.g.
// /v1/admin/tenants/:id) rather than the raw URL. Requests that match no
// registered route use the literal string "<no-route>" so unhandled paths do
// not inflate label cardinality.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		method := c.Request.Method
		status := fmt.Sprintf("%d", c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
