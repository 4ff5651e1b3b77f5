package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggerMiddleware returns a Gin handler that writes one structured log line
// per request: method, path, status, duration, and the request ID set by
// RequestIDMiddleware.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if id, ok := c.Get(RequestIDKey); ok {
			attrs = append(attrs, "request_id", id)
		}

		if c.Writer.Status() >= 500 {
			slog.Error("request", attrs...)
		} else {
			slog.Info("request", attrs...)
		}
	}
}
