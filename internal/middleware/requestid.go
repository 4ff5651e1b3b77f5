package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the HTTP header used to propagate the request
	// identifier.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key under which the request ID string
	// is stored so handlers and other middleware can retrieve it without
	// reading the response header.
	RequestIDKey = "request_id"

	// maxRequestIDLength caps inbound identifiers; anything longer is
	// replaced rather than propagated into logs.
	maxRequestIDLength = 128
)

// RequestIDMiddleware returns a Gin handler that ensures every request
// carries a unique identifier. An inbound X-Request-ID set by an upstream
// load balancer or caller is reused if it passes validRequestID; anything
// absent, oversized, or containing characters outside the safe set is
// replaced with a fresh UUID, since the header value ends up verbatim in log
// lines and audit detail. The identifier is stored under RequestIDKey and
// echoed back in the response header so clients can correlate their request
// with server-side log entries.
//
// Register this middleware before LoggerMiddleware so request logs carry the
// ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}

// validRequestID accepts identifiers of bounded length built from letters,
// digits, and the separators common to upstream tracing formats.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		ch := id[i]
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
		case ch == '-' || ch == '_' || ch == '.':
		default:
			return false
		}
	}
	return true
}
