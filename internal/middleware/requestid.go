package middleware

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/simp-lee/logger"
)

const (
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
)

var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// RequestIDConfig controls whether an incoming X-Request-ID is reused.
type RequestIDConfig struct {
	TrustUpstream bool
}

// RequestID assigns a fresh UUIDv4 to every request, ignoring any incoming
// X-Request-ID.
func RequestID() gin.HandlerFunc {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig assigns a request id, reusing a well-formed incoming
// header when cfg.TrustUpstream is set. The id is echoed in X-Request-ID,
// stored on the gin context and attached to the request context so every
// log record and fetch record made while serving the request carries it.
func RequestIDWithConfig(cfg RequestIDConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id string
		if cfg.TrustUpstream {
			if h := c.GetHeader(RequestIDHeader); requestIDPattern.MatchString(h) {
				id = h
			}
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		ctx := logger.WithContextAttrs(c.Request.Context(), slog.String(requestIDKey, id))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetRequestID returns the id assigned to c, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestIDFromContext returns the id attached to ctx by RequestID, or "".
// It lets code that only sees a context.Context, such as upstream fetch
// observers, correlate its work with the inbound request.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	for _, a := range logger.FromContext(ctx) {
		if a.Key == requestIDKey {
			return a.Value.String()
		}
	}
	return ""
}
