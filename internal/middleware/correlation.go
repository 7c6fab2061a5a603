package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// CorrelationID adds a correlation ID to each request and injects it into the logger
func CorrelationID(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// reuse the id from the proxy/load balancer when present
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		reqLogger := logger.With().Str("request_id", requestID).Logger()
		ctx := context.WithValue(c.Request.Context(), requestIDKey{}, requestID)
		ctx = reqLogger.WithContext(ctx)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequestID extracts the request ID from context
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
