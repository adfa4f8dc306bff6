// Package middleware provides the gin middleware chain of the HTTP server.
package middleware

import (
	"github.com/gin-gonic/gin"

	ctxlog "github.com/kart-io/nilm-chat/pkg/infra/logger"
	"github.com/kart-io/nilm-chat/pkg/infra/middleware/requestutil"
	"github.com/kart-io/nilm-chat/pkg/utils/id"
)

// RequestIDConfig defines the config for RequestID middleware.
type RequestIDConfig struct {
	// Header is the header name to use for request ID.
	// Default: "X-Request-ID"
	Header string

	// Generator produces new request IDs.
	// Default: monotonic ULID
	Generator id.Generator
}

// RequestID returns a middleware that adds a unique request ID to each request.
// The request ID is added to:
//   - Response header (X-Request-ID)
//   - Request context (can be retrieved with requestutil.GetRequestID)
//   - Context log fields (see pkg/infra/logger)
func RequestID() gin.HandlerFunc {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig returns a RequestID middleware with custom config.
func RequestIDWithConfig(config RequestIDConfig) gin.HandlerFunc {
	if config.Header == "" {
		config.Header = requestutil.HeaderXRequestID
	}
	if config.Generator == nil {
		config.Generator = id.NewULIDGenerator()
	}

	return func(c *gin.Context) {
		requestID := c.GetHeader(config.Header)
		if requestID == "" || len(requestID) > 128 {
			requestID = config.Generator.Generate()
		}

		c.Header(config.Header, requestID)
		ctx := requestutil.WithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctxlog.WithRequestID(ctx, requestID))
		c.Next()
	}
}
