// Package observability provides logging, tracing and metrics middleware.
package observability

import (
	"time"

	"github.com/gin-gonic/gin"

	ctxlog "github.com/kart-io/nilm-chat/pkg/infra/logger"
	"github.com/kart-io/nilm-chat/pkg/infra/middleware/requestutil"
)

// LoggerOptions configures the request logger.
type LoggerOptions struct {
	// SkipPaths are not logged, e.g. /health and /metrics.
	SkipPaths []string
}

// Logger returns a middleware that logs HTTP requests with structured fields.
func Logger(opts LoggerOptions) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		req := c.Request
		path := req.URL.Path
		if _, ok := skip[path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []interface{}{
			"method", req.Method,
			"path", path,
			"status", c.Writer.Status(),
			"client_ip", requestutil.GetClientIP(req),
			"latency", latency.String(),
			"latency_ms", latency.Milliseconds(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		log := ctxlog.GetLogger(c.Request.Context())
		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Errorw("HTTP Request", fields...)
		case status >= 400:
			log.Warnw("HTTP Request", fields...)
		default:
			log.Infow("HTTP Request", fields...)
		}
	}
}
