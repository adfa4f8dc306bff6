package resilience

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/gin-gonic/gin"

	ctxlog "github.com/kart-io/nilm-chat/pkg/infra/logger"
	"github.com/kart-io/nilm-chat/pkg/utils/errors"
	"github.com/kart-io/nilm-chat/pkg/utils/response"
)

// TimeoutConfig defines the config for Timeout middleware.
type TimeoutConfig struct {
	// Timeout is the request timeout duration. Zero disables the middleware.
	Timeout time.Duration

	// SkipPaths is a list of paths to skip timeout.
	SkipPaths []string
}

// Timeout returns a middleware that limits request processing time.
func Timeout(timeout time.Duration) gin.HandlerFunc {
	return TimeoutWithConfig(TimeoutConfig{Timeout: timeout})
}

// TimeoutWithConfig returns a Timeout middleware with custom config.
//
// The deadline is attached to the request context and the handler runs on the
// request goroutine, so handlers observe cancellation through ctx. When the
// deadline expired and nothing was written yet, a 504 envelope is returned.
func TimeoutWithConfig(config TimeoutConfig) gin.HandlerFunc {
	skipPaths := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *gin.Context) {
		if config.Timeout <= 0 || skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), config.Timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			ctxlog.GetLogger(ctx).Warnw("request timed out",
				"path", c.Request.URL.Path,
				"timeout", config.Timeout.String(),
			)
			response.Fail(c, errors.ErrRequestTimeout)
		}
	}
}
