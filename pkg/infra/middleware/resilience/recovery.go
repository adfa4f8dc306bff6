// Package resilience provides recovery and timeout middleware.
package resilience

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	ctxlog "github.com/kart-io/nilm-chat/pkg/infra/logger"
	"github.com/kart-io/nilm-chat/pkg/utils/errors"
	"github.com/kart-io/nilm-chat/pkg/utils/response"
)

// PanicHandler 定义 panic 处理器类型。
type PanicHandler func(ctx *gin.Context, err interface{}, stack []byte)

// Recovery returns a middleware that recovers from panics.
func Recovery() gin.HandlerFunc {
	return RecoveryWithHandler(nil)
}

// RecoveryWithHandler 返回 Recovery 中间件，onPanic 可用于额外的告警或计数。
func RecoveryWithHandler(onPanic PanicHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()

				ctxlog.GetLogger(c.Request.Context()).Errorw("panic recovered",
					"panic", r,
					"stack_trace", string(stack),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				)

				if onPanic != nil {
					onPanic(c, r, stack)
				}

				// 堆栈只写日志，不返回给客户端
				response.Fail(c, errors.ErrPanic.WithCause(fmt.Errorf("panic: %v", r)))
			}
		}()
		c.Next()
	}
}
