package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	ctxlog "github.com/kart-io/nilm-chat/pkg/infra/logger"
)

// redisLogger forwards go-redis internal messages (reconnects, pool
// timeouts) to the service logger with the caller's request fields.
type redisLogger struct{}

func (redisLogger) Printf(ctx context.Context, format string, v ...interface{}) {
	ctxlog.GetLogger(ctx).Warnf(format, v...)
}

func init() {
	goredis.SetLogger(redisLogger{})
}
