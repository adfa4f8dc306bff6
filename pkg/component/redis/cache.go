package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/nilm-chat/pkg/utils/json"
)

// JSONCache stores JSON encoded values under a key prefix.
type JSONCache struct {
	rdb    goredis.UniversalClient
	prefix string
}

// NewJSONCache creates a cache on top of rdb. Keys are stored as prefix+key.
func NewJSONCache(rdb goredis.UniversalClient, prefix string) *JSONCache {
	return &JSONCache{rdb: rdb, prefix: prefix}
}

// Get decodes the value of key into dst. The boolean is false on a cache miss.
func (c *JSONCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores v under key for ttl.
func (c *JSONCache) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.prefix+key, raw, ttl).Err()
}

// Delete removes the given keys.
func (c *JSONCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	return c.rdb.Del(ctx, full...).Err()
}
