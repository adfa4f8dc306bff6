package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	options "github.com/kart-io/nilm-chat/pkg/options/redis"
)

// newTestClient connects to a local redis or skips the test.
func newTestClient(t *testing.T) *Client {
	t.Helper()
	opts := options.NewOptions()
	opts.Enabled = true
	opts.Database = 15
	opts.DialTimeout = 200 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, err := New(ctx, opts)
	if err != nil {
		t.Skipf("redis not reachable: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewNilOptions(t *testing.T) {
	_, err := New(context.Background(), nil)
	assert.Error(t, err)
}

func TestClientPing(t *testing.T) {
	c := newTestClient(t)
	assert.Equal(t, "redis", c.Name())
	assert.NoError(t, c.Health()())
}

func TestJSONCache(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	cache := NewJSONCache(c.Client(), "nilm-test:")

	type device struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	var got []device
	hit, err := cache.Get(ctx, "devices", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "devices", []device{{ID: 1, Name: "Refrigerator"}}, time.Minute))
	hit, err = cache.Get(ctx, "devices", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []device{{ID: 1, Name: "Refrigerator"}}, got)

	require.NoError(t, cache.Delete(ctx, "devices"))
	hit, err = cache.Get(ctx, "devices", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestOptionsString(t *testing.T) {
	opts := options.NewOptions()
	opts.Password = "secret"
	assert.NotContains(t, opts.String(), "secret")
	assert.Contains(t, opts.String(), "[REDACTED]")
}
