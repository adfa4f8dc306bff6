package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	name    string
	pingErr error
	closed  int
}

func (f *fakeClient) Name() string               { return f.name }
func (f *fakeClient) Ping(context.Context) error { return f.pingErr }
func (f *fakeClient) Close() error               { f.closed++; return nil }
func (f *fakeClient) Health() HealthChecker      { return func() error { return f.pingErr } }

func TestManagerRegister(t *testing.T) {
	m := NewManager()
	db := &fakeClient{name: "sqlite"}

	require.NoError(t, m.Register("database", db))
	assert.ErrorIs(t, m.Register("database", db), ErrClientAlreadyExists)
	assert.ErrorIs(t, m.Register("", db), ErrInvalidConfig)
	assert.ErrorIs(t, m.Register("nil", nil), ErrInvalidConfig)

	got, err := m.Get("database")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", got.Name())

	_, err = m.Get("redis")
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestManagerHealthCheckAll(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register("database", &fakeClient{name: "sqlite"}))
	require.NoError(t, m.Register("redis", &fakeClient{name: "redis", pingErr: errors.New("refused")}))

	statuses := m.HealthCheckAll(context.Background())
	require.Len(t, statuses, 2)
	assert.True(t, statuses["database"].Healthy)
	assert.False(t, statuses["redis"].Healthy)
	assert.EqualError(t, statuses["redis"].Error, "refused")
	assert.Equal(t, []string{"database", "redis"}, m.List())
}

func TestManagerCloseAll(t *testing.T) {
	m := NewManager()
	db := &fakeClient{name: "sqlite"}
	require.NoError(t, m.Register("database", db))

	require.NoError(t, m.CloseAll())
	assert.Equal(t, 1, db.closed)
	assert.Empty(t, m.List())
}
