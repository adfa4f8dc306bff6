// Package storage defines the contract shared by the database and cache
// clients and a manager that health checks and closes them together.
package storage

import (
	"context"
	"time"
)

// HealthChecker reports whether a backend is reachable.
type HealthChecker func() error

// Client is implemented by every storage backend client.
type Client interface {
	// Name returns the storage type identifier, e.g. "sqlite" or "redis".
	Name() string
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the connection. It is safe to call more than once.
	Close() error
	// Health returns a checker bound to a short internal timeout.
	Health() HealthChecker
}

// HealthStatus is the result of a single health check.
type HealthStatus struct {
	Name    string        `json:"name"`
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
	Error   error         `json:"-"`
}
