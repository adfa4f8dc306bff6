package storage

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"
	"time"
)

// Manager manages multiple storage clients and provides centralized
// health checking and lifecycle management.
// It is safe for concurrent use.
//
// Example usage:
//
//	mgr := storage.NewManager()
//	mgr.Register("database", dbClient)
//	mgr.Register("redis", redisClient)
//
//	statuses := mgr.HealthCheckAll(ctx)
//	defer mgr.CloseAll()
type Manager struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewManager creates a new storage manager instance.
func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]Client),
	}
}

// Register registers a storage client with the given name.
func (m *Manager) Register(name string, client Client) error {
	if name == "" {
		return ErrInvalidConfig.WithMessage("client name cannot be empty")
	}
	if client == nil {
		return ErrInvalidConfig.WithMessage("client cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[name]; exists {
		return ErrClientAlreadyExists.WithMessage("storage client already exists: " + name)
	}
	m.clients[name] = client
	return nil
}

// Get returns the client registered under name.
func (m *Manager) Get(name string) (Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, ok := m.clients[name]
	if !ok {
		return nil, ErrClientNotFound.WithMessage("storage client not found: " + name)
	}
	return client, nil
}

// List returns the registered names in sorted order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthCheckAll pings all registered clients concurrently.
func (m *Manager) HealthCheckAll(ctx context.Context) map[string]HealthStatus {
	m.mu.RLock()
	clients := make(map[string]Client, len(m.clients))
	for name, client := range m.clients {
		clients[name] = client
	}
	m.mu.RUnlock()

	statuses := make(map[string]HealthStatus, len(clients))
	var statusMu sync.Mutex
	var wg sync.WaitGroup

	for name, client := range clients {
		wg.Add(1)
		go func(n string, c Client) {
			defer wg.Done()

			start := time.Now()
			err := c.Ping(ctx)
			latency := time.Since(start)

			statusMu.Lock()
			statuses[n] = HealthStatus{
				Name:    n,
				Healthy: err == nil,
				Latency: latency,
				Error:   err,
			}
			statusMu.Unlock()
		}(name, client)
	}

	wg.Wait()
	return statuses
}

// CloseAll closes every client and empties the manager.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, client := range m.clients {
		if err := client.Close(); err != nil {
			errs = append(errs, ErrInvalidConfig.WithMessage("failed to close "+name).WithCause(err))
		}
	}
	m.clients = make(map[string]Client)
	return stderrors.Join(errs...)
}
