package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

// DefaultShutdownTimeout bounds Stop when Run shuts the manager down.
const DefaultShutdownTimeout = 10 * time.Second

// Manager starts runnables in registration order and stops them in reverse.
type Manager struct {
	shutdownTimeout time.Duration

	mu      sync.Mutex
	servers []Runnable
	started []Runnable
}

// NewManager creates a new server manager.
func NewManager(shutdownTimeout time.Duration) *Manager {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &Manager{shutdownTimeout: shutdownTimeout}
}

// AddServer adds a runnable to the manager.
func (m *Manager) AddServer(server Runnable) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append(m.servers, server)
}

// Start starts all runnables. If one fails, those already started are stopped.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started != nil {
		return fmt.Errorf("server manager already started")
	}
	m.started = make([]Runnable, 0, len(m.servers))

	for _, s := range m.servers {
		if err := s.Start(ctx); err != nil {
			_ = m.stopLocked(ctx)
			return fmt.Errorf("failed to start %s: %w", s.Name(), err)
		}
		m.started = append(m.started, s)
		logger.Infow("Server started", "name", s.Name())
	}
	return nil
}

// Stop stops the started runnables in reverse order.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopLocked(ctx)
}

func (m *Manager) stopLocked(ctx context.Context) error {
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		s := m.started[i]
		if err := s.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", s.Name(), err))
			continue
		}
		logger.Infow("Server stopped", "name", s.Name())
	}
	m.started = m.started[:0]
	return utilerrors.NewAggregate(errs)
}

// Run starts all runnables, blocks until ctx is done and shuts down
// within the shutdown timeout.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.shutdownTimeout)
	defer cancel()
	return m.Stop(shutdownCtx)
}
