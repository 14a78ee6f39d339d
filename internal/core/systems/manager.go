package systems

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zeusync/flatsim/internal/core/observability/log"
)

// Manager owns a set of systems and runs them in priority order.
type Manager struct {
	mu      sync.Mutex
	entries []*entry
	logger  log.Log
}

type entry struct {
	system  System
	metrics Metrics
}

func NewManager(logger log.Log) *Manager {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Manager{logger: logger.With(log.String("component", "systems"))}
}

// Register adds s. Systems with equal priority keep registration order.
func (m *Manager) Register(s System) error {
	if s == nil {
		return ErrNilSystem
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.system.Name() == s.Name() {
			return fmt.Errorf("%w: %s", ErrSystemExists, s.Name())
		}
	}

	m.entries = append(m.entries, &entry{system: s})
	sort.SliceStable(m.entries, func(i, j int) bool {
		return m.entries[i].system.Priority() > m.entries[j].system.Priority()
	})

	m.logger.Debug("System registered",
		log.String("system", s.Name()),
		log.Int("priority", int(s.Priority())))
	return nil
}

func (m *Manager) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, e := range m.entries {
		if e.system.Name() == name {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrSystemNotFound, name)
}

func (m *Manager) Get(name string) (System, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.system.Name() == name {
			return e.system, true
		}
	}
	return nil, false
}

// ExecutionOrder lists system names in the order Update runs them.
func (m *Manager) ExecutionOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, len(m.entries))
	for i, e := range m.entries {
		names[i] = e.system.Name()
	}
	return names
}

func (m *Manager) Metrics(name string) (Metrics, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries {
		if e.system.Name() == name {
			return e.metrics, true
		}
	}
	return Metrics{}, false
}

// InitializeAll stops at the first failing system.
func (m *Manager) InitializeAll(ctx context.Context) error {
	for _, s := range m.snapshot() {
		if err := s.Initialize(ctx); err != nil {
			return fmt.Errorf("initialize %s: %w", s.Name(), err)
		}
	}
	return nil
}

// Update runs every system once. A failing system does not stop the others;
// all errors are joined.
func (m *Manager) Update(deltaTime float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all error
	for _, e := range m.entries {
		start := time.Now()
		err := e.system.Update(deltaTime)
		e.metrics.record(time.Since(start), err)
		if err != nil {
			m.logger.Warn("System update failed", log.String("system", e.system.Name()), log.Error(err))
			all = errors.Join(all, fmt.Errorf("%s: %w", e.system.Name(), err))
		}
	}
	return all
}

// ShutdownAll shuts systems down in reverse execution order.
func (m *Manager) ShutdownAll(ctx context.Context) error {
	list := m.snapshot()

	var all error
	for i := len(list) - 1; i >= 0; i-- {
		if err := list[i].Shutdown(ctx); err != nil {
			all = errors.Join(all, fmt.Errorf("shutdown %s: %w", list[i].Name(), err))
		}
	}
	return all
}

func (m *Manager) snapshot() []System {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]System, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.system
	}
	return out
}
