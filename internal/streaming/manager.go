package streaming

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Manager tracks named streams for the lifetime of the process.
type Manager struct {
	mu      sync.RWMutex
	streams map[string]*Stream
}

// NewManager creates an empty stream registry.
func NewManager() *Manager {
	return &Manager{streams: make(map[string]*Stream)}
}

// Register starts a stream and records it under its name.
func (m *Manager) Register(ctx context.Context, stream *Stream) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.streams[stream.cfg.Name]; ok && existing.Status().State == StateRunning {
		return fmt.Errorf("stream %s is already running", stream.cfg.Name)
	}
	if err := stream.Start(ctx); err != nil {
		return err
	}
	m.streams[stream.cfg.Name] = stream
	return nil
}

// Get returns a registered stream by name.
func (m *Manager) Get(name string) (*Stream, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stream, ok := m.streams[name]
	return stream, ok
}

// Stop halts the named stream, leaving its checkpoint in place so a
// later start resumes without re-delivering data.
func (m *Manager) Stop(name string) error {
	m.mu.RLock()
	stream, ok := m.streams[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("stream %s not found", name)
	}
	stream.Stop()
	return nil
}

// Names returns registered stream names in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.streams))
	for name := range m.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StopAll halts every running stream, used at shutdown.
func (m *Manager) StopAll() {
	for _, name := range m.Names() {
		if stream, ok := m.Get(name); ok {
			stream.Stop()
		}
	}
}
