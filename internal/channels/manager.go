package channels

import (
	"context"
	"log"
	"sync"
)

// Manager owns all registered adapters and their per-channel settings.
type Manager struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	settings map[string]Settings
}

// NewManager creates a manager with the given per-channel settings.
func NewManager(settings map[string]Settings) *Manager {
	if settings == nil {
		settings = make(map[string]Settings)
	}
	return &Manager{
		adapters: make(map[string]Adapter),
		settings: settings,
	}
}

// Register adds an adapter.
func (m *Manager) Register(a Adapter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adapters[a.Name()] = a
}

// Get returns an adapter by channel name, or nil.
func (m *Manager) Get(name string) Adapter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adapters[name]
}

// Names returns the registered channel names.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.adapters))
	for name := range m.adapters {
		names = append(names, name)
	}
	return names
}

// Settings returns the delivery policy for a channel, falling back to
// defaults for unconfigured channels.
func (m *Manager) Settings(name string) Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.settings[name]; ok {
		if s.RateLimitPerMinute <= 0 {
			s.RateLimitPerMinute = DefaultSettings().RateLimitPerMinute
		}
		if s.TimeoutSeconds <= 0 {
			s.TimeoutSeconds = DefaultSettings().TimeoutSeconds
		}
		return s
	}
	return DefaultSettings()
}

// StartAll starts adapters that hold long-lived connections.
func (m *Manager) StartAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, a := range m.adapters {
		if lc, ok := a.(lifecycle); ok {
			if err := lc.Start(ctx); err != nil {
				log.Printf("[Channels] ⚠️ %s failed to start: %v", name, err)
			}
		}
	}
}

// StopAll stops adapters that hold long-lived connections.
func (m *Manager) StopAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, a := range m.adapters {
		if lc, ok := a.(lifecycle); ok {
			if err := lc.Stop(); err != nil {
				log.Printf("[Channels] ⚠️ Error stopping %s: %v", name, err)
			}
		}
	}
}
