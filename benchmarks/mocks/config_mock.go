package mocks

import (
	"sync"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/config"
)

// MockConfigProvider implements config.Provider for tests and benchmarks
type MockConfigProvider struct {
	mu     sync.RWMutex
	config *config.Config
}

// NewMockConfigProvider creates a mock provider seeded with config.Defaults,
// pointing the upstreams at unroutable hosts so nothing leaves the process by accident.
func NewMockConfigProvider() *MockConfigProvider {
	cfg := config.Defaults()
	cfg.Log.Level = "error" // Minimize I/O overhead during benchmarks
	cfg.App.ServiceName = "accessibility-finder-test"
	cfg.App.Version = "test"
	cfg.Upstream.NominatimBaseURL = "http://nominatim.invalid/search"
	cfg.Upstream.OverpassBaseURL = "http://overpass.invalid/api/interpreter"
	cfg.Upstream.HTTPTimeoutSeconds = 2
	cfg.Cache.SweepIntervalSeconds = 0
	return &MockConfigProvider{config: cfg}
}

// Get implements config.Provider
func (m *MockConfigProvider) Get() *config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// UpdateConfig applies fn to a copy of the current config and swaps it in, like a hot reload
func (m *MockConfigProvider) UpdateConfig(fn func(cfg *config.Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := *m.config
	fn(&next)
	m.config = &next
}
