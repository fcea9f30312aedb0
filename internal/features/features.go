// Package features holds runtime feature flags.
package features

import "sync"

// Predefined feature flag names
const (
	// FeatureSimulatedDonations gates the mock donation endpoint. When
	// disabled the endpoint is not reachable at all, so a client can
	// never receive a simulated success believing it was a live charge.
	FeatureSimulatedDonations = "simulated_donations"
	// FeatureCacheEnabled enables the top-artists response cache.
	FeatureCacheEnabled = "cache_enabled"
)

// FeatureFlag represents a feature flag configuration.
type FeatureFlag struct {
	Name        string
	Enabled     bool
	Description string
}

// Manager manages feature flags.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]*FeatureFlag
}

// NewManager creates a new feature flag manager.
func NewManager() *Manager {
	return &Manager{flags: make(map[string]*FeatureFlag)}
}

// Register registers a new feature flag.
func (m *Manager) Register(name string, enabled bool, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flags[name] = &FeatureFlag{
		Name:        name,
		Enabled:     enabled,
		Description: description,
	}
}

// IsEnabled checks if a feature flag is enabled. Unknown flags are
// disabled.
func (m *Manager) IsEnabled(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, exists := m.flags[name]
	return exists && flag.Enabled
}

// Enable enables a feature flag.
func (m *Manager) Enable(name string) {
	m.setEnabled(name, true)
}

// Disable disables a feature flag.
func (m *Manager) Disable(name string) {
	m.setEnabled(name, false)
}

func (m *Manager) setEnabled(name string, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if flag, exists := m.flags[name]; exists {
		flag.Enabled = enabled
	}
}
