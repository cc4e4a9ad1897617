package provider

import (
	"github.com/dispatchkit/notifyd/internal/domain"
)

// Registry maps a provider enum to the adapter instance that realizes it.
// Built once at startup from configuration; read-only and safe for
// concurrent lookup thereafter.
type Registry struct {
	adapters map[domain.Provider]Provider
}

// NewRegistry returns an empty registry. Use Register to populate it.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[domain.Provider]Provider)}
}

// Register binds a provider enum to an adapter instance. A later call for
// the same enum replaces the earlier one.
func (r *Registry) Register(p domain.Provider, adapter Provider) {
	r.adapters[p] = adapter
}

// Resolve returns the adapter registered for p, or (nil, false) if none was
// configured. Workers treat a miss as a non-retryable provider_unconfigured
// failure rather than an error, per §4.4 step 6.
func (r *Registry) Resolve(p domain.Provider) (Provider, bool) {
	a, ok := r.adapters[p]
	return a, ok
}
