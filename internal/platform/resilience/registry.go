package resilience

import "sync"

// Registry holds one breaker per named dependency so every call site
// referring to the same dependency shares one failure history. Breakers are
// created lazily and never removed.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	defaults Config
}

func NewRegistry(defaults Config) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		defaults: NormalizeConfig(defaults),
	}
}

// Get returns the breaker for name, creating it with the registry defaults
// on first use.
func (r *Registry) Get(name string) *Breaker {
	return r.GetWithConfig(name, r.defaults)
}

// GetWithConfig returns the breaker for name, creating it with cfg on first
// use. The first configuration wins: later calls with a different cfg return
// the existing breaker untouched. Known sharp edge, kept because shared
// breaker identity is the point of the registry.
func (r *Registry) GetWithConfig(name string, cfg Config) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok = r.breakers[name]; ok {
		return b
	}

	b = New(name, cfg)
	r.breakers[name] = b
	return b
}

// AllStats snapshots every registered breaker, keyed by name.
func (r *Registry) AllStats() map[string]Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Stats, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.Stats()
	}
	return out
}

// ResetAll forces every registered breaker closed. Operator and test use
// only.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.breakers {
		b.Reset()
	}
}
