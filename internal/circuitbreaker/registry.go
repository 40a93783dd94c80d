package circuitbreaker

import (
	"log/slog"
	"sync"
)

// Registry is the single authority mapping dependency name to breaker.
// Breakers are created lazily on first lookup and live for the registry's
// lifetime; there is no removal.
type Registry struct {
	mutex         sync.RWMutex
	breakers      map[string]*CircuitBreaker
	defaultPolicy Policy
	overrides     map[string]Policy
	logger        *slog.Logger
}

// NewRegistry creates a registry. Overrides supply per-dependency policies;
// a dependency without an override gets defaultPolicy.
func NewRegistry(defaultPolicy Policy, overrides map[string]Policy, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		breakers:      make(map[string]*CircuitBreaker),
		defaultPolicy: defaultPolicy,
		overrides:     overrides,
		logger:        logger,
	}
}

// GetBreaker returns the breaker for the named dependency, creating it on
// first lookup.
func (r *Registry) GetBreaker(name string) *CircuitBreaker {
	r.mutex.RLock()
	cb, exists := r.breakers[name]
	r.mutex.RUnlock()

	if exists {
		return cb
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[name]; exists {
		return cb
	}

	policy := r.defaultPolicy
	if override, ok := r.overrides[name]; ok {
		policy = override
	}

	cb = NewCircuitBreaker(name, policy, r.logger)
	r.breakers[name] = cb
	return cb
}

// StateOf returns the current state of the named dependency's breaker,
// creating the breaker if the name is unknown. Like CircuitBreaker.State,
// the query performs the lazy open-to-half-open transition.
func (r *Registry) StateOf(name string) State {
	return r.GetBreaker(name).State()
}

// Stats returns the state of every breaker created so far.
func (r *Registry) Stats() map[string]State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]State, len(r.breakers))
	for name, cb := range r.breakers {
		stats[name] = cb.State()
	}
	return stats
}
