package circuitbreaker

import (
	"log/slog"
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Blocking requests
	StateHalfOpen              // Testing recovery with trial calls
)

// Policy holds the tuning knobs for a single circuit breaker.
type Policy struct {
	FailureThreshold int           // consecutive failures before opening
	RecoveryTimeout  time.Duration // how long Open must last before a probe
	HalfOpenMaxCalls int           // consecutive successes required to close
}

// DefaultPolicy returns the documented default breaker policy.
func DefaultPolicy() Policy {
	return Policy{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

type CircuitBreaker struct {
	name   string
	policy Policy
	logger *slog.Logger

	mutex             sync.Mutex
	state             State
	failures          int
	halfOpenSuccesses int
	lastFailure       time.Time
}

// NewCircuitBreaker creates a breaker for the named dependency in closed
// state. Non-positive policy fields fall back to the defaults.
func NewCircuitBreaker(name string, policy Policy, logger *slog.Logger) *CircuitBreaker {
	defaults := DefaultPolicy()
	if policy.FailureThreshold < 1 {
		policy.FailureThreshold = defaults.FailureThreshold
	}
	if policy.RecoveryTimeout <= 0 {
		policy.RecoveryTimeout = defaults.RecoveryTimeout
	}
	if policy.HalfOpenMaxCalls < 1 {
		policy.HalfOpenMaxCalls = defaults.HalfOpenMaxCalls
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CircuitBreaker{
		name:   name,
		policy: policy,
		state:  StateClosed,
		logger: logger,
	}
}

// Name returns the dependency name this breaker guards.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// CanExecute reports whether a call may proceed. If the breaker is open and
// the recovery timeout has elapsed, it first transitions to half-open, so
// the very next call after the timeout acts as a trial probe.
//
// There is no cap on how many callers may pass while half-open: every caller
// arriving before the first probe reports back is admitted.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.evaluate()
	return cb.state != StateOpen
}

// RecordSuccess applies a successful call outcome to the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.policy.HalfOpenMaxCalls {
			cb.state = StateClosed
			cb.failures = 0
			cb.logger.Info("Circuit recovered",
				slog.String("dependency", cb.name),
				slog.String("transition", "HALF-OPEN -> CLOSED"))
		}
	case StateClosed:
		cb.failures = 0
	}
}

// RecordFailure applies a failed call outcome to the breaker.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	switch {
	case cb.state == StateHalfOpen:
		cb.state = StateOpen
		cb.logger.Warn("Circuit still failing",
			slog.String("dependency", cb.name),
			slog.String("transition", "HALF-OPEN -> OPEN"))
	case cb.state == StateClosed && cb.failures >= cb.policy.FailureThreshold:
		cb.state = StateOpen
		cb.logger.Warn("Circuit tripped",
			slog.String("dependency", cb.name),
			slog.String("transition", "CLOSED -> OPEN"),
			slog.Int("failures", cb.failures))
	}
}

// State returns the current breaker state. The read is deliberately not
// side-effect-free: a stale open breaker transitions to half-open here, the
// same lazy evaluation CanExecute performs. Repeated calls without elapsed
// time or recorded outcomes do not change state.
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.evaluate()
	return cb.state
}

// evaluate performs the lazy OPEN -> HALF-OPEN check. Caller must hold the
// mutex.
func (cb *CircuitBreaker) evaluate() {
	if cb.state != StateOpen {
		return
	}
	if cb.lastFailure.IsZero() {
		return
	}
	if time.Since(cb.lastFailure) >= cb.policy.RecoveryTimeout {
		cb.state = StateHalfOpen
		cb.halfOpenSuccesses = 0
		cb.logger.Info("Circuit probing",
			slog.String("dependency", cb.name),
			slog.String("transition", "OPEN -> HALF-OPEN"))
	}
}

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}
