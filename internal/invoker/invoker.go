package invoker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/satyajit903/inflow-ai/internal/circuitbreaker"
	"github.com/satyajit903/inflow-ai/internal/metrics"
)

// Operation is an outbound call passed as a first-class value. It either
// completes with a result or reports a failure; transport and latency are
// opaque to the invoker.
type Operation func() (any, error)

// CircuitOpenError is returned when the breaker refused the call. The
// operation was never attempted.
type CircuitOpenError struct {
	Dependency string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit for dependency %q is open", e.Dependency)
}

// Invoker executes outbound operations under breaker protection.
type Invoker struct {
	registry  *circuitbreaker.Registry
	collector *metrics.Collector
	logger    *slog.Logger
}

func New(registry *circuitbreaker.Registry, collector *metrics.Collector, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Invoker{
		registry:  registry,
		collector: collector,
		logger:    logger,
	}
}

// Invoke runs op under the named dependency's breaker.
//
// If the breaker refuses, a CircuitOpenError is returned immediately and op
// is never invoked. Otherwise op runs exactly once, with the breaker's lock
// released for the duration of the call, and the outcome is recorded. An
// error from op is propagated verbatim so callers can tell "breaker rejected
// the call" apart from "the dependency itself failed".
func (inv *Invoker) Invoke(dependency string, op Operation) (any, error) {
	cb := inv.registry.GetBreaker(dependency)

	if !cb.CanExecute() {
		inv.logger.Warn("Fast-failing call, circuit open",
			slog.String("dependency", dependency))
		inv.emitEvent(metrics.MetricEvent{
			Type:       metrics.EventCallRejected,
			Timestamp:  time.Now(),
			Dependency: dependency,
		})
		return nil, &CircuitOpenError{Dependency: dependency}
	}

	start := time.Now()
	result, err := op()
	duration := time.Since(start)

	if err != nil {
		cb.RecordFailure()
	} else {
		cb.RecordSuccess()
	}

	inv.emitEvent(metrics.MetricEvent{
		Type:       metrics.EventCallCompleted,
		Timestamp:  time.Now(),
		Dependency: dependency,
		Duration:   duration,
		Success:    err == nil,
	})

	return result, err
}

// StateOf reports the named dependency's circuit state. The query carries
// the breaker's lazy open-to-half-open side effect.
func (inv *Invoker) StateOf(dependency string) circuitbreaker.State {
	return inv.registry.StateOf(dependency)
}

func (inv *Invoker) emitEvent(event metrics.MetricEvent) {
	if inv.collector == nil {
		return
	}
	inv.collector.Emit(event)
}
