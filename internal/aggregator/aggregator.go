package aggregator

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/satyajit903/inflow-ai/internal/invoker"
)

// SentinelUnknown replaces a non-critical dependency's result when that
// dependency fails.
const SentinelUnknown = "UNKNOWN"

// Criticality tags a dependency call. The zero value is NonCritical, so an
// untagged call degrades rather than aborts.
type Criticality int

const (
	NonCritical Criticality = iota
	Critical
)

func (c Criticality) String() string {
	if c == Critical {
		return "critical"
	}
	return "non-critical"
}

// DependencyCall names one dependency, its criticality, and the outbound
// operation to invoke.
type DependencyCall struct {
	Name        string
	Criticality Criticality
	Operation   invoker.Operation
}

// CriticalDependencyError terminates an aggregation: a critical dependency
// failed, so no partial response may be surfaced.
type CriticalDependencyError struct {
	Dependency string
	Err        error
}

func (e *CriticalDependencyError) Error() string {
	return fmt.Sprintf("critical dependency %q failed: %v", e.Dependency, e.Err)
}

func (e *CriticalDependencyError) Unwrap() error {
	return e.Err
}

// Aggregator fans a request out to several guarded dependencies and merges
// the outcomes under the criticality policy.
type Aggregator struct {
	invoker *invoker.Invoker
	logger  *slog.Logger
}

func New(inv *invoker.Invoker, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Aggregator{
		invoker: inv,
		logger:  logger,
	}
}

type callResult struct {
	value any
	err   error
}

// Aggregate invokes every call through the breaker-gated invoker and merges
// the results keyed by dependency name.
//
// Calls run concurrently; they share no state besides the breaker registry.
// A critical failure (circuit open or the operation's own error) makes the
// whole aggregation fail with CriticalDependencyError and discards results
// already obtained. A non-critical failure fills that dependency's slot with
// SentinelUnknown and aggregation continues. A critical failure always wins
// over any number of non-critical failures.
func (a *Aggregator) Aggregate(calls []DependencyCall) (map[string]any, error) {
	results := make([]callResult, len(calls))

	var wg sync.WaitGroup
	wg.Add(len(calls))

	for i, call := range calls {
		go func(i int, call DependencyCall) {
			defer wg.Done()
			value, err := a.invoker.Invoke(call.Name, call.Operation)
			results[i] = callResult{value: value, err: err}
		}(i, call)
	}

	wg.Wait()

	// Critical failures first: nothing partial leaves this function.
	for i, call := range calls {
		if results[i].err != nil && call.Criticality == Critical {
			a.logger.Error("Critical dependency failed",
				slog.String("dependency", call.Name),
				slog.Any("err", results[i].err))
			return nil, &CriticalDependencyError{
				Dependency: call.Name,
				Err:        results[i].err,
			}
		}
	}

	response := make(map[string]any, len(calls))
	for i, call := range calls {
		if results[i].err != nil {
			a.logger.Warn("Degrading non-critical dependency",
				slog.String("dependency", call.Name),
				slog.Any("err", results[i].err))
			response[call.Name] = SentinelUnknown
			continue
		}
		response[call.Name] = results[i].value
	}

	return response, nil
}
