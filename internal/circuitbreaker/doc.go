// Package circuitbreaker implements the circuit breaker pattern for
// downstream dependency isolation.
//
// A circuit breaker prevents cascading failures by temporarily blocking
// calls to a failing dependency. It has three states:
//
//   - CLOSED: Normal operation, calls pass through
//   - OPEN: Dependency failing, calls rejected without being attempted
//   - HALF-OPEN: Testing recovery; a run of consecutive successes closes
//     the circuit again, a single failure reopens it
//
// Usage:
//
//	registry := circuitbreaker.NewRegistry(circuitbreaker.DefaultPolicy(), overrides, logger)
//	cb := registry.GetBreaker("risk")
//	if cb.CanExecute() {
//	    // Make the call...
//	    if err != nil {
//	        cb.RecordFailure()
//	    } else {
//	        cb.RecordSuccess()
//	    }
//	}
//
// Note that CanExecute and State are not pure reads: an open breaker whose
// recovery timeout has elapsed transitions to half-open inside the query.
package circuitbreaker
