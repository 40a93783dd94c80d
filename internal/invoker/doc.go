// Package invoker wraps a single outbound operation with circuit breaker
// gating: it guarantees the operation is never invoked while its breaker is
// open, and reports each outcome back to the breaker and to metrics.
package invoker
