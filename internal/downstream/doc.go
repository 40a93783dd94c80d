// Package downstream provides HTTP clients for the downstream analysis
// services. Each client builds breaker-gated operations for the invoker and
// carries the health status maintained by the background prober.
package downstream
