// Package healthcheck provides periodic health monitoring of downstream
// dependencies via HTTP health endpoints. Probes are observability only and
// independent of the circuit breakers guarding real traffic.
package healthcheck
