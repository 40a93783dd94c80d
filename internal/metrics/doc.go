// Package metrics provides real-time metrics collection for the
// orchestrator's guarded dependency calls.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Call and failure counts per dependency
//   - Fast-fail rejections (calls blocked by an open circuit)
//   - Latencies with percentile calculations (P50, P95, P99)
//   - Dependency health from the background prober
//
// The collector runs in a dedicated goroutine and processes events without
// blocking the request path. Events are emitted with non-blocking sends so a
// full buffer never degrades request handling.
//
// The same events also feed a Prometheus registry (counter by outcome,
// latency histogram, and a circuit-state gauge) for the /metrics endpoint,
// while Snapshot serves the human-readable JSON view at /stats.
//
// Example usage:
//
//	prom := metrics.NewPrometheus(prometheus.DefaultRegisterer)
//	collector := metrics.NewCollector(1000, prom, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventCallCompleted,
//		Dependency: "risk",
//		Duration:   150 * time.Millisecond,
//		Success:    true,
//	})
package metrics
