package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/satyajit903/inflow-ai/internal/circuitbreaker"
)

// Prometheus bundles the exported collectors for the /metrics endpoint.
type Prometheus struct {
	calls        *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	circuitState *prometheus.GaugeVec
}

// NewPrometheus registers the collectors on reg. Passing nil uses a local
// registry that is not exposed anywhere, which keeps tests isolated.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Prometheus{
		calls: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "inflow_dependency_calls_total",
			Help: "Total guarded dependency calls by outcome.",
		}, []string{"dependency", "outcome"}),

		duration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inflow_dependency_call_duration_seconds",
			Help:    "Latency of completed dependency calls.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"dependency"}),

		circuitState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "inflow_circuit_state",
			Help: "Circuit breaker state per dependency (0=closed, 1=open, 2=half-open).",
		}, []string{"dependency"}),
	}
}

func (p *Prometheus) ObserveCall(dependency string, duration time.Duration, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	p.calls.WithLabelValues(dependency, outcome).Inc()
	p.duration.WithLabelValues(dependency).Observe(duration.Seconds())
}

func (p *Prometheus) ObserveRejection(dependency string) {
	p.calls.WithLabelValues(dependency, "rejected").Inc()
}

func (p *Prometheus) SetCircuitState(dependency string, state circuitbreaker.State) {
	p.circuitState.WithLabelValues(dependency).Set(float64(state))
}
