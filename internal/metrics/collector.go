package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/satyajit903/inflow-ai/internal/circuitbreaker"
)

type EventType string

const (
	EventCallCompleted EventType = "call_completed"
	EventCallRejected  EventType = "call_rejected"
	EventHealthChanged EventType = "health_changed"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Dependency string
	Duration   time.Duration
	Success    bool
	Healthy    bool
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	prom    *Prometheus
	logger  *slog.Logger
}

func NewCollector(bufferSize int, prom *Prometheus, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		prom:    prom,
		logger:  logger,
	}
}

// EventChannel returns the send side of the event pipeline. Senders must
// use non-blocking sends so a full buffer never stalls the request path.
func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit sends an event without blocking; events are dropped when the buffer
// is full.
func (c *Collector) Emit(event MetricEvent) {
	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventCallCompleted:
		c.metrics.RecordCall(event.Dependency, event.Duration, event.Success)
		if c.prom != nil {
			c.prom.ObserveCall(event.Dependency, event.Duration, event.Success)
		}

	case EventCallRejected:
		c.metrics.RecordRejection(event.Dependency)
		if c.prom != nil {
			c.prom.ObserveRejection(event.Dependency)
		}

	case EventHealthChanged:
		c.metrics.UpdateHealthStatus(event.Dependency, event.Healthy)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}

// SyncCircuits publishes breaker states to the Prometheus gauge. Note that
// reading the states performs the breakers' lazy open-to-half-open check.
func (c *Collector) SyncCircuits(stats map[string]circuitbreaker.State) {
	if c.prom == nil {
		return
	}
	for dep, state := range stats {
		c.prom.SetCircuitState(dep, state)
	}
}
