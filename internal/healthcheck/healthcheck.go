package healthcheck

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/satyajit903/inflow-ai/internal/downstream"
	"github.com/satyajit903/inflow-ai/internal/metrics"
)

// HealthCheck periodically checks if a downstream dependency is healthy by
// sending HTTP GET requests to its /health endpoint. The probe is passive
// observability: it updates the client's health flag and metrics but never
// touches the dependency's circuit breaker.
func HealthCheck(
	ctx context.Context,
	client *downstream.Client,
	interval time.Duration,
	logger *slog.Logger,
	collector *metrics.Collector,
) {
	httpClient := &http.Client{
		Timeout: 5 * time.Second,
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health check stopped",
				slog.String("dependency", client.Name()))
			return

		case <-ticker.C:
			healthURL := client.URL().ResolveReference(&url.URL{Path: "/health"})

			req, err := http.NewRequestWithContext(
				ctx, http.MethodGet, healthURL.String(), nil)
			if err != nil {
				continue
			}

			res, err := httpClient.Do(req)
			if err != nil {
				reportHealth(client, false, logger, collector)
				continue
			}
			res.Body.Close()

			reportHealth(client, res.StatusCode == http.StatusOK, logger, collector)
		}
	}
}

func reportHealth(client *downstream.Client, healthy bool, logger *slog.Logger, collector *metrics.Collector) {
	changed := client.SetHealthy(healthy)
	if !changed {
		return
	}

	if healthy {
		logger.Info("Dependency is back up",
			slog.String("dependency", client.Name()))
	} else {
		logger.Warn("Dependency is down",
			slog.String("dependency", client.Name()))
	}

	if collector != nil {
		collector.Emit(metrics.MetricEvent{
			Type:       metrics.EventHealthChanged,
			Timestamp:  time.Now(),
			Dependency: client.Name(),
			Healthy:    healthy,
		})
	}
}
