package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/satyajit903/inflow-ai/config"
	"github.com/satyajit903/inflow-ai/internal/aggregator"
	"github.com/satyajit903/inflow-ai/internal/audit"
	"github.com/satyajit903/inflow-ai/internal/budget"
	"github.com/satyajit903/inflow-ai/internal/circuitbreaker"
	"github.com/satyajit903/inflow-ai/internal/downstream"
	"github.com/satyajit903/inflow-ai/internal/flags"
	"github.com/satyajit903/inflow-ai/internal/handler"
	"github.com/satyajit903/inflow-ai/internal/healthcheck"
	"github.com/satyajit903/inflow-ai/internal/httpserver"
	"github.com/satyajit903/inflow-ai/internal/invoker"
	"github.com/satyajit903/inflow-ai/internal/metrics"
	"github.com/satyajit903/inflow-ai/pkg/logger"
)

const circuitSyncInterval = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	prom := metrics.NewPrometheus(prometheus.DefaultRegisterer)
	collector := metrics.NewCollector(1024, prom, log)
	collector.Start(ctx)

	registry, err := initializeRegistry(cfg, log)
	if err != nil {
		log.Error("Failed to initialize breaker registry", slog.Any("err", err))
		os.Exit(1)
	}

	dependencies, err := initializeDependencies(ctx, cfg, log, collector)
	if err != nil {
		log.Error("Failed to initialize dependencies", slog.Any("err", err))
		os.Exit(1)
	}

	go syncCircuitMetrics(ctx, registry, collector)

	inv := invoker.New(registry, collector, log)
	agg := aggregator.New(inv, log)

	featureFlags := flags.New(log)
	tokens := budget.New(cfg.Insight.DailyTokenLimit)
	trail := audit.NewTrail(1000, log)

	analyzeHandler := handler.NewAnalyzeHandler(log, agg, dependencies, featureFlags, tokens, trail, cfg.Server.Environment)

	mux := setupRouter(analyzeHandler, dependencies, registry, collector, featureFlags, tokens, trail)

	srv, err := httpserver.New(cfg.Server.Address, mux)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting orchestrator", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func initializeRegistry(cfg *config.Config, log *slog.Logger) (*circuitbreaker.Registry, error) {
	defaultPolicy, err := breakerPolicy(cfg.Breaker)
	if err != nil {
		return nil, err
	}

	overrides := make(map[string]circuitbreaker.Policy)
	for _, dep := range cfg.Dependencies {
		if dep.Breaker == nil {
			continue
		}
		policy, err := breakerPolicy(*dep.Breaker)
		if err != nil {
			return nil, err
		}
		overrides[dep.Name] = policy
	}

	return circuitbreaker.NewRegistry(defaultPolicy, overrides, log), nil
}

func breakerPolicy(bc config.BreakerConfig) (circuitbreaker.Policy, error) {
	recovery, err := time.ParseDuration(bc.RecoveryTimeout)
	if err != nil {
		return circuitbreaker.Policy{}, err
	}

	return circuitbreaker.Policy{
		FailureThreshold: bc.FailureThreshold,
		RecoveryTimeout:  recovery,
		HalfOpenMaxCalls: bc.HalfOpenMaxCalls,
	}, nil
}

func initializeDependencies(ctx context.Context, cfg *config.Config, log *slog.Logger, collector *metrics.Collector) ([]handler.Dependency, error) {
	healthCheckInterval, err := time.ParseDuration(cfg.HealthCheck.Interval)
	if err != nil {
		return nil, err
	}

	var dependencies []handler.Dependency

	for _, dep := range cfg.Dependencies {
		var timeout time.Duration
		if dep.Timeout != "" {
			timeout, err = time.ParseDuration(dep.Timeout)
			if err != nil {
				log.Error("Failed to parse dependency timeout",
					slog.String("dependency", dep.Name),
					slog.String("error", err.Error()))
				continue
			}
		}

		client, err := downstream.New(dep.Name, dep.URL, timeout)
		if err != nil {
			log.Error("Failed to create dependency client",
				slog.String("dependency", dep.Name),
				slog.String("error", err.Error()))
			continue
		}

		dependencies = append(dependencies, handler.Dependency{
			Client:   client,
			Critical: dep.Critical,
		})
		go healthcheck.HealthCheck(ctx, client, healthCheckInterval, log, collector)
	}

	if len(dependencies) == 0 {
		return nil, os.ErrInvalid
	}

	return dependencies, nil
}

// syncCircuitMetrics mirrors breaker states into the Prometheus gauge. The
// periodic query also advances open circuits whose recovery timeout elapsed.
func syncCircuitMetrics(ctx context.Context, registry *circuitbreaker.Registry, collector *metrics.Collector) {
	ticker := time.NewTicker(circuitSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			collector.SyncCircuits(registry.Stats())
		}
	}
}
