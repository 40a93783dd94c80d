package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/satyajit903/inflow-ai/internal/audit"
	"github.com/satyajit903/inflow-ai/internal/budget"
	"github.com/satyajit903/inflow-ai/internal/circuitbreaker"
	"github.com/satyajit903/inflow-ai/internal/flags"
	"github.com/satyajit903/inflow-ai/internal/handler"
	"github.com/satyajit903/inflow-ai/internal/metrics"
)

func setupRouter(
	analyzeHandler *handler.AnalyzeHandler,
	dependencies []handler.Dependency,
	registry *circuitbreaker.Registry,
	metricsCollector *metrics.Collector,
	featureFlags *flags.Flags,
	tokens *budget.TokenBudget,
	trail *audit.Trail,
) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/analyze", analyzeHandler.ServeHTTP)
	mux.HandleFunc("/circuits", handler.CircuitsHandler(registry))
	mux.HandleFunc("/health", handler.HealthHandler(dependencies, tokens))
	mux.HandleFunc("/stats", metricsCollector.Handler())
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/flags", featureFlags.Handler())
	mux.HandleFunc("/audit", trail.Handler())

	return mux
}
