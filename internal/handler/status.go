package handler

import (
	"net/http"

	"github.com/satyajit903/inflow-ai/internal/budget"
	"github.com/satyajit903/inflow-ai/internal/circuitbreaker"
)

// CircuitsHandler reports the current state of every registered breaker.
// Querying the state advances open circuits whose recovery timeout has
// elapsed, so the report always reflects what the next call would see.
func CircuitsHandler(registry *circuitbreaker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		states := registry.Stats()

		body := make(map[string]string, len(states))
		for name, state := range states {
			body[name] = state.String()
		}

		writeJSON(w, http.StatusOK, body)
	}
}

type healthResponse struct {
	Status       string          `json:"status"`
	Dependencies map[string]bool `json:"dependencies"`
	TokenUsage   *budget.Usage   `json:"token_usage,omitempty"`
}

// HealthHandler reports the service's own health: per-dependency probe
// status and, when a budget is configured, token usage.
func HealthHandler(dependencies []Dependency, tokens *budget.TokenBudget) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := healthResponse{
			Status:       "ok",
			Dependencies: make(map[string]bool, len(dependencies)),
		}

		for _, dep := range dependencies {
			body.Dependencies[dep.Client.Name()] = dep.Client.IsHealthy()
		}

		if tokens != nil {
			usage := tokens.Usage()
			body.TokenUsage = &usage
		}

		writeJSON(w, http.StatusOK, body)
	}
}
