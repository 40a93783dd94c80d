package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/satyajit903/inflow-ai/internal/aggregator"
	"github.com/satyajit903/inflow-ai/internal/audit"
	"github.com/satyajit903/inflow-ai/internal/budget"
	"github.com/satyajit903/inflow-ai/internal/downstream"
	"github.com/satyajit903/inflow-ai/internal/flags"
)

// InsightDependency is the name of the token-budgeted advisory dependency.
const InsightDependency = "insight"

// Tokens reserved per insight call on top of the input estimate.
const insightOutputReserve = 250

// Dependency pairs a downstream client with its criticality from config.
type Dependency struct {
	Client   *downstream.Client
	Critical bool
}

// AnalyzeHandler serves the orchestration endpoint: it fans an idea out to
// every configured dependency through the breaker-gated aggregator and
// merges the outcomes into one response.
type AnalyzeHandler struct {
	logger       *slog.Logger
	aggregator   *aggregator.Aggregator
	dependencies []Dependency
	featureFlags *flags.Flags
	tokens       *budget.TokenBudget
	trail        *audit.Trail
	environment  string
}

type analyzeRequest struct {
	IdeaText string `json:"idea_text"`
}

type analyzeResponse struct {
	RequestID string         `json:"request_id"`
	Results   map[string]any `json:"results"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Dependency string `json:"dependency,omitempty"`
}

func NewAnalyzeHandler(
	logger *slog.Logger,
	agg *aggregator.Aggregator,
	dependencies []Dependency,
	featureFlags *flags.Flags,
	tokens *budget.TokenBudget,
	trail *audit.Trail,
	environment string,
) *AnalyzeHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AnalyzeHandler{
		logger:       logger,
		aggregator:   agg,
		dependencies: dependencies,
		featureFlags: featureFlags,
		tokens:       tokens,
		trail:        trail,
		environment:  environment,
	}
}

func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.IdeaText == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "idea_text is required"})
		return
	}

	requestID := uuid.NewString()

	h.logger.Info("Received analyze request",
		slog.String("request_id", requestID),
		slog.String("from", r.RemoteAddr))

	calls, skipped := h.buildCalls(r, requestID, req.IdeaText)

	results, err := h.aggregator.Aggregate(calls)
	if err != nil {
		var critErr *aggregator.CriticalDependencyError
		if errors.As(err, &critErr) {
			h.audit(requestID, nil, skipped, critErr.Dependency)
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:      "critical dependency failed",
				Dependency: critErr.Dependency,
			})
			return
		}

		h.logger.Error("Aggregation failed", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	// Dependencies skipped by a kill switch degrade like a failed
	// non-critical call: present, explicitly unknown.
	for _, name := range skipped {
		results[name] = aggregator.SentinelUnknown
	}

	h.audit(requestID, results, skipped, "")

	writeJSON(w, http.StatusOK, analyzeResponse{
		RequestID: requestID,
		Results:   results,
	})
}

// buildCalls assembles the dependency calls for one request. The insight
// dependency is skipped entirely when its kill switch or degraded mode is
// active, and its operation is charged against the token budget.
func (h *AnalyzeHandler) buildCalls(r *http.Request, requestID, ideaText string) ([]aggregator.DependencyCall, []string) {
	calls := make([]aggregator.DependencyCall, 0, len(h.dependencies))
	var skipped []string

	for _, dep := range h.dependencies {
		name := dep.Client.Name()

		if name == InsightDependency && h.featureFlags != nil {
			if !h.featureFlags.IsEnabled(flags.InsightEnabled) || h.featureFlags.IsEnabled(flags.DegradedMode) {
				h.logger.Info("Skipping dependency, disabled by flag",
					slog.String("request_id", requestID),
					slog.String("dependency", name))
				skipped = append(skipped, name)
				continue
			}
		}

		op := dep.Client.Analyze(r.Context(), downstream.AnalyzeRequest{
			RequestID: requestID,
			IdeaText:  ideaText,
		})

		if name == InsightDependency && h.tokens != nil {
			op = h.budgeted(op, ideaText)
		}

		criticality := aggregator.NonCritical
		if dep.Critical {
			criticality = aggregator.Critical
		}

		calls = append(calls, aggregator.DependencyCall{
			Name:        name,
			Criticality: criticality,
			Operation:   op,
		})
	}

	return calls, skipped
}

// budgeted wraps the insight operation with the token budget check. An
// exhausted budget fails the operation before any outbound call.
func (h *AnalyzeHandler) budgeted(op func() (any, error), ideaText string) func() (any, error) {
	return func() (any, error) {
		estimate := estimateTokens(ideaText) + insightOutputReserve
		if !h.tokens.CanUse(estimate) {
			return nil, budget.ErrExhausted
		}

		result, err := op()
		if err != nil {
			return nil, err
		}

		h.tokens.Record(estimateTokens(ideaText), insightOutputReserve)
		return result, nil
	}
}

// estimateTokens approximates token count at four characters per token.
func estimateTokens(text string) int64 {
	return int64(len(text)/4 + 1)
}

func (h *AnalyzeHandler) audit(requestID string, results map[string]any, skipped []string, fatal string) {
	if h.trail == nil {
		return
	}

	outcomes := make(map[string]string, len(results)+len(skipped))
	for name, value := range results {
		if value == aggregator.SentinelUnknown {
			outcomes[name] = audit.OutcomeDegraded
		} else {
			outcomes[name] = audit.OutcomeOK
		}
	}
	for _, name := range skipped {
		outcomes[name] = audit.OutcomeDegraded
	}
	if fatal != "" {
		outcomes[fatal] = audit.OutcomeFatal
	}

	h.trail.Append(audit.Record{
		RequestID:       requestID,
		Outcomes:        outcomes,
		FatalDependency: fatal,
		Environment:     h.environment,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
