package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/satyajit903/inflow-ai/internal/aggregator"
	"github.com/satyajit903/inflow-ai/internal/audit"
	"github.com/satyajit903/inflow-ai/internal/budget"
	"github.com/satyajit903/inflow-ai/internal/circuitbreaker"
	"github.com/satyajit903/inflow-ai/internal/downstream"
	"github.com/satyajit903/inflow-ai/internal/flags"
	"github.com/satyajit903/inflow-ai/internal/handler"
	"github.com/satyajit903/inflow-ai/internal/invoker"
)

func analyzerServer(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
}

func mustClient(name, url string) *downstream.Client {
	client, err := downstream.New(name, url, 2*time.Second)
	Expect(err).NotTo(HaveOccurred())
	return client
}

var _ = Describe("AnalyzeHandler", func() {
	var (
		registry     *circuitbreaker.Registry
		agg          *aggregator.Aggregator
		trail        *audit.Trail
		featureFlags *flags.Flags
	)

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(circuitbreaker.DefaultPolicy(), nil, nil)
		agg = aggregator.New(invoker.New(registry, nil, nil), nil)
		trail = audit.NewTrail(100, nil)
		featureFlags = flags.New(nil)
	})

	newHandler := func(deps []handler.Dependency, tokens *budget.TokenBudget) *handler.AnalyzeHandler {
		return handler.NewAnalyzeHandler(nil, agg, deps, featureFlags, tokens, trail, "test")
	}

	post := func(h http.Handler, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body))
		h.ServeHTTP(rec, req)
		return rec
	}

	Context("when all dependencies succeed", func() {
		It("should merge every result under a fresh request ID", func() {
			viability := analyzerServer(http.StatusOK, `{"score": 0.8}`)
			defer viability.Close()
			risk := analyzerServer(http.StatusOK, `{"level": "low"}`)
			defer risk.Close()

			h := newHandler([]handler.Dependency{
				{Client: mustClient("viability", viability.URL), Critical: true},
				{Client: mustClient("risk", risk.URL)},
			}, nil)

			rec := post(h, `{"idea_text": "a subscription box for ferrets"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body struct {
				RequestID string         `json:"request_id"`
				Results   map[string]any `json:"results"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.RequestID).NotTo(BeEmpty())
			Expect(body.Results).To(HaveKey("viability"))
			Expect(body.Results).To(HaveKey("risk"))
			Expect(body.Results["risk"]).To(HaveKeyWithValue("level", "low"))
		})
	})

	Context("when a non-critical dependency fails", func() {
		It("should degrade it to the unknown sentinel and audit the outcome", func() {
			viability := analyzerServer(http.StatusOK, `{"score": 0.8}`)
			defer viability.Close()
			risk := analyzerServer(http.StatusInternalServerError, `{}`)
			defer risk.Close()

			h := newHandler([]handler.Dependency{
				{Client: mustClient("viability", viability.URL), Critical: true},
				{Client: mustClient("risk", risk.URL)},
			}, nil)

			rec := post(h, `{"idea_text": "an idea"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body struct {
				Results map[string]any `json:"results"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Results["risk"]).To(Equal(aggregator.SentinelUnknown))
			Expect(body.Results["viability"]).NotTo(Equal(aggregator.SentinelUnknown))

			records := trail.Records()
			Expect(records).To(HaveLen(1))
			Expect(records[0].Outcomes["risk"]).To(Equal(audit.OutcomeDegraded))
			Expect(records[0].Outcomes["viability"]).To(Equal(audit.OutcomeOK))
		})
	})

	Context("when a critical dependency fails", func() {
		It("should fail the request and name the dependency", func() {
			viability := analyzerServer(http.StatusInternalServerError, `{}`)
			defer viability.Close()
			risk := analyzerServer(http.StatusOK, `{"level": "low"}`)
			defer risk.Close()

			h := newHandler([]handler.Dependency{
				{Client: mustClient("viability", viability.URL), Critical: true},
				{Client: mustClient("risk", risk.URL)},
			}, nil)

			rec := post(h, `{"idea_text": "an idea"}`)
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))

			var body struct {
				Error      string `json:"error"`
				Dependency string `json:"dependency"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Dependency).To(Equal("viability"))

			records := trail.Records()
			Expect(records).To(HaveLen(1))
			Expect(records[0].FatalDependency).To(Equal("viability"))
			Expect(records[0].Outcomes["viability"]).To(Equal(audit.OutcomeFatal))
		})
	})

	Context("when the insight flag is off", func() {
		It("should skip the dependency without calling it", func() {
			var insightCalls atomic.Int32
			insight := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				insightCalls.Add(1)
				fmt.Fprint(w, `{}`)
			}))
			defer insight.Close()
			viability := analyzerServer(http.StatusOK, `{"score": 0.8}`)
			defer viability.Close()

			featureFlags.Set(flags.InsightEnabled, false)

			h := newHandler([]handler.Dependency{
				{Client: mustClient("viability", viability.URL), Critical: true},
				{Client: mustClient("insight", insight.URL)},
			}, nil)

			rec := post(h, `{"idea_text": "an idea"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body struct {
				Results map[string]any `json:"results"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Results["insight"]).To(Equal(aggregator.SentinelUnknown))
			Expect(insightCalls.Load()).To(BeZero())
		})
	})

	Context("when the token budget is exhausted", func() {
		It("should degrade insight without calling it", func() {
			var insightCalls atomic.Int32
			insight := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				insightCalls.Add(1)
				fmt.Fprint(w, `{}`)
			}))
			defer insight.Close()
			viability := analyzerServer(http.StatusOK, `{"score": 0.8}`)
			defer viability.Close()

			h := newHandler([]handler.Dependency{
				{Client: mustClient("viability", viability.URL), Critical: true},
				{Client: mustClient("insight", insight.URL)},
			}, budget.New(1))

			rec := post(h, `{"idea_text": "an idea"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body struct {
				Results map[string]any `json:"results"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Results["insight"]).To(Equal(aggregator.SentinelUnknown))
			Expect(insightCalls.Load()).To(BeZero())
		})
	})

	Context("with a malformed request", func() {
		It("should reject an empty idea", func() {
			h := newHandler(nil, nil)
			rec := post(h, `{"idea_text": ""}`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should reject non-POST methods", func() {
			h := newHandler(nil, nil)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/analyze", nil)
			h.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusMethodNotAllowed))
		})
	})
})

var _ = Describe("Status handlers", func() {
	Describe("CircuitsHandler", func() {
		It("should report the state of every registered breaker", func() {
			registry := circuitbreaker.NewRegistry(circuitbreaker.DefaultPolicy(), nil, nil)
			registry.GetBreaker("viability")
			registry.GetBreaker("risk")

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/circuits", nil)
			handler.CircuitsHandler(registry)(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))

			var body map[string]string
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body).To(HaveKeyWithValue("viability", "CLOSED"))
			Expect(body).To(HaveKeyWithValue("risk", "CLOSED"))
		})
	})

	Describe("HealthHandler", func() {
		It("should report dependency health and token usage", func() {
			client := mustClient("viability", "http://localhost:9999")

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			handler.HealthHandler([]handler.Dependency{{Client: client, Critical: true}}, budget.New(1000))(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))

			var body struct {
				Status       string          `json:"status"`
				Dependencies map[string]bool `json:"dependencies"`
				TokenUsage   *budget.Usage   `json:"token_usage"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Status).To(Equal("ok"))
			Expect(body.Dependencies).To(HaveKeyWithValue("viability", true))
			Expect(body.TokenUsage).NotTo(BeNil())
			Expect(body.TokenUsage.DailyLimit).To(Equal(int64(1000)))
		})
	})
})
