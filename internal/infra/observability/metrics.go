package observability

import (
	"time"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Completion call outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds all Prometheus metrics for the router.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	completionCalls *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	dispatches      *prometheus.CounterVec
	degraded        *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finai_request_duration_seconds",
				Help:    "Duration of operations (dispatch, completion, http handlers).",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		completionCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finai_completion_calls_total",
				Help: "Completion service calls by calling component and outcome.",
			},
			[]string{"operation", "outcome"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finai_fallbacks_total",
				Help: "Deterministic fallbacks served, by component.",
			},
			[]string{"component"},
		),
		dispatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finai_dispatches_total",
				Help: "Requests routed by the master agent, by query type.",
			},
			[]string{"query_type"},
		),
		degraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finai_degraded_dispatches_total",
				Help: "Routed requests that served at least one fallback, by query type.",
			},
			[]string{"query_type"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finai_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finai_requests_total",
				Help: "Total HTTP API requests processed.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrCompletionCall counts one completion call for the given component.
func (m *Metrics) IncrCompletionCall(operation, outcome string) {
	m.completionCalls.WithLabelValues(operation, outcome).Inc()
}

// IncrFallback counts a fallback served by a component.
func (m *Metrics) IncrFallback(component string) {
	m.fallbacks.WithLabelValues(component).Inc()
}

// IncrDispatch counts a routed request.
func (m *Metrics) IncrDispatch(queryType domain.QueryType) {
	m.dispatches.WithLabelValues(string(queryType)).Inc()
}

// IncrDegradedDispatch counts a routed request whose answer used at least
// one fallback, however many components fell back.
func (m *Metrics) IncrDegradedDispatch(queryType domain.QueryType) {
	m.degraded.WithLabelValues(string(queryType)).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// GetCompletionSnapshot returns a snapshot of completion-related metrics
// suitable for the GET /v1/metrics/completions endpoint.
func (m *Metrics) GetCompletionSnapshot() *domain.CompletionMetrics {
	var totalCalls, failedCalls float64
	for _, c := range collectCounters(m.completionCalls) {
		v := c.GetCounter().GetValue()
		totalCalls += v
		if labelValue(c, "outcome") == OutcomeFailure {
			failedCalls += v
		}
	}

	byQuery := sumByLabel(m.dispatches, "query_type")
	byComponent := sumByLabel(m.fallbacks, "component")

	var dispatches, degradedCount, fallbackCount int64
	for _, v := range byQuery {
		dispatches += v
	}
	for _, v := range sumByLabel(m.degraded, "query_type") {
		degradedCount += v
	}
	for _, v := range byComponent {
		fallbackCount += v
	}

	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")

	failureRate := float64(0)
	avgTokens := float64(0)
	if totalCalls > 0 {
		failureRate = failedCalls / totalCalls
		avgTokens = (promptTokens + completionTokens) / totalCalls
	}
	fallbackRate := float64(0)
	if dispatches > 0 {
		fallbackRate = float64(degradedCount) / float64(dispatches)
	}

	// Estimated cost: Groq llama-3.3-70b list price, $0.59/M prompt, $0.79/M completion
	estimatedCost := (promptTokens/1_000_000)*0.59 + (completionTokens/1_000_000)*0.79

	return &domain.CompletionMetrics{
		TotalCalls:           int64(totalCalls),
		FailedCalls:          int64(failedCalls),
		FailureRate:          failureRate,
		TotalDispatches:      dispatches,
		FallbackCount:        fallbackCount,
		DegradedDispatches:   degradedCount,
		FallbackRate:         fallbackRate,
		AvgTokensPerCall:     avgTokens,
		EstimatedCostUsd:     estimatedCost,
		DispatchesByQuery:    byQuery,
		FallbacksByComponent: byComponent,
		Period:               "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// collectCounters returns every child series of a CounterVec.
func collectCounters(cv *prometheus.CounterVec) []*dto.Metric {
	ch := make(chan prometheus.Metric, 32)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var out []*dto.Metric
	for metric := range ch {
		pb := &dto.Metric{}
		if err := metric.Write(pb); err == nil {
			out = append(out, pb)
		}
	}
	return out
}

func sumByLabel(cv *prometheus.CounterVec, label string) map[string]int64 {
	out := make(map[string]int64)
	for _, c := range collectCounters(cv) {
		out[labelValue(c, label)] += int64(c.GetCounter().GetValue())
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
