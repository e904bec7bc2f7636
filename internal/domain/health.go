package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Detail      string `json:"detail,omitempty"`
	LastChecked string `json:"lastChecked"`
}

// CompletionMetrics is returned by GET /v1/metrics/completions.
type CompletionMetrics struct {
	TotalCalls           int64            `json:"totalCalls"`
	FailedCalls          int64            `json:"failedCalls"`
	FailureRate          float64          `json:"failureRate"`
	TotalDispatches      int64            `json:"totalDispatches"`
	FallbackCount        int64            `json:"fallbackCount"`
	DegradedDispatches   int64            `json:"degradedDispatches"`
	FallbackRate         float64          `json:"fallbackRate"` // degraded dispatches / dispatches, within [0,1]
	AvgTokensPerCall     float64          `json:"avgTokensPerCall"`
	EstimatedCostUsd     float64          `json:"estimatedCostUsd"`
	DispatchesByQuery    map[string]int64 `json:"dispatchesByQuery"`
	FallbacksByComponent map[string]int64 `json:"fallbacksByComponent"`
	Period               string           `json:"period"`
}
