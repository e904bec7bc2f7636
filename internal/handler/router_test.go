package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
	"github.com/boddenberg/fin-ai-bfa-go/internal/handler"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fin-ai-bfa-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

// mockCompleter answers by operation; unknown operations fail.
type mockCompleter struct {
	replies map[string]string
}

func (m *mockCompleter) Complete(_ context.Context, req *domain.CompletionRequest) (*domain.CompletionResult, error) {
	text, ok := m.replies[req.Operation]
	if !ok {
		return nil, &domain.ErrCompletionUnavailable{Provider: "mock", Err: errors.New("down")}
	}
	return &domain.CompletionResult{Text: text}, nil
}

func newRouter(replies map[string]string, opts handler.Options) http.Handler {
	metrics := observability.NewMetrics()
	agent := service.NewDefaultMasterAgent(&mockCompleter{replies: replies}, metrics, zap.NewNop())
	return handler.NewRouter(agent, opts, metrics, zap.NewNop())
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type chatResponse struct {
	Response  string         `json:"response"`
	QueryType string         `json:"query_type"`
	Data      map[string]any `json:"data"`
}

func decodeChat(t *testing.T, rec *httptest.ResponseRecorder) chatResponse {
	t.Helper()
	var resp chatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Detail
}

// --- Operational endpoints ---

func TestRoot(t *testing.T) {
	rec := do(t, newRouter(nil, handler.Options{}), http.MethodGet, "/", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"message":"Financial AI System API"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestOperationalEndpoints(t *testing.T) {
	router := newRouter(nil, handler.Options{Provider: "groq"})

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/ping", "/v1/metrics/completions"} {
		if rec := do(t, router, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newRouter(nil, handler.Options{})

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected allow-origin *, got %q", got)
	}
}

// --- POST /chat ---

func TestChat_MissingMessage(t *testing.T) {
	rec := do(t, newRouter(nil, handler.Options{}), http.MethodPost, "/chat", `{"user_context":"x"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if d := detail(t, rec); !strings.Contains(d, "message") {
		t.Errorf("expected detail to name the field, got %q", d)
	}
}

func TestChat_InvalidJSON(t *testing.T) {
	rec := do(t, newRouter(nil, handler.Options{}), http.MethodPost, "/chat", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestChat_CompletionDownStillAnswers(t *testing.T) {
	rec := do(t, newRouter(nil, handler.Options{}), http.MethodPost, "/chat", `{"message":"hello"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeChat(t, rec)
	if resp.QueryType != "general_chat" || resp.Response != service.GeneralHelpText {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Data != nil {
		t.Errorf("expected data to be omitted, got %v", resp.Data)
	}
}

func TestChat_WithExpenditureData(t *testing.T) {
	router := newRouter(map[string]string{
		"classifier": "expenditure_analysis",
		"analyzer":   "Mostly groceries.",
	}, handler.Options{})

	body := `{"message":"how much did I spend on groceries","expenditure_data":[
		{"amount":45.5,"category":"groceries","description":"market","date":"2024-03-01"},
		{"amount":12,"category":"transport","description":"bus","date":"2024-03-02T08:30:00Z"}
	]}`
	rec := do(t, router, http.MethodPost, "/chat", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeChat(t, rec)
	if resp.QueryType != "expenditure_analysis" {
		t.Errorf("expected expenditure_analysis, got %s", resp.QueryType)
	}
	if resp.Data["total_spending"].(float64) != 57.5 {
		t.Errorf("expected total 57.5, got %v", resp.Data["total_spending"])
	}
	if !strings.HasSuffix(resp.Response, "Mostly groceries.") {
		t.Errorf("unexpected response %q", resp.Response)
	}
}

func TestChat_RejectsIncompleteExpenditureData(t *testing.T) {
	rec := do(t, newRouter(nil, handler.Options{}), http.MethodPost, "/chat",
		`{"message":"analyze","expenditure_data":[{}]}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if d := detail(t, rec); !strings.Contains(d, "'expenditure_data[0].category'") {
		t.Errorf("unexpected detail %q", d)
	}
}

func TestChat_CancelledRequestIs500(t *testing.T) {
	router := newRouter(nil, handler.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"message":"hi"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if d := detail(t, rec); !strings.HasPrefix(d, "Chat processing failed: ") {
		t.Errorf("unexpected detail %q", d)
	}
}

// --- POST /analyze-expenditure ---

func TestAnalyzeExpenditure_Empty(t *testing.T) {
	rec := do(t, newRouter(nil, handler.Options{}), http.MethodPost, "/analyze-expenditure", `[]`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if d := detail(t, rec); d != "No expenditure entries provided" {
		t.Errorf("unexpected detail %q", d)
	}
}

func TestAnalyzeExpenditure_FallbackNarrative(t *testing.T) {
	body := `[{"amount":100,"category":"rent","description":"flat","date":"2024-01-01"},
		{"amount":50,"category":"food","description":"market","date":"2024-01-02"}]`
	rec := do(t, newRouter(nil, handler.Options{}), http.MethodPost, "/analyze-expenditure", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeChat(t, rec)
	if resp.QueryType != "expenditure_analysis" {
		t.Errorf("expected expenditure_analysis, got %s", resp.QueryType)
	}
	if resp.Data["analysis_summary"] != service.FallbackNarrative {
		t.Errorf("expected fallback narrative, got %v", resp.Data["analysis_summary"])
	}
	patterns := resp.Data["spending_patterns"].(map[string]any)
	if patterns["highest_category"] != "rent" {
		t.Errorf("expected rent, got %v", patterns["highest_category"])
	}
}

func TestAnalyzeExpenditure_RejectsIncompleteEntries(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"empty object", `[{}]`, "[0].category"},
		{"amount only", `[{"amount":5}]`, "[0].category"},
		{"missing description", `[{"amount":5,"category":"food","date":"2024-01-01"}]`, "[0].description"},
		{"missing date", `[{"amount":5,"category":"food","description":"lunch"}]`, "[0].date"},
		{"null date", `[{"amount":5,"category":"food","description":"lunch","date":null}]`, "[0].date"},
		{"second entry", `[{"amount":5,"category":"food","description":"lunch","date":"2024-01-01"},{"amount":1}]`, "[1].category"},
	}

	router := newRouter(nil, handler.Options{})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/analyze-expenditure", tc.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if d := detail(t, rec); !strings.Contains(d, "'"+tc.field+"'") {
				t.Errorf("expected error on %s, got %q", tc.field, d)
			}
		})
	}
}

func TestAnalyzeExpenditure_EpochDate(t *testing.T) {
	body := `[{"amount":30,"category":"food","description":"lunch","date":1709251200}]`
	rec := do(t, newRouter(nil, handler.Options{}), http.MethodPost, "/analyze-expenditure", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeChat(t, rec)
	if resp.Data["total_spending"].(float64) != 30 {
		t.Errorf("expected total 30, got %v", resp.Data["total_spending"])
	}
}

// --- POST /full-analysis ---

func TestFullAnalysis_EmptyEntries(t *testing.T) {
	rec := do(t, newRouter(nil, handler.Options{}), http.MethodPost, "/full-analysis", `{"entries":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if d := detail(t, rec); d != "No expenditure entries provided" {
		t.Errorf("unexpected detail %q", d)
	}
}

func TestFullAnalysis_ReportsInvalidEntry(t *testing.T) {
	rec := do(t, newRouter(nil, handler.Options{}), http.MethodPost, "/full-analysis", `{"entries":[{"amount":5}]}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if d := detail(t, rec); d != "validation error on 'entries[0].category': is required" {
		t.Errorf("unexpected detail %q", d)
	}
}

func TestFullAnalysis_Success(t *testing.T) {
	router := newRouter(map[string]string{
		"analyzer": "Balanced.",
		"insights": `{"insights":["a","b","c"],"recommendations":["r"],"financial_score":88,"summary":"Good."}`,
	}, handler.Options{})

	body := `{"entries":[{"amount":20,"category":"food","description":"lunch","date":"2024-01-01"}],"user_context":"student"}`
	rec := do(t, router, http.MethodPost, "/full-analysis", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeChat(t, rec)
	if resp.QueryType != "insights_generation" {
		t.Errorf("expected insights_generation, got %s", resp.QueryType)
	}
	insights := resp.Data["insights"].(map[string]any)
	if insights["financial_score"].(float64) != 88 {
		t.Errorf("expected score 88, got %v", insights["financial_score"])
	}
	if _, ok := resp.Data["analysis"]; !ok {
		t.Error("expected analysis in data")
	}
}

// --- POST /generate-insights ---

func TestGenerateInsights_MissingAnalysis(t *testing.T) {
	rec := do(t, newRouter(nil, handler.Options{}), http.MethodPost, "/generate-insights", `{"user_context":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestGenerateInsights_Fallback(t *testing.T) {
	body := `{"analysis_data":{"total_spending":9000,"category_breakdown":{"rent":9000},
		"spending_patterns":{"avg_transaction":9000,"highest_category":"rent","transaction_count":1,"categories_count":1},
		"analysis_summary":"x"}}`
	rec := do(t, newRouter(nil, handler.Options{}), http.MethodPost, "/generate-insights", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeChat(t, rec)
	insights := resp.Data["insights"].(map[string]any)
	if insights["financial_score"].(float64) != 10 {
		t.Errorf("expected fallback score 10, got %v", insights["financial_score"])
	}
}

// --- Rate limiting ---

func TestRateLimit(t *testing.T) {
	router := newRouter(nil, handler.Options{RateLimitPerMinute: 1, RateLimitBurst: 1})

	if rec := do(t, router, http.MethodPost, "/chat", `{"message":"hi"}`); rec.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rec.Code)
	}
	rec := do(t, router, http.MethodPost, "/chat", `{"message":"hi"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}

	// operational routes are not limited
	if rec := do(t, router, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("expected healthz to bypass the limiter, got %d", rec.Code)
	}
}
