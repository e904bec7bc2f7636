package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fin-ai-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Messages the fixed-purpose endpoints route with.
const (
	analyzeMessage      = "Analyze my spending data"
	fullAnalysisMessage = "Analyze my spending and provide insights"
)

const errNoEntries = "No expenditure entries provided"

// ============================================================
// POST /analyze-expenditure
// ============================================================

func analyzeExpenditureHandler(agent *service.MasterAgent, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /analyze-expenditure")
		defer span.End()

		var entries []domain.ExpenditureEntry
		if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(entries) == 0 {
			writeError(w, http.StatusBadRequest, errNoEntries)
			return
		}
		if err := validate.Var(entries, "min=1,dive"); err != nil {
			writeError(w, http.StatusBadRequest, validationError(err).Error())
			return
		}
		span.SetAttributes(attribute.Int("entries.count", len(entries)))

		start := time.Now()
		resp, err := agent.ProcessAs(ctx, &domain.ChatRequest{
			Message:         analyzeMessage,
			ExpenditureData: entries,
		}, domain.QueryExpenditureAnalysis)
		metrics.RecordRequestDuration("http.analyze_expenditure", time.Since(start))
		if err != nil {
			handleServiceError(w, err, "Analysis failed", metrics, logger)
			return
		}

		metrics.IncrRequest("success")
		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// POST /generate-insights
// ============================================================

func generateInsightsHandler(agent *service.MasterAgent, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /generate-insights")
		defer span.End()

		var req domain.InsightRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		start := time.Now()
		resp, err := agent.InsightsFromAnalysis(ctx, req.AnalysisData, req.UserContext)
		metrics.RecordRequestDuration("http.generate_insights", time.Since(start))
		if err != nil {
			handleServiceError(w, err, "Insights generation failed", metrics, logger)
			return
		}

		metrics.IncrRequest("success")
		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// POST /full-analysis
// ============================================================

func fullAnalysisHandler(agent *service.MasterAgent, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /full-analysis")
		defer span.End()

		var req domain.FullAnalysisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.Entries) == 0 {
			writeError(w, http.StatusBadRequest, errNoEntries)
			return
		}
		if err := validate.Struct(&req); err != nil {
			writeError(w, http.StatusBadRequest, validationError(err).Error())
			return
		}
		span.SetAttributes(attribute.Int("entries.count", len(req.Entries)))

		start := time.Now()
		resp, err := agent.ProcessAs(ctx, &domain.ChatRequest{
			Message:         fullAnalysisMessage,
			UserContext:     req.UserContext,
			ExpenditureData: req.Entries,
		}, domain.QueryInsightsGeneration)
		metrics.RecordRequestDuration("http.full_analysis", time.Since(start))
		if err != nil {
			handleServiceError(w, err, "Full analysis failed", metrics, logger)
			return
		}

		metrics.IncrRequest("success")
		writeJSON(w, http.StatusOK, resp)
	}
}

// ============================================================
// POST /chat
// ============================================================

func chatHandler(agent *service.MasterAgent, metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /chat")
		defer span.End()

		var req domain.ChatRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		span.SetAttributes(
			attribute.Int("message.length", len(req.Message)),
			attribute.Bool("has_expenditure_data", req.HasExpenditureData()),
		)

		start := time.Now()
		resp, err := agent.Process(ctx, &req)
		metrics.RecordRequestDuration("http.chat", time.Since(start))
		if err != nil {
			handleServiceError(w, err, "Chat processing failed", metrics, logger)
			return
		}

		metrics.IncrRequest("success")
		writeJSON(w, http.StatusOK, resp)
	}
}
