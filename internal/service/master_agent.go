// Package service holds the query router: classification, expenditure
// analysis, insights generation and the strategies that answer each
// category.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fin-ai-bfa-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service")

// GeneralHelpText answers general chat when nothing better is available.
const GeneralHelpText = "I'm here to help with your financial questions! Feel free to ask about budgeting, investments, taxes, or any other money-related topics."

// ============================================================
// QueryStrategy: one per category
// ============================================================

// QueryStrategy answers the requests of the categories it accepts.
type QueryStrategy interface {
	CanHandle(queryType domain.QueryType) bool
	Handle(ctx context.Context, qc *domain.QueryContext) (*domain.ChatResponse, error)
}

// ============================================================
// MasterAgent: classification + strategy routing
// ============================================================

// MasterAgent classifies each request and hands it to the first strategy
// that accepts its category. It holds no per-request state.
type MasterAgent struct {
	classifier *Classifier
	insights   *InsightsGenerator
	strategies []QueryStrategy
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewMasterAgent creates the master agent. Strategy order matters: the
// first one accepting the category wins.
func NewMasterAgent(
	classifier *Classifier,
	insights *InsightsGenerator,
	strategies []QueryStrategy,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *MasterAgent {
	return &MasterAgent{
		classifier: classifier,
		insights:   insights,
		strategies: strategies,
		metrics:    metrics,
		logger:     logger,
	}
}

// NewDefaultMasterAgent wires every component and the standard strategies
// around a single completer.
func NewDefaultMasterAgent(completer port.Completer, metrics *observability.Metrics, logger *zap.Logger) *MasterAgent {
	analyzer := NewExpenditureAnalyzer(completer, metrics, logger)
	insights := NewInsightsGenerator(completer, metrics, logger)

	strategies := []QueryStrategy{
		NewExpenditureStrategy(analyzer),
		NewInsightsStrategy(analyzer, insights, completer, metrics, logger),
		NewAdviceStrategy(completer, metrics, logger),
		NewGeneralChatStrategy(completer, metrics, logger),
	}

	return NewMasterAgent(NewClassifier(completer, metrics, logger), insights, strategies, metrics, logger)
}

// Process classifies the message and routes the request.
func (m *MasterAgent) Process(ctx context.Context, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "MasterAgent.Process")
	defer span.End()

	ctx, degraded := withDegradedFlag(ctx)
	queryType := m.classifier.Classify(ctx, req.Message)
	defer m.recordDegraded(queryType, degraded)

	return m.route(ctx, req, queryType)
}

// ProcessAs routes the request with a fixed category, skipping
// classification.
func (m *MasterAgent) ProcessAs(ctx context.Context, req *domain.ChatRequest, queryType domain.QueryType) (*domain.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "MasterAgent.ProcessAs")
	defer span.End()

	ctx, degraded := withDegradedFlag(ctx)
	defer m.recordDegraded(queryType, degraded)

	return m.route(ctx, req, queryType)
}

// InsightsFromAnalysis generates insights for an analysis the caller
// already holds.
func (m *MasterAgent) InsightsFromAnalysis(ctx context.Context, analysis *domain.ExpenditureAnalysis, userContext string) (*domain.ChatResponse, error) {
	if analysis == nil {
		return nil, &domain.ErrValidation{Field: "analysis_data", Message: "is required"}
	}

	ctx, span := tracer.Start(ctx, "MasterAgent.InsightsFromAnalysis")
	defer span.End()

	start := time.Now()
	defer func() {
		m.metrics.RecordRequestDuration("dispatch", time.Since(start))
	}()
	m.metrics.IncrDispatch(domain.QueryInsightsGeneration)

	ctx, degraded := withDegradedFlag(ctx)
	defer m.recordDegraded(domain.QueryInsightsGeneration, degraded)

	insights := m.insights.Generate(ctx, analysis, userContext)
	return &domain.ChatResponse{
		Response:  FormatInsights(insights),
		QueryType: domain.QueryInsightsGeneration,
		Data:      &domain.InsightsPayload{Analysis: analysis, Insights: insights},
	}, nil
}

func (m *MasterAgent) route(ctx context.Context, req *domain.ChatRequest, queryType domain.QueryType) (*domain.ChatResponse, error) {
	qc := &domain.QueryContext{
		DispatchID:      uuid.NewString(),
		Message:         req.Message,
		UserContext:     req.UserContext,
		ExpenditureData: req.ExpenditureData,
		QueryType:       queryType,
	}

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("dispatch.id", qc.DispatchID),
		attribute.String("query.type", string(queryType)),
		attribute.Bool("has_expenditure_data", qc.HasExpenditureData()),
	)

	start := time.Now()
	defer func() {
		m.metrics.RecordRequestDuration("dispatch", time.Since(start))
	}()
	m.metrics.IncrDispatch(queryType)

	m.logger.Info("query routed",
		zap.String("dispatch_id", qc.DispatchID),
		zap.String("query_type", string(queryType)),
		zap.Int("entries", len(qc.ExpenditureData)),
	)

	for _, strategy := range m.strategies {
		if strategy.CanHandle(queryType) {
			resp, err := strategy.Handle(ctx, qc)
			if err != nil {
				span.RecordError(err)
				m.logger.Error("strategy failed",
					zap.String("dispatch_id", qc.DispatchID),
					zap.String("query_type", string(queryType)),
					zap.Error(err),
				)
				return nil, fmt.Errorf("%s: %w", queryType, err)
			}
			return resp, nil
		}
	}

	m.logger.Debug("no strategy matched, answering with general help",
		zap.String("dispatch_id", qc.DispatchID),
		zap.String("query_type", string(queryType)),
	)
	m.metrics.IncrFallback("dispatcher")
	markDegraded(ctx)
	return &domain.ChatResponse{Response: GeneralHelpText, QueryType: queryType}, nil
}

// recordDegraded counts the dispatch once if any of its components fell back.
func (m *MasterAgent) recordDegraded(queryType domain.QueryType, degraded *atomic.Bool) {
	if degraded.Load() {
		m.metrics.IncrDegradedDispatch(queryType)
	}
}

// ============================================================
// Response formatting
// ============================================================

// FormatAnalysis renders an analysis as the expenditure response text.
func FormatAnalysis(a *domain.ExpenditureAnalysis) string {
	var b strings.Builder
	b.WriteString("I've analyzed your expenditure data:\n\n")
	fmt.Fprintf(&b, "• Total Spending: $%.2f\n", a.TotalSpending)
	fmt.Fprintf(&b, "• Categories: %d\n", len(a.CategoryBreakdown))
	fmt.Fprintf(&b, "• Top Category: %s\n\n", a.SpendingPatterns.HighestCategory)
	b.WriteString(a.AnalysisSummary)
	return b.String()
}

// FormatInsights renders insights as the insights response text.
func FormatInsights(in *domain.InsightResponse) string {
	var b strings.Builder
	b.WriteString("Based on your spending data, here are my insights:\n\n")
	fmt.Fprintf(&b, "**Financial Score: %d/100**\n\n", in.FinancialScore)
	b.WriteString("**Key Insights:**\n")
	for _, s := range in.Insights {
		fmt.Fprintf(&b, "• %s\n", s)
	}
	b.WriteString("\n**Recommendations:**\n")
	for _, s := range in.Recommendations {
		fmt.Fprintf(&b, "• %s\n", s)
	}
	fmt.Fprintf(&b, "\n%s", in.Summary)
	return b.String()
}
