package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fin-ai-bfa-go/internal/port"

	"go.uber.org/zap"
)

// GeneralInsightsText is served when open-ended insights cannot be generated.
const GeneralInsightsText = "Here are some general financial insights: Track your expenses regularly, set monthly budgets, and review your spending patterns to identify areas for improvement."

// ============================================================
// InsightsStrategy: analysis + insights
// ============================================================

// InsightsStrategy answers insights_generation requests: the full
// analysis + insights pipeline when data is attached, an open-ended
// prompt otherwise.
type InsightsStrategy struct {
	analyzer *ExpenditureAnalyzer
	insights *InsightsGenerator
	llm      *completionCaller
}

// NewInsightsStrategy creates the strategy.
func NewInsightsStrategy(
	analyzer *ExpenditureAnalyzer,
	insights *InsightsGenerator,
	completer port.Completer,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *InsightsStrategy {
	return &InsightsStrategy{
		analyzer: analyzer,
		insights: insights,
		llm:      newCompletionCaller(completer, metrics, logger),
	}
}

// CanHandle accepts insights_generation only.
func (s *InsightsStrategy) CanHandle(queryType domain.QueryType) bool {
	return queryType == domain.QueryInsightsGeneration
}

// Handle runs the analyzer and the insights generator over the attached
// entries. Malformed entries become an apologetic answer instead of an error.
func (s *InsightsStrategy) Handle(ctx context.Context, qc *domain.QueryContext) (*domain.ChatResponse, error) {
	if !qc.HasExpenditureData() {
		return s.openEnded(ctx, qc), nil
	}

	analysis, err := s.analyzer.Analyze(ctx, qc.ExpenditureData)
	if err != nil {
		var analysisErr *domain.ErrAnalysis
		if errors.As(err, &analysisErr) {
			return &domain.ChatResponse{
				Response:  fmt.Sprintf("I had trouble analyzing your data, but here's some general advice: %s", analysisErr.Reason),
				QueryType: domain.QueryInsightsGeneration,
			}, nil
		}
		return nil, err
	}

	insights := s.insights.Generate(ctx, analysis, qc.UserContext)
	return &domain.ChatResponse{
		Response:  FormatInsights(insights),
		QueryType: domain.QueryInsightsGeneration,
		Data:      &domain.InsightsPayload{Analysis: analysis, Insights: insights},
	}, nil
}

// openEnded answers without data, falling back to GeneralInsightsText.
func (s *InsightsStrategy) openEnded(ctx context.Context, qc *domain.QueryContext) *domain.ChatResponse {
	text, err := s.llm.completeText(ctx, openInsightsPrompt{Message: qc.Message, UserContext: qc.UserContext})
	if err != nil {
		s.llm.fallback(ctx, opOpenInsights)
		text = GeneralInsightsText
	}
	return &domain.ChatResponse{Response: text, QueryType: domain.QueryInsightsGeneration}
}
