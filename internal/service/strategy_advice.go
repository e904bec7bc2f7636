package service

import (
	"context"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fin-ai-bfa-go/internal/port"

	"go.uber.org/zap"
)

// AdviceFallbacks is the fixed answer of each advice category when the
// completion service is unavailable.
var AdviceFallbacks = map[domain.QueryType]string{
	domain.QueryTaxAdvice:        "For tax advice, consider consulting with a tax professional. Keep detailed records of your expenses and income throughout the year.",
	domain.QueryInvestmentAdvice: "For investments, consider diversifying your portfolio and investing in low-cost index funds. Always do your research before investing.",
	domain.QueryRevenueAnalysis:  "To analyze revenue, track your income sources, monitor trends over time, and identify your most profitable activities.",
}

// ============================================================
// AdviceStrategy: tax, investment and revenue questions
// ============================================================

// AdviceStrategy answers tax, investment and revenue questions with a
// role-specific prompt.
type AdviceStrategy struct {
	llm *completionCaller
}

// NewAdviceStrategy creates the strategy.
func NewAdviceStrategy(completer port.Completer, metrics *observability.Metrics, logger *zap.Logger) *AdviceStrategy {
	return &AdviceStrategy{llm: newCompletionCaller(completer, metrics, logger)}
}

// CanHandle accepts the three advice categories.
func (s *AdviceStrategy) CanHandle(queryType domain.QueryType) bool {
	return queryType.IsAdvice()
}

// Handle asks the completion service in the advisor role of the category.
// On failure it answers with that category's fixed advice.
func (s *AdviceStrategy) Handle(ctx context.Context, qc *domain.QueryContext) (*domain.ChatResponse, error) {
	text, err := s.llm.completeText(ctx, advicePrompt{
		QueryType:   qc.QueryType,
		Message:     qc.Message,
		UserContext: qc.UserContext,
	})
	if err != nil {
		s.llm.fallback(ctx, string(qc.QueryType))
		text = AdviceFallbacks[qc.QueryType]
	}
	return &domain.ChatResponse{Response: text, QueryType: qc.QueryType}, nil
}
