package service

import (
	"context"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fin-ai-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// FallbackNarrative is the analysis summary used when the completion
// service cannot produce one.
const FallbackNarrative = "The expenditure analysis has been completed."

// ExpenditureAnalyzer aggregates entries and asks the completion service
// for a narrative summary of the result.
type ExpenditureAnalyzer struct {
	llm    *completionCaller
	logger *zap.Logger
}

// NewExpenditureAnalyzer creates the analyzer with its dependencies injected.
func NewExpenditureAnalyzer(completer port.Completer, metrics *observability.Metrics, logger *zap.Logger) *ExpenditureAnalyzer {
	return &ExpenditureAnalyzer{
		llm:    newCompletionCaller(completer, metrics, logger),
		logger: logger,
	}
}

// Analyze returns the aggregated analysis with AnalysisSummary filled in.
// A failed completion call is absorbed into FallbackNarrative; only a
// malformed entry list yields an error (*domain.ErrAnalysis).
func (a *ExpenditureAnalyzer) Analyze(ctx context.Context, entries []domain.ExpenditureEntry) (*domain.ExpenditureAnalysis, error) {
	ctx, span := tracer.Start(ctx, "ExpenditureAnalyzer.Analyze")
	defer span.End()
	span.SetAttributes(attribute.Int("entries.count", len(entries)))

	analysis, err := Aggregate(entries)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	narrative, err := a.llm.completeText(ctx, narrativePrompt{
		Total:     analysis.TotalSpending,
		Breakdown: analysis.CategoryBreakdown,
		Patterns:  analysis.SpendingPatterns,
	})
	if err != nil {
		a.llm.fallback(ctx, opNarrative)
		narrative = FallbackNarrative
	}
	analysis.AnalysisSummary = narrative

	a.logger.Debug("expenditure analyzed",
		zap.Float64("total_spending", analysis.TotalSpending),
		zap.Int("categories", analysis.SpendingPatterns.CategoriesCount),
		zap.Bool("fallback", err != nil),
	)
	return analysis, nil
}
