package service

import (
	"context"
	"strings"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fin-ai-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// keywordRule maps a keyword set to the category it selects.
type keywordRule struct {
	queryType domain.QueryType
	keywords  []string
}

// keywordRules are checked in order; the first rule with any substring
// match wins.
var keywordRules = []keywordRule{
	{domain.QueryExpenditureAnalysis, []string{"spending", "expense", "expenditure", "analyze", "budget", "spent", "cost"}},
	{domain.QueryInsightsGeneration, []string{"insights", "recommendations", "advice", "help", "tips", "improve", "save"}},
	{domain.QueryTaxAdvice, []string{"tax", "taxation", "deduction", "filing", "irs", "refund"}},
	{domain.QueryInvestmentAdvice, []string{"invest", "investment", "stocks", "portfolio", "returns", "market"}},
	{domain.QueryRevenueAnalysis, []string{"revenue", "income", "earnings", "profit", "salary", "business"}},
}

// Classifier picks the QueryType of a message.
type Classifier struct {
	llm    *completionCaller
	logger *zap.Logger
}

// NewClassifier creates the classifier with its dependencies injected.
func NewClassifier(completer port.Completer, metrics *observability.Metrics, logger *zap.Logger) *Classifier {
	return &Classifier{
		llm:    newCompletionCaller(completer, metrics, logger),
		logger: logger,
	}
}

// Classify asks the completion service for a label. An unrecognised label
// is general_chat; the keyword scan only runs when the call itself fails.
func (c *Classifier) Classify(ctx context.Context, message string) domain.QueryType {
	ctx, span := tracer.Start(ctx, "Classifier.Classify")
	defer span.End()

	label, err := c.llm.completeText(ctx, classificationPrompt{Message: message})
	if err != nil {
		c.llm.fallback(ctx, opClassify)
		qt := KeywordClassify(message)
		span.SetAttributes(attribute.String("query.type", string(qt)), attribute.Bool("fallback", true))
		return qt
	}

	qt, ok := domain.ParseQueryType(normalizeLabel(label))
	if !ok {
		c.logger.Debug("unrecognised classification label", zap.String("label", label))
		qt = domain.QueryGeneralChat
	}
	span.SetAttributes(attribute.String("query.type", string(qt)))
	return qt
}

// KeywordClassify is the deterministic classifier used when the completion
// service is unavailable.
func KeywordClassify(message string) domain.QueryType {
	lower := strings.ToLower(message)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.queryType
			}
		}
	}
	return domain.QueryGeneralChat
}

// normalizeLabel strips whitespace, surrounding quotes or backticks and a
// trailing period, then lowercases.
func normalizeLabel(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.TrimSuffix(s, ".")
	s = strings.Trim(s, "\"'`")
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}
