package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fin-ai-bfa-go/internal/port"

	"go.uber.org/zap"
)

// Defaults for keys missing from an otherwise valid insights object.
const (
	defaultFinancialScore = 50
	defaultInsightSummary = "Analysis completed"
)

// InsightsGenerator turns an analysis into scored insights and
// recommendations. It never fails: parse errors and call errors each have
// their own deterministic answer.
type InsightsGenerator struct {
	llm    *completionCaller
	logger *zap.Logger
}

// NewInsightsGenerator creates the generator with its dependencies injected.
func NewInsightsGenerator(completer port.Completer, metrics *observability.Metrics, logger *zap.Logger) *InsightsGenerator {
	return &InsightsGenerator{
		llm:    newCompletionCaller(completer, metrics, logger),
		logger: logger,
	}
}

// Generate asks the completion service for a JSON insights object.
func (g *InsightsGenerator) Generate(ctx context.Context, analysis *domain.ExpenditureAnalysis, userContext string) *domain.InsightResponse {
	ctx, span := tracer.Start(ctx, "InsightsGenerator.Generate")
	defer span.End()

	text, err := g.llm.completeText(ctx, insightsPrompt{Analysis: analysis, UserContext: userContext})
	if err != nil {
		g.llm.fallback(ctx, opInsights)
		return FallbackInsights(analysis)
	}

	resp, err := ParseInsights(text)
	if err != nil {
		g.logger.Warn("insights output could not be parsed", zap.Error(err))
		g.llm.fallback(ctx, "insights_parse")
		return DegradedInsights()
	}
	return resp
}

// DegradedInsights is returned when the completion text is not a usable
// insights object.
func DegradedInsights() *domain.InsightResponse {
	return &domain.InsightResponse{
		Insights:        []string{"Unable to parse AI response"},
		Recommendations: []string{"Please try again"},
		FinancialScore:  50,
		Summary:         "Error processing AI response",
	}
}

// FallbackInsights derives rule-based insights from the analysis alone.
func FallbackInsights(analysis *domain.ExpenditureAnalysis) *domain.InsightResponse {
	return &domain.InsightResponse{
		Insights: []string{
			fmt.Sprintf("Your total spending is $%.2f", analysis.TotalSpending),
			fmt.Sprintf("You have %d spending categories", analysis.SpendingPatterns.CategoriesCount),
			fmt.Sprintf("Your highest spending category is %s", analysis.SpendingPatterns.HighestCategory),
		},
		Recommendations: []string{
			"Track your expenses regularly",
			"Set budget limits for each category",
			"Review and optimize your highest spending categories",
		},
		FinancialScore: FallbackScore(analysis.TotalSpending),
		Summary:        "Basic analysis completed with fallback insights",
	}
}

// FallbackScore is 100 - total/1000*10 truncated and clamped to [10,100].
func FallbackScore(totalSpending float64) int {
	raw := 100 - totalSpending/1000*10
	if math.IsNaN(raw) {
		return 10
	}
	raw = math.Max(10, math.Min(100, raw))
	return int(raw)
}

type rawInsights struct {
	Insights        *[]string       `json:"insights"`
	Recommendations *[]string       `json:"recommendations"`
	FinancialScore  json.RawMessage `json:"financial_score"`
	Summary         *string         `json:"summary"`
}

// ParseInsights extracts the text between the first '{' and the last '}'
// and decodes it. Missing keys take their defaults; a wrongly typed key is
// a parse failure.
func ParseInsights(text string) (*domain.InsightResponse, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, &domain.ErrMalformedCompletion{Reason: "no JSON object found"}
	}

	var raw rawInsights
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, &domain.ErrMalformedCompletion{Reason: "invalid JSON", Err: err}
	}

	score, err := parseScore(raw.FinancialScore)
	if err != nil {
		return nil, &domain.ErrMalformedCompletion{Reason: "invalid financial_score", Err: err}
	}

	resp := &domain.InsightResponse{
		Insights:        []string{},
		Recommendations: []string{},
		FinancialScore:  score,
		Summary:         defaultInsightSummary,
	}
	if raw.Insights != nil {
		resp.Insights = *raw.Insights
	}
	if raw.Recommendations != nil {
		resp.Recommendations = *raw.Recommendations
	}
	if raw.Summary != nil {
		resp.Summary = *raw.Summary
	}
	return resp, nil
}

// parseScore accepts a JSON number or a numeric string, truncates it and
// clamps it to [1,100]. An absent or null score takes the default.
func parseScore(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return defaultFinancialScore, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("unexpected type: %s", raw)
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, err
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite score")
	}

	f = math.Trunc(f)
	if f < 1 {
		return 1, nil
	}
	if f > 100 {
		return 100, nil
	}
	return int(f), nil
}
