package service

import (
	"encoding/json"
	"fmt"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
)

// ============================================================
// Prompt types
// ============================================================

// prompt is rendered into a provider-neutral completion request right
// before the call.
type prompt interface {
	render() *domain.CompletionRequest
}

// Operation labels, used for metrics, logs and spans.
const (
	opClassify     = "classifier"
	opNarrative    = "analyzer"
	opInsights     = "insights"
	opOpenInsights = "insights_open"
	opAdvice       = "advice"
	opGeneralChat  = "general_chat"
)

func userOnly(op, text string) *domain.CompletionRequest {
	return &domain.CompletionRequest{
		Operation: op,
		Messages:  []domain.CompletionMessage{{Role: domain.RoleUser, Content: text}},
	}
}

// indentJSON renders v the way the narrative and insights prompts embed
// structured data. Marshal errors cannot happen for the map and struct
// types passed here.
func indentJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// classificationPrompt asks for exactly one category label.
type classificationPrompt struct {
	Message string
}

func (p classificationPrompt) render() *domain.CompletionRequest {
	req := userOnly(opClassify, fmt.Sprintf(`Classify the following user message into one of these categories:
- expenditure_analysis: User wants to analyze spending/expenses/budget
- insights_generation: User wants financial insights, recommendations, or advice
- tax_advice: User asks about taxes, deductions, or tax planning
- investment_advice: User asks about investments, stocks, or portfolio
- revenue_analysis: User asks about income, revenue, or earnings analysis
- general_chat: General financial questions or conversation

User message: %q

Respond with only the category name (e.g., "expenditure_analysis").`, p.Message))
	req.MaxTokens = 16
	return req
}

// narrativePrompt asks for a short prose summary of aggregated figures.
type narrativePrompt struct {
	Total     float64
	Breakdown map[string]float64
	Patterns  domain.SpendingPatterns
}

func (p narrativePrompt) render() *domain.CompletionRequest {
	return &domain.CompletionRequest{
		Operation: opNarrative,
		System: fmt.Sprintf(`You are a financial analyst. You will analyze the following financial data:

Total Spending: $%.2f
Category Breakdown: %s
Spending Patterns: %s

Please provide a brief analysis summary.`, p.Total, indentJSON(p.Breakdown), indentJSON(p.Patterns)),
		Messages: []domain.CompletionMessage{{Role: domain.RoleUser, Content: "Analyze expenditure"}},
	}
}

// insightsPrompt asks for the structured JSON insights object.
type insightsPrompt struct {
	Analysis    *domain.ExpenditureAnalysis
	UserContext string
}

func (p insightsPrompt) render() *domain.CompletionRequest {
	a := p.Analysis
	return &domain.CompletionRequest{
		Operation: opInsights,
		System: fmt.Sprintf(`You are a financial analyst. You will analyze the following financial data and provide insights:

Total Spending: $%.2f
Category Breakdown: %s
Spending Patterns: %s
Analysis Summary: %s
User Context: %s

Please provide a JSON response with:
1. "insights": List of 3-5 key insights about spending behavior
2. "recommendations": List of 3-5 actionable recommendations
3. "financial_score": Score from 1-100 based on spending health
4. "summary": Brief overall summary

Format as valid JSON only.`,
			a.TotalSpending, indentJSON(a.CategoryBreakdown), indentJSON(a.SpendingPatterns),
			a.AnalysisSummary, p.UserContext),
		Messages: []domain.CompletionMessage{{Role: domain.RoleUser, Content: "Generate financial insights"}},
	}
}

// openInsightsPrompt asks for conversational insights when no data was sent.
type openInsightsPrompt struct {
	Message     string
	UserContext string
}

func (p openInsightsPrompt) render() *domain.CompletionRequest {
	return userOnly(opOpenInsights, fmt.Sprintf(`The user is asking for financial insights: %q
User context: %s

Provide personalized financial insights and recommendations in a conversational tone.
Focus on actionable advice for better financial management.
Keep it practical and helpful.`, p.Message, p.UserContext))
}

// advisorRoles is the persona line of each advice category.
var advisorRoles = map[domain.QueryType]string{
	domain.QueryTaxAdvice:        "You are a tax advisor. Provide helpful tax advice and tips for the user's question. Be specific and actionable.",
	domain.QueryInvestmentAdvice: "You are an investment advisor. Provide investment guidance and strategies for the user's question. Focus on practical advice.",
	domain.QueryRevenueAnalysis:  "You are a financial analyst. Provide revenue analysis and business income insights for the user's question.",
}

// advicePrompt wraps the user's question in a role-specific persona.
type advicePrompt struct {
	QueryType   domain.QueryType
	Message     string
	UserContext string
}

func (p advicePrompt) render() *domain.CompletionRequest {
	return userOnly(opAdvice, fmt.Sprintf(`%s

User question: %q
User context: %s

Provide clear, actionable advice in a conversational tone.
Include specific steps or recommendations where appropriate.
Keep it practical and helpful.`, advisorRoles[p.QueryType], p.Message, p.UserContext))
}

// generalChatPrompt answers anything that is not a specialised category.
type generalChatPrompt struct {
	Message     string
	UserContext string
}

func (p generalChatPrompt) render() *domain.CompletionRequest {
	return userOnly(opGeneralChat, fmt.Sprintf(`The user is asking: %q
User context: %s

This appears to be a general financial question. Provide a helpful, conversational response
related to personal finance, money management, or financial planning.
Keep it friendly and informative.`, p.Message, p.UserContext))
}
