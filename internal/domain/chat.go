package domain

// ============================================================
// Query types
// ============================================================

// QueryType is the classification label that decides which handler
// processes a chat request.
type QueryType string

const (
	QueryExpenditureAnalysis QueryType = "expenditure_analysis"
	QueryInsightsGeneration  QueryType = "insights_generation"
	QueryTaxAdvice           QueryType = "tax_advice"
	QueryInvestmentAdvice    QueryType = "investment_advice"
	QueryRevenueAnalysis     QueryType = "revenue_analysis"
	QueryGeneralChat         QueryType = "general_chat"
)

// AllQueryTypes lists every query type in canonical order.
var AllQueryTypes = []QueryType{
	QueryExpenditureAnalysis,
	QueryInsightsGeneration,
	QueryTaxAdvice,
	QueryInvestmentAdvice,
	QueryRevenueAnalysis,
	QueryGeneralChat,
}

// ParseQueryType maps a canonical label to its QueryType.
func ParseQueryType(label string) (QueryType, bool) {
	for _, qt := range AllQueryTypes {
		if string(qt) == label {
			return qt, true
		}
	}
	return "", false
}

// IsAdvice reports whether the query type is answered by a role-specific
// advice prompt.
func (q QueryType) IsAdvice() bool {
	switch q {
	case QueryTaxAdvice, QueryInvestmentAdvice, QueryRevenueAnalysis:
		return true
	}
	return false
}

// ============================================================
// Chat request/response
// ============================================================

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message         string             `json:"message"                    validate:"required"`
	UserContext     string             `json:"user_context"`
	ExpenditureData []ExpenditureEntry `json:"expenditure_data,omitempty" validate:"omitempty,dive"`
}

// HasExpenditureData reports whether the request carries entries to analyze.
func (r *ChatRequest) HasExpenditureData() bool {
	return len(r.ExpenditureData) > 0
}

// ChatResponse is what every route of the router returns.
// Data is opaque to the transport: an *ExpenditureAnalysis or an
// *InsightsPayload depending on the branch taken.
type ChatResponse struct {
	Response  string    `json:"response"`
	QueryType QueryType `json:"query_type"`
	Data      any       `json:"data,omitempty"`
}

// InsightRequest is the body of POST /generate-insights.
type InsightRequest struct {
	AnalysisData *ExpenditureAnalysis `json:"analysis_data" validate:"required"`
	UserContext  string               `json:"user_context"`
}

// FullAnalysisRequest is the body of POST /full-analysis.
type FullAnalysisRequest struct {
	Entries     []ExpenditureEntry `json:"entries" validate:"required,min=1,dive"`
	UserContext string             `json:"user_context"`
}

// ============================================================
// Routing context
// ============================================================

// QueryContext carries everything a strategy needs to answer a request.
// It is built by the MasterAgent once the category is known.
type QueryContext struct {
	// DispatchID correlates the log lines and spans of one dispatch.
	DispatchID string

	Message         string
	UserContext     string
	ExpenditureData []ExpenditureEntry

	QueryType QueryType
}

// HasExpenditureData reports whether the routed request carries entries.
func (c *QueryContext) HasExpenditureData() bool {
	return len(c.ExpenditureData) > 0
}
