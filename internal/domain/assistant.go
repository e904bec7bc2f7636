package domain

// ============================================================
// Completion service contract
// ============================================================

// Completion roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CompletionMessage is one turn sent to the completion service.
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the provider-neutral payload of a single completion call.
// Zero MaxTokens / Temperature mean "use the client default".
type CompletionRequest struct {
	// Operation names the caller (classifier, analyzer, insights, ...) for
	// metrics and tracing.
	Operation   string
	System      string
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float64
}

// CompletionResult is the generated text plus the usage the provider reported.
type CompletionResult struct {
	Text       string
	Model      string
	TokensUsed TokenUsage
}

// TokenUsage tracks LLM token consumption for cost monitoring.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
