// Package client holds the completion-service adapters that implement
// port.Completer. Each adapter runs its HTTP call behind the shared
// resilience policy and reports failures as *domain.ErrCompletionUnavailable.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/resilience"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("client")

// Defaults applied when a request leaves them unset.
const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
	defaultMaxTokens   = 1024
)

// errMissingAPIKey is returned at call time; a missing credential is
// discovered on first use, never at startup.
var errMissingAPIKey = errors.New("api key is not configured")

// GroqClient calls the Groq OpenAI-compatible chat completions API.
type GroqClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	policy      resilience.Policy
}

// GroqOptions configures a GroqClient. Zero values fall back to defaults.
type GroqOptions struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

type groqChatRequest struct {
	Model       string                     `json:"model"`
	Messages    []domain.CompletionMessage `json:"messages"`
	Temperature float64                    `json:"temperature"`
	MaxTokens   int                        `json:"max_tokens,omitempty"`
}

type groqChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message domain.CompletionMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGroqClient creates a new GroqClient.
func NewGroqClient(httpClient *http.Client, opts GroqOptions, policy resilience.Policy) *GroqClient {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	model := opts.Model
	if model == "" {
		model = DefaultGroqModel
	}
	return &GroqClient{
		httpClient:  httpClient,
		baseURL:     baseURL,
		apiKey:      opts.APIKey,
		model:       model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		policy:      policy,
	}
}

// Provider names the backend for logs and error values.
func (c *GroqClient) Provider() string {
	return "groq"
}

// Complete sends the request to /chat/completions and returns the first choice.
func (c *GroqClient) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResult, error) {
	ctx, span := tracer.Start(ctx, "GroqClient.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("completion.operation", req.Operation),
		attribute.String("completion.model", c.model),
	)

	if strings.TrimSpace(c.apiKey) == "" {
		return nil, &domain.ErrCompletionUnavailable{Provider: c.Provider(), Err: errMissingAPIKey}
	}

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, &domain.ErrCompletionUnavailable{Provider: c.Provider(), Err: fmt.Errorf("marshal request: %w", err)}
	}

	result, err := resilience.Guard(ctx, c.policy, func(ctx context.Context) (*domain.CompletionResult, error) {
		return c.do(ctx, body)
	})
	if err != nil {
		span.RecordError(err)
		return nil, &domain.ErrCompletionUnavailable{Provider: c.Provider(), Err: err}
	}

	span.SetAttributes(attribute.Int("completion.tokens", result.TokensUsed.TotalTokens))
	return result, nil
}

func (c *GroqClient) buildRequest(req *domain.CompletionRequest) groqChatRequest {
	messages := make([]domain.CompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, domain.CompletionMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, req.Messages...)

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = c.temperature
	}

	return groqChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

func (c *GroqClient) do(ctx context.Context, body []byte) (*domain.CompletionResult, error) {
	url := fmt.Sprintf("%s/chat/completions", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http call to groq: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read groq response: %w", err)
	}

	var parsed groqChatResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && parsed.Error != nil {
			return nil, fmt.Errorf("groq returned status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("groq returned status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode groq response: %w", decodeErr)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("groq response has no choices")
	}

	model := parsed.Model
	if model == "" {
		model = c.model
	}
	return &domain.CompletionResult{
		Text:  parsed.Choices[0].Message.Content,
		Model: model,
		TokensUsed: domain.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}
