package client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/resilience"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicClient calls the Anthropic Messages API through the official SDK.
// SDK-level retries are disabled; the resilience policy owns that decision.
type AnthropicClient struct {
	client      anthropic.Client
	hasKey      bool
	model       string
	maxTokens   int
	temperature float64
	policy      resilience.Policy
}

// AnthropicOptions configures an AnthropicClient. BaseURL is only set in tests.
type AnthropicOptions struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// NewAnthropicClient creates a new AnthropicClient.
func NewAnthropicClient(httpClient *http.Client, opts AnthropicOptions, policy resilience.Policy) *AnthropicClient {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	model := opts.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicClient{
		client:      anthropic.NewClient(reqOpts...),
		hasKey:      strings.TrimSpace(opts.APIKey) != "",
		model:       model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		policy:      policy,
	}
}

// Provider names the backend for logs and error values.
func (c *AnthropicClient) Provider() string {
	return "anthropic"
}

// Complete sends the request to the Messages API and concatenates the text blocks.
func (c *AnthropicClient) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResult, error) {
	ctx, span := tracer.Start(ctx, "AnthropicClient.Complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("completion.operation", req.Operation),
		attribute.String("completion.model", c.model),
	)

	if !c.hasKey {
		return nil, &domain.ErrCompletionUnavailable{Provider: c.Provider(), Err: errMissingAPIKey}
	}

	params := c.buildParams(req)

	result, err := resilience.Guard(ctx, c.policy, func(ctx context.Context) (*domain.CompletionResult, error) {
		msg, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return nil, err
		}

		var sb strings.Builder
		for _, block := range msg.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		if sb.Len() == 0 {
			return nil, errors.New("anthropic response has no text content")
		}

		prompt := int(msg.Usage.InputTokens)
		completion := int(msg.Usage.OutputTokens)
		return &domain.CompletionResult{
			Text:  sb.String(),
			Model: string(msg.Model),
			TokensUsed: domain.TokenUsage{
				PromptTokens:     prompt,
				CompletionTokens: completion,
				TotalTokens:      prompt + completion,
			},
		}, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, &domain.ErrCompletionUnavailable{Provider: c.Provider(), Err: err}
	}

	span.SetAttributes(attribute.Int("completion.tokens", result.TokensUsed.TotalTokens))
	return result, nil
}

func (c *AnthropicClient) buildParams(req *domain.CompletionRequest) anthropic.MessageNewParams {
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == domain.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
			continue
		}
		messages = append(messages, anthropic.NewUserMessage(block))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	temperature := req.Temperature
	if temperature <= 0 {
		temperature = c.temperature
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(temperature)
	}
	return params
}
