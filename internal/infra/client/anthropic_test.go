package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/client"
)

func TestAnthropicClient_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("expected path /v1/messages, got %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("expected api key header, got %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "Keep receipts for every deduction."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 25, "output_tokens": 8}
		}`))
	}))
	defer server.Close()

	c := client.NewAnthropicClient(&http.Client{Timeout: 5 * time.Second},
		client.AnthropicOptions{BaseURL: server.URL, APIKey: "test-key"}, newPolicy("anthropic-ok"))

	res, err := c.Complete(context.Background(), userRequest("tax tips?"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Text != "Keep receipts for every deduction." {
		t.Errorf("unexpected text %q", res.Text)
	}
	if res.TokensUsed.TotalTokens != 33 {
		t.Errorf("expected 33 tokens, got %d", res.TokensUsed.TotalTokens)
	}
}

func TestAnthropicClient_MissingKeyFailsAtCallTime(t *testing.T) {
	c := client.NewAnthropicClient(http.DefaultClient, client.AnthropicOptions{}, newPolicy("anthropic-nokey"))

	_, err := c.Complete(context.Background(), userRequest("hi"))

	var unavailable *domain.ErrCompletionUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrCompletionUnavailable, got %v", err)
	}
	if unavailable.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic', got %q", unavailable.Provider)
	}
}

func TestAnthropicClient_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`))
	}))
	defer server.Close()

	c := client.NewAnthropicClient(http.DefaultClient,
		client.AnthropicOptions{BaseURL: server.URL, APIKey: "bad"}, newPolicy("anthropic-401"))

	_, err := c.Complete(context.Background(), userRequest("hi"))

	var unavailable *domain.ErrCompletionUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("expected ErrCompletionUnavailable, got %v", err)
	}
}
