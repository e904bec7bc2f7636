package service_test

import (
	"context"
	"errors"
	"sync"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
)

// --- Mocks ---

var errUnavailable = errors.New("completion service down")

type reply struct {
	text string
	err  error
}

// scriptedCompleter answers by operation label and records every call.
// Operations without a scripted reply fail.
type scriptedCompleter struct {
	mu       sync.Mutex
	replies  map[string]reply
	calls    []string
	requests []*domain.CompletionRequest
}

func newScripted(replies map[string]reply) *scriptedCompleter {
	if replies == nil {
		replies = map[string]reply{}
	}
	return &scriptedCompleter{replies: replies}
}

func (m *scriptedCompleter) Complete(_ context.Context, req *domain.CompletionRequest) (*domain.CompletionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req.Operation)
	m.requests = append(m.requests, req)

	r, ok := m.replies[req.Operation]
	if !ok {
		return nil, &domain.ErrCompletionUnavailable{Provider: "mock", Err: errUnavailable}
	}
	if r.err != nil {
		return nil, r.err
	}
	return &domain.CompletionResult{
		Text:       r.text,
		Model:      "mock-model",
		TokensUsed: domain.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func (m *scriptedCompleter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *scriptedCompleter) called(op string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.calls {
		if c == op {
			return true
		}
	}
	return false
}

// failingCompleter fails every call.
func failingCompleter() *scriptedCompleter {
	return newScripted(nil)
}

func entries(pairs ...any) []domain.ExpenditureEntry {
	var out []domain.ExpenditureEntry
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.ExpenditureEntry{
			Category: pairs[i].(string),
			Amount:   pairs[i+1].(float64),
		})
	}
	return out
}
