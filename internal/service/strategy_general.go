package service

import (
	"context"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
	"github.com/boddenberg/fin-ai-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fin-ai-bfa-go/internal/port"

	"go.uber.org/zap"
)

// ============================================================
// GeneralChatStrategy: everything else
// ============================================================

// GeneralChatStrategy answers general_chat requests.
type GeneralChatStrategy struct {
	llm *completionCaller
}

// NewGeneralChatStrategy creates the strategy.
func NewGeneralChatStrategy(completer port.Completer, metrics *observability.Metrics, logger *zap.Logger) *GeneralChatStrategy {
	return &GeneralChatStrategy{llm: newCompletionCaller(completer, metrics, logger)}
}

// CanHandle accepts general_chat only.
func (s *GeneralChatStrategy) CanHandle(queryType domain.QueryType) bool {
	return queryType == domain.QueryGeneralChat
}

// Handle answers conversationally, or with GeneralHelpText when the
// completion service is unavailable.
func (s *GeneralChatStrategy) Handle(ctx context.Context, qc *domain.QueryContext) (*domain.ChatResponse, error) {
	text, err := s.llm.completeText(ctx, generalChatPrompt{Message: qc.Message, UserContext: qc.UserContext})
	if err != nil {
		s.llm.fallback(ctx, opGeneralChat)
		text = GeneralHelpText
	}
	return &domain.ChatResponse{Response: text, QueryType: domain.QueryGeneralChat}, nil
}
