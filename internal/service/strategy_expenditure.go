package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"
)

// ClarifyingText asks for spending data when an expenditure question
// arrives without any.
const ClarifyingText = "To analyze your expenditure, I'll need your spending data. You can provide it in your next message, or I can give you general budgeting advice instead. What would you prefer?"

// ============================================================
// ExpenditureStrategy: spending breakdown
// ============================================================

// ExpenditureStrategy answers expenditure_analysis requests.
type ExpenditureStrategy struct {
	analyzer *ExpenditureAnalyzer
}

// NewExpenditureStrategy creates the strategy.
func NewExpenditureStrategy(analyzer *ExpenditureAnalyzer) *ExpenditureStrategy {
	return &ExpenditureStrategy{analyzer: analyzer}
}

// CanHandle accepts expenditure_analysis only.
func (s *ExpenditureStrategy) CanHandle(queryType domain.QueryType) bool {
	return queryType == domain.QueryExpenditureAnalysis
}

// Handle analyzes the attached entries, or asks for them without calling
// the completion service.
func (s *ExpenditureStrategy) Handle(ctx context.Context, qc *domain.QueryContext) (*domain.ChatResponse, error) {
	if !qc.HasExpenditureData() {
		return &domain.ChatResponse{Response: ClarifyingText, QueryType: domain.QueryExpenditureAnalysis}, nil
	}

	analysis, err := s.analyzer.Analyze(ctx, qc.ExpenditureData)
	if err != nil {
		var analysisErr *domain.ErrAnalysis
		if errors.As(err, &analysisErr) {
			return &domain.ChatResponse{
				Response:  fmt.Sprintf("Sorry, I couldn't analyze your expenditure data: %s", analysisErr.Reason),
				QueryType: domain.QueryExpenditureAnalysis,
			}, nil
		}
		return nil, err
	}

	return &domain.ChatResponse{
		Response:  FormatAnalysis(analysis),
		QueryType: domain.QueryExpenditureAnalysis,
		Data:      analysis,
	}, nil
}
