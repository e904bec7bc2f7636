package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/boddenberg/fin-ai-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

// Aggregate computes the deterministic statistics of a list of entries.
// AnalysisSummary is left empty; the analyzer fills it in.
//
// Sums are accumulated as decimals so that the category breakdown always
// adds up to the total. Among categories tied at the maximum, the
// lexicographically smallest name is reported as HighestCategory.
func Aggregate(entries []domain.ExpenditureEntry) (*domain.ExpenditureAnalysis, error) {
	total := decimal.Zero
	sums := make(map[string]decimal.Decimal)

	for i, e := range entries {
		if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
			return nil, &domain.ErrAnalysis{Reason: fmt.Sprintf("entry %d has a non-finite amount", i)}
		}
		amount := decimal.NewFromFloat(e.Amount)
		total = total.Add(amount)
		sums[e.Category] = sums[e.Category].Add(amount)
	}

	categories := make([]string, 0, len(sums))
	for c := range sums {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	breakdown := make(map[string]float64, len(sums))
	highest := ""
	var highestSum decimal.Decimal
	for i, c := range categories {
		breakdown[c] = sums[c].InexactFloat64()
		if i == 0 || sums[c].GreaterThan(highestSum) {
			highest = c
			highestSum = sums[c]
		}
	}

	avg := 0.0
	if len(entries) > 0 {
		avg = total.Div(decimal.NewFromInt(int64(len(entries)))).InexactFloat64()
	}

	return &domain.ExpenditureAnalysis{
		TotalSpending:     total.InexactFloat64(),
		CategoryBreakdown: breakdown,
		SpendingPatterns: domain.SpendingPatterns{
			AvgTransaction:   avg,
			HighestCategory:  highest,
			TransactionCount: len(entries),
			CategoriesCount:  len(breakdown),
		},
	}, nil
}
