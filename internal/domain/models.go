// Package domain defines the core entities of the financial AI router.
// These models are independent of the completion provider and of the HTTP
// transport; none of them outlives a single request.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// ============================================================
// Expenditure
// ============================================================

// ExpenditureEntry is a single spending record supplied with a request.
// Amount is expected to be non-negative but is not enforced.
type ExpenditureEntry struct {
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"    validate:"required"`
	Description string  `json:"description" validate:"required"`
	Date        Date    `json:"date"        validate:"required"`
}

// ExpenditureAnalysis is the deterministic aggregation of a list of entries
// plus the narrative produced by the completion service (or its fallback).
type ExpenditureAnalysis struct {
	TotalSpending     float64            `json:"total_spending"`
	CategoryBreakdown map[string]float64 `json:"category_breakdown"`
	SpendingPatterns  SpendingPatterns   `json:"spending_patterns"`
	AnalysisSummary   string             `json:"analysis_summary"`
}

// SpendingPatterns holds the summary statistics of an analysis.
type SpendingPatterns struct {
	AvgTransaction   float64 `json:"avg_transaction"`
	HighestCategory  string  `json:"highest_category"`
	TransactionCount int     `json:"transaction_count"`
	CategoriesCount  int     `json:"categories_count"`
}

// ============================================================
// Insights
// ============================================================

// InsightResponse is the structured output of the insights generator.
// FinancialScore is always within [1,100].
type InsightResponse struct {
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
	FinancialScore  int      `json:"financial_score"`
	Summary         string   `json:"summary"`
}

// InsightsPayload is the data attached to an insights_generation response
// when expenditure data was available.
type InsightsPayload struct {
	Analysis *ExpenditureAnalysis `json:"analysis"`
	Insights *InsightResponse     `json:"insights"`
}

// ============================================================
// Date
// ============================================================

// Date is a timestamp that also accepts the date-only and zone-less layouts
// clients commonly send, plus Unix epoch seconds as a JSON number. It always
// encodes as RFC3339. A JSON null leaves the zero value.
type Date struct {
	time.Time
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON parses any of the accepted layouts.
func (d *Date) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] != '"' {
		return d.unmarshalEpoch(b)
	}

	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("date must be a string or a number: %w", err)
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("unsupported date format: %q", raw)
}

// unmarshalEpoch reads Unix seconds, fractional part included, as UTC.
func (d *Date) unmarshalEpoch(b []byte) error {
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("date must be a string or a number: %w", err)
	}
	if secs, err := num.Int64(); err == nil {
		d.Time = time.Unix(secs, 0).UTC()
		return nil
	}
	f, err := num.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("unsupported epoch timestamp: %s", num)
	}
	secs, frac := math.Modf(f)
	d.Time = time.Unix(int64(secs), int64(math.Round(frac*1e9))).UTC()
	return nil
}

// MarshalJSON encodes the date as RFC3339.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time.Format(time.RFC3339))
}
