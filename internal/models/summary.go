package models

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Summary holds the derived statistics reported alongside a Result.
type Summary struct {
	TotalBank       int     `json:"total_bank" yaml:"total_bank"`
	Matched         int     `json:"matched" yaml:"matched"`
	UnmatchedBank   int     `json:"unmatched_bank" yaml:"unmatched_bank"`
	UnmatchedLedger int     `json:"unmatched_ledger" yaml:"unmatched_ledger"`
	MatchedPercent  string  `json:"matched_percent" yaml:"matched_percent"`
	AvgConfidence   float64 `json:"avg_confidence" yaml:"avg_confidence"`
}

var hundred = decimal.NewFromInt(100)

// ComputeSummary derives the summary statistics for a result. The matched
// percentage is "0.00%" when there are no bank records, and the average
// confidence is 0 when nothing matched.
func ComputeSummary(result *Result) Summary {
	if result == nil {
		result = NewResult()
	}

	summary := Summary{
		TotalBank:       result.TotalBank(),
		Matched:         len(result.Matches),
		UnmatchedBank:   len(result.UnmatchedBank),
		UnmatchedLedger: len(result.UnmatchedLedger),
		MatchedPercent:  "0.00%",
	}

	if summary.TotalBank > 0 {
		pct := decimal.NewFromInt(int64(summary.Matched)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(summary.TotalBank)))
		summary.MatchedPercent = pct.StringFixed(2) + "%"
	}

	if summary.Matched > 0 {
		total := decimal.Zero
		for _, m := range result.Matches {
			total = total.Add(decimal.NewFromFloat(m.Confidence))
		}
		summary.AvgConfidence = total.
			Div(decimal.NewFromInt(int64(summary.Matched))).
			Round(2).
			InexactFloat64()
	}

	return summary
}

// Rows returns the summary as ordered Metric/Value pairs for tabular reports.
func (s Summary) Rows() [][2]string {
	return [][2]string{
		{"Total Bank", strconv.Itoa(s.TotalBank)},
		{"Matched", strconv.Itoa(s.Matched)},
		{"Unmatched Bank", strconv.Itoa(s.UnmatchedBank)},
		{"Unmatched Ledger", strconv.Itoa(s.UnmatchedLedger)},
		{"% Matched", s.MatchedPercent},
		{"Avg Conf", decimal.NewFromFloat(s.AvgConfidence).StringFixed(2)},
	}
}
