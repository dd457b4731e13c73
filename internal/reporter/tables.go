package reporter

import (
	"strconv"

	"bank-ledger-reconciler/internal/models"
)

// Column headers shared by every tabular format.
var (
	MatchedHeaders   = []string{"Bank Date", "Bank Amount", "Bank Desc", "Ledger Date", "Ledger Amount", "Ledger Desc", "Confidence"}
	UnmatchedHeaders = []string{"Date", "Amount", "Description", "Reason", "Confidence"}
	SummaryHeaders   = []string{"Metric", "Value"}

	// combinedHeaders is the layout of the single-file CSV report.
	combinedHeaders = []string{"Section", "Bank Date", "Bank Amount", "Bank Desc", "Ledger Date", "Ledger Amount", "Ledger Desc", "Confidence", "Reason"}
)

// Section names used in the combined CSV.
const (
	SectionMatched         = "matched"
	SectionUnmatchedBank   = "unmatched_bank"
	SectionUnmatchedLedger = "unmatched_ledger"
)

func matchedRow(m models.Match) []string {
	return []string{
		m.Bank.DateString(),
		m.Bank.AmountString(),
		m.Bank.Description,
		m.Ledger.DateString(),
		m.Ledger.AmountString(),
		m.Ledger.Description,
		formatConfidence(m.Confidence),
	}
}

func unmatchedRow(e models.UnmatchedEntry) []string {
	return []string{
		e.Record.DateString(),
		e.Record.AmountString(),
		e.Record.Description,
		string(e.Reason),
		formatConfidence(e.Confidence),
	}
}

func summaryRows(s models.Summary) [][]string {
	rows := make([][]string, 0, 6)
	for _, r := range s.Rows() {
		rows = append(rows, []string{r[0], r[1]})
	}
	return rows
}

// formatConfidence prints the shortest exact form, so 87.6 stays "87.6".
func formatConfidence(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}
