package reporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/reconciler"
)

const xlsxColumnWidth = 20

// SheetNames names the four sheets of a workbook.
type SheetNames struct {
	Matched         string
	UnmatchedBank   string
	UnmatchedLedger string
	Summary         string
}

var (
	// ReportSheets is used for the xlsx report format and the HTTP download.
	ReportSheets = SheetNames{
		Matched:         "Matched",
		UnmatchedBank:   "Unmatched Bank",
		UnmatchedLedger: "Unmatched Ledger",
		Summary:         "Summary",
	}

	// ExportSheets is used for reconciliation_report.xlsx in an export directory.
	ExportSheets = SheetNames{
		Matched:         "Matched",
		UnmatchedBank:   "Unmatched_Bank",
		UnmatchedLedger: "Unmatched_Ledger",
		Summary:         "Summary",
	}
)

// BuildWorkbook lays the run out as a workbook. The caller must Close it.
func BuildWorkbook(run *reconciler.RunResult, names SheetNames) (*excelize.File, error) {
	result := run.Result
	if result == nil {
		result = models.NewResult()
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", names.Matched); err != nil {
		f.Close()
		return nil, err
	}

	matched := make([][]any, 0, len(result.Matches))
	for _, m := range result.Matches {
		matched = append(matched, []any{
			m.Bank.DateString(), m.Bank.Amount.InexactFloat64(), m.Bank.Description,
			m.Ledger.DateString(), m.Ledger.Amount.InexactFloat64(), m.Ledger.Description,
			m.Confidence,
		})
	}

	sheets := []struct {
		name    string
		headers []string
		rows    [][]any
	}{
		{names.Matched, MatchedHeaders, matched},
		{names.UnmatchedBank, UnmatchedHeaders, unmatchedCells(result.UnmatchedBank)},
		{names.UnmatchedLedger, UnmatchedHeaders, unmatchedCells(result.UnmatchedLedger)},
		{names.Summary, SummaryHeaders, summaryCells(run.Summary)},
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, sheet := range sheets {
		if i > 0 {
			if _, err := f.NewSheet(sheet.name); err != nil {
				f.Close()
				return nil, err
			}
		}
		if err := writeSheet(f, sheet.name, sheet.headers, sheet.rows, style); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write sheet %q: %w", sheet.name, err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// WriteWorkbook builds the workbook and streams it to w.
func WriteWorkbook(run *reconciler.RunResult, names SheetNames, w io.Writer) error {
	f, err := BuildWorkbook(run, names)
	if err != nil {
		return err
	}
	defer f.Close()

	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any, headerStyle int) error {
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, xlsxColumnWidth)
}

func unmatchedCells(entries []models.UnmatchedEntry) [][]any {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{
			e.Record.DateString(), e.Record.Amount.InexactFloat64(), e.Record.Description,
			string(e.Reason), e.Confidence,
		})
	}
	return rows
}

func summaryCells(s models.Summary) [][]any {
	rows := make([][]any, 0, 6)
	for _, r := range s.Rows() {
		rows = append(rows, []any{r[0], r[1]})
	}
	return rows
}
