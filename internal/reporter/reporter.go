// Package reporter renders reconciliation runs for people and programs.
//
// Supported output formats:
//   - Console: aligned tables for terminal display
//   - JSON: the full run for programmatic consumption
//   - CSV: one combined file with a Section column
//   - XLSX: a workbook with one sheet per table plus a summary sheet
//
// Exporter writes the per-table CSV files and the workbook into a directory.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"bank-ledger-reconciler/internal/matcher"
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/reconciler"
	"bank-ledger-reconciler/pkg/errors"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
	FormatXLSX    OutputFormat = "xlsx"
)

// Formats lists every supported output format.
func Formats() []OutputFormat {
	return []OutputFormat{FormatConsole, FormatJSON, FormatCSV, FormatXLSX}
}

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV, FormatXLSX:
		return true
	default:
		return false
	}
}

// IsBinary reports whether the format should not be written to a terminal.
func (f OutputFormat) IsBinary() bool {
	return f == FormatXLSX
}

// ReportConfig holds configuration options for report generation.
//
// The Include flags apply to the console and CSV formats. JSON and XLSX
// always carry every table.
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	IncludeMatched         bool `json:"include_matched"`
	IncludeUnmatchedBank   bool `json:"include_unmatched_bank"`
	IncludeUnmatchedLedger bool `json:"include_unmatched_ledger"`
	IncludeDuplicates      bool `json:"include_duplicates"`

	// Console formatting options
	MaxCellWidth int `json:"max_cell_width"`
	MaxRows      int `json:"max_rows"` // 0 prints every row

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:                 FormatConsole,
		IncludeMatched:         true,
		IncludeUnmatchedBank:   true,
		IncludeUnmatchedLedger: true,
		IncludeDuplicates:      true,
		MaxCellWidth:           40,
		CSVDelimiter:           ',',
		CSVHeaders:             true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "output-format", string(c.Format), nil).
			WithSuggestion("Use one of: console, json, csv, xlsx")
	}
	if c.MaxCellWidth < 10 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "max_cell_width", c.MaxCellWidth,
			fmt.Errorf("must be at least 10 characters, got %d", c.MaxCellWidth))
	}
	if c.MaxRows < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "max_rows", c.MaxRows, nil)
	}
	if c.Format == FormatCSV && (c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n') {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "csv_delimiter", string(c.CSVDelimiter), nil)
	}
	return nil
}

// Document is the JSON shape of a run.
type Document struct {
	RunID           string                   `json:"run_id"`
	StartedAt       time.Time                `json:"started_at"`
	DurationMS      int64                    `json:"duration_ms"`
	Similarity      string                   `json:"similarity"`
	Thresholds      matcher.Thresholds       `json:"thresholds"`
	Summary         models.Summary           `json:"summary"`
	Matched         []models.Match           `json:"matched"`
	UnmatchedBank   []models.UnmatchedEntry  `json:"unmatched_bank"`
	UnmatchedLedger []models.UnmatchedEntry  `json:"unmatched_ledger"`
	Duplicates      []matcher.DuplicateGroup `json:"duplicates,omitempty"`
}

// NewDocument flattens a run into its JSON document.
func NewDocument(run *reconciler.RunResult) *Document {
	result := run.Result
	if result == nil {
		result = models.NewResult()
	}
	doc := &Document{
		RunID:           run.RunID,
		StartedAt:       run.StartedAt,
		DurationMS:      run.Duration.Milliseconds(),
		Similarity:      run.Similarity,
		Thresholds:      run.Thresholds,
		Summary:         run.Summary,
		Matched:         result.Matches,
		UnmatchedBank:   result.UnmatchedBank,
		UnmatchedLedger: result.UnmatchedLedger,
		Duplicates:      run.Duplicates,
	}
	if doc.Matched == nil {
		doc.Matched = []models.Match{}
	}
	if doc.UnmatchedBank == nil {
		doc.UnmatchedBank = []models.UnmatchedEntry{}
	}
	if doc.UnmatchedLedger == nil {
		doc.UnmatchedLedger = []models.UnmatchedEntry{}
	}
	return doc
}

// ReportGenerator generates reconciliation reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport renders the run and writes it to the provided writer
func (rg *ReportGenerator) GenerateReport(run *reconciler.RunResult, writer io.Writer) error {
	if run == nil || run.Result == nil {
		return errors.ValidationError(errors.CodeMissingField, "result", nil, nil)
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(run, writer)
	case FormatJSON:
		return rg.generateJSONReport(run, writer)
	case FormatCSV:
		return rg.generateCSVReport(run, writer)
	case FormatXLSX:
		return WriteWorkbook(run, ReportSheets, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// generateConsoleReport generates a human-readable console report
func (rg *ReportGenerator) generateConsoleReport(run *reconciler.RunResult, writer io.Writer) error {
	result := run.Result

	fmt.Fprintf(writer, "RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Run:        %s\n", run.RunID)
	fmt.Fprintf(writer, "Generated:  %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Duration:   %v\n", run.Duration)
	fmt.Fprintf(writer, "Similarity: %s\n", run.Similarity)
	fmt.Fprintf(writer, "Thresholds: amount +/-%s, date +/-%d days, description >= %d\n\n",
		run.Thresholds.AmountTolerance.String(), run.Thresholds.DateToleranceDays, run.Thresholds.DescSimThreshold)

	if rg.config.IncludeMatched {
		rows := make([][]string, 0, len(result.Matches))
		for _, m := range result.Matches {
			rows = append(rows, matchedRow(m))
		}
		if err := rg.printTable(writer, fmt.Sprintf("MATCHED (%d)", len(rows)), MatchedHeaders, rows); err != nil {
			return err
		}
	}

	if rg.config.IncludeUnmatchedBank {
		if err := rg.printUnmatched(writer, "UNMATCHED BANK", result.UnmatchedBank); err != nil {
			return err
		}
	}

	if rg.config.IncludeUnmatchedLedger {
		if err := rg.printUnmatched(writer, "UNMATCHED LEDGER", result.UnmatchedLedger); err != nil {
			return err
		}
	}

	if rg.config.IncludeDuplicates && len(run.Duplicates) > 0 {
		fmt.Fprintf(writer, "=== DUPLICATES (%d) ===\n", len(run.Duplicates))
		for _, group := range run.Duplicates {
			fmt.Fprintf(writer, "  - %s: %s\n", group.GroupID, group.Reason())
		}
		fmt.Fprintf(writer, "\n")
	}

	return rg.printTable(writer, "SUMMARY", SummaryHeaders, summaryRows(run.Summary))
}

func (rg *ReportGenerator) printUnmatched(writer io.Writer, title string, entries []models.UnmatchedEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, unmatchedRow(e))
	}
	return rg.printTable(writer, fmt.Sprintf("%s (%d)", title, len(rows)), UnmatchedHeaders, rows)
}

func (rg *ReportGenerator) printTable(writer io.Writer, title string, headers []string, rows [][]string) error {
	fmt.Fprintf(writer, "=== %s ===\n", title)
	if len(rows) == 0 {
		fmt.Fprintf(writer, "  (none)\n\n")
		return nil
	}

	tw := tabwriter.NewWriter(writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for i, row := range rows {
		if rg.config.MaxRows > 0 && i >= rg.config.MaxRows {
			fmt.Fprintf(tw, "... and %d more\n", len(rows)-rg.config.MaxRows)
			break
		}
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = truncate(cell, rg.config.MaxCellWidth)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}

	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(writer, "\n")
	return nil
}

// generateJSONReport generates a structured JSON report
func (rg *ReportGenerator) generateJSONReport(run *reconciler.RunResult, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(NewDocument(run))
}

// generateCSVReport writes every table into one CSV, tagged by Section.
func (rg *ReportGenerator) generateCSVReport(run *reconciler.RunResult, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(combinedHeaders); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	result := run.Result
	empty := []string{"", "", ""}

	if rg.config.IncludeMatched {
		for _, m := range result.Matches {
			row := matchedRow(m)
			record := append([]string{SectionMatched}, row...)
			record = append(record, "")
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write matched record: %w", err)
			}
		}
	}

	if rg.config.IncludeUnmatchedBank {
		for _, e := range result.UnmatchedBank {
			row := unmatchedRow(e)
			record := []string{SectionUnmatchedBank, row[0], row[1], row[2]}
			record = append(record, empty...)
			record = append(record, row[4], row[3])
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write unmatched bank record: %w", err)
			}
		}
	}

	if rg.config.IncludeUnmatchedLedger {
		for _, e := range result.UnmatchedLedger {
			row := unmatchedRow(e)
			record := append([]string{SectionUnmatchedLedger}, empty...)
			record = append(record, row[0], row[1], row[2], row[4], row[3])
			if err := csvWriter.Write(record); err != nil {
				return fmt.Errorf("failed to write unmatched ledger record: %w", err)
			}
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
