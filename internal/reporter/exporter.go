package reporter

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"bank-ledger-reconciler/internal/reconciler"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"
)

// Output file names written by ExportDir.
const (
	MatchedFile         = "matched.csv"
	UnmatchedBankFile   = "unmatched_bank.csv"
	UnmatchedLedgerFile = "unmatched_ledger.csv"
	WorkbookFile        = "reconciliation_report.xlsx"
)

// Exporter writes a run as a directory of report files.
type Exporter struct {
	logger logger.Logger
}

// NewExporter creates an Exporter. A nil logger uses the global one.
func NewExporter(log logger.Logger) *Exporter {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Exporter{logger: log.WithComponent("exporter")}
}

// ExportDir writes matched.csv, unmatched_bank.csv, unmatched_ledger.csv
// and reconciliation_report.xlsx into dir, creating it if needed. It
// returns the written paths in that order.
func (e *Exporter) ExportDir(dir string, run *reconciler.RunResult) ([]string, error) {
	if run == nil || run.Result == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "result", nil, nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.FileError(errors.CodeDirectoryError, dir, err)
	}

	result := run.Result
	matched := make([][]string, 0, len(result.Matches))
	for _, m := range result.Matches {
		matched = append(matched, matchedRow(m))
	}
	unmatchedBank := make([][]string, 0, len(result.UnmatchedBank))
	for _, u := range result.UnmatchedBank {
		unmatchedBank = append(unmatchedBank, unmatchedRow(u))
	}
	unmatchedLedger := make([][]string, 0, len(result.UnmatchedLedger))
	for _, u := range result.UnmatchedLedger {
		unmatchedLedger = append(unmatchedLedger, unmatchedRow(u))
	}

	files := []struct {
		name    string
		headers []string
		rows    [][]string
	}{
		{MatchedFile, MatchedHeaders, matched},
		{UnmatchedBankFile, UnmatchedHeaders, unmatchedBank},
		{UnmatchedLedgerFile, UnmatchedHeaders, unmatchedLedger},
	}

	paths := make([]string, 0, len(files)+1)
	for _, file := range files {
		path := filepath.Join(dir, file.name)
		if err := writeCSVFile(path, file.headers, file.rows); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	workbook, err := BuildWorkbook(run, ExportSheets)
	if err != nil {
		return paths, errors.InternalError(errors.CodeProcessingError, "build_workbook", err)
	}
	defer workbook.Close()

	path := filepath.Join(dir, WorkbookFile)
	if err := workbook.SaveAs(path); err != nil {
		return paths, errors.FileError(writeErrorCode(err), path, err)
	}
	paths = append(paths, path)

	e.logger.WithFields(logger.Fields{
		"run_id": run.RunID,
		"dir":    dir,
		"files":  len(paths),
	}).Info("Exported reconciliation files")
	return paths, nil
}

func writeCSVFile(path string, headers []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.FileError(writeErrorCode(err), path, err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(headers); err != nil {
		file.Close()
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		file.Close()
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	if err := file.Close(); err != nil {
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	return nil
}

func writeErrorCode(err error) errors.ErrorCode {
	if os.IsPermission(err) {
		return errors.CodeFilePermission
	}
	return errors.CodeDirectoryError
}
