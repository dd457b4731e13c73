package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bank-ledger-reconciler/cmd/reconciler/config"
	"bank-ledger-reconciler/internal/reconciler"
	"bank-ledger-reconciler/internal/reporter"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"
)

const (
	keyBankFile   = "bank-file"
	keyLedgerFile = "ledger-file"
)

// Flags for the reconcile command
var (
	bankFile   string
	ledgerFile string
	settings   *config.Settings
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Match bank transactions against ledger entries",
	Long: `Reconcile pairs every bank record with at most one ledger record and reports
the matched pairs, the unmatched bank records and the unmatched ledger records.

A pair is eligible when the amounts differ by at most --amount-tolerance, the
dates by at most --date-tolerance days, and the description similarity is at
least --desc-threshold. Bank records are processed in file order and each takes
the highest-confidence eligible ledger record that is still free.

Both files are CSV with Date, Amount and Description columns.

Examples:
  # Console report
  reconciler reconcile --bank-file bank.csv --ledger-file ledger.csv

  # Write matched.csv, unmatched_*.csv and reconciliation_report.xlsx
  reconciler reconcile -b bank.csv -l ledger.csv --output-dir output

  # JSON report with tighter thresholds
  reconciler reconcile -b bank.csv -l ledger.csv --output-format json \
    --output-file report.json --preset strict --desc-threshold 80

  # Spreadsheet report
  reconciler reconcile -b bank.csv -l ledger.csv -f xlsx -o report.xlsx`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&bankFile, keyBankFile, "b", "", "path to the bank statement CSV file (required)")
	reconcileCmd.Flags().StringVarP(&ledgerFile, keyLedgerFile, "l", "", "path to the ledger CSV file (required)")

	// Output flags
	reconcileCmd.Flags().StringP("output-format", "f", "console", "report format: console, json, csv, xlsx")
	reconcileCmd.Flags().StringP("output-file", "o", "", "report file path (default: stdout)")
	reconcileCmd.Flags().String("output-dir", "", "also export matched/unmatched CSVs and the xlsx workbook to this directory")

	// Matching configuration flags
	reconcileCmd.Flags().String("preset", "default", "threshold preset: default, strict, relaxed")
	reconcileCmd.Flags().StringP("amount-tolerance", "a", "1.0", "largest accepted amount difference")
	reconcileCmd.Flags().IntP("date-tolerance", "d", 3, "largest accepted date difference in days")
	reconcileCmd.Flags().Int("desc-threshold", 60, "lowest accepted description similarity (0-100)")
	reconcileCmd.Flags().String("similarity", "partial_ratio", "similarity algorithm: partial_ratio, ratio, levenshtein, jaro_winkler")
	reconcileCmd.Flags().Bool("full-scan", false, "compare every pair instead of using the ledger date index")

	// Input flags
	reconcileCmd.Flags().String("delimiter", ",", "CSV field delimiter")
	reconcileCmd.Flags().Bool("collect-errors", false, "report every malformed amount instead of stopping at the first")

	// UI flags
	reconcileCmd.Flags().Bool("progress", false, "log matching progress")

	// Bind flags to viper
	for _, key := range []string{
		keyBankFile,
		keyLedgerFile,
		config.KeyOutputFormat,
		config.KeyOutputFile,
		config.KeyOutputDir,
		config.KeyPreset,
		config.KeyAmountTolerance,
		config.KeyDateTolerance,
		config.KeyDescThreshold,
		config.KeySimilarity,
		config.KeyFullScan,
		config.KeyDelimiter,
		config.KeyCollectErrors,
		config.KeyProgress,
	} {
		viper.BindPFlag(key, reconcileCmd.Flags().Lookup(key))
	}
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	bankFile = viper.GetString(keyBankFile)
	ledgerFile = viper.GetString(keyLedgerFile)

	if bankFile == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, keyBankFile, "", nil).
			WithSuggestion("Pass --bank-file with the bank statement CSV")
	}
	if ledgerFile == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, keyLedgerFile, "", nil).
			WithSuggestion("Pass --ledger-file with the ledger CSV")
	}

	if err := validateFileExists(bankFile, "bank file"); err != nil {
		return err
	}
	if err := validateFileExists(ledgerFile, "ledger file"); err != nil {
		return err
	}

	loaded, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	format := reporter.OutputFormat(loaded.Output.Format)
	if format.IsBinary() && loaded.Output.File == "" && loaded.Output.Dir == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, config.KeyOutputFile, "", nil).
			WithSuggestion(fmt.Sprintf("The %s format cannot be written to a terminal; pass --output-file or --output-dir", format))
	}

	// Validate output file directory exists if specified
	if loaded.Output.File != "" {
		dir := filepath.Dir(loaded.Output.File)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return errors.FileError(errors.CodeDirectoryError, dir, err).
				WithSuggestion("Create the output directory first")
		}
	}

	settings = loaded
	return nil
}

func validateFileExists(filePath, description string) error {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return errors.FileError(errors.CodeFileNotFound, filePath, err).
			WithContext("input", description)
	}
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err).
			WithContext("input", description)
	}

	if info.IsDir() {
		return errors.FileError(errors.CodeFileNotFound, filePath, fmt.Errorf("%s is a directory, expected a file", description)).
			WithContext("input", description)
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return errors.FileError(errors.CodeFilePermission, filePath, err).
			WithContext("input", description)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	// Ctrl-C stops matching at the next bank record.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.GetGlobalLogger().WithComponent("cli")
	log.WithFields(logger.Fields{
		"bank_file":   bankFile,
		"ledger_file": ledgerFile,
		"thresholds":  settings.Thresholds.String(),
		"similarity":  settings.Similarity,
	}).Debug("Starting reconciliation")

	service, err := reconciler.NewService(settings.ReconcilerConfig())
	if err != nil {
		return err
	}

	run, err := service.ReconcileFiles(ctx, bankFile, ledgerFile)
	if err != nil {
		return err
	}

	if settings.Output.Dir != "" {
		paths, err := reporter.NewExporter(log).ExportDir(settings.Output.Dir, run)
		if err != nil {
			return err
		}
		for _, path := range paths {
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
		}
	}

	if err := writeReport(cmd.OutOrStdout(), run); err != nil {
		return err
	}

	if viper.GetBool(config.KeyVerbose) {
		s := run.Summary
		fmt.Fprintf(cmd.ErrOrStderr(), "\nReconciliation completed in %v.\n", run.Duration)
		fmt.Fprintf(cmd.ErrOrStderr(), "Matched %d of %d bank records (%s); %d bank and %d ledger records unmatched.\n",
			s.Matched, s.TotalBank, s.MatchedPercent, s.UnmatchedBank, s.UnmatchedLedger)
		if len(run.Duplicates) > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Detected %d duplicate groups.\n", len(run.Duplicates))
		}
	}

	return nil
}

// writeReport writes the report to --output-file or stdout. A binary format
// with only --output-dir set has nothing left to write.
func writeReport(stdout io.Writer, run *reconciler.RunResult) error {
	reportConfig := settings.ReportConfig()
	if reportConfig.Format.IsBinary() && settings.Output.File == "" {
		return nil
	}

	generator, err := reporter.NewSafeReportGenerator(reportConfig, logger.GetGlobalLogger())
	if err != nil {
		return err
	}

	output := stdout
	if settings.Output.File != "" {
		file, err := os.Create(settings.Output.File)
		if err != nil {
			return errors.FileError(errors.CodeFilePermission, settings.Output.File, err)
		}
		defer file.Close()
		output = file
	}

	return generator.GenerateReportSafely(run, output)
}
