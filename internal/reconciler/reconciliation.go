// Package reconciler runs a complete reconciliation: ingest both files,
// normalize them, match, and summarize.
package reconciler

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"bank-ledger-reconciler/internal/matcher"
	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/parsers"
	"bank-ledger-reconciler/internal/similarity"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"
)

// Config holds configuration options for the reconciliation service
type Config struct {
	Thresholds matcher.Thresholds
	Similarity string

	// FullScan compares every pair instead of using the ledger date index.
	FullScan bool

	// CollectErrors reports every malformed amount, not just the first.
	CollectErrors bool

	// Progress logging
	ReportProgress   bool
	ProgressInterval time.Duration

	Parse   *parsers.ParseConfig
	Columns *parsers.ColumnConfig
}

// DefaultConfig returns a default configuration for the reconciliation service
func DefaultConfig() *Config {
	return &Config{
		Thresholds:       matcher.DefaultThresholds(),
		Similarity:       string(similarity.DefaultAlgorithm),
		ProgressInterval: 2 * time.Second,
		Parse:            parsers.DefaultParseConfig(),
		Columns:          parsers.DefaultColumnConfig(),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if _, err := similarity.ForAlgorithm(c.Similarity); err != nil {
		return err
	}
	if c.ProgressInterval < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "progress-interval", c.ProgressInterval.String(), nil)
	}
	return nil
}

// RunResult is the outcome of one reconciliation run. It is not persisted.
type RunResult struct {
	RunID      string             `json:"run_id"`
	Result     *models.Result     `json:"result"`
	Summary    models.Summary     `json:"summary"`
	Thresholds matcher.Thresholds `json:"thresholds"`
	Similarity string             `json:"similarity"`
	StartedAt  time.Time          `json:"started_at"`
	Duration   time.Duration      `json:"duration"`

	// Duplicates are exact repeats within one side. They are informational
	// and do not change matching.
	Duplicates []matcher.DuplicateGroup `json:"duplicates,omitempty"`

	BankStats   *NormalizeStats `json:"bank_stats,omitempty"`
	LedgerStats *NormalizeStats `json:"ledger_stats,omitempty"`
}

// Service orchestrates the complete reconciliation process
type Service struct {
	config *Config
	parser *parsers.RecordParser
	scorer similarity.Scorer
	logger logger.Logger
	now    func() time.Time
}

// NewService creates a new reconciliation service
func NewService(config *Config) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	parser, err := parsers.NewRecordParser(config.Parse, config.Columns)
	if err != nil {
		return nil, err
	}
	scorer, err := similarity.ForAlgorithm(config.Similarity)
	if err != nil {
		return nil, err
	}

	return &Service{
		config: config,
		parser: parser,
		scorer: scorer,
		logger: logger.GetGlobalLogger().WithComponent("reconciler"),
		now:    time.Now,
	}, nil
}

// Config returns the service configuration
func (s *Service) Config() *Config {
	return s.config
}

// ReconcileFiles reads both CSV files and reconciles them.
func (s *Service) ReconcileFiles(ctx context.Context, bankPath, ledgerPath string) (*RunResult, error) {
	s.logger.WithFields(logger.Fields{
		"bank_file":   bankPath,
		"ledger_file": ledgerPath,
	}).Info("Reading input files")

	bank, ledger, err := s.parser.ParsePair(ctx, bankPath, ledgerPath)
	if err != nil {
		return nil, err
	}
	return s.ReconcileRows(ctx, bank.Rows, ledger.Rows)
}

// ReconcileReaders reconciles CSV content from two readers, such as
// uploaded files. The names are used in errors and logs.
func (s *Service) ReconcileReaders(ctx context.Context, bank io.Reader, bankName string, ledger io.Reader, ledgerName string) (*RunResult, error) {
	bankRows, _, err := s.parser.Parse(ctx, bank, bankName)
	if err != nil {
		return nil, err
	}
	ledgerRows, _, err := s.parser.Parse(ctx, ledger, ledgerName)
	if err != nil {
		return nil, err
	}
	return s.ReconcileRows(ctx, bankRows, ledgerRows)
}

// ReconcileRows normalizes both raw sets and matches them.
func (s *Service) ReconcileRows(ctx context.Context, bankRows, ledgerRows []models.RawRecord) (*RunResult, error) {
	run := &RunResult{
		RunID:      uuid.NewString(),
		Thresholds: s.config.Thresholds,
		Similarity: s.scorer.Name(),
		StartedAt:  s.now(),
	}

	log := s.logger.WithField("run_id", run.RunID)
	op := logger.NewOperationLogger("reconcile", log).
		WithField("bank_rows", len(bankRows)).
		WithField("ledger_rows", len(ledgerRows))

	var normOpts []NormalizerOption
	normOpts = append(normOpts, WithNormalizerLogger(log))
	if s.config.CollectErrors {
		normOpts = append(normOpts, WithCollectErrors())
	}

	bank, bankStats, err := NewNormalizer(models.SideBank, normOpts...).NormalizeSet(bankRows)
	if err != nil {
		op.Error(err, "Bank normalization failed")
		return nil, err
	}
	ledger, ledgerStats, err := NewNormalizer(models.SideLedger, normOpts...).NormalizeSet(ledgerRows)
	if err != nil {
		op.Error(err, "Ledger normalization failed")
		return nil, err
	}
	run.BankStats, run.LedgerStats = bankStats, ledgerStats
	op.Step("normalized", logger.Fields{
		"bank_invalid_dates":   bankStats.InvalidDates,
		"ledger_invalid_dates": ledgerStats.InvalidDates,
	})

	engineOpts := []matcher.Option{
		matcher.WithScorer(s.scorer),
		matcher.WithLogger(log),
	}
	if s.config.FullScan {
		engineOpts = append(engineOpts, matcher.WithFullScan())
	}

	var tracker *logger.ProgressTracker
	if s.config.ReportProgress {
		tracker = logger.NewProgressTracker(logger.ProgressConfig{
			Operation:   "match",
			Total:       int64(len(bank)),
			LogInterval: s.config.ProgressInterval,
			Logger:      log,
		})
		engineOpts = append(engineOpts, matcher.WithProgress(tracker.Hook()))
	}

	result, err := matcher.NewEngine(s.config.Thresholds, engineOpts...).Reconcile(ctx, bank, ledger)
	if err != nil {
		if tracker != nil {
			tracker.CompleteWithError(err)
		}
		op.Error(err, "Matching failed")
		return nil, err
	}
	if tracker != nil {
		tracker.Complete()
	}

	run.Result = result
	run.Summary = models.ComputeSummary(result)
	run.Duplicates = append(matcher.DetectDuplicates(models.SideBank, bank),
		matcher.DetectDuplicates(models.SideLedger, ledger)...)
	for _, group := range run.Duplicates {
		log.WithField("group_id", group.GroupID).Debug(group.Reason())
	}

	run.Duration = op.Success("Reconciliation completed", logger.Fields{
		"matched":          run.Summary.Matched,
		"unmatched_bank":   run.Summary.UnmatchedBank,
		"unmatched_ledger": run.Summary.UnmatchedLedger,
		"matched_percent":  run.Summary.MatchedPercent,
		"avg_confidence":   run.Summary.AvgConfidence,
		"duplicate_groups": len(run.Duplicates),
	})
	return run, nil
}
