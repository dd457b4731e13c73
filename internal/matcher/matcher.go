package matcher

import (
	"context"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/similarity"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"
)

// ProgressFunc is called after each bank record with the number of bank
// records processed so far and the bank total.
type ProgressFunc func(done, total int)

// Engine runs the greedy one-to-one assignment. An Engine carries only
// configuration; all per-run state lives inside Reconcile, so one Engine
// may serve concurrent calls.
type Engine struct {
	thresholds Thresholds
	scorer     similarity.Scorer
	progress   ProgressFunc
	logger     logger.Logger
	fullScan   bool
}

// Option configures an Engine
type Option func(*Engine)

// WithScorer replaces the default partial ratio scorer.
func WithScorer(scorer similarity.Scorer) Option {
	return func(e *Engine) {
		if scorer != nil {
			e.scorer = scorer
		}
	}
}

// WithProgress registers a hook called after each bank record.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// WithLogger sets the logger used for run diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithFullScan disables the ledger date index so every unused ledger record
// is compared against every bank record. Results are identical either way.
func WithFullScan() Option {
	return func(e *Engine) {
		e.fullScan = true
	}
}

// NewEngine creates a new matching engine with the given thresholds
func NewEngine(thresholds Thresholds, opts ...Option) *Engine {
	e := &Engine{
		thresholds: thresholds,
		scorer:     similarity.Default(),
		logger:     logger.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("matcher")
	return e
}

// Thresholds returns the engine's thresholds
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// ScorerName returns the name of the similarity algorithm in use
func (e *Engine) ScorerName() string {
	return e.scorer.Name()
}

// Reconcile partitions bank and ledger into matches, unmatched bank entries
// and unmatched ledger entries.
//
// Bank records are visited in order. Each one takes the unused ledger record
// with the strictly highest confidence among the eligible ones, so ties keep
// the lowest ledger position. The work is O(len(bank) * len(ledger)) pair
// evaluations in the worst case.
//
// ctx is checked before each bank record. A cancelled run returns an error
// and no partial result.
func (e *Engine) Reconcile(ctx context.Context, bank, ledger []models.Record) (*models.Result, error) {
	if err := e.thresholds.Validate(); err != nil {
		return nil, err
	}

	var index *LedgerIndex
	if !e.fullScan {
		index = NewLedgerIndex(ledger)
		stats := index.GetIndexStats()
		e.logger.WithFields(logger.Fields{
			"ledger":         stats.TotalRecords,
			"distinct_dates": stats.DistinctDates,
			"invalid_dates":  stats.InvalidDates,
		}).Debug("Built ledger date index")
	}

	used := make([]bool, len(ledger))
	result := models.NewResult()

	for i, b := range bank {
		if err := ctx.Err(); err != nil {
			e.logger.WithFields(logger.Fields{
				"processed": i,
				"total":     len(bank),
			}).Warn("Reconciliation cancelled")
			return nil, errors.ReconciliationError(errors.CodeCancelled, "reconcile", err)
		}

		best, bestConfidence := e.bestCandidate(b, ledger, used, index)
		if best >= 0 {
			used[best] = true
			result.Matches = append(result.Matches, models.Match{
				Bank:       b,
				Ledger:     ledger[best],
				Confidence: bestConfidence,
			})
		} else {
			result.UnmatchedBank = append(result.UnmatchedBank,
				models.NewUnmatchedEntry(b, models.ReasonNoSuitableMatch))
		}

		if e.progress != nil {
			e.progress(i+1, len(bank))
		}
	}

	for j, l := range ledger {
		if !used[j] {
			result.UnmatchedLedger = append(result.UnmatchedLedger,
				models.NewUnmatchedEntry(l, models.ReasonNoMatchingBankEntry))
		}
	}

	e.logger.WithFields(logger.Fields{
		"bank":             len(bank),
		"ledger":           len(ledger),
		"matched":          len(result.Matches),
		"unmatched_bank":   len(result.UnmatchedBank),
		"unmatched_ledger": len(result.UnmatchedLedger),
		"similarity":       e.ScorerName(),
	}).Debug("Reconciliation finished")

	return result, nil
}

// bestCandidate returns the ledger position with the highest confidence
// among unused eligible records, or -1.
func (e *Engine) bestCandidate(b models.Record, ledger []models.Record, used []bool, index *LedgerIndex) (int, float64) {
	best := -1
	var bestConfidence float64

	consider := func(j int) {
		if used[j] || !e.thresholds.prefilter(b, ledger[j]) {
			return
		}
		c := e.compare(b, ledger[j])
		if !e.thresholds.Eligible(c) {
			return
		}
		if confidence := e.thresholds.Confidence(c); best < 0 || confidence > bestConfidence {
			best, bestConfidence = j, confidence
		}
	}

	if index == nil {
		for j := range ledger {
			consider(j)
		}
	} else {
		for _, j := range index.GetCandidates(b.Date, e.thresholds.DateToleranceDays) {
			consider(j)
		}
	}

	return best, bestConfidence
}
