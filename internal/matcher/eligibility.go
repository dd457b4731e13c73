package matcher

import (
	"github.com/shopspring/decimal"

	"bank-ledger-reconciler/internal/models"
)

// Comparison holds the raw deltas between a bank and a ledger record. It is
// computed once per candidate pair and feeds both the eligibility test and
// the confidence score.
type Comparison struct {
	AmountDelta decimal.Decimal
	DayDelta    int
	// DatesValid is false when either record has an invalid date; DayDelta
	// is meaningless then.
	DatesValid bool
	Similarity int
}

// compare builds the Comparison for (bank, ledger). The similarity is always
// computed in (bank, ledger) order.
func (e *Engine) compare(bank, ledger models.Record) Comparison {
	days, ok := models.DaysBetween(bank.Date, ledger.Date)
	return Comparison{
		AmountDelta: bank.Amount.Sub(ledger.Amount).Abs(),
		DayDelta:    days,
		DatesValid:  ok,
		Similarity:  e.scorer.Score(bank.Description, ledger.Description),
	}
}

// Eligible reports whether a comparison passes all three thresholds.
// A comparison with an invalid date never passes.
func (t Thresholds) Eligible(c Comparison) bool {
	if !c.DatesValid {
		return false
	}
	if c.AmountDelta.GreaterThan(t.AmountTolerance) {
		return false
	}
	if c.DayDelta > t.DateToleranceDays {
		return false
	}
	return c.Similarity >= t.DescSimThreshold
}

// IsEligible reports whether bank and ledger are candidates for matching.
func (e *Engine) IsEligible(bank, ledger models.Record) bool {
	return e.thresholds.Eligible(e.compare(bank, ledger))
}

// prefilter rejects a pair on amount and date alone, before the similarity
// is computed.
func (t Thresholds) prefilter(bank, ledger models.Record) bool {
	return t.IsWithinAmountTolerance(bank.Amount, ledger.Amount) && t.IsWithinDateTolerance(bank, ledger)
}
