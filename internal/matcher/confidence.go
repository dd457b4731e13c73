package matcher

import (
	"github.com/shopspring/decimal"

	"bank-ledger-reconciler/internal/models"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Confidence blends the three sub-scores into a value in [0,100], rounded
// to two decimal places:
//
//	amountScore = max(0, 1 - |Δamount|/AmountTolerance)
//	dateScore   = max(0, 1 - |Δdays|/DateToleranceDays)
//	descScore   = similarity/100
//	confidence  = (0.40*amountScore + 0.30*dateScore + 0.30*descScore) * 100
//
// A zero tolerance scores 1 for an exact match and 0 otherwise. An invalid
// date scores 0.
func (t Thresholds) Confidence(c Comparison) float64 {
	score := AmountWeight.Mul(t.amountScore(c)).
		Add(DateWeight.Mul(t.dateScore(c))).
		Add(DescriptionWeight.Mul(descScore(c))).
		Mul(hundred).
		Round(2)

	if score.IsNegative() {
		score = decimal.Zero
	}
	if score.GreaterThan(hundred) {
		score = hundred
	}
	return score.InexactFloat64()
}

// Confidence scores a bank/ledger pair. It is meant for eligible pairs but
// is well defined for any pair.
func (e *Engine) Confidence(bank, ledger models.Record) float64 {
	return e.thresholds.Confidence(e.compare(bank, ledger))
}

func (t Thresholds) amountScore(c Comparison) decimal.Decimal {
	if t.AmountTolerance.IsZero() {
		if c.AmountDelta.IsZero() {
			return one
		}
		return decimal.Zero
	}
	return clampUnit(one.Sub(c.AmountDelta.Div(t.AmountTolerance)))
}

func (t Thresholds) dateScore(c Comparison) decimal.Decimal {
	if !c.DatesValid {
		return decimal.Zero
	}
	if t.DateToleranceDays == 0 {
		if c.DayDelta == 0 {
			return one
		}
		return decimal.Zero
	}
	days := decimal.NewFromInt(int64(c.DayDelta))
	return clampUnit(one.Sub(days.Div(decimal.NewFromInt(int64(t.DateToleranceDays)))))
}

func descScore(c Comparison) decimal.Decimal {
	return clampUnit(decimal.NewFromInt(int64(c.Similarity)).Div(hundred))
}

func clampUnit(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(one) {
		return one
	}
	return d
}
