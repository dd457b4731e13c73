// Package matcher pairs bank records with ledger records.
//
// Matching is greedy and one-to-one. Bank records are visited in input order
// and each claims the not-yet-used ledger record with the strictly highest
// confidence among those passing all three thresholds:
//   - |Δamount| <= AmountTolerance
//   - |Δdays| <= DateToleranceDays
//   - similarity(bank, ledger) >= DescSimThreshold
//
// Bank order is a priority policy: reordering the bank set can change which
// ledger record a bank record gets when several compete for the same one.
//
// Example usage:
//
//	thresholds := matcher.DefaultThresholds()
//	thresholds.DateToleranceDays = 5
//
//	engine := matcher.NewEngine(thresholds)
//	result, err := engine.Reconcile(ctx, bank, ledger)
package matcher

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"
)

// Confidence weights. Exact amount agreement is the strongest signal.
var (
	AmountWeight      = decimal.RequireFromString("0.40")
	DateWeight        = decimal.RequireFromString("0.30")
	DescriptionWeight = decimal.RequireFromString("0.30")
)

// Thresholds holds the three hard eligibility limits. They also scale the
// amount and date sub-scores of the confidence.
type Thresholds struct {
	// AmountTolerance is the largest accepted |Δamount|, in currency units.
	AmountTolerance decimal.Decimal `json:"amount_tolerance" yaml:"amount_tolerance"`

	// DateToleranceDays is the largest accepted |Δdays|.
	DateToleranceDays int `json:"date_tolerance_days" yaml:"date_tolerance_days"`

	// DescSimThreshold is the lowest accepted description similarity, 0..100.
	DescSimThreshold int `json:"desc_sim_threshold" yaml:"desc_sim_threshold"`
}

// DefaultThresholds returns {AmountTolerance: 1.0, DateToleranceDays: 3, DescSimThreshold: 60}.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AmountTolerance:   decimal.NewFromInt(1),
		DateToleranceDays: 3,
		DescSimThreshold:  60,
	}
}

// StrictThresholds only pairs exact amounts posted on the same day with
// near-identical descriptions.
func StrictThresholds() Thresholds {
	return Thresholds{
		AmountTolerance:   decimal.Zero,
		DateToleranceDays: 0,
		DescSimThreshold:  90,
	}
}

// RelaxedThresholds tolerates larger discrepancies, for exploratory runs.
func RelaxedThresholds() Thresholds {
	return Thresholds{
		AmountTolerance:   decimal.NewFromInt(5),
		DateToleranceDays: 7,
		DescSimThreshold:  50,
	}
}

// ThresholdsForPreset returns the named preset: default, strict or relaxed.
func ThresholdsForPreset(name string) (Thresholds, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return DefaultThresholds(), nil
	case "strict":
		return StrictThresholds(), nil
	case "relaxed":
		return RelaxedThresholds(), nil
	default:
		return Thresholds{}, errors.ConfigurationError(errors.CodeInvalidConfig, "preset", name, nil).
			WithSuggestion("use one of default, strict, relaxed")
	}
}

// Validate checks if the thresholds are usable
func (t Thresholds) Validate() error {
	if t.AmountTolerance.IsNegative() {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "amount-tolerance", t.AmountTolerance.String(),
			fmt.Errorf("amount tolerance cannot be negative: %s", t.AmountTolerance))
	}

	if t.DateToleranceDays < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "date-tolerance", t.DateToleranceDays,
			fmt.Errorf("date tolerance days cannot be negative: %d", t.DateToleranceDays))
	}

	if t.DescSimThreshold < 0 || t.DescSimThreshold > 100 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "desc-threshold", t.DescSimThreshold,
			fmt.Errorf("description similarity threshold must be between 0 and 100: %d", t.DescSimThreshold))
	}

	return nil
}

// IsWithinAmountTolerance reports |a-b| <= AmountTolerance.
func (t Thresholds) IsWithinAmountTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(t.AmountTolerance)
}

// IsWithinDateTolerance reports whether both records carry valid dates no
// more than DateToleranceDays apart.
func (t Thresholds) IsWithinDateTolerance(a, b models.Record) bool {
	days, ok := models.DaysBetween(a.Date, b.Date)
	return ok && days <= t.DateToleranceDays
}

// String returns a human-readable description of the thresholds
func (t Thresholds) String() string {
	return fmt.Sprintf("Thresholds{AmountTolerance: %s, DateTolerance: %d days, DescSimThreshold: %d}",
		t.AmountTolerance.String(), t.DateToleranceDays, t.DescSimThreshold)
}
