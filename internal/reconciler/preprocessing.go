package reconciler

import (
	"fmt"
	"strings"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"
)

// Normalizer turns raw rows of one side into normalized records.
//
// An unparsable date never fails normalization: the record keeps the zero
// date and simply never matches. A malformed amount always fails the run.
type Normalizer struct {
	side          models.Side
	collectErrors bool
	logger        logger.Logger
}

// NormalizerOption configures a Normalizer
type NormalizerOption func(*Normalizer)

// WithCollectErrors makes NormalizeSet report every malformed row instead
// of stopping at the first one. The set still fails as a whole.
func WithCollectErrors() NormalizerOption {
	return func(n *Normalizer) {
		n.collectErrors = true
	}
}

// WithNormalizerLogger sets the logger used for invalid date warnings.
func WithNormalizerLogger(l logger.Logger) NormalizerOption {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// NewNormalizer creates a Normalizer for one side of the reconciliation.
func NewNormalizer(side models.Side, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		side:   side,
		logger: logger.GetGlobalLogger(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.WithComponent("normalizer")
	return n
}

// NormalizeStats counts what normalization recovered from.
type NormalizeStats struct {
	Records          int `json:"records"`
	InvalidDates     int `json:"invalid_dates"`
	MalformedAmounts int `json:"malformed_amounts"`
}

// Normalize converts one raw row. index is the row's position in its set.
func (n *Normalizer) Normalize(raw models.RawRecord, index int) (models.Record, error) {
	rawDate := raw[models.FieldDate]
	date, ok := models.ParseDate(rawDate)
	if !ok {
		n.logger.WithFields(logger.Fields{
			"set":   n.side.String(),
			"index": index,
			"value": text(rawDate),
			"code":  errors.CodeInvalidDate,
		}).Warn("Unparsable date, record will not be matched")
	}

	rawAmount := raw[models.FieldAmount]
	amount, err := models.ParseAmount(rawAmount)
	if err != nil {
		return models.Record{}, errors.MalformedAmountError(n.side.String(), index, models.FieldAmount, text(rawAmount), err)
	}

	description := strings.ToLower(strings.TrimSpace(text(raw[models.FieldDescription])))

	return models.NewRecord(index, date, amount, description), nil
}

// NormalizeSet normalizes rows in order, assigning each its position as
// Index. It never returns a partial set: on failure the records are nil.
func (n *Normalizer) NormalizeSet(rows []models.RawRecord) ([]models.Record, *NormalizeStats, error) {
	stats := &NormalizeStats{Records: len(rows)}
	records := make([]models.Record, 0, len(rows))
	var failures errors.RecordErrors

	for i, raw := range rows {
		record, err := n.Normalize(raw, i)
		if err != nil {
			stats.MalformedAmounts++
			recordErr, ok := err.(*errors.RecordError)
			if !ok || !n.collectErrors {
				return nil, stats, err
			}
			failures = append(failures, recordErr)
			continue
		}
		if !record.HasValidDate() {
			stats.InvalidDates++
		}
		records = append(records, record)
	}

	if len(failures) > 0 {
		n.logger.WithFields(logger.Fields{
			"set":       n.side.String(),
			"malformed": len(failures),
		}).Error("Malformed amounts found")
		return nil, stats, failures
	}
	return records, stats, nil
}

// text coerces a raw value to a string; nil becomes "".
func text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
