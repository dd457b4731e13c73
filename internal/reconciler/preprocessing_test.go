package reconciler

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"
)

func jsonLogger(t *testing.T) (logger.Logger, *bytes.Buffer) {
	t.Helper()

	buf := &bytes.Buffer{}
	l, err := logger.NewLogger(&logger.Config{Level: logger.DebugLevel, Format: logger.JSONFormat, Writer: buf, DisableTimestamp: true})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	return l, buf
}

func row(date, amount, description any) models.RawRecord {
	return models.RawRecord{
		models.FieldDate:        date,
		models.FieldAmount:      amount,
		models.FieldDescription: description,
	}
}

func TestNormalize(t *testing.T) {
	n := NewNormalizer(models.SideBank)

	tests := []struct {
		name     string
		raw      models.RawRecord
		wantDate civil.Date
		wantAmt  string
		wantDesc string
	}{
		{
			name:     "iso date and plain amount",
			raw:      row("2024-01-05", "100.00", "AMZN Purchase"),
			wantDate: civil.Date{Year: 2024, Month: time.January, Day: 5},
			wantAmt:  "100",
			wantDesc: "amzn purchase",
		},
		{
			name:     "us date with thousands separator and currency",
			raw:      row("01/15/2024", "₹1,250.50", "  Salary Credit  "),
			wantDate: civil.Date{Year: 2024, Month: time.January, Day: 15},
			wantAmt:  "1250.5",
			wantDesc: "salary credit",
		},
		{
			name:     "parentheses are negative",
			raw:      row("2024-02-01", "(42.10)", "Refund"),
			wantDate: civil.Date{Year: 2024, Month: time.February, Day: 1},
			wantAmt:  "-42.1",
			wantDesc: "refund",
		},
		{
			name:     "typed values",
			raw:      row(time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC), 12.5, 404),
			wantDate: civil.Date{Year: 2024, Month: time.March, Day: 9},
			wantAmt:  "12.5",
			wantDesc: "404",
		},
		{
			name:     "missing description",
			raw:      row("2024-01-05", "1", nil),
			wantDate: civil.Date{Year: 2024, Month: time.January, Day: 5},
			wantAmt:  "1",
			wantDesc: "",
		},
		{
			name:     "invalid date is recovered",
			raw:      row("not a date", "5", "fee"),
			wantDate: civil.Date{},
			wantAmt:  "5",
			wantDesc: "fee",
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.raw, i)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got.Index != i {
				t.Errorf("Index = %d, want %d", got.Index, i)
			}
			if got.Date != tt.wantDate {
				t.Errorf("Date = %v, want %v", got.Date, tt.wantDate)
			}
			if !got.Amount.Equal(decimal.RequireFromString(tt.wantAmt)) {
				t.Errorf("Amount = %s, want %s", got.Amount, tt.wantAmt)
			}
			if got.Description != tt.wantDesc {
				t.Errorf("Description = %q, want %q", got.Description, tt.wantDesc)
			}
		})
	}
}

func TestNormalizeMalformedAmount(t *testing.T) {
	n := NewNormalizer(models.SideLedger)

	for _, amount := range []any{"abc", "", nil, "12..5", "1 2 3x", math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := n.Normalize(row("2024-01-05", amount, "x"), 7)
		if err == nil {
			t.Errorf("amount %#v: expected an error", amount)
			continue
		}
		if !errors.HasCode(err, errors.CodeMalformedAmount) {
			t.Errorf("amount %#v: expected malformed_amount, got %v", amount, err)
		}

		recordErr, ok := err.(*errors.RecordError)
		if !ok {
			t.Fatalf("expected *RecordError, got %T", err)
		}
		if recordErr.Record.Set != "ledger" || recordErr.Record.Index != 7 || recordErr.Record.Column != models.FieldAmount {
			t.Errorf("unexpected record context %+v", recordErr.Record)
		}
	}
}

func TestNormalizeInvalidDateLogsWarning(t *testing.T) {
	l, buf := jsonLogger(t)
	n := NewNormalizer(models.SideBank, WithNormalizerLogger(l))

	if _, err := n.Normalize(row("31/31/2024", "1", "x"), 3); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "warning" {
		t.Errorf("expected a warning, got %v", entry["level"])
	}
	if entry["set"] != "bank" || entry["index"] != float64(3) || entry["value"] != "31/31/2024" {
		t.Errorf("missing record fields in %v", entry)
	}
	if entry["component"] != "normalizer" {
		t.Errorf("expected component normalizer, got %v", entry["component"])
	}
}

func TestNormalizeSet(t *testing.T) {
	n := NewNormalizer(models.SideBank)

	rows := []models.RawRecord{
		row("2024-01-05", "10", "a"),
		row("", "20", "b"),
		row("2024-01-07", "30", "c"),
	}
	records, stats, err := n.NormalizeSet(rows)
	if err != nil {
		t.Fatalf("NormalizeSet() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, r := range records {
		if r.Index != i {
			t.Errorf("record %d has index %d", i, r.Index)
		}
	}
	if stats.Records != 3 || stats.InvalidDates != 1 || stats.MalformedAmounts != 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestNormalizeSetFailFast(t *testing.T) {
	n := NewNormalizer(models.SideBank)

	rows := []models.RawRecord{
		row("2024-01-05", "10", "a"),
		row("2024-01-06", "ten", "b"),
		row("2024-01-07", "eleven", "c"),
	}
	records, stats, err := n.NormalizeSet(rows)
	if records != nil {
		t.Errorf("expected no partial set, got %v", records)
	}
	if stats.MalformedAmounts != 1 {
		t.Errorf("fail-fast should stop at the first malformed row, stats %+v", stats)
	}

	recordErr, ok := err.(*errors.RecordError)
	if !ok || recordErr.Record.Index != 1 {
		t.Errorf("expected record 1 to fail, got %v", err)
	}
}

func TestNormalizeSetCollectErrors(t *testing.T) {
	n := NewNormalizer(models.SideLedger, WithCollectErrors())

	rows := []models.RawRecord{
		row("2024-01-05", "10", "a"),
		row("2024-01-06", "ten", "b"),
		row("2024-01-07", "eleven", "c"),
	}
	records, stats, err := n.NormalizeSet(rows)
	if records != nil {
		t.Errorf("expected no partial set, got %v", records)
	}
	if stats.MalformedAmounts != 2 {
		t.Errorf("expected 2 malformed amounts, got %+v", stats)
	}

	all, ok := err.(errors.RecordErrors)
	if !ok || len(all) != 2 {
		t.Fatalf("expected 2 collected errors, got %v", err)
	}
	if all[0].Record.Index != 1 || all[1].Record.Index != 2 {
		t.Errorf("unexpected indices %d, %d", all[0].Record.Index, all[1].Record.Index)
	}
	if !strings.Contains(err.Error(), "Found 2 malformed records") {
		t.Errorf("unexpected message %q", err.Error())
	}
}
