package models

import (
	"encoding/json"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Side identifies which of the two record sets a record came from.
type Side string

const (
	// SideBank is the bank statement side
	SideBank Side = "bank"
	// SideLedger is the internal accounting ledger side
	SideLedger Side = "ledger"
)

// String returns the string representation of Side
func (s Side) String() string {
	return string(s)
}

// Reason explains why a record was left unmatched.
type Reason string

const (
	// ReasonNoSuitableMatch is given to bank records with no eligible ledger record left
	ReasonNoSuitableMatch Reason = "No suitable match"
	// ReasonNoMatchingBankEntry is given to ledger records no bank record claimed
	ReasonNoMatchingBankEntry Reason = "No matching bank entry"
)

// Canonical RawRecord keys. Ingestion maps aliased headers onto these.
const (
	FieldDate        = "Date"
	FieldAmount      = "Amount"
	FieldDescription = "Description"
)

// RawRecord is one ingested row: column name to string or number.
type RawRecord map[string]any

// Record is a normalized transaction entry. Records are never modified
// after normalization; matching only tags their indices as used.
type Record struct {
	// Index is the 0-based position of the record in its input set.
	Index int
	// Date is invalid (the zero civil.Date) when the input could not be
	// parsed. Such a record never matches anything.
	Date        civil.Date
	Amount      decimal.Decimal
	Description string
}

// NewRecord creates a new Record instance
func NewRecord(index int, date civil.Date, amount decimal.Decimal, description string) Record {
	return Record{
		Index:       index,
		Date:        date,
		Amount:      amount,
		Description: description,
	}
}

// HasValidDate reports whether the record carries a usable calendar date.
func (r Record) HasValidDate() bool {
	return r.Date.IsValid()
}

// DateString renders the date as YYYY-MM-DD, or "" for an invalid date.
func (r Record) DateString() string {
	if !r.Date.IsValid() {
		return ""
	}
	return r.Date.String()
}

// AmountString renders the amount with at least two decimal places.
func (r Record) AmountString() string {
	return FormatAmount(r.Amount)
}

// String returns a string representation of the Record
func (r Record) String() string {
	date := r.DateString()
	if date == "" {
		date = "invalid"
	}
	return fmt.Sprintf("Record{Index: %d, Date: %s, Amount: %s, Description: %q}",
		r.Index, date, r.AmountString(), r.Description)
}

// Equals compares two records field by field.
func (r Record) Equals(other Record) bool {
	return r.Index == other.Index &&
		r.Date == other.Date &&
		r.Amount.Equal(other.Amount) &&
		r.Description == other.Description
}

// MarshalJSON implements custom JSON marshaling for Record
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Index       int    `json:"index"`
		Date        string `json:"date"`
		Amount      string `json:"amount"`
		Description string `json:"description"`
	}{
		Index:       r.Index,
		Date:        r.DateString(),
		Amount:      r.AmountString(),
		Description: r.Description,
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for Record
func (r *Record) UnmarshalJSON(data []byte) error {
	var aux struct {
		Index       int    `json:"index"`
		Date        string `json:"date"`
		Amount      string `json:"amount"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	r.Index = aux.Index
	r.Date, _ = ParseDate(aux.Date)
	r.Amount = amount
	r.Description = aux.Description
	return nil
}

// Match pairs one bank record with one ledger record.
type Match struct {
	Bank       Record  `json:"bank"`
	Ledger     Record  `json:"ledger"`
	Confidence float64 `json:"confidence"`
}

// String returns a string representation of the Match
func (m Match) String() string {
	return fmt.Sprintf("Match{Bank: %d, Ledger: %d, Confidence: %.2f}",
		m.Bank.Index, m.Ledger.Index, m.Confidence)
}

// UnmatchedEntry is a record that was not consumed by any match.
type UnmatchedEntry struct {
	Record     Record  `json:"record"`
	Reason     Reason  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// NewUnmatchedEntry creates an unmatched entry. Confidence is always 0.
func NewUnmatchedEntry(record Record, reason Reason) UnmatchedEntry {
	return UnmatchedEntry{Record: record, Reason: reason}
}

// Result is the partition produced by one reconciliation run. Matches and
// UnmatchedBank follow bank order; UnmatchedLedger follows ledger order.
type Result struct {
	Matches         []Match          `json:"matched"`
	UnmatchedBank   []UnmatchedEntry `json:"unmatched_bank"`
	UnmatchedLedger []UnmatchedEntry `json:"unmatched_ledger"`
}

// NewResult creates an empty result with non-nil slices.
func NewResult() *Result {
	return &Result{
		Matches:         []Match{},
		UnmatchedBank:   []UnmatchedEntry{},
		UnmatchedLedger: []UnmatchedEntry{},
	}
}

// TotalBank returns the number of bank records the result accounts for.
func (r *Result) TotalBank() int {
	return len(r.Matches) + len(r.UnmatchedBank)
}

// TotalLedger returns the number of ledger records the result accounts for.
func (r *Result) TotalLedger() int {
	return len(r.Matches) + len(r.UnmatchedLedger)
}
