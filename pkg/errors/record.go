package errors

import (
	"fmt"
	"strings"
)

// RecordContext locates a value inside one of the two input record sets.
type RecordContext struct {
	Set    string `json:"set"`
	Index  int    `json:"index"`
	Column string `json:"column"`
	Value  string `json:"value"`
}

// RecordError is a ReconcilerError raised while normalizing one input record.
type RecordError struct {
	*ReconcilerError
	Record   *RecordContext `json:"record"`
	Examples []string       `json:"examples,omitempty"`
}

// Error prefixes the base message with the record location.
func (e *RecordError) Error() string {
	if e.Record == nil {
		return e.ReconcilerError.Error()
	}
	return fmt.Sprintf("%s record %d: %s", e.Record.Set, e.Record.Index, e.ReconcilerError.Error())
}

// Unwrap exposes the embedded ReconcilerError so errors.As finds it.
func (e *RecordError) Unwrap() error {
	return e.ReconcilerError
}

// GetDetailedError returns a detailed multi-line error description
func (e *RecordError) GetDetailedError() string {
	var lines []string

	lines = append(lines, fmt.Sprintf("ERROR: %s", e.Message))
	if e.Record != nil {
		lines = append(lines, fmt.Sprintf("  → Set: %s", e.Record.Set))
		lines = append(lines, fmt.Sprintf("  → Record: %d", e.Record.Index))
		if e.Record.Column != "" {
			lines = append(lines, fmt.Sprintf("  → Column: %s", e.Record.Column))
		}
		lines = append(lines, fmt.Sprintf("  → Value: '%s'", e.Record.Value))
	}
	if e.Suggestion != "" {
		lines = append(lines, fmt.Sprintf("  → Suggestion: %s", e.Suggestion))
	}
	if len(e.Examples) > 0 {
		lines = append(lines, "  → Examples:")
		for _, example := range e.Examples {
			lines = append(lines, fmt.Sprintf("    • %s", example))
		}
	}

	return strings.Join(lines, "\n")
}

// MalformedAmountError reports an amount that could not be parsed after
// separator and currency stripping. It is always fatal for the run.
func MalformedAmountError(set string, index int, column, value string, cause error) *RecordError {
	base := ValidationError(CodeMalformedAmount, column, value, cause).
		WithContext("set", set).
		WithContext("index", index)

	return &RecordError{
		ReconcilerError: base,
		Record: &RecordContext{
			Set:    set,
			Index:  index,
			Column: column,
			Value:  value,
		},
		Examples: []string{"1250.50", "1,250.50", "₹1,250.50", "(42.00)"},
	}
}

// FormatRecordErrors formats several record errors for terminal output.
func FormatRecordErrors(errs []*RecordError) string {
	if len(errs) == 0 {
		return "No record errors"
	}
	if len(errs) == 1 {
		return errs[0].GetDetailedError()
	}

	maxDetailed := 3
	lines := []string{fmt.Sprintf("Found %d malformed records:", len(errs))}
	for i, err := range errs {
		if i == maxDetailed {
			lines = append(lines, "", fmt.Sprintf("... and %d more", len(errs)-maxDetailed))
			break
		}
		lines = append(lines, "", err.GetDetailedError())
	}
	return strings.Join(lines, "\n")
}

// RecordErrors is every malformed record found in one pass over a set.
type RecordErrors []*RecordError

func (e RecordErrors) Error() string {
	return FormatRecordErrors(e)
}

// Unwrap exposes each record error so errors.As and HasCode see them.
func (e RecordErrors) Unwrap() []error {
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}
	return errs
}
