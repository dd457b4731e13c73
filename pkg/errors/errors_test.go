package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReconcilerError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "file error",
			category:   CategoryFile,
			code:       CodeFileNotFound,
			message:    "file not found",
			cause:      errors.New("no such file"),
			expectCode: 2,
		},
		{
			name:       "parse error",
			category:   CategoryParse,
			code:       CodeInvalidFormat,
			message:    "invalid format",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "validation error",
			category:   CategoryValidation,
			code:       CodeMalformedAmount,
			message:    "malformed amount",
			cause:      errors.New("can't convert abc to decimal"),
			expectCode: 3,
		},
		{
			name:       "configuration error",
			category:   CategoryConfiguration,
			code:       CodeInvalidConfig,
			message:    "invalid config",
			cause:      errors.New("missing field"),
			expectCode: 4,
		},
		{
			name:       "cancelled run",
			category:   CategoryReconciliation,
			code:       CodeCancelled,
			message:    "reconcile was cancelled",
			cause:      nil,
			expectCode: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *ReconcilerError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("expected message %s, got %s", tt.message, err.Message)
			}
			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}
			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}
			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
			if len(err.StackTrace) == 0 {
				t.Error("expected a stack trace to be captured")
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, CategoryInternal, CodeUnexpectedError, "nothing"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestReconcilerErrorWithContext(t *testing.T) {
	err := New(CategoryFile, CodeFileNotFound, "test error").
		WithContext("file", "/path/to/bank.csv").
		WithContext("line", 42).
		WithSuggestion("check file path")

	if err.Context["file"] != "/path/to/bank.csv" {
		t.Errorf("expected file context '/path/to/bank.csv', got %v", err.Context["file"])
	}
	if err.Context["line"] != 42 {
		t.Errorf("expected line context 42, got %v", err.Context["line"])
	}
	if err.Suggestion != "check file path" {
		t.Errorf("expected suggestion 'check file path', got %s", err.Suggestion)
	}

	expected := "test error (suggestion: check file path)"
	if err.Error() != expected {
		t.Errorf("expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestSpecificErrorConstructors(t *testing.T) {
	t.Run("FileError", func(t *testing.T) {
		cause := errors.New("permission denied")
		err := FileError(CodeFilePermission, "/test/bank.csv", cause)

		if err.Category != CategoryFile {
			t.Errorf("expected file category, got %s", err.Category)
		}
		if err.Code != CodeFilePermission {
			t.Errorf("expected permission code, got %s", err.Code)
		}
		if err.Context["file_path"] != "/test/bank.csv" {
			t.Errorf("expected file_path context, got %v", err.Context["file_path"])
		}
		if err.Suggestion == "" {
			t.Error("expected suggestion to be set")
		}
		if err.Cause != cause {
			t.Errorf("expected cause to be %v, got %v", cause, err.Cause)
		}
	})

	t.Run("ParseError", func(t *testing.T) {
		err := ParseError(CodeMissingColumn, "ledger.csv", 1, "Amount", nil)

		if err.Category != CategoryParse {
			t.Errorf("expected parse category, got %s", err.Category)
		}
		if err.Context["file"] != "ledger.csv" {
			t.Errorf("expected file context, got %v", err.Context["file"])
		}
		if err.Context["line"] != 1 {
			t.Errorf("expected line context, got %v", err.Context["line"])
		}
		if !strings.Contains(err.Message, "Amount") {
			t.Errorf("expected message to name the column, got %s", err.Message)
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError(CodeMalformedAmount, "Amount", "abc", nil)

		if err.Category != CategoryValidation {
			t.Errorf("expected validation category, got %s", err.Category)
		}
		if err.Context["field"] != "Amount" {
			t.Errorf("expected field context, got %v", err.Context["field"])
		}
		if err.Context["value"] != "abc" {
			t.Errorf("expected value context, got %v", err.Context["value"])
		}
	})

	t.Run("ConfigurationError", func(t *testing.T) {
		err := ConfigurationError(CodeInvalidConfig, "desc-threshold", 140, nil)

		if err.Category != CategoryConfiguration {
			t.Errorf("expected configuration category, got %s", err.Category)
		}
		if err.Context["setting"] != "desc-threshold" {
			t.Errorf("expected setting context, got %v", err.Context["setting"])
		}
		if err.GetExitCode() != 4 {
			t.Errorf("expected exit code 4, got %d", err.GetExitCode())
		}
	})

	t.Run("ReconciliationError", func(t *testing.T) {
		err := ReconciliationError(CodeCancelled, "reconcile", fmt.Errorf("context canceled"))

		if err.Category != CategoryReconciliation {
			t.Errorf("expected reconciliation category, got %s", err.Category)
		}
		if err.Context["operation"] != "reconcile" {
			t.Errorf("expected operation context, got %v", err.Context["operation"])
		}
	})
}

func TestRecordError(t *testing.T) {
	cause := errors.New("can't convert 12,x to decimal")
	err := MalformedAmountError("bank", 4, "Amount", "12,x", cause)

	if err.Code != CodeMalformedAmount {
		t.Errorf("expected malformed_amount code, got %s", err.Code)
	}
	if err.Record.Index != 4 || err.Record.Set != "bank" {
		t.Errorf("unexpected record context %+v", err.Record)
	}
	if !strings.HasPrefix(err.Error(), "bank record 4: ") {
		t.Errorf("expected record prefix, got %s", err.Error())
	}

	var wrapped error = fmt.Errorf("normalize: %w", err)
	if !HasCode(wrapped, CodeMalformedAmount) {
		t.Error("expected HasCode to find malformed_amount through wrapping")
	}
	if reconcilerErr, ok := AsReconcilerError(wrapped); !ok || reconcilerErr.GetExitCode() != 3 {
		t.Error("expected wrapped record error to resolve to a validation ReconcilerError")
	}

	detailed := err.GetDetailedError()
	for _, want := range []string{"Set: bank", "Record: 4", "Column: Amount", "Value: '12,x'", "Examples:"} {
		if !strings.Contains(detailed, want) {
			t.Errorf("expected detailed error to contain %q, got:\n%s", want, detailed)
		}
	}
}

func TestFormatRecordErrors(t *testing.T) {
	if got := FormatRecordErrors(nil); got != "No record errors" {
		t.Errorf("expected 'No record errors', got %q", got)
	}

	var errs []*RecordError
	for i := 0; i < 5; i++ {
		errs = append(errs, MalformedAmountError("ledger", i, "Amount", "bad", nil))
	}
	got := FormatRecordErrors(errs)
	if !strings.HasPrefix(got, "Found 5 malformed records:") {
		t.Errorf("unexpected header: %s", got)
	}
	if !strings.Contains(got, "... and 2 more") {
		t.Errorf("expected truncation notice, got:\n%s", got)
	}
}

func TestRecordErrors(t *testing.T) {
	var err error = RecordErrors{
		MalformedAmountError("bank", 1, "Amount", "abc", nil),
		MalformedAmountError("bank", 4, "Amount", "1.2.3", nil),
	}

	if !HasCode(err, CodeMalformedAmount) {
		t.Error("expected malformed_amount to be found through the multi-error")
	}

	var recordErr *RecordError
	if !errors.As(err, &recordErr) || recordErr.Record.Index != 1 {
		t.Errorf("expected the first record error, got %v", recordErr)
	}

	reconErr, ok := AsReconcilerError(err)
	if !ok || reconErr.GetExitCode() != 3 {
		t.Errorf("expected a validation error with exit code 3, got %v", reconErr)
	}

	if !strings.HasPrefix(err.Error(), "Found 2 malformed records:") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestAsReconcilerError(t *testing.T) {
	reconcilerErr := New(CategoryFile, CodeFileNotFound, "test")
	genericErr := errors.New("generic error")

	if extracted, ok := AsReconcilerError(reconcilerErr); !ok || extracted != reconcilerErr {
		t.Error("expected AsReconcilerError to extract ReconcilerError")
	}
	if _, ok := AsReconcilerError(genericErr); ok {
		t.Error("expected AsReconcilerError to return false for generic error")
	}
	if _, ok := AsReconcilerError(nil); ok {
		t.Error("expected AsReconcilerError to return false for nil")
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		category     ErrorCategory
		expectedCode int
	}{
		{CategoryFile, 2},
		{CategoryParse, 3},
		{CategoryValidation, 3},
		{CategoryConfiguration, 4},
		{CategoryReconciliation, 5},
		{CategoryInternal, 5},
		{ErrorCategory("unknown"), 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := New(tt.category, "test_code", "test message")
			if err.GetExitCode() != tt.expectedCode {
				t.Errorf("expected exit code %d for category %s, got %d",
					tt.expectedCode, tt.category, err.GetExitCode())
			}
		})
	}
}
