package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DateLayouts are the layouts tried, in order, when parsing a date string.
// Month and day accept one or two digits. Ambiguous numeric dates are read
// month first; the day-first layouts only apply when the month-first
// reading is out of range, as in 13/01/2024.
var DateLayouts = []string{
	"2006-1-2",
	"1/2/2006",
	"1-2-2006",
	"2/1/2006",
	"2-1-2006",
	"2006/1/2",
	time.RFC3339,
	"2006-1-2 15:04:05",
	"2006-1-2T15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

var amountReplacer = strings.NewReplacer(
	",", "",
	"₹", "",
	"$", "",
	"€", "",
	"£", "",
	"¥", "",
	" ", "",
	"\t", "",
	"\u00a0", "",
)

// ParseDate converts a raw date value into a calendar date. The second
// return value is false, and the date is the zero civil.Date, when the
// value cannot be understood.
func ParseDate(value any) (civil.Date, bool) {
	switch v := value.(type) {
	case nil:
		return civil.Date{}, false
	case civil.Date:
		return v, v.IsValid()
	case time.Time:
		if v.IsZero() {
			return civil.Date{}, false
		}
		return civil.DateOf(v), true
	case string:
		return parseDateString(v)
	default:
		return parseDateString(fmt.Sprint(v))
	}
}

func parseDateString(s string) (civil.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, false
	}

	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}

// ParseAmount converts a raw amount value into a decimal. Thousands
// separators, currency symbols, whitespace and a leading '+' are stripped;
// a value wrapped in parentheses is negative.
func ParseAmount(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, fmt.Errorf("amount is empty")
	case decimal.Decimal:
		return v, nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float32:
		if err := checkFinite(float64(v)); err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromFloat32(v), nil
	case float64:
		if err := checkFinite(v); err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromFloat(v), nil
	case json.Number:
		return ParseDecimalFromString(v.String())
	case string:
		return ParseDecimalFromString(v)
	default:
		return ParseDecimalFromString(fmt.Sprint(v))
	}
}

func checkFinite(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("amount %v is not a finite number", f)
	}
	return nil
}

// ParseDecimalFromString parses a decimal value from string with validation
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	cleaned := amountReplacer.Replace(strings.TrimSpace(s))

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	cleaned = strings.TrimPrefix(cleaned, "+")

	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// FormatAmount renders an amount with at least two decimal places.
func FormatAmount(d decimal.Decimal) string {
	if d.Exponent() < -2 {
		return d.String()
	}
	return d.StringFixed(2)
}

// DaysBetween returns |a - b| in days. ok is false when either date is invalid.
func DaysBetween(a, b civil.Date) (days int, ok bool) {
	if !a.IsValid() || !b.IsValid() {
		return 0, false
	}
	days = a.DaysSince(b)
	if days < 0 {
		days = -days
	}
	return days, true
}
