package parsers

import (
	"fmt"
	"strings"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"
)

// ColumnConfig says where the three canonical columns live in a file.
// Each canonical column is looked up by its configured name first and then
// through its aliases, all case-insensitively.
type ColumnConfig struct {
	DateColumn        string              `json:"date_column" yaml:"date_column"`
	AmountColumn      string              `json:"amount_column" yaml:"amount_column"`
	DescriptionColumn string              `json:"description_column" yaml:"description_column"`
	Aliases           map[string][]string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// DefaultColumnConfig returns the Date/Amount/Description layout with the
// aliases seen in common bank and accounting exports.
func DefaultColumnConfig() *ColumnConfig {
	return &ColumnConfig{
		DateColumn:        models.FieldDate,
		AmountColumn:      models.FieldAmount,
		DescriptionColumn: models.FieldDescription,
		Aliases: map[string][]string{
			models.FieldDate:        {"txn_date", "transaction_date", "posting_date", "value_date"},
			models.FieldAmount:      {"amt", "value", "transaction_amount"},
			models.FieldDescription: {"narration", "details", "memo", "desc", "particulars"},
		},
	}
}

// Validate checks if the column configuration is valid
func (cc *ColumnConfig) Validate() error {
	names := map[string]string{
		"date-column":        cc.DateColumn,
		"amount-column":      cc.AmountColumn,
		"description-column": cc.DescriptionColumn,
	}
	for setting, name := range names {
		if strings.TrimSpace(name) == "" {
			return errors.ConfigurationError(errors.CodeMissingConfig, setting, name, nil)
		}
	}

	seen := make(map[string]string)
	for _, canonical := range canonicalFields {
		for _, name := range cc.candidates(canonical) {
			key := strings.ToLower(name)
			if owner, exists := seen[key]; exists && owner != canonical {
				return errors.ConfigurationError(errors.CodeInvalidConfig, "aliases", name,
					fmt.Errorf("%q is used for both %s and %s", name, owner, canonical))
			}
			seen[key] = canonical
		}
	}
	return nil
}

var canonicalFields = []string{models.FieldDate, models.FieldAmount, models.FieldDescription}

// candidates returns the names tried for a canonical column, in order.
func (cc *ColumnConfig) candidates(canonical string) []string {
	var primary string
	switch canonical {
	case models.FieldDate:
		primary = cc.DateColumn
	case models.FieldAmount:
		primary = cc.AmountColumn
	case models.FieldDescription:
		primary = cc.DescriptionColumn
	}

	names := []string{primary}
	if !strings.EqualFold(primary, canonical) {
		names = append(names, canonical)
	}
	return append(names, cc.Aliases[canonical]...)
}

// ColumnMapping is the resolved position of each canonical column.
type ColumnMapping map[string]int

// Resolve locates every canonical column in the parsed headers. Missing
// columns are reported in canonical order.
func (cc *ColumnConfig) Resolve(parseCtx *ParseContext) (ColumnMapping, []string) {
	mapping := make(ColumnMapping, len(canonicalFields))
	var missing []string

	for _, canonical := range canonicalFields {
		found := false
		for _, name := range cc.candidates(canonical) {
			if index := parseCtx.GetColumnIndex(name); index != -1 {
				mapping[canonical] = index
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, canonical)
		}
	}
	return mapping, missing
}

// canonicalFor returns the canonical name mapped to a column index, if any.
func (m ColumnMapping) canonicalFor(index int) (string, bool) {
	for canonical, i := range m {
		if i == index {
			return canonical, true
		}
	}
	return "", false
}
