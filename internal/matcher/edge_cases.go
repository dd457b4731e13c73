package matcher

import (
	"fmt"
	"strings"

	"bank-ledger-reconciler/internal/models"
)

// DuplicateGroup is a set of records within one side that share date,
// amount and description. Against a single counterpart only one member of
// such a group can be matched; the rest end up unmatched.
type DuplicateGroup struct {
	GroupID     string      `json:"group_id"`
	Side        models.Side `json:"side"`
	Indices     []int       `json:"indices"`
	Date        string      `json:"date"`
	Amount      string      `json:"amount"`
	Description string      `json:"description"`
}

// Reason describes the group for logs and reports.
func (g DuplicateGroup) Reason() string {
	return fmt.Sprintf("%d %s records share date %s, amount %s and description %q",
		len(g.Indices), g.Side, g.Date, g.Amount, g.Description)
}

// DetectDuplicates identifies records within one set that are exact
// duplicates of each other. Records with invalid dates are skipped since
// they never match anyway. Groups are ordered by their first index.
func DetectDuplicates(side models.Side, records []models.Record) []DuplicateGroup {
	type key struct {
		date        string
		amount      string
		description string
	}

	groupsByKey := make(map[key]*DuplicateGroup)
	var order []key
	for _, record := range records {
		if !record.HasValidDate() {
			continue
		}

		k := key{
			date:        record.DateString(),
			amount:      record.Amount.String(),
			description: record.Description,
		}
		group, seen := groupsByKey[k]
		if !seen {
			group = &DuplicateGroup{
				GroupID:     fmt.Sprintf("DUP_%s_%d", strings.ToUpper(side.String()), record.Index),
				Side:        side,
				Date:        k.date,
				Amount:      record.AmountString(),
				Description: record.Description,
			}
			groupsByKey[k] = group
			order = append(order, k)
		}
		group.Indices = append(group.Indices, record.Index)
	}

	var groups []DuplicateGroup
	for _, k := range order {
		if group := groupsByKey[k]; len(group.Indices) > 1 {
			groups = append(groups, *group)
		}
	}

	return groups
}
