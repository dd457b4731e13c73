package matcher

import (
	"sort"

	"cloud.google.com/go/civil"

	"bank-ledger-reconciler/internal/models"
)

// LedgerIndex buckets ledger positions by calendar date so a bank record
// only has to look at ledger records inside its date window. Positions are
// returned in ascending order, which keeps the lowest-index tie-break of a
// full scan.
type LedgerIndex struct {
	// DateIndex maps each valid date to the ledger positions posted on it,
	// in ascending order.
	DateIndex map[civil.Date][]int

	// Dates holds the keys of DateIndex in chronological order.
	Dates []civil.Date

	// InvalidDates counts ledger records that can never be matched.
	InvalidDates int

	size int
}

// NewLedgerIndex creates a new index over the ledger set.
func NewLedgerIndex(ledger []models.Record) *LedgerIndex {
	index := &LedgerIndex{
		DateIndex: make(map[civil.Date][]int),
		size:      len(ledger),
	}

	for pos, record := range ledger {
		if !record.HasValidDate() {
			index.InvalidDates++
			continue
		}
		if _, exists := index.DateIndex[record.Date]; !exists {
			index.Dates = append(index.Dates, record.Date)
		}
		index.DateIndex[record.Date] = append(index.DateIndex[record.Date], pos)
	}

	sort.Slice(index.Dates, func(i, j int) bool {
		return index.Dates[i].Before(index.Dates[j])
	})

	return index
}

// GetByDateRange returns the ledger positions dated within [start, end],
// in ascending order.
func (li *LedgerIndex) GetByDateRange(start, end civil.Date) []int {
	first := sort.Search(len(li.Dates), func(i int) bool {
		return !li.Dates[i].Before(start)
	})

	var positions []int
	for i := first; i < len(li.Dates) && !li.Dates[i].After(end); i++ {
		positions = append(positions, li.DateIndex[li.Dates[i]]...)
	}

	sort.Ints(positions)
	return positions
}

// GetCandidates returns the ledger positions whose date is within
// toleranceDays of date. An invalid date has no candidates.
func (li *LedgerIndex) GetCandidates(date civil.Date, toleranceDays int) []int {
	if !date.IsValid() {
		return nil
	}
	return li.GetByDateRange(date.AddDays(-toleranceDays), date.AddDays(toleranceDays))
}

// IndexStats describes the shape of a LedgerIndex
type IndexStats struct {
	TotalRecords  int `json:"total_records"`
	DistinctDates int `json:"distinct_dates"`
	InvalidDates  int `json:"invalid_dates"`
}

// GetIndexStats returns statistics about the index
func (li *LedgerIndex) GetIndexStats() IndexStats {
	return IndexStats{
		TotalRecords:  li.size,
		DistinctDates: len(li.Dates),
		InvalidDates:  li.InvalidDates,
	}
}
