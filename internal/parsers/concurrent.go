package parsers

import (
	"context"
	"sync"

	"bank-ledger-reconciler/internal/models"
)

// ParseResult holds the outcome of parsing one file.
type ParseResult struct {
	FilePath string
	Rows     []models.RawRecord
	Stats    *ParseStats
	Error    error
}

// ParsePair parses the bank and ledger files concurrently. The first error
// in (bank, ledger) order is returned.
func (rp *RecordParser) ParsePair(ctx context.Context, bankPath, ledgerPath string) (bank, ledger *ParseResult, err error) {
	results := [2]*ParseResult{{FilePath: bankPath}, {FilePath: ledgerPath}}

	var wg sync.WaitGroup
	for _, result := range results {
		wg.Add(1)
		go func(r *ParseResult) {
			defer wg.Done()
			r.Rows, r.Stats, r.Error = rp.ParseFile(ctx, r.FilePath)
		}(result)
	}
	wg.Wait()

	for _, result := range results {
		if result.Error != nil {
			return nil, nil, result.Error
		}
	}
	return results[0], results[1], nil
}
