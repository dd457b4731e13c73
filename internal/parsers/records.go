package parsers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"
)

// RecordParser reads a header-labelled CSV into raw rows keyed by the
// canonical column names. Columns that are not Date, Amount or Description
// are kept under their header name.
type RecordParser struct {
	*BaseParser
	columns *ColumnConfig
	logger  logger.Logger
}

// NewRecordParser creates a RecordParser. Nil configs fall back to the defaults.
func NewRecordParser(config *ParseConfig, columns *ColumnConfig) (*RecordParser, error) {
	if config == nil {
		config = DefaultParseConfig()
	}
	if columns == nil {
		columns = DefaultColumnConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := columns.Validate(); err != nil {
		return nil, err
	}

	return &RecordParser{
		BaseParser: NewBaseParser(config),
		columns:    columns,
		logger:     logger.GetGlobalLogger().WithComponent("record_parser"),
	}, nil
}

// ParseFile parses the CSV file at path.
func (rp *RecordParser) ParseFile(ctx context.Context, path string) ([]models.RawRecord, *ParseStats, error) {
	reader, err := rp.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}
	return rp.parse(ctx, reader, path)
}

// Parse parses CSV content from r. source names the input in errors and logs.
func (rp *RecordParser) Parse(ctx context.Context, r io.Reader, source string) ([]models.RawRecord, *ParseStats, error) {
	reader, err := rp.NewReader(r, source)
	if err != nil {
		return nil, nil, err
	}
	return rp.parse(ctx, reader, source)
}

func (rp *RecordParser) parse(ctx context.Context, reader *csv.Reader, source string) ([]models.RawRecord, *ParseStats, error) {
	log := rp.logger.WithField("source", source)
	log.Debug("Starting record parsing")

	parseCtx := NewParseContext(ctx, source)
	stats := &ParseStats{Source: source}

	if err := rp.ReadHeaders(reader, parseCtx); err != nil {
		return nil, stats, err
	}

	mapping, missing := rp.columns.Resolve(parseCtx)
	if len(missing) > 0 {
		log.WithFields(logger.Fields{
			"missing_columns":   missing,
			"available_headers": parseCtx.Headers,
		}).Error("Required columns are missing")

		return nil, stats, errors.ParseError(
			errors.CodeMissingColumn,
			source,
			parseCtx.LineNumber,
			strings.Join(missing, ", "),
			nil,
		).WithContext("available_headers", parseCtx.Headers)
	}

	rows := make([]models.RawRecord, 0)
	for {
		record, err := rp.ReadRecord(reader, parseCtx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, err
		}

		if len(record) < len(parseCtx.Headers) {
			stats.ShortRows++
		}
		rows = append(rows, rp.toRaw(record, parseCtx.Headers, mapping))
	}

	stats.TotalLines = parseCtx.LineNumber
	stats.RecordsRead = len(rows)

	log.WithFields(logger.Fields{
		"records":    stats.RecordsRead,
		"lines":      stats.TotalLines,
		"short_rows": stats.ShortRows,
	}).Info("Parsed CSV file")

	return rows, stats, nil
}

// toRaw builds one raw row. Fields missing from a short row are nil.
// Canonical columns are filled first so an unmapped header can never
// shadow them.
func (rp *RecordParser) toRaw(record []string, headers []string, mapping ColumnMapping) models.RawRecord {
	raw := make(models.RawRecord, len(headers))
	field := func(i int) any {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return nil
	}

	for canonical, i := range mapping {
		raw[canonical] = field(i)
	}
	for i, header := range headers {
		if _, ok := mapping.canonicalFor(i); ok {
			continue
		}
		key := header
		if key == "" {
			key = fmt.Sprintf("column_%d", i+1)
		}
		if _, exists := raw[key]; !exists {
			raw[key] = field(i)
		}
	}
	return raw
}
