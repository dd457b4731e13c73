// Package parsers reads bank statement and ledger CSV files into raw rows.
//
// Real-world exports disagree on header names, delimiters and encodings, so
// the parsers here locate the Date, Amount and Description columns through
// case-insensitive aliases, validate that the input is UTF-8 and skip blank
// rows. Values are passed through as trimmed strings; turning them into
// typed records is the normalizer's job.
//
// Example usage:
//
//	parser, err := NewRecordParser(nil, nil)
//	rows, stats, err := parser.ParseFile(ctx, "bank.csv")
package parsers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"
)

const utf8BOM = "\ufeff"

// ParseConfig holds configuration for CSV parsing
type ParseConfig struct {
	Delimiter        rune
	Comment          rune
	TrimLeadingSpace bool
	SkipEmptyRows    bool
	MaxFieldSize     int
	ValidateEncoding bool
}

// DefaultParseConfig returns a configuration with sensible defaults
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		Delimiter:        ',',
		Comment:          0,
		TrimLeadingSpace: true,
		SkipEmptyRows:    true,
		MaxFieldSize:     1000000, // 1MB per field
		ValidateEncoding: true,
	}
}

// Validate checks the delimiter and comment runes are usable by encoding/csv.
func (c *ParseConfig) Validate() error {
	if c.Delimiter == 0 || c.Delimiter == '\r' || c.Delimiter == '\n' || c.Delimiter == '"' || c.Delimiter == utf8.RuneError {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "delimiter", string(c.Delimiter), nil)
	}
	if c.Comment != 0 && c.Comment == c.Delimiter {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "comment", string(c.Comment),
			fmt.Errorf("comment character must differ from the delimiter"))
	}
	if c.MaxFieldSize < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "max-field-size", c.MaxFieldSize, nil)
	}
	return nil
}

// BaseParser provides common CSV parsing functionality
type BaseParser struct {
	config *ParseConfig
	logger logger.Logger
}

// NewBaseParser creates a new BaseParser with the given configuration
func NewBaseParser(config *ParseConfig) *BaseParser {
	if config == nil {
		config = DefaultParseConfig()
	}

	log := logger.GetGlobalLogger().WithComponent("parser")
	log.WithFields(logger.Fields{
		"delimiter":         string(config.Delimiter),
		"validate_encoding": config.ValidateEncoding,
		"max_field_size":    config.MaxFieldSize,
	}).Debug("Created base parser")

	return &BaseParser{
		config: config,
		logger: log,
	}
}

// ParseContext holds state during parsing operations
type ParseContext struct {
	Source     string
	LineNumber int
	Headers    []string
	HeaderMap  map[string]int
	ctx        context.Context
}

// NewParseContext creates a new parsing context
func NewParseContext(ctx context.Context, source string) *ParseContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ParseContext{
		Source:    source,
		Headers:   make([]string, 0),
		HeaderMap: make(map[string]int),
		ctx:       ctx,
	}
}

// IsCancelled checks if the parsing context has been cancelled
func (pc *ParseContext) IsCancelled() bool {
	select {
	case <-pc.ctx.Done():
		return true
	default:
		return false
	}
}

// GetColumnIndex returns the index of a column by name, or -1 if not found.
// The lookup is case-insensitive.
func (pc *ParseContext) GetColumnIndex(name string) int {
	if index, exists := pc.HeaderMap[strings.ToLower(strings.TrimSpace(name))]; exists {
		return index
	}
	return -1
}

// OpenFile reads a CSV file and returns a configured csv.Reader over it.
func (bp *BaseParser) OpenFile(filePath string) (*csv.Reader, error) {
	bp.logger.WithField("file_path", filePath).Debug("Opening CSV file")

	file, err := os.Open(filePath)
	if err != nil {
		bp.logger.WithError(err).WithField("file_path", filePath).Error("Failed to open CSV file")

		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, filePath, err)
		}
		return nil, errors.FileError(errors.CodeDirectoryError, filePath, err)
	}
	defer file.Close()

	return bp.NewReader(file, filePath)
}

// NewReader buffers r, validates its encoding if configured and returns a
// csv.Reader over the content. source names the input in errors.
func (bp *BaseParser) NewReader(r io.Reader, source string) (*csv.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, source, err)
	}

	if bp.config.ValidateEncoding {
		if err := bp.validateEncoding(data, source); err != nil {
			bp.logger.WithError(err).WithField("source", source).Error("File encoding validation failed")
			return nil, err
		}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	bp.configureReader(reader)
	return reader, nil
}

// configureReader sets up the CSV reader with our configuration
func (bp *BaseParser) configureReader(reader *csv.Reader) {
	reader.Comma = bp.config.Delimiter
	reader.Comment = bp.config.Comment
	reader.TrimLeadingSpace = bp.config.TrimLeadingSpace
	reader.FieldsPerRecord = -1 // Variable number of fields
	reader.ReuseRecord = false
}

// validateEncoding checks every line of the input is valid UTF-8
func (bp *BaseParser) validateEncoding(data []byte, source string) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	maxLine := bufio.MaxScanTokenSize
	if bp.config.MaxFieldSize > maxLine {
		maxLine = bp.config.MaxFieldSize
	}
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLine)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if !utf8.Valid(scanner.Bytes()) {
			return errors.ParseError(
				errors.CodeEncodingError,
				source,
				lineNum,
				"",
				fmt.Errorf("invalid UTF-8 encoding detected"),
			)
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.FileError(errors.CodeFileCorrupted, source, err)
	}
	return nil
}

// ReadHeaders reads the header row into the parse context.
func (bp *BaseParser) ReadHeaders(reader *csv.Reader, parseCtx *ParseContext) error {
	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			bp.logger.WithField("source", parseCtx.Source).Error("File is empty or contains no header")
			return errors.ParseError(
				errors.CodeMissingColumn,
				parseCtx.Source,
				1,
				"Date",
				fmt.Errorf("file is empty"),
			).WithSuggestion("ensure the file contains a header row followed by data rows")
		}

		bp.logger.WithError(err).Error("Failed to read header row")
		return errors.ParseError(errors.CodeInvalidFormat, parseCtx.Source, 1, "", err)
	}

	parseCtx.LineNumber++
	parseCtx.Headers = bp.cleanHeaders(headers)
	bp.buildHeaderMap(parseCtx)

	bp.logger.WithField("headers", parseCtx.Headers).Debug("Successfully read headers")
	return nil
}

// cleanHeaders removes whitespace and a leading byte order mark
func (bp *BaseParser) cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		if i == 0 {
			header = strings.TrimPrefix(header, utf8BOM)
		}
		cleaned[i] = strings.TrimSpace(header)
	}
	return cleaned
}

// buildHeaderMap maps lower-cased header names to column indices. The first
// occurrence of a repeated header wins.
func (bp *BaseParser) buildHeaderMap(parseCtx *ParseContext) {
	parseCtx.HeaderMap = make(map[string]int, len(parseCtx.Headers))
	for i, header := range parseCtx.Headers {
		key := strings.ToLower(header)
		if _, exists := parseCtx.HeaderMap[key]; !exists {
			parseCtx.HeaderMap[key] = i
		}
	}
}

// ReadRecord reads the next non-empty CSV record. It returns io.EOF at the
// end of input.
func (bp *BaseParser) ReadRecord(reader *csv.Reader, parseCtx *ParseContext) ([]string, error) {
	for {
		if parseCtx.IsCancelled() {
			bp.logger.Debug("Record reading cancelled by context")
			return nil, errors.ReconciliationError(errors.CodeCancelled, "csv parsing", parseCtx.ctx.Err())
		}

		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				return nil, err
			}

			line := parseCtx.LineNumber + 1
			if pe, ok := err.(*csv.ParseError); ok {
				line = pe.Line
			}
			bp.logger.WithError(err).WithField("line_number", line).Warn("Failed to read CSV record")
			return nil, errors.ParseError(errors.CodeInvalidFormat, parseCtx.Source, line, "", err)
		}

		parseCtx.LineNumber++

		if bp.config.SkipEmptyRows && isEmptyRecord(record) {
			bp.logger.WithField("line_number", parseCtx.LineNumber).Debug("Skipping empty record")
			continue
		}

		if bp.config.MaxFieldSize > 0 {
			for i, field := range record {
				if len(field) > bp.config.MaxFieldSize {
					column := ""
					if i < len(parseCtx.Headers) {
						column = parseCtx.Headers[i]
					}
					return nil, errors.ParseError(
						errors.CodeInvalidFormat,
						parseCtx.Source,
						parseCtx.LineNumber,
						column,
						fmt.Errorf("field exceeds maximum size of %d bytes", bp.config.MaxFieldSize),
					)
				}
			}
		}

		return record, nil
	}
}

// isEmptyRecord checks if all fields in a record are empty or whitespace
func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// ParseStats holds statistics about a parsing operation
type ParseStats struct {
	Source      string
	TotalLines  int
	RecordsRead int
	ShortRows   int
}

// String returns a human-readable summary of parsing statistics
func (ps *ParseStats) String() string {
	return fmt.Sprintf("%s: %d lines, %d records, %d short rows",
		ps.Source, ps.TotalLines, ps.RecordsRead, ps.ShortRows)
}
