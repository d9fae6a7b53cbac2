// Package importer implements the participant bulk-import pipeline: CSV
// parsing, mapped row extraction and validation, and the chunked import run
// against the assessment platform.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

var (
	ErrEmptyFile  = errors.New("file is empty")
	ErrNoHeaders  = errors.New("no header row detected in CSV file")
	ErrNoDataRows = errors.New("CSV file has no data rows")
)

// ParsedCSV is the in-memory form of an uploaded spreadsheet: the raw header
// names in file order, and one name-to-value record per data row. Row order
// is the stable identity used for preview indexing.
type ParsedCSV struct {
	Headers []string            `json:"headers"`
	Rows    []map[string]string `json:"rows"`
}

// ParseCSV reads a delimited file with a header row. Rows shorter than the
// header are padded with empty values; extra cells are dropped. Returns
// ErrEmptyFile, ErrNoHeaders, or ErrNoDataRows when the file cannot feed the
// mapping step.
func ParseCSV(reader io.Reader) (*ParsedCSV, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	headers, err := r.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(headers) == 0 || (len(headers) == 1 && headers[0] == "") {
		return nil, ErrNoHeaders
	}

	parsed := &ParsedCSV{Headers: headers}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", len(parsed.Rows)+2, err)
		}

		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			} else {
				row[h] = ""
			}
		}
		parsed.Rows = append(parsed.Rows, row)
	}

	if len(parsed.Rows) == 0 {
		return nil, ErrNoDataRows
	}
	return parsed, nil
}
