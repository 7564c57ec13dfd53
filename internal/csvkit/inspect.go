// Package csvkit reads operator-supplied CSV files: header detection
// plus sample rows for mapping, and full row extraction for batch runs.
package csvkit

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// DefaultSampleSize bounds sample_rows when the caller sends no limit.
const DefaultSampleSize = 5

// Inspection mirrors the /csv/inspect response shape.
type Inspection struct {
	Headers    []string            `json:"headers"`
	SampleRows []map[string]string `json:"sample_rows"`
}

// Inspect returns the header row and up to sampleSize sample rows.
func Inspect(r io.Reader, sampleSize int) (Inspection, error) {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	headers, rows, err := read(r, sampleSize)
	if err != nil {
		return Inspection{}, err
	}
	return Inspection{Headers: headers, SampleRows: rows}, nil
}

// Rows returns the headers and every data row keyed by header.
func Rows(r io.Reader) ([]string, []map[string]string, error) {
	return readAll(r)
}

func readAll(r io.Reader) ([]string, []map[string]string, error) {
	return readLimit(r, -1)
}

func read(r io.Reader, limit int) ([]string, []map[string]string, error) {
	return readLimit(r, limit)
}

func readLimit(r io.Reader, limit int) ([]string, []map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate ragged rows
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("csv is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff") // strip BOM
		}
		headers[i] = strings.TrimSpace(h)
	}

	var rows []map[string]string
	for limit < 0 || len(rows) < limit {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}

		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}

	return headers, rows, nil
}
