package gtfs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Row maps trimmed header names to raw field values. A Row handed to a
// RowFunc is reused for the next record; copy what you need to keep.
type Row map[string]string

// Get returns the whitespace-trimmed value of field, or "" when absent.
func (r Row) Get(field string) string {
	return strings.TrimSpace(r[field])
}

// RowFunc receives every parsed record with its 1-based line number.
type RowFunc func(line int, row Row) error

// ReadRows streams the delimited table in r, calling fn once per non-blank
// record. Records with a field count that differs from the header, or with
// broken quoting, are reported to warnings and parsing continues. Only I/O
// errors and errors returned by fn abort the read.
func ReadRows(table string, r io.Reader, warnings *WarningAggregator, fn RowFunc) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: read header: %w", table, err)
	}
	keys := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		keys[i] = strings.TrimSpace(h)
	}

	row := make(Row, len(keys))
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			warnings.Add(table, WarningMalformedRow, "line "+strconv.Itoa(perr.Line))
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: read: %w", table, err)
		}
		line, _ := cr.FieldPos(0)
		if isBlankRecord(record) {
			continue
		}
		if len(record) != len(keys) {
			warnings.Add(table, WarningMalformedRow, "line "+strconv.Itoa(line))
		}
		for i, key := range keys {
			if i < len(record) {
				row[key] = record[i]
			} else {
				row[key] = ""
			}
		}
		if err := fn(line, row); err != nil {
			return err
		}
	}
}

// isBlankRecord reports records consisting of a single empty or whitespace
// field, which encoding/csv yields for lines holding only spaces.
func isBlankRecord(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}

// parseIntDefault coerces an integer field, falling back to def when the
// field is blank or unparsable.
func parseIntDefault(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

// parseRequiredFloat coerces a required float field; ok is false when the
// row must be dropped.
func parseRequiredFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
