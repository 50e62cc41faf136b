package gtfs

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// Warning kinds recorded while ingesting a feed. A row warning never fails
// the import; the row (or the offending value) is dropped instead.
const (
	WarningMalformedRow      = "malformed_row"
	WarningMissingID         = "missing_id"
	WarningDuplicateID       = "duplicate_id"
	WarningMissingReference  = "missing_reference"
	WarningUnknownTrip       = "unknown_trip"
	WarningInvalidCoordinate = "invalid_coordinate"
	WarningInvalidColor      = "invalid_color"
	WarningInvalidDate       = "invalid_date"
	WarningInvalidException  = "invalid_exception_type"
)

const maxWarningExamples = 3

// RowWarning is the aggregated summary of one warning kind in one table.
type RowWarning struct {
	Table    string   `json:"table"`
	Kind     string   `json:"kind"`
	Count    int      `json:"count"`
	Examples []string `json:"examples"`
}

func (w RowWarning) String() string {
	return fmt.Sprintf("%s: %s (%d occurrences). Examples: %s",
		w.Table, describeWarning(w.Kind), w.Count, strings.Join(w.Examples, ", "))
}

type warningKey struct {
	table, kind string
}

// WarningAggregator collects row warnings during ingestion and keeps a count
// plus a few examples per (table, kind).
type WarningAggregator struct {
	warnings map[warningKey]*RowWarning
}

func NewWarningAggregator() *WarningAggregator {
	return &WarningAggregator{warnings: make(map[warningKey]*RowWarning)}
}

// Add records one occurrence of kind in table with an example (usually an id
// or a line reference).
func (w *WarningAggregator) Add(table, kind, example string) {
	key := warningKey{table, kind}
	info := w.warnings[key]
	if info == nil {
		info = &RowWarning{Table: table, Kind: kind, Examples: make([]string, 0, maxWarningExamples)}
		w.warnings[key] = info
	}
	info.Count++
	if len(info.Examples) < maxWarningExamples {
		info.Examples = append(info.Examples, example)
	}
}

// Summary returns the aggregated warnings sorted by table then kind.
func (w *WarningAggregator) Summary() []RowWarning {
	out := make([]RowWarning, 0, len(w.warnings))
	for _, info := range w.warnings {
		cp := *info
		cp.Examples = append([]string(nil), info.Examples...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Table != out[j].Table {
			return out[i].Table < out[j].Table
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// LogWarnings logs a warning summary, one line per (table, kind).
func LogWarnings(feedName string, warnings []RowWarning) {
	for _, rw := range warnings {
		log.Printf("feed %q: %s", feedName, rw)
	}
}

// CountWarnings sums the occurrences across a summary.
func CountWarnings(warnings []RowWarning) int {
	n := 0
	for _, rw := range warnings {
		n += rw.Count
	}
	return n
}

func describeWarning(kind string) string {
	switch kind {
	case WarningMalformedRow:
		return "rows that could not be parsed cleanly"
	case WarningMissingID:
		return "rows missing a required key field, dropped"
	case WarningDuplicateID:
		return "rows repeating an existing id, later row kept"
	case WarningMissingReference:
		return "rows referencing an unknown entity"
	case WarningUnknownTrip:
		return "stop times for trips missing from trips.txt, dropped"
	case WarningInvalidCoordinate:
		return "rows with missing or unparsable coordinates, dropped"
	case WarningInvalidColor:
		return "colors that are not 6 hex digits, cleared"
	case WarningInvalidDate:
		return "rows with invalid dates, dropped"
	case WarningInvalidException:
		return "calendar exceptions with unknown exception_type, dropped"
	default:
		return "unknown issue"
	}
}
