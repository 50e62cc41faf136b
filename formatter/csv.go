package formatter

import (
	"io"

	"github.com/gocarina/gocsv"

	"github.com/theoremus-urban-solutions/gtfs-explorer/query"
)

// WriteStopsCSV writes stops as CSV with a header row. Columns follow
// stops.txt naming plus the owning feed.
func WriteStopsCSV(w io.Writer, stops []query.StopResult) error {
	if stops == nil {
		stops = []query.StopResult{}
	}
	return gocsv.Marshal(&stops, w)
}
