package gtfs

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultChunkRows is how many stop_times rows pass between two progress
// updates of the stop_times phase.
const DefaultChunkRows = 10000

var requiredFiles = []string{"agency.txt", "routes.txt", "trips.txt", "stops.txt", "stop_times.txt"}

// Options tune a single build.
type Options struct {
	// Now supplies "today" for the default calendar range. Defaults to time.Now.
	Now func() time.Time
	// Progress receives ordered progress updates. Optional.
	Progress ProgressFunc
	// ChunkRows overrides DefaultChunkRows.
	ChunkRows int
}

// NewFeedIndexFromBytes builds an index from an in-memory GTFS zip.
func NewFeedIndexFromBytes(ctx context.Context, data []byte, opts Options) (*FeedIndex, error) {
	return NewFeedIndexFromReader(ctx, bytes.NewReader(data), int64(len(data)), opts)
}

// NewFeedIndexFromFile builds an index from a GTFS zip on disk.
func NewFeedIndexFromFile(ctx context.Context, filename string, opts Options) (*FeedIndex, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return NewFeedIndexFromReader(ctx, f, stat.Size(), opts)
}

// NewFeedIndexFromReader builds an index from a GTFS zip. Either a complete
// index or an error is returned, never both. A missing required table yields
// a *StructuralError; a cancelled ctx yields ctx.Err().
func NewFeedIndexFromReader(ctx context.Context, r io.ReaderAt, size int64, opts Options) (*FeedIndex, error) {
	b := &builder{
		ctx:       ctx,
		idx:       newFeedIndex(),
		warnings:  NewWarningAggregator(),
		progress:  &progressTracker{fn: opts.Progress},
		chunkRows: opts.ChunkRows,
	}
	if b.chunkRows <= 0 {
		b.chunkRows = DefaultChunkRows
	}

	b.progress.report(PhaseExtract, 0)
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	files := archiveMembers(zr)
	for _, name := range requiredFiles {
		if files[name] == nil {
			return nil, &StructuralError{File: name}
		}
	}
	b.progress.report(PhaseExtract, 100)

	steps := []struct {
		phase   Phase
		file    string
		consume func(f *zip.File) error
	}{
		{PhaseAgency, "agency.txt", b.consumeAgencies},
		{PhaseRoutes, "routes.txt", b.consumeRoutes},
		{PhaseTrips, "trips.txt", b.consumeTrips},
		{PhaseStopTimes, "stop_times.txt", b.consumeStopTimes},
		{PhaseStops, "stops.txt", b.consumeStops},
		{PhaseShapes, "shapes.txt", b.consumeShapes},
		{PhaseCalendar, "calendar.txt", b.consumeCalendar},
		{PhaseCalendarDates, "calendar_dates.txt", b.consumeCalendarDates},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.progress.report(step.phase, 0)
		if f := files[step.file]; f != nil {
			if err := step.consume(f); err != nil {
				return nil, err
			}
		}
		b.progress.report(step.phase, 100)
	}

	b.idx.servicesByDate = ResolveServices(b.rules, b.exceptions, Today(opts.Now))
	b.idx.warnings = b.warnings.Summary()
	return b.idx, nil
}

// archiveMembers maps lower-cased base names to archive entries. Feeds zipped
// inside a folder are accepted; the shallowest entry wins on name clashes.
func archiveMembers(zr *zip.Reader) map[string]*zip.File {
	files := make(map[string]*zip.File)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		name := strings.ToLower(path.Base(f.Name))
		if prev, ok := files[name]; ok && strings.Count(prev.Name, "/") <= strings.Count(f.Name, "/") {
			continue
		}
		files[name] = f
	}
	return files
}

type builder struct {
	ctx       context.Context
	idx       *FeedIndex
	warnings  *WarningAggregator
	progress  *progressTracker
	chunkRows int

	rules      []CalendarRule
	exceptions []CalendarException
}

func (b *builder) read(f *zip.File, table string, r io.Reader, fn RowFunc) error {
	if err := ReadRows(table, r, b.warnings, fn); err != nil {
		return fmt.Errorf("%s: %w", f.Name, err)
	}
	return nil
}

func (b *builder) open(f *zip.File, fn func(r io.Reader) error) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%s: open: %w", f.Name, err)
	}
	defer rc.Close()
	return fn(rc)
}

func lineRef(line int) string { return "line " + strconv.Itoa(line) }

func (b *builder) consumeAgencies(f *zip.File) error {
	const table = "agency.txt"
	return b.open(f, func(r io.Reader) error {
		return b.read(f, table, r, func(line int, row Row) error {
			a := Agency{
				AgencyID: row.Get("agency_id"),
				Name:     row.Get("agency_name"),
				URL:      row.Get("agency_url"),
				Timezone: row.Get("agency_timezone"),
			}
			if a.Name == "" {
				a.Name = "Unknown Agency"
			}
			if !b.idx.agencies.insert(a.AgencyID, a) {
				b.warnings.Add(table, WarningDuplicateID, a.AgencyID)
			}
			return nil
		})
	})
}

func (b *builder) consumeRoutes(f *zip.File) error {
	const table = "routes.txt"
	return b.open(f, func(r io.Reader) error {
		return b.read(f, table, r, func(line int, row Row) error {
			id := row.Get("route_id")
			if id == "" {
				b.warnings.Add(table, WarningMissingID, lineRef(line))
				return nil
			}
			rt := Route{
				RouteID:   id,
				AgencyID:  row.Get("agency_id"),
				ShortName: row.Get("route_short_name"),
				LongName:  row.Get("route_long_name"),
				RouteType: parseIntDefault(row.Get("route_type"), DefaultRouteType),
			}
			if !isKnownRouteType(rt.RouteType) {
				rt.RouteType = DefaultRouteType
			}
			rt.Color = b.color(table, id, row.Get("route_color"))
			rt.TextColor = b.color(table, id, row.Get("route_text_color"))
			if rt.AgencyID != "" && !b.idx.agencies.Has(rt.AgencyID) {
				b.warnings.Add(table, WarningMissingReference, id)
			}
			if !b.idx.routes.insert(id, rt) {
				b.warnings.Add(table, WarningDuplicateID, id)
			}
			return nil
		})
	})
}

// color returns a route color without its leading '#', or "" unless it is 6
// hex digits. Case is kept as written.
func (b *builder) color(table, id, raw string) string {
	c := strings.TrimPrefix(raw, "#")
	if c == "" {
		return ""
	}
	if len(c) != 6 {
		b.warnings.Add(table, WarningInvalidColor, id)
		return ""
	}
	if _, err := strconv.ParseUint(c, 16, 32); err != nil {
		b.warnings.Add(table, WarningInvalidColor, id)
		return ""
	}
	return c
}

func (b *builder) consumeTrips(f *zip.File) error {
	const table = "trips.txt"
	return b.open(f, func(r io.Reader) error {
		return b.read(f, table, r, func(line int, row Row) error {
			t := Trip{
				TripID:    row.Get("trip_id"),
				RouteID:   row.Get("route_id"),
				ServiceID: row.Get("service_id"),
				ShapeID:   row.Get("shape_id"),
				Headsign:  row.Get("trip_headsign"),
			}
			if t.TripID == "" || t.RouteID == "" {
				b.warnings.Add(table, WarningMissingID, lineRef(line))
				return nil
			}
			if parseIntDefault(row.Get("direction_id"), 0) == 1 {
				t.DirectionID = 1
			}
			if prev, ok := b.idx.trips.Get(t.TripID); ok {
				b.warnings.Add(table, WarningDuplicateID, t.TripID)
				b.unindexTrip(*prev, t)
			}
			b.idx.trips.insert(t.TripID, t)
			if !b.idx.routes.Has(t.RouteID) {
				b.warnings.Add(table, WarningMissingReference, t.TripID)
			}
			addToIndex(b.idx.tripsByRoute, t.RouteID, t.TripID)
			if t.ServiceID != "" {
				addToIndex(b.idx.tripsByService, t.ServiceID, t.TripID)
			}
			return nil
		})
	})
}

// unindexTrip drops prev from the route and service indexes it no longer
// belongs to once next replaces it.
func (b *builder) unindexTrip(prev, next Trip) {
	if prev.RouteID != next.RouteID {
		b.idx.tripsByRoute[prev.RouteID].Remove(prev.TripID)
		if b.idx.tripsByRoute[prev.RouteID].Len() == 0 {
			delete(b.idx.tripsByRoute, prev.RouteID)
		}
	}
	if prev.ServiceID != "" && prev.ServiceID != next.ServiceID {
		b.idx.tripsByService[prev.ServiceID].Remove(prev.TripID)
		if b.idx.tripsByService[prev.ServiceID].Len() == 0 {
			delete(b.idx.tripsByService, prev.ServiceID)
		}
	}
}

func (b *builder) consumeStopTimes(f *zip.File) error {
	const table = "stop_times.txt"
	total := int64(f.UncompressedSize64)
	return b.open(f, func(r io.Reader) error {
		cr := &countingReader{r: r}
		processed := 0
		err := b.read(f, table, cr, func(line int, row Row) error {
			processed++
			if processed%b.chunkRows == 0 {
				if err := b.ctx.Err(); err != nil {
					return err
				}
				b.progress.report(PhaseStopTimes, chunkPercent(cr.n, total))
			}

			tripID, stopID := row.Get("trip_id"), row.Get("stop_id")
			if tripID == "" || stopID == "" {
				b.warnings.Add(table, WarningMissingID, lineRef(line))
				return nil
			}
			trip, ok := b.idx.trips.Get(tripID)
			if !ok {
				b.warnings.Add(table, WarningUnknownTrip, tripID)
				return nil
			}
			b.idx.stopTimesByTrip[tripID] = append(b.idx.stopTimesByTrip[tripID], StopTime{
				StopID:    stopID,
				Sequence:  parseIntDefault(row.Get("stop_sequence"), 0),
				Arrival:   row.Get("arrival_time"),
				Departure: row.Get("departure_time"),
			})
			addToIndex(b.idx.stopsByRoute, trip.RouteID, stopID)
			return nil
		})
		if err != nil {
			return err
		}
		for _, sts := range b.idx.stopTimesByTrip {
			sort.SliceStable(sts, func(i, j int) bool { return sts[i].Sequence < sts[j].Sequence })
		}
		return nil
	})
}

// chunkPercent keeps intermediate updates below 100; the phase end reports 100.
func chunkPercent(read, total int64) int {
	if total <= 0 {
		return 0
	}
	p := int(read * 100 / total)
	if p > 99 {
		p = 99
	}
	return p
}

func (b *builder) consumeStops(f *zip.File) error {
	const table = "stops.txt"
	return b.open(f, func(r io.Reader) error {
		return b.read(f, table, r, func(line int, row Row) error {
			id := row.Get("stop_id")
			if id == "" {
				b.warnings.Add(table, WarningMissingID, lineRef(line))
				return nil
			}
			lat, okLat := parseRequiredFloat(row.Get("stop_lat"))
			lon, okLon := parseRequiredFloat(row.Get("stop_lon"))
			if !okLat || !okLon {
				b.warnings.Add(table, WarningInvalidCoordinate, id)
				return nil
			}
			s := Stop{
				StopID:             id,
				Code:               row.Get("stop_code"),
				Name:               row.Get("stop_name"),
				Lat:                lat,
				Lon:                lon,
				WheelchairBoarding: parseIntDefault(row.Get("wheelchair_boarding"), 0),
			}
			if s.Name == "" {
				s.Name = "Unnamed Stop"
			}
			if s.WheelchairBoarding < 0 || s.WheelchairBoarding > 2 {
				s.WheelchairBoarding = 0
			}
			if !b.idx.stops.insert(id, s) {
				b.warnings.Add(table, WarningDuplicateID, id)
			}
			return nil
		})
	})
}

type shapePoint struct {
	lat, lon float64
	seq      int
}

func (b *builder) consumeShapes(f *zip.File) error {
	const table = "shapes.txt"
	points := map[string][]shapePoint{}
	var order []string
	err := b.open(f, func(r io.Reader) error {
		return b.read(f, table, r, func(line int, row Row) error {
			id := row.Get("shape_id")
			if id == "" {
				b.warnings.Add(table, WarningMissingID, lineRef(line))
				return nil
			}
			lat, okLat := parseRequiredFloat(row.Get("shape_pt_lat"))
			lon, okLon := parseRequiredFloat(row.Get("shape_pt_lon"))
			if !okLat || !okLon {
				b.warnings.Add(table, WarningInvalidCoordinate, id)
				return nil
			}
			if _, ok := points[id]; !ok {
				order = append(order, id)
			}
			points[id] = append(points[id], shapePoint{lat, lon, parseIntDefault(row.Get("shape_pt_sequence"), 0)})
			return nil
		})
	})
	if err != nil {
		return err
	}
	for _, id := range order {
		arr := points[id]
		sort.SliceStable(arr, func(i, j int) bool { return arr[i].seq < arr[j].seq })
		pts := make([]Waypoint, len(arr))
		for i, p := range arr {
			pts[i] = Waypoint{Latitude: p.lat, Longitude: p.lon}
		}
		b.idx.shapes.insert(id, Shape{ShapeID: id, Points: pts})
	}
	return nil
}

var weekdayColumns = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

func (b *builder) consumeCalendar(f *zip.File) error {
	const table = "calendar.txt"
	return b.open(f, func(r io.Reader) error {
		return b.read(f, table, r, func(line int, row Row) error {
			id := row.Get("service_id")
			if id == "" {
				b.warnings.Add(table, WarningMissingID, lineRef(line))
				return nil
			}
			start, err1 := ParseDate(row.Get("start_date"))
			end, err2 := ParseDate(row.Get("end_date"))
			if err1 != nil || err2 != nil {
				b.warnings.Add(table, WarningInvalidDate, id)
				return nil
			}
			rule := CalendarRule{ServiceID: id, Start: start, End: end}
			for day, col := range weekdayColumns {
				rule.Days[day] = parseIntDefault(row.Get(col), 0) == 1
			}
			b.rules = append(b.rules, rule)
			return nil
		})
	})
}

func (b *builder) consumeCalendarDates(f *zip.File) error {
	const table = "calendar_dates.txt"
	return b.open(f, func(r io.Reader) error {
		return b.read(f, table, r, func(line int, row Row) error {
			id := row.Get("service_id")
			if id == "" {
				b.warnings.Add(table, WarningMissingID, lineRef(line))
				return nil
			}
			date, err := ParseDate(row.Get("date"))
			if err != nil {
				b.warnings.Add(table, WarningInvalidDate, id)
				return nil
			}
			kind := ExceptionType(parseIntDefault(row.Get("exception_type"), 0))
			if kind != ServiceAdded && kind != ServiceRemoved {
				b.warnings.Add(table, WarningInvalidException, id)
				return nil
			}
			b.exceptions = append(b.exceptions, CalendarException{ServiceID: id, Date: date, Type: kind})
			return nil
		})
	})
}

func addToIndex(index map[string]*Set, key, id string) {
	s, ok := index[key]
	if !ok {
		s = NewSet()
		index[key] = s
	}
	s.Add(id)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
