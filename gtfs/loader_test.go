package gtfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/gtfs-explorer/internal/testutil"
)

var fixedNow = func() time.Time { return time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC) }

func loadFeed(t *testing.T, feed testutil.Feed) *FeedIndex {
	t.Helper()
	idx, err := NewFeedIndexFromBytes(context.Background(), feed.Zip(t), Options{Now: fixedNow})
	require.NoError(t, err)
	require.NotNil(t, idx)
	return idx
}

func warningCount(idx *FeedIndex, table, kind string) int {
	for _, w := range idx.Warnings() {
		if w.Table == table && w.Kind == kind {
			return w.Count
		}
	}
	return 0
}

func TestLoader_SmallFeed(t *testing.T) {
	idx := loadFeed(t, testutil.SmallFeed())

	assert.Equal(t, Stats{Agencies: 2, Routes: 3, Trips: 4, Stops: 5, Shapes: 2}, idx.Stats())
	assert.Empty(t, idx.Warnings())

	r1, ok := idx.Routes().Get("R1")
	require.True(t, ok)
	assert.Equal(t, "ff0000", r1.Color)
	assert.Equal(t, "FFFFFF", r1.TextColor)
	assert.Equal(t, "A1", r1.AgencyID)

	tram, _ := idx.Routes().Get("R3")
	assert.Equal(t, 0, tram.RouteType, "tram route type must survive coercion")

	trip, _ := idx.Trips().Get("T3")
	assert.Equal(t, 1, trip.DirectionID)
	assert.Equal(t, "S2", trip.ShapeID)

	assert.Equal(t, []string{"T1", "T2", "T3"}, idx.TripsForRoute("R1").Items())
	assert.Equal(t, []string{"T4"}, idx.TripsForService("WE").Items())
	assert.ElementsMatch(t, []string{"ST1", "ST2", "ST3"}, idx.StopsForRoute("R1").Items())
	assert.Nil(t, idx.StopsForRoute("R3"))

	pier, _ := idx.Stops().Get("ST4")
	assert.Equal(t, 0, pier.WheelchairBoarding)
	assert.Equal(t, 43.21, pier.Lat)
}

func TestLoader_StopTimesSortedBySequence(t *testing.T) {
	idx := loadFeed(t, testutil.SmallFeed())

	sts := idx.StopTimes("T1")
	require.Len(t, sts, 3)
	var ids []string
	for _, st := range sts {
		ids = append(ids, st.StopID)
	}
	assert.Equal(t, []string{"ST1", "ST2", "ST3"}, ids)
	assert.Equal(t, "08:00:00", sts[0].Arrival)
}

func TestLoader_ShapesSortedBySequence(t *testing.T) {
	idx := loadFeed(t, testutil.SmallFeed())

	shape, ok := idx.Shapes().Get("S1")
	require.True(t, ok)
	require.Len(t, shape.Points, 3)
	assert.Equal(t, Waypoint{Latitude: 42.6977, Longitude: 23.3219}, shape.Points[0])
	assert.Equal(t, Waypoint{Latitude: 42.6950, Longitude: 23.4060}, shape.Points[2])
}

func TestLoader_ServicesByDate(t *testing.T) {
	idx := loadFeed(t, testutil.SmallFeed())

	assert.Equal(t, []string{
		"20240101", "20240102", "20240103", "20240104", "20240105", "20240106", "20240107",
	}, idx.Dates())
	assert.Equal(t, []string{"WD"}, idx.ServicesOn("20240102").Items())
	assert.ElementsMatch(t, []string{"WD", "WE"}, idx.ServicesOn("20240106").Items())
	assert.Equal(t, []string{"WE"}, idx.ServicesOn("20240107").Items())
	assert.Nil(t, idx.ServicesOn("20240108"))
}

func TestLoader_StopWithoutLatitudeIsDropped(t *testing.T) {
	feed := testutil.SmallFeed().With("stops.txt",
		"stop_id,stop_name,stop_lat,stop_lon\n"+
			"ST1,Central,42.6977,23.3219\n"+
			"BAD,Broken,,23.1\n"+
			"ST2,Museum,42.69,23.33\n")

	idx := loadFeed(t, feed)

	assert.False(t, idx.Stops().Has("BAD"))
	assert.Equal(t, 2, idx.Stops().Len())
	assert.Equal(t, 1, warningCount(idx, "stops.txt", WarningInvalidCoordinate))
}

func TestLoader_MissingRequiredFile(t *testing.T) {
	for _, name := range requiredFiles {
		t.Run(name, func(t *testing.T) {
			data := testutil.SmallFeed().Without(name).Zip(t)

			idx, err := NewFeedIndexFromBytes(context.Background(), data, Options{})

			assert.Nil(t, idx)
			var structural *StructuralError
			require.ErrorAs(t, err, &structural)
			assert.Equal(t, name, structural.File)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestLoader_OptionalFilesMissing(t *testing.T) {
	feed := testutil.SmallFeed().Without("shapes.txt").Without("calendar.txt").Without("calendar_dates.txt")

	idx := loadFeed(t, feed)

	assert.Equal(t, 0, idx.Shapes().Len())
	assert.Empty(t, idx.Dates())
	assert.Equal(t, 4, idx.Trips().Len())
}

func TestLoader_NestedFolderAndCase(t *testing.T) {
	nested := testutil.Feed{}
	for name, contents := range testutil.SmallFeed() {
		nested["google_transit/"+strings.ToUpper(name[:1])+name[1:]] = contents
	}

	idx := loadFeed(t, nested)

	assert.Equal(t, 3, idx.Routes().Len())
}

func TestLoader_NotAZip(t *testing.T) {
	idx, err := NewFeedIndexFromBytes(context.Background(), []byte("definitely not a zip"), Options{})

	assert.Nil(t, idx)
	require.Error(t, err)
	var structural *StructuralError
	assert.False(t, errors.As(err, &structural))
}

func TestLoader_RouteCoercion(t *testing.T) {
	feed := testutil.SmallFeed().With("routes.txt",
		"route_id,agency_id,route_short_name,route_long_name,route_type,route_color\n"+
			"R1,A1,1,,bus,GGGGGG\n"+
			"R2,A1,2,,99,12345\n"+
			"R3,A1,3,,1,\n"+
			"R3,A1,dup,,700,abcdef\n"+
			",A1,4,,3,\n"+
			"R5,NOPE,5,,11,\n")

	idx := loadFeed(t, feed)

	r1, _ := idx.Routes().Get("R1")
	r2, _ := idx.Routes().Get("R2")
	r3, _ := idx.Routes().Get("R3")
	r5, _ := idx.Routes().Get("R5")
	assert.Equal(t, DefaultRouteType, r1.RouteType)
	assert.Equal(t, DefaultRouteType, r2.RouteType)
	assert.Equal(t, 700, r3.RouteType)
	assert.Equal(t, 11, r5.RouteType)
	assert.Equal(t, "", r1.Color)
	assert.Equal(t, "", r2.Color)
	assert.Equal(t, "abcdef", r3.Color, "case is preserved")
	assert.Equal(t, "dup", r3.ShortName, "later row wins")
	assert.Equal(t, 4, idx.Routes().Len())
	var order []string
	for id := range idx.Routes().All() {
		order = append(order, id)
	}
	assert.Equal(t, []string{"R1", "R2", "R3", "R5"}, order)

	assert.Equal(t, 2, warningCount(idx, "routes.txt", WarningInvalidColor))
	assert.Equal(t, 1, warningCount(idx, "routes.txt", WarningDuplicateID))
	assert.Equal(t, 1, warningCount(idx, "routes.txt", WarningMissingID))
	assert.Equal(t, 1, warningCount(idx, "routes.txt", WarningMissingReference))
}

func TestLoader_DuplicateStopKeepsLaterRow(t *testing.T) {
	feed := testutil.SmallFeed().With("stops.txt",
		"stop_id,stop_name,stop_lat,stop_lon\n"+
			"ST1,Old Name,1,1\n"+
			"ST2,Museum,42.69,23.33\n"+
			"ST3,Airport,42.695,23.406\n"+
			"ST4,Pier,43.21,27.91\n"+
			"ST1,New Name,2,2\n")

	idx := loadFeed(t, feed)

	st1, ok := idx.Stops().Get("ST1")
	require.True(t, ok)
	assert.Equal(t, "New Name", st1.Name)
	assert.Equal(t, 2.0, st1.Lat)
	assert.Equal(t, 4, idx.Stops().Len())
	var order []string
	for id := range idx.Stops().All() {
		order = append(order, id)
	}
	assert.Equal(t, []string{"ST1", "ST2", "ST3", "ST4"}, order)
	assert.Equal(t, 1, warningCount(idx, "stops.txt", WarningDuplicateID))
}

func TestLoader_DuplicateTripMovesIndexes(t *testing.T) {
	feed := testutil.SmallFeed().With("trips.txt",
		"route_id,service_id,trip_id,trip_headsign,direction_id,shape_id\n"+
			"R1,WD,T1,Airport,0,S1\n"+
			"R1,WD,T2,Airport,0,S1\n"+
			"R1,WD,T3,Central,1,S2\n"+
			"R2,WE,T4,Harbour,0,\n"+
			"R1,WD,T4,Moved,0,\n")

	idx := loadFeed(t, feed)

	t4, ok := idx.Trips().Get("T4")
	require.True(t, ok)
	assert.Equal(t, "R1", t4.RouteID)
	assert.Equal(t, "Moved", t4.Headsign)
	assert.Equal(t, 4, idx.Trips().Len())
	assert.True(t, idx.TripsForRoute("R1").Has("T4"))
	assert.False(t, idx.TripsForRoute("R2").Has("T4"))
	assert.Equal(t, 0, idx.TripsForRoute("R2").Len())
	assert.True(t, idx.TripsForService("WD").Has("T4"))
	assert.False(t, idx.TripsForService("WE").Has("T4"))
	assert.True(t, idx.StopsForRoute("R1").Has("ST4"))
	assert.Equal(t, 0, idx.StopsForRoute("R2").Len())
	assert.Equal(t, 1, warningCount(idx, "trips.txt", WarningDuplicateID))
}

func TestLoader_StopTimesForUnknownTrip(t *testing.T) {
	feed := testutil.SmallFeed().With("stop_times.txt",
		"trip_id,arrival_time,departure_time,stop_id,stop_sequence\n"+
			"T1,08:00:00,08:00:00,ST1,1\n"+
			"GHOST,08:00:00,08:00:00,ST5,1\n")

	idx := loadFeed(t, feed)

	assert.Len(t, idx.StopTimes("T1"), 1)
	assert.Nil(t, idx.StopTimes("GHOST"))
	assert.Equal(t, 1, warningCount(idx, "stop_times.txt", WarningUnknownTrip))
}

func TestLoader_CalendarWarnings(t *testing.T) {
	feed := testutil.SmallFeed().
		With("calendar.txt", "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n"+
			"WD,1,1,1,1,1,0,0,20240101,20240107\n"+
			"BAD,1,1,1,1,1,1,1,2024-01-01,20240107\n").
		With("calendar_dates.txt", "service_id,date,exception_type\n"+
			"WD,20240106,3\n"+
			"WD,20240132,1\n")

	idx := loadFeed(t, feed)

	assert.Nil(t, idx.ServicesOn("20240106"))
	assert.Equal(t, 1, warningCount(idx, "calendar.txt", WarningInvalidDate))
	assert.Equal(t, 1, warningCount(idx, "calendar_dates.txt", WarningInvalidException))
	assert.Equal(t, 1, warningCount(idx, "calendar_dates.txt", WarningInvalidDate))
}

func TestLoader_NoCalendarRulesUsesToday(t *testing.T) {
	feed := testutil.SmallFeed().
		With("calendar.txt", "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n").
		With("calendar_dates.txt", "service_id,date,exception_type\nWD,20240110,1\n")

	idx := loadFeed(t, feed)

	assert.Equal(t, []string{"20240110"}, idx.Dates())
}

func TestLoader_ProgressStream(t *testing.T) {
	var updates []Progress
	opts := Options{Now: fixedNow, ChunkRows: 2, Progress: func(p Progress) { updates = append(updates, p) }}

	_, err := NewFeedIndexFromBytes(context.Background(), testutil.SmallFeed().Zip(t), opts)
	require.NoError(t, err)
	require.NotEmpty(t, updates)

	assert.Equal(t, Progress{Phase: PhaseExtract, Percent: 0, Total: 0}, updates[0])
	assert.Equal(t, 100, updates[len(updates)-1].Total)

	var completed []Phase
	chunks := 0
	for i, u := range updates {
		if i > 0 {
			assert.GreaterOrEqual(t, u.Total, updates[i-1].Total, "total must not decrease")
		}
		assert.LessOrEqual(t, u.Total, 100)
		if u.Percent == 100 {
			completed = append(completed, u.Phase)
		}
		if u.Phase == PhaseStopTimes && u.Percent > 0 && u.Percent < 100 {
			chunks++
		}
	}
	assert.Equal(t, Phases, completed, "each phase completes once, in order")
	assert.Positive(t, chunks, "stop_times reports intermediate chunks")
}

func TestLoader_PhaseWeightsSumTo100(t *testing.T) {
	sum := 0
	for _, p := range Phases {
		sum += p.Weight()
	}
	assert.Equal(t, 100, sum)
}

func TestLoader_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	idx, err := NewFeedIndexFromBytes(ctx, testutil.SmallFeed().Zip(t), Options{})

	assert.Nil(t, idx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_CancelledBetweenPhases(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var phases []Phase
	opts := Options{Progress: func(p Progress) {
		phases = append(phases, p.Phase)
		if p.Phase == PhaseTrips && p.Percent == 100 {
			cancel()
		}
	}}

	idx, err := NewFeedIndexFromBytes(ctx, testutil.SmallFeed().Zip(t), opts)

	assert.Nil(t, idx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, phases, PhaseStopTimes)
}

func TestLoader_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.zip")
	require.NoError(t, os.WriteFile(path, testutil.SmallFeed().Zip(t), 0o600))

	idx, err := NewFeedIndexFromFile(context.Background(), path, Options{Now: fixedNow})
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Trips().Len())

	_, err = NewFeedIndexFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.zip"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
