package query

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/gtfs-explorer/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-explorer/internal/testutil"
	"github.com/theoremus-urban-solutions/gtfs-explorer/store"
)

func buildIndex(t *testing.T, feed testutil.Feed) *gtfs.FeedIndex {
	t.Helper()
	idx, err := gtfs.NewFeedIndexFromBytes(context.Background(), feed.Zip(t), gtfs.Options{})
	require.NoError(t, err)
	return idx
}

func newEngine(t *testing.T, names ...string) (*Engine, *store.Store) {
	t.Helper()
	s := store.New()
	for _, name := range names {
		s.Add(name, buildIndex(t, testutil.SmallFeed()), store.Metadata{SourceType: store.SourceBytes})
	}
	return NewEngine(s), s
}

func routeIDs(rs []RouteResult) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.RouteID)
	}
	return out
}

func stopIDs(ss []StopResult) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.StopID)
	}
	return out
}

func TestListAgencies(t *testing.T) {
	e, _ := newEngine(t, "metro", "copy")

	all := e.ListAgencies(0)
	require.Len(t, all, 4)
	assert.Equal(t, FeedRef{FeedID: 1, FeedName: "metro"}, all[0].FeedRef)
	assert.Equal(t, "A1", all[0].AgencyID)
	assert.Equal(t, FeedRef{FeedID: 2, FeedName: "copy"}, all[3].FeedRef)

	one := e.ListAgencies(2)
	require.Len(t, one, 2)
	assert.Equal(t, 2, one[0].FeedID)

	assert.Empty(t, e.ListAgencies(42))
	assert.NotNil(t, e.ListAgencies(42))
}

func TestListRoutes(t *testing.T) {
	e, _ := newEngine(t, "metro")

	tests := []struct {
		name   string
		filter RouteFilter
		want   []string
	}{
		{"no filter", RouteFilter{}, []string{"R1", "R2", "R3"}},
		{"agency", RouteFilter{AgencyIDs: []string{"A2"}}, []string{"R2"}},
		{"route type tram", RouteFilter{RouteTypes: []int{0}}, []string{"R3"}},
		{"route types bus or ferry", RouteFilter{RouteTypes: []int{3, 4}}, []string{"R1", "R2"}},
		{"weekday", RouteFilter{Date: "20240102"}, []string{"R1"}},
		{"sunday", RouteFilter{Date: "20240107"}, []string{"R2"}},
		{"saturday with added service", RouteFilter{Date: "20240106"}, []string{"R1", "R2"}},
		{"date without service", RouteFilter{Date: "20250101"}, []string{}},
		{"agency and date", RouteFilter{AgencyIDs: []string{"A1"}, Date: "20240107"}, []string{}},
		{"unknown feed", RouteFilter{FeedID: 9}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, routeIDs(e.ListRoutes(tt.filter)))
		})
	}
}

func TestListRoutes_AcrossFeeds(t *testing.T) {
	e, _ := newEngine(t, "a", "b")

	routes := e.ListRoutes(RouteFilter{Date: "20240107"})
	require.Len(t, routes, 2)
	assert.Equal(t, "a", routes[0].FeedName)
	assert.Equal(t, "b", routes[1].FeedName)
}

func TestGetRouteDetails_Variants(t *testing.T) {
	e, _ := newEngine(t, "metro")

	d, ok := e.GetRouteDetails(1, "R1", "")
	require.True(t, ok)
	assert.Equal(t, "R1", d.RouteID)
	assert.Equal(t, "metro", d.FeedName)
	require.Len(t, d.Variants, 2)

	main := d.Variants[0]
	assert.Equal(t, 2, main.TripCount)
	assert.Equal(t, "S1", main.ShapeID)
	assert.Equal(t, 0, main.DirectionID)
	assert.Equal(t, "T1", main.SampleTripID)
	assert.Equal(t, "Airport", main.Headsign)
	assert.Len(t, main.Coordinates, 3)
	assert.Greater(t, main.LengthKM, 0.0)

	var ids []string
	for _, s := range main.Stops {
		ids = append(ids, s.StopID)
	}
	assert.Equal(t, []string{"ST1", "ST2", "ST3"}, ids)

	back := d.Variants[1]
	assert.Equal(t, 1, back.TripCount)
	assert.Equal(t, 1, back.DirectionID)
	assert.Len(t, back.Stops, 2)
}

func TestGetRouteDetails_TripCountsMatchFilter(t *testing.T) {
	e, s := newEngine(t, "metro")
	feed, _ := s.Get(1)

	for _, date := range []string{"", "20240102", "20240106", "20240107", "20991231"} {
		for _, routeID := range []string{"R1", "R2", "R3"} {
			d, ok := e.GetRouteDetails(1, routeID, date)
			require.True(t, ok)

			want := 0
			active := feed.Index.ServicesOn(date)
			for _, tripID := range feed.Index.TripsForRoute(routeID).Items() {
				trip, _ := feed.Index.Trips().Get(tripID)
				if date == "" || active.Has(trip.ServiceID) {
					want++
				}
			}
			got := 0
			for i, v := range d.Variants {
				got += v.TripCount
				if i > 0 {
					assert.LessOrEqual(t, v.TripCount, d.Variants[i-1].TripCount)
				}
			}
			assert.Equal(t, want, got, "route %s date %q", routeID, date)
		}
	}
}

func TestGetRouteDetails_NoService(t *testing.T) {
	e, _ := newEngine(t, "metro")

	d, ok := e.GetRouteDetails(1, "R1", "20240107")
	require.True(t, ok)
	assert.NotNil(t, d.Variants)
	assert.Empty(t, d.Variants)

	d, ok = e.GetRouteDetails(1, "R3", "")
	require.True(t, ok)
	assert.Empty(t, d.Variants)
}

func TestGetRouteDetails_NotFound(t *testing.T) {
	e, _ := newEngine(t, "metro")

	_, ok := e.GetRouteDetails(1, "NOPE", "")
	assert.False(t, ok)
	_, ok = e.GetRouteDetails(5, "R1", "")
	assert.False(t, ok)
}

func TestGetRouteDetails_CacheFollowsImport(t *testing.T) {
	e, s := newEngine(t, "metro")

	first, _ := e.GetRouteDetails(1, "R1", "")
	again, _ := e.GetRouteDetails(1, "R1", "")
	assert.Same(t, first, again)

	other, _ := e.GetRouteDetails(1, "R1", "20240102")
	assert.NotSame(t, first, other)

	s.Clear()
	s.Add("replacement", buildIndex(t, testutil.SmallFeed()), store.Metadata{})
	fresh, ok := e.GetRouteDetails(1, "R1", "")
	require.True(t, ok)
	assert.NotSame(t, first, fresh)
	assert.Equal(t, "replacement", fresh.FeedName)
}

func TestGetRouteDetails_NoCache(t *testing.T) {
	s := store.New()
	s.Add("metro", buildIndex(t, testutil.SmallFeed()), store.Metadata{})
	for _, size := range []int{0, -1} {
		e := NewEngine(s, WithCacheSize(size))

		a, _ := e.GetRouteDetails(1, "R1", "")
		b, _ := e.GetRouteDetails(1, "R1", "")
		assert.NotSame(t, a, b, "size %d", size)
		assert.Equal(t, a, b)
	}
}

func TestListStops(t *testing.T) {
	e, _ := newEngine(t, "metro")
	centre := orb.Polygon{{{23.30, 42.68}, {23.34, 42.68}, {23.34, 42.71}, {23.30, 42.71}, {23.30, 42.68}}}
	harbour := orb.MultiPolygon{
		{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}},
		{{{27.8, 43.1}, {28.0, 43.1}, {28.0, 43.3}, {27.8, 43.3}, {27.8, 43.1}}},
	}

	tests := []struct {
		name   string
		filter StopFilter
		want   []string
	}{
		{"all", StopFilter{}, []string{"ST1", "ST2", "ST3", "ST4", "ST5"}},
		{"route", StopFilter{RouteID: "R1"}, []string{"ST2", "ST1", "ST3"}},
		{"route without trips", StopFilter{RouteID: "R3"}, []string{}},
		{"date", StopFilter{Date: "20240107"}, []string{"ST4"}},
		{"route wins over date", StopFilter{RouteID: "R1", Date: "20240107"}, []string{"ST2", "ST1", "ST3"}},
		{"date without service", StopFilter{Date: "20300101"}, []string{}},
		{"polygon", StopFilter{Polygons: []orb.Geometry{centre}}, []string{"ST1", "ST2"}},
		{"multipolygon second member", StopFilter{Polygons: []orb.Geometry{harbour}}, []string{"ST4"}},
		{"any polygon", StopFilter{Polygons: []orb.Geometry{centre, harbour}}, []string{"ST1", "ST2", "ST4"}},
		{"route and polygon", StopFilter{RouteID: "R2", Polygons: []orb.Geometry{centre}}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stopIDs(e.ListStops(tt.filter)))
		})
	}
}

func TestListStops_DropsStopsMissingCoordinates(t *testing.T) {
	s := store.New()
	feed := testutil.SmallFeed().With("stops.txt",
		"stop_id,stop_name,stop_lat,stop_lon\nST1,Central,42.6977,23.3219\nBAD,Broken,,23.1\n")
	s.Add("metro", buildIndex(t, feed), store.Metadata{})

	assert.Equal(t, []string{"ST1"}, stopIDs(NewEngine(s).ListStops(StopFilter{})))
}

func TestListAvailableDates(t *testing.T) {
	s := store.New()
	s.Add("week", buildIndex(t, testutil.SmallFeed()), store.Metadata{})
	later := testutil.SmallFeed().
		With("calendar.txt", "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n"+
			"WD,1,0,0,0,0,0,0,20240105,20240108\n").
		With("calendar_dates.txt", "service_id,date,exception_type\n")
	s.Add("later", buildIndex(t, later), store.Metadata{})
	e := NewEngine(s)

	assert.Equal(t, []string{
		"20240101", "20240102", "20240103", "20240104", "20240105", "20240106", "20240107", "20240108",
	}, e.ListAvailableDates(0))
	assert.Equal(t, []string{"20240108"}, e.ListAvailableDates(2))
	assert.Empty(t, e.ListAvailableDates(3))
}

func TestFeedIsolation(t *testing.T) {
	e, s := newEngine(t, "a", "b")

	before := e.ListStops(StopFilter{FeedID: 2, Date: "20240102"})
	routesBefore := e.ListRoutes(RouteFilter{FeedID: 2})
	detailsBefore, _ := e.GetRouteDetails(2, "R1", "")

	require.True(t, s.Remove(1))

	assert.Equal(t, before, e.ListStops(StopFilter{FeedID: 2, Date: "20240102"}))
	assert.Equal(t, routesBefore, e.ListRoutes(RouteFilter{FeedID: 2}))
	detailsAfter, _ := e.GetRouteDetails(2, "R1", "")
	assert.Equal(t, detailsBefore, detailsAfter)
	assert.Empty(t, e.ListRoutes(RouteFilter{FeedID: 1}))
}

type recordingMetrics struct {
	mu  sync.Mutex
	ops []string
}

func (m *recordingMetrics) ObserveQuery(op string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
}

func TestEngine_ObservesQueries(t *testing.T) {
	s := store.New()
	m := &recordingMetrics{}
	e := NewEngine(s, WithMetrics(m), WithCacheTTL(time.Minute))

	e.ListAgencies(0)
	e.ListRoutes(RouteFilter{})
	e.ListStops(StopFilter{})
	e.GetRouteDetails(1, "R1", "")
	e.ListAvailableDates(0)

	assert.Equal(t, []string{"agencies", "routes", "stops", "route_details", "dates"}, m.ops)
}
