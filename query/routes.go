package query

import (
	"slices"
	"sort"
	"time"

	"github.com/theoremus-urban-solutions/gtfs-explorer/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-explorer/store"
)

// RouteFilter narrows ListRoutes. Zero values apply no restriction.
type RouteFilter struct {
	FeedID     int
	AgencyIDs  []string
	RouteTypes []int
	Date       string // YYYYMMDD
}

type RouteResult struct {
	gtfs.Route
	FeedRef
}

// ListRoutes returns the routes matching f in feed order. With a date, a
// feed without service that day is skipped and a route is kept only when one
// of its trips runs that day.
func (e *Engine) ListRoutes(f RouteFilter) []RouteResult {
	defer e.observe("routes", time.Now())

	out := []RouteResult{}
	for _, feed := range e.store.Scope(f.FeedID) {
		idx := feed.Index
		var active *gtfs.Set
		if f.Date != "" {
			active = idx.ServicesOn(f.Date)
			if active.Len() == 0 {
				continue
			}
		}
		ref := refOf(feed)
		for _, r := range idx.Routes().All() {
			if len(f.AgencyIDs) > 0 && !slices.Contains(f.AgencyIDs, r.AgencyID) {
				continue
			}
			if len(f.RouteTypes) > 0 && !slices.Contains(f.RouteTypes, r.RouteType) {
				continue
			}
			if active != nil && !routeRunsOn(idx, r.RouteID, active) {
				continue
			}
			out = append(out, RouteResult{Route: *r, FeedRef: ref})
		}
	}
	return out
}

func routeRunsOn(idx *gtfs.FeedIndex, routeID string, active *gtfs.Set) bool {
	for _, tripID := range idx.TripsForRoute(routeID).Items() {
		if t, ok := idx.Trips().Get(tripID); ok && active.Has(t.ServiceID) {
			return true
		}
	}
	return false
}

// Variant is one (direction, shape) pattern of a route.
type Variant struct {
	DirectionID  int             `json:"direction_id"`
	ShapeID      string          `json:"shape_id,omitempty"`
	TripCount    int             `json:"trip_count"`
	SampleTripID string          `json:"sample_trip_id"`
	Headsign     string          `json:"headsign"`
	LengthKM     float64         `json:"length_km"`
	Coordinates  []gtfs.Waypoint `json:"coordinates,omitempty"`
	Stops        []gtfs.Stop     `json:"stops"`
}

// RouteDetails is a route with its variants, most frequent first.
type RouteDetails struct {
	gtfs.Route
	FeedRef
	Variants []Variant `json:"variants"`
}

type variantKey struct {
	direction int
	shape     string
}

// GetRouteDetails groups the trips of routeID by (direction, shape). With a
// date only trips running that day are counted; each variant's stops are the
// stops of every trip of the route sharing its pattern. ok is false when the
// feed or route does not exist. Results are cached and must not be modified.
func (e *Engine) GetRouteDetails(feedID int, routeID, date string) (*RouteDetails, bool) {
	defer e.observe("route_details", time.Now())

	feed, ok := e.store.Get(feedID)
	if !ok {
		return nil, false
	}
	key := feed.ImportID.String() + "|" + routeID + "|" + date
	if e.details != nil {
		if cached, err := e.details.Get(key); err == nil {
			if d, ok := cached.(*RouteDetails); ok {
				return d, true
			}
		}
	}

	d, ok := buildRouteDetails(feed, routeID, date)
	if !ok {
		return nil, false
	}
	if e.details != nil {
		_ = e.details.Set(key, d)
	}
	return d, true
}

func buildRouteDetails(feed *store.Feed, routeID, date string) (*RouteDetails, bool) {
	idx := feed.Index
	route, ok := idx.Routes().Get(routeID)
	if !ok {
		return nil, false
	}
	d := &RouteDetails{Route: *route, FeedRef: refOf(feed), Variants: []Variant{}}

	tripIDs := idx.TripsForRoute(routeID)
	var active *gtfs.Set
	if date != "" {
		active = idx.ServicesOn(date)
		if active.Len() == 0 {
			return d, true
		}
	}

	var order []variantKey
	byKey := map[variantKey]*Variant{}
	for _, tripID := range tripIDs.Items() {
		t, ok := idx.Trips().Get(tripID)
		if !ok || (active != nil && !active.Has(t.ServiceID)) {
			continue
		}
		k := variantKey{t.DirectionID, t.ShapeID}
		v, seen := byKey[k]
		if !seen {
			v = &Variant{DirectionID: t.DirectionID, ShapeID: t.ShapeID, SampleTripID: tripID, Headsign: t.Headsign}
			byKey[k] = v
			order = append(order, k)
		}
		v.TripCount++
	}

	for _, k := range order {
		v := byKey[k]
		if shape, ok := idx.Shapes().Get(v.ShapeID); ok {
			v.Coordinates = shape.Points
		}
		v.LengthKM = idx.TripLengthKM(v.SampleTripID)
		v.Stops = variantStops(idx, tripIDs, k)
		d.Variants = append(d.Variants, *v)
	}
	sort.SliceStable(d.Variants, func(i, j int) bool {
		return d.Variants[i].TripCount > d.Variants[j].TripCount
	})
	return d, true
}

func variantStops(idx *gtfs.FeedIndex, tripIDs *gtfs.Set, k variantKey) []gtfs.Stop {
	seen := gtfs.NewSet()
	for _, tripID := range tripIDs.Items() {
		t, ok := idx.Trips().Get(tripID)
		if !ok || t.DirectionID != k.direction || t.ShapeID != k.shape {
			continue
		}
		for _, st := range idx.StopTimes(tripID) {
			seen.Add(st.StopID)
		}
	}
	stops := make([]gtfs.Stop, 0, seen.Len())
	for _, id := range seen.Items() {
		if s, ok := idx.Stops().Get(id); ok {
			stops = append(stops, *s)
		}
	}
	return stops
}
