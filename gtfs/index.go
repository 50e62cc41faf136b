package gtfs

import (
	"sort"
)

// FeedIndex is the index bundle of one imported feed. It is built once by the
// loader and never modified afterwards, so it is safe for concurrent reads.
// Slices and sets returned by accessors are shared and must not be modified.
type FeedIndex struct {
	agencies *Table[Agency]
	routes   *Table[Route]
	trips    *Table[Trip]
	stops    *Table[Stop]
	shapes   *Table[Shape]

	tripsByRoute    map[string]*Set       // route_id -> trip_ids
	tripsByService  map[string]*Set       // service_id -> trip_ids
	stopsByRoute    map[string]*Set       // route_id -> stop_ids
	stopTimesByTrip map[string][]StopTime // trip_id -> stop times by sequence
	servicesByDate  map[string]*Set       // YYYYMMDD -> service_ids

	warnings []RowWarning
}

func newFeedIndex() *FeedIndex {
	return &FeedIndex{
		agencies:        newTable[Agency](),
		routes:          newTable[Route](),
		trips:           newTable[Trip](),
		stops:           newTable[Stop](),
		shapes:          newTable[Shape](),
		tripsByRoute:    map[string]*Set{},
		tripsByService:  map[string]*Set{},
		stopsByRoute:    map[string]*Set{},
		stopTimesByTrip: map[string][]StopTime{},
		servicesByDate:  map[string]*Set{},
	}
}

// Entity tables

func (g *FeedIndex) Agencies() *Table[Agency] { return g.agencies }

func (g *FeedIndex) Routes() *Table[Route] { return g.routes }

func (g *FeedIndex) Trips() *Table[Trip] { return g.trips }

func (g *FeedIndex) Stops() *Table[Stop] { return g.stops }

func (g *FeedIndex) Shapes() *Table[Shape] { return g.shapes }

// Relational indexes

// TripsForRoute returns the trip ids of routeID, or nil.
func (g *FeedIndex) TripsForRoute(routeID string) *Set { return g.tripsByRoute[routeID] }

// TripsForService returns the trip ids running under serviceID, or nil.
func (g *FeedIndex) TripsForService(serviceID string) *Set { return g.tripsByService[serviceID] }

// StopsForRoute returns the stops visited by any trip of routeID, or nil.
func (g *FeedIndex) StopsForRoute(routeID string) *Set { return g.stopsByRoute[routeID] }

// StopTimes returns the stop times of tripID ordered by stop_sequence.
func (g *FeedIndex) StopTimes(tripID string) []StopTime { return g.stopTimesByTrip[tripID] }

// ServicesOn returns the services active on date (YYYYMMDD), or nil when
// nothing runs that day.
func (g *FeedIndex) ServicesOn(date string) *Set { return g.servicesByDate[date] }

// Dates returns every date with at least one active service, sorted.
func (g *FeedIndex) Dates() []string {
	out := make([]string, 0, len(g.servicesByDate))
	for d := range g.servicesByDate {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Stats returns entity counts.
func (g *FeedIndex) Stats() Stats {
	return Stats{
		Agencies: g.agencies.Len(),
		Routes:   g.routes.Len(),
		Trips:    g.trips.Len(),
		Stops:    g.stops.Len(),
		Shapes:   g.shapes.Len(),
	}
}

// Warnings returns the row warnings aggregated during ingestion.
func (g *FeedIndex) Warnings() []RowWarning { return g.warnings }
