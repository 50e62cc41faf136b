package query

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/theoremus-urban-solutions/gtfs-explorer/geo"
	"github.com/theoremus-urban-solutions/gtfs-explorer/gtfs"
)

// StopFilter narrows ListStops. RouteID and Date both select candidate
// stops; when both are set RouteID wins and Date is ignored.
type StopFilter struct {
	FeedID   int
	RouteID  string
	Date     string // YYYYMMDD
	Polygons []orb.Geometry
}

type StopResult struct {
	gtfs.Stop
	FeedRef
}

// ListStops returns the stops matching f. Candidates come from the route's
// stops, else from every trip running on Date, else from the whole feed; a
// polygon filter then keeps stops inside any of the polygons.
func (e *Engine) ListStops(f StopFilter) []StopResult {
	defer e.observe("stops", time.Now())

	out := []StopResult{}
	for _, feed := range e.store.Scope(f.FeedID) {
		idx := feed.Index
		ref := refOf(feed)
		keep := func(s *gtfs.Stop) {
			if len(f.Polygons) > 0 && !geo.AnyContains(f.Polygons, orb.Point{s.Lon, s.Lat}) {
				return
			}
			out = append(out, StopResult{Stop: *s, FeedRef: ref})
		}

		candidates, all := stopCandidates(idx, f)
		if all {
			for _, s := range idx.Stops().All() {
				keep(s)
			}
			continue
		}
		for _, id := range candidates.Items() {
			if s, ok := idx.Stops().Get(id); ok {
				keep(s)
			}
		}
	}
	return out
}

// stopCandidates returns the candidate stop ids of one feed, or all=true when
// no route or date narrows the selection.
func stopCandidates(idx *gtfs.FeedIndex, f StopFilter) (candidates *gtfs.Set, all bool) {
	switch {
	case f.RouteID != "":
		return idx.StopsForRoute(f.RouteID), false
	case f.Date != "":
		ids := gtfs.NewSet()
		for _, serviceID := range idx.ServicesOn(f.Date).Items() {
			for _, tripID := range idx.TripsForService(serviceID).Items() {
				for _, st := range idx.StopTimes(tripID) {
					ids.Add(st.StopID)
				}
			}
		}
		return ids, false
	}
	return nil, true
}
