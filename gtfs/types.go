package gtfs

import "iter"

// Waypoint represents a geographical coordinate
type Waypoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

type Agency struct {
	AgencyID string `json:"agency_id" csv:"agency_id"`
	Name     string `json:"agency_name" csv:"agency_name"`
	URL      string `json:"agency_url" csv:"agency_url"`
	Timezone string `json:"agency_timezone" csv:"agency_timezone"`
}

type Route struct {
	RouteID   string `json:"route_id"`
	AgencyID  string `json:"agency_id"`
	ShortName string `json:"route_short_name"`
	LongName  string `json:"route_long_name"`
	RouteType int    `json:"route_type"`
	Color     string `json:"route_color,omitempty"`
	TextColor string `json:"route_text_color,omitempty"`
}

type Trip struct {
	TripID      string `json:"trip_id"`
	RouteID     string `json:"route_id"`
	ServiceID   string `json:"service_id"`
	DirectionID int    `json:"direction_id"`
	ShapeID     string `json:"shape_id,omitempty"`
	Headsign    string `json:"trip_headsign"`
}

type Stop struct {
	StopID             string  `json:"stop_id" csv:"stop_id"`
	Code               string  `json:"stop_code" csv:"stop_code"`
	Name               string  `json:"stop_name" csv:"stop_name"`
	Lat                float64 `json:"stop_lat" csv:"stop_lat"`
	Lon                float64 `json:"stop_lon" csv:"stop_lon"`
	WheelchairBoarding int     `json:"wheelchair_boarding" csv:"wheelchair_boarding"`
}

// Shape is an ordered polyline; points are sorted by shape_pt_sequence.
type Shape struct {
	ShapeID string     `json:"shape_id"`
	Points  []Waypoint `json:"points"`
}

// StopTime is kept only inside the per-trip list of a FeedIndex.
type StopTime struct {
	StopID    string `json:"stop_id"`
	Sequence  int    `json:"stop_sequence"`
	Arrival   string `json:"arrival_time"`
	Departure string `json:"departure_time"`
}

// Stats summarises the entity tables of one feed.
type Stats struct {
	Agencies int `json:"agency_count"`
	Routes   int `json:"route_count"`
	Trips    int `json:"trip_count"`
	Stops    int `json:"stop_count"`
	Shapes   int `json:"shape_count"`
}

// Route types known to GTFS (basic and extended). Anything else is coerced
// to DefaultRouteType.
const DefaultRouteType = 3

func isKnownRouteType(t int) bool {
	switch {
	case t >= 0 && t <= 7, t == 11, t == 12:
		return true
	case t >= 100 && t <= 1799:
		return true
	}
	return false
}

// Table is an id-keyed entity table that remembers source row order.
type Table[T any] struct {
	byID map[string]*T
	ids  []string
}

func newTable[T any]() *Table[T] {
	return &Table[T]{byID: make(map[string]*T)}
}

// insert stores v under id. A repeated id replaces the stored value but keeps
// the position of its first occurrence; insert reports whether id was new.
func (t *Table[T]) insert(id string, v T) bool {
	_, seen := t.byID[id]
	t.byID[id] = &v
	if !seen {
		t.ids = append(t.ids, id)
	}
	return !seen
}

// Get returns the entity for id. The returned pointer must not be modified.
func (t *Table[T]) Get(id string) (*T, bool) {
	v, ok := t.byID[id]
	return v, ok
}

func (t *Table[T]) Has(id string) bool {
	_, ok := t.byID[id]
	return ok
}

func (t *Table[T]) Len() int { return len(t.ids) }

// All yields entities in source order.
func (t *Table[T]) All() iter.Seq2[string, *T] {
	return func(yield func(string, *T) bool) {
		for _, id := range t.ids {
			if !yield(id, t.byID[id]) {
				return
			}
		}
	}
}

// Set is an insertion-ordered set of ids.
type Set struct {
	index map[string]struct{}
	items []string
}

func NewSet(ids ...string) *Set {
	s := &Set{index: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s *Set) Add(id string) {
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = struct{}{}
	s.items = append(s.items, id)
}

func (s *Set) Remove(id string) {
	if _, ok := s.index[id]; !ok {
		return
	}
	delete(s.index, id)
	for i, v := range s.items {
		if v == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
}

func (s *Set) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns the ids in insertion order. The slice is shared and must not
// be modified.
func (s *Set) Items() []string {
	if s == nil {
		return nil
	}
	return s.items
}

func (s *Set) Clone() *Set {
	return NewSet(s.Items()...)
}

// Equal reports whether both sets hold the same ids, ignoring order.
func (s *Set) Equal(o *Set) bool {
	if s.Len() != o.Len() {
		return false
	}
	for _, id := range s.Items() {
		if !o.Has(id) {
			return false
		}
	}
	return true
}
