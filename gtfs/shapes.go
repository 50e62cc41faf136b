package gtfs

import (
	"math"
)

// LengthKM returns the length of the polyline in kilometers.
func (s *Shape) LengthKM() float64 {
	if s == nil {
		return 0
	}
	km := 0.0
	for i := 1; i < len(s.Points); i++ {
		p, q := s.Points[i-1], s.Points[i]
		km += HaversineKM(p.Latitude, p.Longitude, q.Latitude, q.Longitude)
	}
	return km
}

// TripLengthKM returns the length of a trip, measured along its shape when it
// has one and stop to stop otherwise. Stops without coordinates are skipped.
func (g *FeedIndex) TripLengthKM(tripID string) float64 {
	trip, ok := g.trips.Get(tripID)
	if !ok {
		return 0
	}
	if shape, ok := g.shapes.Get(trip.ShapeID); ok && len(shape.Points) > 1 {
		return shape.LengthKM()
	}

	km := 0.0
	var prev *Stop
	for _, st := range g.stopTimesByTrip[tripID] {
		stop, ok := g.stops.Get(st.StopID)
		if !ok {
			continue
		}
		if prev != nil {
			km += HaversineKM(prev.Lat, prev.Lon, stop.Lat, stop.Lon)
		}
		prev = stop
	}
	return km
}

// Helpers

func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	la1 := lat1 * math.Pi / 180
	la2 := lat2 * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(la1)*math.Cos(la2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
