// Package geo implements the point-in-polygon test used to filter stops and
// the decoding of polygon areas from GeoJSON and KML documents.
package geo

import (
	"github.com/paulmach/orb"
)

// PointInPolygon reports whether p ([lon, lat]) lies inside g. Polygons are
// tested against their exterior ring only, so holes are not subtracted; a
// MultiPolygon or Collection matches when any member does. Other geometry
// types never contain a point. Points exactly on an edge may go either way.
func PointInPolygon(p orb.Point, g orb.Geometry) bool {
	switch g := g.(type) {
	case orb.Polygon:
		if len(g) == 0 {
			return false
		}
		return ringContains(g[0], p)
	case orb.Ring:
		return ringContains(g, p)
	case orb.MultiPolygon:
		for _, poly := range g {
			if PointInPolygon(p, poly) {
				return true
			}
		}
	case orb.Collection:
		for _, member := range g {
			if PointInPolygon(p, member) {
				return true
			}
		}
	}
	return false
}

// AnyContains reports whether p lies inside at least one of geoms.
func AnyContains(geoms []orb.Geometry, p orb.Point) bool {
	for _, g := range geoms {
		if PointInPolygon(p, g) {
			return true
		}
	}
	return false
}

// ringContains is the classic even-odd ray cast towards +x. Edges use the
// half-open rule (yi > y) != (yj > y), so horizontal edges never count.
func ringContains(ring orb.Ring, p orb.Point) bool {
	x, y := p[0], p[1]
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
