package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}
}

func TestPointInPolygon(t *testing.T) {
	sq := square(0, 0, 10, 10)
	withHole := orb.Polygon{sq[0], {{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}}}
	multi := orb.MultiPolygon{square(0, 0, 1, 1), square(20, 20, 30, 30)}
	triangle := orb.Polygon{{{0, 0}, {10, 0}, {5, 10}}}

	tests := []struct {
		name  string
		point orb.Point
		geom  orb.Geometry
		want  bool
	}{
		{"inside square", orb.Point{5, 5}, sq, true},
		{"outside square", orb.Point{15, 5}, sq, false},
		{"left of square", orb.Point{-1, 5}, sq, false},
		{"above square", orb.Point{5, 11}, sq, false},
		{"hole is not subtracted", orb.Point{5, 5}, withHole, true},
		{"multipolygon second member", orb.Point{25, 25}, multi, true},
		{"multipolygon first member", orb.Point{0.5, 0.5}, multi, true},
		{"multipolygon neither", orb.Point{10, 10}, multi, false},
		{"open triangle ring", orb.Point{5, 3}, triangle, true},
		{"outside triangle", orb.Point{1, 8}, triangle, false},
		{"bare ring", orb.Point{5, 5}, sq[0], true},
		{"collection", orb.Point{25, 25}, orb.Collection{sq, square(20, 20, 30, 30)}, true},
		{"empty polygon", orb.Point{0, 0}, orb.Polygon{}, false},
		{"point geometry", orb.Point{5, 5}, orb.Point{5, 5}, false},
		{"nil geometry", orb.Point{5, 5}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PointInPolygon(tt.point, tt.geom))
		})
	}
}

func TestPointInPolygon_LonLatOrder(t *testing.T) {
	// Sofia city centre, lon first.
	area := square(23.2, 42.6, 23.4, 42.8)
	assert.True(t, PointInPolygon(orb.Point{23.3219, 42.6977}, area))
	assert.False(t, PointInPolygon(orb.Point{42.6977, 23.3219}, area))
}

func TestAnyContains(t *testing.T) {
	geoms := []orb.Geometry{square(0, 0, 1, 1), square(5, 5, 6, 6)}
	assert.True(t, AnyContains(geoms, orb.Point{5.5, 5.5}))
	assert.False(t, AnyContains(geoms, orb.Point{3, 3}))
	assert.False(t, AnyContains(nil, orb.Point{0.5, 0.5}))
}
