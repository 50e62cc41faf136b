package geo

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrNoPolygons is returned when a document holds no polygon geometry.
var ErrNoPolygons = errors.New("no polygon geometries found")

// Area is a named polygon or multipolygon used as a stop filter.
type Area struct {
	Name     string       `json:"name"`
	Geometry orb.Geometry `json:"-"`
}

// MarshalJSON renders the area as a GeoJSON feature.
func (a Area) MarshalJSON() ([]byte, error) {
	f := geojson.NewFeature(a.Geometry)
	f.Properties["name"] = a.Name
	return f.MarshalJSON()
}

// Geometries returns the geometries of areas, in order.
func Geometries(areas []Area) []orb.Geometry {
	out := make([]orb.Geometry, 0, len(areas))
	for _, a := range areas {
		out = append(out, a.Geometry)
	}
	return out
}

// ParseGeoJSON decodes a FeatureCollection, a Feature, or a bare Polygon or
// MultiPolygon. Non-polygon features are skipped. Areas are named after the
// feature's "name" (or "Name") property, falling back to fallbackName with a
// 1-based suffix after the first.
func ParseGeoJSON(data []byte, fallbackName string) ([]Area, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	var features []*geojson.Feature
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature collection: %w", err)
		}
		features = fc.Features
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		features = []*geojson.Feature{f}
	case "Polygon", "MultiPolygon":
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
		features = []*geojson.Feature{geojson.NewFeature(g.Geometry())}
	default:
		return nil, fmt.Errorf("unsupported geojson type %q", head.Type)
	}

	var areas []Area
	for _, f := range features {
		if f == nil || !isPolygonal(f.Geometry) {
			continue
		}
		name := propString(f.Properties, "name")
		if name == "" {
			name = propString(f.Properties, "Name")
		}
		if name == "" {
			name = fallbackName
			if len(areas) > 0 {
				name += " " + strconv.Itoa(len(areas)+1)
			}
		}
		areas = append(areas, Area{Name: name, Geometry: f.Geometry})
	}
	if len(areas) == 0 {
		return nil, ErrNoPolygons
	}
	return areas, nil
}

func propString(p geojson.Properties, key string) string {
	s, _ := p[key].(string)
	return strings.TrimSpace(s)
}

func isPolygonal(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}

// ParseKML turns every Placemark into a polygon built from its first
// <coordinates> element. Placemarks with fewer than three valid points are
// skipped; unnamed ones are called "Unnamed".
func ParseKML(r io.Reader) ([]Area, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	var (
		areas       []Area
		inPlacemark bool
		name        string
		coords      string
		haveName    bool
		haveCoords  bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode kml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Placemark":
				inPlacemark = true
				name, coords, haveName, haveCoords = "", "", false, false
			case "name":
				if inPlacemark && !haveName {
					var text string
					if err := dec.DecodeElement(&text, &t); err != nil {
						return nil, fmt.Errorf("decode kml name: %w", err)
					}
					name, haveName = strings.TrimSpace(text), true
				}
			case "coordinates":
				if inPlacemark && !haveCoords {
					var text string
					if err := dec.DecodeElement(&text, &t); err != nil {
						return nil, fmt.Errorf("decode kml coordinates: %w", err)
					}
					coords, haveCoords = text, true
				}
			}
		case xml.EndElement:
			if t.Name.Local != "Placemark" || !inPlacemark {
				continue
			}
			inPlacemark = false
			ring := parseKMLCoordinates(coords)
			if len(ring) < 3 {
				continue
			}
			if name == "" {
				name = "Unnamed"
			}
			areas = append(areas, Area{Name: name, Geometry: orb.Polygon{ring}})
		}
	}
	if len(areas) == 0 {
		return nil, ErrNoPolygons
	}
	return areas, nil
}

// parseKMLCoordinates reads whitespace separated "lon,lat[,alt]" tuples.
func parseKMLCoordinates(s string) orb.Ring {
	var ring orb.Ring
	for _, tuple := range strings.Fields(s) {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			continue
		}
		lon, err1 := strconv.ParseFloat(parts[0], 64)
		lat, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		ring = append(ring, orb.Point{lon, lat})
	}
	return ring
}
