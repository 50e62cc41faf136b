// Package testutil builds GTFS archives for tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"sort"
	"testing"
)

// Feed maps archive member names to file contents.
type Feed map[string]string

// Zip encodes the feed as a zip archive. Members are written in name order so
// archives are reproducible.
func (f Feed) Zip(t testing.TB) []byte {
	t.Helper()
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(f[name])); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// With returns a copy of f with name set to contents.
func (f Feed) With(name, contents string) Feed {
	out := make(Feed, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[name] = contents
	return out
}

// Without returns a copy of f lacking name.
func (f Feed) Without(name string) Feed {
	out := make(Feed, len(f))
	for k, v := range f {
		if k != name {
			out[k] = v
		}
	}
	return out
}

// SmallFeed is a two-route feed. Calendar WD runs Mon-Fri 2024-01-01..07 with
// an added service on Saturday 2024-01-06; WE runs on weekends of the same
// week. Route R1 has two trips on shape S1 (direction 0) and one on S2
// (direction 1); R2 runs only on WE.
func SmallFeed() Feed {
	return Feed{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
			"A1,Metro Transit,https://metro.example,Europe/Sofia\n" +
			"A2,Harbour Ferries,https://ferry.example,Europe/Sofia\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type,route_color,route_text_color\n" +
			"R1,A1,1,Central - Airport,3,#ff0000,FFFFFF\n" +
			"R2,A2,F,Harbour Loop,4,0000FF,\n" +
			"R3,A1,T,Tram Line,0,,\n",
		"trips.txt": "route_id,service_id,trip_id,trip_headsign,direction_id,shape_id\n" +
			"R1,WD,T1,Airport,0,S1\n" +
			"R1,WD,T2,Airport,0,S1\n" +
			"R1,WD,T3,Central,1,S2\n" +
			"R2,WE,T4,Harbour,0,\n",
		"stops.txt": "stop_id,stop_code,stop_name,stop_lat,stop_lon,wheelchair_boarding\n" +
			"ST1,101,Central,42.6977,23.3219,1\n" +
			"ST2,102,Museum,42.6900,23.3300,0\n" +
			"ST3,103,Airport,42.6950,23.4060,2\n" +
			"ST4,201,Pier,43.2100,27.9100,\n" +
			"ST5,,Depot,42.6000,23.2000,0\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"T1,08:10:00,08:10:00,ST2,2\n" +
			"T1,08:00:00,08:00:00,ST1,1\n" +
			"T1,08:20:00,08:20:00,ST3,3\n" +
			"T2,09:00:00,09:00:00,ST1,1\n" +
			"T2,09:10:00,09:10:00,ST2,2\n" +
			"T2,09:20:00,09:20:00,ST3,3\n" +
			"T3,10:00:00,10:00:00,ST3,1\n" +
			"T3,10:20:00,10:20:00,ST1,2\n" +
			"T4,11:00:00,11:00:00,ST4,1\n",
		"shapes.txt": "shape_id,shape_pt_lat,shape_pt_lon,shape_pt_sequence\n" +
			"S1,42.6950,23.4060,3\n" +
			"S1,42.6977,23.3219,1\n" +
			"S1,42.6900,23.3300,2\n" +
			"S2,42.6950,23.4060,1\n" +
			"S2,42.6977,23.3219,2\n",
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"WD,1,1,1,1,1,0,0,20240101,20240107\n" +
			"WE,0,0,0,0,0,1,1,20240101,20240107\n",
		"calendar_dates.txt": "service_id,date,exception_type\n" +
			"WD,20240106,1\n",
	}
}
