package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"

	lib "github.com/theoremus-urban-solutions/gtfs-explorer"
	"github.com/theoremus-urban-solutions/gtfs-explorer/config"
	"github.com/theoremus-urban-solutions/gtfs-explorer/geo"
	"github.com/theoremus-urban-solutions/gtfs-explorer/importer"
)

// resolveSource turns the -feed flag into an import source. A name listed
// in config.feeds[] wins; otherwise the value is an http(s) URL or a local
// path.
func resolveSource(feed string) (importer.Source, error) {
	if feed == "" {
		if len(config.Config.Feeds) == 0 {
			return importer.Source{}, fmt.Errorf("no -feed given and config.feeds[] is empty")
		}
		return lib.SourceFromConfig(config.Config.Feeds[0]), nil
	}
	if f, ok := config.FindFeed(feed); ok {
		return lib.SourceFromConfig(f), nil
	}
	if strings.HasPrefix(feed, "http://") || strings.HasPrefix(feed, "https://") {
		return importer.Source{URL: feed}, nil
	}
	if _, err := os.Stat(feed); err != nil {
		return importer.Source{}, fmt.Errorf("feed %q is neither a configured feed, a URL nor a readable file: %w", feed, err)
	}
	return importer.Source{Path: feed}, nil
}

// readPolygons loads a GeoJSON or KML file (by extension) into geometries.
func readPolygons(path string) ([]orb.Geometry, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var areas []geo.Area
	if strings.EqualFold(filepath.Ext(path), ".kml") {
		areas, err = geo.ParseKML(bytes.NewReader(data))
	} else {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		areas, err = geo.ParseGeoJSON(data, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return geo.Geometries(areas), nil
}
