/*
Package gtfs loads static GTFS archives into an immutable, in-memory index.

The package is source agnostic: it accepts zip bytes, an io.ReaderAt or a
path and never downloads anything itself.

# Basic Usage

	idx, err := gtfs.NewFeedIndexFromBytes(ctx, zipBytes, gtfs.Options{
	    Progress: func(p gtfs.Progress) { log.Printf("%s %d%%", p.Phase, p.Total) },
	})
	if err != nil {
	    var structural *gtfs.StructuralError
	    if errors.As(err, &structural) {
	        // a required table is missing
	    }
	    return err
	}

	route, ok := idx.Routes().Get("R1")
	trips := idx.TripsForRoute("R1").Items()
	services := idx.ServicesOn("20240115")

# Required Tables

agency.txt, routes.txt, trips.txt, stops.txt and stop_times.txt must be
present; shapes.txt, calendar.txt and calendar_dates.txt are optional. Members
are matched by case-insensitive base name, so archives that wrap the feed in a
folder load as well.

# Row Tolerance

Bad rows never fail an import. A row missing its key, with unparsable
coordinates or referencing an unknown trip is dropped; a repeated id replaces
the earlier row but keeps its position. Every such decision is counted per
table and kind and exposed through FeedIndex.Warnings.

# Progress

Ingestion runs in fixed phases (see Phases), each with a weight. Updates carry
the phase, its percentage and a monotonic cumulative total. stop_times.txt
reports intermediate updates every Options.ChunkRows rows.

# Service Calendar

Services are materialised per date at load time (see ResolveServices), so
date lookups are a single map access.

# Concurrency

A FeedIndex is never modified after it is returned and may be read from any
number of goroutines.
*/
package gtfs
