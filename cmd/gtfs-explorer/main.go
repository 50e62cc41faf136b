package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	lib "github.com/theoremus-urban-solutions/gtfs-explorer"
	"github.com/theoremus-urban-solutions/gtfs-explorer/config"
	"github.com/theoremus-urban-solutions/gtfs-explorer/formatter"
	"github.com/theoremus-urban-solutions/gtfs-explorer/internal"
	"github.com/theoremus-urban-solutions/gtfs-explorer/query"
)

func main() {
	mode := flag.String("mode", "serve", "serve|oneshot")
	configPath := flag.String("config", "", "path to config.yml (default ./config.yml if present)")
	feed := flag.String("feed", "", "feed name from config.feeds[], URL or local zip path (oneshot)")
	queryName := flag.String("query", "routes", "agencies|routes|stops|route|dates (oneshot)")
	format := flag.String("format", "json", "json|csv (csv only for stops)")
	date := flag.String("date", "", "service date YYYYMMDD")
	route := flag.String("route", "", "route_id for -query route, or stop filter")
	agency := flag.String("agency", "", "comma-separated agency ids")
	types := flag.String("types", "", "comma-separated route types (0-7)")
	polygons := flag.String("polygons", "", "GeoJSON or KML file with polygons for -query stops")
	flag.Parse()

	internal.InitLogging()
	if err := config.LoadAppConfig(*configPath); err != nil {
		log.Fatalf("config: %v", err)
	}

	switch *mode {
	case "serve":
		serve()
	case "oneshot":
		internal.InitLoggingTo(os.Stderr)
		q := url.Values{}
		q.Set("agency", *agency)
		q.Set("type", *types)
		q.Set("route", *route)
		q.Set("date", *date)
		if err := oneshot(*feed, *queryName, *format, *polygons, q); err != nil {
			log.Fatalf("oneshot: %v", err)
		}
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}

func serve() {
	app, err := lib.NewApp(config.Config)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	for _, job := range app.PreloadFeeds() {
		go func() {
			if _, err := job.Wait(); err != nil {
				log.Printf("preload %s failed: %v", job.Name, err)
			}
		}()
	}
	app.StartServer()
	app.HandleGracefulShutdown()
}

func oneshot(feed, queryName, format, polygonsPath string, q url.Values) error {
	filters, err := lib.ParseFilters(q)
	if err != nil {
		return err
	}
	polys, err := readPolygons(polygonsPath)
	if err != nil {
		return err
	}
	src, err := resolveSource(feed)
	if err != nil {
		return err
	}

	cfg := config.Config
	cfg.NATS.URL = "" // progress is logged, not published
	app, err := lib.NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	feedID, err := app.Importer.Import(ctx, src)
	if err != nil {
		return err
	}

	var result any
	switch queryName {
	case "agencies":
		result = app.Engine.ListAgencies(feedID)
	case "routes":
		result = app.Engine.ListRoutes(query.RouteFilter{
			FeedID: feedID, AgencyIDs: filters.AgencyIDs, RouteTypes: filters.RouteTypes, Date: filters.Date,
		})
	case "stops":
		stops := app.Engine.ListStops(query.StopFilter{
			FeedID: feedID, RouteID: filters.RouteID, Date: filters.Date, Polygons: polys,
		})
		if format == "csv" {
			return formatter.WriteStopsCSV(os.Stdout, stops)
		}
		result = stops
	case "route":
		if filters.RouteID == "" {
			return fmt.Errorf("-query route needs -route")
		}
		details, ok := app.Engine.GetRouteDetails(feedID, filters.RouteID, filters.Date)
		if !ok {
			return fmt.Errorf("route %q not found", filters.RouteID)
		}
		result = details
	case "dates":
		result = app.Engine.ListAvailableDates(feedID)
	default:
		return fmt.Errorf("unknown query %q", queryName)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
