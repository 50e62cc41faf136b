// Package gtfsexplorer serves imported GTFS feeds over HTTP.
//
// An App wires the feed store, the background importer, the query engine
// and Prometheus metrics, and optionally fans import progress out to NATS.
// Router exposes the JSON API:
//
//	GET    /api/health
//	GET    /api/feeds                      list feeds
//	POST   /api/feeds                      import from JSON {name,url,notes}, multipart "file" or a raw zip body
//	GET    /api/feeds/{feedID}             feed with row warnings
//	DELETE /api/feeds/{feedID}
//	DELETE /api/feeds                      remove every feed
//	GET    /api/imports/{importID}         latest import event
//	GET    /api/imports/{importID}/events  server-sent event stream
//	GET    /api/agencies?feed=
//	GET    /api/routes?feed=&agency=&type=&date=
//	GET    /api/routes/{feedID}/{routeID}?date=
//	GET    /api/stops?feed=&route=&date=   POST adds GeoJSON or KML polygons
//	GET    /api/stops.csv                  same filters, CSV
//	GET    /api/dates?feed=
//	GET    /metrics
package gtfsexplorer
