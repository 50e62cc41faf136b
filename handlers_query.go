package gtfsexplorer

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/theoremus-urban-solutions/gtfs-explorer/formatter"
	"github.com/theoremus-urban-solutions/gtfs-explorer/geo"
	"github.com/theoremus-urban-solutions/gtfs-explorer/query"
)

// maxPolygonBytes caps POSTed GeoJSON or KML bodies.
const maxPolygonBytes = 16 << 20

func (a *App) handleAgencies(w http.ResponseWriter, r *http.Request) {
	p, err := parseFilters(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	formatter.WriteJSON(w, http.StatusOK, a.Engine.ListAgencies(p.FeedID))
}

func (a *App) handleRoutes(w http.ResponseWriter, r *http.Request) {
	p, err := parseFilters(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	formatter.WriteJSON(w, http.StatusOK, a.Engine.ListRoutes(query.RouteFilter{
		FeedID:     p.FeedID,
		AgencyIDs:  p.AgencyIDs,
		RouteTypes: p.RouteTypes,
		Date:       p.Date,
	}))
}

func (a *App) handleRouteDetails(w http.ResponseWriter, r *http.Request) {
	feedID, err := parseID("feedID", chi.URLParam(r, "feedID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := parseFilters(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	routeID := chi.URLParam(r, "routeID")
	details, ok := a.Engine.GetRouteDetails(feedID, routeID, p.Date)
	if !ok {
		writeNotFound(w, "route", map[string]any{"feed_id": feedID, "route_id": routeID})
		return
	}
	formatter.WriteJSON(w, http.StatusOK, details)
}

func (a *App) handleStops(w http.ResponseWriter, r *http.Request) {
	f, err := a.stopFilter(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	formatter.WriteJSON(w, http.StatusOK, a.Engine.ListStops(f))
}

func (a *App) handleStopsCSV(w http.ResponseWriter, r *http.Request) {
	f, err := a.stopFilter(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := formatter.WriteStopsCSV(&buf, a.Engine.ListStops(f)); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="stops.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (a *App) handleDates(w http.ResponseWriter, r *http.Request) {
	p, err := parseFilters(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	formatter.WriteJSON(w, http.StatusOK, a.Engine.ListAvailableDates(p.FeedID))
}

// stopFilter builds a StopFilter from the query string and, for POST, from
// a GeoJSON or KML body holding the polygons.
func (a *App) stopFilter(w http.ResponseWriter, r *http.Request) (query.StopFilter, error) {
	p, err := parseFilters(r)
	if err != nil {
		return query.StopFilter{}, err
	}
	f := query.StopFilter{FeedID: p.FeedID, RouteID: p.RouteID, Date: p.Date}
	if r.Method != http.MethodPost {
		return f, nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPolygonBytes))
	if err != nil {
		return f, &RequestError{Msg: "polygon body too large or unreadable"}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return f, nil
	}
	areas, err := parseAreas(r.Header.Get("Content-Type"), body)
	if err != nil {
		if errors.Is(err, geo.ErrNoPolygons) {
			return f, &RequestError{Param: "polygons", Msg: "no polygons found"}
		}
		return f, &RequestError{Param: "polygons", Msg: err.Error()}
	}
	f.Polygons = geo.Geometries(areas)
	return f, nil
}

func parseAreas(contentType string, body []byte) ([]geo.Area, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if strings.Contains(mediaType, "kml") || strings.HasSuffix(mediaType, "xml") {
		return geo.ParseKML(bytes.NewReader(body))
	}
	return geo.ParseGeoJSON(body, "Area")
}
