package gtfsexplorer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/theoremus-urban-solutions/gtfs-explorer/formatter"
	"github.com/theoremus-urban-solutions/gtfs-explorer/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-explorer/importer"
	"github.com/theoremus-urban-solutions/gtfs-explorer/store"
)

// importRequest is the JSON form of POST /api/feeds.
type importRequest struct {
	Name  string `json:"name" validate:"max=200"`
	URL   string `json:"url" validate:"required,http_url"`
	Notes string `json:"notes" validate:"max=2000"`
}

type importAccepted struct {
	ImportID  uuid.UUID `json:"import_id"`
	Name      string    `json:"name"`
	StatusURL string    `json:"status_url"`
	EventsURL string    `json:"events_url"`
}

type importFailed struct {
	formatter.ErrorPayload
	ImportID uuid.UUID `json:"import_id"`
}

type feedDetail struct {
	*store.Feed
	Warnings []gtfs.RowWarning `json:"warnings"`
}

func (a *App) handleListFeeds(w http.ResponseWriter, r *http.Request) {
	formatter.WriteJSON(w, http.StatusOK, a.Store.List())
}

func (a *App) handleGetFeed(w http.ResponseWriter, r *http.Request) {
	feed, ok := a.feedFromPath(w, r)
	if !ok {
		return
	}
	warnings := feed.Index.Warnings()
	if warnings == nil {
		warnings = []gtfs.RowWarning{}
	}
	formatter.WriteJSON(w, http.StatusOK, feedDetail{Feed: feed, Warnings: warnings})
}

func (a *App) handleDeleteFeed(w http.ResponseWriter, r *http.Request) {
	feed, ok := a.feedFromPath(w, r)
	if !ok {
		return
	}
	a.Store.Remove(feed.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleClearFeeds(w http.ResponseWriter, r *http.Request) {
	a.Store.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) feedFromPath(w http.ResponseWriter, r *http.Request) (*store.Feed, bool) {
	id, err := parseID("feedID", chi.URLParam(r, "feedID"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	feed, ok := a.Store.Get(id)
	if !ok {
		writeNotFound(w, "feed", map[string]any{"feed_id": id})
		return nil, false
	}
	return feed, true
}

// handleImportFeed starts a background import and answers 202 with the
// import id. With ?wait=true it blocks until the import finishes and
// answers 201 with the new feed, or 422 when the archive is rejected.
func (a *App) handleImportFeed(w http.ResponseWriter, r *http.Request) {
	src, err := a.importSource(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	job := a.StartImport(src)

	if wait := r.URL.Query().Get("wait"); wait != "true" && wait != "1" {
		w.Header().Set("Location", "/api/imports/"+job.ID.String())
		formatter.WriteJSON(w, http.StatusAccepted, importAccepted{
			ImportID:  job.ID,
			Name:      job.Name,
			StatusURL: "/api/imports/" + job.ID.String(),
			EventsURL: "/api/imports/" + job.ID.String() + "/events",
		})
		return
	}

	select {
	case <-job.Done():
	case <-r.Context().Done():
		return
	}
	feedID, err := job.Wait()
	if err != nil {
		formatter.WriteJSON(w, http.StatusUnprocessableEntity, importFailed{
			ErrorPayload: formatter.ErrorPayload{Error: err.Error()},
			ImportID:     job.ID,
		})
		return
	}
	feed, ok := a.Store.Get(feedID)
	if !ok {
		// removed before we could answer
		writeNotFound(w, "feed", map[string]any{"feed_id": feedID})
		return
	}
	formatter.WriteJSON(w, http.StatusCreated, feed)
}

// importSource decodes the three accepted request shapes: a JSON URL
// request, a multipart upload with a "file" field, or a raw archive body.
func (a *App) importSource(w http.ResponseWriter, r *http.Request) (importer.Source, error) {
	maxBytes := int64(a.Config.Server.MaxUploadMB) << 20
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch {
	case mediaType == "application/json":
		var req importRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
		if err := dec.Decode(&req); err != nil {
			return importer.Source{}, &RequestError{Msg: "invalid JSON body: " + err.Error()}
		}
		if err := validate.Struct(req); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && verrs[0].Field() != "URL" {
				return importer.Source{}, &RequestError{Param: strings.ToLower(verrs[0].Field()), Msg: "too long"}
			}
			return importer.Source{}, &RequestError{Param: "url", Msg: "url must be an http(s) URL"}
		}
		return importer.Source{Name: req.Name, URL: req.URL, Notes: req.Notes}, nil

	case mediaType == "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return importer.Source{}, &RequestError{Msg: "invalid upload: " + err.Error()}
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return importer.Source{}, &RequestError{Param: "file", Msg: "missing archive"}
		}
		defer func() { _ = file.Close() }()
		data, err := io.ReadAll(file)
		if err != nil {
			return importer.Source{}, fmt.Errorf("read upload: %w", err)
		}
		return importer.Source{
			Name:     r.FormValue("name"),
			Data:     data,
			Filename: header.Filename,
			Notes:    r.FormValue("notes"),
		}, nil

	default:
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return importer.Source{}, &RequestError{Msg: fmt.Sprintf("archive exceeds %d MB", a.Config.Server.MaxUploadMB)}
			}
			return importer.Source{}, fmt.Errorf("read body: %w", err)
		}
		if len(data) == 0 {
			return importer.Source{}, &RequestError{Msg: "empty body; send a zip archive, a multipart upload or JSON {\"url\": ...}"}
		}
		q := r.URL.Query()
		return importer.Source{
			Name:     q.Get("name"),
			Data:     data,
			Filename: q.Get("filename"),
			Notes:    q.Get("notes"),
		}, nil
	}
}

func (a *App) jobFromPath(w http.ResponseWriter, r *http.Request) (*importer.Job, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "importID"))
	if err != nil {
		writeError(w, r, &RequestError{Param: "importID", Msg: "not a UUID"})
		return nil, false
	}
	job, ok := a.Tracker.Job(id)
	if !ok {
		writeNotFound(w, "import", map[string]any{"import_id": id})
		return nil, false
	}
	return job, true
}

func (a *App) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := a.jobFromPath(w, r)
	if !ok {
		return
	}
	ev, _ := a.Tracker.Status(job.ID)
	formatter.WriteJSON(w, http.StatusOK, ev)
}

// handleImportEvents streams the import's events as server-sent events,
// replaying from the first one, and returns after the terminal event.
func (a *App) handleImportEvents(w http.ResponseWriter, r *http.Request) {
	job, ok := a.jobFromPath(w, r)
	if !ok {
		return
	}
	flusher, _ := w.(http.Flusher)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	events := job.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, formatter.BuildJSON(ev))
			if flusher != nil {
				flusher.Flush()
			}
		case <-r.Context().Done():
			go func() {
				for range events {
				}
			}()
			return
		}
	}
}
