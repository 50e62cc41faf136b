// Package importer runs feed ingestion in the background and registers the
// result in a store.Store.
package importer

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/theoremus-urban-solutions/gtfs-explorer/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-explorer/store"
)

// Import outcomes reported to Metrics.
const (
	OutcomeComplete  = "complete"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Sink receives every event of every job, in order per job.
type Sink interface {
	Publish(Event) error
}

// Metrics observes import lifecycles. Implemented by metrics.Collector.
type Metrics interface {
	ImportStarted()
	ImportFinished(outcome string, d time.Duration)
	RowWarning(table, kind string, n int)
}

type Importer struct {
	store     *store.Store
	client    *Client
	sinks     []Sink
	metrics   Metrics
	tracker   *Tracker
	now       func() time.Time
	chunkRows int
}

type Option func(*Importer)

func WithHTTPClient(hc *http.Client, maxBytes int64) Option {
	return func(im *Importer) { im.client = NewClient(hc, maxBytes) }
}

func WithSink(s Sink) Option {
	return func(im *Importer) { im.sinks = append(im.sinks, s) }
}

func WithMetrics(m Metrics) Option {
	return func(im *Importer) { im.metrics = m }
}

func WithTracker(t *Tracker) Option {
	return func(im *Importer) { im.tracker = t }
}

// WithClock fixes "today" for calendars without rules.
func WithClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

func WithChunkRows(n int) Option {
	return func(im *Importer) { im.chunkRows = n }
}

func New(s *store.Store, opts ...Option) *Importer {
	im := &Importer{store: s, client: NewClient(nil, 0), now: time.Now}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Start ingests src on a new goroutine. The feed is added to the store only
// when the build succeeds and ctx is still live.
func (im *Importer) Start(ctx context.Context, src Source) *Job {
	job := newJob(uuid.New(), src.DisplayName())
	if im.tracker != nil {
		im.tracker.add(job)
	}
	go im.run(ctx, job, src)
	return job
}

// Import is the synchronous form of Start.
func (im *Importer) Import(ctx context.Context, src Source) (int, error) {
	return im.Start(ctx, src).Wait()
}

func (im *Importer) run(ctx context.Context, job *Job, src Source) {
	start := time.Now()
	if im.metrics != nil {
		im.metrics.ImportStarted()
	}
	log.Printf("import %s: starting %q from %s", job.ID, job.Name, src.Type())

	last := gtfs.Progress{}
	emit := func(ev Event) {
		ev.ImportID = job.ID
		ev.Name = job.Name
		ev.Time = im.now()
		job.record(ev)
		for _, s := range im.sinks {
			if err := s.Publish(ev); err != nil {
				log.Printf("import %s: sink error: %v", job.ID, err)
			}
		}
	}
	progress := func(p gtfs.Progress) {
		last = p
		emit(Event{Type: EventProgress, Phase: p.Phase, Percent: p.Percent, Total: p.Total})
	}

	feedID, idx, err := im.ingest(ctx, job, src, progress)

	outcome := OutcomeComplete
	if err != nil {
		outcome = OutcomeError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = OutcomeCancelled
		}
		log.Printf("import %s: %s failed: %v", job.ID, job.Name, err)
		job.err = err
		emit(Event{Type: EventError, Phase: last.Phase, Percent: last.Percent, Total: last.Total, Error: err.Error()})
	} else {
		stats := idx.Stats()
		warnings := idx.Warnings()
		gtfs.LogWarnings(job.Name, warnings)
		if im.metrics != nil {
			for _, w := range warnings {
				im.metrics.RowWarning(w.Table, w.Kind, w.Count)
			}
		}
		log.Printf("import %s: feed %d %q ready: %d agencies, %d routes, %d trips, %d stops, %d shapes in %s",
			job.ID, feedID, job.Name, stats.Agencies, stats.Routes, stats.Trips, stats.Stops, stats.Shapes,
			time.Since(start).Round(time.Millisecond))
		job.feedID = feedID
		emit(Event{Type: EventComplete, Phase: last.Phase, Percent: 100, Total: 100, FeedID: feedID,
			Stats: &stats, Warnings: gtfs.CountWarnings(warnings)})
	}

	if im.metrics != nil {
		im.metrics.ImportFinished(outcome, time.Since(start))
	}
	close(job.done)
}

func (im *Importer) ingest(ctx context.Context, job *Job, src Source, progress gtfs.ProgressFunc) (int, *gtfs.FeedIndex, error) {
	opts := gtfs.Options{Now: im.now, Progress: progress, ChunkRows: im.chunkRows}
	meta := src.metadata()

	var (
		idx *gtfs.FeedIndex
		err error
	)
	switch meta.SourceType {
	case store.SourceBytes:
		meta.Size = int64(len(src.Data))
		idx, err = gtfs.NewFeedIndexFromBytes(ctx, src.Data, opts)
	case store.SourceURL:
		var data []byte
		data, err = im.client.Fetch(ctx, src.URL)
		if err != nil {
			return 0, nil, err
		}
		meta.Size = int64(len(data))
		idx, err = gtfs.NewFeedIndexFromBytes(ctx, data, opts)
	default:
		if st, statErr := os.Stat(src.Path); statErr == nil {
			meta.Size = st.Size()
		}
		idx, err = gtfs.NewFeedIndexFromFile(ctx, src.Path, opts)
	}
	if err != nil {
		return 0, nil, err
	}
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	return im.store.AddWithImportID(job.ID, job.Name, idx, meta), idx, nil
}
