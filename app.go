package gtfsexplorer

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/theoremus-urban-solutions/gtfs-explorer/config"
	"github.com/theoremus-urban-solutions/gtfs-explorer/importer"
	"github.com/theoremus-urban-solutions/gtfs-explorer/metrics"
	"github.com/theoremus-urban-solutions/gtfs-explorer/publisher"
	"github.com/theoremus-urban-solutions/gtfs-explorer/query"
	"github.com/theoremus-urban-solutions/gtfs-explorer/store"
)

// App holds the long-lived components shared by the HTTP handlers and the CLI.
type App struct {
	Config   config.AppConfig
	Store    *store.Store
	Engine   *query.Engine
	Importer *importer.Importer
	Tracker  *importer.Tracker
	Metrics  *metrics.Collector

	publisher  *publisher.NATSPublisher
	server     *http.Server
	metricsSrv *http.Server

	// imports outlive the request that started them
	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp builds an App from cfg. A configured NATS URL must be reachable.
func NewApp(cfg config.AppConfig) (*App, error) {
	st := store.New()
	col := metrics.NewCollector(st.Len)
	tracker := importer.NewTracker(cfg.Import.TrackerSize)

	a := &App{Config: cfg, Store: st, Tracker: tracker, Metrics: col}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	timeout := time.Duration(cfg.Import.TimeoutSec) * time.Second
	opts := []importer.Option{
		importer.WithTracker(tracker),
		importer.WithMetrics(col),
		importer.WithChunkRows(cfg.Import.ChunkRows),
		importer.WithHTTPClient(&http.Client{Timeout: timeout}, int64(cfg.Import.MaxDownloadMB)<<20),
	}
	if cfg.NATS.URL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, cfg.NATS.LogSubjects, col)
		if err != nil {
			a.cancel()
			return nil, fmt.Errorf("connect nats %s: %w", cfg.NATS.URL, err)
		}
		log.Printf("publishing import events to nats %s", cfg.NATS.URL)
		a.publisher = pub
		opts = append(opts, importer.WithSink(pub))
	}
	a.Importer = importer.New(st, opts...)

	a.Engine = query.NewEngine(st,
		query.WithCacheSize(cfg.Query.CacheSize),
		query.WithCacheTTL(time.Duration(cfg.Query.CacheTTLSec)*time.Second),
		query.WithMetrics(col),
	)
	return a, nil
}

// importContext bounds one import by the app lifetime and, when configured,
// by the import timeout.
func (a *App) importContext() (context.Context, context.CancelFunc) {
	if a.Config.Import.TimeoutSec > 0 {
		return context.WithTimeout(a.ctx, time.Duration(a.Config.Import.TimeoutSec)*time.Second)
	}
	return context.WithCancel(a.ctx)
}

// StartImport runs src in the background, bounded by the configured import
// timeout and cancelled when the App closes.
func (a *App) StartImport(src importer.Source) *importer.Job {
	ctx, cancel := a.importContext()
	job := a.Importer.Start(ctx, src)
	go func() {
		<-job.Done()
		cancel()
	}()
	return job
}

// PreloadFeeds starts an import for every feed listed in the configuration.
func (a *App) PreloadFeeds() []*importer.Job {
	jobs := make([]*importer.Job, 0, len(a.Config.Feeds))
	for _, f := range a.Config.Feeds {
		jobs = append(jobs, a.StartImport(SourceFromConfig(f)))
	}
	return jobs
}

// SourceFromConfig converts a configured feed into an import source.
func SourceFromConfig(f config.FeedSource) importer.Source {
	return importer.Source{Name: f.Name, URL: f.URL, Path: f.Path, Notes: f.Notes}
}

// Close cancels running imports and releases the NATS connection.
func (a *App) Close() {
	a.cancel()
	if a.publisher != nil {
		a.publisher.Close()
	}
}
