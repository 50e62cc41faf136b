// Package query answers filtered reads over the feeds of a store.Store.
//
// Every operation takes a feed id where 0 selects all feeds in store order.
// Unknown feeds, routes or dates yield empty results, never errors; callers
// are expected to validate filter syntax before calling in.
package query

import (
	"sort"
	"time"

	"github.com/bluele/gcache"

	"github.com/theoremus-urban-solutions/gtfs-explorer/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-explorer/store"
)

// DefaultCacheSize bounds the number of memoised route details.
const DefaultCacheSize = 512

// Metrics observes query latency. Implemented by metrics.Collector.
type Metrics interface {
	ObserveQuery(operation string, d time.Duration)
}

// Engine is safe for concurrent use.
type Engine struct {
	store   *store.Store
	details gcache.Cache
	metrics Metrics
}

type Option func(*engineOptions)

type engineOptions struct {
	cacheSize int
	cacheTTL  time.Duration
	metrics   Metrics
}

// WithCacheSize sets the route detail LRU size; n <= 0 disables caching.
func WithCacheSize(n int) Option {
	return func(o *engineOptions) { o.cacheSize = n }
}

// WithCacheTTL expires cached route details after d.
func WithCacheTTL(d time.Duration) Option {
	return func(o *engineOptions) { o.cacheTTL = d }
}

func WithMetrics(m Metrics) Option {
	return func(o *engineOptions) { o.metrics = m }
}

func NewEngine(s *store.Store, opts ...Option) *Engine {
	o := engineOptions{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine{store: s, metrics: o.metrics}
	if o.cacheSize > 0 {
		b := gcache.New(o.cacheSize).LRU()
		if o.cacheTTL > 0 {
			b = b.Expiration(o.cacheTTL)
		}
		e.details = b.Build()
	}
	return e
}

func (e *Engine) observe(op string, start time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveQuery(op, time.Since(start))
	}
}

// FeedRef annotates a result with its owning feed.
type FeedRef struct {
	FeedID   int    `json:"feed_id" csv:"feed_id"`
	FeedName string `json:"feed_name" csv:"feed_name"`
}

func refOf(f *store.Feed) FeedRef {
	return FeedRef{FeedID: f.ID, FeedName: f.Name}
}

type AgencyResult struct {
	gtfs.Agency
	FeedRef
}

// ListAgencies returns the agencies of feedID, or of every feed when 0.
func (e *Engine) ListAgencies(feedID int) []AgencyResult {
	defer e.observe("agencies", time.Now())

	out := []AgencyResult{}
	for _, f := range e.store.Scope(feedID) {
		ref := refOf(f)
		for _, a := range f.Index.Agencies().All() {
			out = append(out, AgencyResult{Agency: *a, FeedRef: ref})
		}
	}
	return out
}

// ListAvailableDates returns the sorted union of service dates in scope.
func (e *Engine) ListAvailableDates(feedID int) []string {
	defer e.observe("dates", time.Now())

	feeds := e.store.Scope(feedID)
	if len(feeds) == 1 {
		return feeds[0].Index.Dates()
	}
	union := gtfs.NewSet()
	for _, f := range feeds {
		for _, d := range f.Index.Dates() {
			union.Add(d)
		}
	}
	out := append([]string{}, union.Items()...)
	sort.Strings(out)
	return out
}
