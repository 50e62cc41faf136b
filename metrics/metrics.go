package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	FeedsLoaded prometheus.GaugeFunc

	ImportsTotal    *prometheus.CounterVec // outcome label: complete|error|cancelled
	ImportsInFlight prometheus.Gauge
	ImportDuration  prometheus.Histogram
	RowWarnings     *prometheus.CounterVec // table, kind labels

	QueryDuration *prometheus.HistogramVec // operation label

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
}

// NewCollector registers all collectors on a private registry. feeds reports
// the number of feeds currently held by the store.
func NewCollector(feeds func() int) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		FeedsLoaded: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "gtfs_explorer_feeds_loaded",
			Help: "Number of feeds held in the store.",
		}, func() float64 { return float64(feeds()) }),
		ImportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gtfs_explorer_imports_total",
			Help: "Finished imports by outcome.",
		}, []string{"outcome"}),
		ImportsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gtfs_explorer_imports_in_flight",
			Help: "Imports currently being ingested.",
		}),
		ImportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gtfs_explorer_import_duration_seconds",
			Help:    "Wall time from import start to its terminal event.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		RowWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gtfs_explorer_row_warnings_total",
			Help: "Rows dropped or corrected during ingestion.",
		}, []string{"table", "kind"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gtfs_explorer_query_duration_seconds",
			Help:    "Query engine latency by operation.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}, []string{"operation"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gtfs_explorer_nats_published_total",
			Help: "Total progress events published to NATS.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gtfs_explorer_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gtfs_explorer_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		c.FeedsLoaded,
		c.ImportsTotal, c.ImportsInFlight, c.ImportDuration, c.RowWarnings,
		c.QueryDuration,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
	)
	return c
}

// Query engine hook

func (c *Collector) ObserveQuery(operation string, d time.Duration) {
	c.QueryDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// Importer hooks

func (c *Collector) ImportStarted() { c.ImportsInFlight.Inc() }

func (c *Collector) ImportFinished(outcome string, d time.Duration) {
	c.ImportsInFlight.Dec()
	c.ImportsTotal.WithLabelValues(outcome).Inc()
	c.ImportDuration.Observe(d.Seconds())
}

func (c *Collector) RowWarning(table, kind string, n int) {
	c.RowWarnings.WithLabelValues(table, kind).Add(float64(n))
}

// Publisher hooks

func (c *Collector) NATSPublishedInc()  { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
