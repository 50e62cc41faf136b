package gtfsexplorer

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Router returns the HTTP API.
func (a *App) Router() http.Handler {
	origins := a.Config.Server.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Location"},
	}))

	r.Get("/api/health", a.handleHealth)

	r.Get("/api/feeds", a.handleListFeeds)
	r.Post("/api/feeds", a.handleImportFeed)
	r.Delete("/api/feeds", a.handleClearFeeds)
	r.Get("/api/feeds/{feedID}", a.handleGetFeed)
	r.Delete("/api/feeds/{feedID}", a.handleDeleteFeed)

	r.Get("/api/imports/{importID}", a.handleImportStatus)
	r.Get("/api/imports/{importID}/events", a.handleImportEvents)

	r.Get("/api/agencies", a.handleAgencies)
	r.Get("/api/routes", a.handleRoutes)
	r.Get("/api/routes/{feedID}/{routeID}", a.handleRouteDetails)
	r.Get("/api/stops", a.handleStops)
	r.Post("/api/stops", a.handleStops)
	r.Get("/api/stops.csv", a.handleStopsCSV)
	r.Post("/api/stops.csv", a.handleStopsCSV)
	r.Get("/api/dates", a.handleDates)

	r.Method(http.MethodGet, "/metrics", a.Metrics.Handler())
	return r
}

// StartServer starts the API listener and, when configured, a separate
// metrics listener.
func (a *App) StartServer() {
	addr := fmt.Sprintf(":%d", a.Config.Server.Port)
	a.server = &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute, // uploads
		WriteTimeout:      5 * time.Minute, // event streams
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("server listening on %s", addr)

	if a.Config.Metrics.Addr != "" {
		a.metricsSrv = a.Metrics.Serve(a.Config.Metrics.Addr)
	}
}

// HandleGracefulShutdown blocks until SIGINT or SIGTERM, then stops the
// listeners, cancels running imports and closes the NATS connection.
func (a *App) HandleGracefulShutdown() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Printf("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Close()
	for _, srv := range []*http.Server{a.server, a.metricsSrv} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("server %s shutdown error: %v", srv.Addr, err)
		} else {
			log.Printf("server %s shut down successfully", srv.Addr)
		}
	}
}
