package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/wellness.report/internal/api"
	"github.com/banshee-data/wellness.report/internal/cluster"
	"github.com/banshee-data/wellness.report/internal/config"
	"github.com/banshee-data/wellness.report/internal/dataset"
	"github.com/banshee-data/wellness.report/internal/db"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	listen := fs.String("listen", ":8080", "Listen address")
	dbPath := fs.String("db", "", "Dataset database (stored-dataset routes are disabled when empty)")
	configPath := fs.String("config", "", "Clustering config JSON file")
	devMode := fs.Bool("dev", false, "Read migrations from disk")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	var store *db.DB
	if *dbPath != "" {
		db.DevMode = *devMode
		store, err = db.NewDB(*dbPath)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer store.Close()
	}

	handler, err := newHandler(cfg, store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              *listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
	return nil
}

// newHandler mounts the API, and the store's admin routes when a store is
// configured, behind the access log.
func newHandler(cfg *config.ClusteringConfig, store *db.DB) (http.Handler, error) {
	loader, err := dataset.NewLoader(cfg.GetCacheEntries())
	if err != nil {
		return nil, err
	}
	server, err := api.NewServer(cluster.NewPipeline(cluster.PipelineParamsFromConfig(cfg)), loader, store, cfg)
	if err != nil {
		return nil, err
	}

	mux := server.ServeMux()
	if store != nil {
		store.AttachAdminRoutes(mux)
	}
	return api.LoggingMiddleware(mux), nil
}
