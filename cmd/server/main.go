package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/vinyl-tracker/internal/analytics"
	"github.com/codyseavey/vinyl-tracker/internal/api"
	"github.com/codyseavey/vinyl-tracker/internal/config"
	"github.com/codyseavey/vinyl-tracker/internal/database"
	"github.com/codyseavey/vinyl-tracker/internal/logging"
	"github.com/codyseavey/vinyl-tracker/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if cfg.Logging.Level != "debug" && cfg.Logging.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := database.Open(database.Config{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		LogLevel: cfg.Database.LogLevel,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	if err := database.Migrate(db); err != nil {
		logging.Fatal().Err(err).Msg("Failed to run migrations")
	}
	store := database.NewStore(db)
	defer store.Close()

	// Initialize services
	engine := analytics.NewEngine(store)
	catalog := services.NewCatalogService(store, cfg.Catalog.CacheSize, cfg.Catalog.SearchThreshold)
	ingest := services.NewIngestService(store, catalog)

	if n, err := store.CountObservations(context.Background()); err == nil {
		logging.Info().Int64("observations", n).Msg("Price store ready")
	}

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var importWorker *services.ImportWorker
	if cfg.Importer.Enabled {
		importWorker = services.NewImportWorker(ingest, cfg.Importer.InboxDir, cfg.Importer.ProcessedDir, cfg.Importer.Interval)

		// Start import worker in background with panic recovery
		go func() {
			for {
				func() {
					defer func() {
						if r := recover(); r != nil {
							logging.Error().Interface("panic", r).Msg("PANIC in import worker - restarting in 30 seconds")
						}
					}()
					importWorker.Start(ctx)
				}()

				select {
				case <-ctx.Done():
					return // Graceful shutdown
				case <-time.After(30 * time.Second):
					logging.Info().Msg("Import worker restarting after panic recovery")
				}
			}
		}()
	}

	// Refresh the missing-metadata gauge once the server is up
	go func() {
		if _, err := catalog.MissingReleases(ctx); err != nil {
			logging.Warn().Err(err).Msg("Failed to count releases missing metadata")
		}
	}()

	router := api.SetupRouter(cfg.Server, api.Services{
		Store:        store,
		Engine:       engine,
		Catalog:      catalog,
		Ingest:       ingest,
		ImportWorker: importWorker,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", srv.Addr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info().Msg("Shutting down server...")

	// Cancel the context to stop the import worker
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Server forced to shutdown")
	}

	logging.Info().Msg("Server exited")
}
