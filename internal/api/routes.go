package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/codyseavey/vinyl-tracker/internal/analytics"
	"github.com/codyseavey/vinyl-tracker/internal/api/handlers"
	"github.com/codyseavey/vinyl-tracker/internal/config"
	"github.com/codyseavey/vinyl-tracker/internal/database"
	"github.com/codyseavey/vinyl-tracker/internal/services"
)

// Services bundles what the router serves. ImportWorker may be nil.
type Services struct {
	Store        *database.Store
	Engine       *analytics.Engine
	Catalog      *services.CatalogService
	Ingest       *services.IngestService
	ImportWorker *services.ImportWorker
}

func SetupRouter(cfg config.ServerConfig, svc Services) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(), Metrics())

	serveFrontend := cfg.FrontendDir != "" && dirExists(cfg.FrontendDir)

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	} else {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", requestIDHeader}
	corsConfig.ExposeHeaders = []string{requestIDHeader}
	corsConfig.AllowCredentials = false
	router.Use(cors.New(corsConfig))

	// Initialize handlers
	analyticsHandler := handlers.NewAnalyticsHandler(svc.Engine)
	selectionHandler := handlers.NewSelectionHandler()
	catalogHandler := handlers.NewCatalogHandler(svc.Catalog)
	ingestHandler := handlers.NewIngestHandler(svc.Ingest, svc.ImportWorker)

	writeLimit := RateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst))

	// API routes
	api := router.Group("/api")
	{
		plots := api.Group("/plots")
		{
			plots.GET("", analyticsHandler.ListPlots)
			plots.GET("/:entity", analyticsHandler.GetPlot)
		}
		api.POST("/aggregate", analyticsHandler.Aggregate)
		api.POST("/timeseries", analyticsHandler.Timeseries)

		selections := api.Group("/selections")
		{
			selections.POST("/resolve", selectionHandler.Resolve)
			selections.POST("/extract", selectionHandler.Extract)
		}

		entities := api.Group("/entities")
		{
			entities.GET("/:kind", catalogHandler.ListEntities)
			entities.POST("/:kind/cards", catalogHandler.GetCards)
		}

		releases := api.Group("/releases")
		{
			releases.GET("/missing", catalogHandler.GetMissingReleases)
			releases.POST("", writeLimit, ingestHandler.StoreReleases)
		}
		api.POST("/observations", writeLimit, ingestHandler.StoreObservations)

		imports := api.Group("/import")
		{
			imports.GET("/status", ingestHandler.GetImportStatus)
			imports.POST("/run", writeLimit, ingestHandler.RunImport)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		if svc.Store != nil {
			if err := svc.Store.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Serve frontend static files
	if serveFrontend {
		indexPath := filepath.Join(cfg.FrontendDir, "index.html")

		router.Static("/assets", filepath.Join(cfg.FrontendDir, "assets"))
		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback - serve index.html for all non-API routes
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.File(indexPath)
		})
	}

	return router
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
