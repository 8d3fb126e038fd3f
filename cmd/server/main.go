package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/otcheredev/report-resolver/internal/adapters"
	"github.com/otcheredev/report-resolver/internal/cache"
	"github.com/otcheredev/report-resolver/internal/config"
	"github.com/otcheredev/report-resolver/internal/database"
	"github.com/otcheredev/report-resolver/internal/handlers"
	"github.com/otcheredev/report-resolver/internal/middleware"
	"github.com/otcheredev/report-resolver/internal/repository"
	"github.com/otcheredev/report-resolver/internal/resolver"
	"github.com/otcheredev/report-resolver/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting Report Resolver")

	// Connect to database (resolution audit log)
	pipelineOpts := []resolver.Option{}
	var auditRepo *repository.AuditRepository
	if cfg.Database.Enabled {
		dbConfig := database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
			LogLevel: cfg.Database.LogLevel,
		}

		if err := database.Connect(dbConfig); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer database.Close()

		auditRepo = repository.NewAuditRepository()
		pipelineOpts = append(pipelineOpts, resolver.WithAudit(auditRepo))
	}

	// Initialize cache
	var cacheImpl cache.Cache
	if cfg.Cache.Enabled && cfg.Cache.Type == "redis" {
		addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		cacheImpl, err = cache.NewRedisCache(addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		log.Info().Msg("Redis cache initialized")
	} else {
		cacheImpl = cache.NewMemoryCache()
		log.Info().Msg("Memory cache initialized")
	}
	pipelineOpts = append(pipelineOpts, resolver.WithCache(cacheImpl, cfg.Cache.TTL))

	// The caller's bearer credential rides in on each request; adapters
	// read it back out of the request context
	creds := adapters.TokenFunc(func(ctx context.Context) (string, error) {
		token, _ := middleware.GetBearerToken(ctx)
		return token, nil
	})

	// Initialize report source adapters, in priority order
	localAdapter := adapters.NewLocalReportAdapter(cfg.Local, creds)
	cachedAdapter := adapters.NewCachedURLAdapter(cacheImpl, cfg.ObjectStore, cfg.Local, creds)
	vendorAdapter := adapters.NewVendorReportAdapter(cfg.Vendor)

	pipeline := resolver.NewPipeline(
		[]adapters.ReportSource{localAdapter, cachedAdapter, vendorAdapter},
		pipelineOpts...,
	)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.Database.Enabled)
	reportsHandler := handlers.NewReportsHandler(pipeline, localAdapter)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints (no authentication required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Report resolution API (requires the caller's bearer credential)
	r.Route("/api/v1/reports", func(r chi.Router) {
		r.Use(middleware.BearerToken)

		r.Get("/resolve", reportsHandler.Resolve)
		r.Get("/status", reportsHandler.Status)
		r.Delete("/cache", reportsHandler.InvalidateCache)

		if auditRepo != nil {
			r.Get("/audits", handlers.NewAuditsHandler(auditRepo).List)
		}
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
