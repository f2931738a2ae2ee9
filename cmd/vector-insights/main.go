package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/radiusdt/vector-insights/internal/config"
	"github.com/radiusdt/vector-insights/internal/database"
	"github.com/radiusdt/vector-insights/internal/httpserver"
	"github.com/radiusdt/vector-insights/internal/metrics"
	"github.com/radiusdt/vector-insights/internal/middleware"
	"github.com/radiusdt/vector-insights/internal/reporting"
	"github.com/radiusdt/vector-insights/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.LogFormat())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting Vector-Insights",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
		zap.String("storage", cfg.Storage.Backend),
	)
	if !cfg.Auth.Enabled && !cfg.IsDevelopment() {
		logger.Warn("API key auth is disabled", zap.Bool("production", cfg.IsProduction()))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("vector_insights", reg)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	checks := make(map[string]httpserver.HealthCheck)
	repos := storage.NewInMemoryRepos()

	// Primary store
	var db *database.PostgresDB
	if cfg.Storage.Backend == config.BackendPostgres {
		db, err = database.NewPostgresDB(startCtx, cfg.Database, logger)
		if err != nil {
			logger.Warn("PostgreSQL not available, using in-memory storage", zap.Error(err))
			db = nil
		} else {
			defer db.Close()
			if cfg.Storage.AutoMigrate {
				if err := storage.EnsurePostgresSchema(startCtx, db.Pool); err != nil {
					logger.Fatal("failed to migrate PostgreSQL schema", zap.Error(err))
				}
			}
			repos = storage.NewPostgresRepos(db.Pool)
			checks["postgres"] = db.Health
		}
	}

	// Daily metrics may live in ClickHouse instead
	if cfg.ClickHouse.Enabled {
		ch, err := database.NewClickHouseDB(startCtx, cfg.ClickHouse, logger)
		if err != nil {
			logger.Warn("ClickHouse not available, daily metrics stay on the primary store", zap.Error(err))
		} else {
			defer ch.Close()
			chRepo := storage.NewClickHouseMetricsRepo(ch.DB)
			if cfg.Storage.AutoMigrate {
				if err := chRepo.EnsureSchema(startCtx); err != nil {
					logger.Fatal("failed to migrate ClickHouse schema", zap.Error(err))
				}
			}
			repos.Metrics = chRepo
			checks["clickhouse"] = ch.Health
		}
	}

	if cfg.Storage.SeedFile != "" {
		snap, err := reporting.ReadSnapshotFile(cfg.Storage.SeedFile)
		if err != nil {
			logger.Fatal("failed to read seed file", zap.String("path", cfg.Storage.SeedFile), zap.Error(err))
		}
		if err := reporting.Seed(startCtx, repos, snap); err != nil {
			logger.Fatal("failed to seed storage", zap.Error(err))
		}
		logger.Info("storage seeded",
			zap.String("path", cfg.Storage.SeedFile),
			zap.Int("campaigns", len(snap.Campaigns)),
			zap.Int("metrics", len(snap.Metrics)),
			zap.Int("sales", len(snap.Sales)),
		)
	}

	// Report cache
	var cache reporting.ReportCache = reporting.NoopCache{}
	if cfg.Cache.Enabled {
		rdb, err := database.NewRedisDB(startCtx, cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis not available, report caching disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			cache = reporting.NewRedisReportCache(rdb.Client, cfg.Cache.Prefix, cfg.Cache.TTL)
			checks["redis"] = rdb.Health
		}
	}

	svc := reporting.NewService(reporting.NewSnapshotLoader(repos), cache, m, logger)
	svc.SetLocation(cfg.Location())

	limiter := middleware.NewRateLimitMiddleware(cfg.RateLimit, logger)
	limiter.SetMetrics(m)

	handler := httpserver.NewServer(&httpserver.Dependencies{
		Config:      cfg,
		Logger:      logger,
		Metrics:     m,
		Gatherer:    reg,
		Service:     svc,
		RateLimiter: limiter,
		Checks:      checks,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Housekeeping
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				limiter.CleanupIPLimiters()
				if db != nil {
					db.ReportStats(m)
				}
			}
		}
	}()

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	close(done)

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
