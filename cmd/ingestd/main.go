// Command ingestd runs the campground catalog ingestion service: an HTTP
// trigger surface around the pipeline plus the recurring schedule.
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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/campwatch/campground-ingest/pkg/config"
	"github.com/campwatch/campground-ingest/pkg/dyrt"
	"github.com/campwatch/campground-ingest/pkg/geocode"
	"github.com/campwatch/campground-ingest/pkg/ingest"
	"github.com/campwatch/campground-ingest/pkg/logging"
	"github.com/campwatch/campground-ingest/pkg/runner"
	"github.com/campwatch/campground-ingest/pkg/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup(logging.DefaultConfig())
		fatalLogger := logging.NewLogger("ingestd")
		fatalLogger.Fatal().Err(err).Msg("Invalid configuration")
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.File = cfg.LogFile
	logging.Setup(logCfg)
	logger := logging.NewLogger("ingestd")

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open Postgres pool")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Postgres")
	}
	if err := store.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ensure schema")
	}
	logger.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("Connected to Postgres")

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, geocode cache disabled")
			redisClient = nil
		}
	}

	fetcherCfg := dyrt.DefaultConfig(cfg.SearchEndpoint, cfg.BoundingBox())
	fetcherCfg.PageSize = cfg.PageSize
	fetcher, err := dyrt.New(fetcherCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create catalog client")
	}

	geocoder := geocode.New(redisClient)

	ingestCfg := ingest.DefaultConfig()
	ingestCfg.MaxConcurrency = cfg.MaxConcurrency

	bbox := cfg.BoundingBox()
	runFn := func(runCtx context.Context) error {
		lat, lon := bbox.Center()
		if area := geocoder.Describe(runCtx, lat, lon); area != "" {
			logger.Info().Str("area", area).Msg("Ingesting campgrounds for area")
		}

		sink := store.NewPostgres(pool)
		return ingest.New(fetcher, sink, ingestCfg).Run(runCtx)
	}

	registry := runner.NewRegistry(runFn)
	scheduler := runner.NewScheduler(registry, cfg.ScheduleInterval, cfg.ScheduleInitialDelay)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	bot := router.Group("/bot")
	bot.POST("/start", func(c *gin.Context) {
		if err := registry.Start(); err != nil {
			if errors.Is(err, runner.ErrAlreadyRunning) {
				c.JSON(http.StatusOK, gin.H{"status": "already running"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
			return
		}
		scheduler.Start()
		c.JSON(http.StatusOK, gin.H{"status": "started"})
	})
	bot.POST("/stop", func(c *gin.Context) {
		stopped := registry.Stop()
		scheduler.Stop()
		if !stopped {
			logger.Info().Msg("No active run to stop, schedule removed")
		}
		c.JSON(http.StatusOK, gin.H{"status": "stopping"})
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Starting trigger server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down")
	scheduler.Stop()
	registry.Stop()
	registry.Wait()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Server shutdown failed")
	}
}
