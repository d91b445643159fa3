// Package main is the entrypoint for the FieldSight pipeline worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/agromonitor/fieldsight/internal/cache"
	"github.com/agromonitor/fieldsight/internal/config"
	"github.com/agromonitor/fieldsight/internal/jobs"
	"github.com/agromonitor/fieldsight/internal/queue"
	"github.com/agromonitor/fieldsight/internal/satellite"
	"github.com/agromonitor/fieldsight/internal/store"
	"github.com/agromonitor/fieldsight/internal/tiler"
	"github.com/agromonitor/fieldsight/internal/weather"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "pipeline_version", cfg.Pipeline.Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	rabbit, err := queue.Dial(cfg.Queue)
	if err != nil {
		return fmt.Errorf("dial queue: %w", err)
	}
	defer rabbit.Close()
	slog.Info("queue connected", "queue", cfg.Queue.QueueName)

	pgStore := store.NewPostgresStore(pool)
	provider := buildProvider(cfg.Satellite, redisCache)
	tilerClient := tiler.NewHTTPClient(cfg.Tiler.BaseURL, cfg.Tiler.Timeout)
	weatherClient := weather.NewHTTPClient(cfg.Weather.BaseURL, cfg.Weather.Timeout)

	pipeline := jobs.NewPipeline(pgStore, provider, tilerClient, weatherClient, cfg)
	runner := jobs.NewRunner(pgStore)
	pipeline.RegisterHandlers(runner)

	slog.Info("worker consuming", "queue", cfg.Queue.QueueName)
	if err := rabbit.Consume(ctx, runner.Handle); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// buildProvider composes the resilient satellite stack: a caching decorator
// over a breaker-gated fallback chain over raw STAC clients.
func buildProvider(cfg config.SatelliteConfig, c cache.Cache) satellite.Provider {
	primary := satellite.NewSTACClient("primary", cfg.PrimaryURL, cfg.Timeout)
	breaker := satellite.NewCircuitBreaker(cfg.FailureThreshold, cfg.RecoveryTimeout)

	var secondaries []satellite.Provider
	if cfg.SecondaryURL != "" {
		secondaries = append(secondaries, satellite.NewSTACClient("secondary", cfg.SecondaryURL, cfg.Timeout))
	}

	fallback := satellite.NewFallbackProvider(primary, breaker, secondaries...)
	return satellite.NewCachedProvider(fallback, c, cfg.SceneCacheTTL)
}
