package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/avickers/ttsgate/internal/api"
	"github.com/avickers/ttsgate/internal/cache"
	"github.com/avickers/ttsgate/internal/config"
	"github.com/avickers/ttsgate/internal/database"
	"github.com/avickers/ttsgate/internal/tts"
	"github.com/avickers/ttsgate/internal/usage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Usage database (optional — unset DATABASE_URL disables accounting)
	var db *pgxpool.Pool
	var usageSvc *usage.Service
	if cfg.Database.URL != "" {
		db, err = database.NewPool(ctx, cfg.Database)
		if err != nil {
			slog.Warn("database unavailable, running without usage tracking", "error", err)
		} else {
			defer db.Close()
			if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath); err != nil {
				slog.Warn("migrations failed", "error", err)
			}
			usageSvc = usage.NewService(db)
		}
	}

	// Cache redis (optional — unset REDIS_ADDR means every lookup misses)
	var rdb *redis.Client
	var audioCache *cache.Cache
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unavailable, cache lookups will miss", "error", err)
		}

		audioCache, err = cache.New(rdb, cfg.Redis.CacheKey, cfg.Redis.CacheTTL)
		if err != nil {
			slog.Error("failed to set up cache", "error", err)
			os.Exit(1)
		}
	}

	registry := tts.NewRegistry(ctx, cfg)
	slog.Info("backends registered", "modes", registry.Modes())

	var opts []tts.DispatcherOption
	if usageSvc != nil {
		opts = append(opts, tts.WithUsage(usageSvc))
	}
	dispatcher := tts.NewDispatcher(registry, audioCache, opts...)

	router := api.NewRouter(db, rdb, cfg, dispatcher, usageSvc)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting TTS gateway", "addr", cfg.Addr(), "cache", audioCache != nil)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
