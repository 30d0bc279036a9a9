package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/avickers/ttsgate/internal/cache"
	"github.com/avickers/ttsgate/internal/config"
	"github.com/avickers/ttsgate/internal/queue"
	"github.com/avickers/ttsgate/internal/queue/workers"
	"github.com/avickers/ttsgate/internal/tts"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.Addr == "" {
		slog.Error("worker requires REDIS_ADDR")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	audioCache, err := cache.New(rdb, cfg.Redis.CacheKey, cfg.Redis.CacheTTL)
	if err != nil {
		slog.Error("failed to set up cache", "error", err)
		os.Exit(1)
	}

	registry := tts.NewRegistry(ctx, cfg)
	dispatcher := tts.NewDispatcher(registry, audioCache)
	slog.Info("backends registered", "modes", registry.Modes())

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
		},
	)

	registryMux := queue.NewHandlersRegistry()
	prewarmWorker := workers.NewPrewarmWorker(dispatcher)
	registryMux.Register(queue.TypeCachePrewarm, asynq.HandlerFunc(prewarmWorker.ProcessTask))

	slog.Info("starting prewarm worker", "concurrency", 10)
	if err := srv.Run(registryMux.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
