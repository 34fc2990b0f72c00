// Package main is the entry point for the ledgertree cache invalidation
// worker. It listens for ledger changes and bumps the report cache version.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"ledgertree/internal/infrastructure/cache"
	"ledgertree/internal/infrastructure/storage/postgres"
	"ledgertree/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Info("starting ledgertree worker")

	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	poolCfg.ApplicationName = "ledgertree-worker"
	poolCfg.MaxConns = 2
	poolCfg.MinConns = 1
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	client := redis.NewClient(&redis.Options{
		Addr:     mustEnv("REDIS_ADDR"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	})
	defer client.Close()

	reportCache, err := cache.NewReportCache(client, 0)
	if err != nil {
		log.Fatalw("failed to create report cache", "error", err)
	}
	defer reportCache.Close()

	listener := cache.NewChangeListener(pool.Pool, postgres.LedgerChangedChannel,
		getEnvDuration("INVALIDATION_DEBOUNCE", 500*time.Millisecond))
	listener.OnChange(func(ctx context.Context, tables []string) {
		ver, err := reportCache.Bump(ctx)
		if err != nil {
			log.Errorw("failed to bump report cache version", "tables", tables, "error", err)
			return
		}
		log.Infow("report cache invalidated", "tables", tables, "version", ver)
	})
	listener.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	listener.Stop()
	cancel()
	log.Info("worker stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
