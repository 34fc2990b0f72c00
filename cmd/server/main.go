// Package main is the entry point for the ledgertree report API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/redis/go-redis/v9"

	"ledgertree/internal/domain/reports"
	"ledgertree/internal/infrastructure/cache"
	v1 "ledgertree/internal/infrastructure/http/v1"
	"ledgertree/internal/infrastructure/storage/postgres"
	"ledgertree/internal/infrastructure/storage/postgres/report_repo"
	"ledgertree/pkg/logger"
)

const version = "0.1.0"

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting ledgertree server", "version", version)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	poolCfg.ApplicationName = "ledgertree-server"
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	pool.LogStats(ctx)

	txManager := postgres.NewTxManager(pool)

	// --- Report cache (optional) ---
	var reportCache reports.Cache
	var cachePinger interface{ Ping(context.Context) error }
	if addr := getEnv("REDIS_ADDR", ""); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		})
		defer client.Close()

		rc, err := cache.NewReportCache(client, getEnvDuration("REPORT_CACHE_TTL", cache.DefaultTTL))
		if err != nil {
			log.Fatalw("failed to create report cache", "error", err)
		}
		defer rc.Close()

		if err := rc.Ping(ctx); err != nil {
			log.Warnw("redis unreachable, reports will be computed until it recovers", "addr", addr, "error", err)
		}
		reportCache, cachePinger = rc, rc
		log.Infow("report cache enabled", "addr", addr)
	} else {
		log.Info("REDIS_ADDR not set, report cache disabled")
	}

	// --- Reports ---
	service := reports.NewService(reports.ServiceConfig{
		Repo:      report_repo.NewReportRepo(txManager),
		TxManager: txManager,
		Cache:     reportCache,
	})

	router := v1.NewRouter(v1.RouterConfig{
		Logger:  log,
		Reports: service,
		DB:      pool,
		Cache:   cachePinger,
		Version: version,
		Debug:   getEnv("APP_ENV", "development") == "development",
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      gzhttp.GzipHandler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
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
