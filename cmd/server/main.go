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

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"

	"github.com/riftluck/stats-api/internal/cache"
	"github.com/riftluck/stats-api/internal/config"
	"github.com/riftluck/stats-api/internal/handlers"
	"github.com/riftluck/stats-api/internal/logic"
	"github.com/riftluck/stats-api/internal/store"
	"github.com/riftluck/stats-api/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scoring, err := logic.NewScoringService(cfg.Options(), logger)
	if err != nil {
		return fmt.Errorf("scoring service: %w", err)
	}

	hcfg := handlers.Config{
		Scoring:     scoring,
		Checks:      map[string]handlers.Pinger{},
		FocusPlayer: cfg.FocusPlayer,
		ReportTopN:  cfg.ReportTopN,
		Logger:      logger,
	}

	if cfg.PostgresURL != "" {
		pool, err := store.Connect(ctx, cfg.PostgresURL, int32(cfg.PostgresMaxConns), int32(cfg.PostgresMinConns))
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		records := store.NewRecordStore(pool)
		if err := records.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		hcfg.Records = records
		hcfg.Checks["postgres"] = pool
		sugar.Infow("Record store enabled", "db", "PostgreSQL")
	}

	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()

		runs := cache.NewRedisStore(client, cfg.RunCacheTTL)
		hcfg.Runs = runs
		hcfg.Checks["redis"] = runs
		sugar.Infow("Run cache enabled", "store", "Redis", "ttl", cfg.RunCacheTTL)
	}

	if cfg.ClickHouseURL != "" {
		opts, err := clickhouse.ParseDSN(cfg.ClickHouseURL)
		if err != nil {
			return fmt.Errorf("parse clickhouse url: %w", err)
		}
		conn, err := clickhouse.Open(opts)
		if err != nil {
			return fmt.Errorf("connect clickhouse: %w", err)
		}
		defer conn.Close()

		pool := worker.NewPool(worker.PoolConfig{
			WorkerCount:   cfg.WorkerCount,
			QueueSize:     cfg.QueueSize,
			BatchSize:     cfg.BatchSize,
			FlushInterval: cfg.FlushInterval,
			ClickHouse:    conn,
			Logger:        logger,
		})
		if err := pool.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate clickhouse: %w", err)
		}
		pool.Start(context.Background())
		defer pool.Stop()

		hcfg.Export = pool
		hcfg.Checks["clickhouse"] = conn
		sugar.Infow("Scored row export enabled", "db", "ClickHouse")
	}

	h := handlers.New(hcfg)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h.Routes(cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("Server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sugar.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
