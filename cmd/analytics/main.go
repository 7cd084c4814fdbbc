// Command analytics aggregates the evaluation events published by the
// searcher.
//
// It consumes the evaluation-events topic, keeps running statistics (mean
// average precision overall and per judgment set, latency percentiles,
// zero-result and top queries), snapshots them to PostgreSQL, and serves
// them at GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [--config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/resilience"
)

func main() {
	flags := pflag.NewFlagSet("analytics", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "configs/development.yaml", "path to config file")
	envFile := flags.String("env", ".env", "dotenv file applied before the config")
	snapshotEvery := flags.Duration("snapshot-interval", time.Minute, "how often stats are written to postgres")
	flags.Parse(os.Args[1:])

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	checker := health.NewChecker()
	agg := analytics.NewAggregator()
	statsHandler := analytics.NewHandler(agg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", statsHandler.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var pg *postgres.Client
	err = resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{MaxAttempts: 5, InitialDelay: time.Second}, func() error {
		pg, err = postgres.New(cfg.Postgres)
		return err
	})
	if err != nil {
		slog.Warn("postgres unavailable, stats will not be persisted", "error", err)
	} else {
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		store := aggregator.NewStore(pg)
		if latest, err := store.LatestSnapshot(ctx); err != nil {
			slog.Warn("could not restore stats", "error", err)
		} else if latest != nil {
			agg.Restore(*latest)
			slog.Info("stats restored", "total_evaluations", latest.TotalEvaluations)
		}
		store.StartPeriodicSave(ctx, agg, *snapshotEvery)
		mux.HandleFunc("GET /api/v1/analytics/history", store.HistoryHandler())
		checker.Register("postgres", health.PingCheck(pg, true))
	}

	consumerDone := make(chan struct{})
	if cfg.Kafka.Enabled {
		go func() {
			defer close(consumerDone)
			if err := agg.Consume(ctx, cfg.Kafka, cfg.Kafka.Topics.EvaluationEvents); err != nil {
				slog.Error("analytics consumer error", "error", err)
			}
		}()
	} else {
		close(consumerDone)
		slog.Warn("kafka disabled, no evaluation events will be consumed")
	}

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: middleware.Chain(mux,
			middleware.RequestID,
			middleware.CORS(middleware.DefaultCORSConfig()),
			middleware.Metrics(m),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-consumerDone
	slog.Info("analytics service stopped")
}
