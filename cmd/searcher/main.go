// Command searcher serves ranked, evaluated searches over HTTP.
//
// It loads the index from its snapshot (building and saving one when none
// exists), then answers GET /api/v1/search. Redis caches results, Kafka
// receives one evaluation event per search, and PostgreSQL keeps every
// evaluated run; each backend is optional and the service starts without it.
//
// Usage:
//
//	go run ./cmd/searcher [--config configs/development.yaml]
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
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/resilience"
)

var connectRetry = resilience.RetryConfig{MaxAttempts: 3}

func main() {
	flags := pflag.NewFlagSet("searcher", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "configs/development.yaml", "path to config file")
	envFile := flags.String("env", ".env", "dotenv file applied before the config")
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
	slog.Info("starting search service", "port", cfg.Server.Port, "store", cfg.Indexer.Store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	checker := health.NewChecker()

	var redisClient *pkgredis.Client
	err = resilience.Retry(ctx, "redis-connect", connectRetry, func() error {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		return err
	})
	if err != nil {
		slog.Warn("redis unavailable, result caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		checker.Register("redis", health.PingCheck(redisClient, true))
	}

	store, err := snapshot.Open(cfg.Indexer, snapshot.Deps{Redis: redisClient})
	if err != nil {
		slog.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}
	engine := indexer.NewEngine(cfg.Indexer, cfg.Corpus, store, m)
	defer engine.Close()
	if err := engine.Open(ctx); err != nil {
		slog.Error("failed to load index", "error", err)
		os.Exit(1)
	}
	checker.Register("index", health.ReadyCheck(engine.Ready, "index not loaded"))

	eval, err := corpus.LoadEvaluation(ctx, cfg.Corpus)
	if err != nil {
		slog.Error("failed to load judgments", "error", err)
		os.Exit(1)
	}

	execOpts := executor.Options{Metrics: m, Timeout: cfg.Search.Timeout}
	handlerOpts := handler.Options{Index: engine, DefaultLimit: cfg.Search.DefaultLimit}

	if cfg.Search.CacheEnabled && redisClient != nil {
		breaker := resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
			OnStateChange: func(name string, to resilience.State) {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			},
		})
		queryCache := cache.New(redisClient, cfg.Redis, breaker)
		execOpts.Cache = queryCache
		handlerOpts.Cache = queryCache
		slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.EvaluationEvents)
		defer producer.Close()
		collector := analytics.NewCollector(producer, cfg.Search.EventBufferSize)
		collector.Start(ctx)
		defer collector.Close()
		execOpts.Events = collector
		checker.Register("kafka", health.PingCheck(producer, true))
		slog.Info("evaluation events enabled", "topic", cfg.Kafka.Topics.EvaluationEvents)
	}

	var pg *postgres.Client
	err = resilience.Retry(ctx, "postgres-connect", connectRetry, func() error {
		pg, err = postgres.New(cfg.Postgres)
		return err
	})
	if err != nil {
		slog.Warn("postgres unavailable, evaluation runs will not be stored", "error", err)
	} else {
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		handlerOpts.Runs = evaluation.NewStore(pg)
		checker.Register("postgres", health.PingCheck(pg, true))
	}

	params := query.Params{Alpha: cfg.Rocchio.Alpha, Beta: cfg.Rocchio.Beta, Gamma: cfg.Rocchio.Gamma}
	exec := executor.New(engine, params, execOpts)
	searchHandler := handler.New(exec, eval, handlerOpts)

	mux := http.NewServeMux()
	searchHandler.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var limiter *middleware.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
		go limiter.Cleanup(ctx, 5*time.Minute)
	}

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Tracing(cfg.Tracing.Enabled),
		middleware.CORS(middleware.DefaultCORSConfig()),
		middleware.Metrics(m),
		middleware.RateLimit(limiter),
		middleware.Timeout(cfg.Server.WriteTimeout),
	)

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
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

	info := engine.Info()
	slog.Info("search service listening",
		"addr", server.Addr,
		"index_source", info.Source,
		"documents", info.Documents,
		"terms", info.Terms,
		"fingerprint", info.Fingerprint,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}
