// Command indexer builds the index from the corpus files and writes its
// snapshot, so that the searcher and the interactive driver start from a
// ready index.
//
// Usage:
//
//	go run ./cmd/indexer [--config configs/development.yaml] [--store bolt] [--compression lz4]
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/redis"
)

func main() {
	flags := pflag.NewFlagSet("indexer", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "configs/development.yaml", "path to config file")
	envFile := flags.String("env", ".env", "dotenv file applied before the config")
	storeKind := flags.String("store", "", "snapshot store: file, bolt or redis (overrides config)")
	compression := flags.String("compression", "", "snapshot compression: zstd, lz4 or none (overrides config)")
	verify := flags.Bool("verify", true, "reload the written snapshot and compare fingerprints")
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
	if *storeKind != "" {
		cfg.Indexer.Store = *storeKind
	}
	if *compression != "" {
		cfg.Indexer.Compression = *compression
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer",
		"index_file", cfg.Corpus.IndexFile,
		"lengths_file", cfg.Corpus.LengthsFile,
		"store", cfg.Indexer.Store,
		"compression", cfg.Indexer.Compression,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *verify); err != nil {
		slog.Error("indexing failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, verify bool) error {
	var deps snapshot.Deps
	if cfg.Indexer.Store == "redis" {
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer client.Close()
		deps.Redis = client
	}
	store, err := snapshot.Open(cfg.Indexer, deps)
	if err != nil {
		return fmt.Errorf("opening snapshot store: %w", err)
	}

	engine := indexer.NewEngine(cfg.Indexer, cfg.Corpus, store, nil)
	defer engine.Close()
	if err := engine.Rebuild(ctx); err != nil {
		return err
	}
	built := engine.Info()

	if verify {
		header, err := engine.Verify(ctx)
		if err != nil {
			return err
		}
		slog.Info("snapshot verified",
			"compression", header.Compression.String(),
			"raw_bytes", header.RawSize,
			"stored_bytes", header.PayloadSize,
		)
	}

	slog.Info("indexing complete",
		"documents", built.Documents,
		"terms", built.Terms,
		"norms", built.Norms,
		"fingerprint", built.Fingerprint,
	)
	return nil
}
