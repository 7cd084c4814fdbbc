// Command vectorsearch is the interactive search and evaluation driver.
//
// It loads the index (building it from the corpus files when no snapshot
// exists) and then reads commands from standard input:
//
//	> -q information retrieval -r data/relevant.txt
//	> -q information retrieval -f data/feedback.txt -r data/relevant_nofback.txt
//
// Each command prints the ranking with precision and recall at every rank,
// the 11-point interpolated precision table, and the mean average precision.
// Logs go to standard error.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/repl"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/logger"
)

func main() {
	flags := pflag.NewFlagSet("vectorsearch", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "path to config file (defaults match the data/ layout)")
	envFile := flags.String("env", ".env", "dotenv file applied before the config")
	rebuild := flags.Bool("rebuild", false, "rebuild the index even when a snapshot exists")
	logLevel := flags.String("log-level", "warn", "log level on standard error")
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
	if *rebuild {
		cfg.Indexer.Rebuild = true
	}
	logger.SetupWriter(os.Stderr, *logLevel, cfg.Logging.Format)

	// Interrupts keep their default behaviour so that Ctrl-C leaves a
	// prompt blocked on standard input; Ctrl-D ends the session normally.
	if err := run(context.Background(), cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	start := time.Now()
	if cfg.Indexer.Store == "redis" {
		slog.Warn("redis snapshot store is not used interactively, falling back to file")
		cfg.Indexer.Store = "file"
	}
	store, err := snapshot.Open(cfg.Indexer, snapshot.Deps{})
	if err != nil {
		return fmt.Errorf("opening snapshot store: %w", err)
	}
	engine := indexer.NewEngine(cfg.Indexer, cfg.Corpus, store, nil)
	defer engine.Close()
	if err := engine.Open(ctx); err != nil {
		return fmt.Errorf("loading index: %w", err)
	}
	eval, err := corpus.LoadEvaluation(ctx, cfg.Corpus)
	if err != nil {
		return fmt.Errorf("loading judgments: %w", err)
	}
	fmt.Printf("Done: %dms.\n\n", time.Since(start).Milliseconds())

	params := query.Params{Alpha: cfg.Rocchio.Alpha, Beta: cfg.Rocchio.Beta, Gamma: cfg.Rocchio.Gamma}
	exec := executor.New(engine, params, executor.Options{Timeout: cfg.Search.Timeout})
	return repl.NewSession(exec, cfg.Corpus, eval).Run(ctx, os.Stdin, os.Stdout)
}
