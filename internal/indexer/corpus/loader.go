package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/config"
)

// Sources are the two tables an index is built from.
type Sources struct {
	Frequencies []index.FrequencyRecord
	Lengths     []index.LengthRecord
}

// Evaluation holds the judgment sets and feedback used when scoring
// searches. A file whose configured path is empty is left unset.
type Evaluation struct {
	Relevant           []string
	RelevantNoFeedback []string
	Feedback           []FeedbackRecord
}

// Judgment set names.
const (
	SetRelevant           = "relevant"
	SetRelevantNoFeedback = "relevant_nofback"
)

// Judgments returns the named judgment set.
func (e *Evaluation) Judgments(set string) ([]string, bool) {
	switch set {
	case SetRelevant:
		return e.Relevant, true
	case SetRelevantNoFeedback:
		return e.RelevantNoFeedback, true
	}
	return nil, false
}

// LoadSources reads the frequency and length tables concurrently.
func LoadSources(ctx context.Context, cfg config.CorpusConfig) (*Sources, error) {
	logger := slog.Default().With("component", "corpus")
	start := time.Now()

	var src Sources
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := readFile(cfg.IndexFile, ReadFrequencyTable)
		src.Frequencies = recs
		return err
	})
	g.Go(func() error {
		recs, err := readFile(cfg.LengthsFile, ReadLengths)
		src.Lengths = recs
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("corpus sources loaded",
		"frequency_rows", len(src.Frequencies),
		"lengths", len(src.Lengths),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &src, nil
}

// LoadEvaluation reads the judgment and feedback files concurrently.
func LoadEvaluation(ctx context.Context, cfg config.CorpusConfig) (*Evaluation, error) {
	var ev Evaluation
	g, _ := errgroup.WithContext(ctx)
	if cfg.RelevantFile != "" {
		g.Go(func() error {
			ids, err := ReadJudgmentsFile(cfg.RelevantFile)
			ev.Relevant = ids
			return err
		})
	}
	if cfg.RelevantNoFeedbackFile != "" {
		g.Go(func() error {
			ids, err := ReadJudgmentsFile(cfg.RelevantNoFeedbackFile)
			ev.RelevantNoFeedback = ids
			return err
		})
	}
	if cfg.FeedbackFile != "" {
		g.Go(func() error {
			recs, err := ReadFeedbackFile(cfg.FeedbackFile)
			ev.Feedback = recs
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Default().With("component", "corpus").Info("evaluation data loaded",
		"relevant", len(ev.Relevant),
		"relevant_no_feedback", len(ev.RelevantNoFeedback),
		"feedback", len(ev.Feedback),
	)
	return &ev, nil
}

// ReadJudgmentsFile reads a judgment file from disk.
func ReadJudgmentsFile(path string) ([]string, error) {
	return readFile(path, ReadJudgments)
}

// ReadFeedbackFile reads a feedback file from disk.
func ReadFeedbackFile(path string) ([]FeedbackRecord, error) {
	return readFile(path, ReadFeedback)
}

func readFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	v, err := parse(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
