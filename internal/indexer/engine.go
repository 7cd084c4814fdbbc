package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/metrics"
)

// Index sources reported by Info.
const (
	SourceSnapshot = "snapshot"
	SourceBuild    = "build"
)

// Info describes the currently loaded index.
type Info struct {
	Source      string    `json:"source"`
	Fingerprint string    `json:"fingerprint"`
	Documents   int       `json:"documents"`
	Terms       int       `json:"terms"`
	Norms       int       `json:"norms"`
	LoadedAt    time.Time `json:"loaded_at"`
}

// Engine owns the loaded Index. It loads it from a snapshot when one
// exists and otherwise builds it from the corpus files and saves a snapshot.
// A loaded index is never mutated; Rebuild swaps in a new one.
type Engine struct {
	cfg     config.IndexerConfig
	corpus  config.CorpusConfig
	store   snapshot.Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	// rebuildMu serializes Rebuild so that only one build writes the
	// snapshot at a time.
	rebuildMu sync.Mutex

	mu   sync.RWMutex
	idx  *index.Index
	info Info
}

// NewEngine creates an Engine. m may be nil.
func NewEngine(cfg config.IndexerConfig, corpusCfg config.CorpusConfig, store snapshot.Store, m *metrics.Metrics) *Engine {
	return &Engine{
		cfg:     cfg,
		corpus:  corpusCfg,
		store:   store,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
}

// Open loads the index. A missing snapshot, or cfg.Rebuild, falls back to
// a build; a corrupt snapshot is an error.
func (e *Engine) Open(ctx context.Context) error {
	if e.cfg.Rebuild {
		e.logger.Info("rebuild requested, ignoring existing snapshot")
		return e.Rebuild(ctx)
	}
	err := e.loadSnapshot(ctx)
	if errors.Is(err, apperrors.ErrSnapshotNotFound) {
		e.logger.Info("no snapshot found, building index from corpus", "snapshot", e.cfg.SnapshotName)
		return e.Rebuild(ctx)
	}
	return err
}

func (e *Engine) loadSnapshot(ctx context.Context) error {
	start := time.Now()
	data, err := e.store.Load(ctx, e.cfg.SnapshotName)
	if err != nil {
		if !errors.Is(err, apperrors.ErrSnapshotNotFound) {
			e.recordLoad(SourceSnapshot, "error")
		}
		return err
	}
	idx, h, err := snapshot.Decode(data)
	if err != nil {
		e.recordLoad(SourceSnapshot, "error")
		return fmt.Errorf("decoding snapshot %q: %w", e.cfg.SnapshotName, err)
	}
	if err := e.install(idx, SourceSnapshot); err != nil {
		return err
	}
	e.recordLoad(SourceSnapshot, "ok")
	e.logger.Info("index loaded from snapshot",
		"snapshot", e.cfg.SnapshotName,
		"bytes", len(data),
		"compression", h.Compression.String(),
		"created_at", time.Unix(h.CreatedAt, 0).UTC(),
		"documents", idx.NumDocuments(),
		"terms", idx.Dictionary().Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Rebuild builds the index from the corpus files, saves a snapshot, and
// makes it current. Concurrent calls run one after another.
func (e *Engine) Rebuild(ctx context.Context) error {
	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()

	start := time.Now()
	idx, stats, err := e.build(ctx)
	if err != nil {
		e.recordLoad(SourceBuild, "error")
		return err
	}
	if err := e.save(ctx, idx); err != nil {
		e.recordLoad(SourceBuild, "error")
		return err
	}
	if err := e.install(idx, SourceBuild); err != nil {
		return err
	}
	e.recordLoad(SourceBuild, "ok")
	e.logger.Info("index built",
		"frequency_rows", stats.Rows,
		"duplicate_rows", stats.DuplicateRows,
		"duplicate_lengths", stats.DuplicateLengths,
		"terms", stats.Terms,
		"documents", stats.Documents,
		"norms", stats.Norms,
		"missing_norms", len(stats.Validation.MissingNorms),
		"orphan_norms", len(stats.Validation.OrphanNorms),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (e *Engine) build(ctx context.Context) (*index.Index, index.BuildStats, error) {
	src, err := corpus.LoadSources(ctx, e.corpus)
	if err != nil {
		return nil, index.BuildStats{}, fmt.Errorf("loading corpus: %w", err)
	}
	band := index.Band{Min: e.cfg.MinDocFreq, Max: e.cfg.MaxDocFreq}
	idx, stats, err := index.NewBuilder(band).Build(src.Frequencies, src.Lengths)
	if err != nil {
		return nil, stats, fmt.Errorf("building index: %w", err)
	}
	return idx, stats, nil
}

func (e *Engine) save(ctx context.Context, idx *index.Index) error {
	comp, err := snapshot.ParseCompression(e.cfg.Compression)
	if err != nil {
		return err
	}
	data, err := snapshot.Encode(idx, comp)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := e.store.Save(ctx, e.cfg.SnapshotName, data); err != nil {
		return fmt.Errorf("saving snapshot %q: %w", e.cfg.SnapshotName, err)
	}
	e.logger.Info("snapshot saved", "snapshot", e.cfg.SnapshotName, "bytes", len(data))
	return nil
}

func (e *Engine) install(idx *index.Index, source string) error {
	fp, err := snapshot.Fingerprint(idx)
	if err != nil {
		return fmt.Errorf("fingerprinting index: %w", err)
	}
	info := Info{
		Source:      source,
		Fingerprint: fp,
		Documents:   idx.NumDocuments(),
		Terms:       idx.Dictionary().Len(),
		Norms:       idx.NumNorms(),
		LoadedAt:    time.Now().UTC(),
	}
	e.mu.Lock()
	e.idx = idx
	e.info = info
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.IndexDocuments.Set(float64(info.Documents))
		e.metrics.IndexTerms.Set(float64(info.Terms))
	}
	return nil
}

// Verify reads the saved snapshot back and checks that it decodes to the
// current index. A snapshot that does not is deleted so that the next Open
// rebuilds instead of failing on it.
func (e *Engine) Verify(ctx context.Context) (snapshot.Header, error) {
	_, info := e.Current()
	data, err := e.store.Load(ctx, e.cfg.SnapshotName)
	if err != nil {
		return snapshot.Header{}, fmt.Errorf("reading snapshot back: %w", err)
	}
	idx, h, err := snapshot.Decode(data)
	if err == nil {
		var fp string
		fp, err = snapshot.Fingerprint(idx)
		if err == nil && fp != info.Fingerprint {
			err = fmt.Errorf("snapshot fingerprint %s does not match index %s: %w",
				fp, info.Fingerprint, apperrors.ErrCorruptSnapshot)
		}
	}
	if err == nil {
		return h, nil
	}
	e.logger.Error("snapshot failed verification, deleting it", "snapshot", e.cfg.SnapshotName, "error", err)
	if delErr := e.store.Delete(ctx, e.cfg.SnapshotName); delErr != nil {
		e.logger.Error("failed to delete snapshot", "snapshot", e.cfg.SnapshotName, "error", delErr)
	}
	return snapshot.Header{}, fmt.Errorf("verifying snapshot %q: %w", e.cfg.SnapshotName, err)
}

func (e *Engine) recordLoad(source, status string) {
	if e.metrics != nil {
		e.metrics.IndexLoadsTotal.WithLabelValues(source, status).Inc()
	}
}

// Index returns the current index, or nil before Open succeeds.
func (e *Engine) Index() *index.Index {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx
}

// Current returns the current index together with its Info, read under a
// single lock so the two always describe the same index.
func (e *Engine) Current() (*index.Index, Info) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx, e.info
}

// Info describes the current index.
func (e *Engine) Info() Info {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.info
}

// Ready reports whether an index has been loaded.
func (e *Engine) Ready() bool {
	return e.Index() != nil
}

func (e *Engine) Close() error {
	return e.store.Close()
}
