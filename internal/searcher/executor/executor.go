package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/tracing"
)

// IndexSource supplies the current index and the Info describing it.
type IndexSource interface {
	Current() (*index.Index, indexer.Info)
}

// ResultCache memoizes results per index fingerprint and request.
type ResultCache interface {
	GetOrCompute(ctx context.Context, fingerprint string, req Request, compute func() (*Result, error)) (*Result, bool, error)
}

// EventTracker receives one event per executed search.
type EventTracker interface {
	Track(event analytics.EvaluationEvent)
}

// Options are the optional collaborators of an Executor; nil fields are
// skipped.
type Options struct {
	Cache   ResultCache
	Metrics *metrics.Metrics
	Events  EventTracker
	Timeout time.Duration
}

// Executor runs Search against the current index with caching, metrics,
// tracing, and event publishing around it.
type Executor struct {
	source IndexSource
	params query.Params
	opts   Options
	logger *slog.Logger
}

func New(source IndexSource, params query.Params, opts Options) *Executor {
	return &Executor{
		source: source,
		params: params,
		opts:   opts,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// Execute runs req. The bool reports whether the result came from the
// cache.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, bool, error) {
	if req.Received.IsZero() {
		req.Received = time.Now()
	}
	ctx, span := tracing.StartChildSpan(ctx, "search.execute")
	defer span.End()
	span.SetAttr("tokens", len(req.Tokens))
	span.SetAttr("feedback", req.Feedback != nil)

	idx, info := e.source.Current()
	if idx == nil {
		return nil, false, apperrors.New(apperrors.ErrSnapshotNotFound, http.StatusServiceUnavailable, "index not loaded")
	}

	compute := func() (*Result, error) {
		var result *Result
		err := resilience.WithTimeout(ctx, e.opts.Timeout, "search", func(context.Context) error {
			r, err := Search(idx, e.params, req)
			result = r
			return err
		})
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	var (
		result   *Result
		cacheHit bool
		err      error
	)
	cacheStatus := "disabled"
	if e.opts.Cache != nil {
		result, cacheHit, err = e.opts.Cache.GetOrCompute(ctx, info.Fingerprint, req, compute)
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		result, err = compute()
	}
	latency := time.Since(req.Received)
	span.SetAttr("cache", cacheStatus)

	log := logger.FromContext(ctx).With("component", "query-executor")
	if err != nil {
		e.record(ctx, req, info, nil, cacheHit, cacheStatus, latency, err)
		log.Warn("search failed",
			"tokens", req.Tokens,
			"judgment_set", req.JudgmentSet,
			"error", err,
		)
		return nil, cacheHit, err
	}

	e.record(ctx, req, info, result, cacheHit, cacheStatus, latency, nil)
	for _, s := range result.Skipped {
		log.Warn("document skipped", "doc_id", s.DocID, "reason", s.Reason)
	}
	log.Info("search executed",
		"tokens", req.Tokens,
		"query_terms", len(result.Query),
		"feedback", req.Feedback != nil,
		"judgment_set", req.JudgmentSet,
		"results", len(result.Ranked),
		"skipped", len(result.Skipped),
		"mean_average_precision", result.Report.MeanAveragePrecision,
		"cache", cacheStatus,
		"latency_ms", latency.Milliseconds(),
	)
	span.SetAttr("results", len(result.Ranked))
	return result, cacheHit, nil
}

func (e *Executor) record(ctx context.Context, req Request, info indexer.Info, result *Result, cacheHit bool, cacheStatus string, latency time.Duration, err error) {
	if m := e.opts.Metrics; m != nil {
		switch {
		case err != nil:
			m.SearchQueriesTotal.WithLabelValues("error").Inc()
		case len(result.Ranked) == 0:
			m.SearchQueriesTotal.WithLabelValues("zero_result").Inc()
		default:
			m.SearchQueriesTotal.WithLabelValues("ok").Inc()
		}
		m.SearchLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
		switch cacheStatus {
		case "hit":
			m.CacheHitsTotal.Inc()
		case "miss":
			m.CacheMissesTotal.Inc()
		}
		if result != nil {
			m.SearchResultsCount.Observe(float64(len(result.Ranked)))
			m.MeanAvgPrecision.Observe(result.Report.MeanAveragePrecision)
			for _, s := range result.Skipped {
				m.SkippedDocuments.WithLabelValues(s.Reason).Inc()
			}
		}
	}

	if e.opts.Events == nil {
		return
	}
	event := analytics.EvaluationEvent{
		Type:             analytics.EventEvaluation,
		RequestID:        logger.RequestID(ctx),
		Query:            strings.Join(req.Tokens, " "),
		Terms:            req.Tokens,
		Feedback:         req.Feedback != nil,
		JudgmentSet:      req.JudgmentSet,
		RelevantTotal:    req.Judgments.Len(),
		LatencyMs:        latency.Milliseconds(),
		CacheHit:         cacheHit,
		IndexFingerprint: info.Fingerprint,
		Timestamp:        time.Now().UTC(),
	}
	if err != nil {
		event.Type = analytics.EventError
		event.Error = err.Error()
	} else {
		event.ResultCount = len(result.Ranked)
		event.MeanAveragePrecision = result.Report.MeanAveragePrecision
		event.SkippedDocs = len(result.Skipped)
	}
	e.opts.Events.Track(event)
}
