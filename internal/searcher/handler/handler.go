// Package handler serves search and evaluation over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/logger"
)

type SearchExecutor interface {
	Execute(ctx context.Context, req executor.Request) (*executor.Result, bool, error)
}

// IndexAdmin exposes the loaded index.
type IndexAdmin interface {
	Info() indexer.Info
	Rebuild(ctx context.Context) error
}

type CacheAdmin interface {
	Stats() (hits, misses int64)
	Invalidate(ctx context.Context) error
}

// RunStore persists evaluated searches.
type RunStore interface {
	Save(ctx context.Context, run evaluation.Run) (int64, error)
	Recent(ctx context.Context, limit int) ([]evaluation.Run, error)
}

// Options are the optional collaborators; nil disables the matching
// endpoints or side effects.
type Options struct {
	Index        IndexAdmin
	Cache        CacheAdmin
	Runs         RunStore
	DefaultLimit int
}

type Handler struct {
	executor SearchExecutor
	eval     *corpus.Evaluation
	feedback *query.Feedback
	opts     Options
	logger   *slog.Logger
}

func New(exec SearchExecutor, eval *corpus.Evaluation, opts Options) *Handler {
	if eval == nil {
		eval = &corpus.Evaluation{}
	}
	relevant, irrelevant := corpus.SplitFeedback(eval.Feedback)
	return &Handler{
		executor: exec,
		eval:     eval,
		feedback: &query.Feedback{Relevant: relevant, Irrelevant: irrelevant},
		opts:     opts,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Routes registers every endpoint the handler serves on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	if h.opts.Index != nil {
		mux.HandleFunc("GET /api/v1/index", h.IndexInfo)
		mux.HandleFunc("POST /api/v1/index/rebuild", h.Rebuild)
	}
	if h.opts.Cache != nil {
		mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
		mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	}
	if h.opts.Runs != nil {
		mux.HandleFunc("GET /api/v1/runs", h.RecentRuns)
	}
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	RunID       int64                 `json:"run_id,omitempty"`
	Query       string                `json:"query"`
	QueryVector map[string]float64    `json:"query_vector"`
	Feedback    bool                  `json:"feedback"`
	JudgmentSet string                `json:"judgment_set"`
	CacheHit    bool                  `json:"cache_hit"`
	Skipped     []executor.SkippedDoc `json:"skipped"`
	Report      *evaluation.Report    `json:"report"`
}

// Search serves GET /api/v1/search?q=&feedback=&judgments=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	received := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	params := r.URL.Query()

	tokens := strings.Fields(params.Get("q"))
	if len(tokens) == 0 {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	useFeedback := false
	if v := params.Get("feedback"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "feedback must be true or false")
			return
		}
		useFeedback = parsed
	}

	// Feedback runs are judged against the set without the feedback
	// documents unless the caller asks otherwise.
	set := params.Get("judgments")
	if set == "" {
		set = corpus.SetRelevant
		if useFeedback {
			set = corpus.SetRelevantNoFeedback
		}
	}
	ids, ok := h.eval.Judgments(set)
	if !ok {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown judgment set %q", set))
		return
	}

	limit := h.opts.DefaultLimit
	if v := params.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	req := executor.Request{
		Tokens:      tokens,
		Judgments:   evaluation.NewJudgments(ids),
		JudgmentSet: set,
		Received:    received,
	}
	if useFeedback {
		req.Feedback = h.feedback
	}

	result, cacheHit, err := h.executor.Execute(ctx, req)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			log.Error("search failed", "query", tokens, "error", err)
		}
		h.writeError(w, status, err.Error())
		return
	}

	resp := SearchResponse{
		Query:       strings.Join(tokens, " "),
		QueryVector: result.Query,
		Feedback:    useFeedback,
		JudgmentSet: set,
		CacheHit:    cacheHit,
		Skipped:     result.Skipped,
		Report:      trimRows(result.Report, limit),
	}
	if h.opts.Runs != nil {
		id, err := h.opts.Runs.Save(ctx, evaluation.Run{
			Query:       resp.Query,
			Feedback:    useFeedback,
			JudgmentSet: set,
			Report:      result.Report,
		})
		if err != nil {
			log.Warn("evaluation run not saved", "error", err)
		}
		resp.RunID = id
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// trimRows returns r with at most limit rows. The summary fields still
// describe the full ranking.
func trimRows(r *evaluation.Report, limit int) *evaluation.Report {
	if limit <= 0 || len(r.Rows) <= limit {
		return r
	}
	trimmed := *r
	trimmed.Rows = r.Rows[:limit]
	return &trimmed
}

// IndexInfo serves GET /api/v1/index.
func (h *Handler) IndexInfo(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.opts.Index.Info())
}

// Rebuild serves POST /api/v1/index/rebuild. Cached results are keyed by
// the index fingerprint, so a rebuild never serves stale results; the
// cache is still flushed to free the old entries.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.opts.Index.Rebuild(ctx); err != nil {
		logger.FromContext(ctx).Error("index rebuild failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	if h.opts.Cache != nil {
		if err := h.opts.Cache.Invalidate(ctx); err != nil {
			logger.FromContext(ctx).Warn("cache not flushed after rebuild", "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, h.opts.Index.Info())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	hits, misses := h.opts.Cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.opts.Cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// RecentRuns serves GET /api/v1/runs?limit=.
func (h *Handler) RecentRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 500 {
			h.writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}
	runs, err := h.opts.Runs.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("listing runs failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "listing runs failed")
		return
	}
	h.writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
