package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/config"
	pkgredis "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/redis"
)

func TestBuildKeyIgnoresTokenOrderAndCase(t *testing.T) {
	a := executor.Request{Tokens: []string{"Cat", "dog", "cat"}}
	b := executor.Request{Tokens: []string{"dog", "CAT"}}
	if BuildKey("fp", a) != BuildKey("fp", b) {
		t.Error("equivalent token lists should share a key")
	}
}

func TestBuildKeyDistinguishesInputs(t *testing.T) {
	base := executor.Request{Tokens: []string{"cat"}, JudgmentSet: "relevant"}
	variants := map[string]executor.Request{
		"feedback":    {Tokens: []string{"cat"}, JudgmentSet: "relevant", Feedback: &query.Feedback{Relevant: []string{"A"}}},
		"judgmentSet": {Tokens: []string{"cat"}, JudgmentSet: "relevant_nofback"},
		"judgments":   {Tokens: []string{"cat"}, JudgmentSet: "relevant", Judgments: evaluation.NewJudgments([]string{"A"})},
		"tokens":      {Tokens: []string{"dog"}, JudgmentSet: "relevant"},
	}
	baseKey := BuildKey("fp", base)
	if BuildKey("other-fp", base) == baseKey {
		t.Error("fingerprint should change the key")
	}
	for name, req := range variants {
		if BuildKey("fp", req) == baseKey {
			t.Errorf("%s should change the key", name)
		}
	}
}

func TestBuildKeyFeedbackOrder(t *testing.T) {
	a := executor.Request{Feedback: &query.Feedback{Relevant: []string{"A", "B"}, Irrelevant: []string{"C"}}}
	b := executor.Request{Feedback: &query.Feedback{Relevant: []string{"B", "A"}, Irrelevant: []string{"C"}}}
	if BuildKey("fp", a) != BuildKey("fp", b) {
		t.Error("feedback id order should not change the key")
	}
}

func newTestCache(t *testing.T) *QueryCache {
	t.Helper()
	cfg := config.RedisConfig{Addr: "localhost:6379", PoolSize: 2, CacheTTL: time.Minute}
	client, err := pkgredis.NewClient(cfg)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	c := New(client, cfg, nil)
	if err := c.Invalidate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestGetOrComputeRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	req := executor.Request{Tokens: []string{"cat"}, JudgmentSet: "relevant"}

	var calls atomic.Int32
	compute := func() (*executor.Result, error) {
		calls.Add(1)
		return &executor.Result{
			Query:  map[string]float64{"cat": 1},
			Ranked: []ranker.ScoredDoc{{DocID: "A", Score: 1}},
			Report: evaluation.Evaluate([]ranker.ScoredDoc{{DocID: "A", Score: 1}}, evaluation.NewJudgments([]string{"A"}), time.Millisecond),
		}, nil
	}

	if _, hit, err := c.GetOrCompute(ctx, "fp", req, compute); err != nil || hit {
		t.Fatalf("first call: hit=%v err=%v", hit, err)
	}
	got, hit, err := c.GetOrCompute(ctx, "fp", req, compute)
	if err != nil || !hit {
		t.Fatalf("second call: hit=%v err=%v", hit, err)
	}
	if calls.Load() != 1 {
		t.Errorf("compute ran %d times, want 1", calls.Load())
	}
	if len(got.Ranked) != 1 || got.Ranked[0].DocID != "A" {
		t.Errorf("cached Ranked = %v", got.Ranked)
	}
	if got.Report.TotalResults != 1 {
		t.Errorf("cached report TotalResults = %d, want 1", got.Report.TotalResults)
	}
	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats() = (%d, %d), want (1, 1)", hits, misses)
	}
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := newTestCache(t)
	wantErr := errors.New("boom")
	var calls int
	compute := func() (*executor.Result, error) {
		calls++
		return nil, wantErr
	}
	req := executor.Request{Tokens: []string{"dog"}}
	for i := 0; i < 2; i++ {
		if _, _, err := c.GetOrCompute(context.Background(), "fp", req, compute); !errors.Is(err, wantErr) {
			t.Fatalf("err = %v, want %v", err, wantErr)
		}
	}
	if calls != 2 {
		t.Errorf("compute ran %d times, want 2", calls)
	}
}
