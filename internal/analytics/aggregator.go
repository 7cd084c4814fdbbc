package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/kafka"
)

type AggregatedStats struct {
	TotalEvaluations  int64              `json:"total_evaluations"`
	FailedEvaluations int64              `json:"failed_evaluations"`
	FeedbackSearches  int64              `json:"feedback_searches"`
	CacheHits         int64              `json:"cache_hits"`
	CacheMisses       int64              `json:"cache_misses"`
	ZeroResultCount   int64              `json:"zero_result_count"`
	SkippedDocuments  int64              `json:"skipped_documents"`
	MeanAvgPrecision  float64            `json:"mean_average_precision"`
	MAPByJudgmentSet  map[string]float64 `json:"map_by_judgment_set"`
	AvgLatencyMs      float64            `json:"avg_latency_ms"`
	P50LatencyMs      int64              `json:"p50_latency_ms"`
	P95LatencyMs      int64              `json:"p95_latency_ms"`
	P99LatencyMs      int64              `json:"p99_latency_ms"`
	TopQueries        []QueryCount       `json:"top_queries"`
	ZeroResultQueries []QueryCount       `json:"zero_result_queries"`
	EvalsPerMinute    float64            `json:"evaluations_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

type mapAccumulator struct {
	sum   float64
	count int64
}

// Aggregator folds evaluation events into running statistics.
type Aggregator struct {
	mu                sync.RWMutex
	stats             AggregatedStats
	mapTotal          mapAccumulator
	mapBySet          map[string]*mapAccumulator
	latencies         []int64
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	startTime         time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		mapBySet:          make(map[string]*mapAccumulator),
		latencies:         make([]int64, 0, 10000),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		startTime:         time.Now(),
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

// Consume subscribes to topic and records every event until ctx is done.
func (a *Aggregator) Consume(ctx context.Context, cfg config.KafkaConfig, topic string) error {
	consumer := kafka.NewConsumer(cfg, topic, HandleEvent(a))
	a.logger.Info("analytics aggregator consuming", "topic", topic)
	return consumer.Start(ctx)
}

// HandleEvent decodes evaluation events from Kafka into agg. Undecodable
// messages are logged and committed.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[EvaluationEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Restore seeds the counters from a persisted snapshot. Latency samples
// and per-query counts are not persisted and start empty.
func (a *Aggregator) Restore(s AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.TotalEvaluations = s.TotalEvaluations
	a.stats.FailedEvaluations = s.FailedEvaluations
	a.stats.FeedbackSearches = s.FeedbackSearches
	a.stats.CacheHits = s.CacheHits
	a.stats.CacheMisses = s.CacheMisses
	a.stats.ZeroResultCount = s.ZeroResultCount
	a.stats.SkippedDocuments = s.SkippedDocuments
	evaluated := s.TotalEvaluations - s.FailedEvaluations
	a.mapTotal = mapAccumulator{sum: s.MeanAvgPrecision * float64(evaluated), count: evaluated}
}

// Record folds one event into the statistics.
func (a *Aggregator) Record(event EvaluationEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.TotalEvaluations++
	if event.Type == EventError {
		a.stats.FailedEvaluations++
		return
	}
	if event.Feedback {
		a.stats.FeedbackSearches++
	}
	if event.CacheHit {
		a.stats.CacheHits++
	} else {
		a.stats.CacheMisses++
	}
	a.stats.SkippedDocuments += int64(event.SkippedDocs)

	a.mapTotal.sum += event.MeanAveragePrecision
	a.mapTotal.count++
	acc, ok := a.mapBySet[event.JudgmentSet]
	if !ok {
		acc = &mapAccumulator{}
		a.mapBySet[event.JudgmentSet] = acc
	}
	acc.sum += event.MeanAveragePrecision
	acc.count++

	a.latencies = append(a.latencies, event.LatencyMs)
	a.queryCounts[event.Query]++
	if event.ResultCount == 0 {
		a.stats.ZeroResultCount++
		a.zeroResultQueries[event.Query]++
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats
	if a.mapTotal.count > 0 {
		stats.MeanAvgPrecision = a.mapTotal.sum / float64(a.mapTotal.count)
	}
	stats.MAPByJudgmentSet = make(map[string]float64, len(a.mapBySet))
	for set, acc := range a.mapBySet {
		stats.MAPByJudgmentSet[set] = acc.sum / float64(acc.count)
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.EvalsPerMinute = float64(stats.TotalEvaluations) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
