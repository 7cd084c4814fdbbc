package analytics

import "time"

type EventType string

const (
	EventEvaluation EventType = "evaluation"
	EventError      EventType = "evaluation_error"
)

// EvaluationEvent is published once per search the searcher evaluates.
type EvaluationEvent struct {
	Type                 EventType `json:"type"`
	RequestID            string    `json:"request_id"`
	Query                string    `json:"query"`
	Terms                []string  `json:"terms"`
	Feedback             bool      `json:"feedback"`
	JudgmentSet          string    `json:"judgment_set"`
	ResultCount          int       `json:"result_count"`
	RelevantTotal        int       `json:"relevant_total"`
	MeanAveragePrecision float64   `json:"mean_average_precision"`
	SkippedDocs          int       `json:"skipped_docs"`
	LatencyMs            int64     `json:"latency_ms"`
	CacheHit             bool      `json:"cache_hit"`
	IndexFingerprint     string    `json:"index_fingerprint"`
	Error                string    `json:"error,omitempty"`
	Timestamp            time.Time `json:"timestamp"`
}
