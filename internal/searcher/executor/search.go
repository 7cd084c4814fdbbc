package executor

import (
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/errors"
)

// Request is one search to run and evaluate.
type Request struct {
	// Tokens are the raw query tokens; they are case-folded and filtered
	// against the dictionary.
	Tokens []string
	// Feedback, when non-nil, refines the query with Rocchio feedback.
	Feedback *query.Feedback
	// Judgments are the documents considered relevant for evaluation.
	Judgments evaluation.Judgments
	// JudgmentSet names the judgments for logs and events.
	JudgmentSet string
	// Received is when the request arrived; elapsed time is measured from
	// here. Zero means when Search is called.
	Received time.Time
}

// SkippedDoc is a matching document that could not be scored.
type SkippedDoc struct {
	DocID  string `json:"doc_id"`
	Reason string `json:"reason"`
}

// Result is a ranked, evaluated search.
type Result struct {
	Query   map[string]float64 `json:"query"`
	Ranked  []ranker.ScoredDoc `json:"ranked"`
	Skipped []SkippedDoc       `json:"skipped"`
	Report  *evaluation.Report `json:"report"`
}

// Skip reasons.
const (
	ReasonMissingNorm = "missing_norm"
	ReasonDegenerate  = "degenerate_vector"
)

// Search builds the query, ranks every document, and evaluates the ranking
// against req.Judgments. It does not touch any shared state.
func Search(idx *index.Index, params query.Params, req Request) (*Result, error) {
	start := req.Received
	if start.IsZero() {
		start = time.Now()
	}

	q, err := query.NewBuilder(idx, params).Build(req.Tokens, req.Feedback)
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	res, err := ranker.Rank(q, idx)
	if err != nil {
		return nil, fmt.Errorf("ranking: %w", err)
	}
	ranked := res.Sorted()
	elapsed := time.Since(start)

	out := &Result{
		Query:   q.Weights(),
		Ranked:  ranked,
		Skipped: make([]SkippedDoc, 0, len(res.Skipped)),
		Report:  evaluation.Evaluate(ranked, req.Judgments, elapsed),
	}
	for _, de := range res.Skipped {
		out.Skipped = append(out.Skipped, SkippedDoc{DocID: de.DocID, Reason: skipReason(de.Err)})
	}
	return out, nil
}

func skipReason(err error) string {
	if errors.Is(err, apperrors.ErrMissingNorm) {
		return ReasonMissingNorm
	}
	return ReasonDegenerate
}
