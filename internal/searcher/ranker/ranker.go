package ranker

import (
	"fmt"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/query"
	apperrors "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/errors"
)

type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// DocumentError records a document that matched the query but could not be
// scored.
type DocumentError struct {
	DocID string
	Err   error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %q: %v", e.DocID, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Results is the outcome of one ranking pass. Scores holds every document
// with a strictly positive dot product and a usable norm; Skipped holds the
// matching documents that had none, in document id order.
type Results struct {
	Scores  map[string]float64
	Skipped []*DocumentError
}

// Rank scores every document in idx against q by cosine similarity. The dot
// product walks only the query terms. Documents with a zero dot product are
// left out. A document that matches but has no norm, or a non-positive one,
// is reported in Skipped rather than scored.
//
// A query with zero norm cannot be ranked and yields ErrDegenerateVector.
func Rank(q *query.Query, idx *index.Index) (*Results, error) {
	qNorm := q.Norm()
	if !(qNorm > 0) || math.IsInf(qNorm, 0) {
		return nil, fmt.Errorf("query norm %v: %w", qNorm, apperrors.ErrDegenerateVector)
	}

	res := &Results{Scores: make(map[string]float64)}
	terms := q.Terms()
	for _, id := range idx.DocumentIDs() {
		doc, _ := idx.Document(id)
		var dot float64
		for _, term := range terms {
			dw, ok := doc.Weight(term)
			if !ok {
				continue
			}
			qw, _ := q.Weight(term)
			dot += qw * dw
		}
		if !(dot > 0) {
			continue
		}

		dNorm, ok := idx.Norm(id)
		switch {
		case !ok:
			res.Skipped = append(res.Skipped, &DocumentError{DocID: id, Err: apperrors.ErrMissingNorm})
			continue
		case !(dNorm > 0) || math.IsInf(dNorm, 0):
			res.Skipped = append(res.Skipped, &DocumentError{
				DocID: id,
				Err:   fmt.Errorf("norm %v: %w", dNorm, apperrors.ErrDegenerateVector),
			})
			continue
		}
		res.Scores[id] = dot / (dNorm * qNorm)
	}
	return res, nil
}

// Sorted returns the scores ordered by score descending, ties broken by
// document id ascending.
func (r *Results) Sorted() []ScoredDoc {
	out := make([]ScoredDoc, 0, len(r.Scores))
	for id, score := range r.Scores {
		out = append(out, ScoredDoc{DocID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].DocID < out[j].DocID
	})
	return out
}

