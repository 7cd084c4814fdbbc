// Package query builds sparse query vectors from pre-tokenized input and
// optionally refines them with Rocchio relevance feedback.
package query

import (
	"fmt"
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/errors"
)

// Params are the Rocchio coefficients. Alpha weights the original query
// terms, Beta the relevant centroid, Gamma the irrelevant centroid.
type Params struct {
	Alpha float64
	Beta  float64
	Gamma float64
}

// DefaultParams are the coefficients the evaluation corpus was tuned with.
var DefaultParams = Params{Alpha: 1.0, Beta: 0.85, Gamma: 0.15}

// Feedback holds the ids of documents judged relevant (label 1) and
// irrelevant (label 0) for a query. The two lists are expected to be
// disjoint but this is not checked.
type Feedback struct {
	Relevant   []string `json:"relevant"`
	Irrelevant []string `json:"irrelevant"`
}

// Query is a sparse term-weight vector and its Euclidean norm. Every weight
// is strictly positive.
type Query struct {
	weights map[string]float64
	terms   []string
	norm    float64
}

// Weight returns the weight of term in the query.
func (q *Query) Weight(term string) (float64, bool) {
	w, ok := q.weights[term]
	return w, ok
}

// Terms returns the query terms in ascending order. The slice must not be
// modified.
func (q *Query) Terms() []string {
	return q.terms
}

// Len returns the number of weighted terms.
func (q *Query) Len() int {
	return len(q.terms)
}

// Norm returns sqrt(sum of squared weights); zero for an empty query.
func (q *Query) Norm() float64 {
	return q.norm
}

// Weights returns a copy of the query vector.
func (q *Query) Weights() map[string]float64 {
	out := make(map[string]float64, len(q.weights))
	for term, w := range q.weights {
		out[term] = w
	}
	return out
}

// Builder builds queries against one index.
type Builder struct {
	idx    *index.Index
	params Params
}

func NewBuilder(idx *index.Index, params Params) *Builder {
	return &Builder{idx: idx, params: params}
}

// Build turns tokens into a query vector. Tokens are case-folded and those
// outside the dictionary are dropped. When fb is non-nil the query is
// refined: every term of every relevant document gains
// Beta * weight / |relevant|, and terms already in the query lose
// Gamma * weight / |irrelevant| per irrelevant document, being removed once
// they would reach zero. Irrelevant documents never introduce new terms.
//
// Feedback with no documents at all leaves the Alpha-weighted query as is.
// Build fails with ErrEmptyFeedbackSet when only irrelevant documents are
// supplied and Beta is non-zero, and with ErrUnknownDocument when a
// feedback document is not in the index.
func (b *Builder) Build(tokens []string, fb *Feedback) (*Query, error) {
	weights := make(map[string]float64, len(tokens))
	initial := 1.0
	if fb != nil {
		initial = b.params.Alpha
	}
	dict := b.idx.Dictionary()
	for _, tok := range tokens {
		term := index.Normalize(tok)
		if dict.Contains(term) {
			weights[term] = initial
		}
	}

	if fb != nil {
		if err := b.applyFeedback(weights, fb); err != nil {
			return nil, err
		}
	}
	return newQuery(weights), nil
}

func (b *Builder) applyFeedback(weights map[string]float64, fb *Feedback) error {
	if len(fb.Relevant) == 0 && len(fb.Irrelevant) == 0 {
		return nil
	}
	if len(fb.Relevant) == 0 && b.params.Beta != 0 {
		return fmt.Errorf("relevant set is empty with beta=%v: %w",
			b.params.Beta, apperrors.ErrEmptyFeedbackSet)
	}
	relevant, err := b.resolve(fb.Relevant)
	if err != nil {
		return err
	}
	irrelevant, err := b.resolve(fb.Irrelevant)
	if err != nil {
		return err
	}

	if n := len(relevant); n > 0 {
		share := b.params.Beta * (1 / float64(n))
		for _, doc := range relevant {
			for _, term := range doc.Terms() {
				w, _ := doc.Weight(term)
				weights[term] += share * w
			}
		}
	}

	if n := len(irrelevant); n > 0 {
		share := b.params.Gamma * (1 / float64(n))
		for _, doc := range irrelevant {
			for _, term := range doc.Terms() {
				current, ok := weights[term]
				if !ok {
					continue
				}
				w, _ := doc.Weight(term)
				decrement := share * w
				if current > decrement {
					weights[term] = current - decrement
				} else {
					delete(weights, term)
				}
			}
		}
	}
	return nil
}

func (b *Builder) resolve(ids []string) ([]*index.Document, error) {
	docs := make([]*index.Document, 0, len(ids))
	for _, id := range ids {
		doc, ok := b.idx.Document(id)
		if !ok {
			return nil, fmt.Errorf("feedback document %q: %w", id, apperrors.ErrUnknownDocument)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func newQuery(weights map[string]float64) *Query {
	for term, w := range weights {
		if !(w > 0) {
			delete(weights, term)
		}
	}
	q := &Query{weights: weights, terms: make([]string, 0, len(weights))}
	for term := range weights {
		q.terms = append(q.terms, term)
	}
	sort.Strings(q.terms)

	var sumSquares float64
	for _, term := range q.terms {
		w := weights[term]
		sumSquares += w * w
	}
	q.norm = math.Sqrt(sumSquares)
	return q
}
