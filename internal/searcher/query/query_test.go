package query

import (
	"errors"
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/errors"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-4
}

func catDogIndex(t *testing.T) *index.Index {
	t.Helper()
	freq := []index.FrequencyRecord{
		{Term: "cat", DocFreq: 2, Postings: []index.Posting{{DocID: "A", Frequency: 2}}},
		{Term: "dog", DocFreq: 4, Postings: []index.Posting{{DocID: "B", Frequency: 4}}},
	}
	lengths := []index.LengthRecord{{DocID: "A", Length: 1}, {DocID: "B", Length: 1}}
	idx, _, err := index.NewBuilder(index.Band{Min: 1, Max: 1600}).Build(freq, lengths)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return idx
}

func TestBuildWithoutFeedback(t *testing.T) {
	b := NewBuilder(catDogIndex(t), DefaultParams)
	q, err := b.Build([]string{"CAT", "unicorn", "cat"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
	if w, _ := q.Weight("cat"); w != 1 {
		t.Errorf("Weight(cat) = %v, want 1", w)
	}
	if q.Norm() != 1 {
		t.Errorf("Norm() = %v, want 1", q.Norm())
	}
}

func TestBuildEmptyQuery(t *testing.T) {
	b := NewBuilder(catDogIndex(t), DefaultParams)
	q, err := b.Build([]string{"unicorn"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if q.Len() != 0 || q.Norm() != 0 {
		t.Errorf("got %d terms, norm %v; want empty query", q.Len(), q.Norm())
	}
}

func TestRocchioRelevantOnly(t *testing.T) {
	b := NewBuilder(catDogIndex(t), DefaultParams)
	q, err := b.Build([]string{"cat"}, &Feedback{Relevant: []string{"B"}})
	if err != nil {
		t.Fatal(err)
	}
	if w, _ := q.Weight("cat"); w != 1 {
		t.Errorf("Weight(cat) = %v, want 1", w)
	}
	if w, _ := q.Weight("dog"); !approxEqual(w, 0.85) {
		t.Errorf("Weight(dog) = %v, want 0.85", w)
	}
	if !approxEqual(q.Norm(), 1.3124) {
		t.Errorf("Norm() = %v, want ~1.3124", q.Norm())
	}
}

func TestRocchioIrrelevantRemovesTerms(t *testing.T) {
	b := NewBuilder(catDogIndex(t), Params{Alpha: 1, Beta: 0.85, Gamma: 2})
	q, err := b.Build([]string{"cat"}, &Feedback{
		Relevant:   []string{"B"},
		Irrelevant: []string{"A"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := q.Weight("cat"); ok {
		t.Error("cat should be removed once its weight reaches zero")
	}
	if w, _ := q.Weight("dog"); !approxEqual(w, 0.85) {
		t.Errorf("Weight(dog) = %v, want 0.85", w)
	}
}

func TestRocchioIrrelevantNeverAddsTerms(t *testing.T) {
	b := NewBuilder(catDogIndex(t), DefaultParams)
	q, err := b.Build([]string{"cat"}, &Feedback{
		Relevant:   []string{"A"},
		Irrelevant: []string{"B"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := q.Weight("dog"); ok {
		t.Error("irrelevant document introduced a new term")
	}
	if w, _ := q.Weight("cat"); !approxEqual(w, 1.85) {
		t.Errorf("Weight(cat) = %v, want 1.85", w)
	}
}

func TestRocchioEmptyRelevantSet(t *testing.T) {
	b := NewBuilder(catDogIndex(t), DefaultParams)
	_, err := b.Build([]string{"cat"}, &Feedback{Irrelevant: []string{"B"}})
	if !errors.Is(err, apperrors.ErrEmptyFeedbackSet) {
		t.Errorf("err = %v, want ErrEmptyFeedbackSet", err)
	}

	b = NewBuilder(catDogIndex(t), Params{Alpha: 1, Beta: 0, Gamma: 0.15})
	if _, err := b.Build([]string{"cat"}, &Feedback{}); err != nil {
		t.Errorf("beta=0 should accept an empty relevant set, got %v", err)
	}
}

func TestRocchioUnknownDocument(t *testing.T) {
	b := NewBuilder(catDogIndex(t), DefaultParams)
	_, err := b.Build([]string{"cat"}, &Feedback{Relevant: []string{"Z"}})
	if !errors.Is(err, apperrors.ErrUnknownDocument) {
		t.Errorf("err = %v, want ErrUnknownDocument", err)
	}
}

func TestEmptyFeedbackKeepsAlphaWeights(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   float64
	}{
		{"default", DefaultParams, 1},
		{"scaled alpha", Params{Alpha: 0.5, Beta: 0.85, Gamma: 0.15}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := NewBuilder(catDogIndex(t), tt.params).Build([]string{"cat"}, &Feedback{})
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if q.Len() != 1 {
				t.Fatalf("Len() = %d, want 1", q.Len())
			}
			if w, _ := q.Weight("cat"); !approxEqual(w, tt.want) {
				t.Errorf("Weight(cat) = %v, want %v", w, tt.want)
			}
			if !approxEqual(q.Norm(), tt.want) {
				t.Errorf("Norm() = %v, want %v", q.Norm(), tt.want)
			}
		})
	}
}
