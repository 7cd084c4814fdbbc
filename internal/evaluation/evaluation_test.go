package evaluation

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/ranker"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-4
}

func ranked(ids ...string) []ranker.ScoredDoc {
	out := make([]ranker.ScoredDoc, len(ids))
	for i, id := range ids {
		out[i] = ranker.ScoredDoc{DocID: id, Score: 1 / float64(i+1)}
	}
	return out
}

func TestInterpolateElevenPointExample(t *testing.T) {
	levels := Interpolate([]Point{{Recall: 0.5, Precision: 0.8}, {Recall: 1.0, Precision: 0.5}})
	if len(levels) != RecallLevels {
		t.Fatalf("len(levels) = %d, want %d", len(levels), RecallLevels)
	}
	checks := map[int]float64{4: 0, 5: 0.8, 10: 0.5, 0: 0}
	for i, want := range checks {
		if levels[i].Precision != want {
			t.Errorf("level %.1f = %v, want %v", levels[i].Recall, levels[i].Precision, want)
		}
	}
	if got := MeanAveragePrecision(levels); !approxEqual(got, 0.1182) {
		t.Errorf("MeanAveragePrecision = %v, want ~0.1182", got)
	}
}

func TestInterpolateTakesMaxWithinInterval(t *testing.T) {
	levels := Interpolate([]Point{
		{Recall: 0.3, Precision: 0.4},
		{Recall: 0.35, Precision: 0.9},
		{Recall: 0.4, Precision: 0.2},
	})
	if levels[3].Precision != 0.9 {
		t.Errorf("level 0.3 = %v, want 0.9", levels[3].Precision)
	}
	if levels[4].Precision != 0.2 {
		t.Errorf("level 0.4 = %v, want 0.2 (0.4 is not in [0.3, 0.4))", levels[4].Precision)
	}
}

func TestWalkPrecisionRecall(t *testing.T) {
	rows, points := Walk(ranked("a", "x", "b", "y", "c"), NewJudgments([]string{"a", "b", "c", "d"}))
	if len(rows) != 5 {
		t.Fatalf("len(rows) = %d, want 5", len(rows))
	}
	prevRecall := 0.0
	for i, row := range rows {
		if row.Rank != i+1 {
			t.Errorf("row %d has rank %d", i, row.Rank)
		}
		if row.Recall < prevRecall {
			t.Errorf("recall decreased at rank %d: %v < %v", row.Rank, row.Recall, prevRecall)
		}
		prevRecall = row.Recall
	}
	if !approxEqual(rows[2].Precision, 2.0/3.0) || rows[2].Recall != 0.5 {
		t.Errorf("rank 3 = %+v, want precision 0.67 recall 0.5", rows[2])
	}
	if !approxEqual(rows[3].Precision, 0.5) {
		t.Errorf("rank 4 precision = %v, want 0.5", rows[3].Precision)
	}
	if len(points) != 3 {
		t.Errorf("points = %v, want 3", points)
	}
}

func TestWalkStopsAtFullRecall(t *testing.T) {
	rows, _ := Walk(ranked("a", "b", "x", "y"), NewJudgments([]string{"a", "b"}))
	if len(rows) != 2 {
		t.Errorf("len(rows) = %d, want 2", len(rows))
	}
}

func TestWalkWithoutJudgments(t *testing.T) {
	rows, points := Walk(ranked("a", "b"), NewJudgments(nil))
	if len(rows) != 2 || len(points) != 0 {
		t.Fatalf("rows=%d points=%d, want 2 and 0", len(rows), len(points))
	}
	for _, row := range rows {
		if row.Recall != 0 || row.Precision != 0 {
			t.Errorf("row %+v should have zero precision and recall", row)
		}
	}
}

func TestEvaluateAndRender(t *testing.T) {
	report := Evaluate(ranked("a", "x", "b"), NewJudgments([]string{"a", "b"}), 42*time.Millisecond)
	if report.TotalResults != 3 || report.RelevantTotal != 2 {
		t.Errorf("TotalResults=%d RelevantTotal=%d", report.TotalResults, report.RelevantTotal)
	}
	// points (0.5, 1.0) and (1.0, 0.667)
	if !approxEqual(report.MeanAveragePrecision, (1.0+2.0/3.0)/11) {
		t.Errorf("MAP = %v", report.MeanAveragePrecision)
	}

	var buf bytes.Buffer
	if err := Render(&buf, report); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Similarity", "1.0000", "Average precision: 0.15", "3 results in total (42ms)."} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report missing %q:\n%s", want, out)
		}
	}
}
