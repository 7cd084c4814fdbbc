package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/query"
)

type staticSource struct{ idx *index.Index }

func (s staticSource) Current() (*index.Index, indexer.Info) {
	return s.idx, indexer.Info{Fingerprint: "fp", Documents: s.idx.NumDocuments()}
}

// threeDocIndex has cat in A and B and dog in B and C, all with unit norms.
func threeDocIndex(t *testing.T) *index.Index {
	t.Helper()
	freq := []index.FrequencyRecord{
		{Term: "cat", DocFreq: 2, Postings: []index.Posting{{DocID: "A", Frequency: 3}, {DocID: "B", Frequency: 1}}},
		{Term: "dog", DocFreq: 2, Postings: []index.Posting{{DocID: "B", Frequency: 2}, {DocID: "C", Frequency: 1}}},
	}
	lengths := []index.LengthRecord{{DocID: "A", Length: 1}, {DocID: "B", Length: 1}, {DocID: "C", Length: 1}}
	idx, _, err := index.NewBuilder(index.Band{Min: 1, Max: 1600}).Build(freq, lengths)
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

type recordingRuns struct {
	saved []evaluation.Run
}

func (r *recordingRuns) Save(_ context.Context, run evaluation.Run) (int64, error) {
	r.saved = append(r.saved, run)
	return int64(len(r.saved)), nil
}

func (r *recordingRuns) Recent(context.Context, int) ([]evaluation.Run, error) {
	return r.saved, nil
}

func newTestHandler(t *testing.T, opts Options) (*http.ServeMux, *Handler) {
	t.Helper()
	idx := threeDocIndex(t)
	ex := executor.New(staticSource{idx: idx}, query.DefaultParams, executor.Options{})
	eval := &corpus.Evaluation{
		Relevant:           []string{"A", "B"},
		RelevantNoFeedback: []string{"B"},
		Feedback:           []corpus.FeedbackRecord{{DocID: "A", Label: corpus.LabelRelevant}},
	}
	if opts.Index == nil {
		opts.Index = fakeIndexAdmin{info: indexer.Info{Fingerprint: "fp", Documents: idx.NumDocuments()}}
	}
	h := New(ex, eval, opts)
	mux := http.NewServeMux()
	h.Routes(mux)
	return mux, h
}

type fakeIndexAdmin struct{ info indexer.Info }

func (f fakeIndexAdmin) Info() indexer.Info            { return f.info }
func (f fakeIndexAdmin) Rebuild(context.Context) error { return nil }

func get(t *testing.T, mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestSearchReturnsReport(t *testing.T) {
	runs := &recordingRuns{}
	mux, _ := newTestHandler(t, Options{Runs: runs})

	rec := get(t, mux, "/api/v1/search?q=CAT")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.JudgmentSet != corpus.SetRelevant || resp.Feedback {
		t.Errorf("judgment set = %q, feedback = %v", resp.JudgmentSet, resp.Feedback)
	}
	if resp.Report.TotalResults != 2 || len(resp.Report.Rows) != 2 {
		t.Fatalf("report = %+v", resp.Report)
	}
	if resp.Report.Rows[0].DocID != "A" || resp.Report.Rows[1].DocID != "B" {
		t.Errorf("rows = %+v", resp.Report.Rows)
	}
	if resp.RunID != 1 || len(runs.saved) != 1 || runs.saved[0].Query != "CAT" {
		t.Errorf("run not saved: id=%d saved=%+v", resp.RunID, runs.saved)
	}
}

func TestSearchLimitTrimsRowsOnly(t *testing.T) {
	mux, _ := newTestHandler(t, Options{})
	rec := get(t, mux, "/api/v1/search?q=cat&limit=1")
	var resp SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Report.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(resp.Report.Rows))
	}
	if resp.Report.TotalResults != 2 {
		t.Errorf("TotalResults = %d, want 2", resp.Report.TotalResults)
	}
}

func TestSearchWithFeedbackDefaultsToResidualJudgments(t *testing.T) {
	mux, _ := newTestHandler(t, Options{})
	rec := get(t, mux, "/api/v1/search?q=dog&feedback=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.JudgmentSet != corpus.SetRelevantNoFeedback || !resp.Feedback {
		t.Errorf("judgment set = %q, feedback = %v", resp.JudgmentSet, resp.Feedback)
	}
	if _, ok := resp.QueryVector["cat"]; !ok {
		t.Errorf("feedback should add cat to the query: %v", resp.QueryVector)
	}
}

func TestSearchErrors(t *testing.T) {
	mux, _ := newTestHandler(t, Options{})
	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing query", "/api/v1/search", http.StatusBadRequest},
		{"bad limit", "/api/v1/search?q=cat&limit=0", http.StatusBadRequest},
		{"bad feedback", "/api/v1/search?q=cat&feedback=maybe", http.StatusBadRequest},
		{"unknown set", "/api/v1/search?q=cat&judgments=mine", http.StatusBadRequest},
		{"no known terms", "/api/v1/search?q=unicorn", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, mux, tt.target)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestIndexInfo(t *testing.T) {
	mux, _ := newTestHandler(t, Options{})
	rec := get(t, mux, "/api/v1/index")
	var info indexer.Info
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.Fingerprint != "fp" || info.Documents != 3 {
		t.Errorf("info = %+v", info)
	}
}

func TestRecentRuns(t *testing.T) {
	runs := &recordingRuns{}
	mux, _ := newTestHandler(t, Options{Runs: runs})
	get(t, mux, "/api/v1/search?q=cat")

	rec := get(t, mux, "/api/v1/runs?limit=5")
	var got []evaluation.Run
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("runs = %d, want 1", len(got))
	}
	if rec := get(t, mux, "/api/v1/runs?limit=0"); rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", rec.Code)
	}
}
