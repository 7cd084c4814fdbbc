// Package evaluation scores a ranked result list against a set of relevance
// judgments: precision and recall at every rank, interpolated precision at
// the eleven standard recall levels, and their mean.
package evaluation

import (
	"sort"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/ranker"
)

// RecallLevels is the number of standard recall levels, 0.0 through 1.0.
const RecallLevels = 11

const levelTolerance = 1e-9

// Judgments is the set of documents judged relevant for a query.
type Judgments struct {
	ids map[string]struct{}
}

func NewJudgments(ids []string) Judgments {
	j := Judgments{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		j.ids[id] = struct{}{}
	}
	return j
}

func (j Judgments) Contains(id string) bool {
	_, ok := j.ids[id]
	return ok
}

func (j Judgments) Len() int {
	return len(j.ids)
}

// IDs returns the judged documents in ascending order.
func (j Judgments) IDs() []string {
	out := make([]string, 0, len(j.ids))
	for id := range j.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Row is one rank of the walk.
type Row struct {
	Rank      int     `json:"rank"`
	DocID     string  `json:"doc_id"`
	Score     float64 `json:"score"`
	Relevant  bool    `json:"relevant"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// Point is a (recall, precision) pair observed at a relevant document.
type Point struct {
	Recall    float64 `json:"recall"`
	Precision float64 `json:"precision"`
}

// Level is the interpolated precision at one standard recall level.
type Level struct {
	Recall    float64 `json:"recall"`
	Precision float64 `json:"precision"`
}

// Report is the structured outcome of evaluating one search.
type Report struct {
	Rows                 []Row         `json:"rows"`
	Points               []Point       `json:"points"`
	Levels               []Level       `json:"levels"`
	MeanAveragePrecision float64       `json:"mean_average_precision"`
	TotalResults         int           `json:"total_results"`
	RelevantTotal        int           `json:"relevant_total"`
	Elapsed              time.Duration `json:"elapsed_ns"`
}

// Walk folds over the ranked list. Precision at rank i is seen/i and recall
// is seen/|judgments| (zero when there are no judgments). A point is
// recorded at every relevant document, a later point at the same recall
// replacing the earlier one. The walk stops at the first rank where recall
// reaches 1.
func Walk(ranked []ranker.ScoredDoc, judgments Judgments) ([]Row, []Point) {
	total := judgments.Len()
	rows := make([]Row, 0, len(ranked))
	var points []Point
	seen := 0
	for i, doc := range ranked {
		rank := i + 1
		relevant := judgments.Contains(doc.DocID)
		if relevant {
			seen++
		}
		row := Row{
			Rank:      rank,
			DocID:     doc.DocID,
			Score:     doc.Score,
			Relevant:  relevant,
			Precision: float64(seen) / float64(rank),
		}
		if total > 0 {
			row.Recall = float64(seen) / float64(total)
		}
		rows = append(rows, row)

		if relevant {
			p := Point{Recall: row.Recall, Precision: row.Precision}
			if n := len(points); n > 0 && points[n-1].Recall == p.Recall {
				points[n-1] = p
			} else {
				points = append(points, p)
			}
		}
		if total > 0 && seen == total {
			break
		}
	}
	return rows, points
}

// Interpolate returns, for each standard level r, the highest precision
// among points whose recall lies in [r, r+0.1), or 0 if there is none.
func Interpolate(points []Point) []Level {
	levels := make([]Level, RecallLevels)
	step := 1 / float64(RecallLevels-1)
	for i := range levels {
		lo := float64(i) / float64(RecallLevels-1)
		hi := lo + step
		levels[i].Recall = lo
		for _, p := range points {
			if p.Recall >= lo-levelTolerance && p.Recall < hi-levelTolerance && p.Precision > levels[i].Precision {
				levels[i].Precision = p.Precision
			}
		}
	}
	return levels
}

// MeanAveragePrecision averages the precision over all eleven levels,
// empty levels included.
func MeanAveragePrecision(levels []Level) float64 {
	var sum float64
	for _, l := range levels {
		sum += l.Precision
	}
	return sum / RecallLevels
}

// Evaluate runs the full evaluation of one ranked result list.
func Evaluate(ranked []ranker.ScoredDoc, judgments Judgments, elapsed time.Duration) *Report {
	rows, points := Walk(ranked, judgments)
	levels := Interpolate(points)
	return &Report{
		Rows:                 rows,
		Points:               points,
		Levels:               levels,
		MeanAveragePrecision: MeanAveragePrecision(levels),
		TotalResults:         len(ranked),
		RelevantTotal:        judgments.Len(),
		Elapsed:              elapsed,
	}
}
