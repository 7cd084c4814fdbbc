package index

import (
	"fmt"
	"log/slog"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/errors"
)

// BuildStats summarises one build for logging and metrics.
type BuildStats struct {
	Rows             int
	DuplicateRows    int
	Terms            int
	Documents        int
	Norms            int
	DuplicateLengths int
	Validation       ValidationReport
}

// Builder turns the raw frequency and length tables into an Index. It holds
// no state between builds.
type Builder struct {
	band   Band
	logger *slog.Logger
}

func NewBuilder(band Band) *Builder {
	return &Builder{
		band:   band,
		logger: slog.Default().With("component", "index-builder"),
	}
}

// Build runs dictionary filtering and vectorization over freq, then joins the
// vectors with the length table by document id. Documents present in only
// one source are reported in BuildStats.Validation rather than rejected; a
// missing norm surfaces when that document is ranked.
func (b *Builder) Build(freq []FrequencyRecord, lengths []LengthRecord) (*Index, BuildStats, error) {
	stats := BuildStats{Rows: len(freq)}

	seen := make(map[string]struct{}, len(freq))
	for _, rec := range freq {
		term := Normalize(rec.Term)
		if _, dup := seen[term]; dup {
			stats.DuplicateRows++
			b.logger.Warn("duplicate frequency row, last row wins",
				"term", term,
				"doc_freq", rec.DocFreq,
			)
			continue
		}
		seen[term] = struct{}{}
	}

	dict := BuildDictionary(freq, b.band)
	stats.Terms = dict.Len()
	b.logger.Info("dictionary built",
		"rows", len(freq),
		"terms", dict.Len(),
		"min_doc_freq", b.band.Min,
		"max_doc_freq", b.band.Max,
	)

	vecs, err := Vectorize(freq, dict)
	if err != nil {
		return nil, stats, fmt.Errorf("vectorizing documents: %w", err)
	}
	stats.Documents = len(vecs.Documents)
	b.logger.Info("document vectors built", "documents", len(vecs.Documents))

	norms := make(map[string]float64, len(lengths))
	for _, rec := range lengths {
		if math.IsNaN(rec.Length) || math.IsInf(rec.Length, 0) {
			return nil, stats, fmt.Errorf("document %q has length %v: %w",
				rec.DocID, rec.Length, apperrors.ErrInvalidInput)
		}
		if prev, dup := norms[rec.DocID]; dup {
			stats.DuplicateLengths++
			b.logger.Warn("duplicate length row, last row wins",
				"doc_id", rec.DocID,
				"previous", prev,
				"length", rec.Length,
			)
		}
		norms[rec.DocID] = rec.Length
	}
	stats.Norms = len(norms)

	idx := assemble(dict, vecs.IDF, vecs.Documents, norms)
	stats.Validation = idx.Validate()
	if !stats.Validation.OK() {
		b.logger.Warn("document vectors and length table disagree",
			"missing_norms", len(stats.Validation.MissingNorms),
			"orphan_norms", len(stats.Validation.OrphanNorms),
		)
	}
	return idx, stats, nil
}
