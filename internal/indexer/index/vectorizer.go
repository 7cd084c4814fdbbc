package index

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/errors"
)

// Vectors is the output of Vectorize: per-term inverse document frequency
// and per-document weight vectors.
type Vectors struct {
	IDF       map[string]float64
	Documents map[string]map[string]float64
}

// Vectorize weights every (document, term) pair of the frequency table as
// rawFrequency * (1/df), keeping only dictionary terms.
//
// The inverse document frequency is the plain reciprocal of df, not a
// logarithm. When a term spans several rows the last row wins, both for df
// and for each document's raw frequency.
func Vectorize(records []FrequencyRecord, dict *Dictionary) (Vectors, error) {
	idf := make(map[string]float64, dict.Len())
	for _, term := range dict.Terms() {
		df, _ := dict.DocFreq(term)
		idf[term] = 1 / float64(df)
	}

	tf := make(map[string]map[string]int)
	for _, rec := range records {
		term := Normalize(rec.Term)
		if !dict.Contains(term) {
			continue
		}
		for _, p := range rec.Postings {
			if p.Frequency < 0 {
				return Vectors{}, fmt.Errorf("term %q in document %q has frequency %d: %w",
					term, p.DocID, p.Frequency, apperrors.ErrInvalidInput)
			}
			docTF, ok := tf[p.DocID]
			if !ok {
				docTF = make(map[string]int)
				tf[p.DocID] = docTF
			}
			docTF[term] = p.Frequency
		}
	}

	documents := make(map[string]map[string]float64, len(tf))
	for docID, docTF := range tf {
		weights := make(map[string]float64, len(docTF))
		for term, freq := range docTF {
			if w := float64(freq) * idf[term]; w > 0 {
				weights[term] = w
			}
		}
		documents[docID] = weights
	}
	return Vectors{IDF: idf, Documents: documents}, nil
}
