package index

import (
	"fmt"
	"math"
	"sort"

	apperrors "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/errors"
)

// Index is the immutable product of a build: the dictionary, inverse
// document frequencies, document vectors, and the independently sourced
// document norms. It is safe for concurrent reads.
type Index struct {
	dictionary *Dictionary
	idf        map[string]float64
	documents  map[string]*Document
	docIDs     []string
	norms      map[string]float64
}

// Dictionary returns the index terms.
func (idx *Index) Dictionary() *Dictionary {
	return idx.dictionary
}

// IDF returns the inverse document frequency of an index term.
func (idx *Index) IDF(term string) (float64, bool) {
	v, ok := idx.idf[term]
	return v, ok
}

// Document looks up a document vector by id.
func (idx *Index) Document(id string) (*Document, bool) {
	doc, ok := idx.documents[id]
	return doc, ok
}

// DocumentIDs returns every vectorized document id in ascending order. The
// slice must not be modified.
func (idx *Index) DocumentIDs() []string {
	return idx.docIDs
}

// NumDocuments returns the number of vectorized documents.
func (idx *Index) NumDocuments() int {
	return len(idx.docIDs)
}

// Norm returns the precomputed length of a document. The bool is false when
// the length table has no entry for it.
func (idx *Index) Norm(id string) (float64, bool) {
	n, ok := idx.norms[id]
	return n, ok
}

// NumNorms returns the number of entries in the length table.
func (idx *Index) NumNorms() int {
	return len(idx.norms)
}

// ValidationReport lists documents present in only one of the two sources
// an index is joined from.
type ValidationReport struct {
	// MissingNorms are vectorized documents with no length-table entry.
	MissingNorms []string
	// OrphanNorms are length-table entries with no document vector.
	OrphanNorms []string
}

// OK reports whether both sources cover the same documents.
func (r ValidationReport) OK() bool {
	return len(r.MissingNorms) == 0 && len(r.OrphanNorms) == 0
}

// Validate cross-checks document vectors against the length table.
func (idx *Index) Validate() ValidationReport {
	var report ValidationReport
	for _, id := range idx.docIDs {
		if _, ok := idx.norms[id]; !ok {
			report.MissingNorms = append(report.MissingNorms, id)
		}
	}
	for _, id := range sortedKeys(idx.norms) {
		if _, ok := idx.documents[id]; !ok {
			report.OrphanNorms = append(report.OrphanNorms, id)
		}
	}
	return report
}

// Data is the plain, serializable form of an Index.
type Data struct {
	DocFreqs  map[string]int                `cbor:"1,keyasint" json:"doc_freqs"`
	Documents map[string]map[string]float64 `cbor:"2,keyasint" json:"documents"`
	Norms     map[string]float64            `cbor:"3,keyasint" json:"norms"`
}

// Export copies the index into its serializable form. The idf table is not
// stored; it is derived from the document frequencies on import.
func (idx *Index) Export() Data {
	data := Data{
		DocFreqs:  make(map[string]int, idx.dictionary.Len()),
		Documents: make(map[string]map[string]float64, len(idx.documents)),
		Norms:     make(map[string]float64, len(idx.norms)),
	}
	for term, df := range idx.dictionary.docFreq {
		data.DocFreqs[term] = df
	}
	for id, doc := range idx.documents {
		data.Documents[id] = doc.Weights()
	}
	for id, n := range idx.norms {
		data.Norms[id] = n
	}
	return data
}

// FromData rebuilds an Index from its serialized form, rejecting data that
// could not have come from a build.
func FromData(data Data) (*Index, error) {
	dict := &Dictionary{docFreq: make(map[string]int, len(data.DocFreqs))}
	idf := make(map[string]float64, len(data.DocFreqs))
	for term, df := range data.DocFreqs {
		if df <= 0 {
			return nil, fmt.Errorf("term %q has document frequency %d: %w",
				term, df, apperrors.ErrCorruptSnapshot)
		}
		dict.docFreq[term] = df
		idf[term] = 1 / float64(df)
	}
	dict.terms = sortedKeys(dict.docFreq)

	documents := make(map[string]map[string]float64, len(data.Documents))
	for id, weights := range data.Documents {
		copied := make(map[string]float64, len(weights))
		for term, w := range weights {
			if !dict.Contains(term) {
				return nil, fmt.Errorf("document %q weights unknown term %q: %w",
					id, term, apperrors.ErrCorruptSnapshot)
			}
			if !(w > 0) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("document %q has weight %v for %q: %w",
					id, w, term, apperrors.ErrCorruptSnapshot)
			}
			copied[term] = w
		}
		documents[id] = copied
	}
	norms := make(map[string]float64, len(data.Norms))
	for id, n := range data.Norms {
		norms[id] = n
	}
	return assemble(dict, idf, documents, norms), nil
}

func assemble(dict *Dictionary, idf map[string]float64, documents map[string]map[string]float64, norms map[string]float64) *Index {
	idx := &Index{
		dictionary: dict,
		idf:        idf,
		documents:  make(map[string]*Document, len(documents)),
		docIDs:     make([]string, 0, len(documents)),
		norms:      norms,
	}
	for id, weights := range documents {
		idx.documents[id] = newDocument(id, weights)
		idx.docIDs = append(idx.docIDs, id)
	}
	sort.Strings(idx.docIDs)
	return idx
}
