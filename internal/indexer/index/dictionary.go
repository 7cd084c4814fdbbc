package index

import (
	"sort"
	"strings"
)

// Band is the inclusive document-frequency range a term must fall in to be
// indexed.
type Band struct {
	Min int
	Max int
}

// DefaultBand drops terms that are too rare (df < 6) or too common
// (df > 1600) to discriminate between documents.
var DefaultBand = Band{Min: 6, Max: 1600}

// Contains reports whether df lies within the band, bounds included. A
// non-positive df is never admitted.
func (b Band) Contains(df int) bool {
	return df > 0 && df >= b.Min && df <= b.Max
}

// Dictionary is the immutable set of index terms together with the document
// frequency each was admitted with.
type Dictionary struct {
	docFreq map[string]int
	terms   []string
}

// Normalize folds a raw token to its dictionary form.
func Normalize(term string) string {
	return strings.ToLower(term)
}

// BuildDictionary admits every term whose document frequency lies in band.
// Terms are case-folded first; when a term occurs on several rows the last
// row's frequency is the one considered.
func BuildDictionary(records []FrequencyRecord, band Band) *Dictionary {
	latest := latestDocFreqs(records)
	d := &Dictionary{docFreq: make(map[string]int, len(latest))}
	for term, df := range latest {
		if band.Contains(df) {
			d.docFreq[term] = df
		}
	}
	d.terms = sortedKeys(d.docFreq)
	return d
}

func latestDocFreqs(records []FrequencyRecord) map[string]int {
	latest := make(map[string]int, len(records))
	for _, rec := range records {
		latest[Normalize(rec.Term)] = rec.DocFreq
	}
	return latest
}

// Contains reports whether term (already normalized) is an index term.
func (d *Dictionary) Contains(term string) bool {
	_, ok := d.docFreq[term]
	return ok
}

// DocFreq returns the document frequency the term was admitted with.
func (d *Dictionary) DocFreq(term string) (int, bool) {
	df, ok := d.docFreq[term]
	return df, ok
}

// Len returns the number of index terms.
func (d *Dictionary) Len() int {
	return len(d.terms)
}

// Terms returns the index terms in ascending order. The slice must not be
// modified.
func (d *Dictionary) Terms() []string {
	return d.terms
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
