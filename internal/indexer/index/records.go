package index

// Posting is one (document, raw term frequency) pair from a row of the
// frequency table.
type Posting struct {
	DocID     string
	Frequency int
}

// FrequencyRecord is one row of the term-document frequency table: a term,
// the number of documents containing it, and its postings.
type FrequencyRecord struct {
	Term     string
	DocFreq  int
	Postings []Posting
}

// LengthRecord is one row of the per-document length table. Lengths are the
// precomputed Euclidean norms used by the ranker.
type LengthRecord struct {
	DocID  string
	Length float64
}
