package index

// Document is a sparse term-weight vector for one corpus document. Only
// terms with a positive weight are present.
type Document struct {
	id      string
	weights map[string]float64
	terms   []string
}

func newDocument(id string, weights map[string]float64) *Document {
	return &Document{
		id:      id,
		weights: weights,
		terms:   sortedKeys(weights),
	}
}

// ID returns the document identifier.
func (d *Document) ID() string {
	return d.id
}

// Weight returns the weight of term in this document.
func (d *Document) Weight(term string) (float64, bool) {
	w, ok := d.weights[term]
	return w, ok
}

// Terms returns the document's terms in ascending order. The slice must not
// be modified.
func (d *Document) Terms() []string {
	return d.terms
}

// Len returns the number of non-zero entries in the vector.
func (d *Document) Len() int {
	return len(d.terms)
}

// Weights returns a copy of the vector.
func (d *Document) Weights() map[string]float64 {
	out := make(map[string]float64, len(d.weights))
	for term, w := range d.weights {
		out[term] = w
	}
	return out
}
