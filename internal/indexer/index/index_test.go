package index

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/errors"
)

const epsilon = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

// catDogCorpus is the two-document example corpus: cat appears in A (tf 2)
// with df 2, dog appears in B (tf 4) with df 4.
func catDogCorpus() ([]FrequencyRecord, []LengthRecord) {
	freq := []FrequencyRecord{
		{Term: "Cat", DocFreq: 2, Postings: []Posting{{DocID: "A", Frequency: 2}, {DocID: "B", Frequency: 0}}},
		{Term: "dog", DocFreq: 4, Postings: []Posting{{DocID: "B", Frequency: 4}}},
	}
	lengths := []LengthRecord{{DocID: "A", Length: 1.0}, {DocID: "B", Length: 1.0}}
	return freq, lengths
}

func TestDictionaryBandBoundaries(t *testing.T) {
	records := []FrequencyRecord{
		{Term: "five", DocFreq: 5},
		{Term: "six", DocFreq: 6},
		{Term: "middle", DocFreq: 700},
		{Term: "edge", DocFreq: 1600},
		{Term: "over", DocFreq: 1601},
	}
	dict := BuildDictionary(records, DefaultBand)

	want := []string{"edge", "middle", "six"}
	if !reflect.DeepEqual(dict.Terms(), want) {
		t.Errorf("Terms() = %v, want %v", dict.Terms(), want)
	}
	for _, term := range []string{"five", "over"} {
		if dict.Contains(term) {
			t.Errorf("%q should be excluded", term)
		}
	}
}

func TestDictionaryCaseFoldingAndLastWriteWins(t *testing.T) {
	records := []FrequencyRecord{
		{Term: "Query", DocFreq: 10},
		{Term: "RARE", DocFreq: 50},
		{Term: "rare", DocFreq: 2},
	}
	dict := BuildDictionary(records, DefaultBand)

	if !dict.Contains("query") {
		t.Error("expected case-folded term 'query'")
	}
	if dict.Contains("Query") {
		t.Error("dictionary should only hold lowercase terms")
	}
	if dict.Contains("rare") {
		t.Error("last row (df=2) should win and exclude 'rare'")
	}
}

func TestDictionaryEmptyInput(t *testing.T) {
	dict := BuildDictionary(nil, DefaultBand)
	if dict.Len() != 0 {
		t.Errorf("Len() = %d, want 0", dict.Len())
	}
}

func TestVectorizeCatDog(t *testing.T) {
	freq, _ := catDogCorpus()
	dict := BuildDictionary(freq, Band{Min: 1, Max: 1600})
	vecs, err := Vectorize(freq, dict)
	if err != nil {
		t.Fatalf("Vectorize: %v", err)
	}
	if !approxEqual(vecs.IDF["cat"], 0.5) || !approxEqual(vecs.IDF["dog"], 0.25) {
		t.Errorf("idf = %v", vecs.IDF)
	}
	if !reflect.DeepEqual(vecs.Documents["A"], map[string]float64{"cat": 1.0}) {
		t.Errorf("A = %v, want {cat:1}", vecs.Documents["A"])
	}
	if !reflect.DeepEqual(vecs.Documents["B"], map[string]float64{"dog": 1.0}) {
		t.Errorf("B = %v, want {dog:1} (zero frequencies are not stored)", vecs.Documents["B"])
	}
}

func TestVectorizeRejectsNegativeFrequency(t *testing.T) {
	freq := []FrequencyRecord{
		{Term: "cat", DocFreq: 6, Postings: []Posting{{DocID: "A", Frequency: -1}}},
	}
	_, err := Vectorize(freq, BuildDictionary(freq, DefaultBand))
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestVectorizeWeightsNonNegative(t *testing.T) {
	freq := []FrequencyRecord{
		{Term: "alpha", DocFreq: 6, Postings: []Posting{{DocID: "d1", Frequency: 3}, {DocID: "d2", Frequency: 0}}},
		{Term: "beta", DocFreq: 9, Postings: []Posting{{DocID: "d1", Frequency: 1}, {DocID: "d3", Frequency: 12}}},
		{Term: "noise", DocFreq: 2, Postings: []Posting{{DocID: "d1", Frequency: 40}}},
	}
	vecs, err := Vectorize(freq, BuildDictionary(freq, DefaultBand))
	if err != nil {
		t.Fatal(err)
	}
	for id, weights := range vecs.Documents {
		for term, w := range weights {
			if !(w > 0) {
				t.Errorf("%s[%s] = %v, want > 0", id, term, w)
			}
		}
	}
	if _, ok := vecs.Documents["d1"]["noise"]; ok {
		t.Error("out-of-dictionary term leaked into a vector")
	}
}

func TestBuilderJoinsNormsIndependently(t *testing.T) {
	freq, lengths := catDogCorpus()
	lengths[0].Length = 7.5
	lengths = append(lengths, LengthRecord{DocID: "C", Length: 2})
	freq = append(freq, FrequencyRecord{
		Term: "cat", DocFreq: 2,
		Postings: []Posting{{DocID: "A", Frequency: 2}, {DocID: "D", Frequency: 1}},
	})

	idx, stats, err := NewBuilder(Band{Min: 1, Max: 1600}).Build(freq, lengths)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.DuplicateRows != 1 {
		t.Errorf("DuplicateRows = %d, want 1", stats.DuplicateRows)
	}
	if n, _ := idx.Norm("A"); n != 7.5 {
		t.Errorf("Norm(A) = %v, want 7.5 from the length table", n)
	}
	if !reflect.DeepEqual(stats.Validation.MissingNorms, []string{"D"}) {
		t.Errorf("MissingNorms = %v, want [D]", stats.Validation.MissingNorms)
	}
	if !reflect.DeepEqual(stats.Validation.OrphanNorms, []string{"C"}) {
		t.Errorf("OrphanNorms = %v, want [C]", stats.Validation.OrphanNorms)
	}
	if !reflect.DeepEqual(idx.DocumentIDs(), []string{"A", "B", "D"}) {
		t.Errorf("DocumentIDs() = %v", idx.DocumentIDs())
	}
}

func TestBuilderLogsDuplicateLengths(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	freq, lengths := catDogCorpus()
	lengths = append(lengths, LengthRecord{DocID: "A", Length: 4})
	idx, stats, err := NewBuilder(Band{Min: 1, Max: 1600}).Build(freq, lengths)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.DuplicateLengths != 1 {
		t.Errorf("DuplicateLengths = %d, want 1", stats.DuplicateLengths)
	}
	if n, _ := idx.Norm("A"); n != 4 {
		t.Errorf("Norm(A) = %v, want 4 from the last row", n)
	}
	if out := buf.String(); !strings.Contains(out, "duplicate length row") || !strings.Contains(out, "doc_id=A") {
		t.Errorf("log output missing duplicate length warning:\n%s", out)
	}
}

func TestBuilderRejectsNonFiniteLength(t *testing.T) {
	freq, _ := catDogCorpus()
	_, _, err := NewBuilder(DefaultBand).Build(freq, []LengthRecord{{DocID: "A", Length: math.Inf(1)}})
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestExportRoundTrip(t *testing.T) {
	freq, lengths := catDogCorpus()
	idx, _, err := NewBuilder(Band{Min: 1, Max: 1600}).Build(freq, lengths)
	if err != nil {
		t.Fatal(err)
	}
	restored, err := FromData(idx.Export())
	if err != nil {
		t.Fatalf("FromData: %v", err)
	}
	if !reflect.DeepEqual(restored.Export(), idx.Export()) {
		t.Error("restored index differs from original")
	}
	if v, _ := restored.IDF("dog"); v != 0.25 {
		t.Errorf("IDF(dog) = %v, want 0.25", v)
	}
}

func TestFromDataRejectsCorruptData(t *testing.T) {
	tests := []struct {
		name string
		data Data
	}{
		{"zero df", Data{DocFreqs: map[string]int{"cat": 0}}},
		{"unknown term", Data{
			DocFreqs:  map[string]int{"cat": 2},
			Documents: map[string]map[string]float64{"A": {"dog": 1}},
		}},
		{"negative weight", Data{
			DocFreqs:  map[string]int{"cat": 2},
			Documents: map[string]map[string]float64{"A": {"cat": -1}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromData(tt.data); !errors.Is(err, apperrors.ErrCorruptSnapshot) {
				t.Errorf("err = %v, want ErrCorruptSnapshot", err)
			}
		})
	}
}
