package index

import (
	"fmt"
	"testing"
)

func benchCorpus(numDocs, numTerms int) ([]FrequencyRecord, []LengthRecord) {
	freq := make([]FrequencyRecord, 0, numTerms)
	for t := 0; t < numTerms; t++ {
		step := t%25 + 1
		rec := FrequencyRecord{Term: fmt.Sprintf("Term%d", t)}
		for d := 0; d < numDocs; d += step {
			rec.Postings = append(rec.Postings, Posting{DocID: fmt.Sprintf("doc-%d", d), Frequency: d%7 + 1})
		}
		rec.DocFreq = len(rec.Postings)
		freq = append(freq, rec)
	}
	lengths := make([]LengthRecord, numDocs)
	for d := range lengths {
		lengths[d] = LengthRecord{DocID: fmt.Sprintf("doc-%d", d), Length: 1}
	}
	return freq, lengths
}

func BenchmarkBuild(b *testing.B) {
	for _, numDocs := range []int{1000, 5000} {
		freq, lengths := benchCorpus(numDocs, 500)
		b.Run(fmt.Sprintf("docs_%d", numDocs), func(b *testing.B) {
			builder := NewBuilder(DefaultBand)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, _, err := builder.Build(freq, lengths); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkBuildDictionary(b *testing.B) {
	freq, _ := benchCorpus(2000, 2000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BuildDictionary(freq, DefaultBand)
	}
}
