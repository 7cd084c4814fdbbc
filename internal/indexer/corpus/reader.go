// Package corpus reads the whitespace-separated flat files an index and its
// evaluation data are built from.
package corpus

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/errors"
)

const maxLineBytes = 64 << 20

// Feedback labels.
const (
	LabelIrrelevant = 0
	LabelRelevant   = 1
)

// FeedbackRecord is one labelled document from a feedback file.
type FeedbackRecord struct {
	DocID string
	Label int
}

// ReadFrequencyTable parses lines of the form
//
//	term df doc1 tf1 doc2 tf2 ...
//
// Blank lines are skipped.
func ReadFrequencyTable(r io.Reader) ([]index.FrequencyRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var records []index.FrequencyRecord
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, malformed("frequency table", lineNo, "missing document frequency")
		}
		df, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, malformed("frequency table", lineNo, "document frequency %q is not an integer", fields[1])
		}
		pairs := fields[2:]
		if len(pairs)%2 != 0 {
			return nil, malformed("frequency table", lineNo, "document %q has no term frequency", pairs[len(pairs)-1])
		}
		rec := index.FrequencyRecord{
			Term:     fields[0],
			DocFreq:  df,
			Postings: make([]index.Posting, 0, len(pairs)/2),
		}
		for i := 0; i < len(pairs); i += 2 {
			tf, err := strconv.Atoi(pairs[i+1])
			if err != nil {
				return nil, malformed("frequency table", lineNo, "term frequency %q is not an integer", pairs[i+1])
			}
			rec.Postings = append(rec.Postings, index.Posting{DocID: pairs[i], Frequency: tf})
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading frequency table: %w", err)
	}
	return records, nil
}

// ReadLengths parses (document, length) pairs. Pairs may span or share
// lines.
func ReadLengths(r io.Reader) ([]index.LengthRecord, error) {
	tokens, err := readTokens(r, "length table")
	if err != nil {
		return nil, err
	}
	if len(tokens)%2 != 0 {
		return nil, fmt.Errorf("length table: document %q has no length: %w",
			tokens[len(tokens)-1], apperrors.ErrInvalidInput)
	}
	records := make([]index.LengthRecord, 0, len(tokens)/2)
	for i := 0; i < len(tokens); i += 2 {
		length, err := strconv.ParseFloat(tokens[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("length table: length %q of %q: %w",
				tokens[i+1], tokens[i], apperrors.ErrInvalidInput)
		}
		records = append(records, index.LengthRecord{DocID: tokens[i], Length: length})
	}
	return records, nil
}

// ReadJudgments returns every whitespace-separated document id in r.
func ReadJudgments(r io.Reader) ([]string, error) {
	return readTokens(r, "judgments")
}

// ReadFeedback parses (document, label) pairs. Labels other than 0 and 1
// are skipped.
func ReadFeedback(r io.Reader) ([]FeedbackRecord, error) {
	tokens, err := readTokens(r, "feedback")
	if err != nil {
		return nil, err
	}
	if len(tokens)%2 != 0 {
		return nil, fmt.Errorf("feedback: document %q has no label: %w",
			tokens[len(tokens)-1], apperrors.ErrInvalidInput)
	}
	records := make([]FeedbackRecord, 0, len(tokens)/2)
	for i := 0; i < len(tokens); i += 2 {
		label, err := strconv.Atoi(tokens[i+1])
		if err != nil {
			return nil, fmt.Errorf("feedback: label %q of %q: %w",
				tokens[i+1], tokens[i], apperrors.ErrInvalidInput)
		}
		if label != LabelRelevant && label != LabelIrrelevant {
			continue
		}
		records = append(records, FeedbackRecord{DocID: tokens[i], Label: label})
	}
	return records, nil
}

// SplitFeedback separates feedback records by label, keeping file order.
func SplitFeedback(records []FeedbackRecord) (relevant, irrelevant []string) {
	for _, rec := range records {
		switch rec.Label {
		case LabelRelevant:
			relevant = append(relevant, rec.DocID)
		case LabelIrrelevant:
			irrelevant = append(irrelevant, rec.DocID)
		}
	}
	return relevant, irrelevant
}

func readTokens(r io.Reader, what string) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	sc.Split(bufio.ScanWords)
	var tokens []string
	for sc.Scan() {
		tokens = append(tokens, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", what, err)
	}
	return tokens, nil
}

func malformed(what string, line int, format string, args ...any) error {
	return fmt.Errorf("%s line %d: %s: %w", what, line, fmt.Sprintf(format, args...), apperrors.ErrInvalidInput)
}
