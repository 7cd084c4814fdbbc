// Package repl is the interactive search loop: one command per line,
// each command a query plus the judgments to evaluate it against.
package repl

import (
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// Usage is printed for -h.
const Usage = "-q Search Terms [-f .txt-file with feedback] -r .txt-file with relevance judgements"

// Command is one parsed input line.
type Command struct {
	Help         bool
	Query        bool
	Terms        []string
	FeedbackFile string
	RelevantFile string
}

// ParseCommand parses a line such as "-q cat dog -f feedback.txt -r relevant.txt".
// Flags may appear anywhere; every non-flag word is a query term.
func ParseCommand(line string) (*Command, error) {
	var cmd Command
	fs := pflag.NewFlagSet("query", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVarP(&cmd.Help, "help", "h", false, "show usage")
	fs.BoolVarP(&cmd.Query, "query", "q", false, "search for the remaining words")
	fs.StringVarP(&cmd.FeedbackFile, "feedback", "f", "", "refine the query with the feedback in this file")
	fs.StringVarP(&cmd.RelevantFile, "relevant", "r", "", "evaluate against the judgments in this file")

	if err := fs.Parse(strings.Fields(line)); err != nil {
		return nil, err
	}
	cmd.Terms = fs.Args()
	return &cmd, nil
}
