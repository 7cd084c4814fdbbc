package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/evaluation"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/errors"
)

// Messages printed for incomplete commands.
const (
	MsgNoJudgments = "Please provide relevance judgements."
	MsgNoQuery     = "Please provide a query, preceded by -q."
)

type Searcher interface {
	Execute(ctx context.Context, req executor.Request) (*executor.Result, bool, error)
}

// Session reads commands and prints evaluation reports. Judgment and
// feedback files named in the corpus config are served from eval; any
// other path is read when a command names it.
type Session struct {
	searcher Searcher
	cfg      config.CorpusConfig
	eval     *corpus.Evaluation
	logger   *slog.Logger
}

func NewSession(searcher Searcher, cfg config.CorpusConfig, eval *corpus.Evaluation) *Session {
	if eval == nil {
		eval = &corpus.Evaluation{}
	}
	return &Session{
		searcher: searcher,
		cfg:      cfg,
		eval:     eval,
		logger:   slog.Default().With("component", "repl"),
	}
}

// Run prompts on out and handles lines from in until in is exhausted or
// ctx is done.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprintln(out, "Enter query: ")
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
		if err := s.Handle(ctx, scanner.Text(), out); err != nil {
			return err
		}
	}
}

// Handle runs one command line. Problems with the command itself are
// printed to out; only write failures are returned.
func (s *Session) Handle(ctx context.Context, line string, out io.Writer) error {
	received := time.Now()
	cmd, err := ParseCommand(line)
	if err != nil {
		_, werr := fmt.Fprintf(out, "%v\n%s\n", err, Usage)
		return werr
	}

	switch {
	case cmd.Help:
		_, err = fmt.Fprintln(out, Usage)
		return err
	case !cmd.Query:
		if len(cmd.Terms) == 0 && cmd.FeedbackFile == "" && cmd.RelevantFile == "" {
			return nil
		}
		_, err = fmt.Fprintln(out, MsgNoQuery)
		return err
	case cmd.RelevantFile == "":
		_, err = fmt.Fprintln(out, MsgNoJudgments)
		return err
	}

	req := executor.Request{Tokens: cmd.Terms, Received: received}
	ids, set, err := s.judgments(cmd.RelevantFile)
	if err != nil {
		return s.printError(out, err)
	}
	req.Judgments = evaluation.NewJudgments(ids)
	req.JudgmentSet = set

	if cmd.FeedbackFile != "" {
		fb, err := s.feedback(cmd.FeedbackFile)
		if err != nil {
			return s.printError(out, err)
		}
		req.Feedback = fb
	}

	result, _, err := s.searcher.Execute(ctx, req)
	if err != nil {
		return s.printError(out, err)
	}
	return evaluation.Render(out, result.Report)
}

func (s *Session) judgments(path string) ([]string, string, error) {
	switch {
	case samePath(path, s.cfg.RelevantNoFeedbackFile):
		return s.eval.RelevantNoFeedback, corpus.SetRelevantNoFeedback, nil
	case samePath(path, s.cfg.RelevantFile):
		return s.eval.Relevant, corpus.SetRelevant, nil
	}
	ids, err := corpus.ReadJudgmentsFile(path)
	if err != nil {
		return nil, "", err
	}
	return ids, filepath.Base(path), nil
}

func (s *Session) feedback(path string) (*query.Feedback, error) {
	records := s.eval.Feedback
	if !samePath(path, s.cfg.FeedbackFile) {
		var err error
		if records, err = corpus.ReadFeedbackFile(path); err != nil {
			return nil, err
		}
	}
	relevant, irrelevant := corpus.SplitFeedback(records)
	return &query.Feedback{Relevant: relevant, Irrelevant: irrelevant}, nil
}

func (s *Session) printError(out io.Writer, err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, apperrors.ErrDegenerateVector):
		msg = "None of the query terms are in the index."
	case errors.Is(err, apperrors.ErrEmptyFeedbackSet):
		msg = "The feedback file marks no document as relevant."
	}
	s.logger.Debug("command failed", "error", err)
	_, werr := fmt.Fprintln(out, msg)
	return werr
}

func samePath(a, b string) bool {
	return a != "" && b != "" && filepath.Clean(a) == filepath.Clean(b)
}
