package evaluation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/postgres"
)

// Run is one evaluated search as persisted by Store.
type Run struct {
	ID          int64     `json:"id"`
	Query       string    `json:"query"`
	Feedback    bool      `json:"feedback"`
	JudgmentSet string    `json:"judgment_set"`
	Report      *Report   `json:"report"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists evaluation runs in PostgreSQL. postgres.Client.Migrate
// creates its tables:
//
//	CREATE TABLE evaluation_runs (
//	    id            BIGSERIAL PRIMARY KEY,
//	    query         TEXT NOT NULL,
//	    feedback      BOOLEAN NOT NULL,
//	    judgment_set  TEXT NOT NULL,
//	    total_results INTEGER NOT NULL,
//	    mean_avg_prec DOUBLE PRECISION NOT NULL,
//	    elapsed_ms    BIGINT NOT NULL,
//	    report        JSONB NOT NULL,
//	    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE TABLE evaluation_levels (
//	    run_id    BIGINT REFERENCES evaluation_runs(id) ON DELETE CASCADE,
//	    recall    DOUBLE PRECISION NOT NULL,
//	    precision DOUBLE PRECISION NOT NULL,
//	    PRIMARY KEY (run_id, recall)
//	);
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "evaluation-store"),
	}
}

// Save writes the run and its interpolated levels in one transaction and
// returns the new run id.
func (s *Store) Save(ctx context.Context, run Run) (int64, error) {
	if run.Report == nil {
		return 0, fmt.Errorf("saving evaluation run: nil report")
	}
	data, err := json.Marshal(run.Report)
	if err != nil {
		return 0, fmt.Errorf("marshaling report: %w", err)
	}

	var id int64
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO evaluation_runs
			   (query, feedback, judgment_set, total_results, mean_avg_prec, elapsed_ms, report, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
			run.Query, run.Feedback, run.JudgmentSet,
			run.Report.TotalResults, run.Report.MeanAveragePrecision,
			run.Report.Elapsed.Milliseconds(), data, time.Now().UTC(),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("inserting evaluation run: %w", err)
		}
		for _, l := range run.Report.Levels {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO evaluation_levels (run_id, recall, precision) VALUES ($1, $2, $3)`,
				id, l.Recall, l.Precision,
			); err != nil {
				return fmt.Errorf("inserting level %.1f: %w", l.Recall, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("evaluation run saved",
		"run_id", id,
		"query", run.Query,
		"mean_average_precision", run.Report.MeanAveragePrecision,
	)
	return id, nil
}

// Recent returns the last limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, query, feedback, judgment_set, report, created_at
		   FROM evaluation_runs ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing evaluation runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run  Run
			data []byte
		)
		if err := rows.Scan(&run.ID, &run.Query, &run.Feedback, &run.JudgmentSet, &data, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning evaluation run: %w", err)
		}
		var report Report
		if err := json.Unmarshal(data, &report); err != nil {
			s.logger.Warn("skipping corrupt evaluation run", "run_id", run.ID, "error", err)
			continue
		}
		run.Report = &report
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
