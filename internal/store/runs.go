package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// runTimeLayout is the layout of ingest_runs timestamps. Fixed width, so
// text order is time order.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one ingest_runs row: the import of one stream file.
type Run struct {
	ID             string
	Stream         string
	Path           string
	Status         string
	StartedAt      time.Time
	FinishedAt     time.Time
	Chunks         int64
	Lines          int64
	RowsInserted   int64
	LinesSkipped   int64
	CommitFailures int64
	Error          string
}

// StartRun records the beginning of a stream import with status "running".
func (s *Store) StartRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (id, stream, path, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Stream,
		run.Path,
		RunRunning,
		run.StartedAt.UTC().Format(runTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun stores the final status and counters of a run.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	var errText sql.NullString
	if run.Error != "" {
		errText = sql.NullString{String: run.Error, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE ingest_runs
		SET status = ?, finished_at = ?, chunks = ?, lines = ?, rows_inserted = ?,
		    lines_skipped = ?, commit_failures = ?, error = ?
		WHERE id = ?
	`,
		run.Status,
		run.FinishedAt.UTC().Format(runTimeLayout),
		run.Chunks,
		run.Lines,
		run.RowsInserted,
		run.LinesSkipped,
		run.CommitFailures,
		errText,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: rows affected: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("finish run: run %q not found", run.ID)
	}
	return nil
}

// Runs returns every recorded run, oldest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stream, path, status, started_at, finished_at, chunks, lines,
		       rows_inserted, lines_skipped, commit_failures, error
		FROM ingest_runs
		ORDER BY started_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var (
			run               Run
			started           string
			finished, errText sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Stream, &run.Path, &run.Status, &started, &finished,
			&run.Chunks, &run.Lines, &run.RowsInserted, &run.LinesSkipped, &run.CommitFailures, &errText); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		run.StartedAt, err = time.Parse(runTimeLayout, started)
		if err != nil {
			return nil, fmt.Errorf("run %s: started_at: %w", run.ID, err)
		}
		if finished.Valid {
			run.FinishedAt, err = time.Parse(runTimeLayout, finished.String)
			if err != nil {
				return nil, fmt.Errorf("run %s: finished_at: %w", run.ID, err)
			}
		}
		run.Error = errText.String
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
