package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/codesphere/internal/apperror"
	"github.com/sakif/codesphere/internal/model"
	"github.com/sakif/codesphere/internal/repository"
)

var _ repository.RunRepository = (*DB)(nil)

const runColumns = `id, language, code, status, stdout, stderr, exit_code,
	compile_error, timed_out, truncated, error, report, duration_ms,
	created_at, finished_at`

// CreateRun inserts a run. Unlike snippets, the ID comes from the caller: it
// is the id of the executor.Task that produces the outcome.
func (db *DB) CreateRun(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		return apperror.ValidationFailed("id", "run ID is required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = model.RunQueued
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Language, run.Code, run.Status,
		run.Stdout, run.Stderr, run.ExitCode,
		run.CompileError, run.TimedOut, run.Truncated, run.Error, run.Report, run.DurationMS,
		run.CreatedAt, nullTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating run: %w", err)
	}
	return nil
}

// UpdateRun writes the status and outcome columns. The request columns
// (language, code, created_at) never change.
//
// ROWS AFFECTED:
// An UPDATE that matches nothing is not an SQL error. RowsAffected tells the
// two cases apart, and zero rows becomes apperror.NotFound.
func (db *DB) UpdateRun(ctx context.Context, run *model.Run) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE runs
		 SET status = ?, stdout = ?, stderr = ?, exit_code = ?, compile_error = ?,
		     timed_out = ?, truncated = ?, error = ?, report = ?, duration_ms = ?,
		     finished_at = ?
		 WHERE id = ?`,
		run.Status, run.Stdout, run.Stderr, run.ExitCode, run.CompileError,
		run.TimedOut, run.Truncated, run.Error, run.Report, run.DurationMS,
		nullTime(run.FinishedAt),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating run %s: %w", run.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("run", run.ID)
	}
	return nil
}

// scanRun reads one row in runColumns order. scanner is satisfied by both
// *sql.Row and *sql.Rows, so GetRun and ListRuns share it.
//
// NULLABLE COLUMNS:
// finished_at is NULL until the run ends. sql.NullTime scans the NULL and
// the pointer stays nil on the model.
func scanRun(row scanner, r *model.Run) error {
	var finished sql.NullTime
	if err := row.Scan(
		&r.ID, &r.Language, &r.Code, &r.Status, &r.Stdout, &r.Stderr, &r.ExitCode,
		&r.CompileError, &r.TimedOut, &r.Truncated, &r.Error, &r.Report, &r.DurationMS,
		&r.CreatedAt, &finished,
	); err != nil {
		return err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return nil
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(ctx context.Context, id string) (*model.Run, error) {
	var run model.Run
	err := scanRun(db.conn.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id,
	), &run)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("run", id)
		}
		return nil, fmt.Errorf("sqlite: getting run %s: %w", id, err)
	}
	return &run, nil
}

// ListRuns returns runs newest first.
//
// THE LANGUAGE FILTER:
// (? = '' OR language = ?) binds the filter twice. An empty filter matches
// every row, so one statement serves both the filtered and unfiltered list.
//
// ROW ITERATION:
// rows.Close is deferred before the loop. rows.Err is checked after it,
// since Next returns false on both the end of the set and a read error.
func (db *DB) ListRuns(ctx context.Context, opts repository.ListOptions) ([]model.Run, error) {
	limit, offset := clampPage(opts)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+runColumns+`
		 FROM runs
		 WHERE (? = '' OR language = ?)
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		opts.Language, opts.Language, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing runs: %w", err)
	}
	defer rows.Close()

	runs := make([]model.Run, 0, limit)
	for rows.Next() {
		var r model.Run
		if err := scanRun(rows, &r); err != nil {
			return nil, fmt.Errorf("sqlite: scanning run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating runs: %w", err)
	}
	return runs, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
