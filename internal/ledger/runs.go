package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Counters aggregates the work a run performed.
type Counters struct {
	RowsIn       int64
	RowsOut      int64
	FilesCopied  int64
	FilesDeleted int64
	Failures     int64
}

// Run is one recorded tool invocation.
type Run struct {
	ID           string
	Tool         string
	Args         string
	Status       RunStatus
	StartedAt    time.Time
	FinishedAt   time.Time
	Counters     Counters
	ErrorMessage string
}

// ErrRunNotFound indicates the requested run does not exist.
var ErrRunNotFound = errors.New("run not found")

const runColumns = "id, tool, args, status, started_at, finished_at, rows_in, rows_out, files_copied, files_deleted, failures, error_message"

// StartRun records a new running entry and returns it.
func (s *Store) StartRun(ctx context.Context, tool, args string) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Tool:      tool,
		Args:      args,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, tool, args, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Tool, run.Args, string(run.Status), run.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun marks a run completed or failed and stores its counters.
func (s *Store) FinishRun(ctx context.Context, id string, status RunStatus, counters Counters, errorMessage string) error {
	err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, rows_in = ?, rows_out = ?,
		 files_copied = ?, files_deleted = ?, failures = ?, error_message = ?
		 WHERE id = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339Nano),
		counters.RowsIn, counters.RowsOut,
		counters.FilesCopied, counters.FilesDeleted, counters.Failures,
		nullableString(errorMessage), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// GetRun fetches one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return run, err
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns
// everything.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ClearFinishedRuns deletes completed and failed runs, returning how many
// were removed. Running entries stay.
func (s *Store) ClearFinishedRuns(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM runs WHERE status != ?", string(RunRunning))
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		status      string
		args        sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
		errMsg      sql.NullString
	)
	if err := scanner.Scan(
		&run.ID, &run.Tool, &args, &status, &startedRaw, &finishedRaw,
		&run.Counters.RowsIn, &run.Counters.RowsOut,
		&run.Counters.FilesCopied, &run.Counters.FilesDeleted,
		&run.Counters.Failures, &errMsg,
	); err != nil {
		return nil, err
	}
	run.Args = args.String
	run.Status = RunStatus(status)
	run.ErrorMessage = errMsg.String
	run.StartedAt = parseTimestamp(startedRaw)
	if finishedRaw.Valid {
		run.FinishedAt = parseTimestamp(finishedRaw.String)
	}
	return &run, nil
}

func parseTimestamp(raw string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
