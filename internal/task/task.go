// Package task wraps corpus operations with the run plumbing every command
// shares: the corpus lock, a ledger row spanning the run, context annotation
// for logging, and a uniform failure path.
package task

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"corpuskit/internal/ledger"
	"corpuskit/internal/logging"
	"corpuskit/internal/runlock"
	"corpuskit/internal/services"
)

// Task is one corpus operation. Validate checks preconditions before any
// mutation; Execute does the work and reports what happened.
type Task interface {
	Name() string
	Validate(ctx context.Context) error
	Execute(ctx context.Context) (*Report, error)
}

// Report carries a finished task's counters and summary lines.
type Report struct {
	Counters ledger.Counters
	// Failures holds example failure lines, already capped by the task.
	Failures []string
	// Summary holds human-readable lines for the CLI to print.
	Summary []string
}

// HasFailures reports whether per-file failures were counted.
func (r *Report) HasFailures() bool {
	return r != nil && r.Counters.Failures > 0
}

// Options wires the shared infrastructure around a task.
type Options struct {
	Logger *slog.Logger
	// Ledger records the run when non-nil.
	Ledger *ledger.Store
	// Lock is held for the duration of the run when non-nil. Read-only
	// tasks leave it nil.
	Lock *runlock.Lock
	// Args is the flattened CLI invocation recorded in the ledger.
	Args []string
	// DryRun marks the ledger row so rehearsals are distinguishable.
	DryRun bool
}

// Run executes a task under the shared run plumbing: acquire the lock, open
// a ledger row, validate, execute, and close the row with the task's
// counters. The ledger row is finished even when the context was canceled
// mid-run.
func Run(ctx context.Context, t Task, opts Options) (*Report, error) {
	if t == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "run task", "No task provided", nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	if opts.Lock != nil {
		if err := opts.Lock.Acquire(); err != nil {
			return nil, err
		}
		defer opts.Lock.Release()
	}

	args := strings.Join(opts.Args, " ")
	if opts.DryRun && !strings.Contains(args, "--dry-run") {
		args = strings.TrimSpace(args + " --dry-run")
	}

	runID := ""
	if opts.Ledger != nil {
		run, err := opts.Ledger.StartRun(ctx, t.Name(), args)
		if err != nil {
			return nil, err
		}
		runID = run.ID
	}

	ctx = services.WithTask(ctx, t.Name())
	ctx = services.WithRunID(ctx, runID)
	logger = logging.WithContext(ctx, logger)

	started := time.Now()
	logger.Info("task started", logging.Bool("dry_run", opts.DryRun))

	if err := t.Validate(ctx); err != nil {
		finish(ctx, opts.Ledger, runID, ledger.RunFailed, ledger.Counters{}, err, logger)
		logger.Error("task validation failed", logging.Error(err))
		return nil, err
	}

	report, err := t.Execute(ctx)
	if report == nil {
		report = &Report{}
	}
	if err != nil {
		finish(ctx, opts.Ledger, runID, ledger.RunFailed, report.Counters, err, logger)
		logger.Error("task failed", logging.Error(err))
		return report, err
	}

	finish(ctx, opts.Ledger, runID, ledger.RunCompleted, report.Counters, nil, logger)
	logger.Info("task completed",
		logging.Duration(logging.FieldDuration, time.Since(started)),
		logging.Int64("rows_in", report.Counters.RowsIn),
		logging.Int64("rows_out", report.Counters.RowsOut),
		logging.Int64("failures", report.Counters.Failures))
	return report, nil
}

func finish(ctx context.Context, store *ledger.Store, runID string, status ledger.RunStatus, counters ledger.Counters, runErr error, logger *slog.Logger) {
	if store == nil || runID == "" {
		return
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	// The run outcome must land even when the run was canceled.
	if err := store.FinishRun(context.WithoutCancel(ctx), runID, status, counters, msg); err != nil {
		logger.Warn("failed to record run outcome", logging.Error(err))
	}
}
