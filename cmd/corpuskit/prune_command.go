package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"corpuskit/internal/clips"
	"corpuskit/internal/config"
	"corpuskit/internal/ledger"
	"corpuskit/internal/manifest"
	"corpuskit/internal/reconcile"
	"corpuskit/internal/services"
	"corpuskit/internal/task"
)

func newPruneCommand(app *appContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete orphan clips and drop rows whose clips are gone",
		Long: "Prune reconciles the primary manifest with the clips directory:\n" +
			"clip files no manifest row references are deleted, and rows whose\n" +
			"clip file is absent are dropped from the manifest. Use --dry-run\n" +
			"to preview the changes first.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := app.ensureLogger()
			if err != nil {
				return err
			}
			build := func(store *ledger.Store) task.Task {
				return &pruneTask{cfg: cfg, logger: logger, dryRun: dryRun}
			}
			return app.runTask(cmd, build, nil, taskOptions{lock: true, dryRun: dryRun})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without touching files")
	return cmd
}

type pruneTask struct {
	cfg    *config.Config
	logger *slog.Logger
	dryRun bool
}

func (t *pruneTask) Name() string { return "prune" }

func (t *pruneTask) Validate(ctx context.Context) error {
	if _, err := os.Stat(t.cfg.ManifestPath()); err != nil {
		return services.Wrap(services.ErrPrecondition, "", "prune",
			fmt.Sprintf("Manifest %s does not exist", t.cfg.ManifestPath()), err)
	}
	if _, err := os.Stat(t.cfg.ClipsPath()); err != nil {
		return services.Wrap(services.ErrPrecondition, "", "prune",
			fmt.Sprintf("Clips directory %s does not exist", t.cfg.ClipsPath()), err)
	}
	return nil
}

func (t *pruneTask) Execute(ctx context.Context) (*task.Report, error) {
	corpus, err := manifest.Load(t.cfg.ManifestPath(), t.logger)
	if err != nil {
		return nil, err
	}
	listing, err := clips.List(t.cfg.ClipsPath())
	if err != nil {
		return nil, err
	}
	retained, orphans, missing := reconcile.ReconcileWithStore(corpus, listing)

	report := &task.Report{}
	report.Counters.RowsIn = int64(corpus.Len())
	report.Counters.RowsOut = int64(retained.Len())

	if t.dryRun {
		report.Summary = append(report.Summary,
			fmt.Sprintf("Would delete %d orphan clips", len(orphans)),
			fmt.Sprintf("Would drop %d rows with missing clips", len(missing)))
		return report, nil
	}

	deleted, err := clips.Delete(t.cfg.ClipsPath(), orphans, t.logger)
	if err != nil {
		return nil, err
	}
	report.Counters.FilesDeleted = int64(deleted.Succeeded)
	report.Counters.Failures += int64(deleted.Failed)
	appendExamples(report, deleted.Examples)
	report.Summary = append(report.Summary,
		fmt.Sprintf("Orphan clips deleted: %d of %d", deleted.Succeeded, len(orphans)))

	// A manifest with no dropped rows and no skipped ones is already the
	// retained manifest; rewriting it would only churn the mtime.
	if len(missing) == 0 && corpus.Skipped == 0 {
		report.Summary = append(report.Summary, "Manifest unchanged")
		return report, nil
	}
	if err := manifest.Write(t.cfg.ManifestPath(), retained); err != nil {
		return nil, err
	}
	report.Summary = append(report.Summary,
		fmt.Sprintf("Rows dropped (missing clips): %d", len(missing)),
		fmt.Sprintf("Manifest now has %d rows", retained.Len()))
	return report, nil
}
