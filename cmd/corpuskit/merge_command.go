package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"corpuskit/internal/clips"
	"corpuskit/internal/config"
	"corpuskit/internal/ledger"
	"corpuskit/internal/manifest"
	"corpuskit/internal/reconcile"
	"corpuskit/internal/services"
	"corpuskit/internal/task"
)

func newMergeCommand(app *appContext) *cobra.Command {
	var minWords int
	var sampleCount int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "merge <incoming-root>",
		Short: "Merge an incoming corpus into the primary with deduplication",
		Long: "Merge reads a second corpus in the same layout (manifest plus clips\n" +
			"directory), drops disqualified rows, skips duplicates by clip filename\n" +
			"and by sentence text, copies the surviving clips into the primary\n" +
			"store, and appends their rows to the primary manifest.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := app.ensureLogger()
			if err != nil {
				return err
			}
			incomingRoot, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("min-words") {
				minWords = cfg.Merge.MinWords
			}
			build := func(store *ledger.Store) task.Task {
				return &mergeTask{
					cfg:          cfg,
					logger:       logger,
					incomingRoot: incomingRoot,
					minWords:     minWords,
					sample:       sampleCount,
					seed:         app.seed(cmd, cfg),
					dryRun:       dryRun,
				}
			}
			return app.runTask(cmd, build, args, taskOptions{lock: true, dryRun: dryRun})
		},
	}

	cmd.Flags().IntVar(&minWords, "min-words", 0, "Drop incoming rows with fewer words than this")
	cmd.Flags().IntVar(&sampleCount, "sample", 0, "Merge only a seeded random sample of the incoming rows")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be merged without copying or writing")
	return cmd
}

type mergeTask struct {
	cfg          *config.Config
	logger       *slog.Logger
	incomingRoot string
	minWords     int
	sample       int
	seed         int64
	dryRun       bool
}

func (t *mergeTask) Name() string { return "merge" }

func (t *mergeTask) incomingManifest() string {
	return filepath.Join(t.incomingRoot, t.cfg.Corpus.Manifest)
}

func (t *mergeTask) incomingClips() string {
	return filepath.Join(t.incomingRoot, t.cfg.Corpus.ClipsDir)
}

func (t *mergeTask) Validate(ctx context.Context) error {
	for _, required := range []struct {
		path string
		what string
	}{
		{t.cfg.ManifestPath(), "Primary manifest"},
		{t.incomingManifest(), "Incoming manifest"},
		{t.incomingClips(), "Incoming clips directory"},
		{t.cfg.ClipsPath(), "Primary clips directory"},
	} {
		if _, err := os.Stat(required.path); err != nil {
			return services.Wrap(services.ErrPrecondition, "", "merge",
				fmt.Sprintf("%s %s does not exist", required.what, required.path), err)
		}
	}
	return nil
}

func (t *mergeTask) Execute(ctx context.Context) (*task.Report, error) {
	primary, err := manifest.Load(t.cfg.ManifestPath(), t.logger)
	if err != nil {
		return nil, err
	}
	incoming, err := manifest.Load(t.incomingManifest(), t.logger)
	if err != nil {
		return nil, err
	}

	report := &task.Report{}
	report.Counters.RowsIn = int64(primary.Len() + incoming.Len())

	filtered, removed := reconcile.FilterDisqualified(incoming, t.minWords)
	if t.sample > 0 {
		filtered = reconcile.Sample(filtered, t.sample, t.seed)
	}

	opts := reconcile.MergeOptions{ByClip: true, BySentence: t.cfg.Merge.DedupeBySentence}
	merged, added, duplicates := reconcile.Merge(primary, filtered, opts)

	report.Summary = append(report.Summary,
		fmt.Sprintf("Incoming rows: %d (%d disqualified, %d duplicates)",
			incoming.Len(), len(removed), duplicates))
	report.Summary = append(report.Summary, fmt.Sprintf("New rows: %d", len(added)))

	if t.dryRun {
		report.Counters.RowsOut = int64(merged.Len())
		return report, nil
	}

	names := make([]string, 0, len(added))
	for _, rec := range added {
		names = append(names, rec.Path)
	}
	copied, err := clips.Copy(t.incomingClips(), t.cfg.ClipsPath(), names, t.logger)
	if err != nil {
		return report, err
	}
	report.Counters.FilesCopied = int64(copied.Succeeded)
	report.Counters.Failures = int64(copied.Failed)
	appendExamples(report, copied.Examples)

	if copied.Failed > 0 {
		merged = dropUnbackedAdditions(merged, added, t.cfg.ClipsPath())
	}

	if err := manifest.Write(t.cfg.ManifestPath(), merged); err != nil {
		return report, err
	}
	report.Counters.RowsOut = int64(merged.Len())
	report.Summary = append(report.Summary,
		fmt.Sprintf("Copied %d clips; manifest now has %d rows", copied.Succeeded, merged.Len()))
	return report, nil
}

// dropUnbackedAdditions removes just-added rows whose clip copy failed, so a
// partially failed merge never writes a row without a backing file.
func dropUnbackedAdditions(merged *manifest.Corpus, added []manifest.Record, clipsDir string) *manifest.Corpus {
	newNames := make(map[string]struct{}, len(added))
	for _, rec := range added {
		newNames[rec.Path] = struct{}{}
	}

	kept := &manifest.Corpus{Path: merged.Path, Skipped: merged.Skipped}
	for _, rec := range merged.Records {
		if _, isNew := newNames[rec.Path]; isNew {
			stat, err := os.Stat(filepath.Join(clipsDir, rec.Path))
			if err != nil || stat.Size() == 0 {
				continue
			}
		}
		kept.Records = append(kept.Records, rec)
	}
	return kept
}
