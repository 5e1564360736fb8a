package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"corpuskit/internal/clips"
	"corpuskit/internal/config"
	"corpuskit/internal/ledger"
	"corpuskit/internal/manifest"
	"corpuskit/internal/reconcile"
	"corpuskit/internal/services"
	"corpuskit/internal/stats"
	"corpuskit/internal/task"
)

// sentenceCellWidth bounds sentence columns in audit tables.
const sentenceCellWidth = 60

func newCheckCommand(app *appContext) *cobra.Command {
	var topWords int
	var nearDupes float64

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report manifest/store consistency without changing anything",
		Long: "Check compares the primary manifest against the clips directory and\n" +
			"reports orphan files and rows with missing clips. Optional audits:\n" +
			"--words[=N] lists the longest sentences by word count, and\n" +
			"--near-dupes[=T] lists transcript pairs above a cosine similarity\n" +
			"threshold. Check never mutates the corpus.",
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
			t := &checkTask{cfg: cfg, logger: logger}
			if cmd.Flags().Changed("words") {
				t.words = topWords
				if t.words < 0 {
					t.words = cfg.Audit.TopWords
				}
				t.wordsRequested = true
			}
			if cmd.Flags().Changed("near-dupes") {
				t.nearDupes = nearDupes
				if t.nearDupes < 0 {
					t.nearDupes = cfg.Audit.NearDupeThreshold
				}
				t.nearDupesRequested = true
			}
			build := func(store *ledger.Store) task.Task { return t }
			return app.runTask(cmd, build, nil, taskOptions{})
		},
	}

	cmd.Flags().IntVar(&topWords, "words", 0, "Report the top-N sentences by word count")
	cmd.Flags().Lookup("words").NoOptDefVal = "-1"
	cmd.Flags().Float64Var(&nearDupes, "near-dupes", 0, "Report near-duplicate transcript pairs above this similarity")
	cmd.Flags().Lookup("near-dupes").NoOptDefVal = "-1"
	return cmd
}

type checkTask struct {
	cfg                *config.Config
	logger             *slog.Logger
	words              int
	wordsRequested     bool
	nearDupes          float64
	nearDupesRequested bool
}

func (t *checkTask) Name() string { return "check" }

func (t *checkTask) Validate(ctx context.Context) error {
	if _, err := os.Stat(t.cfg.ManifestPath()); err != nil {
		return services.Wrap(services.ErrPrecondition, "", "check",
			fmt.Sprintf("Manifest %s does not exist", t.cfg.ManifestPath()), err)
	}
	if _, err := os.Stat(t.cfg.ClipsPath()); err != nil {
		return services.Wrap(services.ErrPrecondition, "", "check",
			fmt.Sprintf("Clips directory %s does not exist", t.cfg.ClipsPath()), err)
	}
	return nil
}

func (t *checkTask) Execute(ctx context.Context) (*task.Report, error) {
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

	rowsLine := fmt.Sprintf("Rows: %d", corpus.Len())
	if corpus.Skipped > 0 {
		rowsLine += fmt.Sprintf(" (%d malformed rows skipped)", corpus.Skipped)
	}
	report.Summary = append(report.Summary, rowsLine)
	report.Summary = append(report.Summary, fmt.Sprintf("Clips on disk: %d", len(listing)))
	report.Summary = append(report.Summary, describeNames("Orphan clips", orphans))
	report.Summary = append(report.Summary, describeNames("Rows with missing clips", missing))

	if t.wordsRequested {
		report.Summary = append(report.Summary, renderTopWords(corpus.Records, t.words))
	}
	if t.nearDupesRequested {
		report.Summary = append(report.Summary, renderNearDupes(corpus.Records, t.nearDupes))
	}
	return report, nil
}

// describeNames summarizes a name list, showing at most five entries.
func describeNames(label string, names []string) string {
	line := fmt.Sprintf("%s: %d", label, len(names))
	shown := names
	if len(shown) > 5 {
		shown = shown[:5]
	}
	for _, name := range shown {
		line += "\n  " + name
	}
	if len(names) > len(shown) {
		line += fmt.Sprintf("\n  ... and %d more", len(names)-len(shown))
	}
	return line
}

func renderTopWords(records []manifest.Record, n int) string {
	entries := stats.TopWords(records, n)
	if len(entries) == 0 {
		return "No sentences to rank"
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			strconv.Itoa(entry.Words),
			truncateCell(entry.Sentence, sentenceCellWidth),
		})
	}
	return renderTable([]string{"Words", "Sentence"}, rows,
		[]columnAlignment{alignRight, alignLeft})
}

func renderNearDupes(records []manifest.Record, threshold float64) string {
	pairs := stats.NearDupes(records, threshold)
	if len(pairs) == 0 {
		return fmt.Sprintf("No transcript pairs above similarity %.2f", threshold)
	}
	rows := make([][]string, 0, len(pairs))
	for _, pair := range pairs {
		rows = append(rows, []string{
			fmt.Sprintf("%.3f", pair.Similarity),
			fmt.Sprintf("%d/%d", pair.CountA, pair.CountB),
			truncateCell(pair.SentenceA, sentenceCellWidth),
			truncateCell(pair.SentenceB, sentenceCellWidth),
		})
	}
	return renderTable([]string{"Similarity", "Count", "Sentence A", "Sentence B"}, rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft})
}
