package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"corpuskit/internal/config"
	"corpuskit/internal/deps"
	"corpuskit/internal/ledger"
	"corpuskit/internal/probe"
	"corpuskit/internal/services"
	"corpuskit/internal/stats"
	"corpuskit/internal/task"
)

func newStatsCommand(app *appContext) *cobra.Command {
	var bySplit bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report corpus duration totals",
		Long: "Stats probes every clip for its duration and reports totals and the\n" +
			"mean clip length. Probe results are cached in the run ledger, so\n" +
			"repeat runs only pay for new or changed files.",
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
				return &statsTask{cfg: cfg, logger: logger, store: store, bySplit: bySplit}
			}
			return app.runTask(cmd, build, nil, taskOptions{})
		},
	}
	cmd.Flags().BoolVar(&bySplit, "by-split", false, "Also report row counts per split part")
	return cmd
}

type statsTask struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *ledger.Store
	bySplit bool
}

func (t *statsTask) Name() string { return "stats" }

func (t *statsTask) Validate(ctx context.Context) error {
	if _, err := os.Stat(t.cfg.ClipsPath()); err != nil {
		return services.Wrap(services.ErrPrecondition, "", "stats",
			fmt.Sprintf("Clips directory %s does not exist", t.cfg.ClipsPath()), err)
	}
	return deps.Verify([]deps.Requirement{deps.FFprobe(t.cfg)})
}

func (t *statsTask) Execute(ctx context.Context) (*task.Report, error) {
	collector := &stats.Collector{
		Prober: probe.New(probe.Options{
			Binary: t.cfg.FFprobeBinary(),
			Cache:  t.store,
			Logger: t.logger,
		}),
		ClipsDir: t.cfg.ClipsPath(),
		Workers:  t.cfg.Transcode.Workers,
		Logger:   t.logger,
	}
	summary, err := collector.Durations(ctx)
	if err != nil {
		return nil, err
	}

	report := &task.Report{}
	report.Counters.RowsIn = int64(summary.Clips)
	report.Counters.Failures = int64(summary.Failed)
	appendExamples(report, summary.Examples)
	report.Summary = append(report.Summary, renderDurations(summary))

	if t.bySplit {
		counts, err := stats.SplitRows([]string{
			t.cfg.PartPath("train"),
			t.cfg.PartPath("dev"),
			t.cfg.PartPath("test"),
		}, t.logger)
		if err != nil {
			return nil, err
		}
		report.Summary = append(report.Summary, renderSplitRows(counts))
	}
	return report, nil
}

func renderDurations(summary *stats.Summary) string {
	rows := [][]string{
		{"Clips", strconv.Itoa(summary.Clips)},
		{"Probed", strconv.Itoa(summary.Probed)},
		{"Failed", strconv.Itoa(summary.Failed)},
		{"Total hours", fmt.Sprintf("%.2f", summary.TotalHours)},
		{"Mean seconds", fmt.Sprintf("%.1f", summary.MeanSeconds)},
	}
	return renderTable([]string{"Metric", "Value"}, rows,
		[]columnAlignment{alignLeft, alignRight})
}

func renderSplitRows(counts []stats.SplitCount) string {
	if len(counts) == 0 {
		return "No split parts written yet"
	}
	rows := make([][]string, 0, len(counts))
	for _, count := range counts {
		rows = append(rows, []string{count.Name, strconv.Itoa(count.Rows)})
	}
	return renderTable([]string{"Part", "Rows"}, rows,
		[]columnAlignment{alignLeft, alignRight})
}
