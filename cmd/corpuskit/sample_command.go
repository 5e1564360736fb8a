package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"corpuskit/internal/config"
	"corpuskit/internal/ledger"
	"corpuskit/internal/manifest"
	"corpuskit/internal/reconcile"
	"corpuskit/internal/services"
	"corpuskit/internal/task"
)

func newSampleCommand(app *appContext) *cobra.Command {
	var count int
	var outPath string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a seeded random sample of the primary manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := app.ensureLogger()
			if err != nil {
				return err
			}
			out, err := config.ExpandPath(outPath)
			if err != nil {
				return err
			}
			build := func(store *ledger.Store) task.Task {
				return &sampleTask{
					cfg:    cfg,
					logger: logger,
					count:  count,
					seed:   app.seed(cmd, cfg),
					out:    out,
				}
			}
			return app.runTask(cmd, build, nil, taskOptions{})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of records to sample")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination manifest path")
	_ = cmd.MarkFlagRequired("count")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

type sampleTask struct {
	cfg    *config.Config
	logger *slog.Logger
	count  int
	seed   int64
	out    string
}

func (t *sampleTask) Name() string { return "sample" }

func (t *sampleTask) Validate(ctx context.Context) error {
	if t.count <= 0 {
		return services.Wrap(services.ErrPrecondition, "", "sample",
			fmt.Sprintf("Sample size must be positive, got %d", t.count), nil)
	}
	if _, err := os.Stat(t.cfg.ManifestPath()); err != nil {
		return services.Wrap(services.ErrPrecondition, "", "sample",
			fmt.Sprintf("Manifest %s does not exist", t.cfg.ManifestPath()), err)
	}
	return nil
}

func (t *sampleTask) Execute(ctx context.Context) (*task.Report, error) {
	corpus, err := manifest.Load(t.cfg.ManifestPath(), t.logger)
	if err != nil {
		return nil, err
	}
	sampled := reconcile.Sample(corpus, t.count, t.seed)

	if dir := filepath.Dir(t.out); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, services.Wrap(services.ErrPrecondition, "", "sample",
				fmt.Sprintf("Unable to create directory for %s", t.out), err)
		}
	}
	if err := manifest.Write(t.out, sampled); err != nil {
		return nil, err
	}

	report := &task.Report{}
	report.Counters.RowsIn = int64(corpus.Len())
	report.Counters.RowsOut = int64(sampled.Len())
	report.Summary = append(report.Summary,
		fmt.Sprintf("Sampled %d of %d rows -> %s", sampled.Len(), corpus.Len(), t.out))
	return report, nil
}
