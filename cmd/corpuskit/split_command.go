package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"corpuskit/internal/config"
	"corpuskit/internal/ledger"
	"corpuskit/internal/manifest"
	"corpuskit/internal/reconcile"
	"corpuskit/internal/services"
	"corpuskit/internal/task"
)

func newSplitCommand(app *appContext) *cobra.Command {
	var devRatio float64
	var testRatio float64
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Partition the primary manifest into train/dev/test parts",
		Long: "Split shuffles the primary manifest with a seeded PRNG and writes one\n" +
			"part manifest per split under the corpus root. The same seed and input\n" +
			"always produce the same partition. A ratio of exactly 0 drops that part.",
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
			if !cmd.Flags().Changed("dev-ratio") {
				devRatio = cfg.Split.DevRatio
			}
			if !cmd.Flags().Changed("test-ratio") {
				testRatio = cfg.Split.TestRatio
			}
			build := func(store *ledger.Store) task.Task {
				return &splitTask{
					cfg:    cfg,
					logger: logger,
					ratios: splitRatios(devRatio, testRatio),
					seed:   app.seed(cmd, cfg),
					dryRun: dryRun,
				}
			}
			return app.runTask(cmd, build, nil, taskOptions{lock: true, dryRun: dryRun})
		},
	}

	cmd.Flags().Float64Var(&devRatio, "dev-ratio", 0, "Fraction of records for the dev part")
	cmd.Flags().Float64Var(&testRatio, "test-ratio", 0, "Fraction of records for the test part")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the partition without writing part manifests")
	return cmd
}

// splitRatios builds the configured non-train splits. A ratio of exactly 0
// opts the part out; negative values pass through so validation rejects them.
func splitRatios(dev, test float64) []reconcile.Ratio {
	var ratios []reconcile.Ratio
	if dev != 0 {
		ratios = append(ratios, reconcile.Ratio{Name: "dev", Value: dev})
	}
	if test != 0 {
		ratios = append(ratios, reconcile.Ratio{Name: "test", Value: test})
	}
	return ratios
}

type splitTask struct {
	cfg    *config.Config
	logger *slog.Logger
	ratios []reconcile.Ratio
	seed   int64
	dryRun bool
}

func (t *splitTask) Name() string { return "split" }

func (t *splitTask) Validate(ctx context.Context) error {
	if err := reconcile.ValidateRatios(t.ratios); err != nil {
		return err
	}
	if _, err := os.Stat(t.cfg.ManifestPath()); err != nil {
		return services.Wrap(services.ErrPrecondition, "", "split",
			fmt.Sprintf("Manifest %s does not exist", t.cfg.ManifestPath()), err)
	}
	return nil
}

func (t *splitTask) Execute(ctx context.Context) (*task.Report, error) {
	corpus, err := manifest.Load(t.cfg.ManifestPath(), t.logger)
	if err != nil {
		return nil, err
	}
	parts, err := reconcile.Split(corpus, t.ratios, t.seed)
	if err != nil {
		return nil, err
	}

	report := &task.Report{}
	report.Counters.RowsIn = int64(corpus.Len())

	names := make([]string, 0, len(t.ratios)+1)
	for _, ratio := range t.ratios {
		names = append(names, ratio.Name)
	}
	names = append(names, reconcile.TrainSplit)

	for _, name := range names {
		part := parts[name]
		dest := t.cfg.PartPath(name)
		report.Counters.RowsOut += int64(part.Len())
		if t.dryRun {
			report.Summary = append(report.Summary,
				fmt.Sprintf("%s: %d rows (would write %s)", name, part.Len(), dest))
			continue
		}
		if err := manifest.Write(dest, part); err != nil {
			return report, err
		}
		report.Summary = append(report.Summary,
			fmt.Sprintf("%s: %d rows -> %s", name, part.Len(), dest))
	}
	return report, nil
}
