package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"corpuskit/internal/config"
	"corpuskit/internal/deps"
	"corpuskit/internal/features"
	"corpuskit/internal/ledger"
	"corpuskit/internal/services"
	"corpuskit/internal/task"
	"corpuskit/internal/transcode"
)

func newFbankCommand(app *appContext) *cobra.Command {
	var outDir string
	var speedPerturb bool

	cmd := &cobra.Command{
		Use:   "fbank <part.tsv>...",
		Short: "Extract filter-bank features for split parts",
		Long: "Fbank renders a log-mel filter-bank artifact per clip referenced by\n" +
			"the given part manifests and writes one cut manifest per part.\n" +
			"With --speed-perturb, train parts additionally get one artifact per\n" +
			"configured tempo factor. Already-rendered artifacts are skipped.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := app.ensureLogger()
			if err != nil {
				return err
			}
			parts := make([]string, 0, len(args))
			for _, arg := range args {
				part, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				parts = append(parts, part)
			}
			out := strings.TrimSpace(outDir)
			if out != "" {
				if out, err = config.ExpandPath(out); err != nil {
					return err
				}
			}
			build := func(store *ledger.Store) task.Task {
				return &fbankTask{
					cfg:          cfg,
					logger:       logger,
					parts:        parts,
					outDir:       out,
					speedPerturb: speedPerturb,
				}
			}
			return app.runTask(cmd, build, args, taskOptions{lock: true})
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "Feature output directory (default from config)")
	cmd.Flags().BoolVar(&speedPerturb, "speed-perturb", false, "Render tempo variants for train parts")

	cmd.AddCommand(newFbankCombineCommand(app))
	return cmd
}

type fbankTask struct {
	cfg          *config.Config
	logger       *slog.Logger
	parts        []string
	outDir       string
	speedPerturb bool
}

func (t *fbankTask) Name() string { return "fbank" }

func (t *fbankTask) Validate(ctx context.Context) error {
	for _, part := range t.parts {
		if _, err := os.Stat(part); err != nil {
			return services.Wrap(services.ErrPrecondition, "", "fbank",
				fmt.Sprintf("Part manifest %s does not exist", part), err)
		}
	}
	return deps.Verify([]deps.Requirement{deps.FFmpeg(t.cfg)})
}

func (t *fbankTask) Execute(ctx context.Context) (*task.Report, error) {
	outDir := t.outDir
	if outDir == "" {
		outDir = t.cfg.FeaturesPath()
	}
	extractor := features.New(features.Options{
		Transcoder: transcode.New(transcode.Options{
			Binary:     t.cfg.FFmpegBinary(),
			SampleRate: t.cfg.Transcode.SampleRate,
			Channels:   t.cfg.Transcode.Channels,
			Bitrate:    t.cfg.Transcode.Bitrate,
			Workers:    t.cfg.Transcode.Workers,
			Logger:     t.logger,
		}),
		ClipsDir:   t.cfg.ClipsPath(),
		OutDir:     outDir,
		NumMelBins: t.cfg.Features.NumMelBins,
		Window:     t.cfg.Features.Window,
		Resolution: t.cfg.Features.Resolution,
		MelFmin:    t.cfg.Features.MelFmin,
		MelFmax:    t.cfg.Features.MelFmax,
		Workers:    t.cfg.Features.Workers,
		Logger:     t.logger,
	})

	report := &task.Report{}
	for _, part := range t.parts {
		var factors []float64
		if t.speedPerturb && features.IsTrainPart(features.PartName(part)) {
			factors = t.cfg.Features.SpeedFactors
		}
		result, err := extractor.Part(ctx, part, factors, progressWriter())
		if err != nil {
			return report, err
		}
		report.Counters.RowsOut += int64(result.Extracted + result.Skipped)
		report.Counters.Failures += int64(result.Failed)
		appendExamples(report, result.Examples)
		report.Summary = append(report.Summary,
			fmt.Sprintf("%s: %d extracted, %d skipped, %d missing, %d failed -> %s",
				features.PartName(part), result.Extracted, result.Skipped,
				result.Missing, result.Failed, result.CutsPath))
	}
	return report, nil
}

func newFbankCombineCommand(app *appContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "combine <cuts.jsonl.gz>...",
		Short: "Concatenate cut manifests into one",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := config.ExpandPath(output)
			if err != nil {
				return err
			}
			inputs := make([]string, 0, len(args))
			for _, arg := range args {
				input, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				inputs = append(inputs, input)
			}
			build := func(store *ledger.Store) task.Task {
				return &fbankCombineTask{inputs: inputs, output: out}
			}
			return app.runTask(cmd, build, args, taskOptions{})
		},
	}
	cmd.Flags().StringVarP(&output, "out", "o", "", "Combined cut manifest path")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

type fbankCombineTask struct {
	inputs []string
	output string
}

func (t *fbankCombineTask) Name() string { return "fbank combine" }

func (t *fbankCombineTask) Validate(ctx context.Context) error {
	for _, input := range t.inputs {
		if _, err := os.Stat(input); err != nil {
			return services.Wrap(services.ErrPrecondition, "", "fbank combine",
				fmt.Sprintf("Cut manifest %s does not exist", input), err)
		}
	}
	return nil
}

func (t *fbankCombineTask) Execute(ctx context.Context) (*task.Report, error) {
	result, err := features.Combine(t.inputs, t.output)
	if err != nil {
		return nil, err
	}
	report := &task.Report{}
	report.Counters.RowsIn = int64(result.Cuts)
	report.Counters.RowsOut = int64(result.Cuts)
	report.Summary = append(report.Summary,
		fmt.Sprintf("Combined %d cuts from %d parts -> %s", result.Cuts, result.Parts, t.output))
	return report, nil
}
