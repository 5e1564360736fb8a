package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"corpuskit/internal/config"
	"corpuskit/internal/convert"
	"corpuskit/internal/deps"
	"corpuskit/internal/ledger"
	"corpuskit/internal/services"
	"corpuskit/internal/task"
	"corpuskit/internal/transcode"
)

func newConvertCommand(app *appContext) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Import external datasets into the corpus",
		Long: "Convert transcodes utterances from an external dataset layout into\n" +
			"the corpus clips directory and appends one manifest row per new clip.\n" +
			"Reruns skip clips that already exist.",
	}
	cmd.PersistentFlags().IntVar(&workers, "workers", 0, "Transcode worker count (default from config)")

	makeRun := func(kind string) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := app.ensureLogger()
			if err != nil {
				return err
			}
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			build := func(store *ledger.Store) task.Task {
				return &convertTask{
					cfg:     cfg,
					logger:  logger,
					kind:    kind,
					source:  source,
					workers: workers,
				}
			}
			return app.runTask(cmd, build, args, taskOptions{lock: true})
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "parquet <shard-file-or-dir>",
		Short: "Import MP3-bearing parquet shards",
		Args:  cobra.ExactArgs(1),
		RunE:  makeRun("parquet"),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "speechocean <dataset-root>",
		Short: "Import a SpeechOcean-style WAVE/ + transcript tree",
		Args:  cobra.ExactArgs(1),
		RunE:  makeRun("speechocean"),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "l2arctic <dataset-root>",
		Short: "Import an L2-ARCTIC speaker tree",
		Args:  cobra.ExactArgs(1),
		RunE:  makeRun("l2arctic"),
	})
	return cmd
}

type convertTask struct {
	cfg     *config.Config
	logger  *slog.Logger
	kind    string
	source  string
	workers int
}

func (t *convertTask) Name() string { return "convert " + t.kind }

func (t *convertTask) Validate(ctx context.Context) error {
	if _, err := os.Stat(t.source); err != nil {
		return services.Wrap(services.ErrPrecondition, "", t.Name(),
			fmt.Sprintf("Source %s does not exist", t.source), err)
	}
	return deps.Verify([]deps.Requirement{deps.FFmpeg(t.cfg)})
}

func (t *convertTask) Execute(ctx context.Context) (*task.Report, error) {
	workers := t.workers
	if workers <= 0 {
		workers = t.cfg.Transcode.Workers
	}
	importer := &convert.Importer{
		Transcoder: transcode.New(transcode.Options{
			Binary:     t.cfg.FFmpegBinary(),
			SampleRate: t.cfg.Transcode.SampleRate,
			Channels:   t.cfg.Transcode.Channels,
			Bitrate:    t.cfg.Transcode.Bitrate,
			Workers:    workers,
			Logger:     t.logger,
		}),
		ClipsDir:     t.cfg.ClipsPath(),
		ManifestPath: t.cfg.ManifestPath(),
		Locale:       t.cfg.Corpus.Locale,
		Workers:      workers,
		Logger:       t.logger,
	}

	result, err := t.runImport(ctx, importer)
	if err != nil {
		return nil, err
	}

	report := &task.Report{}
	report.Counters.RowsIn = int64(result.Imported + result.Skipped + result.Missing + result.Failed)
	report.Counters.RowsOut = int64(result.Imported)
	report.Counters.FilesCopied = int64(result.Imported)
	report.Counters.Failures = int64(result.Failed)
	appendExamples(report, result.Examples)
	report.Summary = append(report.Summary,
		fmt.Sprintf("Imported %d clips (%d already present, %d without transcript or audio, %d failed)",
			result.Imported, result.Skipped, result.Missing, result.Failed))
	return report, nil
}

func (t *convertTask) runImport(ctx context.Context, importer *convert.Importer) (*convert.Result, error) {
	switch t.kind {
	case "parquet":
		shards, err := convert.ParquetShards(t.source)
		if err != nil {
			return nil, err
		}
		return importer.ImportParquetShards(ctx, shards)
	case "speechocean":
		items, missing, err := convert.ScanSpeechOcean(t.source)
		if err != nil {
			return nil, err
		}
		result, err := importer.Import(ctx, items)
		if err != nil {
			return nil, err
		}
		result.Missing += missing
		return result, nil
	case "l2arctic":
		items, missing, err := convert.ScanL2Arctic(t.source)
		if err != nil {
			return nil, err
		}
		result, err := importer.Import(ctx, items)
		if err != nil {
			return nil, err
		}
		result.Missing += missing
		return result, nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "", t.Name(),
			fmt.Sprintf("Unknown dataset layout %q", t.kind), nil)
	}
}
