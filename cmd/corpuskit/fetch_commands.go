package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"corpuskit/internal/config"
	"corpuskit/internal/fetch"
	"corpuskit/internal/ledger"
	"corpuskit/internal/services"
	"corpuskit/internal/task"
)

func newFetchCommand(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download source datasets",
		Long: "Fetch downloads dataset archives into the configured download\n" +
			"directory. Files already present are skipped, so an interrupted run\n" +
			"can simply be repeated.",
	}
	cmd.AddCommand(newFetchL2ArcticCommand(app))
	cmd.AddCommand(newFetchPeoplesSpeechCommand(app))
	return cmd
}

func newFetchL2ArcticCommand(app *appContext) *cobra.Command {
	var maxHours float64

	cmd := &cobra.Command{
		Use:   "l2arctic",
		Short: "Download and extract the L2-ARCTIC speaker archives",
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
			build := func(store *ledger.Store) task.Task {
				return &fetchL2ArcticTask{cfg: cfg, logger: logger, maxHours: maxHours}
			}
			return app.runTask(cmd, build, nil, taskOptions{})
		},
	}
	cmd.Flags().Float64Var(&maxHours, "max-hours", 0, "Stop once this many hours are on disk (0 = everything)")
	return cmd
}

type fetchL2ArcticTask struct {
	cfg      *config.Config
	logger   *slog.Logger
	maxHours float64
}

func (t *fetchL2ArcticTask) Name() string { return "fetch l2arctic" }

func (t *fetchL2ArcticTask) Validate(ctx context.Context) error {
	if strings.TrimSpace(t.cfg.Fetch.L2ArcticBaseURL) == "" {
		return services.Wrap(services.ErrConfiguration, "", t.Name(),
			"fetch.l2arctic_base_url is empty; set it in the configuration file", nil)
	}
	return nil
}

func (t *fetchL2ArcticTask) Execute(ctx context.Context) (*task.Report, error) {
	fetcher := fetch.New(fetch.Options{
		MinFreeGiB: t.cfg.Fetch.MinFreeGiB,
		Progress:   progressWriter(),
		Logger:     t.logger,
	})
	extractDir := filepath.Join(t.cfg.Fetch.DownloadDir, "l2arctic")
	result, err := fetcher.L2Arctic(ctx, fetch.L2ArcticOptions{
		BaseURL:     t.cfg.Fetch.L2ArcticBaseURL,
		DownloadDir: t.cfg.Fetch.DownloadDir,
		ExtractDir:  extractDir,
		MaxHours:    t.maxHours,
	})
	if err != nil {
		return nil, err
	}

	report := &task.Report{}
	report.Counters.FilesCopied = int64(result.Downloaded)
	report.Counters.Failures = int64(result.Failed)
	appendExamples(report, result.Examples)
	report.Summary = append(report.Summary,
		fmt.Sprintf("Speakers: %d downloaded, %d already extracted, %d failed",
			result.Downloaded, result.Skipped, result.Failed),
		fmt.Sprintf("Estimated audio on disk: %.1f hours", result.EstimatedHours),
		fmt.Sprintf("Extracted under %s", extractDir))
	return report, nil
}

func newFetchPeoplesSpeechCommand(app *appContext) *cobra.Command {
	var shards int

	cmd := &cobra.Command{
		Use:   "peoples-speech",
		Short: "Download People's Speech parquet shards",
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
			build := func(store *ledger.Store) task.Task {
				return &fetchPeoplesSpeechTask{cfg: cfg, logger: logger, shards: shards}
			}
			return app.runTask(cmd, build, nil, taskOptions{})
		},
	}
	cmd.Flags().IntVar(&shards, "shards", fetch.DefaultShards, "How many parquet shards to download")
	return cmd
}

type fetchPeoplesSpeechTask struct {
	cfg    *config.Config
	logger *slog.Logger
	shards int
}

func (t *fetchPeoplesSpeechTask) Name() string { return "fetch peoples-speech" }

func (t *fetchPeoplesSpeechTask) Validate(ctx context.Context) error {
	if strings.TrimSpace(t.cfg.Fetch.PeoplesSpeechBaseURL) == "" {
		return services.Wrap(services.ErrConfiguration, "", t.Name(),
			"fetch.peoples_speech_base_url is empty; set it in the configuration file", nil)
	}
	return nil
}

func (t *fetchPeoplesSpeechTask) Execute(ctx context.Context) (*task.Report, error) {
	fetcher := fetch.New(fetch.Options{
		MinFreeGiB: t.cfg.Fetch.MinFreeGiB,
		Progress:   progressWriter(),
		Logger:     t.logger,
	})
	downloadDir := filepath.Join(t.cfg.Fetch.DownloadDir, "peoples_speech")
	result, err := fetcher.PeoplesSpeech(ctx, fetch.PeoplesSpeechOptions{
		BaseURL:     t.cfg.Fetch.PeoplesSpeechBaseURL,
		DownloadDir: downloadDir,
		Shards:      t.shards,
	})
	if err != nil {
		return nil, err
	}

	report := &task.Report{}
	report.Counters.FilesCopied = int64(result.Downloaded)
	report.Counters.Failures = int64(result.Failed)
	appendExamples(report, result.Examples)
	report.Summary = append(report.Summary,
		fmt.Sprintf("Shards: %d downloaded, %d already present, %d failed",
			result.Downloaded, result.Skipped, result.Failed),
		fmt.Sprintf("Saved under %s", downloadDir))
	return report, nil
}
