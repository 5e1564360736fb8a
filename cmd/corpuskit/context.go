package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"corpuskit/internal/config"
	"corpuskit/internal/ledger"
	"corpuskit/internal/logging"
	"corpuskit/internal/runlock"
	"corpuskit/internal/services"
	"corpuskit/internal/task"
)

// errCompletedWithFailures maps to exit code 2: the batch finished, but some
// per-file work failed and was skipped. The summary already showed the
// counts, so main exits without printing it again.
var errCompletedWithFailures = errors.New("completed with failures")

type appContext struct {
	configFlag    *string
	rootFlag      *string
	logLevelFlag  *string
	logFormatFlag *string
	seedFlag      *int64

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newAppContext(configFlag, rootFlag, logLevelFlag, logFormatFlag *string, seedFlag *int64) *appContext {
	return &appContext{
		configFlag:    configFlag,
		rootFlag:      rootFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
		seedFlag:      seedFlag,
	}
}

func (a *appContext) ensureConfig() (*config.Config, error) {
	a.configOnce.Do(func() {
		var path string
		if a.configFlag != nil {
			path = strings.TrimSpace(*a.configFlag)
		}
		cfg, resolvedPath, exists, err := config.Load(path)
		if err != nil {
			a.configErr = services.Wrap(services.ErrConfiguration, "", "load configuration", "", err)
			return
		}
		if a.rootFlag != nil && strings.TrimSpace(*a.rootFlag) != "" {
			root, err := config.ExpandPath(*a.rootFlag)
			if err != nil {
				a.configErr = services.Wrap(services.ErrConfiguration, "", "load configuration", "", err)
				return
			}
			cfg.Corpus.Root = root
		}
		if a.logLevelFlag != nil && strings.TrimSpace(*a.logLevelFlag) != "" {
			cfg.Logging.Level = *a.logLevelFlag
		}
		if a.logFormatFlag != nil && strings.TrimSpace(*a.logFormatFlag) != "" {
			cfg.Logging.Format = *a.logFormatFlag
		}
		if err := cfg.EnsureDirectories(); err != nil {
			a.configErr = services.Wrap(services.ErrConfiguration, "", "load configuration", "", err)
			return
		}
		a.config = cfg
		a.configPath = resolvedPath
		a.configExists = exists
	})
	return a.config, a.configErr
}

// ensureLogger builds the shared logger. When no format was forced and the
// process is piped, the console handler is swapped for JSON so downstream
// tooling sees structured lines.
func (a *appContext) ensureLogger() (*slog.Logger, error) {
	a.loggerOnce.Do(func() {
		cfg, err := a.ensureConfig()
		if err != nil {
			a.loggerErr = err
			return
		}
		formatForced := a.logFormatFlag != nil && strings.TrimSpace(*a.logFormatFlag) != ""
		if !formatForced && cfg.Logging.Format == "console" && !isTerminal(os.Stdout) {
			cfg.Logging.Format = "json"
		}
		a.logger, a.loggerErr = logging.NewFromConfig(cfg)
	})
	return a.logger, a.loggerErr
}

func (a *appContext) openLedger() (*ledger.Store, error) {
	cfg, err := a.ensureConfig()
	if err != nil {
		return nil, err
	}
	return ledger.Open(cfg)
}

// seed resolves the effective shuffle seed: the --seed flag when given,
// otherwise the configured default.
func (a *appContext) seed(cmd *cobra.Command, cfg *config.Config) int64 {
	if f := cmd.Flag("seed"); f != nil && f.Changed && a.seedFlag != nil {
		return *a.seedFlag
	}
	return cfg.Split.Seed
}

// taskOptions selects the shared plumbing a command needs.
type taskOptions struct {
	// lock takes the corpus-root run lock; commands that mutate the corpus
	// set it, read-only ones leave it false.
	lock   bool
	dryRun bool
}

// runTask wires a command's task through the shared runner: ledger row,
// optional corpus lock, summary rendering, and the exit-code contract.
func (a *appContext) runTask(cmd *cobra.Command, build func(store *ledger.Store) task.Task, positional []string, opts taskOptions) error {
	cfg, err := a.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := a.ensureLogger()
	if err != nil {
		return err
	}
	store, err := ledger.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var lock *runlock.Lock
	if opts.lock {
		if err := os.MkdirAll(cfg.Corpus.Root, 0o755); err != nil {
			return fmt.Errorf("create corpus root %q: %w", cfg.Corpus.Root, err)
		}
		lock = runlock.New(cfg.Corpus.Root)
	}

	report, err := task.Run(cmd.Context(), build(store), task.Options{
		Logger: logger,
		Ledger: store,
		Lock:   lock,
		Args:   invocationArgs(cmd, positional),
		DryRun: opts.dryRun,
	})
	if err != nil {
		return err
	}

	printReport(cmd.OutOrStdout(), report, opts.dryRun)
	if !opts.dryRun && report.HasFailures() {
		return errCompletedWithFailures
	}
	return nil
}

func printReport(out io.Writer, report *task.Report, dryRun bool) {
	if report == nil {
		return
	}
	for _, line := range report.Summary {
		fmt.Fprintln(out, line)
	}
	if len(report.Failures) > 0 {
		fmt.Fprintf(out, "Failures: %d (showing first %d)\n", report.Counters.Failures, len(report.Failures))
		for _, example := range report.Failures {
			fmt.Fprintf(out, "  %s\n", example)
		}
	}
	if dryRun {
		fmt.Fprintln(out, "Dry run: no changes were made")
	}
}

// maxReportExamples caps the failure examples a report accumulates across
// multiple batch results.
const maxReportExamples = 5

func appendExamples(report *task.Report, examples []string) {
	for _, example := range examples {
		if len(report.Failures) >= maxReportExamples {
			return
		}
		report.Failures = append(report.Failures, example)
	}
}

// invocationArgs reconstructs the command line for the run ledger: the
// subcommand path, positional arguments, and any flags that were set.
func invocationArgs(cmd *cobra.Command, positional []string) []string {
	parts := strings.Fields(cmd.CommandPath())
	if len(parts) > 0 {
		parts = parts[1:]
	}
	parts = append(parts, positional...)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		parts = append(parts, "--"+f.Name+"="+f.Value.String())
	})
	return parts
}

// progressWriter returns the live progress sink, or nil when output is not a
// terminal so piped runs stay clean.
func progressWriter() io.Writer {
	if isTerminal(os.Stderr) {
		return os.Stderr
	}
	return nil
}
