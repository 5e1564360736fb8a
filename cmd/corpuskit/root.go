package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var rootFlag string
	var logLevelFlag string
	var logFormatFlag string
	var seedFlag int64

	app := newAppContext(&configFlag, &rootFlag, &logLevelFlag, &logFormatFlag, &seedFlag)

	rootCmd := &cobra.Command{
		Use:           "corpuskit",
		Short:         "Speech corpus preparation toolkit",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := app.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Corpus root directory override")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format (console or json)")
	rootCmd.PersistentFlags().Int64Var(&seedFlag, "seed", 42, "Seed for deterministic shuffling and sampling")

	rootCmd.AddCommand(newSplitCommand(app))
	rootCmd.AddCommand(newMergeCommand(app))
	rootCmd.AddCommand(newSampleCommand(app))
	rootCmd.AddCommand(newCheckCommand(app))
	rootCmd.AddCommand(newPruneCommand(app))
	rootCmd.AddCommand(newConvertCommand(app))
	rootCmd.AddCommand(newFetchCommand(app))
	rootCmd.AddCommand(newStatsCommand(app))
	rootCmd.AddCommand(newFbankCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))
	rootCmd.AddCommand(newRunsCommand(app))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
