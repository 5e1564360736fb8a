package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"corpuskit/internal/ledger"
)

func newRunsCommand(app *appContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run ledger",
	}
	runsCmd.AddCommand(newRunsListCommand(app))
	runsCmd.AddCommand(newRunsClearCommand(app))
	return runsCmd
}

func newRunsListCommand(app *appContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortRunID(run.ID),
					run.Tool,
					string(run.Status),
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					runDuration(run),
					fmt.Sprintf("%d/%d", run.Counters.RowsIn, run.Counters.RowsOut),
					strconv.FormatInt(run.Counters.Failures, 10),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Tool", "Status", "Started", "Duration", "Rows in/out", "Failures"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	return cmd
}

func newRunsClearCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop finished runs and the probe cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ClearFinishedRuns(cmd.Context())
			if err != nil {
				return err
			}
			probes, err := store.ClearProbeCache(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d finished runs and %d cached probes\n", runs, probes)
			return nil
		},
	}
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runDuration(run *ledger.Run) string {
	if run.FinishedAt.IsZero() {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
