package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs from the run history database",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := buildApp(nil)
		if err != nil {
			return err
		}
		defer cleanup()

		runs, err := app.RecentRuns(historyLimit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "Started\tKind\tSource\tUniverse\tResults\tFailures\tDuration")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Kind, r.Source,
				r.Universe, r.Results, r.Failures, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs")
}
