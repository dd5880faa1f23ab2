package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sonataforge/internal/analytics"
	"github.com/lucasnoah/sonataforge/internal/db"
)

var statsSince string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Query run performance statistics",
}

var statsOutcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "How runs ended, as percentages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openStatsDB()
		if err != nil {
			return err
		}
		defer d.Close()

		sum, err := analytics.QueryRunOutcomes(d, statsSince)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if sum.Total == 0 {
			fmt.Fprintln(w, "No runs recorded.")
			return nil
		}
		fmt.Fprintf(w, "%-8s %-12s %-10s %-14s %-12s\n", "RUNS", "COMPLETED", "ABORTED", "STAGE_FAILED", "UNFINISHED")
		fmt.Fprintf(w, "%-8d %-12s %-10s %-14s %-12s\n",
			sum.Total, percentCell(sum.Completed), percentCell(sum.Aborted),
			percentCell(sum.StageFailed), percentCell(sum.Unfinished))
		return nil
	},
}

var statsStageDurationCmd = &cobra.Command{
	Use:   "stage-duration",
	Short: "Average and percentile durations per stage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openStatsDB()
		if err != nil {
			return err
		}
		defer d.Close()

		results, err := analytics.QueryStageDurations(d, statsSince)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(w, "No stage durations recorded.")
			return nil
		}
		fmt.Fprintf(w, "%-14s %-8s %-10s %-10s %-10s\n", "STAGE", "COUNT", "AVG(s)", "P50(s)", "P95(s)")
		for _, r := range results {
			fmt.Fprintf(w, "%-14s %-8d %-10.1f %-10.1f %-10.1f\n", r.Stage, r.Count, r.Avg, r.P50, r.P95)
		}
		return nil
	},
}

var statsRepairRoundsCmd = &cobra.Command{
	Use:   "repair-rounds",
	Short: "Distribution of repair rounds before a score compiled",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openStatsDB()
		if err != nil {
			return err
		}
		defer d.Close()

		dist, err := analytics.QueryRepairRounds(d, statsSince)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if dist.Total == 0 {
			fmt.Fprintln(w, "No compiled scores recorded.")
			return nil
		}
		fmt.Fprintf(w, "%-8s %-8s %-8s %-8s %-8s\n", "TOTAL", "ZERO", "ONE", "TWO", "3+")
		fmt.Fprintf(w, "%-8d %-8s %-8s %-8s %-8s\n",
			dist.Total, percentCell(dist.Zero), percentCell(dist.One),
			percentCell(dist.Two), percentCell(dist.ThreePlus))
		return nil
	},
}

var statsRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Full event timeline for one run (ID prefix accepted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openStatsDB()
		if err != nil {
			return err
		}
		defer d.Close()

		events, err := runTimeline(d, args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintf(w, "No events for run %q.\n", args[0])
			return nil
		}
		fmt.Fprintf(w, "%-20s %-18s %-14s %-8s %s\n", "TIMESTAMP", "EVENT", "STAGE", "ATTEMPT", "DETAIL")
		for _, e := range events {
			fmt.Fprintf(w, "%-20s %-18s %-14s %-8d %s\n",
				e.Timestamp, e.Event, e.Stage, e.Attempt, truncateDetail(e.Detail))
		}
		return nil
	},
}

// runTimeline resolves a run by exact ID first and falls back to an
// unambiguous prefix scan.
func runTimeline(d *db.DB, runID string) ([]analytics.RunEventView, error) {
	exact, err := d.RunEvents(runID)
	if err != nil {
		return nil, err
	}
	if len(exact) == 0 {
		return analytics.QueryRunDetail(d, runID)
	}
	views := make([]analytics.RunEventView, 0, len(exact))
	for _, e := range exact {
		views = append(views, analytics.RunEventView{
			Timestamp: e.Timestamp,
			Event:     e.Event,
			Stage:     e.Stage,
			Attempt:   e.Attempt,
			Detail:    e.Detail,
		})
	}
	return views, nil
}

func openStatsDB() (*db.DB, error) {
	dbPath, err := db.DefaultDBPath()
	if err != nil {
		return nil, &configError{err: err}
	}
	d, err := db.Open(dbPath)
	if err != nil {
		return nil, &configError{err: err}
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, &configError{err: err}
	}
	return d, nil
}

func percentCell(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func truncateDetail(s string) string {
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}

func init() {
	statsCmd.PersistentFlags().StringVar(&statsSince, "since", "", "only include events at or after this timestamp (e.g. 2026-01-01)")
	statsCmd.AddCommand(statsOutcomesCmd)
	statsCmd.AddCommand(statsStageDurationCmd)
	statsCmd.AddCommand(statsRepairRoundsCmd)
	statsCmd.AddCommand(statsRunCmd)
}
