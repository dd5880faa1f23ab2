package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/sonataforge/internal/db"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent pipeline run events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := db.DefaultDBPath()
		if err != nil {
			return &configError{err: err}
		}
		d, err := db.Open(dbPath)
		if err != nil {
			return &configError{err: err}
		}
		defer d.Close()
		if err := d.Migrate(); err != nil {
			return &configError{err: err}
		}

		events, err := d.RecentRunEvents(historyLimit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No run events recorded.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-20s %-10s %-18s %-14s %-8s\n", "TIMESTAMP", "RUN", "EVENT", "STAGE", "ATTEMPT")
		for _, e := range events {
			fmt.Fprintf(w, "%-20s %-10s %-18s %-14s %-8d\n",
				e.Timestamp, shortID(e.RunID), e.Event, e.Stage, e.Attempt)
		}
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "maximum events to show")
}
