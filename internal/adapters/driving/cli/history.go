package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	a, err := getApplication()
	if err != nil {
		return err
	}
	svc, err := a.SpoolService()
	if err != nil {
		return err
	}

	runs, err := svc.History(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tRUN\tDESTINATION\tFILES\tWRITTEN\tSPOOLED\tSKIPPED\tERRORS\tDURATION")
	for i := range runs {
		r := &runs[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			truncate(r.RunID, 8),
			r.Destination,
			r.FilesVisited,
			r.RowsWritten,
			r.RowsSpooled,
			r.FoldersSkipped(),
			r.ErrorCount(),
			r.Duration().Round(time.Second),
		)
	}
	return tw.Flush()
}

// truncate shortens s to at most maxLen bytes.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
