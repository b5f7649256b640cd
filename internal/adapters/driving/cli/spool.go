package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var (
	spoolLimit     int
	spoolBatchSize int
)

var spoolCmd = &cobra.Command{
	Use:   "spool",
	Short: "Manage rows that could not be delivered",
	Long: `Rows whose sink append failed after retries are stored in the local
database. Use these commands to inspect, replay or discard them.`,
}

var spoolListCmd = &cobra.Command{
	Use:   "list",
	Short: "List spooled rows, oldest first",
	Args:  cobra.NoArgs,
	RunE:  runSpoolList,
}

var spoolReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Send spooled rows to their destinations",
	Long: `Re-sends spooled rows grouped by destination. Delivered rows are
removed from the spool; a destination stops at its first failed batch.`,
	Args: cobra.NoArgs,
	RunE: runSpoolReplay,
}

var spoolClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard every spooled row",
	Args:  cobra.NoArgs,
	RunE:  runSpoolClear,
}

func init() {
	spoolListCmd.Flags().IntVarP(&spoolLimit, "limit", "n", 50, "maximum rows to show (0 for all)")
	spoolReplayCmd.Flags().IntVar(&spoolBatchSize, "batch-size", 0, "rows per append (default: BATCH_SIZE)")

	spoolCmd.AddCommand(spoolListCmd)
	spoolCmd.AddCommand(spoolReplayCmd)
	spoolCmd.AddCommand(spoolClearCmd)
	rootCmd.AddCommand(spoolCmd)
}

func runSpoolList(cmd *cobra.Command, _ []string) error {
	a, err := getApplication()
	if err != nil {
		return err
	}
	svc, err := a.SpoolService()
	if err != nil {
		return err
	}

	rows, err := svc.List(cmd.Context(), spoolLimit)
	if err != nil {
		return fmt.Errorf("failed to list spool: %w", err)
	}
	if len(rows) == 0 {
		cmd.Println("The spool is empty.")
		return nil
	}

	cmd.Printf("Spooled rows (%d):\n", len(rows))
	cmd.Println()
	for i := range rows {
		r := &rows[i]
		cmd.Printf("  [%d] %s (%s)\n", r.ID, r.Row.FileName, r.Row.FileID)
		cmd.Printf("      Destination: %s\n", r.Destination)
		cmd.Printf("      Spooled: %s  Run: %s\n", r.SpooledAt.Format(time.RFC3339), r.RunID)
		if r.Cause != "" {
			cmd.Printf("      Cause: %s\n", mutedStyle.Render(r.Cause))
		}
	}
	return nil
}

func runSpoolReplay(cmd *cobra.Command, _ []string) error {
	a, err := getApplication()
	if err != nil {
		return err
	}
	svc, err := a.SpoolService()
	if err != nil {
		return err
	}

	batchSize := a.Config().Run.BatchSize
	if cmd.Flags().Changed("batch-size") {
		batchSize = spoolBatchSize
	}

	result, err := svc.Replay(cmd.Context(), batchSize)
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}

	cmd.Printf("Delivered %d rows, %d remaining.\n", result.Delivered, result.Remaining)
	if len(result.Failures) == 0 {
		return nil
	}

	destinations := make([]string, 0, len(result.Failures))
	for d := range result.Failures {
		destinations = append(destinations, d)
	}
	sort.Strings(destinations)
	for _, d := range destinations {
		cmd.Printf("  %s %s: %v\n", errorStyle.Render("failed"), d, result.Failures[d])
	}
	return fmt.Errorf("%d destinations could not be replayed", len(result.Failures))
}

func runSpoolClear(cmd *cobra.Command, _ []string) error {
	a, err := getApplication()
	if err != nil {
		return err
	}
	svc, err := a.SpoolService()
	if err != nil {
		return err
	}

	n, err := svc.Clear(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to clear spool: %w", err)
	}
	cmd.Printf("Removed %d spooled rows.\n", n)
	return nil
}
