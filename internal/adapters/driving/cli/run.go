package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driving"
)

var (
	runFolder    string
	runSink      string
	runDownload  bool
	runBatchSize int
	runWorkers   int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan a Drive folder tree and write one row per file",
	Long: `Walks the folder tree below the root folder, extracts metadata from
each file name, optionally asks the configured language model for coupon
offers, and appends the rows to the sink in batches.

Rows that cannot be delivered after retries are kept in the local spool;
replay them with 'proofscan spool replay'.`,
	Example: `  proofscan run --folder 1AbC... --sink sheets:1XyZ...
  proofscan run --sink xlsx:proofs.xlsx --download-pdfs`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runFolder, "folder", "f", "", "root Drive folder ID (default: DRIVE_FOLDER_ID)")
	runCmd.Flags().StringVarP(&runSink, "sink", "s", "",
		"destination: sheets[:id], xlsx[:path] or postgres[:table] (default: SINK)")
	runCmd.Flags().BoolVar(&runDownload, "download-pdfs", false, "download each file and send it to the model")
	runCmd.Flags().IntVar(&runBatchSize, "batch-size", 0, "rows per sink append (default: BATCH_SIZE)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "files processed concurrently (default: MAX_WORKERS)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	a, err := getApplication()
	if err != nil {
		return err
	}

	cfg := a.Config()
	if cmd.Flags().Changed("batch-size") {
		cfg.Run.BatchSize = runBatchSize
	}
	if cmd.Flags().Changed("workers") {
		cfg.Run.Workers = runWorkers
	}
	if cmd.Flags().Changed("download-pdfs") {
		cfg.Run.DownloadContent = runDownload
	}
	folder := firstNonEmpty(runFolder, cfg.Drive.FolderID)
	destination := firstNonEmpty(runSink, cfg.Sink.Destination)

	if err := cfg.ValidateRun(folder, destination); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer, err := a.Analyzer(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Scanning folder %s into %s...\n", folder, destination)
	summary, err := runWithProgress(ctx, cmd, analyzer, driving.RunRequest{
		RootFolderID:    folder,
		Destination:     destination,
		DownloadContent: cfg.Run.DownloadContent,
		BatchSize:       cfg.Run.BatchSize,
	})
	if summary != nil {
		renderSummary(cmd.OutOrStdout(), summary)
	}
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if lost := summary.RowsUndelivered - summary.RowsSpooled; lost > 0 {
		return fmt.Errorf("%d rows were neither delivered nor spooled", lost)
	}
	if summary.RowsSpooled > 0 {
		cmd.Printf("%d rows were spooled. Run 'proofscan spool replay' to deliver them.\n", summary.RowsSpooled)
	}
	return nil
}

// runWithProgress runs the analyzer while printing a running count.
func runWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	analyzer driving.Analyzer,
	req driving.RunRequest,
) (*domain.RunSummary, error) {
	var mu sync.Mutex
	last := 0
	req.Progress = func(p driving.RunProgress) {
		mu.Lock()
		defer mu.Unlock()
		if p.FilesVisited <= last {
			return
		}
		last = p.FilesVisited
		cmd.Printf("\rProcessed %d files, %d rows written (%d errors)", p.FilesVisited, p.RowsWritten, p.ErrorCount)
	}

	summary, err := analyzer.Run(ctx, req)

	mu.Lock()
	if last > 0 {
		cmd.Println()
	}
	mu.Unlock()
	return summary, err
}
