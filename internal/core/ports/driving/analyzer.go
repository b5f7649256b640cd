package driving

import (
	"context"

	"github.com/custodia-labs/proofscan/internal/core/domain"
)

// Analyzer walks a folder tree and writes one row per file to a sink.
type Analyzer interface {
	// Run executes a complete run. Per-file and per-folder failures are
	// contained and counted in the summary; an error is returned only
	// for invalid requests or when the sink cannot be opened.
	Run(ctx context.Context, req RunRequest) (*domain.RunSummary, error)
}

// RunRequest parameterises a run.
type RunRequest struct {
	// RootFolderID is the folder the walk starts from.
	RootFolderID string

	// Destination selects the sink, e.g. "sheets:<id>" or "xlsx:out.xlsx".
	Destination string

	// DownloadContent attaches file bytes to enrichment requests.
	DownloadContent bool

	// BatchSize is the number of rows per sink append.
	BatchSize int

	// Progress, when set, is called after each row is produced.
	Progress func(p RunProgress)
}

// RunProgress is a point-in-time view of a running run.
type RunProgress struct {
	FilesVisited int
	RowsWritten  int
	ErrorCount   int
}
