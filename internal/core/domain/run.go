package domain

import (
	"fmt"
	"strings"
	"time"
)

// FolderError reports a folder whose listing failed after retries.
// The folder and everything below it is excluded from the run.
type FolderError struct {
	FolderID string
	Path     []string
	Err      error
}

// Error implements error.
func (e *FolderError) Error() string {
	return fmt.Sprintf("folder %s (%s): %v", e.FolderID, strings.Join(e.Path, "/"), e.Err)
}

// Unwrap returns the underlying listing error.
func (e *FolderError) Unwrap() error {
	return e.Err
}

// Is matches ErrFolderUnreachable.
func (e *FolderError) Is(target error) bool {
	return target == ErrFolderUnreachable
}

// SkippedFolder is a FolderError as recorded in a run summary.
type SkippedFolder struct {
	FolderID string
	Path     string
	Cause    string
}

// RunSummary describes a completed run.
type RunSummary struct {
	RunID        string
	RootFolderID string
	Destination  string
	WithContent  bool
	StartedAt    time.Time
	FinishedAt   time.Time

	FilesVisited    int
	RowsWritten     int
	RowsUndelivered int
	RowsSpooled     int

	SkippedFolders   []SkippedFolder
	ContentErrors    int
	EnrichmentErrors int
	FlushErrors      int
}

// FoldersSkipped returns the number of unreachable folders.
func (s *RunSummary) FoldersSkipped() int {
	return len(s.SkippedFolders)
}

// ErrorCount sums every contained failure of the run.
func (s *RunSummary) ErrorCount() int {
	return len(s.SkippedFolders) + s.ContentErrors + s.EnrichmentErrors + s.FlushErrors
}

// Duration returns how long the run took.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Complete reports whether every visited file reached the sink.
func (s *RunSummary) Complete() bool {
	return s.RowsUndelivered == 0 && len(s.SkippedFolders) == 0
}
