package driven

import (
	"context"

	"github.com/custodia-labs/proofscan/internal/core/domain"
)

// RowSink appends output rows to a tabular destination.
type RowSink interface {
	// Append writes rows in one call. Rows are either all written or
	// the call fails; partial writes are reported as failures.
	Append(ctx context.Context, rows []domain.OutputRow) error

	// Destination identifies the sink, e.g. "sheets:<id>".
	Destination() string

	// Close releases resources and flushes anything held locally.
	Close() error
}

// HeaderWriter is implemented by sinks that keep a header row.
type HeaderWriter interface {
	// EnsureHeader writes header when the destination is empty.
	EnsureHeader(ctx context.Context, header []string) error
}

// Pinger is implemented by sinks that can check reachability without
// writing.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SinkFactory opens a sink for a destination string.
type SinkFactory interface {
	Open(ctx context.Context, destination string) (RowSink, error)
}
