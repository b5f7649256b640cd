package driven

import (
	"context"

	"github.com/custodia-labs/proofscan/internal/core/domain"
)

// SpoolStore persists rows that could not be delivered to their sink.
type SpoolStore interface {
	// Save stores rows. IDs are assigned by the store.
	Save(ctx context.Context, rows []domain.SpooledRow) error

	// List returns up to limit rows, oldest first. An empty destination
	// lists all destinations; limit <= 0 means no limit.
	List(ctx context.Context, destination string, limit int) ([]domain.SpooledRow, error)

	// Delete removes rows by ID.
	Delete(ctx context.Context, ids []int64) error

	// Count returns the number of spooled rows.
	Count(ctx context.Context) (int, error)
}

// RunStore persists run summaries.
type RunStore interface {
	// SaveRun stores a completed run.
	SaveRun(ctx context.Context, summary *domain.RunSummary) error

	// ListRuns returns up to limit runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
}
