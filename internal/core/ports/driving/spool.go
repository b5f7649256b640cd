package driving

import (
	"context"

	"github.com/custodia-labs/proofscan/internal/core/domain"
)

// SpoolService manages rows that failed to reach their sink.
type SpoolService interface {
	// List returns spooled rows, oldest first.
	List(ctx context.Context, limit int) ([]domain.SpooledRow, error)

	// Replay re-sends spooled rows to their destinations and removes
	// the delivered ones.
	Replay(ctx context.Context, batchSize int) (*ReplayResult, error)

	// Clear discards every spooled row.
	Clear(ctx context.Context) (int, error)

	// History returns recent run summaries, newest first.
	History(ctx context.Context, limit int) ([]domain.RunSummary, error)
}

// ReplayResult reports a replay.
type ReplayResult struct {
	Delivered int
	Remaining int

	// Failures maps destination to the error that stopped its replay.
	Failures map[string]error
}
