package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
	"github.com/custodia-labs/proofscan/internal/core/ports/driving"
	"github.com/custodia-labs/proofscan/internal/retry"
)

// Ensure SpoolService implements the interface.
var _ driving.SpoolService = (*SpoolService)(nil)

// SpoolService replays rows that failed to reach their sink.
type SpoolService struct {
	spool driven.SpoolStore
	runs  driven.RunStore
	sinks driven.SinkFactory
	retry retry.Policy
	log   zerolog.Logger
}

// NewSpoolService creates a spool service.
func NewSpoolService(
	spool driven.SpoolStore,
	runs driven.RunStore,
	sinks driven.SinkFactory,
	policy retry.Policy,
	log zerolog.Logger,
) *SpoolService {
	return &SpoolService{
		spool: spool,
		runs:  runs,
		sinks: sinks,
		retry: policy,
		log:   log.With().Str("component", "spool").Logger(),
	}
}

// List returns spooled rows, oldest first.
func (s *SpoolService) List(ctx context.Context, limit int) ([]domain.SpooledRow, error) {
	rows, err := s.spool.List(ctx, "", limit)
	if err != nil {
		return nil, fmt.Errorf("list spool: %w", err)
	}
	return rows, nil
}

// Replay re-sends spooled rows grouped by destination. Rows are deleted
// from the spool only after their batch is appended; a destination
// stops replaying at its first failed batch.
func (s *SpoolService) Replay(ctx context.Context, batchSize int) (*driving.ReplayResult, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("%w: batch size must be at least 1", domain.ErrInvalidInput)
	}

	rows, err := s.spool.List(ctx, "", 0)
	if err != nil {
		return nil, fmt.Errorf("list spool: %w", err)
	}

	var order []string
	byDest := make(map[string][]domain.SpooledRow)
	for _, r := range rows {
		if _, ok := byDest[r.Destination]; !ok {
			order = append(order, r.Destination)
		}
		byDest[r.Destination] = append(byDest[r.Destination], r)
	}

	result := &driving.ReplayResult{Failures: make(map[string]error)}
	for _, dest := range order {
		delivered, err := s.replayDestination(ctx, dest, byDest[dest], batchSize)
		result.Delivered += delivered
		if err != nil {
			result.Failures[dest] = err
			s.log.Error().Str("destination", dest).Err(err).Msg("Replay failed")
		}
	}

	remaining, err := s.spool.Count(ctx)
	if err != nil {
		return result, fmt.Errorf("count spool: %w", err)
	}
	result.Remaining = remaining
	return result, nil
}

func (s *SpoolService) replayDestination(
	ctx context.Context,
	dest string,
	rows []domain.SpooledRow,
	batchSize int,
) (int, error) {
	sink, err := s.sinks.Open(ctx, dest)
	if err != nil {
		return 0, fmt.Errorf("open sink: %w", err)
	}
	defer sink.Close()

	delivered := 0
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		batch := rows[start:end]

		out := make([]domain.OutputRow, len(batch))
		ids := make([]int64, len(batch))
		for i, r := range batch {
			out[i] = r.Row
			ids[i] = r.ID
		}

		if err := s.retry.Do(ctx, func(ctx context.Context) error {
			return sink.Append(ctx, out)
		}); err != nil {
			return delivered, err
		}
		if err := s.spool.Delete(ctx, ids); err != nil {
			return delivered, fmt.Errorf("delete replayed rows: %w", err)
		}
		delivered += len(batch)
		s.log.Info().Str("destination", dest).Int("rows", len(batch)).Msg("Replayed batch")
	}
	return delivered, nil
}

// Clear discards every spooled row.
func (s *SpoolService) Clear(ctx context.Context) (int, error) {
	rows, err := s.spool.List(ctx, "", 0)
	if err != nil {
		return 0, fmt.Errorf("list spool: %w", err)
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	if err := s.spool.Delete(ctx, ids); err != nil {
		return 0, fmt.Errorf("clear spool: %w", err)
	}
	return len(ids), nil
}

// History returns recent run summaries, newest first.
func (s *SpoolService) History(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if s.runs == nil {
		return nil, errors.New("run history not configured")
	}
	runs, err := s.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
