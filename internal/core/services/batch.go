package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
	"github.com/custodia-labs/proofscan/internal/retry"
)

// FlushError reports rows that could not be appended to the sink.
type FlushError struct {
	Rows []domain.OutputRow
	Err  error
}

// Error implements error.
func (e *FlushError) Error() string {
	return fmt.Sprintf("flush %d rows: %v", len(e.Rows), e.Err)
}

// Unwrap returns the sink error.
func (e *FlushError) Unwrap() error {
	return e.Err
}

// BatchWriter buffers rows and appends them to a sink in fixed-size
// batches. It is safe for concurrent use; appends are serialised.
type BatchWriter struct {
	sink      driven.RowSink
	batchSize int
	retry     retry.Policy
	log       zerolog.Logger

	mu      sync.Mutex
	buf     []domain.OutputRow
	written int
}

// NewBatchWriter creates a writer. Batch sizes below 1 are treated as 1.
func NewBatchWriter(sink driven.RowSink, batchSize int, policy retry.Policy, log zerolog.Logger) *BatchWriter {
	if batchSize < 1 {
		batchSize = 1
	}
	return &BatchWriter{
		sink:      sink,
		batchSize: batchSize,
		retry:     policy,
		log:       log.With().Str("component", "batch").Str("destination", sink.Destination()).Logger(),
		buf:       make([]domain.OutputRow, 0, batchSize),
	}
}

// Add buffers a row and flushes when the batch is full. A failed flush
// returns a *FlushError carrying the batch; the buffer is emptied
// either way so later rows are not blocked by an earlier failure.
func (w *BatchWriter) Add(ctx context.Context, row domain.OutputRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, row)
	if len(w.buf) < w.batchSize {
		return nil
	}
	return w.flushLocked(ctx)
}

// Flush appends any buffered rows.
func (w *BatchWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) == 0 {
		return nil
	}
	return w.flushLocked(ctx)
}

// Written returns the number of rows successfully appended.
func (w *BatchWriter) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Pending returns the number of buffered rows.
func (w *BatchWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.buf)
}

func (w *BatchWriter) flushLocked(ctx context.Context) error {
	batch := w.buf
	w.buf = make([]domain.OutputRow, 0, w.batchSize)

	err := w.retry.Do(ctx, func(ctx context.Context) error {
		return w.sink.Append(ctx, batch)
	})
	if err != nil {
		w.log.Error().Int("rows", len(batch)).Str("stage", "flush").Err(err).Msg("Sink append failed")
		return &FlushError{Rows: batch, Err: err}
	}

	w.written += len(batch)
	w.log.Debug().Int("rows", len(batch)).Int("total", w.written).Msg("Batch appended")
	return nil
}
