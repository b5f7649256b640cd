package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/proofscan/internal/core/domain"
)

func rowN(i int) domain.OutputRow {
	return domain.OutputRow{FileID: fmt.Sprintf("file-%d", i)}
}

func TestBatchWriter_AppendCalls(t *testing.T) {
	tests := []struct {
		n, batch  int
		wantCalls int
		wantLast  int
	}{
		{0, 5, 0, 0},
		{1, 5, 1, 1},
		{5, 5, 1, 5},
		{10, 5, 2, 5},
		{11, 5, 3, 1},
		{99, 10, 10, 9},
		{7, 1, 7, 1},
		{3, 100, 1, 3},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d/b=%d", tt.n, tt.batch), func(t *testing.T) {
			sink := newFakeSink()
			w := NewBatchWriter(sink, tt.batch, testPolicy(1), zerolog.Nop())

			for i := 0; i < tt.n; i++ {
				require.NoError(t, w.Add(context.Background(), rowN(i)))
			}
			require.NoError(t, w.Flush(context.Background()))

			require.Len(t, sink.calls, tt.wantCalls)
			if tt.wantCalls > 0 {
				assert.Len(t, sink.calls[len(sink.calls)-1], tt.wantLast)
				for _, c := range sink.calls[:len(sink.calls)-1] {
					assert.Len(t, c, tt.batch)
				}
			}
			assert.Equal(t, tt.n, w.Written())
			assert.Zero(t, w.Pending())
		})
	}
}

func TestBatchWriter_PreservesOrder(t *testing.T) {
	sink := newFakeSink()
	w := NewBatchWriter(sink, 3, testPolicy(1), zerolog.Nop())

	for i := 0; i < 8; i++ {
		require.NoError(t, w.Add(context.Background(), rowN(i)))
	}
	require.NoError(t, w.Flush(context.Background()))

	rows := sink.rows()
	require.Len(t, rows, 8)
	for i, r := range rows {
		assert.Equal(t, fmt.Sprintf("file-%d", i), r.FileID)
	}
}

func TestBatchWriter_FlushFailureReturnsRows(t *testing.T) {
	sink := newFakeSink()
	sink.failAfter = 1
	w := NewBatchWriter(sink, 2, testPolicy(2), zerolog.Nop())

	require.NoError(t, w.Add(context.Background(), rowN(0)))
	require.NoError(t, w.Add(context.Background(), rowN(1)))
	require.NoError(t, w.Add(context.Background(), rowN(2)))

	err := w.Add(context.Background(), rowN(3))
	require.Error(t, err)

	var fe *FlushError
	require.True(t, errors.As(err, &fe))
	require.Len(t, fe.Rows, 2)
	assert.Equal(t, "file-2", fe.Rows[0].FileID)
	assert.Equal(t, "file-3", fe.Rows[1].FileID)
	assert.Contains(t, err.Error(), "flush 2 rows")

	assert.Equal(t, 2, w.Written())
	assert.Zero(t, w.Pending())

	require.NoError(t, w.Add(context.Background(), rowN(4)))
	err = w.Flush(context.Background())
	require.True(t, errors.As(err, &fe))
	assert.Len(t, fe.Rows, 1)
}

func TestBatchWriter_ConcurrentAdds(t *testing.T) {
	sink := newFakeSink()
	w := NewBatchWriter(sink, 7, testPolicy(1), zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, w.Add(context.Background(), rowN(i)))
		}(i)
	}
	wg.Wait()
	require.NoError(t, w.Flush(context.Background()))

	assert.Len(t, sink.calls, 15)
	assert.Len(t, sink.rows(), 100)
	assert.Equal(t, 100, w.Written())
}

func TestBatchWriter_MinimumBatchSize(t *testing.T) {
	sink := newFakeSink()
	w := NewBatchWriter(sink, 0, testPolicy(1), zerolog.Nop())

	require.NoError(t, w.Add(context.Background(), rowN(0)))
	assert.Len(t, sink.calls, 1)
}
