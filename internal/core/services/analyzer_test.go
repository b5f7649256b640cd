package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driving"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type analyzerFixture struct {
	tree    *fakeTree
	sink    *fakeSink
	factory *fakeSinkFactory
	llm     *fakeLLM
	fetcher *fakeFetcher
	spool   *fakeSpool
}

func newAnalyzerFixture(tree *fakeTree) *analyzerFixture {
	sink := newFakeSink()
	return &analyzerFixture{
		tree:    tree,
		sink:    sink,
		factory: &fakeSinkFactory{sink: sink},
		fetcher: &fakeFetcher{failing: map[string]bool{}},
		spool:   &fakeSpool{},
	}
}

func (f *analyzerFixture) analyzer(workers int) *Analyzer {
	var enricher *Enricher
	if f.llm != nil {
		enricher = NewEnricher(f.llm, nil, testPolicy(2), EnrichOptions{Temperature: 0.2, MaxTokens: 2048}, zerolog.Nop())
	}
	a := NewAnalyzer(AnalyzerDeps{
		Lister:   f.tree,
		Fetcher:  f.fetcher,
		Sinks:    f.factory,
		Enricher: enricher,
		Spool:    f.spool,
		Runs:     f.spool,
	}, AnalyzerConfig{
		Workers:    workers,
		MIMETypes:  []string{"application/pdf"},
		ListRetry:  testPolicy(2),
		FetchRetry: testPolicy(2),
		SinkRetry:  testPolicy(2),
	}, zerolog.Nop())
	a.SetClock(func() time.Time { return fixedNow })
	return a
}

func TestAnalyzer_SingleFileScenario(t *testing.T) {
	tree := newFakeTree(100)
	tree.addFile("root", "f1", "Honda_campaign_SPRING2024_proof_v1.pdf")
	fx := newAnalyzerFixture(tree)

	summary, err := fx.analyzer(1).Run(context.Background(), driving.RunRequest{
		RootFolderID: "root",
		Destination:  "fake:test",
		BatchSize:    100,
	})
	require.NoError(t, err)

	rows := fx.sink.rows()
	require.Len(t, rows, 1)
	row := rows[0]

	assert.Equal(t, "Honda", row.Metadata.Value(domain.FieldDealership))
	assert.Equal(t, "SPRING2024", row.Metadata.Value(domain.FieldCampaign))
	assert.Equal(t, "1", row.Metadata.Value(domain.FieldVersion))
	for _, f := range []domain.Field{domain.FieldDate, domain.FieldRegion, domain.FieldModel} {
		_, ok := row.Metadata.Get(f)
		assert.False(t, ok, "field %s should be absent", f)
	}
	assert.Equal(t, domain.CouponAbsent, row.Coupon.Status)
	assert.Equal(t, "", row.Coupon.Serialize())
	assert.Equal(t, fixedNow, row.ProcessedAt)

	assert.Equal(t, domain.OutputHeader, fx.sink.header)
	assert.True(t, fx.sink.closed)
	assert.Equal(t, []string{"fake:test"}, fx.factory.opened)

	assert.Equal(t, 1, summary.FilesVisited)
	assert.Equal(t, 1, summary.RowsWritten)
	assert.Zero(t, summary.ErrorCount())
	assert.NotEmpty(t, summary.RunID)
	assert.True(t, summary.Complete())
}

func TestAnalyzer_OneRowPerFile(t *testing.T) {
	tree, under := randomTree(11, 25, 150, 4)
	tree.failing["folder-3"] = true
	fx := newAnalyzerFixture(tree)
	fx.llm = &fakeLLM{response: "definitely not json"}

	summary, err := fx.analyzer(4).Run(context.Background(), driving.RunRequest{
		RootFolderID: "root",
		Destination:  "fake:test",
		BatchSize:    9,
	})
	require.NoError(t, err)

	want := 150 - len(under["folder-3"])
	rows := fx.sink.rows()
	assert.Len(t, rows, want)
	assert.Equal(t, want, summary.FilesVisited)
	assert.Equal(t, want, summary.RowsWritten)

	seen := make(map[string]bool)
	for _, r := range rows {
		assert.False(t, seen[r.FileID], "duplicate row for %s", r.FileID)
		seen[r.FileID] = true
		assert.Equal(t, domain.CouponUnparseable, r.Coupon.Status)
		assert.NotEmpty(t, r.Metadata.Value(domain.FieldDealership))
	}

	require.Len(t, summary.SkippedFolders, 1)
	assert.Equal(t, "folder-3", summary.SkippedFolders[0].FolderID)
	assert.Equal(t, want, summary.EnrichmentErrors)
	assert.False(t, summary.Complete())
}

func TestAnalyzer_EnrichmentFailureIsLocal(t *testing.T) {
	tree := newFakeTree(10)
	tree.addFile("root", "a", "dealer_Acme_proof_v1.pdf")
	tree.addFile("root", "b", "dealer_Beta_proof_v2.pdf")
	fx := newAnalyzerFixture(tree)
	fx.llm = &fakeLLM{err: errors.New("backend error")}

	summary, err := fx.analyzer(2).Run(context.Background(), driving.RunRequest{
		RootFolderID: "root",
		Destination:  "fake:test",
		BatchSize:    10,
	})
	require.NoError(t, err)

	rows := fx.sink.rows()
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "error: extraction failed", r.Coupon.Serialize())
		assert.NotEmpty(t, r.Metadata.Value(domain.FieldDealership))
	}
	assert.Equal(t, 2, summary.EnrichmentErrors)
}

func TestAnalyzer_SinkFailureSpoolsRows(t *testing.T) {
	tree, _ := randomTree(3, 5, 23, 5)
	fx := newAnalyzerFixture(tree)
	fx.sink.failAfter = 2

	summary, err := fx.analyzer(1).Run(context.Background(), driving.RunRequest{
		RootFolderID: "root",
		Destination:  "fake:test",
		BatchSize:    5,
	})
	require.NoError(t, err)

	assert.Equal(t, 23, summary.FilesVisited)
	assert.Equal(t, 10, summary.RowsWritten)
	assert.Equal(t, 13, summary.RowsUndelivered)
	assert.Equal(t, 13, summary.RowsSpooled)
	assert.Equal(t, 3, summary.FlushErrors)
	assert.Equal(t, summary.FilesVisited, summary.RowsWritten+summary.RowsUndelivered)

	require.Len(t, fx.spool.rows, 13)
	for _, r := range fx.spool.rows {
		assert.Equal(t, summary.RunID, r.RunID)
		assert.Equal(t, "fake:test", r.Destination)
		assert.Contains(t, r.Cause, "sink down")
	}
}

func TestAnalyzer_SpoolFailureStillCountsUndelivered(t *testing.T) {
	tree := newFakeTree(10)
	tree.addFile("root", "a", "a.pdf")
	fx := newAnalyzerFixture(tree)
	fx.sink.failAfter = 0
	fx.spool.saveErr = errors.New("disk full")

	summary, err := fx.analyzer(1).Run(context.Background(), driving.RunRequest{
		RootFolderID: "root",
		Destination:  "fake:test",
		BatchSize:    1,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.RowsUndelivered)
	assert.Zero(t, summary.RowsSpooled)
}

func TestAnalyzer_ContentDownload(t *testing.T) {
	tree := newFakeTree(10)
	tree.addFile("root", "ok", "dealer_Acme_proof_v1.pdf")
	tree.addFile("root", "bad", "dealer_Beta_proof_v1.pdf")
	fx := newAnalyzerFixture(tree)
	fx.fetcher.failing["bad"] = true
	fx.llm = &fakeLLM{response: `{"offers": []}`}

	summary, err := fx.analyzer(1).Run(context.Background(), driving.RunRequest{
		RootFolderID:    "root",
		Destination:     "fake:test",
		BatchSize:       10,
		DownloadContent: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.FilesVisited)
	assert.Equal(t, 1, summary.ContentErrors)
	assert.True(t, summary.WithContent)

	var attached int
	for _, o := range fx.llm.opts {
		if o.Attachment != nil {
			attached++
			assert.Equal(t, []byte("%PDF-ok"), o.Attachment.Data)
		}
	}
	assert.Equal(t, 1, attached)
	assert.Len(t, fx.sink.rows(), 2)
}

func TestAnalyzer_ValidationFailsFast(t *testing.T) {
	tests := []struct {
		name string
		req  driving.RunRequest
	}{
		{"missing root", driving.RunRequest{Destination: "fake:test", BatchSize: 1}},
		{"missing destination", driving.RunRequest{RootFolderID: "root", BatchSize: 1}},
		{"zero batch", driving.RunRequest{RootFolderID: "root", Destination: "fake:test"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := newFakeTree(10)
			fx := newAnalyzerFixture(tree)

			summary, err := fx.analyzer(1).Run(context.Background(), tt.req)

			assert.Nil(t, summary)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Empty(t, tree.calls)
			assert.Empty(t, fx.factory.opened)
		})
	}
}

func TestAnalyzer_ContentWithoutFetcher(t *testing.T) {
	tree := newFakeTree(10)
	a := NewAnalyzer(AnalyzerDeps{Lister: tree, Sinks: &fakeSinkFactory{sink: newFakeSink()}},
		AnalyzerConfig{}, zerolog.Nop())

	_, err := a.Run(context.Background(), driving.RunRequest{
		RootFolderID:    "root",
		Destination:     "fake:test",
		BatchSize:       1,
		DownloadContent: true,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnalyzer_SinkUnavailable(t *testing.T) {
	tree := newFakeTree(10)
	tree.addFile("root", "a", "a.pdf")

	t.Run("open fails", func(t *testing.T) {
		fx := newAnalyzerFixture(tree)
		fx.factory.openErr = errors.New("no such spreadsheet")

		_, err := fx.analyzer(1).Run(context.Background(), driving.RunRequest{
			RootFolderID: "root", Destination: "fake:test", BatchSize: 1,
		})
		assert.ErrorContains(t, err, "open sink")
		assert.Empty(t, tree.calls)
	})

	t.Run("header fails", func(t *testing.T) {
		fx := newAnalyzerFixture(tree)
		fx.sink.headerErr = errors.New("permission denied")

		_, err := fx.analyzer(1).Run(context.Background(), driving.RunRequest{
			RootFolderID: "root", Destination: "fake:test", BatchSize: 1,
		})
		assert.ErrorIs(t, err, domain.ErrSinkUnavailable)
		assert.True(t, fx.sink.closed)
	})
}

func TestAnalyzer_UnreachableRootIsFatal(t *testing.T) {
	tests := []struct {
		name        string
		prepare     func(tree *fakeTree)
		wantSummary bool
	}{
		{
			name:    "root cannot be resolved",
			prepare: func(tree *fakeTree) { tree.failing["root"] = true },
		},
		{
			name:        "root listing fails during the walk",
			prepare:     func(tree *fakeTree) { tree.flaky["root"] = 5 },
			wantSummary: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := newFakeTree(10)
			tree.addFile("root", "a", "a.pdf")
			tt.prepare(tree)
			fx := newAnalyzerFixture(tree)

			summary, err := fx.analyzer(2).Run(context.Background(), driving.RunRequest{
				RootFolderID: "root", Destination: "fake:test", BatchSize: 1,
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrFolderUnreachable)
			assert.Contains(t, err.Error(), "root")
			if !tt.wantSummary {
				assert.Nil(t, summary)
				assert.Empty(t, fx.factory.opened)
				assert.Nil(t, fx.sink.header)
				assert.Empty(t, tree.calls)
				return
			}
			require.NotNil(t, summary)
			assert.Zero(t, summary.FilesVisited)
			require.Len(t, summary.SkippedFolders, 1)
			assert.Equal(t, "root", summary.SkippedFolders[0].FolderID)
			assert.Len(t, fx.spool.runs, 1)
			assert.Len(t, fx.factory.opened, 1)
		})
	}
}

func TestAnalyzer_ProgressAndHistory(t *testing.T) {
	tree, _ := randomTree(5, 3, 12, 5)
	fx := newAnalyzerFixture(tree)

	var mu sync.Mutex
	var updates []driving.RunProgress
	summary, err := fx.analyzer(3).Run(context.Background(), driving.RunRequest{
		RootFolderID: "root",
		Destination:  "fake:test",
		BatchSize:    4,
		Progress: func(p driving.RunProgress) {
			mu.Lock()
			updates = append(updates, p)
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	assert.Len(t, updates, 12)
	require.Len(t, fx.spool.runs, 1)
	assert.Equal(t, summary.RunID, fx.spool.runs[0].RunID)
	assert.Equal(t, 12, fx.spool.runs[0].RowsWritten)
	assert.Equal(t, fixedNow, fx.spool.runs[0].FinishedAt)
}

func TestAnalyzer_RejectsConcurrentRuns(t *testing.T) {
	tree := newFakeTree(10)
	fx := newAnalyzerFixture(tree)
	a := fx.analyzer(1)

	require.True(t, a.begin())
	_, err := a.Run(context.Background(), driving.RunRequest{
		RootFolderID: "root", Destination: "fake:test", BatchSize: 1,
	})
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
	a.end()
}

func TestAnalyzer_CancelledRunFlushesBufferedRows(t *testing.T) {
	tree, _ := randomTree(9, 4, 40, 3)
	fx := newAnalyzerFixture(tree)
	ctx, cancel := context.WithCancel(context.Background())

	summary, err := fx.analyzer(1).Run(ctx, driving.RunRequest{
		RootFolderID: "root",
		Destination:  "fake:test",
		BatchSize:    1000,
		Progress: func(p driving.RunProgress) {
			if p.FilesVisited == 5 {
				cancel()
			}
		},
	})

	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, summary)
	assert.GreaterOrEqual(t, summary.FilesVisited, 5)
	assert.Equal(t, summary.FilesVisited, summary.RowsWritten)
	assert.Len(t, fx.sink.rows(), summary.RowsWritten)
}
