package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/proofscan/internal/adapters/driving/oauth"
	"github.com/custodia-labs/proofscan/internal/app"
	"github.com/custodia-labs/proofscan/internal/config"
	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driving"
	"github.com/custodia-labs/proofscan/internal/core/services"
	"github.com/custodia-labs/proofscan/internal/extractor"
)

// fakeApplication implements Application for testing.
type fakeApplication struct {
	cfg      *config.Config
	analyzer *fakeAnalyzer
	spool    *fakeSpool
	metadata driving.MetadataService

	analyzerErr error

	checks []app.CheckResult
	pinged bool

	initPath  string
	initErr   error
	initForce bool

	authPath string
	authURL  string
	authErr  error
	authOpts oauth.FlowOptions

	closed bool
}

func newFakeApplication() *fakeApplication {
	return &fakeApplication{
		cfg: &config.Config{
			Drive: config.DriveConfig{FolderID: "root"},
			Sink:  config.SinkConfig{Destination: "xlsx:out.xlsx"},
			LLM:   config.LLMConfig{Provider: config.ProviderNone, MaxTokens: 2048},
			Run: config.RunConfig{
				Workers:         2,
				BatchSize:       10,
				MaxContentBytes: 1 << 20,
			},
			Retry: config.RetryConfig{MaxAttempts: 1},
		},
		analyzer: &fakeAnalyzer{summary: &domain.RunSummary{
			RunID:        "run-1",
			RootFolderID: "root",
			Destination:  "xlsx:out.xlsx",
			StartedAt:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
			FinishedAt:   time.Date(2024, 3, 1, 9, 0, 5, 0, time.UTC),
			FilesVisited: 3,
			RowsWritten:  3,
		}},
		spool:    &fakeSpool{},
		metadata: services.NewMetadataService(extractor.New(nil)),
	}
}

func (f *fakeApplication) Config() *config.Config { return f.cfg }

func (f *fakeApplication) Analyzer(_ context.Context) (driving.Analyzer, error) {
	if f.analyzerErr != nil {
		return nil, f.analyzerErr
	}
	return f.analyzer, nil
}

func (f *fakeApplication) SpoolService() (driving.SpoolService, error) { return f.spool, nil }

func (f *fakeApplication) Metadata() driving.MetadataService { return f.metadata }

func (f *fakeApplication) InitPatterns(force bool) (string, error) {
	f.initForce = force
	return f.initPath, f.initErr
}

func (f *fakeApplication) Check(_ context.Context, ping bool) []app.CheckResult {
	f.pinged = ping
	return f.checks
}

func (f *fakeApplication) Authorize(_ context.Context, opts oauth.FlowOptions) (string, error) {
	f.authOpts = opts
	if f.authURL != "" && opts.Open != nil {
		if err := opts.Open(f.authURL); err != nil {
			return "", err
		}
	}
	return f.authPath, f.authErr
}

func (f *fakeApplication) Close() error {
	f.closed = true
	return nil
}

// fakeAnalyzer implements driving.Analyzer for testing.
type fakeAnalyzer struct {
	req     driving.RunRequest
	calls   int
	summary *domain.RunSummary
	err     error
	// runErr is returned together with the summary.
	runErr error
}

func (f *fakeAnalyzer) Run(_ context.Context, req driving.RunRequest) (*domain.RunSummary, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	if req.Progress != nil {
		for i := 1; i <= f.summary.FilesVisited; i++ {
			req.Progress(driving.RunProgress{FilesVisited: i, RowsWritten: i})
		}
	}
	return f.summary, f.runErr
}

// fakeSpool implements driving.SpoolService for testing.
type fakeSpool struct {
	rows      []domain.SpooledRow
	history   []domain.RunSummary
	replay    *driving.ReplayResult
	replayErr error
	batchSize int
	limit     int
	cleared   bool
}

func (f *fakeSpool) List(_ context.Context, limit int) ([]domain.SpooledRow, error) {
	f.limit = limit
	return f.rows, nil
}

func (f *fakeSpool) Replay(_ context.Context, batchSize int) (*driving.ReplayResult, error) {
	f.batchSize = batchSize
	if f.replayErr != nil {
		return nil, f.replayErr
	}
	return f.replay, nil
}

func (f *fakeSpool) Clear(_ context.Context) (int, error) {
	f.cleared = true
	return len(f.rows), nil
}

func (f *fakeSpool) History(_ context.Context, limit int) ([]domain.RunSummary, error) {
	f.limit = limit
	return f.history, nil
}

// withApplication installs a for the duration of a test.
func withApplication(a Application) func() {
	oldApp, oldNew := application, newApplication
	application = a
	return func() {
		application, newApplication = oldApp, oldNew
	}
}

func failingApplication(app.Options) (Application, error) {
	return nil, errors.New("configuration should not be loaded")
}

// executeCommand runs rootCmd with args after resetting every flag, and
// returns everything written to stdout and stderr.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
