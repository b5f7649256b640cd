package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
	"github.com/custodia-labs/proofscan/internal/core/ports/driving"
	"github.com/custodia-labs/proofscan/internal/extractor"
	"github.com/custodia-labs/proofscan/internal/retry"
)

// Ensure Analyzer implements the interface.
var _ driving.Analyzer = (*Analyzer)(nil)

// DefaultProgressEvery is how many files pass between progress log lines.
const DefaultProgressEvery = 10

// AnalyzerDeps are the collaborators of an Analyzer.
// Fetcher, Spool and Runs are optional.
type AnalyzerDeps struct {
	Lister    driven.FolderLister
	Fetcher   driven.ContentFetcher
	Sinks     driven.SinkFactory
	Extractor *extractor.Extractor
	Enricher  *Enricher
	Spool     driven.SpoolStore
	Runs      driven.RunStore
}

// AnalyzerConfig tunes a run.
type AnalyzerConfig struct {
	// Workers bounds concurrent per-file processing.
	Workers int

	// MIMETypes restricts which files are processed. Empty means all.
	MIMETypes []string

	ListRetry  retry.Policy
	FetchRetry retry.Policy
	SinkRetry  retry.Policy

	// ProgressEvery controls progress logging; 0 uses the default.
	ProgressEvery int
}

// Analyzer runs the walk, extract, enrich and write pipeline.
type Analyzer struct {
	deps AnalyzerDeps
	cfg  AnalyzerConfig
	log  zerolog.Logger
	now  func() time.Time

	mu      sync.Mutex
	running bool
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(deps AnalyzerDeps, cfg AnalyzerConfig, log zerolog.Logger) *Analyzer {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.ProgressEvery < 1 {
		cfg.ProgressEvery = DefaultProgressEvery
	}
	if deps.Extractor == nil {
		deps.Extractor = extractor.New(nil)
	}
	if deps.Enricher == nil {
		deps.Enricher = NewEnricher(nil, nil, retry.NoRetry(), EnrichOptions{}, log)
	}
	return &Analyzer{
		deps: deps,
		cfg:  cfg,
		log:  log.With().Str("component", "analyzer").Logger(),
		now:  time.Now,
	}
}

// SetClock overrides the time source used for timestamps.
func (a *Analyzer) SetClock(now func() time.Time) {
	a.now = now
}

// runState accumulates counters shared by workers.
type runState struct {
	mu       sync.Mutex
	summary  *domain.RunSummary
	progress func(driving.RunProgress)
}

func (s *runState) update(fn func(*domain.RunSummary)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.summary)
}

// Run executes a complete run.
//
//nolint:gocognit // Orchestration function coordinating the walker and workers
func (a *Analyzer) Run(ctx context.Context, req driving.RunRequest) (*domain.RunSummary, error) {
	if err := a.validate(req); err != nil {
		return nil, err
	}
	if !a.begin() {
		return nil, domain.ErrRunInProgress
	}
	defer a.end()

	// 1. Check the root and open the sink. Failing here aborts before
	// any traversal.
	if err := a.checkRoot(ctx, req.RootFolderID); err != nil {
		return nil, err
	}

	sink, err := a.deps.Sinks.Open(ctx, req.Destination)
	if err != nil {
		return nil, fmt.Errorf("open sink: %w", err)
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			a.log.Warn().Err(cerr).Msg("Closing sink failed")
		}
	}()

	if hw, ok := sink.(driven.HeaderWriter); ok {
		err := a.cfg.SinkRetry.Do(ctx, func(ctx context.Context) error {
			return hw.EnsureHeader(ctx, domain.OutputHeader)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: write header: %w", domain.ErrSinkUnavailable, err)
		}
	}

	// 2. Initialise the summary.
	summary := &domain.RunSummary{
		RunID:        uuid.NewString(),
		RootFolderID: req.RootFolderID,
		Destination:  sink.Destination(),
		WithContent:  req.DownloadContent,
		StartedAt:    a.now(),
	}
	state := &runState{summary: summary, progress: req.Progress}
	log := a.log.With().Str("run_id", summary.RunID).Logger()
	log.Info().
		Str("root", req.RootFolderID).
		Str("destination", summary.Destination).
		Bool("content", req.DownloadContent).
		Bool("enrich", a.deps.Enricher.Enabled()).
		Int("workers", a.cfg.Workers).
		Msg("Starting run")

	writer := NewBatchWriter(sink, req.BatchSize, a.cfg.SinkRetry, log)
	walker := NewFolderWalker(a.deps.Lister, a.cfg.ListRetry, log, WithMIMETypes(a.cfg.MIMETypes...))

	// 3. Walk and fan files out to a bounded worker pool.
	files, errs := walker.Walk(ctx, req.RootFolderID)
	var rootErr error
	var g errgroup.Group
	g.SetLimit(a.cfg.Workers)

	for files != nil || errs != nil {
		select {
		case file, ok := <-files:
			if !ok {
				files = nil
				continue
			}
			g.Go(func() error {
				a.process(ctx, req, file, writer, state, log)
				return nil
			})

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if fe := a.recordWalkError(state, err); fe.FolderID == req.RootFolderID {
				rootErr = fe
			}
		}
	}
	_ = g.Wait()

	// 4. Flush the remainder even if ctx was cancelled so buffered rows
	// are delivered or spooled.
	if err := writer.Flush(context.WithoutCancel(ctx)); err != nil {
		a.handleFlushError(context.WithoutCancel(ctx), state, err, log)
	}

	summary.RowsWritten = writer.Written()
	summary.FinishedAt = a.now()

	if a.deps.Runs != nil {
		if err := a.deps.Runs.SaveRun(context.WithoutCancel(ctx), summary); err != nil {
			log.Warn().Err(err).Msg("Saving run history failed")
		}
	}

	log.Info().
		Int("files", summary.FilesVisited).
		Int("written", summary.RowsWritten).
		Int("undelivered", summary.RowsUndelivered).
		Int("spooled", summary.RowsSpooled).
		Int("folders_skipped", summary.FoldersSkipped()).
		Int("errors", summary.ErrorCount()).
		Dur("duration", summary.Duration()).
		Msg("Run complete")

	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("run interrupted: %w", err)
	}
	if rootErr != nil {
		return summary, fmt.Errorf("%w: %w", domain.ErrFolderUnreachable, rootErr)
	}
	return summary, nil
}

// checkRoot confirms the root folder can be read when the lister can
// look it up. Bad credentials and wrong IDs surface here.
func (a *Analyzer) checkRoot(ctx context.Context, rootID string) error {
	resolver, ok := a.deps.Lister.(driven.FolderResolver)
	if !ok {
		return nil
	}
	name, err := retry.DoValue(ctx, a.cfg.ListRetry, func(ctx context.Context) (string, error) {
		return resolver.FolderName(ctx, rootID)
	})
	if err != nil {
		return fmt.Errorf("%w: root folder %s: %w", domain.ErrFolderUnreachable, rootID, err)
	}
	a.log.Debug().Str("root", rootID).Str("name", name).Msg("Root folder reachable")
	return nil
}

func (a *Analyzer) validate(req driving.RunRequest) error {
	var missing []string
	if strings.TrimSpace(req.RootFolderID) == "" {
		missing = append(missing, "root folder")
	}
	if strings.TrimSpace(req.Destination) == "" {
		missing = append(missing, "destination")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	if req.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be at least 1", domain.ErrInvalidInput)
	}
	if req.DownloadContent && a.deps.Fetcher == nil {
		return fmt.Errorf("%w: content download requested but no fetcher configured", domain.ErrInvalidInput)
	}
	if a.deps.Lister == nil || a.deps.Sinks == nil {
		return fmt.Errorf("%w: analyzer not fully configured", domain.ErrInvalidConfig)
	}
	return nil
}

func (a *Analyzer) begin() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return false
	}
	a.running = true
	return true
}

func (a *Analyzer) end() {
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}

// process turns one file into exactly one row.
func (a *Analyzer) process(
	ctx context.Context,
	req driving.RunRequest,
	file domain.FileDescriptor,
	writer *BatchWriter,
	state *runState,
	log zerolog.Logger,
) {
	meta := a.deps.Extractor.Extract(file.Name, file.ParentPath)

	contentFailed := false
	if req.DownloadContent {
		content, err := retry.DoValue(ctx, a.cfg.FetchRetry, func(ctx context.Context) ([]byte, error) {
			return a.deps.Fetcher.FetchContent(ctx, file.ID)
		})
		if err != nil {
			contentFailed = true
			log.Warn().
				Str("file_id", file.ID).
				Str("file", file.DisplayPath()).
				Str("stage", "download").
				Err(err).
				Msg("Download failed, enriching from metadata only")
		} else {
			file = file.WithContent(content)
		}
	}

	coupon := a.deps.Enricher.Enrich(ctx, file, meta)
	row := domain.NewOutputRow(file, meta, coupon, a.now())

	var progress driving.RunProgress
	state.update(func(s *domain.RunSummary) {
		s.FilesVisited++
		if contentFailed {
			s.ContentErrors++
		}
		if coupon.IsError() {
			s.EnrichmentErrors++
		}
		progress = driving.RunProgress{FilesVisited: s.FilesVisited, ErrorCount: s.ErrorCount()}
	})

	if err := writer.Add(ctx, row); err != nil {
		a.handleFlushError(context.WithoutCancel(ctx), state, err, log)
	}

	progress.RowsWritten = writer.Written()
	if progress.FilesVisited%a.cfg.ProgressEvery == 0 {
		log.Info().
			Int("files", progress.FilesVisited).
			Int("written", progress.RowsWritten).
			Int("errors", progress.ErrorCount).
			Msg("Progress")
	}
	if state.progress != nil {
		state.progress(progress)
	}
}

func (a *Analyzer) recordWalkError(state *runState, err error) *domain.FolderError {
	var fe *domain.FolderError
	if !errors.As(err, &fe) {
		fe = &domain.FolderError{Err: err}
	}
	state.update(func(s *domain.RunSummary) {
		s.SkippedFolders = append(s.SkippedFolders, domain.SkippedFolder{
			FolderID: fe.FolderID,
			Path:     strings.Join(fe.Path, "/"),
			Cause:    fe.Err.Error(),
		})
	})
	return fe
}

// handleFlushError counts undelivered rows and spools them when a
// spool store is configured.
func (a *Analyzer) handleFlushError(ctx context.Context, state *runState, err error, log zerolog.Logger) {
	var fe *FlushError
	if !errors.As(err, &fe) {
		log.Error().Err(err).Msg("Unexpected sink error")
		return
	}

	var runID, destination string
	state.update(func(s *domain.RunSummary) {
		s.FlushErrors++
		s.RowsUndelivered += len(fe.Rows)
		runID, destination = s.RunID, s.Destination
	})

	if a.deps.Spool == nil {
		log.Error().Int("rows", len(fe.Rows)).Msg("Rows undelivered and no spool configured")
		return
	}

	spooled := make([]domain.SpooledRow, len(fe.Rows))
	at := a.now()
	for i, row := range fe.Rows {
		spooled[i] = domain.SpooledRow{
			RunID:       runID,
			Destination: destination,
			Row:         row,
			Cause:       fe.Err.Error(),
			SpooledAt:   at,
		}
	}
	if err := a.deps.Spool.Save(ctx, spooled); err != nil {
		log.Error().Int("rows", len(fe.Rows)).Err(err).Msg("Spooling undelivered rows failed")
		return
	}

	state.update(func(s *domain.RunSummary) {
		s.RowsSpooled += len(spooled)
	})
	log.Warn().Int("rows", len(spooled)).Msg("Undelivered rows spooled for replay")
}
