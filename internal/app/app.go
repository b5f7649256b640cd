// Package app assembles proofscan's services from configuration.
//
// Construction is split so that each command pays only for what it
// uses: New reads configuration and builds the local pieces, while
// Google clients, the language model and the SQLite store are created
// on first use.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/oauth2"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/custodia-labs/proofscan/internal/adapters/driven/ai"
	"github.com/custodia-labs/proofscan/internal/adapters/driven/config/file"
	"github.com/custodia-labs/proofscan/internal/adapters/driven/sink"
	"github.com/custodia-labs/proofscan/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/proofscan/internal/config"
	"github.com/custodia-labs/proofscan/internal/connectors/google"
	"github.com/custodia-labs/proofscan/internal/connectors/google/drive"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
	"github.com/custodia-labs/proofscan/internal/core/ports/driving"
	"github.com/custodia-labs/proofscan/internal/core/services"
	"github.com/custodia-labs/proofscan/internal/extractor"
	"github.com/custodia-labs/proofscan/internal/logger"
	"github.com/custodia-labs/proofscan/internal/retry"
)

// driveBurst is the token bucket size paired with drive.requests_per_second.
const driveBurst = 10

// Options controls how an App is built.
type Options struct {
	// ConfigFile and EnvFile are passed to config.Load.
	ConfigFile string
	EnvFile    string

	// LogLevel overrides log.level when set.
	LogLevel string

	// Verbose forces debug logging.
	Verbose bool

	// LogOutput replaces stderr as the log destination.
	LogOutput io.Writer

	// Fs is used for config, credentials, tokens, prompts and patterns.
	// Defaults to the OS filesystem.
	Fs afero.Fs
}

// App holds configuration and the services built from it.
type App struct {
	cfg *config.Config
	log zerolog.Logger

	fs       afero.Fs
	patterns *file.PatternStore
	prompts  *file.PromptStore
	sinks    *sink.Factory
	extract  *extractor.Extractor
	metadata *services.MetadataService

	authOnce    sync.Once
	tokenSource oauth2.TokenSource
	authErr     error

	storeOnce sync.Once
	store     *sqlite.Store
	storeErr  error

	llm driven.LLMService
}

// New loads configuration and builds the services that need nothing
// beyond the local filesystem. It does not validate the configuration.
func New(opts Options) (*App, error) {
	fsys := opts.Fs
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
		Fs:         fsys,
	})
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}

	if opts.LogOutput != nil {
		logger.SetOutput(opts.LogOutput)
	}
	logger.SetVerbose(opts.Verbose)
	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: logger.Format(cfg.Log.Format)})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		fs:       fsys,
		patterns: file.NewPatternStore(fsys, cfg.Paths.PatternsFile),
		prompts: file.NewPromptStore(fsys, cfg.Paths.PromptsDir, map[string]string{
			driven.PromptCouponExtraction: services.DefaultCouponPrompt,
		}),
	}

	ex, err := services.LoadExtractor(a.patterns)
	if err != nil {
		return nil, fmt.Errorf("load patterns from %s: %w", a.patterns.Location(), err)
	}
	a.extract = ex
	a.metadata = services.NewMetadataService(ex)

	a.sinks = sink.NewFactory(sink.Defaults{
		SpreadsheetID: cfg.Sheets.SpreadsheetID,
		SheetsRange:   cfg.Sheets.Range,
		XLSXPath:      cfg.Sink.XLSXPath,
		PostgresDSN:   cfg.Sink.PostgresDSN,
		PostgresTable: cfg.Sink.PostgresTable,
	}, a.sheetsService, log)

	log.Debug().
		Str("config", cfg.File).
		Str("patterns", a.patterns.Location()).
		Str("prompts", a.prompts.Dir()).
		Msg("Configuration loaded")
	return a, nil
}

// Config returns the loaded configuration. Commands may adjust it with
// flag values before building the pipeline.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Logger returns the application logger.
func (a *App) Logger() zerolog.Logger {
	return a.log
}

// Metadata returns the filename metadata service.
func (a *App) Metadata() driving.MetadataService {
	return a.metadata
}

// Patterns returns the pattern override store.
func (a *App) Patterns() *file.PatternStore {
	return a.patterns
}

// Prompts returns the prompt template store.
func (a *App) Prompts() *file.PromptStore {
	return a.prompts
}

// Sinks returns the sink factory.
func (a *App) Sinks() *sink.Factory {
	return a.sinks
}

// Store opens the local SQLite database on first call.
func (a *App) Store() (*sqlite.Store, error) {
	a.storeOnce.Do(func() {
		a.store, a.storeErr = sqlite.NewStore(a.cfg.Paths.Database)
	})
	return a.store, a.storeErr
}

// TokenStore returns the store for the installed-app OAuth token.
func (a *App) TokenStore() *google.FileTokenStore {
	return google.NewFileTokenStore(a.fs, a.cfg.Drive.TokenFile)
}

// Credentials reads the Google credentials file.
func (a *App) Credentials() (*google.Credentials, error) {
	return google.ReadCredentials(a.fs, a.cfg.Drive.CredentialsFile)
}

// TokenSource authenticates Google API calls. It is resolved once.
func (a *App) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	a.authOnce.Do(func() {
		creds, err := a.Credentials()
		if err != nil {
			a.authErr = err
			return
		}
		a.tokenSource, a.authErr = creds.TokenSource(ctx, a.TokenStore())
	})
	return a.tokenSource, a.authErr
}

// DriveClient builds the Drive client used for listing and downloads.
func (a *App) DriveClient(ctx context.Context) (*drive.Client, error) {
	ts, err := a.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := google.NewDriveService(ctx, google.ServiceOptions{
		TokenSource: ts,
		Limiter: google.NewRateLimiterWithConfig(google.RateLimitConfig{
			RequestsPerSecond: a.cfg.Drive.RequestsPerSecond,
			BurstSize:         driveBurst,
		}),
	})
	if err != nil {
		return nil, err
	}
	return drive.NewClient(svc, drive.WithMaxContentBytes(a.cfg.Run.MaxContentBytes)), nil
}

func (a *App) sheetsService(ctx context.Context) (*sheetsapi.Service, error) {
	ts, err := a.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return google.NewSheetsService(ctx, google.ServiceOptions{
		TokenSource: ts,
		Limiter:     google.NewRateLimiter(google.ServiceSheets),
	})
}

// remotePolicy is the configured retry policy with Google error
// classification, so permission and not-found failures fail fast.
func (a *App) remotePolicy(stage string) retry.Policy {
	return a.cfg.RetryPolicy().
		WithClassifier(google.Retryable).
		WithNotify(func(err error, attempt int, wait time.Duration) {
			a.log.Debug().Err(err).
				Str("stage", stage).
				Int("attempt", attempt).
				Dur("wait", wait).
				Msg("Retrying")
		})
}

// Analyzer wires the full pipeline. The language model is pinged here
// so a misconfigured provider fails before traversal.
func (a *App) Analyzer(ctx context.Context) (driving.Analyzer, error) {
	client, err := a.DriveClient(ctx)
	if err != nil {
		return nil, err
	}

	if a.llm == nil {
		llm, err := ai.CreateAndValidateLLMService(ctx, a.cfg.LLM)
		if err != nil {
			return nil, err
		}
		a.llm = llm
	}

	store, err := a.Store()
	if err != nil {
		return nil, err
	}

	enricher := services.NewEnricher(
		a.llm,
		a.prompts,
		a.cfg.RetryPolicy(),
		services.EnrichOptions{
			Temperature: a.cfg.LLM.Temperature,
			MaxTokens:   a.cfg.LLM.MaxTokens,
		},
		a.log,
	)

	deps := services.AnalyzerDeps{
		Lister:    client,
		Fetcher:   client,
		Sinks:     a.sinks,
		Extractor: a.extract,
		Enricher:  enricher,
		Spool:     store.SpoolStore(),
		Runs:      store.RunStore(),
	}
	return services.NewAnalyzer(deps, services.AnalyzerConfig{
		Workers:    a.cfg.Run.Workers,
		MIMETypes:  a.cfg.Drive.MIMETypes,
		ListRetry:  a.remotePolicy("list"),
		FetchRetry: a.remotePolicy("download"),
		SinkRetry:  a.remotePolicy("sink"),
	}, a.log), nil
}

// SpoolService wires spool replay and run history.
func (a *App) SpoolService() (driving.SpoolService, error) {
	store, err := a.Store()
	if err != nil {
		return nil, err
	}
	return services.NewSpoolService(
		store.SpoolStore(),
		store.RunStore(),
		a.sinks,
		a.remotePolicy("sink"),
		a.log,
	), nil
}

// Close releases the language model and the database.
func (a *App) Close() error {
	var errs []error
	if a.llm != nil {
		errs = append(errs, a.llm.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
