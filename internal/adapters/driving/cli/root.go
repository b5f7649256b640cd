// Package cli implements the proofscan command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/proofscan/internal/adapters/driving/oauth"
	"github.com/custodia-labs/proofscan/internal/app"
	"github.com/custodia-labs/proofscan/internal/config"
	"github.com/custodia-labs/proofscan/internal/core/ports/driving"
)

// version is set at build time with -ldflags.
var version = "dev"

// Global flags.
var (
	configFile string
	envFile    string
	verbose    bool
	logLevel   string
)

// Application is what commands need from the assembled services.
// *app.App implements it.
type Application interface {
	Config() *config.Config
	Analyzer(ctx context.Context) (driving.Analyzer, error)
	SpoolService() (driving.SpoolService, error)
	Metadata() driving.MetadataService
	InitPatterns(force bool) (string, error)
	Check(ctx context.Context, ping bool) []app.CheckResult
	Authorize(ctx context.Context, opts oauth.FlowOptions) (string, error)
	Close() error
}

var (
	// application is built on first use so that commands like version
	// never read configuration. Tests set it directly.
	application Application

	newApplication = func(opts app.Options) (Application, error) {
		a, err := app.New(opts)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
)

var rootCmd = &cobra.Command{
	Use:   "proofscan",
	Short: "Catalogue direct mail proofs stored in Google Drive",
	Long: `proofscan walks a Google Drive folder tree, derives metadata such as
dealership, date and campaign from each file name, optionally asks a
language model for the coupon offers in each proof, and appends one row
per file to Google Sheets, an Excel workbook or Postgres.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default: proofscan.yaml in ., ./config or ~/.proofscan)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default: LOG_LEVEL)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command and releases the application.
func Execute() error {
	defer closeApplication()
	return rootCmd.Execute()
}

func getApplication() (Application, error) {
	if application != nil {
		return application, nil
	}
	a, err := newApplication(app.Options{
		ConfigFile: configFile,
		EnvFile:    envFile,
		LogLevel:   logLevel,
		Verbose:    verbose,
	})
	if err != nil {
		return nil, err
	}
	application = a
	return a, nil
}

func closeApplication() {
	if application == nil {
		return
	}
	_ = application.Close()
	application = nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
