// Package config loads proofscan settings from an optional config file,
// a .env file and the environment. One Config value is built at startup
// and handed to every constructor that needs it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/retry"
)

// LLM provider names.
const (
	ProviderNone      = "none"
	ProviderVertex    = "vertex"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Providers lists the accepted llm.provider values.
func Providers() []string {
	return []string{ProviderNone, ProviderVertex, ProviderGemini, ProviderOpenAI, ProviderAnthropic}
}

// Config holds all proofscan configuration.
type Config struct {
	Drive  DriveConfig  `mapstructure:"drive"`
	Sheets SheetsConfig `mapstructure:"sheets"`
	Sink   SinkConfig   `mapstructure:"sink"`
	LLM    LLMConfig    `mapstructure:"llm"`
	Run    RunConfig    `mapstructure:"run"`
	Retry  RetryConfig  `mapstructure:"retry"`
	Paths  PathsConfig  `mapstructure:"paths"`
	Log    LogConfig    `mapstructure:"log"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// DriveConfig configures folder listing and downloads.
type DriveConfig struct {
	FolderID        string   `mapstructure:"folder_id"`
	CredentialsFile string   `mapstructure:"credentials_file"`
	TokenFile       string   `mapstructure:"token_file"`
	MIMETypes       []string `mapstructure:"mime_types"`

	// RequestsPerSecond caps Google API calls across all workers.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// SheetsConfig configures the spreadsheet sink.
type SheetsConfig struct {
	SpreadsheetID string `mapstructure:"spreadsheet_id"`
	Range         string `mapstructure:"range"`
}

// SinkConfig selects where rows go.
type SinkConfig struct {
	Destination   string `mapstructure:"destination"`
	XLSXPath      string `mapstructure:"xlsx_path"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	PostgresTable string `mapstructure:"postgres_table"`
}

// LLMConfig configures coupon enrichment.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Project     string  `mapstructure:"project"`
	Location    string  `mapstructure:"location"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// RunConfig tunes the pipeline.
type RunConfig struct {
	Workers         int   `mapstructure:"workers"`
	BatchSize       int   `mapstructure:"batch_size"`
	DownloadContent bool  `mapstructure:"download_content"`
	MaxContentBytes int64 `mapstructure:"max_content_bytes"`
}

// RetryConfig is the backoff applied to remote calls.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

// PathsConfig locates local state.
type PathsConfig struct {
	DataDir      string `mapstructure:"data_dir"`
	PromptsDir   string `mapstructure:"prompts_dir"`
	PatternsFile string `mapstructure:"patterns_file"`
	Database     string `mapstructure:"database"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envMappings binds config keys to the environment variables operators
// already use. PROOFSCAN_<SECTION>_<KEY> works for every key as well.
var envMappings = map[string]string{
	"drive.folder_id":        "DRIVE_FOLDER_ID",
	"drive.credentials_file": "DRIVE_CREDENTIALS_FILE",
	"drive.token_file":       "DRIVE_TOKEN_FILE",
	"sheets.spreadsheet_id":  "SHEETS_SPREADSHEET_ID",
	"sheets.range":           "SHEETS_RANGE",
	"sink.destination":       "SINK",
	"sink.postgres_dsn":      "DATABASE_URL",
	"llm.provider":           "LLM_PROVIDER",
	"llm.api_key":            "LLM_API_KEY",
	"llm.model":              "VERTEX_AI_MODEL",
	"llm.temperature":        "VERTEX_AI_TEMPERATURE",
	"llm.max_tokens":         "VERTEX_AI_MAX_OUTPUT_TOKENS",
	"llm.project":            "GCP_PROJECT_ID",
	"llm.location":           "GCP_LOCATION",
	"run.workers":            "MAX_WORKERS",
	"run.batch_size":         "BATCH_SIZE",
	"log.level":              "LOG_LEVEL",
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigFile is an explicit config file. When empty, proofscan.yaml
	// is searched in ., ./config and $HOME/.proofscan.
	ConfigFile string

	// EnvFile is loaded into the process environment before reading.
	// A missing file is ignored. Defaults to ".env".
	EnvFile string

	// Fs is the filesystem config files are read from. Defaults to the OS.
	Fs afero.Fs
}

// Load builds a Config. It does not validate; call Validate.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrInvalidConfig, envFile, err)
	}

	v := viper.New()
	if opts.Fs != nil {
		v.SetFs(opts.Fs)
	}
	setDefaults(v)

	v.SetEnvPrefix("PROOFSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envMappings {
		if err := v.BindEnv(key, "PROOFSCAN_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("proofscan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.proofscan")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read config file: %w", domain.ErrInvalidConfig, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode config: %w", domain.ErrInvalidConfig, err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.resolvePaths()
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("drive.folder_id", "")
	v.SetDefault("drive.credentials_file", "credentials.json")
	v.SetDefault("drive.token_file", "token.json")
	v.SetDefault("drive.mime_types", []string{"application/pdf"})
	v.SetDefault("drive.requests_per_second", 10.0)

	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.range", "Sheet1!A1")

	v.SetDefault("sink.destination", string(domain.SinkSheets))
	v.SetDefault("sink.xlsx_path", "proofscan.xlsx")
	v.SetDefault("sink.postgres_dsn", "")
	v.SetDefault("sink.postgres_table", "proof_rows")

	v.SetDefault("llm.provider", ProviderVertex)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.project", "")
	v.SetDefault("llm.location", "us-central1")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 2048)

	v.SetDefault("run.workers", 5)
	v.SetDefault("run.batch_size", 100)
	v.SetDefault("run.download_content", false)
	v.SetDefault("run.max_content_bytes", 20<<20)

	def := retry.DefaultPolicy()
	v.SetDefault("retry.max_attempts", def.MaxAttempts)
	v.SetDefault("retry.base_delay", def.BaseDelay)
	v.SetDefault("retry.max_delay", def.MaxDelay)
	v.SetDefault("retry.multiplier", def.Multiplier)

	v.SetDefault("paths.data_dir", "")
	v.SetDefault("paths.prompts_dir", "")
	v.SetDefault("paths.patterns_file", "")
	v.SetDefault("paths.database", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
}

// resolvePaths fills unset local paths under the data directory.
func (c *Config) resolvePaths() {
	if c.Paths.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Paths.DataDir = filepath.Join(home, ".proofscan")
		} else {
			c.Paths.DataDir = ".proofscan"
		}
	}
	if c.Paths.PromptsDir == "" {
		c.Paths.PromptsDir = filepath.Join(c.Paths.DataDir, "prompts")
	}
	if c.Paths.PatternsFile == "" {
		c.Paths.PatternsFile = filepath.Join(c.Paths.DataDir, "patterns.toml")
	}
	if c.Paths.Database == "" {
		c.Paths.Database = filepath.Join(c.Paths.DataDir, "proofscan.db")
	}
}

// RetryPolicy converts the retry settings.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   c.Retry.BaseDelay,
		MaxDelay:    c.Retry.MaxDelay,
		Multiplier:  c.Retry.Multiplier,
	}
}

// EnrichmentEnabled reports whether a provider other than none is set.
func (c *Config) EnrichmentEnabled() bool {
	return c.LLM.Provider != ProviderNone
}

// Validate checks settings every command relies on.
func (c *Config) Validate() error {
	var problems []string

	if !slices.Contains(Providers(), c.LLM.Provider) {
		problems = append(problems, fmt.Sprintf("llm.provider %q must be one of %s",
			c.LLM.Provider, strings.Join(Providers(), ", ")))
	}
	switch c.LLM.Provider {
	case ProviderVertex:
		if c.LLM.Project == "" {
			problems = append(problems, "GCP_PROJECT_ID is required for the vertex provider")
		}
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
		if c.LLM.APIKey == "" && c.LLM.BaseURL == "" {
			problems = append(problems, fmt.Sprintf("LLM_API_KEY is required for the %s provider", c.LLM.Provider))
		}
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		problems = append(problems, "llm.temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens < 1 {
		problems = append(problems, "llm.max_tokens must be at least 1")
	}
	if c.Run.Workers < 1 {
		problems = append(problems, "MAX_WORKERS must be at least 1")
	}
	if c.Run.BatchSize < 1 {
		problems = append(problems, "BATCH_SIZE must be at least 1")
	}
	if c.Run.MaxContentBytes < 1 {
		problems = append(problems, "run.max_content_bytes must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		problems = append(problems, "retry.max_attempts must be at least 1")
	}
	if _, err := domain.ParseDestination(c.Sink.Destination); err != nil {
		problems = append(problems, fmt.Sprintf("SINK: %v", err))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ValidateRun additionally checks what a run needs before traversal:
// a root folder and a fully addressed destination.
func (c *Config) ValidateRun(folderID, destination string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	var problems []string
	if strings.TrimSpace(folderID) == "" {
		problems = append(problems, "DRIVE_FOLDER_ID is required")
	}
	dest, err := domain.ParseDestination(destination)
	if err != nil {
		problems = append(problems, fmt.Sprintf("sink: %v", err))
	} else if msg := c.destinationProblem(dest); msg != "" {
		problems = append(problems, msg)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) destinationProblem(dest domain.Destination) string {
	switch dest.Kind {
	case domain.SinkSheets:
		if dest.Target == "" && c.Sheets.SpreadsheetID == "" {
			return "SHEETS_SPREADSHEET_ID is required for the sheets sink"
		}
	case domain.SinkXLSX:
		if dest.Target == "" && c.Sink.XLSXPath == "" {
			return "sink.xlsx_path is required for the xlsx sink"
		}
	case domain.SinkPostgres:
		if c.Sink.PostgresDSN == "" {
			return "DATABASE_URL is required for the postgres sink"
		}
	}
	return ""
}
