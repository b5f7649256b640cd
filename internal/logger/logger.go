// Package logger builds the structured logger used across proofscan.
// Output is human-readable when stderr is a terminal and JSON lines
// otherwise, so runs under cron or CI can be shipped to a log store.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/custodia-labs/proofscan/internal/core/domain"
)

// Format selects the log encoding.
type Format string

const (
	// FormatAuto uses console output on a terminal and JSON otherwise.
	FormatAuto Format = "auto"
	// FormatConsole always uses the human-readable writer.
	FormatConsole Format = "console"
	// FormatJSON always writes one JSON object per line.
	FormatJSON Format = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose forces debug level regardless of the configured level.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the writer loggers are built on.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Options configures New.
type Options struct {
	Level  string
	Format Format
}

// ParseLevel maps a level name to a zerolog level. Empty means info.
// "warning" is accepted as an alias for warn.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.NoLevel, fmt.Errorf("%w: unknown log level %q", domain.ErrInvalidConfig, s)
	}
	return lvl, nil
}

// ParseFormat validates a format name. Empty means auto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatConsole, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown log format %q", domain.ErrInvalidConfig, s)
	}
}

// New builds a logger on the current output.
func New(opts Options) (zerolog.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return zerolog.Nop(), err
	}

	mu.RLock()
	w, v := output, verbose
	mu.RUnlock()

	if v {
		lvl = zerolog.DebugLevel
	}
	if format == FormatAuto {
		format = FormatJSON
		if isTerminal(w) {
			format = FormatConsole
		}
	}

	var sink io.Writer = w
	if format == FormatConsole {
		sink = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: !isTerminal(w)}
	}

	return zerolog.New(sink).Level(lvl).With().Timestamp().Logger(), nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
