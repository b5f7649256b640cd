// Package sink opens row sinks from destination strings.
package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/custodia-labs/proofscan/internal/adapters/driven/sink/postgres"
	"github.com/custodia-labs/proofscan/internal/adapters/driven/sink/sheets"
	"github.com/custodia-labs/proofscan/internal/adapters/driven/sink/xlsx"
	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.SinkFactory = (*Factory)(nil)

// SheetsServiceFunc builds the Sheets client on first use, so commands
// that never touch Sheets do not need Google credentials.
type SheetsServiceFunc func(ctx context.Context) (*sheetsapi.Service, error)

// Defaults fill in the target of a destination that names only a kind.
type Defaults struct {
	SpreadsheetID string
	SheetsRange   string
	XLSXPath      string
	XLSXSheet     string
	PostgresDSN   string
	PostgresTable string
}

// Factory opens sinks for "sheets[:id]", "xlsx[:path]" and
// "postgres[:table]" destinations.
type Factory struct {
	defaults Defaults
	log      zerolog.Logger

	sheetsOnce sync.Once
	sheetsFn   SheetsServiceFunc
	sheetsSvc  *sheetsapi.Service
	sheetsErr  error
}

// NewFactory creates a factory. sheetsFn may be nil when Sheets is not
// configured.
func NewFactory(defaults Defaults, sheetsFn SheetsServiceFunc, log zerolog.Logger) *Factory {
	return &Factory{defaults: defaults, sheetsFn: sheetsFn, log: log}
}

// Open implements driven.SinkFactory. Failures wrap
// domain.ErrSinkUnavailable.
func (f *Factory) Open(ctx context.Context, destination string) (driven.RowSink, error) {
	dest, err := domain.ParseDestination(destination)
	if err != nil {
		return nil, err
	}

	switch dest.Kind {
	case domain.SinkSheets:
		id := firstNonEmpty(dest.Target, f.defaults.SpreadsheetID)
		if id == "" {
			return nil, fmt.Errorf("%w: no spreadsheet ID", domain.ErrInvalidConfig)
		}
		svc, err := f.sheetsService(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrSinkUnavailable, err)
		}
		return sheets.New(svc, id, f.defaults.SheetsRange, f.log), nil

	case domain.SinkXLSX:
		path := firstNonEmpty(dest.Target, f.defaults.XLSXPath)
		if path == "" {
			return nil, fmt.Errorf("%w: no workbook path", domain.ErrInvalidConfig)
		}
		s, err := xlsx.Open(path, f.defaults.XLSXSheet)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrSinkUnavailable, err)
		}
		return s, nil

	case domain.SinkPostgres:
		if f.defaults.PostgresDSN == "" {
			return nil, fmt.Errorf("%w: no postgres DSN", domain.ErrInvalidConfig)
		}
		s, err := postgres.Open(ctx, f.defaults.PostgresDSN, firstNonEmpty(dest.Target, f.defaults.PostgresTable))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrSinkUnavailable, err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: sink %q", domain.ErrUnsupportedType, dest.Kind)
}

func (f *Factory) sheetsService(ctx context.Context) (*sheetsapi.Service, error) {
	f.sheetsOnce.Do(func() {
		if f.sheetsFn == nil {
			f.sheetsErr = fmt.Errorf("%w: sheets client not configured", domain.ErrInvalidConfig)
			return
		}
		f.sheetsSvc, f.sheetsErr = f.sheetsFn(ctx)
	})
	return f.sheetsSvc, f.sheetsErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
