package sink

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
)

func TestFactory_XLSX(t *testing.T) {
	dir := t.TempDir()
	f := NewFactory(Defaults{XLSXPath: filepath.Join(dir, "default.xlsx")}, nil, zerolog.Nop())

	s, err := f.Open(context.Background(), "xlsx")
	require.NoError(t, err)
	assert.Equal(t, "xlsx:"+filepath.Join(dir, "default.xlsx"), s.Destination())
	_, isHeader := s.(driven.HeaderWriter)
	assert.True(t, isHeader)
	require.NoError(t, s.Close())

	explicit := filepath.Join(dir, "explicit.xlsx")
	s, err = f.Open(context.Background(), "xlsx:"+explicit)
	require.NoError(t, err)
	assert.Equal(t, "xlsx:"+explicit, s.Destination())
	require.NoError(t, s.Close())
}

func TestFactory_Sheets(t *testing.T) {
	calls := 0
	fn := func(context.Context) (*sheetsapi.Service, error) {
		calls++
		return &sheetsapi.Service{}, nil
	}
	f := NewFactory(Defaults{SpreadsheetID: "default-id"}, fn, zerolog.Nop())

	s, err := f.Open(context.Background(), "sheets")
	require.NoError(t, err)
	assert.Equal(t, "sheets:default-id", s.Destination())

	s, err = f.Open(context.Background(), "sheets:other")
	require.NoError(t, err)
	assert.Equal(t, "sheets:other", s.Destination())
	assert.Equal(t, 1, calls, "client built once")
}

func TestFactory_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		defaults Defaults
		fn       SheetsServiceFunc
		dest     string
		want     error
	}{
		{"unknown kind", Defaults{}, nil, "s3:bucket", domain.ErrUnsupportedType},
		{"empty", Defaults{}, nil, "", domain.ErrInvalidInput},
		{"sheets without id", Defaults{}, nil, "sheets", domain.ErrInvalidConfig},
		{"sheets without client", Defaults{SpreadsheetID: "x"}, nil, "sheets", domain.ErrSinkUnavailable},
		{"sheets client error", Defaults{SpreadsheetID: "x"}, func(context.Context) (*sheetsapi.Service, error) {
			return nil, errors.New("no credentials")
		}, "sheets", domain.ErrSinkUnavailable},
		{"xlsx without path", Defaults{}, nil, "xlsx", domain.ErrInvalidConfig},
		{"postgres without dsn", Defaults{}, nil, "postgres", domain.ErrInvalidConfig},
		{"postgres bad table", Defaults{PostgresDSN: "postgres://localhost/x"}, nil, "postgres:bad-name", domain.ErrSinkUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFactory(tt.defaults, tt.fn, zerolog.Nop())
			_, err := f.Open(ctx, tt.dest)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
