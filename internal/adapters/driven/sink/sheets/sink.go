// Package sheets appends rows to a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/api/sheets/v4"

	"github.com/custodia-labs/proofscan/internal/connectors/google"
	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
)

// Ensure Sink implements the interfaces.
var (
	_ driven.RowSink      = (*Sink)(nil)
	_ driven.HeaderWriter = (*Sink)(nil)
	_ driven.Pinger       = (*Sink)(nil)
)

// DefaultRange is where rows are appended when none is configured.
const DefaultRange = "Sheet1!A1"

// Sink appends rows with the values.append API. Values are written RAW
// so nothing the model returns is interpreted as a formula.
type Sink struct {
	svc           *sheets.Service
	spreadsheetID string
	rng           string
	log           zerolog.Logger
}

// New creates a sink for one spreadsheet range.
func New(svc *sheets.Service, spreadsheetID, rng string, log zerolog.Logger) *Sink {
	if rng == "" {
		rng = DefaultRange
	}
	return &Sink{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		rng:           rng,
		log:           log.With().Str("component", "sheets").Logger(),
	}
}

// Append writes rows after the last row of the table in range.
func (s *Sink) Append(ctx context.Context, rows []domain.OutputRow) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = cells(row.Values())
	}

	resp, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append %d rows: %w", len(rows), google.WrapError(err))
	}

	if resp.Updates != nil {
		s.log.Debug().
			Int("rows", len(rows)).
			Int64("cells", resp.Updates.UpdatedCells).
			Str("range", resp.Updates.UpdatedRange).
			Msg("Rows appended")
	}
	return nil
}

// EnsureHeader writes header at the start of range if the range is empty.
func (s *Sink) EnsureHeader(ctx context.Context, header []string) error {
	existing, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", google.WrapError(err))
	}
	if len(existing.Values) > 0 {
		return nil
	}

	_, err = s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, s.rng, &sheets.ValueRange{Values: [][]any{cells(header)}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write header: %w", google.WrapError(err))
	}
	s.log.Info().Str("range", s.rng).Msg("Header row written")
	return nil
}

// Ping reads the spreadsheet ID back, which checks access without
// touching any cell.
func (s *Sink) Ping(ctx context.Context) error {
	_, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", google.WrapError(err))
	}
	return nil
}

// Destination implements driven.RowSink.
func (s *Sink) Destination() string {
	return string(domain.SinkSheets) + ":" + s.spreadsheetID
}

// Close implements driven.RowSink. The API client holds no state.
func (s *Sink) Close() error {
	return nil
}

func cells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
