// Package postgres copies rows into a PostgreSQL table.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
)

// Ensure Sink implements the interfaces.
var (
	_ driven.RowSink = (*Sink)(nil)
	_ driven.Pinger  = (*Sink)(nil)
)

// DefaultTable receives rows when no table is named.
const DefaultTable = "proof_rows"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// Columns in OutputHeader order.
var Columns = []string{
	"file_id",
	"file_name",
	"created_at",
	"modified_at",
	"web_view_link",
	"date",
	"dealership",
	"version",
	"campaign",
	"region",
	"model",
	"coupon_info",
	"processed_at",
}

const createTable = `CREATE TABLE IF NOT EXISTS %s (
	id            BIGSERIAL PRIMARY KEY,
	file_id       TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	created_at    TIMESTAMPTZ,
	modified_at   TIMESTAMPTZ,
	web_view_link TEXT NOT NULL DEFAULT '',
	date          TEXT NOT NULL DEFAULT '',
	dealership    TEXT NOT NULL DEFAULT '',
	version       TEXT NOT NULL DEFAULT '',
	campaign      TEXT NOT NULL DEFAULT '',
	region        TEXT NOT NULL DEFAULT '',
	model         TEXT NOT NULL DEFAULT '',
	coupon_info   TEXT NOT NULL DEFAULT '',
	processed_at  TIMESTAMPTZ NOT NULL
)`

// Sink writes each batch with one COPY, so a batch lands entirely or not
// at all.
type Sink struct {
	conn  *pgx.Conn
	table string
}

// ValidateTable checks a table name is a plain identifier.
func ValidateTable(table string) error {
	if !tableName.MatchString(table) {
		return fmt.Errorf("%w: table name %q", domain.ErrInvalidInput, table)
	}
	return nil
}

// Open connects and creates the table if it does not exist.
func Open(ctx context.Context, dsn, table string) (*Sink, error) {
	if table == "" {
		table = DefaultTable
	}
	if err := ValidateTable(table); err != nil {
		return nil, err
	}

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	ident := pgx.Identifier{table}.Sanitize()
	if _, err := conn.Exec(ctx, fmt.Sprintf(createTable, ident)); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("create table %s: %w", table, err)
	}
	return &Sink{conn: conn, table: table}, nil
}

// Append implements driven.RowSink.
func (s *Sink) Append(ctx context.Context, rows []domain.OutputRow) error {
	if len(rows) == 0 {
		return nil
	}
	n, err := s.conn.CopyFrom(ctx, pgx.Identifier{s.table}, Columns, pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		return RowValues(rows[i]), nil
	}))
	if err != nil {
		return fmt.Errorf("copy %d rows: %w", len(rows), err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("copy: wrote %d of %d rows", n, len(rows))
	}
	return nil
}

// Destination implements driven.RowSink. It never includes the DSN,
// which may carry a password.
func (s *Sink) Destination() string {
	return string(domain.SinkPostgres) + ":" + s.table
}

// Ping checks the connection.
func (s *Sink) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close implements driven.RowSink.
func (s *Sink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.conn.Close(ctx)
}

// RowValues converts a row to COPY values in Columns order. Unknown
// timestamps become NULL.
func RowValues(r domain.OutputRow) []any {
	values := []any{
		r.FileID,
		r.FileName,
		nullTime(r.CreatedAt),
		nullTime(r.ModifiedAt),
		r.WebViewLink,
	}
	for _, f := range domain.Fields {
		values = append(values, r.Metadata.Value(f))
	}
	return append(values, r.Coupon.Serialize(), r.ProcessedAt.UTC())
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
