package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
)

// spoolStore implements driven.SpoolStore.
type spoolStore struct {
	store *Store
}

var _ driven.SpoolStore = (*spoolStore)(nil)

// Save stores rows in one transaction.
func (s *spoolStore) Save(ctx context.Context, rows []domain.SpooledRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin spool save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO spooled_rows (run_id, destination, row_values, cause, spooled_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare spool insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		values, err := json.Marshal(r.Row.Values())
		if err != nil {
			return fmt.Errorf("marshalling row: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			r.RunID, r.Destination, string(values), r.Cause, formatNullableTime(r.SpooledAt),
		); err != nil {
			return fmt.Errorf("spooling row: %w", err)
		}
	}
	return tx.Commit()
}

// List returns rows oldest first.
func (s *spoolStore) List(ctx context.Context, destination string, limit int) ([]domain.SpooledRow, error) {
	query := `SELECT id, run_id, destination, row_values, cause, spooled_at FROM spooled_rows`
	var args []any
	if destination != "" {
		query += ` WHERE destination = ?`
		args = append(args, destination)
	}
	query += ` ORDER BY id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying spool: %w", err)
	}
	defer rows.Close()

	var result []domain.SpooledRow
	for rows.Next() {
		var (
			r         domain.SpooledRow
			values    string
			spooledAt sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Destination, &values, &r.Cause, &spooledAt); err != nil {
			return nil, fmt.Errorf("scanning spooled row: %w", err)
		}

		var cells []string
		if err := json.Unmarshal([]byte(values), &cells); err != nil {
			return nil, fmt.Errorf("spooled row %d: %w", r.ID, err)
		}
		if r.Row, err = domain.ParseOutputRow(cells); err != nil {
			return nil, fmt.Errorf("spooled row %d: %w", r.ID, err)
		}
		r.SpooledAt = parseNullableTime(spooledAt)
		result = append(result, r)
	}
	return result, rows.Err()
}

// deleteChunk bounds the bound parameters per DELETE, well under
// SQLite's host parameter limit.
const deleteChunk = 500

// Delete removes rows by ID in one transaction.
func (s *spoolStore) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin spool delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for start := 0; start < len(ids); start += deleteChunk {
		chunk := ids[start:min(start+deleteChunk, len(ids))]
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		_, err := tx.ExecContext(ctx,
			"DELETE FROM spooled_rows WHERE id IN ("+placeholders+")", args...) //nolint:gosec // placeholders only
		if err != nil {
			return fmt.Errorf("deleting spooled rows: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit spool delete: %w", err)
	}
	return nil
}

// Count returns the number of spooled rows.
func (s *spoolStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM spooled_rows").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting spooled rows: %w", err)
	}
	return n, nil
}
