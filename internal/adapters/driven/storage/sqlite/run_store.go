package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
)

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// SaveRun stores or replaces a run summary.
func (s *runStore) SaveRun(ctx context.Context, summary *domain.RunSummary) error {
	skipped := summary.SkippedFolders
	if skipped == nil {
		skipped = []domain.SkippedFolder{}
	}
	skippedJSON, err := json.Marshal(skipped)
	if err != nil {
		return fmt.Errorf("marshalling skipped folders: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			run_id, root_folder_id, destination, with_content, started_at, finished_at,
			files_visited, rows_written, rows_undelivered, rows_spooled,
			skipped_folders, content_errors, enrichment_errors, flush_errors
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		summary.RunID, summary.RootFolderID, summary.Destination, summary.WithContent,
		formatNullableTime(summary.StartedAt), formatNullableTime(summary.FinishedAt),
		summary.FilesVisited, summary.RowsWritten, summary.RowsUndelivered, summary.RowsSpooled,
		string(skippedJSON), summary.ContentErrors, summary.EnrichmentErrors, summary.FlushErrors,
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// ListRuns returns runs newest first.
func (s *runStore) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	query := `
		SELECT run_id, root_folder_id, destination, with_content, started_at, finished_at,
			files_visited, rows_written, rows_undelivered, rows_spooled,
			skipped_folders, content_errors, enrichment_errors, flush_errors
		FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var result []domain.RunSummary
	for rows.Next() {
		var (
			r                     domain.RunSummary
			startedAt, finishedAt sql.NullString
			skipped               string
		)
		if err := rows.Scan(
			&r.RunID, &r.RootFolderID, &r.Destination, &r.WithContent, &startedAt, &finishedAt,
			&r.FilesVisited, &r.RowsWritten, &r.RowsUndelivered, &r.RowsSpooled,
			&skipped, &r.ContentErrors, &r.EnrichmentErrors, &r.FlushErrors,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if err := json.Unmarshal([]byte(skipped), &r.SkippedFolders); err != nil {
			return nil, fmt.Errorf("run %s skipped folders: %w", r.RunID, err)
		}
		if len(r.SkippedFolders) == 0 {
			r.SkippedFolders = nil
		}
		r.StartedAt = parseNullableTime(startedAt)
		r.FinishedAt = parseNullableTime(finishedAt)
		result = append(result, r)
	}
	return result, rows.Err()
}
