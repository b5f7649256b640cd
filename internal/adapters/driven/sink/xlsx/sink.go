// Package xlsx writes rows to a local Excel workbook.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
)

// Ensure Sink implements the interfaces.
var (
	_ driven.RowSink      = (*Sink)(nil)
	_ driven.HeaderWriter = (*Sink)(nil)
)

// DefaultSheet is the worksheet rows are written to.
const DefaultSheet = "Proofs"

// Sink appends rows to one worksheet. The workbook is saved after every
// batch so a crash loses at most the batch in flight.
type Sink struct {
	mu    sync.Mutex
	path  string
	sheet string
	file  *excelize.File
	next  int // 1-based index of the next empty row
}

// Open opens path, creating the workbook and worksheet if needed.
func Open(path, sheet string) (*Sink, error) {
	if sheet == "" {
		sheet = DefaultSheet
	}

	f, err := excelize.OpenFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		f = excelize.NewFile()
		if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
			return nil, fmt.Errorf("name sheet: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}

	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("find sheet: %w", err)
	}
	if idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("add sheet %s: %w", sheet, err)
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	return &Sink{path: path, sheet: sheet, file: f, next: len(rows) + 1}, nil
}

// EnsureHeader writes header in row 1 of an empty sheet.
func (s *Sink) EnsureHeader(_ context.Context, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next > 1 {
		return nil
	}
	if err := s.writeRow(1, header); err != nil {
		return err
	}
	if err := s.save(); err != nil {
		_ = s.file.RemoveRow(s.sheet, 1)
		return err
	}
	s.next = 2
	return nil
}

// Append writes rows below the existing ones and saves the workbook. On
// failure the batch is removed again so it is not saved later.
func (s *Sink) Append(ctx context.Context, rows []domain.OutputRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.next
	for i, row := range rows {
		if err := s.writeRow(start+i, row.Values()); err != nil {
			s.rollback(start, i)
			return err
		}
	}
	if err := s.save(); err != nil {
		s.rollback(start, len(rows))
		return err
	}
	s.next = start + len(rows)
	return nil
}

// Destination implements driven.RowSink.
func (s *Sink) Destination() string {
	return string(domain.SinkXLSX) + ":" + s.path
}

// Close releases the workbook.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

func (s *Sink) writeRow(index int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, index)
	if err != nil {
		return fmt.Errorf("cell for row %d: %w", index, err)
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := s.file.SetSheetRow(s.sheet, cell, &row); err != nil {
		return fmt.Errorf("write row %d: %w", index, err)
	}
	return nil
}

func (s *Sink) rollback(start, n int) {
	for i := n - 1; i >= 0; i-- {
		_ = s.file.RemoveRow(s.sheet, start+i)
	}
}

func (s *Sink) save() error {
	if err := s.file.SaveAs(s.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", s.path, err)
	}
	return nil
}
