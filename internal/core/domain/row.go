package domain

import (
	"fmt"
	"time"
)

// OutputHeader is the column order of every sink.
var OutputHeader = []string{
	"File ID",
	"Filename",
	"Created Time",
	"Modified Time",
	"Web View Link",
	"Date",
	"Dealership",
	"Version",
	"Campaign",
	"Region",
	"Model",
	"Coupon Info",
	"Processed Time",
}

// TimestampLayout is how timestamps are rendered into row cells.
const TimestampLayout = time.RFC3339

// OutputRow is the flattened record persisted per file.
// Rows are append-only; once written they are not revisited.
type OutputRow struct {
	FileID      string
	FileName    string
	CreatedAt   time.Time
	ModifiedAt  time.Time
	WebViewLink string
	Metadata    MetadataRecord
	Coupon      CouponInfo
	ProcessedAt time.Time
}

// NewOutputRow combines a file with its extracted metadata and coupon info.
func NewOutputRow(file FileDescriptor, meta MetadataRecord, coupon CouponInfo, processedAt time.Time) OutputRow {
	return OutputRow{
		FileID:      file.ID,
		FileName:    file.Name,
		CreatedAt:   file.CreatedAt,
		ModifiedAt:  file.ModifiedAt,
		WebViewLink: file.WebViewLink,
		Metadata:    meta,
		Coupon:      coupon,
		ProcessedAt: processedAt,
	}
}

// Values renders the row as cells in OutputHeader order.
func (r OutputRow) Values() []string {
	values := make([]string, 0, len(OutputHeader))
	values = append(values,
		r.FileID,
		r.FileName,
		formatTimestamp(r.CreatedAt),
		formatTimestamp(r.ModifiedAt),
		r.WebViewLink,
	)
	for _, f := range Fields {
		values = append(values, r.Metadata.Value(f))
	}
	values = append(values, r.Coupon.Serialize(), formatTimestamp(r.ProcessedAt))
	return values
}

// ParseOutputRow rebuilds a row from cells in OutputHeader order.
func ParseOutputRow(values []string) (OutputRow, error) {
	if len(values) != len(OutputHeader) {
		return OutputRow{}, fmt.Errorf("%w: expected %d cells, got %d",
			ErrInvalidInput, len(OutputHeader), len(values))
	}

	created, err := parseTimestamp(values[2])
	if err != nil {
		return OutputRow{}, fmt.Errorf("created time: %w", err)
	}
	modified, err := parseTimestamp(values[3])
	if err != nil {
		return OutputRow{}, fmt.Errorf("modified time: %w", err)
	}
	processed, err := parseTimestamp(values[12])
	if err != nil {
		return OutputRow{}, fmt.Errorf("processed time: %w", err)
	}

	meta := make(map[Field]string, len(Fields))
	for i, f := range Fields {
		meta[f] = values[5+i]
	}

	return OutputRow{
		FileID:      values[0],
		FileName:    values[1],
		CreatedAt:   created,
		ModifiedAt:  modified,
		WebViewLink: values[4],
		Metadata:    NewMetadataRecord(meta),
		Coupon:      ParseCouponCell(values[11]),
		ProcessedAt: processed,
	}, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return t, nil
}
