package domain

import (
	"fmt"
	"strings"
)

// SinkKind identifies a row sink implementation.
type SinkKind string

const (
	// SinkSheets appends to a Google Sheets spreadsheet.
	SinkSheets SinkKind = "sheets"
	// SinkXLSX writes a local Excel workbook.
	SinkXLSX SinkKind = "xlsx"
	// SinkPostgres copies rows into a PostgreSQL table.
	SinkPostgres SinkKind = "postgres"
)

// SinkKinds lists the supported sink kinds.
func SinkKinds() []SinkKind {
	return []SinkKind{SinkSheets, SinkXLSX, SinkPostgres}
}

// Destination is a parsed sink address of the form "kind" or
// "kind:target". An empty target means the configured default for the
// kind (spreadsheet ID, workbook path or table name).
type Destination struct {
	Kind   SinkKind
	Target string
}

// ParseDestination parses a destination string.
func ParseDestination(s string) (Destination, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Destination{}, fmt.Errorf("%w: empty destination", ErrInvalidInput)
	}

	kind, target, _ := strings.Cut(s, ":")
	d := Destination{
		Kind:   SinkKind(strings.ToLower(strings.TrimSpace(kind))),
		Target: strings.TrimSpace(target),
	}
	for _, k := range SinkKinds() {
		if d.Kind == k {
			return d, nil
		}
	}
	return Destination{}, fmt.Errorf("%w: sink %q", ErrUnsupportedType, kind)
}

// String renders the destination in parseable form.
func (d Destination) String() string {
	if d.Target == "" {
		return string(d.Kind)
	}
	return string(d.Kind) + ":" + d.Target
}
