package driven

import "github.com/custodia-labs/proofscan/internal/core/domain"

// PatternStore loads extraction pattern overrides.
type PatternStore interface {
	// Load returns override specs in file order. A missing source
	// yields no specs and no error.
	Load() ([]domain.PatternSpec, error)

	// Location describes where patterns are read from.
	Location() string
}
