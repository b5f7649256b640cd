package driving

import "github.com/custodia-labs/proofscan/internal/core/domain"

// MetadataService exposes filename metadata extraction.
type MetadataService interface {
	// Extract derives metadata from a file name and its folder path.
	Extract(name string, parentPath []string) domain.MetadataRecord

	// Patterns returns the effective pattern table in priority order.
	Patterns() []domain.PatternSpec
}
