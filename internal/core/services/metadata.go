package services

import (
	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
	"github.com/custodia-labs/proofscan/internal/core/ports/driving"
	"github.com/custodia-labs/proofscan/internal/extractor"
)

// Ensure MetadataService implements the interface.
var _ driving.MetadataService = (*MetadataService)(nil)

// MetadataService exposes the extractor to driving adapters.
type MetadataService struct {
	extractor *extractor.Extractor
}

// NewMetadataService wraps an extractor.
func NewMetadataService(ex *extractor.Extractor) *MetadataService {
	return &MetadataService{extractor: ex}
}

// LoadExtractor builds an extractor from the default table merged with
// overrides from store. A nil store yields the default table.
func LoadExtractor(store driven.PatternStore) (*extractor.Extractor, error) {
	if store == nil {
		return extractor.New(nil), nil
	}
	overrides, err := store.Load()
	if err != nil {
		return nil, err
	}
	if len(overrides) == 0 {
		return extractor.New(nil), nil
	}
	rules, err := extractor.Compile(extractor.Merge(extractor.DefaultSpecs(), overrides))
	if err != nil {
		return nil, err
	}
	return extractor.New(rules), nil
}

// Extract derives metadata from a file name and its folder path.
func (s *MetadataService) Extract(name string, parentPath []string) domain.MetadataRecord {
	return s.extractor.Extract(name, parentPath)
}

// Patterns returns the effective pattern table in priority order.
func (s *MetadataService) Patterns() []domain.PatternSpec {
	return s.extractor.Rules().Specs()
}
