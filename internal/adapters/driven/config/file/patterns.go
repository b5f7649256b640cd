package file

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
)

// Ensure PatternStore implements the interface.
var _ driven.PatternStore = (*PatternStore)(nil)

// patternFile is the TOML layout of a patterns file:
//
//	[[pattern]]
//	field = "dealership"
//	expr  = '(?i)dealer[_-]([A-Za-z0-9]+)'
type patternFile struct {
	Patterns []domain.PatternSpec `toml:"pattern"`
}

// PatternStore reads extraction pattern overrides from a TOML file.
type PatternStore struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

// NewPatternStore creates a store for the file at path on fsys.
func NewPatternStore(fsys afero.Fs, path string) *PatternStore {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &PatternStore{fs: fsys, path: path}
}

// Load returns the patterns in file order. A missing file yields no
// patterns and no error.
func (s *PatternStore) Load() ([]domain.PatternSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read patterns: %w", err)
	}

	var file patternFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrInvalidConfig, s.path, err)
	}
	for i, spec := range file.Patterns {
		if !spec.Field.IsValid() {
			return nil, fmt.Errorf("%w: %s: pattern %d has unknown field %q",
				domain.ErrInvalidConfig, s.path, i+1, spec.Field)
		}
	}
	return file.Patterns, nil
}

// Save writes specs to the file, replacing its contents.
func (s *PatternStore) Save(specs []domain.PatternSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(patternFile{Patterns: specs})
	if err != nil {
		return fmt.Errorf("encode patterns: %w", err)
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create patterns directory: %w", err)
	}
	return afero.WriteFile(s.fs, s.path, data, 0o600)
}

// Exists reports whether the patterns file is present.
func (s *PatternStore) Exists() bool {
	ok, err := afero.Exists(s.fs, s.path)
	return err == nil && ok
}

// Location returns the file path.
func (s *PatternStore) Location() string {
	return s.path
}
