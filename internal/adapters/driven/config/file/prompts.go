package file

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files in a directory.
// Each prompt lives in <name>.txt; missing files fall back to the
// defaults the store was created with.
//
// Files are only written on first Load, so constructing a store has no
// side effects.
type PromptStore struct {
	fs        afero.Fs
	promptDir string
	defaults  map[string]string

	mu       sync.RWMutex
	cache    map[string]string
	initOnce sync.Once
	initErr  error
}

// NewPromptStore creates a prompt store rooted at promptDir on fsys.
// defaults seed missing prompt files and serve as fallbacks.
func NewPromptStore(fsys afero.Fs, promptDir string, defaults map[string]string) *PromptStore {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &PromptStore{
		fs:        fsys,
		promptDir: promptDir,
		defaults:  defaults,
		cache:     make(map[string]string),
	}
}

// Load returns the prompt template for the given name.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := s.defaults[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	if err != nil {
		if fallback, ok := s.defaults[name]; ok {
			return fallback, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// Path returns the file backing the named prompt.
func (s *PromptStore) Path(name string) string {
	return filepath.Join(s.promptDir, name+".txt")
}

// initialise creates the directory and writes default prompt files
// that do not exist yet. Existing files are never overwritten.
func (s *PromptStore) initialise() {
	if err := s.fs.MkdirAll(s.promptDir, 0o700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range s.defaults {
		path := s.Path(name)
		exists, err := afero.Exists(s.fs, path)
		if err != nil {
			s.initErr = fmt.Errorf("stat prompt %q: %w", name, err)
			return
		}
		if exists {
			continue
		}
		if err := afero.WriteFile(s.fs, path, []byte(content), 0o600); err != nil {
			s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
			return
		}
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := afero.ReadFile(s.fs, s.Path(name))
	if err != nil {
		return "", err
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("%s is empty: %w", s.Path(name), fs.ErrNotExist)
	}
	return prompt, nil
}

// IsMissing reports whether err came from a prompt that has no file
// and no default.
func IsMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
