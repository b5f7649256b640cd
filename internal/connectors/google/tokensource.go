package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/proofscan/internal/core/domain"
)

// FileTokenStore persists an OAuth token as JSON, the token.json file
// operators already keep next to credentials.json.
type FileTokenStore struct {
	fs   afero.Fs
	path string
}

// NewFileTokenStore creates a store for path on fs.
func NewFileTokenStore(fs afero.Fs, path string) *FileTokenStore {
	return &FileTokenStore{fs: fs, path: path}
}

// Path returns the token file location.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Load reads the token. A missing file returns domain.ErrAuthRequired.
func (s *FileTokenStore) Load() (*oauth2.Token, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no token at %s, run \"proofscan auth\"", domain.ErrAuthRequired, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("%w: decode token %s: %w", domain.ErrAuthInvalid, s.path, err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token %s is empty", domain.ErrAuthInvalid, s.path)
	}
	return &tok, nil
}

// Save writes the token with owner-only permissions.
func (s *FileTokenStore) Save(tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// persistingTokenSource saves the token whenever the underlying source
// refreshes it, so the next run starts with a valid access token.
type persistingTokenSource struct {
	mu    sync.Mutex
	base  oauth2.TokenSource
	store *FileTokenStore
	last  string
}

// NewPersistingTokenSource wraps base so refreshed tokens are written to
// store. initial is the token base started from.
func NewPersistingTokenSource(base oauth2.TokenSource, store *FileTokenStore, initial *oauth2.Token) oauth2.TokenSource {
	ts := &persistingTokenSource{base: base, store: store}
	if initial != nil {
		ts.last = initial.AccessToken
	}
	return ts
}

// Token implements oauth2.TokenSource.
func (t *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := t.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if tok.AccessToken != t.last {
		if err := t.store.Save(tok); err != nil {
			return nil, err
		}
		t.last = tok.AccessToken
	}
	return tok, nil
}
