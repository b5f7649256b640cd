package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/custodia-labs/proofscan/internal/core/domain"
)

// Scopes are the OAuth scopes proofscan requests: read-only Drive access
// and read/write Sheets access.
var Scopes = []string{
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/spreadsheets",
}

// CredentialsKind distinguishes the two credential file formats.
type CredentialsKind string

const (
	// CredentialsServiceAccount is a service account key file.
	CredentialsServiceAccount CredentialsKind = "service_account"
	// CredentialsInstalledApp is an OAuth client for installed apps.
	CredentialsInstalledApp CredentialsKind = "installed"
)

// Credentials is a parsed credentials.json.
type Credentials struct {
	Kind CredentialsKind
	data []byte
}

// ReadCredentials loads and classifies a credentials file.
func ReadCredentials(fs afero.Fs, path string) (*Credentials, error) {
	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: credentials file %s not found", domain.ErrAuthRequired, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	var probe struct {
		Type      string          `json:"type"`
		Installed json.RawMessage `json:"installed"`
		Web       json.RawMessage `json:"web"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: decode credentials %s: %w", domain.ErrAuthInvalid, path, err)
	}

	switch {
	case probe.Type == string(CredentialsServiceAccount):
		return &Credentials{Kind: CredentialsServiceAccount, data: data}, nil
	case len(probe.Installed) > 0 || len(probe.Web) > 0:
		return &Credentials{Kind: CredentialsInstalledApp, data: data}, nil
	default:
		return nil, fmt.Errorf("%w: %s is neither a service account key nor an OAuth client", domain.ErrAuthInvalid, path)
	}
}

// OAuthConfig returns the installed-app client configuration used by
// the authorization flow.
func (c *Credentials) OAuthConfig() (*oauth2.Config, error) {
	if c.Kind != CredentialsInstalledApp {
		return nil, fmt.Errorf("%w: service accounts do not use the browser flow", domain.ErrInvalidInput)
	}
	cfg, err := googleoauth.ConfigFromJSON(c.data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
	}
	return cfg, nil
}

// TokenSource builds a token source for API calls. Service accounts need
// nothing else; installed-app clients need a token saved by the auth
// command, and refreshed tokens are written back to tokens.
func (c *Credentials) TokenSource(ctx context.Context, tokens *FileTokenStore) (oauth2.TokenSource, error) {
	if c.Kind == CredentialsServiceAccount {
		jwt, err := googleoauth.JWTConfigFromJSON(c.data, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrAuthInvalid, err)
		}
		return jwt.TokenSource(ctx), nil
	}

	cfg, err := c.OAuthConfig()
	if err != nil {
		return nil, err
	}
	tok, err := tokens.Load()
	if err != nil {
		return nil, err
	}
	return NewPersistingTokenSource(cfg.TokenSource(ctx, tok), tokens, tok), nil
}
