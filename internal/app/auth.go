package app

import (
	"context"
	"fmt"

	"github.com/custodia-labs/proofscan/internal/adapters/driving/oauth"
	"github.com/custodia-labs/proofscan/internal/connectors/google"
	"github.com/custodia-labs/proofscan/internal/core/domain"
)

// Authorize runs the browser consent flow for the configured OAuth
// client and saves the token. It returns the token file path.
// Service account credentials need no token and are rejected.
func (a *App) Authorize(ctx context.Context, opts oauth.FlowOptions) (string, error) {
	creds, err := a.Credentials()
	if err != nil {
		return "", err
	}
	if creds.Kind == google.CredentialsServiceAccount {
		return "", fmt.Errorf("%w: %s is a service account key; no authorization needed",
			domain.ErrInvalidInput, a.cfg.Drive.CredentialsFile)
	}

	conf, err := creds.OAuthConfig()
	if err != nil {
		return "", err
	}

	tok, err := oauth.Authorize(ctx, conf, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrAuthRequired, err)
	}

	store := a.TokenStore()
	if err := store.Save(tok); err != nil {
		return "", err
	}
	a.log.Info().Str("token_file", store.Path()).Msg("Token saved")
	return store.Path(), nil
}
