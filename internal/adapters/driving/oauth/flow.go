package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTimeout bounds how long Authorize waits for the browser.
const DefaultTimeout = 5 * time.Minute

// FlowOptions tunes Authorize.
type FlowOptions struct {
	// Port for the callback server; 0 picks a free port.
	Port int

	// Timeout for the user to finish in the browser.
	Timeout time.Duration

	// Open presents the consent URL to the user. When nil the URL is
	// opened with OpenBrowser.
	Open func(url string) error
}

// Authorize runs the authorization code flow with PKCE against cfg and
// returns the exchanged token. cfg is copied; its RedirectURL is set to
// the local callback server.
func Authorize(ctx context.Context, cfg *oauth2.Config, opts FlowOptions) (*oauth2.Token, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Open == nil {
		opts.Open = OpenBrowser
	}

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	server := NewCallbackServer(opts.Port, state)
	if err := server.Start(); err != nil {
		return nil, err
	}
	defer server.Stop() //nolint:errcheck // best-effort shutdown

	conf := *cfg
	conf.RedirectURL = server.RedirectURI()

	authURL := conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)
	if err := opts.Open(authURL); err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	code, err := server.WaitForCode(waitCtx)
	if err != nil {
		return nil, err
	}

	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

// generateState creates a random state parameter for CSRF protection.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
