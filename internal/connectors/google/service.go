package google

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ServiceOptions configure API client construction.
type ServiceOptions struct {
	// TokenSource authenticates requests. Ignored when HTTPClient is set.
	TokenSource oauth2.TokenSource

	// HTTPClient replaces the authenticated client, mainly for tests.
	HTTPClient *http.Client

	// Endpoint overrides the API base URL.
	Endpoint string

	// Limiter throttles requests. Nil uses the service default.
	Limiter *RateLimiter
}

func (o ServiceOptions) clientOptions(service ServiceType) []option.ClientOption {
	limiter := o.Limiter
	if limiter == nil {
		limiter = NewRateLimiter(service)
	}

	var client *http.Client
	if o.HTTPClient != nil {
		c := *o.HTTPClient
		c.Transport = &Transport{Base: o.HTTPClient.Transport, Limiter: limiter}
		client = &c
	} else {
		var base http.RoundTripper = http.DefaultTransport
		if o.TokenSource != nil {
			base = &oauth2.Transport{Source: o.TokenSource, Base: base}
		}
		client = &http.Client{Transport: &Transport{Base: base, Limiter: limiter}}
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if o.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(o.Endpoint))
	}
	return opts
}

// NewDriveService creates a Google Drive API service.
func NewDriveService(ctx context.Context, opts ServiceOptions) (*drive.Service, error) {
	svc, err := drive.NewService(ctx, opts.clientOptions(ServiceDrive)...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}

// NewSheetsService creates a Google Sheets API service.
func NewSheetsService(ctx context.Context, opts ServiceOptions) (*sheets.Service, error) {
	svc, err := sheets.NewService(ctx, opts.clientOptions(ServiceSheets)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}
