// Package drive lists folders and downloads files through the Google
// Drive v3 API.
package drive

import (
	"context"
	"fmt"
	"io"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/proofscan/internal/connectors/google"
	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
)

// Ensure Client implements the interfaces.
var (
	_ driven.FolderLister   = (*Client)(nil)
	_ driven.ContentFetcher = (*Client)(nil)
	_ driven.FolderResolver = (*Client)(nil)
)

// Defaults for listing and downloads.
const (
	DefaultPageSize        = 1000
	DefaultMaxContentBytes = 20 << 20
)

// Client is a Drive-backed folder lister and content fetcher.
type Client struct {
	svc             *drive.Service
	pageSize        int64
	maxContentBytes int64
}

// Option configures a Client.
type Option func(*Client)

// WithPageSize sets the listing page size (Drive caps it at 1000).
func WithPageSize(n int64) Option {
	return func(c *Client) {
		if n > 0 && n <= DefaultPageSize {
			c.pageSize = n
		}
	}
}

// WithMaxContentBytes caps downloads.
func WithMaxContentBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxContentBytes = n
		}
	}
}

// NewClient wraps a Drive service.
func NewClient(svc *drive.Service, opts ...Option) *Client {
	c := &Client{
		svc:             svc,
		pageSize:        DefaultPageSize,
		maxContentBytes: DefaultMaxContentBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListChildren returns one page of a folder's non-trashed children.
func (c *Client) ListChildren(ctx context.Context, folderID, cursor string) (*domain.ListPage, error) {
	call := c.svc.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID))).
		PageSize(c.pageSize).
		Fields(listFields).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx)
	if cursor != "" {
		call = call.PageToken(cursor)
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folderID, google.WrapError(err))
	}

	page := &domain.ListPage{
		Entries:    make([]domain.ListEntry, 0, len(resp.Files)),
		NextCursor: resp.NextPageToken,
	}
	for _, f := range resp.Files {
		page.Entries = append(page.Entries, ToListEntry(f))
	}
	return page, nil
}

// FetchContent downloads a file's bytes. Files larger than the cap fail
// with domain.ErrContentTooLarge.
func (c *Client) FetchContent(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, google.WrapError(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxContentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileID, err)
	}
	if int64(len(data)) > c.maxContentBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrContentTooLarge, fileID, c.maxContentBytes)
	}
	return data, nil
}

// FolderName checks that folderID is a reachable folder and returns its
// name.
func (c *Client) FolderName(ctx context.Context, folderID string) (string, error) {
	f, err := c.svc.Files.Get(folderID).
		Fields("id, name, mimeType").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("get folder %s: %w", folderID, google.WrapError(err))
	}
	if f.MimeType != MimeTypeFolder {
		return "", fmt.Errorf("%w: %s is a %s, not a folder", domain.ErrInvalidInput, folderID, f.MimeType)
	}
	return f.Name, nil
}
