package driven

import (
	"context"

	"github.com/custodia-labs/proofscan/internal/core/domain"
)

// FolderLister lists the children of a folder in a storage hierarchy.
type FolderLister interface {
	// ListChildren returns one page of the folder's children. An empty
	// cursor requests the first page; the returned page's NextCursor is
	// empty once the listing is exhausted.
	ListChildren(ctx context.Context, folderID, cursor string) (*domain.ListPage, error)
}

// FolderResolver is implemented by listers that can look up a single
// folder. The analyzer uses it to confirm the root is reachable before
// anything is written.
type FolderResolver interface {
	FolderName(ctx context.Context, folderID string) (string, error)
}

// ContentFetcher downloads the bytes of a file.
// Only invoked when content-level enrichment is requested.
type ContentFetcher interface {
	FetchContent(ctx context.Context, fileID string) ([]byte, error)
}
