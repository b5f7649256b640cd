package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
	"github.com/custodia-labs/proofscan/internal/retry"
)

// FolderWalker traverses a folder tree breadth-first and yields every
// reachable file once.
//
// Only the pending-folder queue and the current page are held in
// memory, plus the IDs of visited folders and of files filed under more
// than one folder. Files are streamed to the caller as each page arrives.
type FolderWalker struct {
	lister    driven.FolderLister
	retry     retry.Policy
	mimeTypes map[string]bool
	log       zerolog.Logger
}

// WalkerOption configures a FolderWalker.
type WalkerOption func(*FolderWalker)

// WithMIMETypes restricts yielded files to the given content types.
// With no types every file is yielded.
func WithMIMETypes(types ...string) WalkerOption {
	return func(w *FolderWalker) {
		w.mimeTypes = make(map[string]bool, len(types))
		for _, t := range types {
			if t != "" {
				w.mimeTypes[t] = true
			}
		}
	}
}

// NewFolderWalker creates a walker over lister. Each page request is
// wrapped in policy.
func NewFolderWalker(
	lister driven.FolderLister,
	policy retry.Policy,
	log zerolog.Logger,
	opts ...WalkerOption,
) *FolderWalker {
	w := &FolderWalker{
		lister: lister,
		retry:  policy,
		log:    log.With().Str("component", "walker").Logger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type pendingFolder struct {
	id   string
	path []string
}

// Walk starts a traversal from rootID.
//
// Files are sent on the first channel. A folder whose listing still
// fails after retries is sent on the second channel as a
// *domain.FolderError and its unlisted children are skipped; siblings
// continue. Both channels are closed when the walk ends or ctx is done,
// and the caller must drain both.
func (w *FolderWalker) Walk(ctx context.Context, rootID string) (<-chan domain.FileDescriptor, <-chan error) {
	files := make(chan domain.FileDescriptor)
	errs := make(chan error)

	go func() {
		defer close(errs)
		defer close(files)

		queue := []pendingFolder{{id: rootID}}
		seenFolders := map[string]bool{rootID: true}
		seenFiles := make(map[string]bool)

		for len(queue) > 0 {
			if ctx.Err() != nil {
				return
			}

			folder := queue[0]
			queue = queue[1:]

			children, err := w.walkFolder(ctx, folder, files, seenFolders, seenFiles)
			queue = append(queue, children...)
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}

			w.log.Warn().
				Str("folder_id", folder.id).
				Strs("path", folder.path).
				Str("stage", "list").
				Err(err).
				Msg("Skipping unreachable folder")

			select {
			case errs <- &domain.FolderError{FolderID: folder.id, Path: folder.path, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return files, errs
}

// walkFolder exhausts the pagination of one folder, streaming files and
// returning the subfolders found. Subfolders from pages listed before a
// failure are still returned.
func (w *FolderWalker) walkFolder(
	ctx context.Context,
	folder pendingFolder,
	files chan<- domain.FileDescriptor,
	seenFolders, seenFiles map[string]bool,
) ([]pendingFolder, error) {
	var children []pendingFolder
	cursor := ""

	for {
		page, err := retry.DoValue(ctx, w.retry, func(ctx context.Context) (*domain.ListPage, error) {
			return w.lister.ListChildren(ctx, folder.id, cursor)
		})
		if err != nil {
			return children, err
		}

		for _, entry := range page.Entries {
			switch entry.Kind {
			case domain.KindFolder:
				if seenFolders[entry.ID] {
					continue
				}
				seenFolders[entry.ID] = true
				children = append(children, pendingFolder{id: entry.ID, path: childPath(folder.path, entry.Name)})

			default:
				if !w.accepts(entry.MIMEType) {
					continue
				}
				// Only files filed under several folders can be listed twice,
				// so only their IDs are remembered.
				if entry.Parents > 1 {
					if seenFiles[entry.ID] {
						continue
					}
					seenFiles[entry.ID] = true
				}
				select {
				case files <- domain.NewFileDescriptor(entry, folder.path):
				case <-ctx.Done():
					return children, ctx.Err()
				}
			}
		}

		if page.NextCursor == "" {
			w.log.Debug().Str("folder_id", folder.id).Strs("path", folder.path).Msg("Folder listed")
			return children, nil
		}
		cursor = page.NextCursor
	}
}

func (w *FolderWalker) accepts(mimeType string) bool {
	return len(w.mimeTypes) == 0 || w.mimeTypes[mimeType]
}

func childPath(parent []string, name string) []string {
	path := make([]string, len(parent), len(parent)+1)
	copy(path, parent)
	return append(path, name)
}
