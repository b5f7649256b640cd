package domain

import (
	"strings"
	"time"
)

// EntryKind distinguishes folders from files in a listing page.
type EntryKind int

const (
	// KindFile is a leaf entry.
	KindFile EntryKind = iota

	// KindFolder is an entry whose children can be listed.
	KindFolder
)

// String returns the kind name.
func (k EntryKind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "file"
}

// ListEntry is one child returned by a folder listing.
type ListEntry struct {
	ID          string
	Name        string
	Kind        EntryKind
	MIMEType    string
	CreatedAt   time.Time
	ModifiedAt  time.Time
	WebViewLink string

	// Parents is the number of folders the entry is filed under, or 0
	// when the provider does not say.
	Parents int

	// Size is nil when the storage provider does not report one
	// (for example native documents without a binary body).
	Size *int64
}

// ListPage is a single page of a folder listing.
type ListPage struct {
	Entries []ListEntry

	// NextCursor is empty on the last page.
	NextCursor string
}

// FileDescriptor is a file reachable from the walk root.
// It is immutable once produced by the folder walker.
type FileDescriptor struct {
	// ID is the opaque storage identifier.
	ID string

	// Name is the filename including its extension.
	Name string

	// MIMEType is the content type reported by storage.
	MIMEType string

	// ParentPath holds folder names from below the root down to the
	// folder containing this file. Files directly in the root have
	// an empty path.
	ParentPath []string

	CreatedAt   time.Time
	ModifiedAt  time.Time
	WebViewLink string
	Size        *int64

	// Content is populated only when content download was requested.
	Content []byte
}

// NewFileDescriptor builds a descriptor from a listing entry and the
// path of the folder it was found in.
func NewFileDescriptor(entry ListEntry, parentPath []string) FileDescriptor {
	path := make([]string, len(parentPath))
	copy(path, parentPath)

	return FileDescriptor{
		ID:          entry.ID,
		Name:        entry.Name,
		MIMEType:    entry.MIMEType,
		ParentPath:  path,
		CreatedAt:   entry.CreatedAt,
		ModifiedAt:  entry.ModifiedAt,
		WebViewLink: entry.WebViewLink,
		Size:        entry.Size,
	}
}

// WithContent returns a copy of the descriptor carrying content bytes.
func (f FileDescriptor) WithContent(content []byte) FileDescriptor {
	f.Content = content
	return f
}

// DisplayPath renders the parent path and name joined with slashes.
func (f FileDescriptor) DisplayPath() string {
	if len(f.ParentPath) == 0 {
		return f.Name
	}
	return strings.Join(f.ParentPath, "/") + "/" + f.Name
}
