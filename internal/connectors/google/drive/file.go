package drive

import (
	"strings"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/proofscan/internal/core/domain"
)

// Drive MIME types.
const (
	MimeTypeFolder = "application/vnd.google-apps.folder"
	MimeTypePDF    = "application/pdf"

	// googleAppsPrefix marks native Docs/Sheets/Slides files, which have
	// no byte size and cannot be downloaded directly.
	googleAppsPrefix = "application/vnd.google-apps."
)

// listFields is the partial response requested for folder listings.
const listFields = "nextPageToken, files(id, name, mimeType, parents, createdTime, modifiedTime, size, webViewLink)"

// ToListEntry converts a Drive file to a listing entry.
func ToListEntry(f *drive.File) domain.ListEntry {
	entry := domain.ListEntry{
		ID:          f.Id,
		Name:        f.Name,
		Kind:        domain.KindFile,
		MIMEType:    f.MimeType,
		CreatedAt:   parseTime(f.CreatedTime),
		ModifiedAt:  parseTime(f.ModifiedTime),
		WebViewLink: ResolveWebURL(f.Id, f.WebViewLink),
		Parents:     len(f.Parents),
	}
	if f.MimeType == MimeTypeFolder {
		entry.Kind = domain.KindFolder
		return entry
	}
	if !strings.HasPrefix(f.MimeType, googleAppsPrefix) {
		size := f.Size
		entry.Size = &size
	}
	return entry
}

// ResolveWebURL returns the link Drive reported, or the standard viewer
// URL for the file when none was returned.
func ResolveWebURL(fileID, webViewLink string) string {
	if webViewLink != "" {
		return webViewLink
	}
	if fileID == "" {
		return ""
	}
	return "https://drive.google.com/file/d/" + fileID + "/view"
}

// parseTime reads Drive's RFC 3339 timestamps. Unparseable values are
// treated as unknown.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// escapeQuery escapes a value for use inside a single-quoted Drive query
// string.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
