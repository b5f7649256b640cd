package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/custodia-labs/proofscan/internal/core/domain"
	"github.com/custodia-labs/proofscan/internal/core/ports/driven"
	"github.com/custodia-labs/proofscan/internal/retry"
)

// --- Mock implementations for service testing ---

var errListing = errors.New("listing unavailable")

// fakeTree implements driven.FolderLister over an in-memory tree.
type fakeTree struct {
	mu       sync.Mutex
	children map[string][]domain.ListEntry
	pageSize int

	// failing folders always error; flaky folders error N times first.
	failing map[string]bool
	flaky   map[string]int
	calls   map[string]int
}

func newFakeTree(pageSize int) *fakeTree {
	return &fakeTree{
		children: make(map[string][]domain.ListEntry),
		pageSize: pageSize,
		failing:  make(map[string]bool),
		flaky:    make(map[string]int),
		calls:    make(map[string]int),
	}
}

func (t *fakeTree) addFolder(parent, id, name string) {
	t.children[parent] = append(t.children[parent], domain.ListEntry{
		ID: id, Name: name, Kind: domain.KindFolder, MIMEType: "application/vnd.google-apps.folder",
	})
}

func (t *fakeTree) addFile(parent, id, name string) {
	t.addFileMIME(parent, id, name, "application/pdf")
}

func (t *fakeTree) addFileMIME(parent, id, name, mimeType string) {
	t.addEntry(parent, id, name, mimeType, 1)
}

// addSharedFile files the same file under every given parent.
func (t *fakeTree) addSharedFile(id, name string, parents ...string) {
	for _, p := range parents {
		t.addEntry(p, id, name, "application/pdf", len(parents))
	}
}

func (t *fakeTree) addEntry(parent, id, name, mimeType string, parents int) {
	t.children[parent] = append(t.children[parent], domain.ListEntry{
		ID:          id,
		Name:        name,
		Kind:        domain.KindFile,
		MIMEType:    mimeType,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ModifiedAt:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		WebViewLink: "https://drive.example/" + id,
		Parents:     parents,
	})
}

func (t *fakeTree) ListChildren(_ context.Context, folderID, cursor string) (*domain.ListPage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls[folderID]++
	if t.failing[folderID] {
		return nil, errListing
	}
	if t.flaky[folderID] > 0 {
		t.flaky[folderID]--
		return nil, errListing
	}

	entries := t.children[folderID]
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return nil, fmt.Errorf("bad cursor %q", cursor)
		}
		start = n
	}
	end := min(start+t.pageSize, len(entries))

	page := &domain.ListPage{Entries: append([]domain.ListEntry(nil), entries[start:end]...)}
	if end < len(entries) {
		page.NextCursor = strconv.Itoa(end)
	}
	return page, nil
}

// FolderName resolves any folder that is not marked failing. It leaves
// calls and flaky counts untouched.
func (t *fakeTree) FolderName(_ context.Context, folderID string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failing[folderID] {
		return "", errListing
	}
	return "Folder " + folderID, nil
}

// randomTree builds a tree of nFolders folders under "root" with mFiles
// files spread across them. It returns the file IDs under each folder,
// including descendants.
func randomTree(seed int64, nFolders, mFiles, pageSize int) (*fakeTree, map[string][]string) {
	r := rand.New(rand.NewSource(seed))
	tree := newFakeTree(pageSize)

	folders := []string{"root"}
	parents := map[string]string{}
	for i := 0; i < nFolders; i++ {
		id := fmt.Sprintf("folder-%d", i)
		parent := folders[r.Intn(len(folders))]
		tree.addFolder(parent, id, "F"+strconv.Itoa(i))
		parents[id] = parent
		folders = append(folders, id)
	}

	under := make(map[string][]string)
	for i := 0; i < mFiles; i++ {
		id := fmt.Sprintf("file-%d", i)
		folder := folders[r.Intn(len(folders))]
		tree.addFile(folder, id, fmt.Sprintf("dealer_D%d_proof_v%d.pdf", i, i%5))
		for f := folder; f != ""; f = parents[f] {
			under[f] = append(under[f], id)
		}
	}
	return tree, under
}

// fakeSink implements driven.RowSink and driven.HeaderWriter.
type fakeSink struct {
	mu        sync.Mutex
	dest      string
	calls     [][]domain.OutputRow
	header    []string
	failAfter int // fail every append after this many successes; -1 never
	closed    bool
	headerErr error
}

func newFakeSink() *fakeSink {
	return &fakeSink{dest: "fake:test", failAfter: -1}
}

func (s *fakeSink) Append(_ context.Context, rows []domain.OutputRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter >= 0 && len(s.calls) >= s.failAfter {
		return errors.New("sink down")
	}
	s.calls = append(s.calls, append([]domain.OutputRow(nil), rows...))
	return nil
}

func (s *fakeSink) EnsureHeader(_ context.Context, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.headerErr != nil {
		return s.headerErr
	}
	s.header = header
	return nil
}

func (s *fakeSink) Destination() string { return s.dest }

func (s *fakeSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) rows() []domain.OutputRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []domain.OutputRow
	for _, c := range s.calls {
		all = append(all, c...)
	}
	return all
}

// fakeSinkFactory hands out a fixed sink.
type fakeSinkFactory struct {
	sink    *fakeSink
	openErr error
	opened  []string
}

func (f *fakeSinkFactory) Open(_ context.Context, destination string) (driven.RowSink, error) {
	f.opened = append(f.opened, destination)
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.sink, nil
}

// fakeLLM implements driven.LLMService.
type fakeLLM struct {
	mu       sync.Mutex
	response string
	err      error
	failures int
	prompts  []string
	opts     []driven.GenerateOptions
}

func (l *fakeLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	l.opts = append(l.opts, opts)
	if l.failures > 0 {
		l.failures--
		return "", errors.New("model overloaded")
	}
	return l.response, l.err
}

func (l *fakeLLM) ModelName() string            { return "fake-model" }
func (l *fakeLLM) Ping(_ context.Context) error { return nil }
func (l *fakeLLM) Close() error                 { return nil }

// fakeFetcher implements driven.ContentFetcher.
type fakeFetcher struct {
	failing map[string]bool
}

func (f *fakeFetcher) FetchContent(_ context.Context, fileID string) ([]byte, error) {
	if f.failing[fileID] {
		return nil, errors.New("download failed")
	}
	return []byte("%PDF-" + fileID), nil
}

// fakePrompts implements driven.PromptStore.
type fakePrompts struct {
	text string
}

func (p *fakePrompts) Load(string) (string, error) { return p.text, nil }
func (p *fakePrompts) Reload()                     {}

// fakeSpool implements driven.SpoolStore and driven.RunStore.
type fakeSpool struct {
	mu      sync.Mutex
	nextID  int64
	rows    []domain.SpooledRow
	runs    []domain.RunSummary
	saveErr error
}

func (s *fakeSpool) Save(_ context.Context, rows []domain.SpooledRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	for _, r := range rows {
		s.nextID++
		r.ID = s.nextID
		s.rows = append(s.rows, r)
	}
	return nil
}

func (s *fakeSpool) List(_ context.Context, destination string, limit int) ([]domain.SpooledRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SpooledRow
	for _, r := range s.rows {
		if destination != "" && r.Destination != destination {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeSpool) Delete(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.rows[:0]
	for _, r := range s.rows {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	return nil
}

func (s *fakeSpool) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows), nil
}

func (s *fakeSpool) SaveRun(_ context.Context, summary *domain.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append([]domain.RunSummary{*summary}, s.runs...)
	return nil
}

func (s *fakeSpool) ListRuns(_ context.Context, limit int) ([]domain.RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > 0 && limit < len(s.runs) {
		return s.runs[:limit], nil
	}
	return s.runs, nil
}

// testPolicy retries quickly.
func testPolicy(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		Multiplier:  2,
		MaxDelay:    2 * time.Millisecond,
	}
}

// collect drains a walk into slices.
func collect(files <-chan domain.FileDescriptor, errs <-chan error) ([]domain.FileDescriptor, []error) {
	var gotFiles []domain.FileDescriptor
	var gotErrs []error
	for files != nil || errs != nil {
		select {
		case f, ok := <-files:
			if !ok {
				files = nil
				continue
			}
			gotFiles = append(gotFiles, f)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			gotErrs = append(gotErrs, err)
		}
	}
	return gotFiles, gotErrs
}
