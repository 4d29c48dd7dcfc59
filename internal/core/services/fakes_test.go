package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
)

// --- Fakes shared by the ingest, metadata and retrieval tests ---

// fakePDF returns bytes the fake renderer understands as an n-page PDF.
// tag makes otherwise identical documents hash differently.
func fakePDF(pages int, tag string) []byte {
	return []byte(fmt.Sprintf("%%PDF-1.7 pages=%d tag=%s", pages, tag))
}

type fakeFetcher struct {
	mu    sync.Mutex
	docs  map[string][]byte
	err   error
	delay time.Duration
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.docs[url]
	if !ok {
		return nil, fmt.Errorf("%w: 404 for %s", domain.ErrDownload, url)
	}
	return data, nil
}

type fakeRenderer struct {
	mu       sync.Mutex
	rendered [][2]int

	// blank renders every page without text, as for a scanned document.
	blank bool
}

func (r *fakeRenderer) PageCount(data []byte) (int, error) {
	var n int
	i := strings.Index(string(data), "pages=")
	if i < 0 {
		return 0, fmt.Errorf("%w: no page tree", domain.ErrInvalidDocument)
	}
	if _, err := fmt.Sscanf(string(data[i:]), "pages=%d", &n); err != nil || n < 1 {
		return 0, fmt.Errorf("%w: bad page count", domain.ErrInvalidDocument)
	}
	return n, nil
}

func (r *fakeRenderer) Render(ctx context.Context, data []byte, start, end int) ([]domain.RenderedPage, error) {
	count, err := r.PageCount(data)
	if err != nil {
		return nil, err
	}
	if start < 1 || end < start || end > count {
		return nil, domain.ErrRange
	}

	r.mu.Lock()
	r.rendered = append(r.rendered, [2]int{start, end})
	r.mu.Unlock()

	pages := make([]domain.RenderedPage, 0, end-start+1)
	for n := start; n <= end; n++ {
		text := fmt.Sprintf("text of page %d", n)
		if r.blank {
			text = ""
		}
		pages = append(pages, domain.RenderedPage{Number: n, Markdown: text})
	}
	return pages, nil
}

type fakeLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
	seen  [][]driven.ChatMessage
	opts  []driven.ChatOptions

	// wait, when set, is called before replying.
	wait func(ctx context.Context) error
}

func (l *fakeLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	l.mu.Lock()
	l.calls++
	l.seen = append(l.seen, messages)
	l.opts = append(l.opts, opts)
	wait := l.wait
	l.mu.Unlock()

	if wait != nil {
		if err := wait(ctx); err != nil {
			return "", err
		}
	}
	if l.err != nil {
		return "", l.err
	}
	return l.reply, nil
}

func (l *fakeLLM) ModelName() string { return "fake-model" }
func (l *fakeLLM) Ping(_ context.Context) error { return nil }
func (l *fakeLLM) Close() error { return nil }

func (l *fakeLLM) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

type fakePrompts struct {
	prompt string
	err    error
}

func (p *fakePrompts) Load(_ string) (string, error) { return p.prompt, p.err }
func (p *fakePrompts) Reload() {}

// failingDocStore wraps a store and fails every insert as a durable write
// failure would.
type failingDocStore struct {
	driven.DocumentStore
}

func (s *failingDocStore) Insert(_ context.Context, _ *domain.Document) error {
	return fmt.Errorf("%w: disk full", domain.ErrStoreWrite)
}

type failingBlobStore struct {
	driven.BlobStore
}

func (s *failingBlobStore) Put(_ context.Context, _ string, _ []byte) (string, error) {
	return "", errors.New("read-only file system")
}
