package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/logger"
)

type fakeIngest struct {
	mu     sync.Mutex
	result *domain.IngestResult
	err    error
	urls   []string
}

func (f *fakeIngest) Ingest(_ context.Context, url string) (*domain.IngestResult, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	return f.result, f.err
}

type fakeRetrieval struct {
	docs    []*domain.Document
	content *domain.PageContent
	err     error
}

func (f *fakeRetrieval) ListDocuments(_ context.Context) ([]domain.DocumentSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.DocumentSummary, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, d.Summarise())
	}
	return out, nil
}

func (f *fakeRetrieval) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	for _, d := range f.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
}

func (f *fakeRetrieval) GetTableOfContents(ctx context.Context, id string) ([]domain.OutlineEntry, error) {
	doc, err := f.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.TableOfContents, nil
}

func (f *fakeRetrieval) ExtractPageRange(ctx context.Context, id string, start, end int) (*domain.PageContent, error) {
	doc, err := f.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := doc.CheckRange(start, end); err != nil {
		return nil, err
	}
	return f.content, nil
}

func testDocument() *domain.Document {
	return &domain.Document{
		ID:              "0123456789abcdef",
		ContentHash:     strings.Repeat("0123456789abcdef", 4),
		SourceURL:       "https://example.com/paper.pdf",
		Title:           "A Paper",
		Authors:         []string{"Ada Lovelace"},
		PageCount:       4,
		TableOfContents: []domain.OutlineEntry{{Title: "Intro", Page: 1}, {Title: "Method", Page: 2, Depth: 1}},
		Summary:         "About a thing.",
		IngestedAt:      time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestService(t *testing.T, config Config) *Service {
	t.Helper()
	if config.ListenAddr == "" {
		config.ListenAddr = "127.0.0.1:0"
	}
	if config.Retrieval == nil {
		config.Retrieval = &fakeRetrieval{docs: []*domain.Document{testDocument()}}
	}
	if config.Logger == nil {
		config.Logger = logger.Discard()
	}
	svc, err := New(config)
	require.NoError(t, err)
	return svc
}

func do(t *testing.T, svc *Service, method, target, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNew_ValidatesConfig(t *testing.T) {
	_, err := New(Config{IngestRatePerMinute: -1})
	require.Error(t, err)
	for _, want := range []string{"retrieval service", "listen address", "ingest rate"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestIngest(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		ingest := &fakeIngest{result: &domain.IngestResult{Document: testDocument(), Created: true}}
		svc := newTestService(t, Config{Ingest: ingest})

		rec := do(t, svc, http.MethodPost, "/ingest", `{"url": "https://example.com/paper.pdf"}`)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "/documents/0123456789abcdef", rec.Header().Get("Location"))
		assert.Equal(t, []string{"https://example.com/paper.pdf"}, ingest.urls)

		body := decode[ingestView](t, rec)
		assert.Equal(t, "0123456789abcdef", body.DocumentID)
		assert.Equal(t, "A Paper", body.Title)
		assert.Equal(t, 4, body.PageCount)
		assert.True(t, body.HasTOC)
		assert.Equal(t, []string{"Ada Lovelace"}, body.Document.Authors)
		assert.Nil(t, body.Document.PublicationDate)
	})

	t.Run("duplicate content", func(t *testing.T) {
		ingest := &fakeIngest{err: &domain.DuplicateError{ExistingID: "0123456789abcdef"}}
		svc := newTestService(t, Config{Ingest: ingest})

		rec := do(t, svc, http.MethodPost, "/ingest", `{"url": "https://mirror.example.com/paper.pdf"}`)

		require.Equal(t, http.StatusConflict, rec.Code)
		body := decode[errorBody](t, rec)
		assert.Equal(t, "duplicate", body.Error)
		assert.Equal(t, "0123456789abcdef", body.ExistingID)
	})

	t.Run("lost concurrent race", func(t *testing.T) {
		ingest := &fakeIngest{result: &domain.IngestResult{Document: testDocument(), Created: false}}
		svc := newTestService(t, Config{Ingest: ingest})

		rec := do(t, svc, http.MethodPost, "/ingest", `{"url": "https://example.com/paper.pdf"}`)

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "0123456789abcdef", decode[errorBody](t, rec).ExistingID)
	})

	t.Run("bad requests never reach the service", func(t *testing.T) {
		for _, body := range []string{
			`not json`,
			`{}`,
			`{"url": "ftp://example.com/a.pdf"}`,
			`{"url": "file:///etc/passwd"}`,
			`{"url": "/relative.pdf"}`,
		} {
			ingest := &fakeIngest{}
			svc := newTestService(t, Config{Ingest: ingest})

			rec := do(t, svc, http.MethodPost, "/ingest", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
			assert.Empty(t, ingest.urls, body)
		}
	})

	t.Run("ingestion disabled", func(t *testing.T) {
		svc := newTestService(t, Config{})

		rec := do(t, svc, http.MethodPost, "/ingest", `{"url": "https://example.com/a.pdf"}`)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestIngest_ErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{err: fmt.Errorf("%w: 404", domain.ErrDownload), want: http.StatusBadGateway, code: "download_error"},
		{err: fmt.Errorf("%w: no pages", domain.ErrInvalidDocument), want: http.StatusUnprocessableEntity, code: "invalid_document"},
		{err: fmt.Errorf("%w: 529", domain.ErrUpstream), want: http.StatusBadGateway, code: "upstream_error"},
		{err: fmt.Errorf("%w: no title", domain.ErrExtraction), want: http.StatusBadGateway, code: "extraction_error"},
		{err: fmt.Errorf("%w: disk full", domain.ErrStoreWrite), want: http.StatusInternalServerError, code: "store_write_error"},
		{err: fmt.Errorf("%w: 0123456789abcdef", domain.ErrIDConflict), want: http.StatusConflict, code: "id_conflict"},
		{err: fmt.Errorf("%w: no retained pdf", domain.ErrMissingContent), want: http.StatusInternalServerError, code: "internal_error"},
		{err: domain.ErrLLMUnavailable, want: http.StatusServiceUnavailable, code: "llm_unavailable"},
		{err: errors.New("surprise"), want: http.StatusInternalServerError, code: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			svc := newTestService(t, Config{Ingest: &fakeIngest{err: tt.err}})

			rec := do(t, svc, http.MethodPost, "/ingest", `{"url": "https://example.com/a.pdf"}`)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.code, decode[errorBody](t, rec).Error)
		})
	}
}

func TestIngest_InternalErrorsAreNotLeaked(t *testing.T) {
	svc := newTestService(t, Config{Ingest: &fakeIngest{err: errors.New("pq: password authentication failed")}})

	rec := do(t, svc, http.MethodPost, "/ingest", `{"url": "https://example.com/a.pdf"}`)

	assert.NotContains(t, rec.Body.String(), "password")
}

func TestIngest_RateLimited(t *testing.T) {
	ingest := &fakeIngest{result: &domain.IngestResult{Document: testDocument(), Created: true}}
	svc := newTestService(t, Config{Ingest: ingest, IngestRatePerMinute: 1})

	first := do(t, svc, http.MethodPost, "/ingest", `{"url": "https://example.com/a.pdf"}`)
	second := do(t, svc, http.MethodPost, "/ingest", `{"url": "https://example.com/b.pdf"}`)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Len(t, ingest.urls, 1)

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, do(t, svc, http.MethodGet, "/documents", "").Code)
}

func TestListDocuments(t *testing.T) {
	t.Run("lists summaries", func(t *testing.T) {
		svc := newTestService(t, Config{})

		rec := do(t, svc, http.MethodGet, "/documents", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []summaryView{{
			ID:        "0123456789abcdef",
			Title:     "A Paper",
			Summary:   "About a thing.",
			PageCount: 4,
		}}, decode[[]summaryView](t, rec))
	})

	t.Run("empty store is an empty array", func(t *testing.T) {
		svc := newTestService(t, Config{Retrieval: &fakeRetrieval{}})

		rec := do(t, svc, http.MethodGet, "/documents", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}

func TestGetDocument(t *testing.T) {
	svc := newTestService(t, Config{})

	rec := do(t, svc, http.MethodGet, "/documents/0123456789abcdef", "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[documentView](t, rec)
	assert.Equal(t, "https://example.com/paper.pdf", doc.SourceURL)
	assert.Len(t, doc.TableOfContents, 2)

	rec = do(t, svc, http.MethodGet, "/documents/unknown-id", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, rec).Error)
}

func TestGetTableOfContents(t *testing.T) {
	svc := newTestService(t, Config{})

	rec := do(t, svc, http.MethodGet, "/documents/0123456789abcdef/toc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []outlineEntry{
		{Title: "Intro", Page: 1, Depth: 0},
		{Title: "Method", Page: 2, Depth: 1},
	}, decode[[]outlineEntry](t, rec))

	assert.Equal(t, http.StatusNotFound, do(t, svc, http.MethodGet, "/documents/unknown-id/toc", "").Code)
}

func TestGetPages(t *testing.T) {
	content := &domain.PageContent{
		DocumentID: "0123456789abcdef",
		Start:      2,
		End:        3,
		Pages: []domain.RenderedPage{
			{Number: 2, Markdown: "two"},
			{Number: 3, Markdown: "three"},
		},
	}
	svc := newTestService(t, Config{Retrieval: &fakeRetrieval{docs: []*domain.Document{testDocument()}, content: content}})

	rec := do(t, svc, http.MethodGet, "/documents/0123456789abcdef/pages?start=2&end=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[pagesView](t, rec)
	assert.Equal(t, "## Page 2\n\ntwo\n\n## Page 3\n\nthree", body.Markdown)
	assert.Len(t, body.Pages, 2)

	tests := []struct {
		target string
		want   int
	}{
		{target: "/documents/0123456789abcdef/pages?start=5&end=5", want: http.StatusBadRequest},
		{target: "/documents/0123456789abcdef/pages?start=3&end=2", want: http.StatusBadRequest},
		{target: "/documents/0123456789abcdef/pages?start=one&end=2", want: http.StatusBadRequest},
		{target: "/documents/0123456789abcdef/pages?end=2", want: http.StatusBadRequest},
		{target: "/documents/unknown-id/pages?start=1&end=1", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, do(t, svc, http.MethodGet, tt.target, "").Code, tt.target)
	}
}

func TestAuthentication(t *testing.T) {
	svc := newTestService(t, Config{Secret: "s3cret"})
	token := APIToken("s3cret")

	assert.Equal(t, http.StatusOK, do(t, svc, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, svc, http.MethodGet, "/documents", "").Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(t, svc, http.MethodGet, "/documents", "", "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusUnauthorized,
		do(t, svc, http.MethodGet, "/documents", "", "Authorization", "Basic "+token).Code)
	assert.Equal(t, http.StatusOK,
		do(t, svc, http.MethodGet, "/documents", "", "Authorization", "Bearer "+token).Code)
}

func TestAPIToken(t *testing.T) {
	token := APIToken("s3cret")
	assert.Len(t, token, 64)
	assert.Equal(t, token, APIToken("s3cret"))
	assert.NotEqual(t, token, APIToken("other"))
}

func TestRequestID(t *testing.T) {
	svc := newTestService(t, Config{})

	rec := do(t, svc, http.MethodGet, "/healthz", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	rec = do(t, svc, http.MethodGet, "/healthz", "", "X-Request-ID", "given-id")
	assert.Equal(t, "given-id", rec.Header().Get("X-Request-ID"))
}

func TestUnknownRoute(t *testing.T) {
	svc := newTestService(t, Config{})
	rec := do(t, svc, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	svc := newTestService(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
