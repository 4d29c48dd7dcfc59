package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/custodia-labs/pdfz/internal/core/domain"
)

// --- Fakes shared by the command tests ---

type fakeRetrieval struct {
	docs map[string]*domain.Document
}

func (f *fakeRetrieval) ListDocuments(_ context.Context) ([]domain.DocumentSummary, error) {
	out := []domain.DocumentSummary{}
	for _, id := range []string{"a1b2c3d4e5f60718", "0f1e2d3c4b5a6978"} {
		if doc, ok := f.docs[id]; ok {
			out = append(out, doc.Summarise())
		}
	}
	return out, nil
}

func (f *fakeRetrieval) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return doc, nil
}

func (f *fakeRetrieval) GetTableOfContents(ctx context.Context, id string) ([]domain.OutlineEntry, error) {
	doc, err := f.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.TableOfContents == nil {
		return []domain.OutlineEntry{}, nil
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
	content := &domain.PageContent{DocumentID: id, Start: start, End: end}
	for n := start; n <= end; n++ {
		content.Pages = append(content.Pages, domain.RenderedPage{Number: n, Markdown: fmt.Sprintf("text of page %d", n)})
	}
	return content, nil
}

type fakeIngest struct {
	result *domain.IngestResult
	err    error
	urls   []string

	// byURL, when set, decides the outcome per URL.
	byURL func(url string) (*domain.IngestResult, error)
}

func (f *fakeIngest) Ingest(_ context.Context, url string) (*domain.IngestResult, error) {
	f.urls = append(f.urls, url)
	if f.byURL != nil {
		return f.byURL(url)
	}
	return f.result, f.err
}

type fakeSettings struct {
	settings    domain.AppSettings
	validateErr error
	llmErr      error

	provider domain.AIProvider
	model    string
	apiKey   string
	backend  domain.StoreBackend
}

func (f *fakeSettings) Get() (*domain.AppSettings, error) {
	s := f.settings
	return &s, nil
}

func (f *fakeSettings) Save(settings *domain.AppSettings) error {
	f.settings = *settings
	return nil
}

func (f *fakeSettings) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	f.provider, f.model, f.apiKey = provider, model, apiKey
	f.settings.LLM.Provider, f.settings.LLM.Model, f.settings.LLM.APIKey = provider, model, apiKey
	return nil
}

func (f *fakeSettings) SetStoreBackend(backend domain.StoreBackend) error {
	f.backend = backend
	f.settings.Store.Backend = backend
	return nil
}

func (f *fakeSettings) Validate() error { return f.validateErr }
func (f *fakeSettings) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }
func (f *fakeSettings) ValidateLLMConfig() error { return f.llmErr }

type testServices struct {
	retrieval *fakeRetrieval
	ingest    *fakeIngest
	settings  *fakeSettings
}

func sampleDocument() *domain.Document {
	published := time.Date(2017, 6, 12, 0, 0, 0, 0, time.UTC)
	return &domain.Document{
		ID:              "a1b2c3d4e5f60718",
		ContentHash:     "a1b2c3d4e5f60718" + strings.Repeat("0", 48),
		SourceURL:       "https://example.com/attention.pdf",
		Title:           "Attention Is All You Need",
		Authors:         []string{"Ashish Vaswani", "Noam Shazeer"},
		PublicationDate: &published,
		PageCount:       15,
		TableOfContents: []domain.OutlineEntry{
			{Title: "Introduction", Page: 1, Depth: 0},
			{Title: "Background", Page: 2, Depth: 0},
			{Title: "Attention", Page: 3, Depth: 1},
		},
		Summary:    "Introduces the Transformer.",
		Model:      "fake-model",
		IngestedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// setupTestServices installs fakes for every service and returns a cleanup
// function restoring the package state.
func setupTestServices() (*testServices, func()) {
	plain := &domain.Document{
		ID:        "0f1e2d3c4b5a6978",
		Title:     "Plain Report",
		PageCount: 2,
	}
	svc := &testServices{
		retrieval: &fakeRetrieval{docs: map[string]*domain.Document{
			"a1b2c3d4e5f60718": sampleDocument(),
			plain.ID:           plain,
		}},
		ingest:   &fakeIngest{},
		settings: &fakeSettings{settings: domain.DefaultAppSettings()},
	}

	origRetrieval, origIngest, origSettings := retrievalService, ingestService, settingsService
	retrievalService = svc.retrieval
	ingestService = svc.ingest
	settingsService = svc.settings

	return svc, func() {
		retrievalService, ingestService, settingsService = origRetrieval, origIngest, origSettings
		outputFormat = formatText
		versionShort = false
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}
}

// execute runs the root command with args and returns everything printed.
func execute(args []string, stdin io.Reader) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	if stdin != nil {
		rootCmd.SetIn(stdin)
	}
	err := rootCmd.Execute()
	return buf.String(), err
}
