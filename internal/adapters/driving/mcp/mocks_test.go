package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/pdfz/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	summaries []domain.DocumentSummary
	documents map[string]*domain.Document
	content   *domain.PageContent
	err       error

	gotStart, gotEnd int
}

func (m *mockRetrievalService) ListDocuments(_ context.Context) ([]domain.DocumentSummary, error) {
	return m.summaries, m.err
}

func (m *mockRetrievalService) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *mockRetrievalService) GetTableOfContents(ctx context.Context, id string) ([]domain.OutlineEntry, error) {
	doc, err := m.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.TableOfContents, nil
}

func (m *mockRetrievalService) ExtractPageRange(
	ctx context.Context,
	id string,
	start, end int,
) (*domain.PageContent, error) {
	m.gotStart, m.gotEnd = start, end
	doc, err := m.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := doc.CheckRange(start, end); err != nil {
		return nil, err
	}
	return m.content, nil
}

func sampleDocument() *domain.Document {
	published := time.Date(2017, 6, 12, 0, 0, 0, 0, time.UTC)
	return &domain.Document{
		ID:              "a1b2c3d4e5f60718",
		Title:           "Attention Is All You Need",
		Authors:         []string{"Ashish Vaswani"},
		PublicationDate: &published,
		PageCount:       15,
		SourceURL:       "https://arxiv.org/pdf/1706.03762",
		Summary:         "Introduces the Transformer.",
		TableOfContents: []domain.OutlineEntry{
			{Title: "Introduction", Page: 2, Depth: 0},
			{Title: "Model Architecture", Page: 3, Depth: 0},
			{Title: "Attention", Page: 3, Depth: 1},
		},
		IngestedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func newMockRetrieval() *mockRetrievalService {
	doc := sampleDocument()
	return &mockRetrievalService{
		summaries: []domain.DocumentSummary{doc.Summarise()},
		documents: map[string]*domain.Document{doc.ID: doc},
		content: &domain.PageContent{
			DocumentID: doc.ID,
			Start:      3,
			End:        4,
			Pages: []domain.RenderedPage{
				{Number: 3, Markdown: "Model Architecture"},
				{Number: 4, Markdown: "Scaled dot-product attention"},
			},
		},
	}
}
