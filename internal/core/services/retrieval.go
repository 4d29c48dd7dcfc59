package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
	"github.com/custodia-labs/pdfz/internal/core/ports/driving"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService serves stored metadata and renders page ranges on demand.
// It never writes.
type RetrievalService struct {
	docs     driven.DocumentStore
	blobs    driven.BlobStore
	renderer driven.PageRenderer
	maxPages int
}

// NewRetrievalService creates a new retrieval service.
// maxPages caps the span of a single extraction; zero or less uses the default.
func NewRetrievalService(
	docs driven.DocumentStore,
	blobs driven.BlobStore,
	renderer driven.PageRenderer,
	maxPages int,
) *RetrievalService {
	if maxPages <= 0 {
		maxPages = domain.DefaultAppSettings().Retrieval.MaxPages
	}
	return &RetrievalService{
		docs:     docs,
		blobs:    blobs,
		renderer: renderer,
		maxPages: maxPages,
	}
}

// MaxPages returns the largest span ExtractPageRange accepts.
func (s *RetrievalService) MaxPages() int {
	return s.maxPages
}

// ListDocuments returns summaries of all documents in insertion order.
func (s *RetrievalService) ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	summaries := make([]domain.DocumentSummary, 0, len(docs))
	for i := range docs {
		summaries = append(summaries, docs[i].Summarise())
	}
	return summaries, nil
}

// GetDocument retrieves the full document record.
func (s *RetrievalService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	return s.docs.Get(ctx, id)
}

// GetTableOfContents returns the flattened outline of a document.
// Documents without an outline return an empty slice.
func (s *RetrievalService) GetTableOfContents(ctx context.Context, id string) ([]domain.OutlineEntry, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.TableOfContents == nil {
		return []domain.OutlineEntry{}, nil
	}
	return doc.TableOfContents, nil
}

// ExtractPageRange renders pages start..end inclusive from the retained bytes.
func (s *RetrievalService) ExtractPageRange(
	ctx context.Context,
	id string,
	start, end int,
) (*domain.PageContent, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := doc.CheckRange(start, end); err != nil {
		return nil, err
	}
	if span := end - start + 1; span > s.maxPages {
		return nil, fmt.Errorf("%w: %d pages requested, at most %d per call",
			domain.ErrRange, span, s.maxPages)
	}

	data, err := s.blobs.Get(ctx, doc.ContentHash)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: no retained pdf for document %s", domain.ErrMissingContent, doc.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("read retained pdf %s: %w", doc.ID, err)
	}

	pages, err := s.renderer.Render(ctx, data, start, end)
	if err != nil {
		return nil, fmt.Errorf("render pages %d-%d of %s: %w", start, end, doc.ID, err)
	}

	return &domain.PageContent{
		DocumentID: doc.ID,
		Start:      start,
		End:        end,
		Pages:      pages,
	}, nil
}
