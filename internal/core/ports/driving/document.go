package driving

import (
	"context"

	"github.com/custodia-labs/pdfz/internal/core/domain"
)

// RetrievalService is the read-only facade over stored documents.
type RetrievalService interface {
	// ListDocuments returns summaries of all documents in insertion order.
	ListDocuments(ctx context.Context) ([]domain.DocumentSummary, error)

	// GetDocument retrieves the full document record.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetTableOfContents returns the flattened outline of a document.
	GetTableOfContents(ctx context.Context, id string) ([]domain.OutlineEntry, error)

	// ExtractPageRange renders pages start..end inclusive from the retained bytes.
	// Returns domain.ErrRange when the range is outside the document.
	ExtractPageRange(ctx context.Context, id string, start, end int) (*domain.PageContent, error)
}
