package driving

import (
	"context"

	"github.com/custodia-labs/pdfz/internal/core/domain"
)

// IngestService turns a PDF URL into a stored document.
type IngestService interface {
	// Ingest downloads, deduplicates, extracts metadata and stores the PDF.
	//
	// Content already stored before the call yields a *domain.DuplicateError.
	// When a concurrent ingest stores the same content first, the existing
	// document is returned with Created set to false.
	Ingest(ctx context.Context, url string) (*domain.IngestResult, error)
}
