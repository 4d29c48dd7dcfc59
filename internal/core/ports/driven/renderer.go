package driven

import (
	"context"

	"github.com/custodia-labs/pdfz/internal/core/domain"
)

// PageRenderer reads pages out of PDF bytes.
// Rendering is a pure function of the bytes and the requested range.
type PageRenderer interface {
	// PageCount returns the number of pages.
	// Returns domain.ErrInvalidDocument when data is not a readable PDF.
	PageCount(data []byte) (int, error)

	// Render returns pages start..end inclusive, 1-based, as markdown text.
	Render(ctx context.Context, data []byte, start, end int) ([]domain.RenderedPage, error)
}
