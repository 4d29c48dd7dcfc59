package domain

import (
	"fmt"
	"strings"
	"time"
)

// Document represents an ingested PDF with its extracted metadata.
// It is created once at the end of a successful ingest and never mutated.
type Document struct {
	// ID is derived from ContentHash, see DocumentID.
	ID string

	// ContentHash is the lowercase hex SHA-256 of the raw PDF bytes.
	ContentHash string

	// SourceURL is where the PDF was downloaded from.
	SourceURL string

	// Title is the human-readable title.
	Title string

	// Authors lists the document authors in reading order.
	Authors []string

	// PublicationDate is the publication date, nil when unknown.
	PublicationDate *time.Time

	// PageCount is the number of pages in the PDF.
	PageCount int

	// TableOfContents is the flattened outline, depth-marked.
	TableOfContents []OutlineEntry

	// Summary is the contextual description produced at ingest.
	Summary string

	// Model names the LLM that produced the metadata.
	Model string

	// IngestedAt is when the record was created.
	IngestedAt time.Time

	// StoragePath locates the retained original bytes in the blob store.
	StoragePath string
}

// OutlineEntry is one flattened table-of-contents entry.
type OutlineEntry struct {
	// Title is the section heading.
	Title string

	// Page is the 1-based page the section starts on.
	Page int

	// Depth is the nesting level, 0 for top-level sections.
	Depth int
}

// DocumentSummary is the listing view of a Document.
type DocumentSummary struct {
	ID        string
	Title     string
	Summary   string
	PageCount int
}

// IngestResult is the outcome of a successful ingest.
type IngestResult struct {
	// Document is the stored document.
	Document *Document

	// Created is false when a concurrent ingest of the same bytes stored
	// the document first.
	Created bool
}

// Summarise returns the listing view of the document.
func (d *Document) Summarise() DocumentSummary {
	return DocumentSummary{
		ID:        d.ID,
		Title:     d.Title,
		Summary:   d.Summary,
		PageCount: d.PageCount,
	}
}

// HasTableOfContents reports whether an outline was extracted.
func (d *Document) HasTableOfContents() bool {
	return len(d.TableOfContents) > 0
}

// CheckRange validates an inclusive 1-based page range against the document.
func (d *Document) CheckRange(start, end int) error {
	if start < 1 || end < start || end > d.PageCount {
		return fmt.Errorf("%w: pages %d-%d requested, document has %d",
			ErrRange, start, end, d.PageCount)
	}
	return nil
}

// Validate checks the invariants every stored document must hold.
func (d *Document) Validate() error {
	switch {
	case !IsContentHash(d.ContentHash):
		return fmt.Errorf("%w: malformed content hash %q", ErrInvalidInput, d.ContentHash)
	case d.ID != DocumentID(d.ContentHash):
		return fmt.Errorf("%w: id %q does not match content hash", ErrInvalidInput, d.ID)
	case strings.TrimSpace(d.SourceURL) == "":
		return fmt.Errorf("%w: source url is required", ErrInvalidInput)
	case d.PageCount < 1:
		return fmt.Errorf("%w: page count must be at least 1, got %d", ErrInvalidInput, d.PageCount)
	case d.IngestedAt.IsZero():
		return fmt.Errorf("%w: ingested_at is not set", ErrInvalidInput)
	}
	for i, e := range d.TableOfContents {
		if e.Page < 1 || e.Page > d.PageCount {
			return fmt.Errorf("%w: toc entry %d points at page %d of %d",
				ErrInvalidInput, i, e.Page, d.PageCount)
		}
		if e.Depth < 0 {
			return fmt.Errorf("%w: toc entry %d has negative depth", ErrInvalidInput, i)
		}
	}
	return nil
}

// RenderedPage is the text of a single page in markdown form.
type RenderedPage struct {
	// Number is the 1-based page number.
	Number int

	// Markdown is the extracted page text.
	Markdown string
}

// PageContent is an inclusive page range read back from a document.
type PageContent struct {
	DocumentID string
	Start      int
	End        int
	Pages      []RenderedPage
}

// Markdown joins the pages under per-page headings.
func (p *PageContent) Markdown() string {
	return RenderMarkdown(p.Pages)
}

// RenderMarkdown joins pages under "## Page N" headings.
func RenderMarkdown(pages []RenderedPage) string {
	var b strings.Builder
	for i, page := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "## Page %d\n\n", page.Number)
		b.WriteString(strings.TrimSpace(page.Markdown))
	}
	return b.String()
}
