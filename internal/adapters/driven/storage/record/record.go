// Package record defines the JSON persistence form of documents shared by
// the file-based store backends.
package record

import (
	"time"

	"github.com/custodia-labs/pdfz/internal/core/domain"
)

// dateLayout is the on-disk form of publication dates.
const dateLayout = "2006-01-02"

// Document is the serialised form of domain.Document.
type Document struct {
	ID              string         `json:"id"`
	ContentHash     string         `json:"content_hash"`
	SourceURL       string         `json:"source_url"`
	Title           string         `json:"title"`
	Authors         []string       `json:"authors"`
	PublicationDate string         `json:"publication_date,omitempty"`
	PageCount       int            `json:"page_count"`
	TableOfContents []OutlineEntry `json:"table_of_contents"`
	Summary         string         `json:"summary"`
	Model           string         `json:"model,omitempty"`
	IngestedAt      time.Time      `json:"ingested_at"`
	StoragePath     string         `json:"storage_path"`
}

// OutlineEntry is the serialised form of domain.OutlineEntry.
type OutlineEntry struct {
	Title string `json:"title"`
	Page  int    `json:"page"`
	Depth int    `json:"depth"`
}

// FromDomain converts a domain document for storage.
func FromDomain(doc *domain.Document) Document {
	r := Document{
		ID:              doc.ID,
		ContentHash:     doc.ContentHash,
		SourceURL:       doc.SourceURL,
		Title:           doc.Title,
		Authors:         append([]string{}, doc.Authors...),
		PageCount:       doc.PageCount,
		TableOfContents: FromOutline(doc.TableOfContents),
		Summary:         doc.Summary,
		Model:           doc.Model,
		IngestedAt:      doc.IngestedAt.UTC(),
		StoragePath:     doc.StoragePath,
	}
	if doc.PublicationDate != nil {
		r.PublicationDate = doc.PublicationDate.Format(dateLayout)
	}
	return r
}

// ToDomain converts a stored record back into a domain document.
func (r Document) ToDomain() *domain.Document {
	doc := &domain.Document{
		ID:              r.ID,
		ContentHash:     r.ContentHash,
		SourceURL:       r.SourceURL,
		Title:           r.Title,
		Authors:         append([]string{}, r.Authors...),
		PageCount:       r.PageCount,
		TableOfContents: ToOutline(r.TableOfContents),
		Summary:         r.Summary,
		Model:           r.Model,
		IngestedAt:      r.IngestedAt.UTC(),
		StoragePath:     r.StoragePath,
	}
	if r.PublicationDate != "" {
		if t, err := time.Parse(dateLayout, r.PublicationDate); err == nil {
			doc.PublicationDate = &t
		}
	}
	return doc
}

// FromOutline converts outline entries for storage.
func FromOutline(entries []domain.OutlineEntry) []OutlineEntry {
	out := make([]OutlineEntry, len(entries))
	for i, e := range entries {
		out[i] = OutlineEntry{Title: e.Title, Page: e.Page, Depth: e.Depth}
	}
	return out
}

// ToOutline converts stored outline entries back to domain form.
func ToOutline(entries []OutlineEntry) []domain.OutlineEntry {
	out := make([]domain.OutlineEntry, len(entries))
	for i, e := range entries {
		out[i] = domain.OutlineEntry{Title: e.Title, Page: e.Page, Depth: e.Depth}
	}
	return out
}
