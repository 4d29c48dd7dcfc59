package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDocument() *Document {
	hash := ContentHash([]byte("%PDF-1.4 sample"))
	return &Document{
		ID:          DocumentID(hash),
		ContentHash: hash,
		SourceURL:   "https://example.com/paper.pdf",
		Title:       "A Paper",
		Authors:     []string{"Ada Lovelace"},
		PageCount:   5,
		TableOfContents: []OutlineEntry{
			{Title: "Introduction", Page: 1, Depth: 0},
			{Title: "Background", Page: 2, Depth: 1},
		},
		Summary:    "A paper about things.",
		IngestedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// TestDocument_Validate tests document invariants
func TestDocument_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *Document)
		wantErr bool
	}{
		{"valid document", func(d *Document) {}, false},
		{"no toc is valid", func(d *Document) { d.TableOfContents = nil }, false},
		{"bad hash", func(d *Document) { d.ContentHash = "xyz" }, true},
		{"id mismatch", func(d *Document) { d.ID = "0000000000000000" }, true},
		{"missing url", func(d *Document) { d.SourceURL = " " }, true},
		{"zero pages", func(d *Document) { d.PageCount = 0 }, true},
		{"missing ingested_at", func(d *Document) { d.IngestedAt = time.Time{} }, true},
		{"toc page past end", func(d *Document) { d.TableOfContents[1].Page = 6 }, true},
		{"toc page zero", func(d *Document) { d.TableOfContents[0].Page = 0 }, true},
		{"toc negative depth", func(d *Document) { d.TableOfContents[0].Depth = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			tt.mutate(doc)
			err := doc.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInput))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestDocument_CheckRange tests page range bounds
func TestDocument_CheckRange(t *testing.T) {
	doc := validDocument()

	tests := []struct {
		name       string
		start, end int
		wantErr    bool
	}{
		{"single page", 1, 1, false},
		{"whole document", 1, 5, false},
		{"last page", 5, 5, false},
		{"start zero", 0, 2, true},
		{"end before start", 3, 2, true},
		{"start past end", 6, 6, true},
		{"end past end", 4, 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := doc.CheckRange(tt.start, tt.end)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrRange))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestDocument_Summarise tests the listing view
func TestDocument_Summarise(t *testing.T) {
	doc := validDocument()

	s := doc.Summarise()
	assert.Equal(t, doc.ID, s.ID)
	assert.Equal(t, "A Paper", s.Title)
	assert.Equal(t, "A paper about things.", s.Summary)
	assert.Equal(t, 5, s.PageCount)
	assert.True(t, doc.HasTableOfContents())
}

// TestPageContent_Markdown tests page joining
func TestPageContent_Markdown(t *testing.T) {
	pc := &PageContent{
		DocumentID: "abc",
		Start:      2,
		End:        3,
		Pages: []RenderedPage{
			{Number: 2, Markdown: "  second page\n"},
			{Number: 3, Markdown: "third page"},
		},
	}

	assert.Equal(t, "## Page 2\n\nsecond page\n\n## Page 3\n\nthird page", pc.Markdown())
	assert.Empty(t, RenderMarkdown(nil))
}
