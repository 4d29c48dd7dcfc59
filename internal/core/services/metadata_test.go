package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
)

const validReply = `{
  "title": "  Attention   Is All You Need ",
  "authors": ["Ashish Vaswani", " Noam Shazeer ", "ashish vaswani", ""],
  "publication_date": "2017-06",
  "table_of_contents": [
    {"title": "Introduction", "page": 1, "depth": 0},
    {"title": "Background", "page": 2, "depth": 1},
    {"title": "Appendix", "page": 40, "depth": 0},
    {"title": "", "page": 3, "depth": 0}
  ],
  "summary": "  The Transformer paper.  "
}`

func renderedPages(n int) []domain.RenderedPage {
	pages := make([]domain.RenderedPage, n)
	for i := range pages {
		pages[i] = domain.RenderedPage{Number: i + 1, Markdown: "body"}
	}
	return pages
}

func TestMetadataExtractor_Extract(t *testing.T) {
	llm := &fakeLLM{reply: validReply}
	extractor := NewMetadataExtractor(llm, nil)

	meta, err := extractor.Extract(context.Background(), renderedPages(3), 12)
	require.NoError(t, err)

	assert.Equal(t, "Attention Is All You Need", meta.Title)
	assert.Equal(t, []string{"Ashish Vaswani", "Noam Shazeer"}, meta.Authors)
	require.NotNil(t, meta.PublicationDate)
	assert.Equal(t, time.Date(2017, 6, 1, 0, 0, 0, 0, time.UTC), *meta.PublicationDate)
	assert.Equal(t, []domain.OutlineEntry{
		{Title: "Introduction", Page: 1, Depth: 0},
		{Title: "Background", Page: 2, Depth: 1},
	}, meta.TableOfContents)
	assert.Equal(t, "The Transformer paper.", meta.Summary)

	require.Len(t, llm.seen, 1)
	messages := llm.seen[0]
	require.Len(t, messages, 2)
	assert.Equal(t, driven.RoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "first 3 pages")
	assert.Contains(t, messages[0].Content, "12 pages in total")
	assert.Equal(t, driven.RoleUser, messages[1].Role)
	assert.Contains(t, messages[1].Content, "## Page 3")
	assert.True(t, llm.opts[0].JSON)
}

func TestMetadataExtractor_UsesPromptStore(t *testing.T) {
	llm := &fakeLLM{reply: validReply}

	t.Run("custom prompt", func(t *testing.T) {
		extractor := NewMetadataExtractor(llm, &fakePrompts{prompt: "Read %d of %d pages."})
		_, err := extractor.Extract(context.Background(), renderedPages(2), 5)
		require.NoError(t, err)
		assert.Equal(t, "Read 2 of 5 pages.", llm.seen[len(llm.seen)-1][0].Content)
	})

	t.Run("broken template falls back", func(t *testing.T) {
		extractor := NewMetadataExtractor(llm, &fakePrompts{prompt: "no placeholders"})
		_, err := extractor.Extract(context.Background(), renderedPages(2), 5)
		require.NoError(t, err)
		assert.Contains(t, llm.seen[len(llm.seen)-1][0].Content, "first 2 pages")
	})

	t.Run("load error falls back", func(t *testing.T) {
		extractor := NewMetadataExtractor(llm, &fakePrompts{err: errors.New("gone")})
		_, err := extractor.Extract(context.Background(), renderedPages(1), 1)
		require.NoError(t, err)
		assert.Contains(t, llm.seen[len(llm.seen)-1][0].Content, "first 1 pages")
	})
}

func TestMetadataExtractor_Errors(t *testing.T) {
	tests := []struct {
		name    string
		llm     *fakeLLM
		wantErr error
	}{
		{
			name:    "call fails",
			llm:     &fakeLLM{err: errors.New("connection reset")},
			wantErr: domain.ErrUpstream,
		},
		{
			name:    "not json",
			llm:     &fakeLLM{reply: "I could not read this document."},
			wantErr: domain.ErrExtraction,
		},
		{
			name:    "missing title",
			llm:     &fakeLLM{reply: `{"authors": ["A"], "summary": "s"}`},
			wantErr: domain.ErrExtraction,
		},
		{
			name:    "wrong field type",
			llm:     &fakeLLM{reply: `{"title": "T", "table_of_contents": "none"}`},
			wantErr: domain.ErrExtraction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := NewMetadataExtractor(tt.llm, nil)
			_, err := extractor.Extract(context.Background(), renderedPages(1), 1)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMetadataExtractor_BlankPages(t *testing.T) {
	llm := &fakeLLM{reply: validReply}
	pages := []domain.RenderedPage{
		{Number: 1, Markdown: ""},
		{Number: 2, Markdown: " \n\t "},
	}

	_, err := NewMetadataExtractor(llm, nil).Extract(context.Background(), pages, 2)
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
	assert.Zero(t, llm.callCount())

	pages[1].Markdown = "Abstract"
	_, err = NewMetadataExtractor(llm, nil).Extract(context.Background(), pages, 2)
	assert.NoError(t, err)
}

func TestMetadataExtractor_NoLLM(t *testing.T) {
	_, err := NewMetadataExtractor(nil, nil).Extract(context.Background(), renderedPages(1), 1)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestParseMetadata_UnknownDate(t *testing.T) {
	for _, reply := range []string{
		`{"title": "T", "publication_date": null}`,
		`{"title": "T", "publication_date": "sometime last spring"}`,
		`{"title": "T"}`,
	} {
		meta, err := parseMetadata(reply, 1)
		require.NoError(t, err)
		assert.Nil(t, meta.PublicationDate, reply)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: `{"title": "T"}`, want: `{"title": "T"}`},
		{in: "```json\n{\"title\": \"T\"}\n```", want: `{"title": "T"}`},
		{in: "```\n{\"title\": \"T\"}\n```\n", want: `{"title": "T"}`},
		{in: "Here you go:\n{\"title\": \"T\"}\nHope it helps.", want: `{"title": "T"}`},
		{in: "no json", want: "no json"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFence(tt.in))
	}
}
