package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/normalisers/pdf/pdftest"
)

func TestPageCount(t *testing.T) {
	r := New()

	count, err := r.PageCount(pdftest.Build(pdftest.Pages(3)...))
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPageCount_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("<html><body>hello</body></html>")},
		{"truncated", pdftest.Build("hello")[:40]},
		{"header only", []byte("%PDF-1.4\n%%EOF\n")},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.PageCount(tt.data)
			assert.ErrorIs(t, err, domain.ErrInvalidDocument)
		})
	}
}

func TestRender(t *testing.T) {
	r := New()
	data := pdftest.Build("Introduction\nFirst line", "Methods", "Results (final)")

	pages, err := r.Render(context.Background(), data, 2, 3)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	assert.Equal(t, 2, pages[0].Number)
	assert.Contains(t, pages[0].Markdown, "Methods")
	assert.Equal(t, 3, pages[1].Number)
	assert.Contains(t, pages[1].Markdown, "Results (final)")
	assert.NotContains(t, pages[1].Markdown, "Introduction")
}

func TestRender_Deterministic(t *testing.T) {
	r := New()
	data := pdftest.Build(pdftest.Pages(4)...)
	ctx := context.Background()

	first, err := r.Render(ctx, data, 1, 3)
	require.NoError(t, err)
	overlap, err := r.Render(ctx, data, 2, 4)
	require.NoError(t, err)

	assert.Equal(t, first[1:], overlap[:2])
}

func TestRender_Range(t *testing.T) {
	r := New()
	data := pdftest.Build(pdftest.Pages(3)...)

	tests := []struct {
		name       string
		start, end int
	}{
		{"start below one", 0, 2},
		{"end before start", 3, 2},
		{"end past last page", 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Render(context.Background(), data, tt.start, tt.end)
			assert.ErrorIs(t, err, domain.ErrRange)
		})
	}
}

func TestRender_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Render(ctx, pdftest.Build("a", "b"), 1, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRender_InvalidDocument(t *testing.T) {
	_, err := New().Render(context.Background(), []byte("garbage"), 1, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidDocument)
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"crlf", "a\r\nb", "a\nb"},
		{"trailing spaces", "a   \nb\t", "a\nb"},
		{"blank runs", "a\n\n\n\n\nb", "a\n\nb"},
		{"nul bytes", "a\x00b", "ab"},
		{"surrounding space", "\n\n  a  \n\n", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanText(tt.in))
		})
	}
}
