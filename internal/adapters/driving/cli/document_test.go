package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/pdfz/internal/core/domain"
)

func TestDocumentList(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute([]string{"document", "list"}, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "a1b2c3d4e5f60718  Attention Is All You Need (15 pages)")
	assert.Contains(t, out, "Introduces the Transformer.")
	assert.Contains(t, out, "0f1e2d3c4b5a6978  Plain Report (2 pages)")
	assert.Contains(t, out, "Total: 2 documents")
}

func TestDocumentList_Empty(t *testing.T) {
	svc, cleanup := setupTestServices()
	defer cleanup()
	svc.retrieval.docs = map[string]*domain.Document{}

	out, err := execute([]string{"document", "list"}, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "No documents stored")
}

func TestDocumentList_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute([]string{"document", "list", "--format", "json"}, nil)
	require.NoError(t, err)

	var got []summaryOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, summaryOutput{
		ID:        "a1b2c3d4e5f60718",
		Title:     "Attention Is All You Need",
		Summary:   "Introduces the Transformer.",
		PageCount: 15,
	}, got[0])
}

func TestDocumentList_UnknownFormat(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute([]string{"document", "list", "-o", "xml"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output format "xml"`)
}

func TestDocumentGet(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute([]string{"document", "get", "a1b2c3d4e5f60718"}, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "Title:       Attention Is All You Need")
	assert.Contains(t, out, "Authors:     Ashish Vaswani, Noam Shazeer")
	assert.Contains(t, out, "Published:   2017-06-12")
	assert.Contains(t, out, "Pages:       15")
	assert.Contains(t, out, "TOC entries: 3")
}

func TestDocumentGet_YAML(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute([]string{"document", "get", "0f1e2d3c4b5a6978", "--format", "yaml"}, nil)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Plain Report", got["title"])
	assert.Equal(t, 2, got["page_count"])
	assert.Equal(t, []any{}, got["authors"])
	assert.NotContains(t, got, "publication_date")
}

func TestDocumentGet_NotFound(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute([]string{"document", "get", "ffffffffffffffff"}, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentTOC(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute([]string{"document", "toc", "a1b2c3d4e5f60718"}, nil)
	require.NoError(t, err)

	assert.Contains(t, out, "Introduction ... 1\n")
	assert.Contains(t, out, "\n  Attention ... 3\n")
}

func TestDocumentTOC_Empty(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute([]string{"document", "toc", "0f1e2d3c4b5a6978"}, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "no table of contents")

	out, err = execute([]string{"document", "toc", "0f1e2d3c4b5a6978", "--format", "json"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestDocumentPages(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	t.Run("range", func(t *testing.T) {
		out, err := execute([]string{"document", "pages", "a1b2c3d4e5f60718", "3", "4"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "## Page 3\n\ntext of page 3\n\n## Page 4\n\ntext of page 4\n", out)
	})

	t.Run("single page", func(t *testing.T) {
		out, err := execute([]string{"document", "pages", "a1b2c3d4e5f60718", "7"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "## Page 7\n\ntext of page 7\n", out)
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute([]string{"document", "pages", "a1b2c3d4e5f60718", "1", "2", "-o", "json"}, nil)
		require.NoError(t, err)

		var got pagesOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, 1, got.PageStart)
		assert.Equal(t, 2, got.PageEnd)
		assert.Contains(t, got.Markdown, "## Page 2")
	})
}

func TestDocumentPages_Errors(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	tests := []struct {
		name    string
		args    []string
		wantErr error
		wantMsg string
	}{
		{name: "past the last page", args: []string{"a1b2c3d4e5f60718", "14", "16"}, wantErr: domain.ErrRange},
		{name: "reversed", args: []string{"a1b2c3d4e5f60718", "5", "4"}, wantErr: domain.ErrRange},
		{name: "unknown document", args: []string{"ffffffffffffffff", "1", "1"}, wantErr: domain.ErrNotFound},
		{name: "not a number", args: []string{"a1b2c3d4e5f60718", "one"}, wantMsg: `invalid page number "one"`},
		{name: "missing start", args: []string{"a1b2c3d4e5f60718"}, wantMsg: "accepts between 2 and 3 arg(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(append([]string{"document", "pages"}, tt.args...), nil)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}
