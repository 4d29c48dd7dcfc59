// Package pdf reads page text out of PDF documents.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
	"github.com/custodia-labs/pdfz/internal/logger"
)

// Ensure Renderer implements the interface.
var _ driven.PageRenderer = (*Renderer)(nil)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Renderer extracts page text with the pure Go ledongthuc/pdf reader.
// It holds no state, so one value may be shared between goroutines.
type Renderer struct{}

// New creates a PDF renderer.
func New() *Renderer {
	return &Renderer{}
}

// PageCount returns the number of pages in data.
func (r *Renderer) PageCount(data []byte) (int, error) {
	reader, err := open(data)
	if err != nil {
		return 0, err
	}
	return pageCount(reader)
}

// Render returns the text of pages start..end inclusive.
// A page whose text cannot be decoded renders as empty rather than failing the range.
func (r *Renderer) Render(ctx context.Context, data []byte, start, end int) ([]domain.RenderedPage, error) {
	reader, err := open(data)
	if err != nil {
		return nil, err
	}
	count, err := pageCount(reader)
	if err != nil {
		return nil, err
	}
	if start < 1 || end < start || end > count {
		return nil, fmt.Errorf("%w: pages %d-%d of %d", domain.ErrRange, start, end, count)
	}

	pages := make([]domain.RenderedPage, 0, end-start+1)
	for n := start; n <= end; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := pageText(reader, n)
		if err != nil {
			logger.Warn("pdf: page %d text unreadable: %v", n, err)
		}
		pages = append(pages, domain.RenderedPage{Number: n, Markdown: text})
	}
	return pages, nil
}

// open parses data. The reader panics on some malformed inputs, so panics
// are reported as invalid documents.
func open(data []byte) (reader *pdf.Reader, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", domain.ErrInvalidDocument)
	}
	defer func() {
		if p := recover(); p != nil {
			reader = nil
			err = fmt.Errorf("%w: %v", domain.ErrInvalidDocument, p)
		}
	}()

	reader, err = pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidDocument, err)
	}
	return reader, nil
}

func pageCount(reader *pdf.Reader) (count int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: page tree: %v", domain.ErrInvalidDocument, p)
		}
	}()

	count = reader.NumPage()
	if count < 1 {
		return 0, fmt.Errorf("%w: no pages", domain.ErrInvalidDocument)
	}
	return count, nil
}

func pageText(reader *pdf.Reader, n int) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			text = ""
			err = fmt.Errorf("%v", p)
		}
	}()

	page := reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	raw, err := page.GetPlainText(nil)
	if err != nil {
		return "", err
	}
	return cleanText(raw), nil
}

// cleanText normalises line endings, strips trailing spaces and collapses
// runs of blank lines.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\x00", "")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
