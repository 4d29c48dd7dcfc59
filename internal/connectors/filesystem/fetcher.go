// Package filesystem reads PDF documents from local paths and file:// URIs.
package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
)

// DefaultMaxBytes caps the size of a file that may be read.
const DefaultMaxBytes = 100 << 20

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Fetcher reads local PDF files.
type Fetcher struct {
	maxBytes int64
}

// New creates a local file fetcher. Non-positive maxBytes uses DefaultMaxBytes.
func New(maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{maxBytes: maxBytes}
}

// Fetch reads the file named by uri.
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDownload, err)
	}

	path := ResolvePath(uri)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDownload, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDownload, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrDownload, path)
	}
	if info.Size() > f.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", domain.ErrDownload, path, info.Size(), f.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(file, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", domain.ErrDownload, path, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrDownload, path, f.maxBytes)
	}
	if !domain.LooksLikePDF(data) {
		return nil, fmt.Errorf("%w: %s has no PDF header", domain.ErrDownload, path)
	}
	return data, nil
}
