// Package web downloads PDF documents over HTTP and HTTPS.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
)

const (
	// DefaultTimeout bounds a whole download when the caller sets no deadline.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxBytes caps the size of a downloaded body.
	DefaultMaxBytes = 100 << 20

	userAgent = "pdfz/1 (+document ingest)"
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Fetcher downloads PDF bodies. Non-PDF responses are rejected.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithMaxBytes sets the body size limit. Non-positive values keep the default.
func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// New creates a fetcher.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: DefaultTimeout},
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads url and returns its body.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDownload, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/pdf, application/octet-stream;q=0.8, */*;q=0.1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned status %d", domain.ErrDownload, url, resp.StatusCode)
	}

	mediaType := contentType(resp.Header.Get("Content-Type"))
	if !acceptable(mediaType) {
		return nil, fmt.Errorf("%w: %s is %s, not a PDF", domain.ErrDownload, url, mediaType)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", domain.ErrDownload, url, resp.ContentLength, f.maxBytes)
	}

	// Read one byte past the limit to tell a full-size body from an oversized one.
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", domain.ErrDownload, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrDownload, url, f.maxBytes)
	}
	if !domain.LooksLikePDF(data) {
		return nil, fmt.Errorf("%w: %s has no PDF header", domain.ErrDownload, url)
	}
	return data, nil
}

func contentType(header string) string {
	if header == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(header))
	}
	return mediaType
}

// acceptable reports whether a response media type may carry a PDF. Generic
// binary types are accepted and checked by sniffing the body.
func acceptable(mediaType string) bool {
	switch mediaType {
	case "", "application/pdf", "application/x-pdf", "application/octet-stream", "binary/octet-stream", "application/download":
		return true
	default:
		return false
	}
}

// IsTimeout reports whether err came from a deadline rather than the remote side.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
