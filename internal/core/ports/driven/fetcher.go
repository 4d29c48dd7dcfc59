package driven

import "context"

// Fetcher downloads documents from remote locations.
type Fetcher interface {
	// Fetch downloads the body at url. Failures match domain.ErrDownload,
	// including non-2xx responses and non-PDF content.
	Fetch(ctx context.Context, url string) ([]byte, error)
}
