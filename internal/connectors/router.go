package connectors

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
)

// Ensure Router implements the interface.
var _ driven.Fetcher = (*Router)(nil)

// Router dispatches http(s) URLs to the web fetcher and file URIs or bare
// paths to the local fetcher. A nil local fetcher disables local reads.
type Router struct {
	web   driven.Fetcher
	local driven.Fetcher
}

// NewRouter creates a scheme router.
func NewRouter(web, local driven.Fetcher) *Router {
	return &Router{web: web, local: local}
}

// Fetch downloads or reads the document at location.
func (r *Router) Fetch(ctx context.Context, location string) ([]byte, error) {
	switch Scheme(location) {
	case "http", "https":
		if r.web == nil {
			return nil, fmt.Errorf("%w: remote downloads are disabled", domain.ErrDownload)
		}
		return r.web.Fetch(ctx, location)
	case "file", "":
		if r.local == nil {
			return nil, fmt.Errorf("%w: local files are not accepted here", domain.ErrDownload)
		}
		return r.local.Fetch(ctx, location)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme in %q", domain.ErrDownload, location)
	}
}

// Scheme returns the lowercase URL scheme of location, or "" for bare paths.
func Scheme(location string) string {
	u, err := url.Parse(strings.TrimSpace(location))
	if err != nil {
		return ""
	}
	// Windows drive letters parse as one-letter schemes.
	if len(u.Scheme) == 1 {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// IsRemote reports whether location is an http or https URL with a host.
func IsRemote(location string) bool {
	u, err := url.Parse(strings.TrimSpace(location))
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
