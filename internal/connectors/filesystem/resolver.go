package filesystem

import (
	"net/url"
	"strings"
)

// ResolvePath converts a file:// URI or bare path to a local path.
func ResolvePath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		return u.Path
	}
	return strings.TrimPrefix(uri, "file://")
}
