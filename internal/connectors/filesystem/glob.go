package filesystem

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IsPattern reports whether location holds glob syntax such as * or **.
func IsPattern(location string) bool {
	return strings.ContainsAny(ResolvePath(location), "*?[{")
}

// Glob expands a pattern like papers/**/*.pdf into the regular files it
// matches, sorted by path. Directories are skipped.
func Glob(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(ResolvePath(pattern))
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}
