package domain

import (
	"strings"
	"time"
)

// MaxMetadataPages caps how many leading pages feed metadata extraction.
const MaxMetadataPages = 10

// ExtractedMetadata is the validated result of the metadata LLM call.
type ExtractedMetadata struct {
	Title           string
	Authors         []string
	PublicationDate *time.Time
	TableOfContents []OutlineEntry
	Summary         string
}

// MetadataPageCount returns how many leading pages are sent to the model.
func MetadataPageCount(pageCount, limit int) int {
	if limit <= 0 || limit > MaxMetadataPages {
		limit = MaxMetadataPages
	}
	if pageCount < limit {
		return pageCount
	}
	return limit
}

var publicationDateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006",
	"January 2, 2006",
	"January 2006",
	"2 January 2006",
}

// ParsePublicationDate parses a model-supplied date leniently.
// Unparseable or empty input yields nil, meaning unknown.
func ParsePublicationDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "unknown") {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d := truncateDate(t)
		return &d
	}
	for _, layout := range publicationDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := truncateDate(t)
			return &d
		}
	}
	return nil
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NormaliseOutline drops entries that cannot be honoured against pageCount:
// empty titles, pages outside [1, pageCount] and negative depths.
func NormaliseOutline(entries []OutlineEntry, pageCount int) []OutlineEntry {
	out := make([]OutlineEntry, 0, len(entries))
	for _, e := range entries {
		e.Title = strings.TrimSpace(e.Title)
		if e.Title == "" || e.Page < 1 || e.Page > pageCount || e.Depth < 0 {
			continue
		}
		out = append(out, e)
	}
	return out
}

// NormaliseAuthors trims names and drops blanks and repeats, keeping order.
func NormaliseAuthors(authors []string) []string {
	seen := make(map[string]struct{}, len(authors))
	out := make([]string, 0, len(authors))
	for _, a := range authors {
		a = strings.Join(strings.Fields(a), " ")
		if a == "" {
			continue
		}
		key := strings.ToLower(a)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}
