package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/logger"
)

type errorBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	ExistingID string `json:"existing_id,omitempty"`
}

type outlineEntry struct {
	Title string `json:"title"`
	Page  int    `json:"page"`
	Depth int    `json:"depth"`
}

type documentView struct {
	ID              string         `json:"id"`
	ContentHash     string         `json:"content_hash"`
	SourceURL       string         `json:"source_url"`
	Title           string         `json:"title"`
	Authors         []string       `json:"authors"`
	PublicationDate *string        `json:"publication_date"`
	PageCount       int            `json:"page_count"`
	TableOfContents []outlineEntry `json:"table_of_contents"`
	Summary         string         `json:"summary"`
	Model           string         `json:"model,omitempty"`
	IngestedAt      time.Time      `json:"ingested_at"`
}

type summaryView struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	PageCount int    `json:"page_count"`
}

type ingestView struct {
	DocumentID string       `json:"document_id"`
	Title      string       `json:"title"`
	PageCount  int          `json:"page_count"`
	HasTOC     bool         `json:"has_toc"`
	Document   documentView `json:"document"`
}

type pageView struct {
	Number   int    `json:"number"`
	Markdown string `json:"markdown"`
}

type pagesView struct {
	DocumentID string     `json:"document_id"`
	Start      int        `json:"start"`
	End        int        `json:"end"`
	Markdown   string     `json:"markdown"`
	Pages      []pageView `json:"pages"`
}

func newDocumentView(doc *domain.Document) documentView {
	view := documentView{
		ID:              doc.ID,
		ContentHash:     doc.ContentHash,
		SourceURL:       doc.SourceURL,
		Title:           doc.Title,
		Authors:         doc.Authors,
		PageCount:       doc.PageCount,
		TableOfContents: newOutline(doc.TableOfContents),
		Summary:         doc.Summary,
		Model:           doc.Model,
		IngestedAt:      doc.IngestedAt,
	}
	if view.Authors == nil {
		view.Authors = []string{}
	}
	if doc.PublicationDate != nil {
		date := doc.PublicationDate.Format(time.DateOnly)
		view.PublicationDate = &date
	}
	return view
}

func newOutline(entries []domain.OutlineEntry) []outlineEntry {
	out := make([]outlineEntry, len(entries))
	for i, e := range entries {
		out[i] = outlineEntry{Title: e.Title, Page: e.Page, Depth: e.Depth}
	}
	return out
}

func newPagesView(content *domain.PageContent) pagesView {
	pages := make([]pageView, len(content.Pages))
	for i, p := range content.Pages {
		pages[i] = pageView{Number: p.Number, Markdown: p.Markdown}
	}
	return pagesView{
		DocumentID: content.DocumentID,
		Start:      content.Start,
		End:        content.End,
		Markdown:   content.Markdown(),
		Pages:      pages,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("write response: %v", err)
	}
}

// writeError maps err onto a status code and error body.
func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	body := errorBody{Error: code, Message: err.Error()}
	if id, ok := domain.ExistingID(err); ok {
		body.ExistingID = id
	}
	if status == http.StatusInternalServerError {
		body.Message = "internal error"
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrRange):
		return http.StatusBadRequest, "range_error"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, domain.ErrIDConflict):
		return http.StatusConflict, "id_conflict"
	case errors.Is(err, domain.ErrInvalidDocument):
		return http.StatusUnprocessableEntity, "invalid_document"
	case errors.Is(err, domain.ErrDownload):
		return http.StatusBadGateway, "download_error"
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, domain.ErrExtraction):
		return http.StatusBadGateway, "extraction_error"
	case errors.Is(err, domain.ErrLLMUnavailable):
		return http.StatusServiceUnavailable, "llm_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, domain.ErrStoreWrite):
		return http.StatusInternalServerError, "store_write_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
