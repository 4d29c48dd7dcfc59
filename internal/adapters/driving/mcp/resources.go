package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/pdfz/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for pdfz resources.
	uriScheme = "pdfz://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing documents.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Summaries of all stored documents",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	// Template for a single document record.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document",
		Description: "Metadata record of a specific document",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)
}

// documentRecord is the JSON form of a stored document.
type documentRecord struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	Authors         []string             `json:"authors"`
	PublicationDate string               `json:"publication_date,omitempty"`
	PageCount       int                  `json:"page_count"`
	SourceURL       string               `json:"source_url"`
	Summary         string               `json:"summary"`
	TableOfContents []OutlineEntryOutput `json:"table_of_contents"`
	IngestedAt      time.Time            `json:"ingested_at"`
}

func newDocumentRecord(doc *domain.Document) documentRecord {
	rec := documentRecord{
		ID:              doc.ID,
		Title:           doc.Title,
		Authors:         doc.Authors,
		PageCount:       doc.PageCount,
		SourceURL:       doc.SourceURL,
		Summary:         doc.Summary,
		TableOfContents: outlineOutput(doc.TableOfContents),
		IngestedAt:      doc.IngestedAt,
	}
	if rec.Authors == nil {
		rec.Authors = []string{}
	}
	if doc.PublicationDate != nil {
		rec.PublicationDate = doc.PublicationDate.Format(time.DateOnly)
	}
	return rec
}

// handleDocumentsResource returns summaries of all stored documents.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	summaries, err := s.ports.Retrieval.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	infos := make([]DocumentSummaryOutput, len(summaries))
	for i, sum := range summaries {
		infos[i] = DocumentSummaryOutput{
			ID:        sum.ID,
			Title:     sum.Title,
			Summary:   sum.Summary,
			PageCount: sum.PageCount,
		}
	}

	return jsonResource(req.Params.URI, infos)
}

// handleDocumentResource returns the metadata record of a document.
func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract documentId from URI: pdfz://documents/{documentId}
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Retrieval.GetDocument(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}

	return jsonResource(req.Params.URI, newDocumentRecord(doc))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractDocumentID extracts the document ID from a URI like pdfz://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
