package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/pdfz/internal/core/domain"
)

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentSummaryOutput `json:"documents"`
	Count     int                     `json:"count"`
}

// DocumentSummaryOutput represents a single listed document.
type DocumentSummaryOutput struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	PageCount int    `json:"page_count"`
}

// TableOfContentsInput is the input schema for the get_table_of_contents tool.
type TableOfContentsInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document id returned by list_documents"`
}

// TableOfContentsOutput is the output schema for the get_table_of_contents tool.
type TableOfContentsOutput struct {
	DocumentID string               `json:"document_id"`
	Title      string               `json:"title"`
	PageCount  int                  `json:"page_count"`
	Entries    []OutlineEntryOutput `json:"entries"`
}

// OutlineEntryOutput is one table-of-contents entry.
type OutlineEntryOutput struct {
	Title string `json:"title"`
	Page  int    `json:"page"`
	Depth int    `json:"depth"`
}

// PageRangeInput is the input schema for the extract_page_range tool.
type PageRangeInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document id returned by list_documents"`
	PageStart  int    `json:"page_start" jsonschema:"first page to read, 1-based"`
	PageEnd    int    `json:"page_end" jsonschema:"last page to read, inclusive"`
}

// PageRangeOutput is the output schema for the extract_page_range tool.
type PageRangeOutput struct {
	DocumentID string `json:"document_id"`
	PageStart  int    `json:"page_start"`
	PageEnd    int    `json:"page_end"`
	Markdown   string `json:"markdown"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List every stored PDF with its id, title, summary and page count",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "get_table_of_contents",
		Description: "Get the table of contents of a document. Each entry gives a section title, " +
			"the physical page it starts on and its nesting depth",
	}, s.handleTableOfContents)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "extract_page_range",
		Description: "Read pages page_start..page_end (inclusive, 1-based) of a document as markdown. " +
			"Request small ranges; wide spans are rejected",
	}, s.handleExtractPageRange)
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	summaries, err := s.ports.Retrieval.ListDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, toolError(err)
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentSummaryOutput, len(summaries)),
		Count:     len(summaries),
	}
	for i, sum := range summaries {
		output.Documents[i] = DocumentSummaryOutput{
			ID:        sum.ID,
			Title:     sum.Title,
			Summary:   sum.Summary,
			PageCount: sum.PageCount,
		}
	}

	return nil, output, nil
}

// handleTableOfContents handles the get_table_of_contents tool invocation.
func (s *Server) handleTableOfContents(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input TableOfContentsInput,
) (*mcp.CallToolResult, TableOfContentsOutput, error) {
	doc, err := s.ports.Retrieval.GetDocument(ctx, input.DocumentID)
	if err != nil {
		return nil, TableOfContentsOutput{}, toolError(err)
	}
	entries, err := s.ports.Retrieval.GetTableOfContents(ctx, doc.ID)
	if err != nil {
		return nil, TableOfContentsOutput{}, toolError(err)
	}

	return nil, TableOfContentsOutput{
		DocumentID: doc.ID,
		Title:      doc.Title,
		PageCount:  doc.PageCount,
		Entries:    outlineOutput(entries),
	}, nil
}

// handleExtractPageRange handles the extract_page_range tool invocation.
func (s *Server) handleExtractPageRange(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PageRangeInput,
) (*mcp.CallToolResult, PageRangeOutput, error) {
	content, err := s.ports.Retrieval.ExtractPageRange(ctx, input.DocumentID, input.PageStart, input.PageEnd)
	if err != nil {
		return nil, PageRangeOutput{}, toolError(err)
	}

	return nil, PageRangeOutput{
		DocumentID: content.DocumentID,
		PageStart:  content.Start,
		PageEnd:    content.End,
		Markdown:   content.Markdown(),
	}, nil
}

func outlineOutput(entries []domain.OutlineEntry) []OutlineEntryOutput {
	out := make([]OutlineEntryOutput, len(entries))
	for i, e := range entries {
		out[i] = OutlineEntryOutput{Title: e.Title, Page: e.Page, Depth: e.Depth}
	}
	return out
}
