package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"doc"},
	Short:   "Browse stored documents",
	Long:    `List stored documents, read their tables of contents and render page ranges.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentTOCCmd = &cobra.Command{
	Use:   "toc [doc-id]",
	Short: "Print the table of contents",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentTOC,
}

var documentPagesCmd = &cobra.Command{
	Use:   "pages [doc-id] [start] [end]",
	Short: "Render a page range as markdown",
	Long: `Render pages start to end inclusive as markdown. Page numbers are
physical pages counted from 1. When end is omitted only the start page is
rendered.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runDocumentPages,
}

func init() {
	for _, cmd := range []*cobra.Command{documentListCmd, documentGetCmd, documentTOCCmd, documentPagesCmd} {
		addFormatFlag(cmd)
		documentCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	svc, err := getRetrievalService()
	if err != nil {
		return err
	}

	docs, err := svc.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	out := make([]summaryOutput, 0, len(docs))
	for _, d := range docs {
		out = append(out, summaryOutput{ID: d.ID, Title: d.Title, Summary: d.Summary, PageCount: d.PageCount})
	}
	if done, err := printStructured(cmd, out); done {
		return err
	}

	if len(docs) == 0 {
		cmd.Println("No documents stored. Add one with 'pdfz ingest <url>'.")
		return nil
	}

	for _, d := range docs {
		cmd.Printf("  %s  %s (%d pages)\n", d.ID, d.Title, d.PageCount)
		if d.Summary != "" {
			cmd.Printf("    %s\n", d.Summary)
		}
		cmd.Println()
	}
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	svc, err := getRetrievalService()
	if err != nil {
		return err
	}

	doc, err := svc.GetDocument(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	return printDocument(cmd, doc)
}

func runDocumentTOC(cmd *cobra.Command, args []string) error {
	svc, err := getRetrievalService()
	if err != nil {
		return err
	}

	entries, err := svc.GetTableOfContents(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get table of contents: %w", err)
	}
	if done, err := printStructured(cmd, toOutline(entries)); done {
		return err
	}

	if len(entries) == 0 {
		cmd.Println("This document has no table of contents.")
		return nil
	}
	for _, e := range entries {
		cmd.Printf("%s%s ... %d\n", strings.Repeat("  ", e.Depth), e.Title, e.Page)
	}
	return nil
}

func runDocumentPages(cmd *cobra.Command, args []string) error {
	start, err := parsePage(args[1])
	if err != nil {
		return err
	}
	end := start
	if len(args) == 3 {
		if end, err = parsePage(args[2]); err != nil {
			return err
		}
	}

	svc, err := getRetrievalService()
	if err != nil {
		return err
	}

	content, err := svc.ExtractPageRange(cmd.Context(), args[0], start, end)
	if err != nil {
		return fmt.Errorf("failed to extract pages: %w", err)
	}

	markdown := content.Markdown()
	if done, err := printStructured(cmd, pagesOutput{
		DocumentID: content.DocumentID,
		PageStart:  content.Start,
		PageEnd:    content.End,
		Markdown:   markdown,
	}); done {
		return err
	}

	cmd.Println(markdown)
	return nil
}

func parsePage(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid page number %q", arg)
	}
	return n, nil
}
