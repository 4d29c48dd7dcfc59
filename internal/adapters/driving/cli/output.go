package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/pdfz/internal/core/domain"
)

// Output formats accepted by --format.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// outputFormat is shared by every command that prints documents.
var outputFormat string

func addFormatFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputFormat, "format", "o", formatText, "Output format: text, json or yaml")
}

// printStructured writes v as JSON or YAML. It reports false for text output,
// leaving the caller to print its own layout.
func printStructured(cmd *cobra.Command, v any) (bool, error) {
	switch outputFormat {
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return true, fmt.Errorf("encoding json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return true, nil
	case formatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return true, fmt.Errorf("encoding yaml: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return true, nil
	case formatText, "":
		return false, nil
	default:
		return true, fmt.Errorf("unknown output format %q (want text, json or yaml)", outputFormat)
	}
}

type outlineOutput struct {
	Title string `json:"title" yaml:"title"`
	Page  int    `json:"page" yaml:"page"`
	Depth int    `json:"depth" yaml:"depth"`
}

type summaryOutput struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Summary   string `json:"summary" yaml:"summary"`
	PageCount int    `json:"page_count" yaml:"page_count"`
}

type documentOutput struct {
	ID              string          `json:"id" yaml:"id"`
	Title           string          `json:"title" yaml:"title"`
	Authors         []string        `json:"authors" yaml:"authors"`
	PublicationDate string          `json:"publication_date,omitempty" yaml:"publication_date,omitempty"`
	PageCount       int             `json:"page_count" yaml:"page_count"`
	Summary         string          `json:"summary" yaml:"summary"`
	SourceURL       string          `json:"source_url" yaml:"source_url"`
	ContentHash     string          `json:"content_hash" yaml:"content_hash"`
	Model           string          `json:"model,omitempty" yaml:"model,omitempty"`
	IngestedAt      time.Time       `json:"ingested_at" yaml:"ingested_at"`
	TableOfContents []outlineOutput `json:"table_of_contents" yaml:"table_of_contents"`
}

type pagesOutput struct {
	DocumentID string `json:"document_id" yaml:"document_id"`
	PageStart  int    `json:"page_start" yaml:"page_start"`
	PageEnd    int    `json:"page_end" yaml:"page_end"`
	Markdown   string `json:"markdown" yaml:"markdown"`
}

func toOutline(entries []domain.OutlineEntry) []outlineOutput {
	out := make([]outlineOutput, 0, len(entries))
	for _, e := range entries {
		out = append(out, outlineOutput{Title: e.Title, Page: e.Page, Depth: e.Depth})
	}
	return out
}

func toDocumentOutput(doc *domain.Document) documentOutput {
	out := documentOutput{
		ID:              doc.ID,
		Title:           doc.Title,
		Authors:         doc.Authors,
		PageCount:       doc.PageCount,
		Summary:         doc.Summary,
		SourceURL:       doc.SourceURL,
		ContentHash:     doc.ContentHash,
		Model:           doc.Model,
		IngestedAt:      doc.IngestedAt,
		TableOfContents: toOutline(doc.TableOfContents),
	}
	if out.Authors == nil {
		out.Authors = []string{}
	}
	if doc.PublicationDate != nil {
		out.PublicationDate = doc.PublicationDate.Format(time.DateOnly)
	}
	return out
}

// printDocument prints the full record of a document.
func printDocument(cmd *cobra.Command, doc *domain.Document) error {
	if done, err := printStructured(cmd, toDocumentOutput(doc)); done {
		return err
	}

	cmd.Printf("ID:          %s\n", doc.ID)
	cmd.Printf("Title:       %s\n", doc.Title)
	if len(doc.Authors) > 0 {
		cmd.Printf("Authors:     %s\n", strings.Join(doc.Authors, ", "))
	}
	if doc.PublicationDate != nil {
		cmd.Printf("Published:   %s\n", doc.PublicationDate.Format(time.DateOnly))
	}
	cmd.Printf("Pages:       %d\n", doc.PageCount)
	cmd.Printf("Source:      %s\n", doc.SourceURL)
	cmd.Printf("Hash:        %s\n", doc.ContentHash)
	cmd.Printf("Ingested:    %s\n", doc.IngestedAt.Format(time.RFC3339))
	if doc.Model != "" {
		cmd.Printf("Model:       %s\n", doc.Model)
	}
	cmd.Printf("TOC entries: %d\n", len(doc.TableOfContents))
	if doc.Summary != "" {
		cmd.Println()
		cmd.Println(doc.Summary)
	}
	return nil
}
