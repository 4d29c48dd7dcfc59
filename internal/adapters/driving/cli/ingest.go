package cli

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfz/internal/connectors/filesystem"
	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driving"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [url-or-path]",
	Short: "Download a PDF and store it",
	Long: `Download a PDF, extract its title, authors, publication date, table of
contents and summary with the configured LLM, and store it.

The argument may be an http(s) URL, a file:// URI or a local path. Content
that is already stored is reported with the existing document id and not
stored again.

A local glob pattern ingests every matching file in turn. Duplicates are
reported but do not fail the batch.

Examples:
  pdfz ingest https://arxiv.org/pdf/1706.03762
  pdfz ingest ./papers/attention.pdf --format json
  pdfz ingest './papers/**/*.pdf'`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	addFormatFlag(ingestCmd)
	rootCmd.AddCommand(ingestCmd)
}

// Batch item outcomes.
const (
	statusStored    = "stored"
	statusDuplicate = "duplicate"
	statusFailed    = "failed"
)

type batchItem struct {
	Source     string `json:"source" yaml:"source"`
	Status     string `json:"status" yaml:"status"`
	DocumentID string `json:"document_id,omitempty" yaml:"document_id,omitempty"`
	Title      string `json:"title,omitempty" yaml:"title,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	svc, err := getIngestService()
	if err != nil {
		return err
	}

	if filesystem.IsPattern(args[0]) {
		return runIngestBatch(cmd, svc, args[0])
	}

	result, err := svc.Ingest(cmd.Context(), args[0])
	if err != nil {
		if _, ok := domain.ExistingID(err); ok {
			return err
		}
		return fmt.Errorf("failed to ingest %s: %w", args[0], err)
	}
	if !result.Created {
		return &domain.DuplicateError{ExistingID: result.Document.ID}
	}

	doc := result.Document
	if done, err := printStructured(cmd, toDocumentOutput(doc)); done {
		return err
	}

	cmd.Printf("Stored %s\n\n", doc.ID)
	cmd.Printf("  Title:   %s\n", doc.Title)
	cmd.Printf("  Pages:   %d\n", doc.PageCount)
	if doc.HasTableOfContents() {
		cmd.Printf("  TOC:     %d entries\n", len(doc.TableOfContents))
	} else {
		cmd.Println("  TOC:     none")
	}
	return nil
}

func runIngestBatch(cmd *cobra.Command, svc driving.IngestService, pattern string) error {
	files, err := filesystem.Glob(pattern)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files match %s", pattern)
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionClearOnFinish(),
	)

	var (
		items []batchItem
		errs  *multierror.Error
	)
	for _, path := range files {
		if err := cmd.Context().Err(); err != nil {
			errs = multierror.Append(errs, err)
			break
		}

		item := ingestOne(cmd, svc, path)
		if item.Status == statusFailed {
			errs = multierror.Append(errs, fmt.Errorf("%s: %s", path, item.Error))
		}
		items = append(items, item)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	if done, err := printStructured(cmd, items); done {
		if err != nil {
			return err
		}
		return errs.ErrorOrNil()
	}

	var stored, dups int
	for _, item := range items {
		switch item.Status {
		case statusStored:
			stored++
			cmd.Printf("  stored     %s  %s\n", item.DocumentID, item.Source)
		case statusDuplicate:
			dups++
			cmd.Printf("  duplicate  %s  %s\n", item.DocumentID, item.Source)
		default:
			cmd.Printf("  failed     %s: %s\n", item.Source, item.Error)
		}
	}
	cmd.Printf("\n%d stored, %d duplicates, %d failed\n", stored, dups, len(items)-stored-dups)
	return errs.ErrorOrNil()
}

func ingestOne(cmd *cobra.Command, svc driving.IngestService, path string) batchItem {
	item := batchItem{Source: path}

	result, err := svc.Ingest(cmd.Context(), path)
	var dup *domain.DuplicateError
	switch {
	case errors.As(err, &dup):
		item.Status = statusDuplicate
		item.DocumentID = dup.ExistingID
	case err != nil:
		item.Status = statusFailed
		item.Error = err.Error()
	case !result.Created:
		item.Status = statusDuplicate
		item.DocumentID = result.Document.ID
	default:
		item.Status = statusStored
		item.DocumentID = result.Document.ID
		item.Title = result.Document.Title
	}
	return item
}
