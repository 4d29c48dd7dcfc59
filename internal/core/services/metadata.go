package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
)

// Fallback used when no prompt store is configured or it has no template.
const defaultMetadataPrompt = `You receive the text of the first %d pages of a PDF with %d pages in total.
Reply with one JSON object with the fields "title", "authors", "publication_date",
"table_of_contents" (a list of {"title", "page", "depth"}) and "summary".
Pages in the table of contents are physical PDF page numbers.`

const metadataMaxTokens = 4096

// MetadataExtractor derives document metadata from the leading pages
// with a single LLM call.
type MetadataExtractor struct {
	llm     driven.LLMService
	prompts driven.PromptStore
}

// NewMetadataExtractor creates a metadata extractor.
// prompts may be nil, in which case the built-in prompt is used.
func NewMetadataExtractor(llm driven.LLMService, prompts driven.PromptStore) *MetadataExtractor {
	return &MetadataExtractor{llm: llm, prompts: prompts}
}

// ModelName reports the model that produces the metadata.
func (e *MetadataExtractor) ModelName() string {
	if e.llm == nil {
		return ""
	}
	return e.llm.ModelName()
}

// Extract sends pages to the model and validates its reply against pageCount.
// Pages without any text match domain.ErrInvalidDocument and never reach the
// model. A failed call matches domain.ErrUpstream; an unusable reply matches
// domain.ErrExtraction.
func (e *MetadataExtractor) Extract(
	ctx context.Context,
	pages []domain.RenderedPage,
	pageCount int,
) (*domain.ExtractedMetadata, error) {
	if e.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no pages to extract from", domain.ErrExtraction)
	}
	if !hasText(pages) {
		return nil, fmt.Errorf("%w: no extractable text in the first %d pages", domain.ErrInvalidDocument, len(pages))
	}

	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: fmt.Sprintf(e.systemPrompt(), len(pages), pageCount)},
		{Role: driven.RoleUser, Content: domain.RenderMarkdown(pages)},
	}

	reply, err := e.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   metadataMaxTokens,
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}

	return parseMetadata(reply, pageCount)
}

func hasText(pages []domain.RenderedPage) bool {
	for _, p := range pages {
		if strings.TrimSpace(p.Markdown) != "" {
			return true
		}
	}
	return false
}

func (e *MetadataExtractor) systemPrompt() string {
	if e.prompts == nil {
		return defaultMetadataPrompt
	}
	prompt, err := e.prompts.Load(driven.PromptMetadataExtraction)
	if err != nil || strings.Count(prompt, "%d") != 2 {
		return defaultMetadataPrompt
	}
	return prompt
}

// metadataReply is the JSON shape the model is asked for.
type metadataReply struct {
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	PublicationDate *string  `json:"publication_date"`
	TableOfContents []struct {
		Title string `json:"title"`
		Page  int    `json:"page"`
		Depth int    `json:"depth"`
	} `json:"table_of_contents"`
	Summary string `json:"summary"`
}

func parseMetadata(reply string, pageCount int) (*domain.ExtractedMetadata, error) {
	body := stripCodeFence(reply)

	var raw metadataReply
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("%w: reply is not a JSON object: %w", domain.ErrExtraction, err)
	}

	title := strings.Join(strings.Fields(raw.Title), " ")
	if title == "" {
		return nil, fmt.Errorf("%w: reply has no title", domain.ErrExtraction)
	}

	outline := make([]domain.OutlineEntry, 0, len(raw.TableOfContents))
	for _, e := range raw.TableOfContents {
		outline = append(outline, domain.OutlineEntry{Title: e.Title, Page: e.Page, Depth: e.Depth})
	}

	meta := &domain.ExtractedMetadata{
		Title:           title,
		Authors:         domain.NormaliseAuthors(raw.Authors),
		TableOfContents: domain.NormaliseOutline(outline, pageCount),
		Summary:         strings.TrimSpace(raw.Summary),
	}
	if raw.PublicationDate != nil {
		meta.PublicationDate = domain.ParsePublicationDate(*raw.PublicationDate)
	}
	return meta, nil
}

// stripCodeFence removes a markdown code fence around the reply and any
// chatter outside the outermost braces.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}
