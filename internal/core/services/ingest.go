package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
	"github.com/custodia-labs/pdfz/internal/core/ports/driving"
	"github.com/custodia-labs/pdfz/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService downloads PDFs, extracts their metadata and stores them.
// No lock is held across the download, the model call or rendering; the
// store's Insert is the only point where concurrent ingests of the same
// content meet.
type IngestService struct {
	fetcher   driven.Fetcher
	renderer  driven.PageRenderer
	extractor *MetadataExtractor
	blobs     driven.BlobStore
	docs      driven.DocumentStore
	settings  domain.IngestSettings
	clock     clock.Clock
	log       *logrus.Entry
}

// IngestOption customises an IngestService.
type IngestOption func(*IngestService)

// WithClock sets the clock used for IngestedAt.
func WithClock(c clock.Clock) IngestOption {
	return func(s *IngestService) {
		s.clock = c
	}
}

// WithLogger sets the logger entry for ingest attempts.
func WithLogger(entry *logrus.Entry) IngestOption {
	return func(s *IngestService) {
		s.log = entry
	}
}

// NewIngestService creates a new ingest service.
// Zero values in settings fall back to the defaults.
func NewIngestService(
	fetcher driven.Fetcher,
	renderer driven.PageRenderer,
	extractor *MetadataExtractor,
	blobs driven.BlobStore,
	docs driven.DocumentStore,
	settings domain.IngestSettings,
	opts ...IngestOption,
) *IngestService {
	defaults := domain.DefaultAppSettings().Ingest
	if settings.DownloadTimeout <= 0 {
		settings.DownloadTimeout = defaults.DownloadTimeout
	}
	if settings.LLMTimeout <= 0 {
		settings.LLMTimeout = defaults.LLMTimeout
	}
	if settings.MetadataPages <= 0 {
		settings.MetadataPages = defaults.MetadataPages
	}

	s := &IngestService{
		fetcher:   fetcher,
		renderer:  renderer,
		extractor: extractor,
		blobs:     blobs,
		docs:      docs,
		settings:  settings,
		clock:     clock.WallClock,
		log:       logger.Entry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "ingest")
	return s
}

// Ingest downloads the PDF at url and stores it with extracted metadata.
//
//nolint:gocyclo // Pipeline with necessary sequential steps
func (s *IngestService) Ingest(ctx context.Context, url string) (*domain.IngestResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}
	if s.extractor == nil || s.extractor.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	log := s.log.WithFields(logrus.Fields{
		"attempt": uuid.NewString(),
		"url":     url,
	})
	started := s.clock.Now()

	// 1. Download
	data, err := s.download(ctx, url)
	if err != nil {
		log.WithError(err).Warn("download failed")
		return nil, err
	}

	// 2. Deduplicate before spending a model call
	hash := domain.ContentHash(data)
	id := domain.DocumentID(hash)
	log = log.WithField("doc_id", id)

	exists, err := s.docs.ExistsByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if exists {
		log.Info("content already stored")
		return nil, &domain.DuplicateError{ExistingID: id}
	}
	if err := s.checkIDFree(ctx, id, hash); err != nil {
		log.WithError(err).Error("document id taken by different content")
		return nil, err
	}

	// 3. Read the leading pages
	pageCount, err := s.renderer.PageCount(data)
	if err != nil {
		log.WithError(err).Warn("unreadable document")
		return nil, asInvalidDocument(err)
	}
	shown := domain.MetadataPageCount(pageCount, s.settings.MetadataPages)
	pages, err := s.renderer.Render(ctx, data, 1, shown)
	if err != nil {
		log.WithError(err).Warn("render failed")
		return nil, asInvalidDocument(err)
	}
	log.WithFields(logrus.Fields{"pages": pageCount, "shown": shown}).Debug("rendered leading pages")

	// 4. Extract metadata
	meta, err := s.extract(ctx, pages, pageCount)
	if err != nil {
		log.WithError(err).Warn("metadata extraction failed")
		return nil, err
	}

	// 5. Retain the bytes, then commit the record
	path, err := s.blobs.Put(ctx, hash, data)
	if errors.Is(err, domain.ErrIDConflict) {
		log.WithError(err).Error("retained bytes differ for content hash")
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: retain pdf: %w", domain.ErrStoreWrite, err)
	}

	doc := &domain.Document{
		ID:              id,
		ContentHash:     hash,
		SourceURL:       url,
		Title:           meta.Title,
		Authors:         meta.Authors,
		PublicationDate: meta.PublicationDate,
		PageCount:       pageCount,
		TableOfContents: meta.TableOfContents,
		Summary:         meta.Summary,
		Model:           s.extractor.ModelName(),
		IngestedAt:      s.clock.Now().UTC(),
		StoragePath:     path,
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtraction, err)
	}

	if err := s.docs.Insert(ctx, doc); err != nil {
		if existingID, ok := domain.ExistingID(err); ok {
			// A concurrent ingest of the same bytes committed first.
			existing, getErr := s.docs.Get(ctx, existingID)
			if getErr != nil {
				return nil, fmt.Errorf("load existing document: %w", getErr)
			}
			if existing.ContentHash != hash {
				log.WithField("existing_hash", existing.ContentHash).Error("document id taken by different content")
				return nil, idConflict(id, existing.ContentHash)
			}
			log.Info("lost insert race, returning existing document")
			return &domain.IngestResult{Document: existing, Created: false}, nil
		}
		log.WithError(err).Error("insert failed")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"title":    doc.Title,
		"toc":      len(doc.TableOfContents),
		"duration": s.clock.Now().Sub(started).Round(time.Millisecond).String(),
	}).Info("document ingested")

	return &domain.IngestResult{Document: doc, Created: true}, nil
}

// checkIDFree fails when id already names a document with another hash.
func (s *IngestService) checkIDFree(ctx context.Context, id, hash string) error {
	existing, err := s.docs.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check document id: %w", err)
	}
	if existing.ContentHash != hash {
		return idConflict(id, existing.ContentHash)
	}
	return nil
}

func idConflict(id, existingHash string) error {
	return fmt.Errorf("%w: %s already holds content %s", domain.ErrIDConflict, id, existingHash)
}

func (s *IngestService) download(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settings.DownloadTimeout)
	defer cancel()

	data, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		if errors.Is(err, domain.ErrDownload) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrDownload, err)
	}
	if !domain.LooksLikePDF(data) {
		return nil, fmt.Errorf("%w: response is not a PDF", domain.ErrDownload)
	}
	return data, nil
}

func (s *IngestService) extract(
	ctx context.Context,
	pages []domain.RenderedPage,
	pageCount int,
) (*domain.ExtractedMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settings.LLMTimeout)
	defer cancel()

	meta, err := s.extractor.Extract(ctx, pages, pageCount)
	if err != nil {
		if errors.Is(err, domain.ErrUpstream) || errors.Is(err, domain.ErrExtraction) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	return meta, nil
}

func asInvalidDocument(err error) error {
	if errors.Is(err, domain.ErrInvalidDocument) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidDocument, err)
}
