package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Nothing survives a restart.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	byHash    map[string]string
	order     []string
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		byHash:    make(map[string]string),
	}
}

// ExistsByHash reports whether the content hash is stored.
func (s *DocumentStore) ExistsByHash(_ context.Context, contentHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byHash[contentHash]
	return ok, nil
}

// Insert stores doc unless its content hash is already present.
func (s *DocumentStore) Insert(_ context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byHash[doc.ContentHash]; ok {
		return &domain.DuplicateError{ExistingID: id}
	}
	if _, ok := s.documents[doc.ID]; ok {
		return &domain.DuplicateError{ExistingID: doc.ID}
	}

	s.documents[doc.ID] = clone(doc)
	s.byHash[doc.ContentHash] = doc.ID
	s.order = append(s.order, doc.ID)
	return nil
}

// Get retrieves a document by ID.
func (s *DocumentStore) Get(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := clone(&doc)
	return &c, nil
}

// List returns all documents in insertion order.
func (s *DocumentStore) List(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.order))
	for _, id := range s.order {
		doc := s.documents[id]
		docs = append(docs, clone(&doc))
	}
	return docs, nil
}

// Close is a no-op.
func (s *DocumentStore) Close() error {
	return nil
}

// clone copies the slices so callers cannot mutate stored state.
func clone(doc *domain.Document) domain.Document {
	c := *doc
	c.Authors = slices.Clone(doc.Authors)
	c.TableOfContents = slices.Clone(doc.TableOfContents)
	if doc.PublicationDate != nil {
		d := *doc.PublicationDate
		c.PublicationDate = &d
	}
	return c
}
