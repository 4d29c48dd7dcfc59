// Package jsonfile provides a driven.DocumentStore kept in a single JSON
// index file.
//
// Readers work from an immutable in-memory snapshot and never block.
// Writers are serialised; each insert writes the complete new index to a
// temporary file, syncs it and renames it over the old one, then publishes
// the new snapshot. A failed write leaves both the file and the snapshot in
// their previous state.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/pdfz/internal/adapters/driven/storage/fsutil"
	"github.com/custodia-labs/pdfz/internal/adapters/driven/storage/record"
	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
)

// FileName is the index file name inside the data directory.
const FileName = "documents.json"

const formatVersion = 1

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// WriteFunc durably replaces the file at path with data.
type WriteFunc func(path string, data []byte) error

// Option configures a Store.
type Option func(*Store)

// WithWriter replaces the durable write step. Used to simulate disk failures.
func WithWriter(w WriteFunc) Option {
	return func(s *Store) {
		s.write = w
	}
}

// Store is a JSON-file driven.DocumentStore.
type Store struct {
	path    string
	write   WriteFunc
	writeMu sync.Mutex
	current atomic.Pointer[snapshot]
}

type indexFile struct {
	Version   int               `json:"version"`
	Documents []record.Document `json:"documents"`
}

// snapshot is never mutated after it is published.
type snapshot struct {
	docs   []record.Document
	byID   map[string]int
	byHash map[string]string
}

func newSnapshot(docs []record.Document) *snapshot {
	s := &snapshot{
		docs:   docs,
		byID:   make(map[string]int, len(docs)),
		byHash: make(map[string]string, len(docs)),
	}
	for i, d := range docs {
		s.byID[d.ID] = i
		s.byHash[d.ContentHash] = d.ID
	}
	return s
}

// NewStore opens the index in dataDir, creating an empty one if needed.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &Store{
		path:  filepath.Join(dataDir, FileName),
		write: fsutil.WriteFileAtomic,
	}
	for _, opt := range opts {
		opt(s)
	}

	snap, err := s.load()
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	return s, nil
}

// Path returns the index file path.
func (s *Store) Path() string {
	return s.path
}

// Close is a no-op; every committed insert is already on disk.
func (s *Store) Close() error {
	return nil
}

func (s *Store) load() (*snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return newSnapshot(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}

	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing index %s: %w", s.path, err)
	}
	if f.Version > formatVersion {
		return nil, fmt.Errorf("index %s has unsupported version %d", s.path, f.Version)
	}
	return newSnapshot(f.Documents), nil
}

// ExistsByHash reports whether the content hash is stored.
func (s *Store) ExistsByHash(_ context.Context, contentHash string) (bool, error) {
	_, ok := s.current.Load().byHash[contentHash]
	return ok, nil
}

// Insert stores doc unless its content hash is already present.
func (s *Store) Insert(_ context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.current.Load()
	if id, ok := cur.byHash[doc.ContentHash]; ok {
		return &domain.DuplicateError{ExistingID: id}
	}
	if _, ok := cur.byID[doc.ID]; ok {
		return &domain.DuplicateError{ExistingID: doc.ID}
	}

	docs := make([]record.Document, len(cur.docs), len(cur.docs)+1)
	copy(docs, cur.docs)
	docs = append(docs, record.FromDomain(doc))

	data, err := json.MarshalIndent(indexFile{Version: formatVersion, Documents: docs}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling index: %w", err)
	}
	if err := s.write(s.path, data); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}

	s.current.Store(newSnapshot(docs))
	return nil
}

// Get retrieves a document by ID.
func (s *Store) Get(_ context.Context, id string) (*domain.Document, error) {
	snap := s.current.Load()
	i, ok := snap.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return snap.docs[i].ToDomain(), nil
}

// List returns all documents in insertion order.
func (s *Store) List(_ context.Context) ([]domain.Document, error) {
	snap := s.current.Load()
	docs := make([]domain.Document, len(snap.docs))
	for i, r := range snap.docs {
		docs[i] = *r.ToDomain()
	}
	return docs, nil
}
