// Package bolt provides a driven.DocumentStore backed by a single bbolt file.
//
// Documents are kept as JSON records in three buckets: documents by ID,
// content hashes to ID, and an insertion sequence to ID. Every insert is one
// read-write transaction, so a document and its indexes commit together or
// not at all. bbolt allows one writer and many MVCC readers.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/custodia-labs/pdfz/internal/adapters/driven/storage/record"
	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
)

// FileName is the database file name inside the data directory.
const FileName = "documents.bolt"

var (
	bucketDocuments = []byte("documents")
	bucketHashes    = []byte("hashes")
	bucketOrder     = []byte("order")
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Store is a bbolt-backed driven.DocumentStore.
type Store struct {
	db *bbolt.DB
}

// NewStore opens (or creates) the bolt file in dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := bbolt.Open(filepath.Join(dataDir, FileName), 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDocuments, bucketHashes, bucketOrder} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// Close closes the bolt file.
func (s *Store) Close() error {
	return s.db.Close()
}

// ExistsByHash reports whether the content hash is stored.
func (s *Store) ExistsByHash(_ context.Context, contentHash string) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(bucketHashes).Get([]byte(contentHash)) != nil
		return nil
	})
	return exists, err
}

// errDuplicate aborts the update transaction without being a write failure.
type errDuplicate struct{ id string }

func (e errDuplicate) Error() string { return "duplicate " + e.id }

// Insert stores doc unless its content hash is already present.
func (s *Store) Insert(_ context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(record.FromDomain(doc))
	if err != nil {
		return fmt.Errorf("marshalling document: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		hashes, docs, order := tx.Bucket(bucketHashes), tx.Bucket(bucketDocuments), tx.Bucket(bucketOrder)
		if hashes == nil || docs == nil || order == nil {
			return errors.New("bolt buckets missing")
		}
		if id := hashes.Get([]byte(doc.ContentHash)); id != nil {
			return errDuplicate{id: string(id)}
		}
		if docs.Get([]byte(doc.ID)) != nil {
			return errDuplicate{id: doc.ID}
		}

		seq, err := order.NextSequence()
		if err != nil {
			return err
		}

		if err := docs.Put([]byte(doc.ID), data); err != nil {
			return err
		}
		if err := hashes.Put([]byte(doc.ContentHash), []byte(doc.ID)); err != nil {
			return err
		}
		return order.Put(seqKey(seq), []byte(doc.ID))
	})

	var dup errDuplicate
	switch {
	case err == nil:
		return nil
	case errors.As(err, &dup):
		return &domain.DuplicateError{ExistingID: dup.id}
	default:
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
}

// Get retrieves a document by ID.
func (s *Store) Get(_ context.Context, id string) (*domain.Document, error) {
	var doc *domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocuments).Get([]byte(id))
		if data == nil {
			return domain.ErrNotFound
		}
		var err error
		doc, err = decode(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns all documents in insertion order.
func (s *Store) List(_ context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		documents := tx.Bucket(bucketDocuments)
		return tx.Bucket(bucketOrder).ForEach(func(_, id []byte) error {
			data := documents.Get(id)
			if data == nil {
				return fmt.Errorf("order index references missing document %s", id)
			}
			doc, err := decode(data)
			if err != nil {
				return err
			}
			docs = append(docs, *doc)
			return nil
		})
	})
	return docs, err
}

func decode(data []byte) (*domain.Document, error) {
	var r record.Document
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return r.ToDomain(), nil
}

// seqKey encodes big-endian so ForEach walks in insertion order.
func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
