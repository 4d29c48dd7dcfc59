package driven

import (
	"context"

	"github.com/custodia-labs/pdfz/internal/core/domain"
)

// DocumentStore persists ingested documents.
// The store is append-only: documents are never updated or deleted.
//
// Implementations must allow concurrent readers alongside a single writer,
// and readers must only ever observe fully committed documents.
type DocumentStore interface {
	// ExistsByHash reports whether a document with the content hash is stored.
	ExistsByHash(ctx context.Context, contentHash string) (bool, error)

	// Insert atomically stores doc unless its content hash is already present.
	// On a hash collision it returns a *domain.DuplicateError naming the
	// existing document. A failed durable write returns an error matching
	// domain.ErrStoreWrite and leaves the previous state intact.
	Insert(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID.
	// Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns all documents in insertion order.
	List(ctx context.Context) ([]domain.Document, error)

	// Close releases the underlying resources.
	Close() error
}

// BlobStore retains the original bytes of ingested documents, keyed by
// their full content hash.
type BlobStore interface {
	// Put writes data under key atomically and returns its storage path.
	// Writing identical content to an existing key is a no-op. Different
	// content under an existing key is refused with domain.ErrIDConflict.
	Put(ctx context.Context, key string, data []byte) (string, error)

	// Get reads the bytes stored under key.
	// Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, key string) ([]byte, error)
}
