// Package storage opens the configured document store and blob store.
package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/pdfz/internal/adapters/driven/storage/blob"
	"github.com/custodia-labs/pdfz/internal/adapters/driven/storage/bolt"
	"github.com/custodia-labs/pdfz/internal/adapters/driven/storage/jsonfile"
	"github.com/custodia-labs/pdfz/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/pdfz/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/pdfz/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
)

// Stores bundles the document records with the retained PDF bytes.
type Stores struct {
	Documents driven.DocumentStore
	Blobs     driven.BlobStore
}

// Close releases the document store.
func (s *Stores) Close() error {
	if s == nil || s.Documents == nil {
		return nil
	}
	return s.Documents.Close()
}

// Open creates the stores selected by settings.
// Persistent backends need a data directory for blobs; postgres also needs a DSN.
func Open(settings domain.StoreSettings) (*Stores, error) {
	if !settings.Backend.IsValid() {
		return nil, fmt.Errorf("%w: unknown store backend %q", domain.ErrInvalidInput, settings.Backend)
	}

	if settings.Backend == domain.StoreBackendMemory {
		return &Stores{
			Documents: memory.NewDocumentStore(),
			Blobs:     memory.NewBlobStore(),
		}, nil
	}

	if strings.TrimSpace(settings.DataDir) == "" {
		return nil, fmt.Errorf("%w: store.data_dir is required for the %s backend", domain.ErrInvalidInput, settings.Backend)
	}

	blobs, err := blob.NewStore(settings.DataDir)
	if err != nil {
		return nil, err
	}

	docs, err := openDocuments(settings)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", settings.Backend, err)
	}
	return &Stores{Documents: docs, Blobs: blobs}, nil
}

func openDocuments(settings domain.StoreSettings) (driven.DocumentStore, error) {
	switch settings.Backend {
	case domain.StoreBackendSQLite:
		return sqlite.NewStore(settings.DataDir)
	case domain.StoreBackendBolt:
		return bolt.NewStore(settings.DataDir)
	case domain.StoreBackendJSON:
		return jsonfile.NewStore(settings.DataDir)
	case domain.StoreBackendPostgres:
		if strings.TrimSpace(settings.DSN) == "" {
			return nil, errors.New("store.dsn is required")
		}
		return postgres.NewStore(settings.DSN)
	default:
		return nil, fmt.Errorf("unsupported backend %q", settings.Backend)
	}
}
