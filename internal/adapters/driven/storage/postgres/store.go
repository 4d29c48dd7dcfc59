// Package postgres provides a driven.DocumentStore backed by PostgreSQL
// (or CockroachDB) through lib/pq. It lets several pdfz processes share one
// document store; the UNIQUE constraint on content_hash arbitrates between
// them.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/custodia-labs/pdfz/internal/adapters/driven/storage/record"
	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
)

const (
	connectTimeout = 5 * time.Second

	createTableQuery = `
		CREATE TABLE IF NOT EXISTS documents (
			seq               BIGSERIAL PRIMARY KEY,
			id                TEXT        NOT NULL UNIQUE,
			content_hash      TEXT        NOT NULL UNIQUE,
			source_url        TEXT        NOT NULL,
			title             TEXT        NOT NULL,
			authors           TEXT[]      NOT NULL DEFAULT '{}',
			publication_date  DATE,
			page_count        INTEGER     NOT NULL CHECK (page_count >= 1),
			table_of_contents JSONB       NOT NULL DEFAULT '[]',
			summary           TEXT        NOT NULL DEFAULT '',
			model             TEXT        NOT NULL DEFAULT '',
			ingested_at       TIMESTAMPTZ NOT NULL,
			storage_path      TEXT        NOT NULL
		)`

	documentColumns = `id, content_hash, source_url, title, authors, publication_date,
		page_count, table_of_contents, summary, model, ingested_at, storage_path`

	insertQuery = `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT DO NOTHING`

	existsQuery       = "SELECT EXISTS (SELECT 1 FROM documents WHERE content_hash = $1)"
	findByHashQuery   = "SELECT id FROM documents WHERE content_hash = $1"
	findDocumentQuery = "SELECT " + documentColumns + " FROM documents WHERE id = $1"
	listQuery         = "SELECT " + documentColumns + " FROM documents ORDER BY seq"
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Store is a PostgreSQL-backed driven.DocumentStore.
type Store struct {
	db *sql.DB
}

// NewStore connects to dsn and ensures the schema exists.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, createTableQuery); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close terminates the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ExistsByHash reports whether the content hash is stored.
func (s *Store) ExistsByHash(ctx context.Context, contentHash string) (bool, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, existsQuery, contentHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists by hash: %w", err)
	}
	return exists, nil
}

// Insert stores doc unless its content hash is already present.
func (s *Store) Insert(ctx context.Context, doc *domain.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	toc, err := json.Marshal(record.FromOutline(doc.TableOfContents))
	if err != nil {
		return fmt.Errorf("marshalling table of contents: %w", err)
	}
	var published any
	if doc.PublicationDate != nil {
		published = doc.PublicationDate.Format("2006-01-02")
	}
	authors := doc.Authors
	if authors == nil {
		authors = []string{}
	}

	res, err := s.db.ExecContext(ctx, insertQuery,
		doc.ID, doc.ContentHash, doc.SourceURL, doc.Title, pq.Array(authors), published,
		doc.PageCount, string(toc), doc.Summary, doc.Model, doc.IngestedAt.UTC(), doc.StoragePath)
	if err != nil {
		if isUniqueViolationError(err) {
			return s.duplicateOf(ctx, doc)
		}
		return fmt.Errorf("%w: insert document: %w", domain.ErrStoreWrite, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreWrite, err)
	}
	if n == 0 {
		return s.duplicateOf(ctx, doc)
	}
	return nil
}

func (s *Store) duplicateOf(ctx context.Context, doc *domain.Document) error {
	var existing string
	err := s.db.QueryRowContext(ctx, findByHashQuery, doc.ContentHash).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		existing = doc.ID
	} else if err != nil {
		return fmt.Errorf("find existing document: %w", err)
	}
	return &domain.DuplicateError{ExistingID: existing}
}

// Get retrieves a document by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx, findDocumentQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find document: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return doc, nil
}

// List returns all documents in insertion order.
func (s *Store) List(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*domain.Document, error) {
	var (
		doc       domain.Document
		authors   pq.StringArray
		published pq.NullTime
		toc       []byte
	)

	err := row.Scan(&doc.ID, &doc.ContentHash, &doc.SourceURL, &doc.Title, &authors, &published,
		&doc.PageCount, &toc, &doc.Summary, &doc.Model, &doc.IngestedAt, &doc.StoragePath)
	if err != nil {
		return nil, err
	}

	doc.Authors = []string(authors)
	doc.IngestedAt = doc.IngestedAt.UTC()
	if published.Valid {
		t := published.Time.UTC()
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		doc.PublicationDate = &d
	}

	var entries []record.OutlineEntry
	if err := json.Unmarshal(toc, &entries); err != nil {
		return nil, fmt.Errorf("decoding table of contents: %w", err)
	}
	doc.TableOfContents = record.ToOutline(entries)

	return &doc, nil
}

// isUniqueViolationError returns true if err is a unique constraint violation.
func isUniqueViolationError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code.Name() == "unique_violation"
}
