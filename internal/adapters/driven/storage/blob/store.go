// Package blob retains the original bytes of ingested PDFs on the local
// filesystem, one file per document.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/pdfz/internal/adapters/driven/storage/fsutil"
	"github.com/custodia-labs/pdfz/internal/core/domain"
	"github.com/custodia-labs/pdfz/internal/core/ports/driven"
)

// DirName is the blob directory inside the data directory.
const DirName = "blobs"

// Ensure Store implements the interface.
var _ driven.BlobStore = (*Store)(nil)

// Store writes blobs as <dir>/<key>.pdf.
type Store struct {
	dir string
}

// NewStore creates the blob directory under dataDir.
func NewStore(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, DirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the blob directory.
func (s *Store) Dir() string {
	return s.dir
}

// Put writes data under key atomically. An existing blob is never
// replaced: identical bytes are a no-op, different bytes an ErrIDConflict.
func (s *Store) Put(_ context.Context, key string, data []byte) (string, error) {
	path, err := s.path(key)
	if err != nil {
		return "", err
	}

	existing, err := os.ReadFile(path)
	switch {
	case err == nil && bytes.Equal(existing, data):
		return path, nil
	case err == nil:
		return "", fmt.Errorf("%w: blob %s holds different content", domain.ErrIDConflict, key)
	case !errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("reading blob %s: %w", key, err)
	}

	if err := fsutil.WriteFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("%w: writing blob %s: %w", domain.ErrStoreWrite, key, err)
	}
	return path, nil
}

// Get reads the bytes stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w", key, err)
	}
	return data, nil
}

func (s *Store) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: blob key %q", domain.ErrInvalidInput, key)
	}
	return filepath.Join(s.dir, key+".pdf"), nil
}
