package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or store backend.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Ingestion is disabled without it; retrieval keeps working.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// Ingestion Errors.

	// ErrDownload indicates the source could not be fetched, or it did not
	// answer with PDF content.
	ErrDownload = errors.New("download failed")

	// ErrInvalidDocument indicates the bytes are not a readable PDF.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrDuplicate indicates content with the same hash is already stored.
	// Use DuplicateError to recover the existing document ID.
	ErrDuplicate = errors.New("duplicate content")

	// ErrIDConflict indicates different content derived the ID of a stored
	// document. The stored document and its bytes are left as they are.
	ErrIDConflict = errors.New("document id conflict")

	// ErrExtraction indicates the LLM answered but the response could not
	// be turned into valid metadata.
	ErrExtraction = errors.New("metadata extraction failed")

	// ErrUpstream indicates the LLM call itself failed or timed out.
	ErrUpstream = errors.New("upstream model error")

	// Retrieval Errors.

	// ErrRange indicates a page range outside the document bounds.
	ErrRange = errors.New("page range out of bounds")

	// Storage Errors.

	// ErrStoreWrite indicates a durable write failed. The store is left in
	// its previous state.
	ErrStoreWrite = errors.New("store write failed")

	// ErrMissingContent indicates a stored document whose retained bytes
	// cannot be found.
	ErrMissingContent = errors.New("retained content missing")
)

// DuplicateError is returned when content with the same hash already exists.
// It matches ErrDuplicate with errors.Is.
type DuplicateError struct {
	// ExistingID is the ID of the document already holding the content.
	ExistingID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate content: already stored as document %s", e.ExistingID)
}

// Is reports whether target is ErrDuplicate.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// ExistingID extracts the existing document ID from a duplicate error chain.
// Returns false when err is not a DuplicateError.
func ExistingID(err error) (string, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup.ExistingID, true
	}
	return "", false
}
