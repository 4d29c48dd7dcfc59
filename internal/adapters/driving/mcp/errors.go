// Package mcp provides an MCP (Model Context Protocol) server adapter for pdfz.
// It lets a retrieval client list documents, read their outlines and pull
// page ranges on demand. Ingestion is not exposed here.
package mcp

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/pdfz/internal/core/domain"
)

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// Error codes prefixed to tool error messages.
const (
	codeNotFound     = "not_found"
	codeRange        = "range_error"
	codeInvalidInput = "invalid_input"
	codeInternal     = "internal_error"
)

// errorCode classifies a service error for the client.
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return codeNotFound
	case errors.Is(err, domain.ErrRange):
		return codeRange
	case errors.Is(err, domain.ErrInvalidInput):
		return codeInvalidInput
	default:
		return codeInternal
	}
}

// toolError prefixes err with its code. The SDK reports handler errors to
// the client as tool results with isError set.
func toolError(err error) error {
	return fmt.Errorf("%s: %w", errorCode(err), err)
}
