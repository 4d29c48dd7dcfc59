// Package domain defines the core business entities for pdfz.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested PDF with its extracted metadata
//   - OutlineEntry: One flattened table-of-contents entry
//   - PageContent: A rendered page range read back from a document
//   - ExtractedMetadata: The validated result of the metadata LLM call
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
