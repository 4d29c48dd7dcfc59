// Package sqlite provides the default SQLite-backed driven.DocumentStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// content_hash carries a UNIQUE constraint, which is what makes Insert an
// atomic check-and-insert.
//
// # Data Location
//
// By default, the database is stored at ~/.pdfz/data/documents.db
//
// # Thread Safety
//
// Readers run concurrently against WAL snapshots. Inserts are serialised
// through a single writer.
package sqlite
