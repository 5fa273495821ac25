// Package sqlite provides a SQLite-based implementation of driven.IndexStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.docquery/data/index.db
//
// # Thread Safety
//
// All operations are thread-safe. Writes take an immediate transaction, so
// an upsert replaces a document's chunks in one commit. Upserts of the same
// document are additionally serialised in process.
package sqlite
