// Package dao is an embeddable object-relational mapping runtime.
//
// It maps typed entities to rows of one table each, builds and caches the
// SQL needed for CRUD and ad-hoc queries, and keeps at most one in-memory
// object per primary-key value through an identity scope.
//
// # Packages
//
//   - dao: error kinds, the IdentityScope contract and Config
//   - dialect: engine boundary, quoting, placeholder rebinding, transaction context
//   - dialect/sql: database/sql driver, statements, cursors and driver wrappers
//   - statement: per-table statement cache
//   - query: properties, conditions, query/join/union builders and compiled queries
//   - entity: the generic data-access object
//   - identity: the default identity scope
//
// # Usage
//
//	drv, err := sql.Open(dialect.SQLite, "file::memory:")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	notes, err := entity.New[Note, int64](drv, noteTable, noteAdapter{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	id, err := notes.Insert(ctx, &Note{Text: "hello"})
//	n, err := notes.Load(ctx, id)
//
// Errors are classified with IsUsageError, IsConsistencyError,
// IsNotFound, IsNotSingular and IsWriteAnomaly. Errors returned by the
// engine are passed through unchanged.
package dao
