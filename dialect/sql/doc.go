// Package sql implements the engine boundary on top of database/sql.
//
// # Driver
//
// Driver adapts a *sql.DB to dialect.Driver. The dialect name is also the
// database/sql driver name, so the matching driver package must be
// imported by the program:
//
//	import (
//	    _ "github.com/go-sql-driver/mysql"
//	    _ "github.com/lib/pq"
//	    _ "modernc.org/sqlite"
//	)
//
//	drv, err := sql.Open(dialect.SQLite, "file::memory:")
//
// # Statements
//
// A Statement pairs fixed SQL text with a positional bind buffer. It is
// shared, so binding and executing happen under its lock:
//
//	stmt := sql.NewStatement(dialect.Postgres, `DELETE FROM "NOTE" WHERE "_id"=?`)
//	stmt.Lock()
//	stmt.BindInt64(1, 42)
//	_, err := stmt.Exec(ctx, drv)
//	stmt.Unlock()
//
// ExecInsert returns the engine-assigned row id, or -1 when the engine
// reports that no row was written.
//
// # Cursors
//
// QueryCursor runs a query and yields Row values. Row getters take the
// column position, which lets entity adapters read a row at an offset
// when several tables are joined into one result.
//
// # Errors
//
// Errors reported by the engine are never wrapped. IsConstraintError and
// its variants classify them for PostgreSQL, MySQL and SQLite.
//
// # Instrumentation
//
//	stats := sql.NewStatsDriver(drv, sql.WithSlowThreshold(200*time.Millisecond), sql.WithSlowQueryLog(nil))
//	debug := sql.NewDebugDriver(drv, logger)
package sql
