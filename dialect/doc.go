// Package dialect defines the boundary between the mapping runtime and the
// SQL engine.
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL database
//   - MySQL: MySQL/MariaDB database
//   - SQLite: SQLite database
//
// Dialects differ in identifier quoting (Quote), placeholder syntax
// (Rebind turns '?' into '$1', '$2', ... on Postgres) and in the default
// collation used for ordering string columns (DefaultCollation).
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Transactions
//
// A transaction travels in the context. Operations called with a context
// returned by NewTxContext (or the one RunTx passes to its callback) join
// that transaction, and register in-memory side effects with OnCommit so
// they only become visible once the engine confirms the commit:
//
//	err := dialect.RunTx(ctx, drv, nil, func(ctx context.Context) error {
//	    if _, err := notes.Insert(ctx, n1); err != nil {
//	        return err
//	    }
//	    return notes.Delete(ctx, n2)
//	})
//
// # Sub-packages
//
//   - dialect/sql: database/sql driver, statements and cursors
//   - dialect/sql/schema: table metadata validation
//   - dialect/sql/sqlite: SQLite collation registration
package dialect
