package testutil

import (
	stdsql "database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/dao/dialect"
	"github.com/syssam/dao/dialect/sql"
	// LOCALIZED collation and the sqlite driver.
	_ "github.com/syssam/dao/dialect/sql/sqlite"
)

// OpenSQLite returns a driver over a private in-memory database after
// running the given DDL statements. The pool holds a single connection,
// so the database lives as long as the driver; it is closed when the
// test ends.
func OpenSQLite(t testing.TB, ddl ...string) *sql.Driver {
	t.Helper()
	db, err := stdsql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range ddl {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}
	return sql.OpenDB(dialect.SQLite, db)
}
