package statement

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dao/dialect"
	"github.com/syssam/dao/dialect/sql"
)

var noteCols = []string{"_id", "TEXT", "DATE"}

func TestTableSQLite(t *testing.T) {
	tbl := New(dialect.SQLite, "NOTE", noteCols, []string{"_id"})

	assert.Equal(t, `INSERT INTO "NOTE" ("_id","TEXT","DATE") VALUES (?,?,?)`, tbl.Insert().SQL())
	assert.Equal(t, `INSERT OR REPLACE INTO "NOTE" ("_id","TEXT","DATE") VALUES (?,?,?)`, tbl.InsertOrReplace().SQL())
	assert.Equal(t, `UPDATE "NOTE" SET "_id"=?,"TEXT"=?,"DATE"=? WHERE "_id"=?`, tbl.Update().SQL())
	assert.Equal(t, 4, tbl.Update().NumParams(), "key is bound at column count + 1")
	assert.Equal(t, `DELETE FROM "NOTE" WHERE "_id"=?`, tbl.Delete().SQL())
	assert.Equal(t, `DELETE FROM "NOTE"`, tbl.DeleteAll())
	assert.Equal(t, `SELECT T."_id",T."TEXT",T."DATE" FROM "NOTE" T`, tbl.SelectAll(false))
	assert.Equal(t, `SELECT DISTINCT T."_id",T."TEXT",T."DATE" FROM "NOTE" T`, tbl.SelectAll(true))
	assert.Equal(t, `SELECT T."_id",T."TEXT",T."DATE" FROM "NOTE" T WHERE T."_id"=?`, tbl.SelectByKey())
	assert.Equal(t, `SELECT T."_id",T."TEXT",T."DATE" FROM "NOTE" T WHERE T.ROWID=?`, tbl.SelectByRowID())
	assert.Equal(t, `SELECT T."_id" FROM "NOTE" T`, tbl.SelectKeys())
	assert.Equal(t, `SELECT T."TEXT" FROM "NOTE" T`, tbl.SelectColumns("TEXT"))
	assert.Equal(t, `SELECT COUNT(*) FROM "NOTE"`, tbl.CountStar())

	assert.Equal(t, "NOTE", tbl.Name())
	assert.Equal(t, dialect.SQLite, tbl.Dialect())
	assert.Equal(t, noteCols, tbl.AllColumns())
	assert.Equal(t, []string{"_id"}, tbl.PkColumns())
	assert.Equal(t, []string{"TEXT", "DATE"}, tbl.NonPkColumns())
}

func TestTablePostgres(t *testing.T) {
	tbl := New(dialect.Postgres, "NOTE", noteCols, []string{"_id"}, WithRowIDColumn("_id"))

	assert.Equal(t, `INSERT INTO "NOTE" ("_id","TEXT","DATE") VALUES ($1,$2,$3) RETURNING "_id"`, tbl.Insert().SQL())
	assert.Equal(t,
		`INSERT INTO "NOTE" ("_id","TEXT","DATE") VALUES ($1,$2,$3) ON CONFLICT ("_id") DO UPDATE SET "TEXT"=EXCLUDED."TEXT","DATE"=EXCLUDED."DATE" RETURNING "_id"`,
		tbl.InsertOrReplace().SQL())
	assert.Equal(t, `UPDATE "NOTE" SET "_id"=$1,"TEXT"=$2,"DATE"=$3 WHERE "_id"=$4`, tbl.Update().SQL())
	assert.Equal(t, `SELECT T."_id",T."TEXT",T."DATE" FROM "NOTE" T WHERE T."_id"=?`, tbl.SelectByRowID(),
		"select texts keep '?' and are rebound when executed")

	noRowID := New(dialect.Postgres, "TAG", []string{"NAME"}, []string{"NAME"})
	assert.Empty(t, noRowID.SelectByRowID())
	assert.Equal(t, `INSERT INTO "TAG" ("NAME") VALUES ($1) ON CONFLICT ("NAME") DO NOTHING`, noRowID.InsertOrReplace().SQL())
}

func TestTableMySQL(t *testing.T) {
	tbl := New(dialect.MySQL, "ORDERS", []string{"ID", "CUSTOMER_ID", "AMOUNT"}, []string{"ID"}, WithRowIDColumn("ID"))
	assert.Equal(t, "INSERT INTO `ORDERS` (`ID`,`CUSTOMER_ID`,`AMOUNT`) VALUES (?,?,?)", tbl.Insert().SQL())
	assert.Equal(t, "REPLACE INTO `ORDERS` (`ID`,`CUSTOMER_ID`,`AMOUNT`) VALUES (?,?,?)", tbl.InsertOrReplace().SQL())
	assert.Equal(t, "SELECT T.`ID`,T.`CUSTOMER_ID`,T.`AMOUNT` FROM `ORDERS` T WHERE T.`ID`=?", tbl.SelectByRowID())
}

func TestTableCompositeKey(t *testing.T) {
	tbl := New(dialect.SQLite, "MEMBERSHIP", []string{"GROUP_ID", "USER_ID", "ROLE"}, []string{"GROUP_ID", "USER_ID"})
	assert.Equal(t, `UPDATE "MEMBERSHIP" SET "GROUP_ID"=?,"USER_ID"=?,"ROLE"=? WHERE "GROUP_ID"=? AND "USER_ID"=?`, tbl.Update().SQL())
	assert.Equal(t, `DELETE FROM "MEMBERSHIP" WHERE "GROUP_ID"=? AND "USER_ID"=?`, tbl.Delete().SQL())
	assert.Equal(t, `SELECT T."GROUP_ID",T."USER_ID",T."ROLE" FROM "MEMBERSHIP" T WHERE T."GROUP_ID"=? AND T."USER_ID"=?`, tbl.SelectByKey())
}

func TestTableMemoized(t *testing.T) {
	tbl := New(dialect.SQLite, "NOTE", noteCols, []string{"_id"})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[*sql.Statement]bool{}
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := tbl.Insert()
			_ = tbl.SelectAll(false)
			_ = tbl.SelectColumns("TEXT", "DATE")
			mu.Lock()
			seen[s] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, seen, 1, "every caller observes the single published statement")
	assert.Same(t, tbl.Insert(), tbl.Insert())
	assert.Same(t, tbl.Update(), tbl.Update())
	assert.NotSame(t, tbl.Insert(), tbl.InsertOrReplace())
	assert.Equal(t, tbl.SelectColumns("TEXT", "DATE"), `SELECT T."TEXT",T."DATE" FROM "NOTE" T`)
	assert.NotEqual(t, tbl.SelectColumns("TEXT", "DATE"), tbl.SelectColumns("DATE", "TEXT"))
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(dialect.MySQL)
	b.Select("NOTE", "", []string{"A", "B"}, true)
	assert.Equal(t, "SELECT DISTINCT `A`,`B` FROM `NOTE`", b.String())
}
