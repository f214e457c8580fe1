// Package statement caches the SQL of the fixed set of per-table
// operations used by data-access objects.
package statement

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/syssam/dao/dialect"
	"github.com/syssam/dao/dialect/sql"
)

// Table lazily builds and memoizes the statements of one table. Getters
// are safe for concurrent use without locking: two goroutines racing on
// the first call may both build a statement, and the loser's copy is
// dropped. The text only depends on the fixed table description, so both
// copies are equal.
//
// Executable statements (insert, update, delete) are shared and must be
// locked around bind and execute; SELECT texts are immutable strings.
type Table struct {
	dialect string
	name    string
	all     []string
	pk      []string
	rowID   string

	insert          atomic.Pointer[sql.Statement]
	insertOrReplace atomic.Pointer[sql.Statement]
	update          atomic.Pointer[sql.Statement]
	delete          atomic.Pointer[sql.Statement]

	selectAll         atomic.Pointer[string]
	selectAllDistinct atomic.Pointer[string]
	selectByKey       atomic.Pointer[string]
	selectByRowID     atomic.Pointer[string]
	selectKeys        atomic.Pointer[string]
	countStar         atomic.Pointer[string]
	deleteAll         atomic.Pointer[string]
	selectColumns     sync.Map // joined column list -> SQL
}

// Option configures a Table.
type Option func(*Table)

// WithRowIDColumn names an integer key column that the engine assigns on
// insert. On engines without an implicit row id it backs SelectByRowID,
// and on Postgres inserts return it through RETURNING.
func WithRowIDColumn(name string) Option {
	return func(t *Table) {
		t.rowID = name
	}
}

// New returns the statement cache of table, whose columns are all and
// whose primary key is made of pk.
func New(dialectName, table string, all, pk []string, opts ...Option) *Table {
	t := &Table{
		dialect: dialectName,
		name:    table,
		all:     append([]string(nil), all...),
		pk:      append([]string(nil), pk...),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Dialect returns the dialect the statements are written for.
func (t *Table) Dialect() string { return t.dialect }

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// AllColumns returns the column names in ordinal order.
func (t *Table) AllColumns() []string { return t.all }

// PkColumns returns the primary key column names.
func (t *Table) PkColumns() []string { return t.pk }

// NonPkColumns returns the columns that are not part of the primary key.
func (t *Table) NonPkColumns() []string {
	var cols []string
	for _, c := range t.all {
		if !contains(t.pk, c) {
			cols = append(cols, c)
		}
	}
	return cols
}

func loadStmt(p *atomic.Pointer[sql.Statement], build func() *sql.Statement) *sql.Statement {
	if s := p.Load(); s != nil {
		return s
	}
	p.CompareAndSwap(nil, build())
	return p.Load()
}

func loadText(p *atomic.Pointer[string], build func() string) string {
	if s := p.Load(); s != nil {
		return *s
	}
	s := build()
	p.CompareAndSwap(nil, &s)
	return *p.Load()
}

func (t *Table) returning() string {
	if t.dialect == dialect.Postgres {
		return t.rowID
	}
	return ""
}

// Insert returns the INSERT statement binding all columns.
func (t *Table) Insert() *sql.Statement {
	return loadStmt(&t.insert, func() *sql.Statement {
		ret := t.returning()
		return sql.NewInsertStatement(t.dialect, insertSQL(t.dialect, t.name, t.all, t.pk, false, ret), ret != "")
	})
}

// InsertOrReplace returns the INSERT statement that replaces a row
// holding the same key.
func (t *Table) InsertOrReplace() *sql.Statement {
	return loadStmt(&t.insertOrReplace, func() *sql.Statement {
		ret := t.returning()
		return sql.NewInsertStatement(t.dialect, insertSQL(t.dialect, t.name, t.all, t.pk, true, ret), ret != "")
	})
}

// Update returns the UPDATE statement. All columns are bound first, then
// the key columns.
func (t *Table) Update() *sql.Statement {
	return loadStmt(&t.update, func() *sql.Statement {
		return sql.NewStatement(t.dialect, updateSQL(t.dialect, t.name, t.all, t.pk))
	})
}

// Delete returns the DELETE statement filtering by key.
func (t *Table) Delete() *sql.Statement {
	return loadStmt(&t.delete, func() *sql.Statement {
		return sql.NewStatement(t.dialect, deleteSQL(t.dialect, t.name, t.pk))
	})
}

// DeleteAll returns the statement deleting every row.
func (t *Table) DeleteAll() string {
	return loadText(&t.deleteAll, func() string {
		return deleteSQL(t.dialect, t.name, nil)
	})
}

// SelectAll returns SELECT T."col",... FROM "table" T.
func (t *Table) SelectAll(distinct bool) string {
	p := &t.selectAll
	if distinct {
		p = &t.selectAllDistinct
	}
	return loadText(p, func() string {
		return NewBuilder(t.dialect).Select(t.name, Alias, t.all, distinct).String()
	})
}

// SelectByKey returns SelectAll filtered by the key columns.
func (t *Table) SelectByKey() string {
	return loadText(&t.selectByKey, func() string {
		b := NewBuilder(t.dialect).Select(t.name, Alias, t.all, false)
		b.WriteString(" WHERE ")
		b.Assignments(Alias, t.pk, " AND ")
		return b.String()
	})
}

// SelectByRowID returns SelectAll filtered by the engine row id. It is
// empty if the engine has no implicit row id and no row id column was
// configured.
func (t *Table) SelectByRowID() string {
	return loadText(&t.selectByRowID, func() string {
		b := NewBuilder(t.dialect).Select(t.name, Alias, t.all, false)
		switch {
		case t.dialect == dialect.SQLite:
			b.WriteString(" WHERE " + Alias + ".ROWID=?")
		case t.rowID != "":
			b.WriteString(" WHERE ")
			b.Column(Alias, t.rowID).WriteString("=?")
		default:
			return ""
		}
		return b.String()
	})
}

// SelectKeys returns a SELECT of the key columns only.
func (t *Table) SelectKeys() string {
	return loadText(&t.selectKeys, func() string {
		return NewBuilder(t.dialect).Select(t.name, Alias, t.pk, false).String()
	})
}

// SelectColumns returns a SELECT of the given columns, memoized per list.
func (t *Table) SelectColumns(cols ...string) string {
	key := strings.Join(cols, "\x00")
	if s, ok := t.selectColumns.Load(key); ok {
		return s.(string)
	}
	s, _ := t.selectColumns.LoadOrStore(key, NewBuilder(t.dialect).Select(t.name, Alias, cols, false).String())
	return s.(string)
}

// CountStar returns SELECT COUNT(*) FROM "table".
func (t *Table) CountStar() string {
	return loadText(&t.countStar, func() string {
		b := NewBuilder(t.dialect)
		b.WriteString("SELECT COUNT(*) FROM ")
		return b.Ident(t.name).String()
	})
}
