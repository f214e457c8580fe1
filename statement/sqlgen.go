package statement

import (
	"strings"

	"github.com/syssam/dao/dialect"
)

// Alias is the table alias used by every generated SELECT. Query builders
// rely on it to qualify columns of the queried table.
const Alias = "T"

// Builder is a small SQL string builder with dialect-aware identifier quoting.
type Builder struct {
	strings.Builder
	dialect string
}

// NewBuilder returns a builder for the given dialect.
func NewBuilder(dialectName string) *Builder {
	return &Builder{dialect: dialectName}
}

// Ident writes a quoted identifier.
func (b *Builder) Ident(name string) *Builder {
	b.WriteString(dialect.Quote(b.dialect, name))
	return b
}

// Column writes alias.column, or just the quoted column if alias is empty.
func (b *Builder) Column(alias, name string) *Builder {
	if alias != "" {
		b.WriteString(alias)
		b.WriteByte('.')
	}
	return b.Ident(name)
}

// Columns writes a comma separated list of (optionally aliased) columns.
func (b *Builder) Columns(alias string, names []string) *Builder {
	for i, n := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Column(alias, n)
	}
	return b
}

// Placeholders writes n comma separated '?' placeholders.
func (b *Builder) Placeholders(n int) *Builder {
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('?')
	}
	return b
}

// Assignments writes "col"=? pairs, or alias."col"=? pairs, joined by sep.
func (b *Builder) Assignments(alias string, names []string, sep string) *Builder {
	for i, n := range names {
		if i > 0 {
			b.WriteString(sep)
		}
		b.Column(alias, n).WriteString("=?")
	}
	return b
}

// Select writes SELECT [DISTINCT] alias.cols FROM "table" alias.
func (b *Builder) Select(table, alias string, cols []string, distinct bool) *Builder {
	b.WriteString("SELECT ")
	if distinct {
		b.WriteString("DISTINCT ")
	}
	b.Columns(alias, cols)
	b.WriteString(" FROM ")
	b.Ident(table)
	if alias != "" {
		b.WriteByte(' ')
		b.WriteString(alias)
	}
	return b
}

// insertSQL returns the INSERT statement. With replace the statement
// overwrites a row holding the same key.
func insertSQL(d, table string, all, pk []string, replace bool, returning string) string {
	b := NewBuilder(d)
	switch {
	case replace && d == dialect.SQLite:
		b.WriteString("INSERT OR REPLACE INTO ")
	case replace && d == dialect.MySQL:
		b.WriteString("REPLACE INTO ")
	default:
		b.WriteString("INSERT INTO ")
	}
	b.Ident(table).WriteString(" (")
	b.Columns("", all).WriteString(") VALUES (")
	b.Placeholders(len(all)).WriteByte(')')
	if replace && d == dialect.Postgres && len(pk) > 0 {
		b.WriteString(" ON CONFLICT (")
		b.Columns("", pk).WriteString(") DO ")
		var set []string
		for _, c := range all {
			if !contains(pk, c) {
				set = append(set, c)
			}
		}
		if len(set) == 0 {
			b.WriteString("NOTHING")
		} else {
			b.WriteString("UPDATE SET ")
			for i, c := range set {
				if i > 0 {
					b.WriteByte(',')
				}
				b.Ident(c).WriteString("=EXCLUDED.")
				b.Ident(c)
			}
		}
	}
	if returning != "" {
		b.WriteString(" RETURNING ")
		b.Ident(returning)
	}
	return b.String()
}

// updateSQL sets every column, so the bind order matches an INSERT and the
// key parameters follow at positions len(all)+1 onwards.
func updateSQL(d, table string, all, pk []string) string {
	b := NewBuilder(d)
	b.WriteString("UPDATE ")
	b.Ident(table).WriteString(" SET ")
	b.Assignments("", all, ",")
	b.WriteString(" WHERE ")
	b.Assignments("", pk, " AND ")
	return b.String()
}

func deleteSQL(d, table string, pk []string) string {
	b := NewBuilder(d)
	b.WriteString("DELETE FROM ")
	b.Ident(table)
	if len(pk) > 0 {
		b.WriteString(" WHERE ")
		b.Assignments("", pk, " AND ")
	}
	return b.String()
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
