package query

import (
	"strings"

	"github.com/syssam/dao/statement"
)

// Selectable is a term of a projection or of a join condition: a
// property, a column reference or a SQL expression.
type Selectable interface {
	appendSelect(b *statement.Builder, r resolver)
	columnName() string
}

type columnRef struct {
	prefix string
	name   string
}

// Column references a column by name. A name of the form "alias.column"
// is qualified with alias, which may be the queried table's name.
func Column(name string) Selectable {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return columnRef{prefix: name[:i], name: name[i+1:]}
	}
	return columnRef{name: name}
}

func (c columnRef) appendSelect(b *statement.Builder, r resolver) {
	if c.prefix == "" {
		b.Ident(c.name)
		return
	}
	b.Column(r.alias(c.prefix), c.name)
}

func (c columnRef) columnName() string { return c.name }

// Expression is a SQL expression in a projection, optionally named.
type Expression struct {
	sql  string
	name string
}

// Expr returns the SQL expression sql, written as is.
func Expr(sql string) *Expression { return &Expression{sql: sql} }

// As names the result column.
func (e *Expression) As(name string) *Expression {
	e.name = name
	return e
}

func (e *Expression) appendSelect(b *statement.Builder, _ resolver) {
	b.WriteString(e.sql)
	if e.name != "" {
		b.WriteString(" AS ")
		b.Ident(e.name)
	}
}

func (e *Expression) columnName() string {
	if e.name != "" {
		return e.name
	}
	return e.sql
}

// Lit is a constant string in a projection.
type Lit struct {
	value string
	name  string
}

// Literal returns the string constant s.
func Literal(s string) *Lit { return &Lit{value: s} }

// As names the result column.
func (l *Lit) As(name string) *Lit {
	l.name = name
	return l
}

func (l *Lit) appendSelect(b *statement.Builder, _ resolver) {
	b.WriteByte('\'')
	b.WriteString(strings.ReplaceAll(l.value, "'", "''"))
	b.WriteByte('\'')
	if l.name != "" {
		b.WriteString(" AS ")
		b.Ident(l.name)
	}
}

func (l *Lit) columnName() string {
	if l.name != "" {
		return l.name
	}
	return l.value
}
