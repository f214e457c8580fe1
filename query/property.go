package query

import (
	"strings"

	"github.com/syssam/dao/dialect/sql/schema"
	"github.com/syssam/dao/statement"
)

// Property describes one mapped column of an entity type. Properties are
// created once per entity type and shared by every query referencing it.
type Property struct {
	// Ordinal is the position of the column in the table's column list.
	Ordinal int
	// Name is the entity field name.
	Name string
	// Type is the semantic column type.
	Type schema.Type
	// PrimaryKey reports whether the column is part of the primary key.
	PrimaryKey bool
	// Column is the column name.
	Column string
	// Table is the table the column belongs to.
	Table string

	alias string
}

// NewProperty returns the property of column at ordinal in table.
func NewProperty(table string, ordinal int, name string, typ schema.Type, pk bool, column string) Property {
	return Property{Ordinal: ordinal, Name: name, Type: typ, PrimaryKey: pk, Column: column, Table: table}
}

// Properties returns the properties of every column of t, named after
// their columns.
func Properties(t *schema.Table) []Property {
	props := make([]Property, len(t.Columns))
	for i, c := range t.Columns {
		props[i] = NewProperty(t.Name, i, c.Name, c.Type, c.PrimaryKey, c.Name)
	}
	return props
}

// As returns a copy of p that is qualified with the given table alias.
// It is used to reference the columns of a joined table.
func (p Property) As(alias string) Property {
	p.alias = alias
	return p
}

// Prefix returns the alias or table name the column is qualified with.
func (p Property) Prefix() string {
	if p.alias != "" {
		return p.alias
	}
	return p.Table
}

// Eq returns the condition column = v.
func (p Property) Eq(v any) Condition { return p.cond("=?", v) }

// NotEq returns the condition column <> v.
func (p Property) NotEq(v any) Condition { return p.cond("<>?", v) }

// Like returns the condition column LIKE pattern.
func (p Property) Like(pattern string) Condition { return p.cond(" LIKE ?", pattern) }

// Between returns the condition column BETWEEN lo AND hi.
func (p Property) Between(lo, hi any) Condition { return p.cond(" BETWEEN ? AND ?", lo, hi) }

// In returns the condition column IN (vs...). An empty list matches no row.
func (p Property) In(vs ...any) Condition {
	if len(vs) == 0 {
		return Raw("1=0")
	}
	return p.cond(" IN ("+placeholders(len(vs))+")", vs...)
}

// NotIn returns the condition column NOT IN (vs...). An empty list
// matches every row.
func (p Property) NotIn(vs ...any) Condition {
	if len(vs) == 0 {
		return Raw("1=1")
	}
	return p.cond(" NOT IN ("+placeholders(len(vs))+")", vs...)
}

// Gt returns the condition column > v.
func (p Property) Gt(v any) Condition { return p.cond(">?", v) }

// Lt returns the condition column < v.
func (p Property) Lt(v any) Condition { return p.cond("<?", v) }

// Ge returns the condition column >= v.
func (p Property) Ge(v any) Condition { return p.cond(">=?", v) }

// Le returns the condition column <= v.
func (p Property) Le(v any) Condition { return p.cond("<=?", v) }

// IsNull returns the condition column IS NULL.
func (p Property) IsNull() Condition { return p.cond(" IS NULL") }

// IsNotNull returns the condition column IS NOT NULL.
func (p Property) IsNotNull() Condition { return p.cond(" IS NOT NULL") }

func (p Property) cond(op string, vs ...any) Condition {
	return &propertyCondition{prop: p, op: op, values: vs}
}

func (p Property) columnName() string { return p.Column }

func (p Property) appendSelect(b *statement.Builder, r resolver) {
	b.Column(r.alias(p.Prefix()), p.Column)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
