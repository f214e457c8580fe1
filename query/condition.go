package query

import (
	"strings"

	"github.com/syssam/dao/statement"
)

// Condition is a SQL predicate fragment with positional parameter values.
// Conditions are created from properties, with Raw, or by combining other
// conditions with AllOf, AnyOf or the builder's And and Or.
type Condition interface {
	appendTo(b *statement.Builder, r resolver)
	appendValues(vs []any) []any
}

// resolver maps a column prefix to the alias it is written with. Columns
// of the queried table use the fixed alias; other prefixes are kept.
type resolver struct {
	master      string
	masterAlias string
}

func (r resolver) alias(prefix string) string {
	if prefix == "" || strings.EqualFold(prefix, r.master) {
		return r.masterAlias
	}
	return prefix
}

type propertyCondition struct {
	prop   Property
	op     string
	values []any
}

func (c *propertyCondition) appendTo(b *statement.Builder, r resolver) {
	b.Column(r.alias(c.prop.Prefix()), c.prop.Column)
	b.WriteString(c.op)
}

func (c *propertyCondition) appendValues(vs []any) []any {
	return append(vs, c.values...)
}

type rawCondition struct {
	sql    string
	values []any
}

// Raw returns a condition made of a SQL fragment and the values of its
// '?' placeholders. The fragment is written as is.
func Raw(sql string, args ...any) Condition {
	return &rawCondition{sql: sql, values: args}
}

func (c *rawCondition) appendTo(b *statement.Builder, _ resolver) { b.WriteString(c.sql) }

func (c *rawCondition) appendValues(vs []any) []any { return append(vs, c.values...) }

// Tree is an open combination of conditions joined by AND or OR. It can
// be extended until it is used by a builder, which flattens it.
type Tree struct {
	op       string
	children []Condition
}

// AllOf returns a tree matching rows that satisfy every condition.
func AllOf(c1, c2 Condition, more ...Condition) *Tree {
	return &Tree{op: " AND ", children: append([]Condition{c1, c2}, more...)}
}

// AnyOf returns a tree matching rows that satisfy at least one condition.
func AnyOf(c1, c2 Condition, more ...Condition) *Tree {
	return &Tree{op: " OR ", children: append([]Condition{c1, c2}, more...)}
}

// Add appends conditions to the tree.
func (t *Tree) Add(cs ...Condition) *Tree {
	t.children = append(t.children, cs...)
	return t
}

// Len returns the number of direct children.
func (t *Tree) Len() int { return len(t.children) }

func (t *Tree) appendTo(b *statement.Builder, r resolver) {
	b.WriteByte('(')
	for i, c := range t.children {
		if i > 0 {
			b.WriteString(t.op)
		}
		c.appendTo(b, r)
	}
	b.WriteByte(')')
}

func (t *Tree) appendValues(vs []any) []any {
	for _, c := range t.children {
		vs = c.appendValues(vs)
	}
	return vs
}

// CompiledCondition is a flattened condition: one SQL fragment and its
// parameter values. Its parts can no longer be inspected or extended; it
// can only be used as a whole, as a where clause or as an operand.
type CompiledCondition struct {
	sql    string
	values []any
}

func compileWith(b *statement.Builder, c Condition, r resolver) *CompiledCondition {
	c.appendTo(b, r)
	return &CompiledCondition{sql: b.String(), values: c.appendValues(nil)}
}

// SQL returns the fragment.
func (c *CompiledCondition) SQL() string { return c.sql }

// Args returns a copy of the parameter values.
func (c *CompiledCondition) Args() []any { return append([]any(nil), c.values...) }

func (c *CompiledCondition) appendTo(b *statement.Builder, _ resolver) { b.WriteString(c.sql) }

func (c *CompiledCondition) appendValues(vs []any) []any { return append(vs, c.values...) }
