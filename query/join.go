package query

import (
	"github.com/syssam/dao"
	"github.com/syssam/dao/statement"
)

type joinKind uint8

const (
	innerJoin joinKind = iota
	leftJoin
	crossJoin
)

func (k joinKind) String() string {
	switch k {
	case leftJoin:
		return "LEFT JOIN"
	case crossJoin:
		return "CROSS JOIN"
	default:
		return "INNER JOIN"
	}
}

// JoinBuilder accumulates one join clause of a query builder. On and
// Done finish the clause and return the query builder.
type JoinBuilder[T any] struct {
	builder  *Builder[T]
	table    string
	alias    string
	kind     joinKind
	src, dst Selectable
	rawSrc   string
	rawDst   string
	err      error
}

// Alias sets the alias the joined table is referenced with.
func (j *JoinBuilder[T]) Alias(alias string) *JoinBuilder[T] {
	j.alias = alias
	return j
}

// On joins on src = dst. Terms of the queried table are qualified with
// its alias; other terms with their own prefix.
func (j *JoinBuilder[T]) On(src, dst Selectable) *Builder[T] {
	if src == nil || dst == nil {
		j.err = dao.NewUsageError("On", "join on %s needs two terms", j.table)
		return j.builder
	}
	j.src, j.dst = src, dst
	return j.builder
}

// OnRaw joins on src = dst, written as is.
func (j *JoinBuilder[T]) OnRaw(src, dst string) *Builder[T] {
	j.rawSrc, j.rawDst = src, dst
	return j.builder
}

// Done finishes a join without an ON clause, as used by cross joins.
func (j *JoinBuilder[T]) Done() *Builder[T] {
	if j.kind != crossJoin {
		j.err = dao.NewUsageError("Done", "%s of %s needs an ON clause", j.kind, j.table)
	}
	return j.builder
}

func (j *JoinBuilder[T]) appendTo(b *statement.Builder, r resolver) {
	b.WriteByte(' ')
	b.WriteString(j.kind.String())
	b.WriteByte(' ')
	b.Ident(j.table)
	if j.alias != "" {
		b.WriteByte(' ')
		b.WriteString(j.alias)
	}
	switch {
	case j.src != nil:
		b.WriteString(" ON ")
		j.src.appendSelect(b, r)
		b.WriteString(" = ")
		j.dst.appendSelect(b, r)
	case j.rawSrc != "":
		b.WriteString(" ON ")
		b.WriteString(j.rawSrc)
		b.WriteString(" = ")
		b.WriteString(j.rawDst)
	}
}
