package query

import (
	"context"
	"log/slog"

	"github.com/syssam/dao"
	"github.com/syssam/dao/dialect"
	"github.com/syssam/dao/dialect/sql/schema"
	"github.com/syssam/dao/statement"
)

// Builder assembles a query on the table of a Loader. Clause methods
// return the builder for chaining; the first misuse is recorded and
// returned by Build. A builder is not safe for concurrent use, the
// queries it builds are.
type Builder[T any] struct {
	loader    Loader[T]
	cfg       dao.Config
	dialect   string
	table     string
	collation string

	where    []Condition
	joins    []*JoinBuilder[T]
	order    *statement.Builder
	selects  []Selectable
	limit    *int
	offset   *int
	distinct bool
	err      error
}

// New returns a builder for queries on the table of l.
func New[T any](l Loader[T]) *Builder[T] {
	cfg := l.Config()
	d := l.Driver().Dialect()
	collation := cfg.Collation
	if collation == "" {
		collation = dialect.DefaultCollation(d)
	}
	return &Builder[T]{
		loader:    l,
		cfg:       cfg,
		dialect:   d,
		table:     l.Statements().Name(),
		collation: collation,
	}
}

func (b *Builder[T]) resolver() resolver {
	return resolver{master: b.table, masterAlias: statement.Alias}
}

func (b *Builder[T]) fail(op, format string, args ...any) {
	if b.err == nil {
		b.err = dao.NewUsageError(op, format, args...)
	}
}

// Err returns the first error recorded by a clause method.
func (b *Builder[T]) Err() error { return b.err }

// Where adds conditions. Conditions of successive calls are joined by AND.
func (b *Builder[T]) Where(cond Condition, more ...Condition) *Builder[T] {
	for _, c := range append([]Condition{cond}, more...) {
		if c == nil {
			b.fail("Where", "nil condition")
			return b
		}
		b.where = append(b.where, c)
	}
	return b
}

// WhereOr adds the disjunction of the conditions.
func (b *Builder[T]) WhereOr(c1, c2 Condition, more ...Condition) *Builder[T] {
	return b.Where(b.Or(c1, c2, more...))
}

// WhereAnd adds the conjunction of the conditions.
func (b *Builder[T]) WhereAnd(c1, c2 Condition, more ...Condition) *Builder[T] {
	return b.Where(b.And(c1, c2, more...))
}

// Or flattens the disjunction of the conditions into one parenthesized
// fragment.
func (b *Builder[T]) Or(c1, c2 Condition, more ...Condition) *CompiledCondition {
	return b.compile(AnyOf(c1, c2, more...))
}

// And flattens the conjunction of the conditions into one parenthesized
// fragment.
func (b *Builder[T]) And(c1, c2 Condition, more ...Condition) *CompiledCondition {
	return b.compile(AllOf(c1, c2, more...))
}

func (b *Builder[T]) compile(t *Tree) *CompiledCondition {
	for _, c := range t.children {
		if c == nil {
			b.fail("Where", "nil condition")
			return &CompiledCondition{sql: "1=0"}
		}
	}
	return compileWith(statement.NewBuilder(b.dialect), t, b.resolver())
}

// InnerJoin starts an INNER JOIN of table.
func (b *Builder[T]) InnerJoin(table string) *JoinBuilder[T] { return b.join(table, innerJoin) }

// LeftJoin starts a LEFT JOIN of table.
func (b *Builder[T]) LeftJoin(table string) *JoinBuilder[T] { return b.join(table, leftJoin) }

// CrossJoin starts a CROSS JOIN of table.
func (b *Builder[T]) CrossJoin(table string) *JoinBuilder[T] { return b.join(table, crossJoin) }

func (b *Builder[T]) join(table string, kind joinKind) *JoinBuilder[T] {
	j := &JoinBuilder[T]{builder: b, table: table, kind: kind}
	b.joins = append(b.joins, j)
	return j
}

func (b *Builder[T]) orderBuilder() *statement.Builder {
	if b.order == nil {
		b.order = statement.NewBuilder(b.dialect)
	} else if b.order.Len() > 0 {
		b.order.WriteByte(',')
	}
	return b.order
}

// OrderAsc orders by the properties, ascending. String properties are
// compared with the configured collation.
func (b *Builder[T]) OrderAsc(props ...Property) *Builder[T] {
	b.orderBy(" ASC", props)
	return b
}

// OrderDesc orders by the properties, descending.
func (b *Builder[T]) OrderDesc(props ...Property) *Builder[T] {
	b.orderBy(" DESC", props)
	return b
}

func (b *Builder[T]) orderBy(dir string, props []Property) {
	r := b.resolver()
	for _, p := range props {
		o := b.orderBuilder()
		p.appendSelect(o, r)
		if p.Type == schema.TypeString && b.collation != "" {
			o.WriteString(" COLLATE ")
			o.WriteString(b.collation)
		}
		o.WriteString(dir)
	}
}

// OrderCustom orders by p followed by the custom order, such as
// "DESC NULLS LAST".
func (b *Builder[T]) OrderCustom(p Property, custom string) *Builder[T] {
	o := b.orderBuilder()
	p.appendSelect(o, b.resolver())
	o.WriteByte(' ')
	o.WriteString(custom)
	return b
}

// OrderRaw appends a raw ORDER BY term.
func (b *Builder[T]) OrderRaw(raw string) *Builder[T] {
	b.orderBuilder().WriteString(raw)
	return b
}

// HasOrder reports whether an ORDER BY term was added.
func (b *Builder[T]) HasOrder() bool { return b.order != nil }

// Select sets a custom projection. Queries with a projection can only be
// read with Cursor and the ListOf and Unique field methods.
func (b *Builder[T]) Select(s ...Selectable) *Builder[T] {
	b.selects = s
	return b
}

// SelectColumns sets a projection of column names, each optionally
// qualified as "alias.column".
func (b *Builder[T]) SelectColumns(names ...string) *Builder[T] {
	s := make([]Selectable, len(names))
	for i, n := range names {
		s[i] = Column(n)
	}
	return b.Select(s...)
}

// Limit limits the number of rows.
func (b *Builder[T]) Limit(n int) *Builder[T] {
	b.limit = &n
	return b
}

// Offset skips rows. It requires Limit.
func (b *Builder[T]) Offset(n int) *Builder[T] {
	b.offset = &n
	return b
}

// Distinct selects distinct rows only.
func (b *Builder[T]) Distinct() *Builder[T] {
	b.distinct = true
	return b
}

func (b *Builder[T]) appendSelect(sb *statement.Builder) {
	tbl := b.loader.Statements()
	if len(b.selects) == 0 {
		sb.WriteString(tbl.SelectAll(b.distinct))
		return
	}
	r := b.resolver()
	if cols, ok := b.masterColumns(r); ok && !b.distinct {
		sb.WriteString(tbl.SelectColumns(cols...))
		return
	}
	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	for i, s := range b.selects {
		if i > 0 {
			sb.WriteByte(',')
		}
		s.appendSelect(sb, r)
	}
	sb.WriteString(" FROM ")
	sb.Ident(b.table)
	sb.WriteString(" " + statement.Alias)
}

// masterColumns returns the column names if the projection only holds
// properties of the queried table.
func (b *Builder[T]) masterColumns(r resolver) ([]string, bool) {
	cols := make([]string, len(b.selects))
	for i, s := range b.selects {
		p, ok := s.(Property)
		if !ok || r.alias(p.Prefix()) != statement.Alias {
			return nil, false
		}
		cols[i] = p.Column
	}
	return cols, true
}

func (b *Builder[T]) appendJoins(sb *statement.Builder, r resolver) {
	for _, j := range b.joins {
		j.appendTo(sb, r)
	}
}

func (b *Builder[T]) appendWhere(sb *statement.Builder, r resolver) []any {
	var vals []any
	if len(b.where) == 0 {
		return vals
	}
	sb.WriteString(" WHERE ")
	for i, c := range b.where {
		if i > 0 {
			sb.WriteString(" AND ")
		}
		c.appendTo(sb, r)
		vals = c.appendValues(vals)
	}
	return vals
}

func (b *Builder[T]) check() error {
	if b.err != nil {
		return b.err
	}
	for _, j := range b.joins {
		if j.err != nil {
			return j.err
		}
	}
	return nil
}

func (b *Builder[T]) buildSelect() (string, []any, int, int, error) {
	if err := b.check(); err != nil {
		return "", nil, -1, -1, err
	}
	if b.offset != nil && b.limit == nil {
		return "", nil, -1, -1, dao.NewUsageError("Build", "offset cannot be set without limit")
	}
	r := b.resolver()
	sb := statement.NewBuilder(b.dialect)
	b.appendSelect(sb)
	b.appendJoins(sb, r)
	vals := b.appendWhere(sb, r)
	if b.order != nil && b.order.Len() > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(b.order.String())
	}
	limitPos, offsetPos := -1, -1
	if b.limit != nil {
		sb.WriteString(" LIMIT ?")
		vals = append(vals, *b.limit)
		limitPos = len(vals) - 1
	}
	if b.offset != nil {
		sb.WriteString(" OFFSET ?")
		vals = append(vals, *b.offset)
		offsetPos = len(vals) - 1
	}
	return sb.String(), vals, limitPos, offsetPos, nil
}

// Build compiles the query.
func (b *Builder[T]) Build() (*Query[T], error) {
	query, vals, limitPos, offsetPos, err := b.buildSelect()
	if err != nil {
		return nil, err
	}
	b.logBuilt("query", query, vals)
	return newQuery(b.loader, query, vals, limitPos, offsetPos, len(b.selects) > 0, b.HasOrder()), nil
}

// BuildCount compiles a query counting the matching rows. Projection,
// order and paging are ignored.
func (b *Builder[T]) BuildCount() (*CountQuery[T], error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	r := b.resolver()
	sb := statement.NewBuilder(b.dialect)
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.Ident(b.table)
	sb.WriteString(" " + statement.Alias)
	b.appendJoins(sb, r)
	vals := b.appendWhere(sb, r)
	query := sb.String()
	b.logBuilt("count query", query, vals)
	return newCountQuery[T](b.loader.Driver(), query, vals), nil
}

// BuildDelete compiles a DELETE of the matching rows. The table keeps
// its alias, so conditions are written as for a SELECT. Joins are not
// supported.
func (b *Builder[T]) BuildDelete() (*DeleteQuery[T], error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	if len(b.joins) > 0 {
		return nil, dao.NewUsageError("BuildDelete", "joins are not supported in DELETE queries")
	}
	sb := statement.NewBuilder(b.dialect)
	sb.WriteString(b.loader.Statements().DeleteAll())
	sb.WriteString(" AS " + statement.Alias)
	vals := b.appendWhere(sb, b.resolver())
	query := sb.String()
	b.logBuilt("delete query", query, vals)
	return newDeleteQuery[T](b.loader.Driver(), query, vals), nil
}

func (b *Builder[T]) logBuilt(kind, query string, vals []any) {
	if !b.cfg.LogSQL {
		return
	}
	attrs := []any{slog.String("sql", query)}
	if b.cfg.LogValues {
		attrs = append(attrs, slog.Any("values", vals))
	}
	b.cfg.Log().Debug("built "+kind, attrs...)
}

// List builds and executes the query.
func (b *Builder[T]) List(ctx context.Context) ([]*T, error) {
	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	return q.List(ctx)
}

// Unique builds and executes the query, expecting at most one row.
func (b *Builder[T]) Unique(ctx context.Context) (*T, error) {
	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	return q.Unique(ctx)
}

// UniqueOrThrow builds and executes the query, expecting exactly one row.
func (b *Builder[T]) UniqueOrThrow(ctx context.Context) (*T, error) {
	q, err := b.Build()
	if err != nil {
		return nil, err
	}
	return q.UniqueOrThrow(ctx)
}

// Count builds and executes a count query.
func (b *Builder[T]) Count(ctx context.Context) (int64, error) {
	q, err := b.BuildCount()
	if err != nil {
		return 0, err
	}
	return q.Count(ctx)
}

// Exist reports whether any row matches.
func (b *Builder[T]) Exist(ctx context.Context) (bool, error) {
	n, err := b.Count(ctx)
	return n > 0, err
}

// Delete builds and executes a delete query.
func (b *Builder[T]) Delete(ctx context.Context) (int64, error) {
	q, err := b.BuildDelete()
	if err != nil {
		return 0, err
	}
	return q.Exec(ctx)
}

// scalar builds the query selecting only s. The projection of b is left
// as is.
func (b *Builder[T]) scalar(s Selectable) (*Query[T], error) {
	c := *b
	c.selects = []Selectable{s}
	return c.Build()
}

// ListOfString selects s and reads it from every row.
func (b *Builder[T]) ListOfString(ctx context.Context, s Selectable) ([]string, error) {
	q, err := b.scalar(s)
	if err != nil {
		return nil, err
	}
	return q.ListOfString(ctx, s.columnName())
}

// ListOfFloat64 selects s and reads it from every row.
func (b *Builder[T]) ListOfFloat64(ctx context.Context, s Selectable) ([]float64, error) {
	q, err := b.scalar(s)
	if err != nil {
		return nil, err
	}
	return q.ListOfFloat64(ctx, s.columnName())
}

// ListOfInt selects s and reads it from every row.
func (b *Builder[T]) ListOfInt(ctx context.Context, s Selectable) ([]int, error) {
	q, err := b.scalar(s)
	if err != nil {
		return nil, err
	}
	return q.ListOfInt(ctx, s.columnName())
}

// ListOfInt64 selects s and reads it from every row.
func (b *Builder[T]) ListOfInt64(ctx context.Context, s Selectable) ([]int64, error) {
	q, err := b.scalar(s)
	if err != nil {
		return nil, err
	}
	return q.ListOfInt64(ctx, s.columnName())
}

// ListOfBytes selects s and reads it from every row.
func (b *Builder[T]) ListOfBytes(ctx context.Context, s Selectable) ([][]byte, error) {
	q, err := b.scalar(s)
	if err != nil {
		return nil, err
	}
	return q.ListOfBytes(ctx, s.columnName())
}

// UniqueString selects s and reads it from the first row.
func (b *Builder[T]) UniqueString(ctx context.Context, s Selectable) (string, error) {
	q, err := b.scalar(s)
	if err != nil {
		return "", err
	}
	return q.UniqueString(ctx, s.columnName())
}

// UniqueFloat64 selects s and reads it from the first row.
func (b *Builder[T]) UniqueFloat64(ctx context.Context, s Selectable) (float64, error) {
	q, err := b.scalar(s)
	if err != nil {
		return 0, err
	}
	return q.UniqueFloat64(ctx, s.columnName())
}

// UniqueInt64 selects s and reads it from the first row.
func (b *Builder[T]) UniqueInt64(ctx context.Context, s Selectable) (int64, error) {
	q, err := b.scalar(s)
	if err != nil {
		return 0, err
	}
	return q.UniqueInt64(ctx, s.columnName())
}

// Union starts a UNION of this query and other.
func (b *Builder[T]) Union(other UnionPart) *UnionBuilder {
	u := &UnionBuilder{drv: b.loader.Driver(), dialect: b.dialect, cfg: b.cfg, collation: b.collation}
	return u.Union(b).Union(other)
}

func (b *Builder[T]) unionSQL() (string, []any, error) {
	query, vals, _, _, err := b.buildSelect()
	return query, vals, err
}
