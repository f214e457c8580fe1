package query

import (
	"context"
	"strings"
	"time"

	"github.com/syssam/dao"
	"github.com/syssam/dao/dialect"
	"github.com/syssam/dao/dialect/sql"
	"github.com/syssam/dao/statement"
)

// Loader is the data-access object a query reads entities through. It
// materializes rows via the identity scope.
type Loader[T any] interface {
	// Driver returns the engine queries run on.
	Driver() dialect.Driver
	// Statements returns the statement cache of the queried table.
	Statements() *statement.Table
	// Config returns the configuration queries inherit.
	Config() dao.Config
	// LoadCurrent materializes the entity whose columns start at offset.
	// It returns nil when offset is non-zero and the key there is NULL.
	// ctx is the context the rows were queried with.
	LoadCurrent(ctx context.Context, row sql.Row, offset int, lock bool) *T
	// LoadAllRows materializes one entity per row under a single scope lock.
	LoadAllRows(ctx context.Context, rows []sql.Row) []*T
}

// base holds the state shared by every compiled query kind: the SQL text
// and one owner's parameter buffer.
type base struct {
	drv       dialect.Driver
	sql       string
	text      string
	owner     Owner
	params    []any
	limitPos  int
	offsetPos int
}

func newBase(drv dialect.Driver, query string, owner Owner, params []any, limitPos, offsetPos int) base {
	return base{
		drv:       drv,
		sql:       query,
		text:      dialect.Rebind(drv.Dialect(), query),
		owner:     owner,
		params:    params,
		limitPos:  limitPos,
		offsetPos: offsetPos,
	}
}

// SQL returns the SQL text with '?' placeholders.
func (b *base) SQL() string { return b.sql }

// Owner returns the owner of this parameter buffer.
func (b *base) Owner() Owner { return b.owner }

// Args returns a copy of the current parameter values.
func (b *base) Args() []any { return append([]any(nil), b.params...) }

// SetParameter sets the 0-based positional parameter i. The slots that
// hold the limit and the offset can only be set with SetLimit and
// SetOffset.
func (b *base) SetParameter(i int, v any) error {
	if i >= 0 && (i == b.limitPos || i == b.offsetPos) {
		return dao.NewUsageError("SetParameter", "illegal parameter index %d: reserved for limit or offset", i)
	}
	if i < 0 || i >= len(b.params) {
		return dao.NewUsageError("SetParameter", "parameter index %d out of range [0,%d)", i, len(b.params))
	}
	b.params[i] = v
	return nil
}

// SetLimit rebinds the limit. The query must have been built with one.
func (b *base) SetLimit(n int) error {
	if b.limitPos < 0 {
		return dao.NewUsageError("SetLimit", "limit must be set with the builder before it can be used here")
	}
	b.params[b.limitPos] = n
	return nil
}

// SetOffset rebinds the offset. The query must have been built with one.
func (b *base) SetOffset(n int) error {
	if b.offsetPos < 0 {
		return dao.NewUsageError("SetOffset", "offset must be set with the builder before it can be used here")
	}
	b.params[b.offsetPos] = n
	return nil
}

// check rejects executing an owned instance on behalf of another owner.
// Instances of the zero owner are private to whoever built them and run
// under any owner.
func (b *base) check(ctx context.Context, op string) error {
	if b.owner.IsZero() {
		return nil
	}
	if o, ok := OwnerFromContext(ctx); ok && o != b.owner {
		return dao.NewUsageError(op, "query instance belongs to another owner; use ForContext")
	}
	return nil
}

func (b *base) cursor(ctx context.Context, op string) (*sql.Cursor, error) {
	if err := b.check(ctx, op); err != nil {
		return nil, err
	}
	return sql.QueryCursor(ctx, dialect.Querier(ctx, b.drv), b.text, b.params)
}

// Query is a compiled SELECT. The SQL text and the parameter template are
// shared by every instance; each instance owns its parameter buffer, so
// an instance must only be used by one goroutine at a time. Goroutines
// sharing a query get their own instance with ForContext or ForOwner.
type Query[T any] struct {
	base
	loader    Loader[T]
	projected bool
	ordered   bool
	reg       *registry[*Query[T]]
}

func newQuery[T any](l Loader[T], query string, template []any, limitPos, offsetPos int, projected, ordered bool) *Query[T] {
	var reg *registry[*Query[T]]
	reg = newRegistry(template, func(o Owner, params []any) *Query[T] {
		return &Query[T]{
			base:      newBase(l.Driver(), query, o, params, limitPos, offsetPos),
			loader:    l,
			projected: projected,
			ordered:   ordered,
			reg:       reg,
		}
	})
	return reg.get(Owner{})
}

// NewRaw compiles a complete SELECT written with '?' placeholders. The
// text must select the loader's columns first, in order, as the select-all
// statement of its table does.
func NewRaw[T any](l Loader[T], query string, args ...any) *Query[T] {
	ordered := strings.Contains(strings.ToUpper(query), "ORDER BY")
	return newQuery(l, query, append([]any(nil), args...), -1, -1, false, ordered)
}

// ForOwner returns the instance of o, creating it from the template on
// first use. The zero owner gets a new private instance.
func (q *Query[T]) ForOwner(o Owner) *Query[T] { return q.reg.get(o) }

// ForContext returns the instance of the owner carried by ctx, or a new
// private instance when ctx carries none.
func (q *Query[T]) ForContext(ctx context.Context) *Query[T] {
	o, _ := OwnerFromContext(ctx)
	return q.reg.get(o)
}

// Release drops the instance of o.
func (q *Query[T]) Release(o Owner) { q.reg.release(o) }

// Owners returns the number of registered owner instances.
func (q *Query[T]) Owners() int { return q.reg.len() }

// HasOrder reports whether the query has an ORDER BY clause.
func (q *Query[T]) HasOrder() bool { return q.ordered }

func (q *Query[T]) unionSQL() (string, []any, error) { return q.sql, q.Args(), nil }

func (q *Query[T]) entities(op string) error {
	if q.projected {
		return dao.NewUsageError(op, "query has a custom projection; use Cursor or the ListOf methods")
	}
	return nil
}

// Cursor executes the query and returns the raw cursor. The caller must
// close it.
func (q *Query[T]) Cursor(ctx context.Context) (*sql.Cursor, error) {
	return q.cursor(ctx, "Cursor")
}

// List executes the query and materializes all rows.
func (q *Query[T]) List(ctx context.Context) ([]*T, error) {
	if err := q.entities("List"); err != nil {
		return nil, err
	}
	c, err := q.cursor(ctx, "List")
	if err != nil {
		return nil, err
	}
	rows, err := c.All()
	if err != nil {
		return nil, err
	}
	return q.loader.LoadAllRows(ctx, rows), nil
}

// ListLazy executes the query and returns a list whose entities are
// materialized on first access and then kept. The list must be closed.
func (q *Query[T]) ListLazy(ctx context.Context) (*LazyList[T], error) {
	return q.lazy(ctx, "ListLazy", true)
}

// ListLazyUncached is ListLazy without keeping materialized entities:
// every access reads the entity again.
func (q *Query[T]) ListLazyUncached(ctx context.Context) (*LazyList[T], error) {
	return q.lazy(ctx, "ListLazyUncached", false)
}

func (q *Query[T]) lazy(ctx context.Context, op string, cached bool) (*LazyList[T], error) {
	if err := q.entities(op); err != nil {
		return nil, err
	}
	c, err := q.cursor(ctx, op)
	if err != nil {
		return nil, err
	}
	return newLazyList(ctx, q.loader, c, cached), nil
}

// ListIterator executes the query and returns an iterator that closes
// its cursor once exhausted.
func (q *Query[T]) ListIterator(ctx context.Context) (*Iterator[T], error) {
	if err := q.entities("ListIterator"); err != nil {
		return nil, err
	}
	c, err := q.cursor(ctx, "ListIterator")
	if err != nil {
		return nil, err
	}
	return &Iterator[T]{ctx: ctx, loader: q.loader, cursor: c}, nil
}

// Unique executes the query and returns the single matching entity, or
// nil if none matches. More than one row is a NotSingularError.
func (q *Query[T]) Unique(ctx context.Context) (*T, error) {
	if err := q.entities("Unique"); err != nil {
		return nil, err
	}
	c, err := q.cursor(ctx, "Unique")
	if err != nil {
		return nil, err
	}
	defer c.Close()
	if !c.Next() {
		return nil, c.Err()
	}
	row := c.Row()
	if c.Next() {
		return nil, dao.NewNotSingularErrorWithCount(q.loader.Statements().Name(), 2)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return q.loader.LoadCurrent(ctx, row, 0, true), c.Close()
}

// UniqueOrThrow is Unique that fails with a NotFoundError if no row matches.
func (q *Query[T]) UniqueOrThrow(ctx context.Context) (*T, error) {
	e, err := q.Unique(ctx)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, dao.NewNotFoundError(q.loader.Statements().Name())
	}
	return e, nil
}

// ListOfString executes the query and reads the named column of every row.
func (q *Query[T]) ListOfString(ctx context.Context, column string) ([]string, error) {
	return listOf(ctx, &q.base, column, sql.Row.String)
}

// ListOfFloat64 executes the query and reads the named column of every row.
func (q *Query[T]) ListOfFloat64(ctx context.Context, column string) ([]float64, error) {
	return listOf(ctx, &q.base, column, sql.Row.Float64)
}

// ListOfInt executes the query and reads the named column of every row.
func (q *Query[T]) ListOfInt(ctx context.Context, column string) ([]int, error) {
	return listOf(ctx, &q.base, column, sql.Row.Int)
}

// ListOfInt64 executes the query and reads the named column of every row.
func (q *Query[T]) ListOfInt64(ctx context.Context, column string) ([]int64, error) {
	return listOf(ctx, &q.base, column, sql.Row.Int64)
}

// ListOfBytes executes the query and reads the named column of every row.
func (q *Query[T]) ListOfBytes(ctx context.Context, column string) ([][]byte, error) {
	return listOf(ctx, &q.base, column, sql.Row.Bytes)
}

// ListOfTime executes the query and reads the named column of every row.
func (q *Query[T]) ListOfTime(ctx context.Context, column string) ([]time.Time, error) {
	return listOf(ctx, &q.base, column, sql.Row.Time)
}

// UniqueString reads the named column of the first row. It fails with a
// NotFoundError if no row matches.
func (q *Query[T]) UniqueString(ctx context.Context, column string) (string, error) {
	return uniqueOf(ctx, &q.base, q.loader.Statements().Name(), column, sql.Row.String)
}

// UniqueFloat64 reads the named column of the first row.
func (q *Query[T]) UniqueFloat64(ctx context.Context, column string) (float64, error) {
	return uniqueOf(ctx, &q.base, q.loader.Statements().Name(), column, sql.Row.Float64)
}

// UniqueInt reads the named column of the first row.
func (q *Query[T]) UniqueInt(ctx context.Context, column string) (int, error) {
	return uniqueOf(ctx, &q.base, q.loader.Statements().Name(), column, sql.Row.Int)
}

// UniqueInt64 reads the named column of the first row.
func (q *Query[T]) UniqueInt64(ctx context.Context, column string) (int64, error) {
	return uniqueOf(ctx, &q.base, q.loader.Statements().Name(), column, sql.Row.Int64)
}

// UniqueBytes reads the named column of the first row.
func (q *Query[T]) UniqueBytes(ctx context.Context, column string) ([]byte, error) {
	return uniqueOf(ctx, &q.base, q.loader.Statements().Name(), column, sql.Row.Bytes)
}

func columnIndex(c *sql.Cursor, column string) (int, error) {
	i := c.ColumnIndex(column)
	if i < 0 {
		return -1, dao.NewUsageError("ListOf", "column %q is not part of the result %v", column, c.Columns())
	}
	return i, nil
}

func listOf[V any](ctx context.Context, b *base, column string, get func(sql.Row, int) V) ([]V, error) {
	c, err := b.cursor(ctx, "ListOf")
	if err != nil {
		return nil, err
	}
	defer c.Close()
	i, err := columnIndex(c, column)
	if err != nil {
		return nil, err
	}
	var vs []V
	for c.Next() {
		vs = append(vs, get(c.Row(), i))
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return vs, c.Close()
}

func uniqueOf[V any](ctx context.Context, b *base, label, column string, get func(sql.Row, int) V) (V, error) {
	var zero V
	c, err := b.cursor(ctx, "Unique")
	if err != nil {
		return zero, err
	}
	defer c.Close()
	i, err := columnIndex(c, column)
	if err != nil {
		return zero, err
	}
	if !c.Next() {
		if err := c.Err(); err != nil {
			return zero, err
		}
		return zero, dao.NewNotFoundError(label)
	}
	return get(c.Row(), i), nil
}

// CountQuery is a compiled SELECT COUNT(*).
type CountQuery[T any] struct {
	base
	reg *registry[*CountQuery[T]]
}

func newCountQuery[T any](drv dialect.Driver, query string, template []any) *CountQuery[T] {
	var reg *registry[*CountQuery[T]]
	reg = newRegistry(template, func(o Owner, params []any) *CountQuery[T] {
		return &CountQuery[T]{base: newBase(drv, query, o, params, -1, -1), reg: reg}
	})
	return reg.get(Owner{})
}

// ForOwner returns the instance of o.
func (q *CountQuery[T]) ForOwner(o Owner) *CountQuery[T] { return q.reg.get(o) }

// ForContext returns the instance of the owner carried by ctx.
func (q *CountQuery[T]) ForContext(ctx context.Context) *CountQuery[T] {
	o, _ := OwnerFromContext(ctx)
	return q.reg.get(o)
}

// Release drops the instance of o.
func (q *CountQuery[T]) Release(o Owner) { q.reg.release(o) }

// Count executes the query.
func (q *CountQuery[T]) Count(ctx context.Context) (int64, error) {
	c, err := q.cursor(ctx, "Count")
	if err != nil {
		return 0, err
	}
	defer c.Close()
	if !c.Next() {
		if err := c.Err(); err != nil {
			return 0, err
		}
		return 0, dao.NewNotFoundError("count")
	}
	n := c.Row().Int64(0)
	if c.Next() {
		return 0, dao.NewNotSingularError("count")
	}
	return n, c.Err()
}

// DeleteQuery is a compiled DELETE. Matching entities are not detached
// from the identity scope.
type DeleteQuery[T any] struct {
	base
	reg *registry[*DeleteQuery[T]]
}

func newDeleteQuery[T any](drv dialect.Driver, query string, template []any) *DeleteQuery[T] {
	var reg *registry[*DeleteQuery[T]]
	reg = newRegistry(template, func(o Owner, params []any) *DeleteQuery[T] {
		return &DeleteQuery[T]{base: newBase(drv, query, o, params, -1, -1), reg: reg}
	})
	return reg.get(Owner{})
}

// ForOwner returns the instance of o.
func (q *DeleteQuery[T]) ForOwner(o Owner) *DeleteQuery[T] { return q.reg.get(o) }

// ForContext returns the instance of the owner carried by ctx.
func (q *DeleteQuery[T]) ForContext(ctx context.Context) *DeleteQuery[T] {
	o, _ := OwnerFromContext(ctx)
	return q.reg.get(o)
}

// Release drops the instance of o.
func (q *DeleteQuery[T]) Release(o Owner) { q.reg.release(o) }

// Exec executes the delete and returns the number of deleted rows. It
// joins the transaction carried by ctx.
func (q *DeleteQuery[T]) Exec(ctx context.Context) (int64, error) {
	if err := q.check(ctx, "Delete"); err != nil {
		return 0, err
	}
	var res sql.Result
	if err := dialect.Querier(ctx, q.drv).Exec(ctx, q.text, q.Args(), &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
