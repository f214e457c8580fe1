package query

import (
	"context"
	"log/slog"
	"strings"

	"github.com/syssam/dao"
	"github.com/syssam/dao/dialect"
	"github.com/syssam/dao/dialect/sql"
	"github.com/syssam/dao/dialect/sql/schema"
	"github.com/syssam/dao/statement"
)

// UnionPart is a SELECT that can be a branch of a UNION: a query builder,
// a compiled query or a raw fragment.
type UnionPart interface {
	HasOrder() bool
	unionSQL() (string, []any, error)
}

type rawPart struct {
	sql  string
	args []any
}

// RawSelect returns a raw SELECT fragment usable as a union branch.
func RawSelect(sql string, args ...any) UnionPart {
	return rawPart{sql: sql, args: args}
}

func (p rawPart) HasOrder() bool {
	return strings.Contains(strings.ToUpper(p.sql), "ORDER BY")
}

func (p rawPart) unionSQL() (string, []any, error) { return p.sql, p.args, nil }

// UnionBuilder concatenates SELECTs with UNION. Branches must not be
// ordered; only the union as a whole can be. The result is read as a
// cursor.
type UnionBuilder struct {
	drv       dialect.Driver
	dialect   string
	cfg       dao.Config
	collation string
	parts     []UnionPart
	order     *statement.Builder
	err       error
}

// Union adds a branch. A branch with an ORDER BY is rejected.
func (u *UnionBuilder) Union(p UnionPart) *UnionBuilder {
	switch {
	case u.err != nil:
	case p == nil:
		u.err = dao.NewUsageError("Union", "nil union branch")
	case p.HasOrder():
		u.err = dao.NewUsageError("Union", "cannot add a query with an ORDER BY to a UNION; order the union instead")
	default:
		u.parts = append(u.parts, p)
	}
	return u
}

// Err returns the first error recorded while assembling the union.
func (u *UnionBuilder) Err() error { return u.err }

func (u *UnionBuilder) orderBuilder() *statement.Builder {
	if u.order == nil {
		u.order = statement.NewBuilder(u.dialect)
	} else if u.order.Len() > 0 {
		u.order.WriteByte(',')
	}
	return u.order
}

// OrderAsc orders the union by the result columns of the properties.
func (u *UnionBuilder) OrderAsc(props ...Property) *UnionBuilder {
	u.orderBy(" ASC", props)
	return u
}

// OrderDesc orders the union by the result columns of the properties,
// descending.
func (u *UnionBuilder) OrderDesc(props ...Property) *UnionBuilder {
	u.orderBy(" DESC", props)
	return u
}

func (u *UnionBuilder) orderBy(dir string, props []Property) {
	for _, p := range props {
		o := u.orderBuilder()
		o.Ident(p.Column)
		if p.Type == schema.TypeString && u.collation != "" {
			o.WriteString(" COLLATE ")
			o.WriteString(u.collation)
		}
		o.WriteString(dir)
	}
}

// OrderRaw appends a raw ORDER BY term.
func (u *UnionBuilder) OrderRaw(raw string) *UnionBuilder {
	u.orderBuilder().WriteString(raw)
	return u
}

// SQL returns the union text with '?' placeholders and its parameters.
func (u *UnionBuilder) SQL() (string, []any, error) {
	if u.err != nil {
		return "", nil, u.err
	}
	var (
		b    strings.Builder
		args []any
	)
	for i, p := range u.parts {
		query, vals, err := p.unionSQL()
		if err != nil {
			return "", nil, err
		}
		if i > 0 {
			b.WriteString(" UNION ")
		}
		b.WriteString(query)
		args = append(args, vals...)
	}
	if u.order != nil && u.order.Len() > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(u.order.String())
	}
	if u.cfg.LogSQL {
		attrs := []any{slog.String("sql", b.String())}
		if u.cfg.LogValues {
			attrs = append(attrs, slog.Any("values", args))
		}
		u.cfg.Log().Debug("built union query", attrs...)
	}
	return b.String(), args, nil
}

// Cursor executes the union. The caller must close the cursor.
func (u *UnionBuilder) Cursor(ctx context.Context) (*sql.Cursor, error) {
	query, args, err := u.SQL()
	if err != nil {
		return nil, err
	}
	return sql.QueryCursor(ctx, dialect.Querier(ctx, u.drv), dialect.Rebind(u.dialect, query), args)
}
