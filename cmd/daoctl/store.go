package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/dao"
	"github.com/syssam/dao/dialect"
	"github.com/syssam/dao/dialect/sql/schema"
	"github.com/syssam/dao/entity"
	"github.com/syssam/dao/query"
)

// listOptions are the clauses of the list command.
type listOptions struct {
	Where  []string
	Order  []string
	Limit  int
	Offset int
}

// store runs the commands against one table, whatever its key type.
type store interface {
	Columns() []string
	Count(ctx context.Context) (int64, error)
	Get(ctx context.Context, key string) (*Record, error)
	List(ctx context.Context, opts listOptions) ([]*Record, error)
	Delete(ctx context.Context, keys []string) error
	Truncate(ctx context.Context) error
}

type recordStore[K comparable] struct {
	dao   *entity.Dao[Record, K]
	parse func(string) (K, error)
}

func newStore(drv dialect.Driver, t *schema.Table, cfg dao.Config) (store, error) {
	if key, ok := t.SingleKey(); ok && (key.Type == schema.TypeInt64 || key.Type == schema.TypeInt) {
		return openStore(drv, t, cfg, int64Key, func(s string) (int64, error) {
			return strconv.ParseInt(s, 10, 64)
		})
	}
	return openStore(drv, t, cfg, stringKey, func(s string) (string, error) { return s, nil })
}

func openStore[K comparable](drv dialect.Driver, t *schema.Table, cfg dao.Config, toKey func([]any) (K, bool), parse func(string) (K, error)) (store, error) {
	d, err := entity.New[Record, K](drv, t, newRecordAdapter(t, toKey), entity.WithConfig(cfg))
	if err != nil {
		return nil, err
	}
	return &recordStore[K]{dao: d, parse: parse}, nil
}

func (s *recordStore[K]) Columns() []string { return s.dao.AllColumns() }

func (s *recordStore[K]) Count(ctx context.Context) (int64, error) { return s.dao.Count(ctx) }

func (s *recordStore[K]) Get(ctx context.Context, raw string) (*Record, error) {
	key, err := s.parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid key %q: %w", raw, err)
	}
	r, err := s.dao.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, dao.NewNotFoundErrorWithID(s.dao.TableName(), key)
	}
	return r, nil
}

func (s *recordStore[K]) Delete(ctx context.Context, raw []string) error {
	keys := make([]K, 0, len(raw))
	for _, r := range raw {
		key, err := s.parse(r)
		if err != nil {
			return fmt.Errorf("invalid key %q: %w", r, err)
		}
		keys = append(keys, key)
	}
	return s.dao.DeleteByKeyInTx(ctx, keys...)
}

func (s *recordStore[K]) Truncate(ctx context.Context) error { return s.dao.DeleteAll(ctx) }

func (s *recordStore[K]) List(ctx context.Context, opts listOptions) ([]*Record, error) {
	b := s.dao.QueryBuilder()
	for _, w := range opts.Where {
		cond, err := s.condition(w)
		if err != nil {
			return nil, err
		}
		b.Where(cond)
	}
	for _, o := range opts.Order {
		desc := strings.HasPrefix(o, "-")
		p, err := s.property(strings.TrimPrefix(o, "-"))
		if err != nil {
			return nil, err
		}
		if desc {
			b.OrderDesc(p)
		} else {
			b.OrderAsc(p)
		}
	}
	if opts.Limit > 0 {
		b.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		b.Offset(opts.Offset)
	}
	return b.List(ctx)
}

func (s *recordStore[K]) property(name string) (query.Property, error) {
	for _, p := range s.dao.Properties() {
		if strings.EqualFold(p.Column, name) {
			return p, nil
		}
	}
	return query.Property{}, fmt.Errorf("%s has no column %q", s.dao.TableName(), name)
}

// condition parses "col<op>value" where op is one of = != < <= > >= and
// ~ for LIKE. The value NULL with = or != tests for NULL.
func (s *recordStore[K]) condition(expr string) (query.Condition, error) {
	i := strings.IndexAny(expr, "!=<>~")
	if i <= 0 {
		return nil, fmt.Errorf("where %q: expected col<op>value", expr)
	}
	op := expr[i : i+1]
	if strings.ContainsRune("!<>", rune(expr[i])) && strings.HasPrefix(expr[i+1:], "=") {
		op = expr[i : i+2]
	}
	if op == "!" {
		return nil, fmt.Errorf("where %q: unknown operator", expr)
	}
	p, err := s.property(strings.TrimSpace(expr[:i]))
	if err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(expr[i+len(op):])
	if strings.EqualFold(raw, "null") {
		switch op {
		case "=":
			return p.IsNull(), nil
		case "!=":
			return p.IsNotNull(), nil
		}
	}
	if op == "~" {
		return p.Like(raw), nil
	}
	v, err := parseValue(p.Type, raw)
	if err != nil {
		return nil, fmt.Errorf("where %q: %w", expr, err)
	}
	switch op {
	case "!=":
		return p.NotEq(v), nil
	case ">=":
		return p.Ge(v), nil
	case "<=":
		return p.Le(v), nil
	case ">":
		return p.Gt(v), nil
	case "<":
		return p.Lt(v), nil
	default:
		return p.Eq(v), nil
	}
}

func parseValue(t schema.Type, raw string) (any, error) {
	switch t {
	case schema.TypeInt64, schema.TypeInt:
		return strconv.ParseInt(raw, 10, 64)
	case schema.TypeFloat64:
		return strconv.ParseFloat(raw, 64)
	case schema.TypeBool:
		return strconv.ParseBool(raw)
	}
	return raw, nil
}
