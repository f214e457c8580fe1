package sql

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/syssam/dao/dialect"
)

// Statement is a compiled statement: fixed SQL text plus a mutable buffer
// of positional parameters. A statement is shared by every goroutine
// working on its table, so a bind-then-execute sequence must run while
// holding its lock:
//
//	stmt.Lock()
//	defer stmt.Unlock()
//	stmt.ClearBindings()
//	stmt.BindInt64(1, id)
//	_, err := stmt.Exec(ctx, drv)
type Statement struct {
	sync.Mutex
	query     string
	args      []any
	err       error
	returning bool
}

// NewStatement compiles query, written with '?' placeholders, for the
// given dialect.
func NewStatement(dialectName, query string) *Statement {
	return &Statement{
		query: dialect.Rebind(dialectName, query),
		args:  make([]any, dialect.Placeholders(query)),
	}
}

// NewInsertStatement is like NewStatement for an INSERT whose query ends
// with a RETURNING clause producing the new row id.
func NewInsertStatement(dialectName, query string, returning bool) *Statement {
	s := NewStatement(dialectName, query)
	s.returning = returning
	return s
}

// SQL returns the statement text in the dialect's placeholder syntax.
func (s *Statement) SQL() string { return s.query }

// NumParams returns the number of positional parameters.
func (s *Statement) NumParams() int { return len(s.args) }

// Args returns a copy of the currently bound parameters.
func (s *Statement) Args() []any {
	return append([]any(nil), s.args...)
}

// ClearBindings resets every parameter to NULL.
func (s *Statement) ClearBindings() {
	clear(s.args)
	s.err = nil
}

func (s *Statement) bind(i int, v any) {
	if i < 1 || i > len(s.args) {
		if s.err == nil {
			s.err = fmt.Errorf("dialect/sql: bind index %d out of range [1,%d]", i, len(s.args))
		}
		return
	}
	s.args[i-1] = v
}

// BindInt64 binds v to the 1-based parameter i.
func (s *Statement) BindInt64(i int, v int64) { s.bind(i, v) }

// BindString binds v to the 1-based parameter i.
func (s *Statement) BindString(i int, v string) { s.bind(i, v) }

// BindFloat64 binds v to the 1-based parameter i.
func (s *Statement) BindFloat64(i int, v float64) { s.bind(i, v) }

// BindBytes binds v to the 1-based parameter i.
func (s *Statement) BindBytes(i int, v []byte) { s.bind(i, v) }

// BindBool binds v to the 1-based parameter i.
func (s *Statement) BindBool(i int, v bool) { s.bind(i, v) }

// BindTime binds v to the 1-based parameter i.
func (s *Statement) BindTime(i int, v time.Time) { s.bind(i, v) }

// BindNull binds NULL to the 1-based parameter i.
func (s *Statement) BindNull(i int) { s.bind(i, nil) }

// BindValue binds an arbitrary driver value to the 1-based parameter i.
func (s *Statement) BindValue(i int, v any) { s.bind(i, v) }

// Exec executes the statement with the bound parameters and returns the
// number of affected rows.
func (s *Statement) Exec(ctx context.Context, ex dialect.ExecQuerier) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	var res sql.Result
	if err := ex.Exec(ctx, s.query, s.Args(), &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExecInsert executes an INSERT and returns the engine-assigned row id,
// or -1 if the engine reports that no row was written.
func (s *Statement) ExecInsert(ctx context.Context, ex dialect.ExecQuerier) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.returning {
		return s.execReturning(ctx, ex)
	}
	var res sql.Result
	if err := ex.Exec(ctx, s.query, s.Args(), &res); err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return -1, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		// Engines without row ids (lib/pq) still wrote the row.
		return 0, nil
	}
	return id, nil
}

func (s *Statement) execReturning(ctx context.Context, ex dialect.ExecQuerier) (int64, error) {
	var rows Rows
	if err := ex.Query(ctx, s.query, s.Args(), &rows); err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return -1, nil
	}
	var id sql.NullInt64
	if err := rows.Scan(&id); err != nil {
		return 0, err
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}
	return id.Int64, nil
}
