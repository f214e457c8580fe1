package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/dao/dialect/sql"
	"github.com/syssam/dao/dialect/sql/schema"
)

// Record is one row of a catalog table, keyed by column name.
type Record struct {
	Values map[string]any
}

// recordAdapter maps Records of any catalog table. Tables with a single
// integer key use int64 keys; every other table uses string keys, which
// are the key values joined by '/'.
type recordAdapter[K comparable] struct {
	table *schema.Table
	keys  []int
	toKey func(vals []any) (K, bool)
}

func newRecordAdapter[K comparable](t *schema.Table, toKey func([]any) (K, bool)) *recordAdapter[K] {
	a := &recordAdapter[K]{table: t, toKey: toKey}
	for _, pk := range t.PrimaryKey {
		for i, c := range t.Columns {
			if c == pk {
				a.keys = append(a.keys, i)
			}
		}
	}
	return a
}

func int64Key(vals []any) (int64, bool) {
	if len(vals) != 1 {
		return 0, false
	}
	switch v := vals[0].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func stringKey(vals []any) (string, bool) {
	if len(vals) == 0 {
		return "", false
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		switch v := v.(type) {
		case nil:
			return "", false
		case []byte:
			parts[i] = string(v)
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, "/"), true
}

func (a *recordAdapter[K]) ReadEntity(row sql.Row, offset int) *Record {
	r := &Record{}
	a.ReadEntityInto(row, r, offset)
	return r
}

func (a *recordAdapter[K]) ReadEntityInto(row sql.Row, r *Record, offset int) {
	r.Values = make(map[string]any, len(a.table.Columns))
	for i, c := range a.table.Columns {
		i += offset
		if row.IsNull(i) {
			r.Values[c.Name] = nil
			continue
		}
		switch c.Type {
		case schema.TypeInt64, schema.TypeInt:
			r.Values[c.Name] = row.Int64(i)
		case schema.TypeFloat64:
			r.Values[c.Name] = row.Float64(i)
		case schema.TypeBool:
			r.Values[c.Name] = row.Bool(i)
		case schema.TypeBytes:
			r.Values[c.Name] = row.Bytes(i)
		case schema.TypeTime:
			r.Values[c.Name] = row.Time(i)
		default:
			r.Values[c.Name] = row.String(i)
		}
	}
}

func (a *recordAdapter[K]) ReadKey(row sql.Row, offset int) (K, bool) {
	vals := make([]any, len(a.keys))
	for i, k := range a.keys {
		vals[i] = row.Value(offset + k)
	}
	return a.toKey(vals)
}

func (a *recordAdapter[K]) BindValues(stmt *sql.Statement, r *Record) {
	for i, c := range a.table.Columns {
		if v, ok := r.Values[c.Name]; ok && v != nil {
			stmt.BindValue(i+1, v)
		}
	}
}

func (a *recordAdapter[K]) UpdateKeyAfterInsert(r *Record, rowID int64) (K, bool) {
	if a.IsUpdateable() {
		r.Values[a.table.Columns[a.keys[0]].Name] = rowID
	}
	return a.GetKey(r)
}

func (a *recordAdapter[K]) GetKey(r *Record) (K, bool) {
	vals := make([]any, len(a.keys))
	for i, k := range a.keys {
		vals[i] = r.Values[a.table.Columns[k].Name]
	}
	return a.toKey(vals)
}

func (a *recordAdapter[K]) IsUpdateable() bool {
	if len(a.keys) != 1 {
		return false
	}
	t := a.table.Columns[a.keys[0]].Type
	return t == schema.TypeInt64 || t == schema.TypeInt
}
