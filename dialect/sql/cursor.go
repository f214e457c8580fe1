package sql

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/dao/dialect"
)

// Cursor iterates over the rows of a query. Each row is scanned into a
// Row whose values stay valid after the cursor advances.
type Cursor struct {
	rows   Rows
	cols   []string
	row    Row
	err    error
	closed bool
}

// QueryCursor runs query on ex and returns a cursor over its rows.
// The caller must Close the cursor.
func QueryCursor(ctx context.Context, ex dialect.ExecQuerier, query string, args []any) (*Cursor, error) {
	if args == nil {
		args = []any{}
	}
	var rows Rows
	if err := ex.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, err
	}
	return &Cursor{rows: rows, cols: cols}, nil
}

// Next advances to the next row. It returns false when the rows are
// exhausted or scanning fails; check Err afterwards.
func (c *Cursor) Next() bool {
	if c.closed || c.err != nil {
		return false
	}
	if !c.rows.Next() {
		c.err = c.rows.Err()
		return false
	}
	vals := make([]any, len(c.cols))
	dest := make([]any, len(c.cols))
	for i := range vals {
		dest[i] = &vals[i]
	}
	if err := c.rows.Scan(dest...); err != nil {
		c.err = err
		return false
	}
	c.row = Row{cols: c.cols, vals: vals}
	return true
}

// Row returns the current row.
func (c *Cursor) Row() Row { return c.row }

// Err returns the error, if any, that was encountered during iteration.
func (c *Cursor) Err() error { return c.err }

// Columns returns the column names of the result.
func (c *Cursor) Columns() []string { return c.cols }

// ColumnIndex returns the position of the named column, or -1.
func (c *Cursor) ColumnIndex(name string) int {
	return c.row.index(name, c.cols)
}

// Close releases the underlying rows. It is safe to call more than once.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rows.Close()
}

// All drains the cursor and closes it.
func (c *Cursor) All() ([]Row, error) {
	defer c.Close()
	var rows []Row
	for c.Next() {
		rows = append(rows, c.row)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return rows, c.Close()
}

// Row is one scanned result row addressed by column position. Getters are
// lenient: they convert between the representations engines commonly use
// for a column type and return the zero value for NULL or out-of-range
// positions.
type Row struct {
	cols []string
	vals []any
}

// NewRow returns a row over the given values. Used by adapters in tests
// and by tools that synthesize rows.
func NewRow(cols []string, vals ...any) Row {
	return Row{cols: cols, vals: vals}
}

// Len returns the number of columns.
func (r Row) Len() int { return len(r.vals) }

// Columns returns the column names.
func (r Row) Columns() []string { return r.cols }

// Index returns the position of the named column, or -1.
func (r Row) Index(name string) int { return r.index(name, r.cols) }

func (Row) index(name string, cols []string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	for i, c := range cols {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}

// Value returns the raw value at i.
func (r Row) Value(i int) any {
	if i < 0 || i >= len(r.vals) {
		return nil
	}
	return r.vals[i]
}

// IsNull reports whether the value at i is NULL.
func (r Row) IsNull(i int) bool { return r.Value(i) == nil }

// Int64 returns the value at i as an int64.
func (r Row) Int64(i int) int64 {
	switch v := r.Value(i).(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case []byte:
		n, _ := strconv.ParseInt(string(v), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case time.Time:
		return v.UnixMilli()
	}
	return 0
}

// Int returns the value at i as an int.
func (r Row) Int(i int) int { return int(r.Int64(i)) }

// Float64 returns the value at i as a float64.
func (r Row) Float64(i int) float64 {
	switch v := r.Value(i).(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case []byte:
		f, _ := strconv.ParseFloat(string(v), 64)
		return f
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	}
	return 0
}

// Bool returns the value at i as a bool. Integers are true when non-zero.
func (r Row) Bool(i int) bool {
	switch v := r.Value(i).(type) {
	case bool:
		return v
	case nil:
		return false
	case []byte, string:
		b, err := strconv.ParseBool(r.String(i))
		if err != nil {
			return r.Int64(i) != 0
		}
		return b
	}
	return r.Int64(i) != 0
}

// String returns the value at i as a string.
func (r Row) String(i int) string {
	switch v := r.Value(i).(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Bytes returns the value at i as a byte slice.
func (r Row) Bytes(i int) []byte {
	switch v := r.Value(i).(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	case nil:
		return nil
	}
	return []byte(r.String(i))
}

// Time returns the value at i as a time. Integers are read as Unix
// milliseconds and strings as RFC 3339.
func (r Row) Time(i int) time.Time {
	switch v := r.Value(i).(type) {
	case time.Time:
		return v
	case int64:
		return time.UnixMilli(v)
	case []byte, string:
		t, err := time.Parse(time.RFC3339Nano, r.String(i))
		if err != nil {
			return time.Time{}
		}
		return t
	}
	return time.Time{}
}
