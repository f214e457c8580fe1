package sql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dao/dialect"
)

func TestCursor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.SQLite, db)

	mock.ExpectQuery(`SELECT T."_id",T."TEXT" FROM "NOTE" T`).
		WillReturnRows(sqlmock.NewRows([]string{"_id", "TEXT"}).
			AddRow(int64(1), "a").
			AddRow(int64(2), nil))

	cur, err := QueryCursor(context.Background(), drv, `SELECT T."_id",T."TEXT" FROM "NOTE" T`, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"_id", "TEXT"}, cur.Columns())
	assert.Equal(t, 1, cur.ColumnIndex("TEXT"))
	assert.Equal(t, -1, cur.ColumnIndex("missing"))

	require.True(t, cur.Next())
	first := cur.Row()
	require.True(t, cur.Next())
	second := cur.Row()
	require.False(t, cur.Next())
	require.NoError(t, cur.Err())
	require.NoError(t, cur.Close())
	require.NoError(t, cur.Close())

	assert.Equal(t, int64(1), first.Int64(0))
	assert.Equal(t, "a", first.String(1), "earlier rows stay valid")
	assert.Equal(t, int64(2), second.Int64(0))
	assert.True(t, second.IsNull(1))
	assert.False(t, cur.Next(), "closed cursor does not advance")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCursorAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.SQLite, db)

	mock.ExpectQuery("SELECT").WithArgs("x").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1).AddRow(2).AddRow(3))
	cur, err := QueryCursor(context.Background(), drv, "SELECT n FROM t WHERE a=?", []any{"x"})
	require.NoError(t, err)
	rows, err := cur.All()
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	boom := errors.New("boom")
	mock.ExpectQuery("SELECT").WillReturnError(boom)
	_, err = QueryCursor(context.Background(), drv, "SELECT n FROM t", nil)
	assert.Same(t, boom, err)

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"n"}).AddRow(1).RowError(0, boom))
	cur, err = QueryCursor(context.Background(), drv, "SELECT n FROM t", nil)
	require.NoError(t, err)
	_, err = cur.All()
	assert.Same(t, boom, err)
}

func TestRowGetters(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	row := NewRow(
		[]string{"i", "s", "f", "b", "raw", "t", "n", "bs"},
		int64(5), "12", 2.5, true, []byte("7"), at, nil, "true",
	)
	assert.Equal(t, 8, row.Len())
	assert.Equal(t, 2, row.Index("f"))

	assert.Equal(t, int64(5), row.Int64(0))
	assert.Equal(t, 5, row.Int(0))
	assert.Equal(t, int64(12), row.Int64(1))
	assert.Equal(t, int64(7), row.Int64(4))
	assert.Equal(t, int64(2), row.Int64(2))
	assert.Equal(t, int64(1), row.Int64(3))
	assert.Equal(t, at.UnixMilli(), row.Int64(5))
	assert.Zero(t, row.Int64(6))
	assert.Zero(t, row.Int64(99))

	assert.Equal(t, "5", row.String(0))
	assert.Equal(t, "2.5", row.String(2))
	assert.Equal(t, "7", row.String(4))
	assert.Empty(t, row.String(6))

	assert.Equal(t, 2.5, row.Float64(2))
	assert.Equal(t, 12.0, row.Float64(1))
	assert.Equal(t, 5.0, row.Float64(0))

	assert.True(t, row.Bool(3))
	assert.True(t, row.Bool(0))
	assert.True(t, row.Bool(7))
	assert.True(t, row.Bool(4), "non-boolean text falls back to its integer value")
	assert.False(t, row.Bool(6))

	assert.Equal(t, []byte("7"), row.Bytes(4))
	assert.Equal(t, []byte("12"), row.Bytes(1))
	assert.Nil(t, row.Bytes(6))

	assert.True(t, at.Equal(row.Time(5)))
	assert.Equal(t, time.UnixMilli(5), row.Time(0))
	assert.True(t, row.Time(6).IsZero())

	assert.True(t, row.IsNull(6))
	assert.True(t, row.IsNull(-1))
	assert.Nil(t, row.Value(100))
}
