package query

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/dao"
	"github.com/syssam/dao/dialect"
	"github.com/syssam/dao/dialect/sql"
	"github.com/syssam/dao/dialect/sql/schema"
	"github.com/syssam/dao/internal/testutil"
	"github.com/syssam/dao/statement"
)

type note struct {
	ID   int64
	Text string
	Rank int64
}

var noteTable = schema.NewTable("NOTE",
	&schema.Column{Name: "_id", Type: schema.TypeInt64, PrimaryKey: true},
	&schema.Column{Name: "TEXT", Type: schema.TypeString},
	&schema.Column{Name: "RANK", Type: schema.TypeInt64},
)

var (
	props    = Properties(noteTable)
	propID   = props[0]
	propText = props[1]
	propRank = props[2]
)

const noteDDL = `CREATE TABLE "NOTE" ("_id" INTEGER PRIMARY KEY, "TEXT" TEXT, "RANK" INTEGER)`

// noteLoader keeps one instance per key, like an identity scope.
type noteLoader struct {
	drv  dialect.Driver
	tbl  *statement.Table
	cfg  dao.Config
	mu   sync.Mutex
	seen map[int64]*note
}

func newNoteLoader(drv dialect.Driver) *noteLoader {
	return &noteLoader{
		drv:  drv,
		tbl:  statement.New(drv.Dialect(), noteTable.Name, noteTable.ColumnNames(), noteTable.KeyNames()),
		cfg:  dao.DefaultConfig(),
		seen: make(map[int64]*note),
	}
}

func (l *noteLoader) Driver() dialect.Driver { return l.drv }

func (l *noteLoader) Statements() *statement.Table { return l.tbl }

func (l *noteLoader) Config() dao.Config { return l.cfg }

func (l *noteLoader) LoadAllRows(ctx context.Context, rows []sql.Row) []*note {
	out := make([]*note, 0, len(rows))
	for _, r := range rows {
		out = append(out, l.LoadCurrent(ctx, r, 0, true))
	}
	return out
}

func (l *noteLoader) LoadCurrent(_ context.Context, row sql.Row, offset int, _ bool) *note {
	if offset > 0 && row.IsNull(offset) {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	id := row.Int64(offset)
	if n, ok := l.seen[id]; ok {
		return n
	}
	n := &note{ID: id, Text: row.String(offset + 1), Rank: row.Int64(offset + 2)}
	l.seen[id] = n
	return n
}

func seededLoader(t *testing.T) *noteLoader {
	t.Helper()
	stmts := []string{noteDDL}
	for i, text := range []string{"banana", "apple", "Cherry", "date", "elder", "fig", "grape"} {
		stmts = append(stmts, fmt.Sprintf(`INSERT INTO "NOTE" VALUES (%d, '%s', %d)`, i+1, text, i%3))
	}
	return newNoteLoader(testutil.OpenSQLite(t, stmts...))
}

func TestBuildSQL(t *testing.T) {
	l := newNoteLoader(testutil.OpenSQLite(t))
	const all = `SELECT T."_id",T."TEXT",T."RANK" FROM "NOTE" T`
	tests := []struct {
		name string
		b    *Builder[note]
		sql  string
		args []any
	}{
		{
			name: "All",
			b:    New[note](l),
			sql:  all,
		},
		{
			name: "WhereOrderLimit",
			b:    New[note](l).Where(propText.Eq("a"), propRank.Gt(3)).OrderAsc(propText).Limit(5),
			sql:  all + ` WHERE T."TEXT"=? AND T."RANK">? ORDER BY T."TEXT" COLLATE LOCALIZED ASC LIMIT ?`,
			args: []any{"a", 3, 5},
		},
		{
			name: "LimitOffset",
			b:    New[note](l).OrderDesc(propRank).OrderRaw(`"_id"`).Limit(10).Offset(20),
			sql:  all + ` ORDER BY T."RANK" DESC,"_id" LIMIT ? OFFSET ?`,
			args: []any{10, 20},
		},
		{
			name: "WhereOr",
			b:    New[note](l).WhereOr(propRank.Lt(1), propRank.Ge(5)),
			sql:  all + ` WHERE (T."RANK"<? OR T."RANK">=?)`,
			args: []any{1, 5},
		},
		{
			name: "Tree",
			b:    New[note](l).Where(AnyOf(propText.Like("a%"), AllOf(propRank.Between(1, 2), propID.NotEq(7)))),
			sql:  all + ` WHERE (T."TEXT" LIKE ? OR (T."RANK" BETWEEN ? AND ? AND T."_id"<>?))`,
			args: []any{"a%", 1, 2, 7},
		},
		{
			name: "InNull",
			b:    New[note](l).Where(propID.In(1, 2, 3), propText.IsNotNull(), propRank.NotIn(), propID.In()),
			sql:  all + ` WHERE T."_id" IN (?,?,?) AND T."TEXT" IS NOT NULL AND 1=1 AND 1=0`,
			args: []any{1, 2, 3},
		},
		{
			name: "Raw",
			b:    New[note](l).Where(Raw(`length(T."TEXT")>?`, 3), propText.IsNull()),
			sql:  all + ` WHERE length(T."TEXT")>? AND T."TEXT" IS NULL`,
			args: []any{3},
		},
		{
			name: "Distinct",
			b:    New[note](l).Distinct().Where(propRank.Le(2)),
			sql:  `SELECT DISTINCT T."_id",T."TEXT",T."RANK" FROM "NOTE" T WHERE T."RANK"<=?`,
			args: []any{2},
		},
		{
			name: "Custom",
			b:    New[note](l).OrderCustom(propRank, "DESC NULLS LAST"),
			sql:  all + ` ORDER BY T."RANK" DESC NULLS LAST`,
		},
		{
			name: "SelectProperty",
			b:    New[note](l).Select(propText),
			sql:  `SELECT T."TEXT" FROM "NOTE" T`,
		},
		{
			name: "SelectExpr",
			b:    New[note](l).Select(Expr("COUNT(*)").As("n"), Literal("it's").As("k"), propRank).Distinct(),
			sql:  `SELECT DISTINCT COUNT(*) AS "n",'it''s' AS "k",T."RANK" FROM "NOTE" T`,
		},
		{
			name: "SelectColumns",
			b:    New[note](l).SelectColumns("NOTE.TEXT", "G.NAME", "RANK"),
			sql:  `SELECT T."TEXT",G."NAME","RANK" FROM "NOTE" T`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := tt.b.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.sql, q.SQL())
			assert.Equal(t, tt.args, q.Args())
		})
	}
}

func TestBuildJoins(t *testing.T) {
	l := newNoteLoader(testutil.OpenSQLite(t))
	tagName := NewProperty("TAG", 1, "Name", schema.TypeString, false, "NAME")
	tagNote := NewProperty("TAG", 2, "NoteID", schema.TypeInt64, false, "NOTE_ID")

	t.Run("InnerAlias", func(t *testing.T) {
		q, err := New[note](l).
			InnerJoin("TAG").Alias("G").On(propID, tagNote.As("G")).
			Where(tagName.As("G").Eq("red")).
			Build()
		require.NoError(t, err)
		assert.Equal(t,
			`SELECT T."_id",T."TEXT",T."RANK" FROM "NOTE" T INNER JOIN "TAG" G ON T."_id" = G."NOTE_ID" WHERE G."NAME"=?`,
			q.SQL())
	})
	t.Run("LeftTable", func(t *testing.T) {
		q, err := New[note](l).LeftJoin("TAG").On(tagNote, Column("NOTE._id")).Build()
		require.NoError(t, err)
		assert.Equal(t,
			`SELECT T."_id",T."TEXT",T."RANK" FROM "NOTE" T LEFT JOIN "TAG" ON TAG."NOTE_ID" = T."_id"`,
			q.SQL())
	})
	t.Run("CrossRaw", func(t *testing.T) {
		q, err := New[note](l).
			CrossJoin("TAG").Alias("G").Done().
			InnerJoin("LABEL").Alias("L").OnRaw("L.ID", "G.LABEL_ID").
			Build()
		require.NoError(t, err)
		assert.Equal(t,
			`SELECT T."_id",T."TEXT",T."RANK" FROM "NOTE" T CROSS JOIN "TAG" G INNER JOIN "LABEL" L ON L.ID = G.LABEL_ID`,
			q.SQL())
	})
	t.Run("MissingOn", func(t *testing.T) {
		_, err := New[note](l).InnerJoin("TAG").Done().Build()
		assert.True(t, dao.IsUsageError(err))
	})
	t.Run("Count", func(t *testing.T) {
		q, err := New[note](l).InnerJoin("TAG").Alias("G").On(propID, tagNote.As("G")).Where(propRank.Gt(1)).BuildCount()
		require.NoError(t, err)
		assert.Equal(t, `SELECT COUNT(*) FROM "NOTE" T INNER JOIN "TAG" G ON T."_id" = G."NOTE_ID" WHERE T."RANK">?`, q.SQL())
	})
	t.Run("DeleteRejectsJoin", func(t *testing.T) {
		_, err := New[note](l).InnerJoin("TAG").On(propID, tagNote).BuildDelete()
		assert.True(t, dao.IsUsageError(err))
	})
}

func TestBuildCountDelete(t *testing.T) {
	l := newNoteLoader(testutil.OpenSQLite(t))
	c, err := New[note](l).Where(propRank.Gt(1)).OrderAsc(propText).Limit(3).BuildCount()
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "NOTE" T WHERE T."RANK">?`, c.SQL())
	assert.Equal(t, []any{1}, c.Args())

	d, err := New[note](l).WhereOr(propRank.Gt(1), propText.Eq("x")).BuildDelete()
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "NOTE" AS T WHERE (T."RANK">? OR T."TEXT"=?)`, d.SQL())
	assert.Equal(t, []any{1, "x"}, d.Args())
}

func TestBuildErrors(t *testing.T) {
	l := newNoteLoader(testutil.OpenSQLite(t))

	_, err := New[note](l).Offset(3).Build()
	require.Error(t, err)
	assert.True(t, dao.IsUsageError(err))
	assert.Contains(t, err.Error(), "offset cannot be set without limit")

	b := New[note](l).Where(nil)
	assert.True(t, dao.IsUsageError(b.Err()))
	_, err = b.Build()
	assert.True(t, dao.IsUsageError(err))

	_, err = New[note](l).WhereAnd(propRank.Gt(1), nil).BuildCount()
	assert.True(t, dao.IsUsageError(err))
}

func TestCompiledCondition(t *testing.T) {
	l := newNoteLoader(testutil.OpenSQLite(t))
	b := New[note](l)
	or := b.Or(propRank.Eq(1), propRank.Eq(2))
	assert.Equal(t, `(T."RANK"=? OR T."RANK"=?)`, or.SQL())
	assert.Equal(t, []any{1, 2}, or.Args())

	and := b.And(or, propText.Eq("a"), Raw("1=1"))
	assert.Equal(t, `((T."RANK"=? OR T."RANK"=?) AND T."TEXT"=? AND 1=1)`, and.SQL())
	assert.Equal(t, []any{1, 2, "a"}, and.Args())

	tree := AllOf(propRank.Eq(1), propRank.Eq(2))
	tree.Add(propText.Eq("x"))
	assert.Equal(t, 3, tree.Len())
}

func TestParameters(t *testing.T) {
	l := newNoteLoader(testutil.OpenSQLite(t))
	q, err := New[note](l).Where(propRank.Eq(1)).Limit(5).Offset(1).Build()
	require.NoError(t, err)

	require.NoError(t, q.SetParameter(0, 2))
	assert.Equal(t, []any{2, 5, 1}, q.Args())

	err = q.SetParameter(1, 9)
	assert.True(t, dao.IsUsageError(err), "limit slot is reserved")
	err = q.SetParameter(2, 9)
	assert.True(t, dao.IsUsageError(err), "offset slot is reserved")
	err = q.SetParameter(3, 9)
	assert.True(t, dao.IsUsageError(err), "out of range")

	require.NoError(t, q.SetLimit(7))
	require.NoError(t, q.SetOffset(3))
	assert.Equal(t, []any{2, 7, 3}, q.Args())

	plain, err := New[note](l).Build()
	require.NoError(t, err)
	assert.True(t, dao.IsUsageError(plain.SetLimit(1)))
	assert.True(t, dao.IsUsageError(plain.SetOffset(1)))
}

func TestOwners(t *testing.T) {
	l := newNoteLoader(testutil.OpenSQLite(t))
	q, err := New[note](l).Where(propRank.Eq(0)).Build()
	require.NoError(t, err)

	o1, o2 := NewOwner(), NewOwner()
	a := q.ForOwner(o1)
	assert.Same(t, a, q.ForOwner(o1))
	assert.Same(t, a, q.ForContext(WithOwner(context.Background(), o1)))
	b := q.ForOwner(o2)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, q.Owners())

	require.NoError(t, a.SetParameter(0, 1))
	assert.Equal(t, []any{1}, a.Args())
	assert.Equal(t, []any{0}, b.Args(), "buffers are independent")
	assert.Equal(t, []any{0}, q.ForContext(context.Background()).Args(), "template is unchanged")
	assert.NotSame(t, q.ForContext(context.Background()), q.ForContext(context.Background()))
	assert.Equal(t, o1, a.Owner())

	_, err = a.List(WithOwner(context.Background(), o2))
	assert.True(t, dao.IsUsageError(err), "instance used on behalf of another owner")

	q.Release(o1)
	assert.Equal(t, 1, q.Owners())
	assert.NotSame(t, a, q.ForOwner(o1))
}

func TestConcurrentOwners(t *testing.T) {
	l := seededLoader(t)
	q, err := New[note](l).Where(propRank.Eq(0)).OrderAsc(propID).Build()
	require.NoError(t, err)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 12; i++ {
		rank := int64(i % 3)
		g.Go(func() error {
			ctx := WithOwner(ctx, NewOwner())
			mine := q.ForContext(ctx)
			if err := mine.SetParameter(0, rank); err != nil {
				return err
			}
			for j := 0; j < 5; j++ {
				notes, err := mine.List(ctx)
				if err != nil {
					return err
				}
				for _, n := range notes {
					if n.Rank != rank {
						return fmt.Errorf("got rank %d, want %d", n.Rank, rank)
					}
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 12, q.Owners())
}

func TestShortcutsWithOwner(t *testing.T) {
	l := seededLoader(t)
	ctx := WithOwner(context.Background(), NewOwner())
	b := func() *Builder[note] { return New[note](l).Where(propRank.Eq(0)) }

	notes, err := b().OrderAsc(propID).List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 3)

	n, err := b().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	ok, err := b().Exist(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	one, err := New[note](l).Where(propID.Eq(2)).UniqueOrThrow(ctx)
	require.NoError(t, err)
	assert.Equal(t, "apple", one.Text)

	texts, err := b().OrderAsc(propID).ListOfString(ctx, propText)
	require.NoError(t, err)
	assert.Equal(t, []string{"banana", "date", "grape"}, texts)

	deleted, err := New[note](l).Where(propRank.Eq(2)).Delete(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	q, err := b().Build()
	require.NoError(t, err)
	notes, err = q.List(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 3, "built instance runs under the caller's owner")

	raw := NewRaw[note](l, `SELECT T."_id",T."TEXT",T."RANK" FROM "NOTE" T WHERE T."RANK"=?`, 1)
	notes, err = raw.List(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 2)
}

func TestScalarKeepsProjection(t *testing.T) {
	l := seededLoader(t)
	ctx := context.Background()
	b := New[note](l).Where(propRank.Eq(1)).OrderAsc(propID)

	texts, err := b.ListOfString(ctx, propText)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "elder"}, texts)

	id, err := New[note](l).Where(propText.Eq("fig")).UniqueInt64(ctx, propID)
	require.NoError(t, err)
	assert.EqualValues(t, 6, id)

	notes, err := b.List(ctx)
	require.NoError(t, err, "entity list after a scalar read")
	require.Len(t, notes, 2)
	assert.Equal(t, "apple", notes[0].Text)
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	l := seededLoader(t)

	t.Run("Limit", func(t *testing.T) {
		notes, err := New[note](l).OrderAsc(propID).Limit(5).List(ctx)
		require.NoError(t, err)
		require.Len(t, notes, 5)
		assert.Equal(t, int64(1), notes[0].ID)

		q, err := New[note](l).OrderAsc(propID).Limit(2).Offset(0).Build()
		require.NoError(t, err)
		require.NoError(t, q.SetOffset(5))
		notes, err = q.List(ctx)
		require.NoError(t, err)
		require.Len(t, notes, 2)
		assert.Equal(t, "fig", notes[0].Text)
	})
	t.Run("Identity", func(t *testing.T) {
		first, err := New[note](l).Where(propID.Eq(1)).Unique(ctx)
		require.NoError(t, err)
		all, err := New[note](l).OrderAsc(propID).List(ctx)
		require.NoError(t, err)
		assert.Same(t, first, all[0])
	})
	t.Run("Collation", func(t *testing.T) {
		texts, err := New[note](l).OrderAsc(propText).Limit(3).ListOfString(ctx, propText)
		require.NoError(t, err)
		assert.Equal(t, []string{"apple", "banana", "Cherry"}, texts)
	})
	t.Run("Unique", func(t *testing.T) {
		_, err := New[note](l).Where(propRank.Eq(0)).Unique(ctx)
		assert.True(t, dao.IsNotSingular(err))
		assert.True(t, dao.IsConsistencyError(err))

		n, err := New[note](l).Where(propRank.Eq(42)).Unique(ctx)
		require.NoError(t, err)
		assert.Nil(t, n)

		_, err = New[note](l).Where(propRank.Eq(42)).UniqueOrThrow(ctx)
		assert.True(t, dao.IsNotFound(err))

		n, err = New[note](l).Where(propText.Eq("fig")).UniqueOrThrow(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(6), n.ID)
	})
	t.Run("Fields", func(t *testing.T) {
		ids, err := New[note](l).Where(propRank.Eq(1)).OrderAsc(propID).ListOfInt64(ctx, propID)
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 5}, ids)

		n, err := New[note](l).UniqueInt64(ctx, Expr("MAX(RANK)").As("m"))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		_, err = New[note](l).Where(propRank.Eq(42)).UniqueString(ctx, propText)
		assert.True(t, dao.IsNotFound(err))

		q, err := New[note](l).Select(propText).Build()
		require.NoError(t, err)
		_, err = q.ListOfString(ctx, "missing")
		assert.True(t, dao.IsUsageError(err))
		_, err = q.List(ctx)
		assert.True(t, dao.IsUsageError(err), "projected queries are read as fields")
	})
	t.Run("CountDelete", func(t *testing.T) {
		n, err := New[note](l).Where(propRank.Eq(2)).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		ok, err := New[note](l).Where(propRank.Eq(42)).Exist(ctx)
		require.NoError(t, err)
		assert.False(t, ok)

		deleted, err := New[note](l).Where(propText.Eq("grape")).Delete(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
		n, err = New[note](l).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(6), n)
	})
}

func TestLazy(t *testing.T) {
	ctx := context.Background()
	l := seededLoader(t)
	q, err := New[note](l).OrderAsc(propID).Build()
	require.NoError(t, err)

	t.Run("Cached", func(t *testing.T) {
		list, err := q.ListLazy(ctx)
		require.NoError(t, err)
		defer list.Close()
		n, err := list.Get(2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n.ID)
		again, err := list.Get(2)
		require.NoError(t, err)
		assert.Same(t, n, again)
		assert.Equal(t, 1, list.LoadedCount())

		size, err := list.Len()
		require.NoError(t, err)
		assert.Equal(t, 7, size)
		require.NoError(t, list.LoadRemaining())
		assert.True(t, list.IsLoaded())
		_, err = list.Get(7)
		assert.True(t, dao.IsUsageError(err))
	})
	t.Run("Uncached", func(t *testing.T) {
		list, err := q.ListLazyUncached(ctx)
		require.NoError(t, err)
		n, err := list.Get(0)
		require.NoError(t, err)
		assert.Equal(t, "banana", n.Text)
		assert.Zero(t, list.LoadedCount())
		assert.True(t, dao.IsUsageError(list.LoadRemaining()))
		require.NoError(t, list.Close())
	})
	t.Run("Iterator", func(t *testing.T) {
		it, err := q.ListIterator(ctx)
		require.NoError(t, err)
		var ids []int64
		for it.Next() {
			ids = append(ids, it.Entity().ID)
		}
		require.NoError(t, it.Err())
		assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7}, ids)
		assert.Nil(t, it.Entity())

		// The iterator released the connection.
		n, err := New[note](l).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(7), n)
	})
}

func TestUnion(t *testing.T) {
	ctx := context.Background()
	l := seededLoader(t)

	t.Run("RejectsOrderedBranch", func(t *testing.T) {
		u := New[note](l).Where(propRank.Eq(0)).Union(New[note](l).Where(propRank.Eq(1)).OrderAsc(propText))
		require.Error(t, u.Err())
		assert.True(t, dao.IsUsageError(u.Err()))
		_, err := u.Cursor(ctx)
		assert.True(t, dao.IsUsageError(err))

		ordered, err := New[note](l).OrderAsc(propID).Build()
		require.NoError(t, err)
		u = New[note](l).Union(ordered)
		assert.True(t, dao.IsUsageError(u.Err()))
		assert.True(t, dao.IsUsageError(New[note](l).Union(RawSelect(`SELECT 1 ORDER BY 1`)).Err()))
	})
	t.Run("Ordered", func(t *testing.T) {
		second, err := New[note](l).Where(propRank.Eq(2)).Build()
		require.NoError(t, err)
		u := New[note](l).Where(propRank.Eq(1)).Union(second).OrderRaw(`"TEXT"`)
		query, args, err := u.SQL()
		require.NoError(t, err)
		assert.Equal(t,
			`SELECT T."_id",T."TEXT",T."RANK" FROM "NOTE" T WHERE T."RANK"=? UNION SELECT T."_id",T."TEXT",T."RANK" FROM "NOTE" T WHERE T."RANK"=? ORDER BY "TEXT"`,
			query)
		assert.Equal(t, []any{1, 2}, args)

		c, err := u.Cursor(ctx)
		require.NoError(t, err)
		rows, err := c.All()
		require.NoError(t, err)
		var texts []string
		for _, r := range rows {
			texts = append(texts, r.String(r.Index("TEXT")))
		}
		assert.Equal(t, []string{"Cherry", "apple", "elder", "fig"}, texts)
	})
	t.Run("Collated", func(t *testing.T) {
		u := New[note](l).Where(propRank.Eq(1)).
			Union(New[note](l).Where(propRank.Eq(2))).
			Union(RawSelect(`SELECT 99, ?, 9`, "Aardvark")).
			OrderAsc(propText)
		c, err := u.Cursor(ctx)
		require.NoError(t, err)
		rows, err := c.All()
		require.NoError(t, err)
		var texts []string
		for _, r := range rows {
			texts = append(texts, r.String(1))
		}
		assert.Equal(t, []string{"Aardvark", "apple", "Cherry", "elder", "fig"}, texts)
	})
}

func TestPostgresRebind(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	l := newNoteLoader(sql.OpenDB(dialect.Postgres, db))

	q, err := New[note](l).Where(propText.Eq("a")).OrderAsc(propText).Limit(10).Offset(20).Build()
	require.NoError(t, err)
	const text = `SELECT T."_id",T."TEXT",T."RANK" FROM "NOTE" T WHERE T."TEXT"=$1 ORDER BY T."TEXT" ASC LIMIT $2 OFFSET $3`
	cols := []string{"_id", "TEXT", "RANK"}
	mock.ExpectQuery(text).WithArgs("a", 10, 20).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(1), "a", int64(2)))
	mock.ExpectQuery(text).WithArgs("b", 1, 2).
		WillReturnRows(sqlmock.NewRows(cols))

	notes, err := q.List(context.Background())
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, &note{ID: 1, Text: "a", Rank: 2}, notes[0])

	require.NoError(t, q.SetParameter(0, "b"))
	require.NoError(t, q.SetLimit(1))
	require.NoError(t, q.SetOffset(2))
	notes, err = q.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, notes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogBuilt(t *testing.T) {
	var buf bytes.Buffer
	l := newNoteLoader(testutil.OpenSQLite(t))
	l.cfg.LogSQL = true
	l.cfg.LogValues = true
	l.cfg.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := New[note](l).Where(propRank.Eq(3)).Build()
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, `msg="built query"`)
	assert.Contains(t, out, `T.\"RANK\"=?`)
	assert.Contains(t, out, "values=[3]")

	buf.Reset()
	l.cfg.LogValues = false
	_, err = New[note](l).BuildDelete()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `msg="built delete query"`)
	assert.NotContains(t, buf.String(), "values=")
}
