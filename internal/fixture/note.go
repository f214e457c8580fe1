// Package fixture holds hand-written entity adapters of the kind a code
// generator emits, together with the DDL of their tables.
package fixture

import (
	"sync/atomic"
	"time"

	"github.com/syssam/dao/dialect/sql"
	"github.com/syssam/dao/dialect/sql/schema"
	"github.com/syssam/dao/entity"
)

// NoteDDL creates the NOTE table on SQLite.
const NoteDDL = `CREATE TABLE "NOTE" (
	"_id" INTEGER PRIMARY KEY,
	"TEXT" TEXT NOT NULL,
	"COMMENT" TEXT,
	"DATE" INTEGER
)`

// NoteTable describes the NOTE table.
var NoteTable = schema.NewTable("NOTE",
	&schema.Column{Name: "_id", Type: schema.TypeInt64, PrimaryKey: true},
	&schema.Column{Name: "TEXT", Type: schema.TypeString},
	&schema.Column{Name: "COMMENT", Type: schema.TypeString, Nullable: true},
	&schema.Column{Name: "DATE", Type: schema.TypeTime, Nullable: true},
)

// Note is an entity with an engine-assigned int64 key. A zero ID means
// the note has not been inserted.
type Note struct {
	ID      int64
	Text    string
	Comment *string
	Date    *time.Time
}

// NoteAdapter maps Note to NOTE. It counts the entities it attaches.
type NoteAdapter struct {
	Attached atomic.Int64
}

var (
	_ entity.Adapter[Note, int64] = (*NoteAdapter)(nil)
	_ entity.Attacher[Note]       = (*NoteAdapter)(nil)
)

// ReadEntity implements entity.Adapter.
func (a *NoteAdapter) ReadEntity(row sql.Row, offset int) *Note {
	n := &Note{}
	a.ReadEntityInto(row, n, offset)
	return n
}

// ReadEntityInto implements entity.Adapter.
func (*NoteAdapter) ReadEntityInto(row sql.Row, n *Note, offset int) {
	n.ID = row.Int64(offset)
	n.Text = row.String(offset + 1)
	n.Comment = nil
	if !row.IsNull(offset + 2) {
		s := row.String(offset + 2)
		n.Comment = &s
	}
	n.Date = nil
	if !row.IsNull(offset + 3) {
		t := row.Time(offset + 3)
		n.Date = &t
	}
}

// ReadKey implements entity.Adapter.
func (*NoteAdapter) ReadKey(row sql.Row, offset int) (int64, bool) {
	if row.IsNull(offset) {
		return 0, false
	}
	return row.Int64(offset), true
}

// BindValues implements entity.Adapter.
func (*NoteAdapter) BindValues(stmt *sql.Statement, n *Note) {
	if n.ID != 0 {
		stmt.BindInt64(1, n.ID)
	}
	stmt.BindString(2, n.Text)
	if n.Comment != nil {
		stmt.BindString(3, *n.Comment)
	}
	if n.Date != nil {
		stmt.BindInt64(4, n.Date.UnixMilli())
	}
}

// UpdateKeyAfterInsert implements entity.Adapter.
func (*NoteAdapter) UpdateKeyAfterInsert(n *Note, rowID int64) (int64, bool) {
	n.ID = rowID
	return rowID, true
}

// GetKey implements entity.Adapter.
func (*NoteAdapter) GetKey(n *Note) (int64, bool) {
	return n.ID, n.ID != 0
}

// IsUpdateable implements entity.Adapter.
func (*NoteAdapter) IsUpdateable() bool { return true }

// AttachEntity implements entity.Attacher.
func (a *NoteAdapter) AttachEntity(*Note) { a.Attached.Add(1) }
