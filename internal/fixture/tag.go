package fixture

import (
	"github.com/google/uuid"

	"github.com/syssam/dao/dialect/sql"
	"github.com/syssam/dao/dialect/sql/schema"
	"github.com/syssam/dao/entity"
)

// TagDDL and MembershipDDL create the TAG and MEMBERSHIP tables on SQLite.
const (
	TagDDL        = `CREATE TABLE "TAG" ("ID" TEXT PRIMARY KEY NOT NULL, "LABEL" TEXT NOT NULL, "WEIGHT" INTEGER NOT NULL)`
	MembershipDDL = `CREATE TABLE "MEMBERSHIP" ("GROUP_ID" INTEGER NOT NULL, "USER_ID" INTEGER NOT NULL, "ROLE" TEXT, PRIMARY KEY ("GROUP_ID", "USER_ID"))`
)

// TagTable describes the TAG table, keyed by a client-assigned string.
var TagTable = schema.NewTable("TAG",
	&schema.Column{Name: "ID", Type: schema.TypeString, PrimaryKey: true},
	&schema.Column{Name: "LABEL", Type: schema.TypeString},
	&schema.Column{Name: "WEIGHT", Type: schema.TypeInt},
)

// Tag is keyed by a uuid string assigned before insert.
type Tag struct {
	ID     string
	Label  string
	Weight int
}

// NewTag returns a tag with a fresh key.
func NewTag(label string, weight int) *Tag {
	return &Tag{ID: uuid.NewString(), Label: label, Weight: weight}
}

func readTag(row sql.Row, t *Tag, offset int) {
	t.ID = row.String(offset)
	t.Label = row.String(offset + 1)
	t.Weight = row.Int(offset + 2)
}

// TagAdapter maps Tag to TAG. The engine never assigns the key.
var TagAdapter = entity.AdapterFunc(entity.Funcs[Tag, string]{
	Read: func(row sql.Row, offset int) *Tag {
		t := &Tag{}
		readTag(row, t, offset)
		return t
	},
	ReadInto: readTag,
	ReadKey: func(row sql.Row, offset int) (string, bool) {
		return row.String(offset), !row.IsNull(offset)
	},
	Bind: func(stmt *sql.Statement, t *Tag) {
		stmt.BindString(1, t.ID)
		stmt.BindString(2, t.Label)
		stmt.BindInt64(3, int64(t.Weight))
	},
	GetKey: func(t *Tag) (string, bool) { return t.ID, t.ID != "" },
})

// MembershipTable describes the MEMBERSHIP table, keyed by two columns.
var MembershipTable = schema.NewTable("MEMBERSHIP",
	&schema.Column{Name: "GROUP_ID", Type: schema.TypeInt64, PrimaryKey: true},
	&schema.Column{Name: "USER_ID", Type: schema.TypeInt64, PrimaryKey: true},
	&schema.Column{Name: "ROLE", Type: schema.TypeString, Nullable: true},
)

// MembershipKey is the composite key of a membership.
type MembershipKey struct {
	GroupID int64
	UserID  int64
}

// Membership links a user to a group.
type Membership struct {
	MembershipKey
	Role string
}

// MembershipAdapter maps Membership to MEMBERSHIP.
type MembershipAdapter struct{}

// ReadEntity implements entity.Adapter.
func (a MembershipAdapter) ReadEntity(row sql.Row, offset int) *Membership {
	m := &Membership{}
	a.ReadEntityInto(row, m, offset)
	return m
}

// ReadEntityInto implements entity.Adapter.
func (MembershipAdapter) ReadEntityInto(row sql.Row, m *Membership, offset int) {
	m.GroupID = row.Int64(offset)
	m.UserID = row.Int64(offset + 1)
	m.Role = row.String(offset + 2)
}

// ReadKey implements entity.Adapter.
func (MembershipAdapter) ReadKey(row sql.Row, offset int) (MembershipKey, bool) {
	if row.IsNull(offset) || row.IsNull(offset+1) {
		return MembershipKey{}, false
	}
	return MembershipKey{GroupID: row.Int64(offset), UserID: row.Int64(offset + 1)}, true
}

// BindValues implements entity.Adapter.
func (MembershipAdapter) BindValues(stmt *sql.Statement, m *Membership) {
	stmt.BindInt64(1, m.GroupID)
	stmt.BindInt64(2, m.UserID)
	if m.Role != "" {
		stmt.BindString(3, m.Role)
	}
}

// UpdateKeyAfterInsert implements entity.Adapter.
func (MembershipAdapter) UpdateKeyAfterInsert(m *Membership, _ int64) (MembershipKey, bool) {
	return m.MembershipKey, true
}

// GetKey implements entity.Adapter.
func (MembershipAdapter) GetKey(m *Membership) (MembershipKey, bool) {
	return m.MembershipKey, m.GroupID != 0 && m.UserID != 0
}

// IsUpdateable implements entity.Adapter.
func (MembershipAdapter) IsUpdateable() bool { return false }
