package entity

import "github.com/syssam/dao/dialect/sql"

// Adapter maps one entity type to the columns of its table. Generated
// code implements it per table; the generic Dao does everything else.
//
// Columns are addressed by their ordinal in the table plus the offset of
// the entity's first column in the row, which is non-zero when the row
// also carries the columns of other entities.
type Adapter[E any, K comparable] interface {
	// ReadEntity returns a new entity read from row.
	ReadEntity(row sql.Row, offset int) *E
	// ReadEntityInto overwrites the fields of e with row.
	ReadEntityInto(row sql.Row, e *E, offset int)
	// ReadKey returns the key read from row. It reports false when the
	// key columns are NULL.
	ReadKey(row sql.Row, offset int) (K, bool)
	// BindValues binds every column of e, in ordinal order, starting at
	// parameter 1.
	BindValues(stmt *sql.Statement, e *E)
	// UpdateKeyAfterInsert adopts the engine-assigned row id as the key of
	// e when the key type allows it, and returns the key.
	UpdateKeyAfterInsert(e *E, rowID int64) (K, bool)
	// GetKey returns the key of e. It reports false when e has none yet.
	GetKey(e *E) (K, bool)
	// IsUpdateable reports whether inserted entities adopt their row id.
	IsUpdateable() bool
}

// Attacher is implemented by adapters whose entities keep a reference
// back to their data-access object or session. AttachEntity runs before an
// entity is cached.
type Attacher[E any] interface {
	AttachEntity(e *E)
}

// funcAdapter is an Adapter built from functions.
type funcAdapter[E any, K comparable] struct {
	read       func(row sql.Row, offset int) *E
	readInto   func(row sql.Row, e *E, offset int)
	readKey    func(row sql.Row, offset int) (K, bool)
	bind       func(stmt *sql.Statement, e *E)
	updateKey  func(e *E, rowID int64) (K, bool)
	getKey     func(e *E) (K, bool)
	updateable bool
}

// Funcs lists the functions of an adapter built with AdapterFunc.
// UpdateKey may be nil for keys the engine does not assign.
type Funcs[E any, K comparable] struct {
	Read      func(row sql.Row, offset int) *E
	ReadInto  func(row sql.Row, e *E, offset int)
	ReadKey   func(row sql.Row, offset int) (K, bool)
	Bind      func(stmt *sql.Statement, e *E)
	UpdateKey func(e *E, rowID int64) (K, bool)
	GetKey    func(e *E) (K, bool)
}

// AdapterFunc returns an Adapter calling fs. It is updateable when
// fs.UpdateKey is set.
func AdapterFunc[E any, K comparable](fs Funcs[E, K]) Adapter[E, K] {
	return &funcAdapter[E, K]{
		read:       fs.Read,
		readInto:   fs.ReadInto,
		readKey:    fs.ReadKey,
		bind:       fs.Bind,
		updateKey:  fs.UpdateKey,
		getKey:     fs.GetKey,
		updateable: fs.UpdateKey != nil,
	}
}

func (a *funcAdapter[E, K]) ReadEntity(row sql.Row, offset int) *E { return a.read(row, offset) }

func (a *funcAdapter[E, K]) ReadEntityInto(row sql.Row, e *E, offset int) { a.readInto(row, e, offset) }

func (a *funcAdapter[E, K]) ReadKey(row sql.Row, offset int) (K, bool) { return a.readKey(row, offset) }

func (a *funcAdapter[E, K]) BindValues(stmt *sql.Statement, e *E) { a.bind(stmt, e) }

func (a *funcAdapter[E, K]) UpdateKeyAfterInsert(e *E, rowID int64) (K, bool) {
	if a.updateKey == nil {
		return a.getKey(e)
	}
	return a.updateKey(e, rowID)
}

func (a *funcAdapter[E, K]) GetKey(e *E) (K, bool) { return a.getKey(e) }

func (a *funcAdapter[E, K]) IsUpdateable() bool { return a.updateable }
