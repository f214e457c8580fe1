// Package entity provides Dao, the generic data-access object of one
// table. A Dao keeps the identity scope consistent with storage: every row
// it materializes goes through the scope, and writes change the scope only
// once their transaction has committed.
//
// Mutating operations acquire their resources in a fixed order: the
// transaction (joined from the context or begun), then the lock of the
// statement they execute, then the scope lock. Inside a transaction the
// entities written, deleted or materialized are kept in a view of the
// scope private to that transaction. Reads in the transaction see the
// view first. The view is applied to the scope after the commit, so a
// rolled back batch leaves the scope untouched.
package entity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syssam/dao"
	"github.com/syssam/dao/dialect"
	"github.com/syssam/dao/dialect/sql"
	"github.com/syssam/dao/dialect/sql/schema"
	"github.com/syssam/dao/identity"
	"github.com/syssam/dao/query"
	"github.com/syssam/dao/statement"
)

// Option configures a Dao.
type Option func(*options)

type options struct {
	cfg      dao.Config
	scope    any
	scopeSet bool
}

// WithConfig sets the configuration of the Dao and of the queries it
// builds.
func WithConfig(cfg dao.Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// WithScope installs s as the identity scope. Its value type must be a
// pointer to the entity type. A nil scope disables identity caching.
func WithScope[K comparable, T any](s dao.IdentityScope[K, T]) Option {
	return func(o *options) {
		o.scopeSet = true
		if s != nil {
			o.scope = s
		}
	}
}

// WithoutScope disables identity caching regardless of the configuration.
func WithoutScope() Option {
	return func(o *options) {
		o.scopeSet = true
		o.scope = nil
	}
}

// Dao is the data-access object of the entities E, keyed by K, stored in
// one table. It is safe for concurrent use.
type Dao[E any, K comparable] struct {
	drv      dialect.Driver
	table    *schema.Table
	stmts    *statement.Table
	adapter  Adapter[E, K]
	attacher Attacher[E]
	scope    dao.IdentityScope[K, *E]
	cfg      dao.Config
	log      *slog.Logger
	props    []query.Property
	keyIndex int
	int64Key bool
}

var _ query.Loader[struct{}] = (*Dao[struct{}, int64])(nil)

// New returns the Dao of table. The table description is validated first.
// Unless an option says otherwise, a map-backed identity scope is installed
// when the configuration enables one.
func New[E any, K comparable](drv dialect.Driver, table *schema.Table, adapter Adapter[E, K], opts ...Option) (*Dao[E, K], error) {
	if drv == nil || table == nil || adapter == nil {
		return nil, dao.NewUsageError("New", "nil driver, table or adapter")
	}
	if err := schema.ValidateTable(table).Err(); err != nil {
		return nil, err
	}
	o := options{cfg: dao.DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	d := &Dao[E, K]{
		drv:      drv,
		table:    table,
		adapter:  adapter,
		cfg:      o.cfg,
		log:      o.cfg.Log(),
		props:    query.Properties(table),
		keyIndex: -1,
	}
	d.cfg.Logger = d.log
	d.attacher, _ = any(adapter).(Attacher[E])

	var stmtOpts []statement.Option
	if key, ok := table.SingleKey(); ok {
		for i, c := range table.Columns {
			if c == key {
				d.keyIndex = i
			}
		}
		var zero K
		if _, isInt := any(zero).(int64); isInt && key.Type == schema.TypeInt64 {
			d.int64Key = true
			stmtOpts = append(stmtOpts, statement.WithRowIDColumn(key.Name))
		}
	}
	d.stmts = statement.New(drv.Dialect(), table.Name, table.ColumnNames(), table.KeyNames(), stmtOpts...)

	switch {
	case o.scopeSet && o.scope == nil:
	case o.scopeSet:
		s, ok := o.scope.(dao.IdentityScope[K, *E])
		if !ok {
			return nil, dao.NewUsageError("New", "identity scope %T cannot hold %s entities", o.scope, table.Name)
		}
		d.scope = s
	case o.cfg.IdentityScope:
		d.scope = identity.New[K, *E]()
	}
	return d, nil
}

// Driver returns the engine the Dao runs on.
func (d *Dao[E, K]) Driver() dialect.Driver { return d.drv }

// Statements returns the statement cache of the table.
func (d *Dao[E, K]) Statements() *statement.Table { return d.stmts }

// Config returns the configuration.
func (d *Dao[E, K]) Config() dao.Config { return d.cfg }

// Table returns the table description.
func (d *Dao[E, K]) Table() *schema.Table { return d.table }

// TableName returns the table name.
func (d *Dao[E, K]) TableName() string { return d.table.Name }

// Properties returns the properties of the table columns, in ordinal order.
func (d *Dao[E, K]) Properties() []query.Property { return d.props }

// AllColumns returns the column names.
func (d *Dao[E, K]) AllColumns() []string { return d.stmts.AllColumns() }

// PkColumns returns the key column names.
func (d *Dao[E, K]) PkColumns() []string { return d.stmts.PkColumns() }

// NonPkColumns returns the names of the columns outside the key.
func (d *Dao[E, K]) NonPkColumns() []string { return d.stmts.NonPkColumns() }

// Scope returns the identity scope, or nil.
func (d *Dao[E, K]) Scope() dao.IdentityScope[K, *E] { return d.scope }

// Key returns the key of e.
func (d *Dao[E, K]) Key(e *E) (K, bool) {
	if e == nil {
		var zero K
		return zero, false
	}
	return d.adapter.GetKey(e)
}

// QueryBuilder returns a query builder over the table.
func (d *Dao[E, K]) QueryBuilder() *query.Builder[E] { return query.New[E](d) }

func (d *Dao[E, K]) singleKey(op string) error {
	if d.keyIndex < 0 {
		return dao.NewUsageError(op, "%s has %d primary key columns; this operation needs exactly one", d.table.Name, len(d.table.PrimaryKey))
	}
	return nil
}

func (d *Dao[E, K]) verifiedKey(op string, e *E) (K, error) {
	if e == nil {
		var zero K
		return zero, dao.NewUsageError(op, "nil entity")
	}
	key, ok := d.adapter.GetKey(e)
	if !ok {
		return key, dao.NewUsageError(op, "entity of %s has no key", d.table.Name)
	}
	return key, nil
}

// keyArg returns the value a key is bound as: integers as int64, anything
// else as its string form.
func keyArg[K comparable](k K) any {
	switch v := any(k).(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint32:
		return int64(v)
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(k)
}

func bindKey[K comparable](stmt *sql.Statement, i int, k K) {
	switch v := keyArg(k).(type) {
	case int64:
		stmt.BindInt64(i, v)
	case string:
		stmt.BindString(i, v)
	}
}

func (d *Dao[E, K]) rows(ctx context.Context, query string, args ...any) ([]sql.Row, error) {
	c, err := sql.QueryCursor(ctx, dialect.Querier(ctx, d.drv), dialect.Rebind(d.stmts.Dialect(), query), args)
	if err != nil {
		return nil, err
	}
	return c.All()
}

// readKey reads the key at offset, directly from the key column when the
// key is an int64.
func (d *Dao[E, K]) readKey(row sql.Row, offset int) (K, bool) {
	if d.int64Key {
		var zero K
		i := d.keyIndex + offset
		if row.IsNull(i) {
			return zero, false
		}
		return any(row.Int64(i)).(K), true
	}
	return d.adapter.ReadKey(row, offset)
}

// LoadCurrent materializes the entity whose columns start at offset in
// row. A cached instance is returned as is. A NULL key at a non-zero
// offset means the joined row is missing and yields nil. When lock is
// false the caller holds the scope lock. Inside a transaction the
// entities it wrote or deleted take precedence over the scope.
func (d *Dao[E, K]) LoadCurrent(ctx context.Context, row sql.Row, offset int, lock bool) *E {
	return d.loadCurrent(d.view(ctx), row, offset, lock)
}

func (d *Dao[E, K]) loadCurrent(v *txView[E, K], row sql.Row, offset int, lock bool) *E {
	key, ok := d.readKey(row, offset)
	if !ok {
		if offset != 0 {
			return nil
		}
		e := d.adapter.ReadEntity(row, offset)
		if d.attacher != nil {
			d.attacher.AttachEntity(e)
		}
		return e
	}
	if d.scope == nil {
		e := d.adapter.ReadEntity(row, offset)
		d.attach(key, e, false)
		return e
	}
	if lock {
		d.scope.Lock()
		defer d.scope.Unlock()
	}
	state := viewUnknown
	if v != nil {
		var e *E
		if e, state = v.lookup(key); state == viewCached {
			return e
		}
	}
	if state == viewUnknown {
		if e, hit := d.scope.GetNoLock(key); hit {
			return e
		}
	}
	e := d.adapter.ReadEntity(row, offset)
	d.cache(v, key, e, false, false)
	return e
}

// LoadAllRows materializes rows under a single scope lock acquisition.
func (d *Dao[E, K]) LoadAllRows(ctx context.Context, rows []sql.Row) []*E {
	list := make([]*E, 0, len(rows))
	v := d.view(ctx)
	if d.scope != nil {
		d.scope.Lock()
		defer d.scope.Unlock()
		d.scope.ReserveRoom(len(rows))
	}
	for _, r := range rows {
		list = append(list, d.loadCurrent(v, r, 0, false))
	}
	return list
}

func (d *Dao[E, K]) loadUnique(ctx context.Context, rows []sql.Row) (*E, error) {
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return d.LoadCurrent(ctx, rows[0], 0, true), nil
	default:
		return nil, dao.NewNotSingularErrorWithCount(d.table.Name, len(rows))
	}
}

// attach caches e. When lock is false the caller holds the scope lock.
func (d *Dao[E, K]) attach(key K, e *E, lock bool) {
	if d.attacher != nil {
		d.attacher.AttachEntity(e)
	}
	switch {
	case d.scope == nil:
	case lock:
		d.scope.Put(key, e)
	default:
		d.scope.PutNoLock(key, e)
	}
}

// cache caches e in the transaction view v, or in the scope when v is nil.
func (d *Dao[E, K]) cache(v *txView[E, K], key K, e *E, written, lock bool) {
	if v == nil {
		d.attach(key, e, lock)
		return
	}
	if d.attacher != nil {
		d.attacher.AttachEntity(e)
	}
	v.put(key, e, written)
}

type pending[E any, K comparable] struct {
	key K
	e   *E
}

// Load returns the entity of key, or nil if there is none. A cached
// instance is returned without querying.
func (d *Dao[E, K]) Load(ctx context.Context, key K) (*E, error) {
	if err := d.singleKey("Load"); err != nil {
		return nil, err
	}
	state := viewUnknown
	if v := d.view(ctx); v != nil {
		var e *E
		if e, state = v.lookup(key); state == viewCached {
			return e, nil
		}
	}
	if d.scope != nil && state == viewUnknown {
		if e, ok := d.scope.Get(key); ok {
			return e, nil
		}
	}
	rows, err := d.rows(ctx, d.stmts.SelectByKey(), keyArg(key))
	if err != nil {
		return nil, err
	}
	return d.loadUnique(ctx, rows)
}

// LoadByRowID returns the entity stored in the row with the engine row
// id, or nil if there is none.
func (d *Dao[E, K]) LoadByRowID(ctx context.Context, rowID int64) (*E, error) {
	q := d.stmts.SelectByRowID()
	if q == "" {
		return nil, dao.NewUsageError("LoadByRowID", "%s has no row id on %s", d.table.Name, d.stmts.Dialect())
	}
	rows, err := d.rows(ctx, q, rowID)
	if err != nil {
		return nil, err
	}
	return d.loadUnique(ctx, rows)
}

// LoadAll returns every entity of the table.
func (d *Dao[E, K]) LoadAll(ctx context.Context) ([]*E, error) {
	rows, err := d.rows(ctx, d.stmts.SelectAll(false))
	if err != nil {
		return nil, err
	}
	return d.LoadAllRows(ctx, rows), nil
}

// QueryRaw returns the entities selected by a WHERE tail, such as
// "WHERE T.\"NAME\"=?". The table alias is statement.Alias.
func (d *Dao[E, K]) QueryRaw(ctx context.Context, where string, args ...any) ([]*E, error) {
	rows, err := d.rows(ctx, d.stmts.SelectAll(false)+" "+where, args...)
	if err != nil {
		return nil, err
	}
	return d.LoadAllRows(ctx, rows), nil
}

// QueryRawCreate compiles the select-all statement followed by a WHERE
// tail into a reusable query.
func (d *Dao[E, K]) QueryRawCreate(where string, args ...any) *query.Query[E] {
	return query.NewRaw[E](d, d.stmts.SelectAll(false)+" "+where, args...)
}

// Count returns the number of rows in the table.
func (d *Dao[E, K]) Count(ctx context.Context) (int64, error) {
	rows, err := d.rows(ctx, d.stmts.CountStar())
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Int64(0), nil
}

// Refresh overwrites the fields of e with its stored row and caches it.
func (d *Dao[E, K]) Refresh(ctx context.Context, e *E) error {
	if err := d.singleKey("Refresh"); err != nil {
		return err
	}
	key, err := d.verifiedKey("Refresh", e)
	if err != nil {
		return err
	}
	rows, err := d.rows(ctx, d.stmts.SelectByKey(), keyArg(key))
	if err != nil {
		return err
	}
	switch len(rows) {
	case 0:
		return dao.NewNotFoundErrorWithID(d.table.Name, key)
	case 1:
	default:
		return dao.NewNotSingularErrorWithCount(d.table.Name, len(rows))
	}
	d.adapter.ReadEntityInto(rows[0], e, 0)
	d.cache(d.view(ctx), key, e, true, true)
	return nil
}

// Detach removes e from the identity scope. It reports false when there
// is no scope or e is not the cached instance of its key.
func (d *Dao[E, K]) Detach(e *E) bool {
	if d.scope == nil || e == nil {
		return false
	}
	key, ok := d.adapter.GetKey(e)
	if !ok {
		return false
	}
	return d.scope.Detach(key, e)
}
