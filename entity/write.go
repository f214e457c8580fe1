package entity

import (
	"context"
	"log/slog"

	"github.com/syssam/dao"
	"github.com/syssam/dao/dialect"
	"github.com/syssam/dao/dialect/sql"
)

// withStatement runs fn inside the transaction carried by ctx, or a new
// one, while holding the lock of stmt.
func (d *Dao[E, K]) withStatement(ctx context.Context, stmt *sql.Statement, fn func(context.Context, dialect.ExecQuerier) error) error {
	return dialect.RunTx(ctx, d.drv, d.log, func(ctx context.Context) error {
		ex := dialect.Querier(ctx, d.drv)
		stmt.Lock()
		defer stmt.Unlock()
		return fn(ctx, ex)
	})
}

// execInsert binds e to stmt and executes it. The caller holds the lock of
// stmt. A row id of -1 means the engine wrote nothing.
func (d *Dao[E, K]) execInsert(ctx context.Context, ex dialect.ExecQuerier, stmt *sql.Statement, e *E) (int64, error) {
	stmt.ClearBindings()
	d.adapter.BindValues(stmt, e)
	rowID, err := stmt.ExecInsert(ctx, ex)
	if err != nil {
		return 0, err
	}
	if rowID == -1 {
		if d.cfg.StrictInsert {
			return rowID, &dao.WriteAnomalyError{Table: d.table.Name, SQL: stmt.SQL()}
		}
		d.log.Warn("insert wrote no row", slog.String("table", d.table.Name), slog.String("sql", stmt.SQL()))
	}
	return rowID, nil
}

// Insert inserts e, lets it adopt the row id as its key and caches it.
// It returns the row id, which is -1 when the engine wrote nothing.
func (d *Dao[E, K]) Insert(ctx context.Context, e *E) (int64, error) {
	return d.insert(ctx, "Insert", d.stmts.Insert(), e, true)
}

// InsertOrReplace inserts e, replacing the row holding the same key.
func (d *Dao[E, K]) InsertOrReplace(ctx context.Context, e *E) (int64, error) {
	return d.insert(ctx, "InsertOrReplace", d.stmts.InsertOrReplace(), e, true)
}

// InsertWithoutSettingPk inserts e without updating its key or caching
// it.
func (d *Dao[E, K]) InsertWithoutSettingPk(ctx context.Context, e *E) (int64, error) {
	return d.insert(ctx, "InsertWithoutSettingPk", d.stmts.Insert(), e, false)
}

func (d *Dao[E, K]) insert(ctx context.Context, op string, stmt *sql.Statement, e *E, track bool) (int64, error) {
	if e == nil {
		return 0, dao.NewUsageError(op, "nil entity")
	}
	var rowID int64
	err := d.withStatement(ctx, stmt, func(ctx context.Context, ex dialect.ExecQuerier) error {
		id, err := d.execInsert(ctx, ex, stmt, e)
		if err != nil {
			return err
		}
		rowID = id
		if track && id != -1 {
			if key, ok := d.adapter.UpdateKeyAfterInsert(e, id); ok {
				d.track(ctx, []pending[E, K]{{key, e}})
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rowID, nil
}

// InsertInTx inserts entities in one transaction. Entities adopt their
// row id as key when the adapter is updateable.
func (d *Dao[E, K]) InsertInTx(ctx context.Context, entities ...*E) error {
	return d.InsertInTxWithPk(ctx, d.adapter.IsUpdateable(), entities...)
}

// InsertInTxWithPk is InsertInTx with explicit control over key adoption.
func (d *Dao[E, K]) InsertInTxWithPk(ctx context.Context, setPk bool, entities ...*E) error {
	return d.insertInTx(ctx, "InsertInTx", d.stmts.Insert(), setPk, entities)
}

// InsertOrReplaceInTx inserts or replaces entities in one transaction
// without updating their keys.
func (d *Dao[E, K]) InsertOrReplaceInTx(ctx context.Context, entities ...*E) error {
	return d.InsertOrReplaceInTxWithPk(ctx, false, entities...)
}

// InsertOrReplaceInTxWithPk is InsertOrReplaceInTx with explicit control
// over key adoption.
func (d *Dao[E, K]) InsertOrReplaceInTxWithPk(ctx context.Context, setPk bool, entities ...*E) error {
	return d.insertInTx(ctx, "InsertOrReplaceInTx", d.stmts.InsertOrReplace(), setPk, entities)
}

func (d *Dao[E, K]) insertInTx(ctx context.Context, op string, stmt *sql.Statement, setPk bool, entities []*E) error {
	for _, e := range entities {
		if e == nil {
			return dao.NewUsageError(op, "nil entity in batch")
		}
	}
	return d.withStatement(ctx, stmt, func(ctx context.Context, ex dialect.ExecQuerier) error {
		var list []pending[E, K]
		if setPk {
			list = make([]pending[E, K], 0, len(entities))
		}
		for _, e := range entities {
			id, err := d.execInsert(ctx, ex, stmt, e)
			if err != nil {
				return err
			}
			if !setPk || id == -1 {
				continue
			}
			if key, ok := d.adapter.UpdateKeyAfterInsert(e, id); ok {
				list = append(list, pending[E, K]{key, e})
			}
		}
		d.track(ctx, list)
		return nil
	})
}

// execUpdate binds every column of e and then its key. The caller holds
// the lock of stmt.
func (d *Dao[E, K]) execUpdate(ctx context.Context, ex dialect.ExecQuerier, stmt *sql.Statement, e *E) (K, error) {
	key, ok := d.adapter.GetKey(e)
	if !ok {
		return key, dao.NewUsageError("Update", "cannot update entity of %s without key - was it inserted before?", d.table.Name)
	}
	stmt.ClearBindings()
	d.adapter.BindValues(stmt, e)
	bindKey(stmt, len(d.table.Columns)+1, key)
	if _, err := stmt.Exec(ctx, ex); err != nil {
		return key, err
	}
	return key, nil
}

// Update writes every column of e to its row and caches e.
func (d *Dao[E, K]) Update(ctx context.Context, e *E) error {
	return d.UpdateInTx(ctx, e)
}

// UpdateInTx updates entities in one transaction.
func (d *Dao[E, K]) UpdateInTx(ctx context.Context, entities ...*E) error {
	if err := d.singleKey("Update"); err != nil {
		return err
	}
	for _, e := range entities {
		if e == nil {
			return dao.NewUsageError("Update", "nil entity")
		}
	}
	stmt := d.stmts.Update()
	return d.withStatement(ctx, stmt, func(ctx context.Context, ex dialect.ExecQuerier) error {
		list := make([]pending[E, K], 0, len(entities))
		for _, e := range entities {
			key, err := d.execUpdate(ctx, ex, stmt, e)
			if err != nil {
				return err
			}
			list = append(list, pending[E, K]{key, e})
		}
		d.track(ctx, list)
		return nil
	})
}

// Delete deletes the row of e and drops e from the identity scope.
func (d *Dao[E, K]) Delete(ctx context.Context, e *E) error {
	return d.DeleteInTx(ctx, e)
}

// DeleteByKey deletes the row of key and drops it from the identity scope.
func (d *Dao[E, K]) DeleteByKey(ctx context.Context, key K) error {
	return d.DeleteByKeyInTx(ctx, key)
}

// DeleteInTx deletes the rows of entities in one transaction.
func (d *Dao[E, K]) DeleteInTx(ctx context.Context, entities ...*E) error {
	if err := d.singleKey("Delete"); err != nil {
		return err
	}
	keys := make([]K, 0, len(entities))
	for _, e := range entities {
		key, err := d.verifiedKey("Delete", e)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}
	return d.deleteKeys(ctx, keys)
}

// DeleteByKeyInTx deletes the rows of keys in one transaction.
func (d *Dao[E, K]) DeleteByKeyInTx(ctx context.Context, keys ...K) error {
	if err := d.singleKey("Delete"); err != nil {
		return err
	}
	return d.deleteKeys(ctx, keys)
}

func (d *Dao[E, K]) deleteKeys(ctx context.Context, keys []K) error {
	stmt := d.stmts.Delete()
	return d.withStatement(ctx, stmt, func(ctx context.Context, ex dialect.ExecQuerier) error {
		for _, key := range keys {
			stmt.ClearBindings()
			bindKey(stmt, 1, key)
			if _, err := stmt.Exec(ctx, ex); err != nil {
				return err
			}
		}
		if v := d.view(ctx); v != nil && len(keys) > 0 {
			v.remove(keys)
		}
		return nil
	})
}

// DeleteAll deletes every row and clears the identity scope.
func (d *Dao[E, K]) DeleteAll(ctx context.Context) error {
	if err := dialect.Querier(ctx, d.drv).Exec(ctx, d.stmts.DeleteAll(), []any{}, nil); err != nil {
		return err
	}
	if d.scope == nil {
		return nil
	}
	if v := d.view(ctx); v != nil {
		v.clear()
	} else {
		d.scope.Clear()
	}
	return nil
}
