package dialect

import (
	"context"
	"log/slog"
	"sync"
)

// TxContext is a transaction carried through a context.Context. Operations
// receiving such a context join the transaction instead of starting one,
// and defer in-memory side effects with OnCommit.
type TxContext struct {
	Tx
	mu     sync.Mutex
	hooks  []func()
	locals map[any]any
	done   bool
}

type txCtxKey struct{}

// NewTxContext returns a context carrying tx.
func NewTxContext(ctx context.Context, tx Tx) (context.Context, *TxContext) {
	tc := &TxContext{Tx: tx}
	return context.WithValue(ctx, txCtxKey{}, tc), tc
}

// TxFromContext returns the transaction carried by ctx, or nil.
func TxFromContext(ctx context.Context) *TxContext {
	tc, _ := ctx.Value(txCtxKey{}).(*TxContext)
	if tc == nil {
		return nil
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.done {
		return nil
	}
	return tc
}

// OnCommit registers fn to run after the transaction commits successfully.
// Hooks are dropped on rollback.
func (t *TxContext) OnCommit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, fn)
}

// LoadOrStore returns the transaction-local value of key if present.
// Otherwise it stores and returns v. The loaded result is true if the
// value was already present. Values are dropped when the transaction ends.
func (t *TxContext) LoadOrStore(key, v any) (actual any, loaded bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.locals[key]; ok {
		return cur, true
	}
	if t.locals == nil {
		t.locals = make(map[any]any)
	}
	t.locals[key] = v
	return v, false
}

// Commit commits the transaction and then runs the commit hooks in
// registration order.
func (t *TxContext) Commit() error {
	t.mu.Lock()
	t.done = true
	hooks := t.hooks
	t.hooks, t.locals = nil, nil
	t.mu.Unlock()
	if err := t.Tx.Commit(); err != nil {
		return err
	}
	for _, fn := range hooks {
		fn()
	}
	return nil
}

// Rollback rolls back the transaction and drops the commit hooks.
func (t *TxContext) Rollback() error {
	t.mu.Lock()
	t.done = true
	t.hooks, t.locals = nil, nil
	t.mu.Unlock()
	return t.Tx.Rollback()
}

// OnCommit defers fn until the transaction carried by ctx commits. Without
// a transaction fn runs immediately.
func OnCommit(ctx context.Context, fn func()) {
	if tc := TxFromContext(ctx); tc != nil {
		tc.OnCommit(fn)
		return
	}
	fn()
}

// Querier returns the transaction carried by ctx, or drv when there is none.
func Querier(ctx context.Context, drv Driver) ExecQuerier {
	if tc := TxFromContext(ctx); tc != nil {
		return tc
	}
	return drv
}

// RunTx runs fn inside a transaction. If ctx already carries one, fn joins
// it and committing is left to its owner. Otherwise a transaction is
// started, committed when fn succeeds and rolled back when it fails. The
// error returned by fn or by the engine is returned unchanged; a failed
// rollback is only logged.
func RunTx(ctx context.Context, drv Driver, log *slog.Logger, fn func(context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	tx, err := drv.Tx(ctx)
	if err != nil {
		return err
	}
	txCtx, tc := NewTxContext(ctx, tx)
	defer func() {
		if v := recover(); v != nil {
			_ = tc.Rollback()
			panic(v)
		}
	}()
	if err := fn(txCtx); err != nil {
		if rerr := tc.Rollback(); rerr != nil {
			if log == nil {
				log = slog.Default()
			}
			log.Error("rollback failed", "error", rerr, "cause", err)
		}
		return err
	}
	return tc.Commit()
}
