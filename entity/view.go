package entity

import (
	"context"
	"sync"

	"github.com/syssam/dao"
	"github.com/syssam/dao/dialect"
)

// txView is the identity scope as one transaction sees it: the entities
// it wrote or materialized and the keys it deleted. The view reaches the
// shared scope after commit and is dropped on rollback.
type txView[E any, K comparable] struct {
	mu      sync.Mutex
	cached  map[K]viewEntry[E]
	removed map[K]struct{}
	cleared bool
}

type viewEntry[E any] struct {
	e       *E
	written bool
}

type viewState uint8

const (
	viewUnknown viewState = iota // defer to the shared scope
	viewCached
	viewGone // deleted in this transaction
)

func (v *txView[E, K]) lookup(key K) (*E, viewState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if ent, ok := v.cached[key]; ok {
		return ent.e, viewCached
	}
	if _, ok := v.removed[key]; ok || v.cleared {
		return nil, viewGone
	}
	return nil, viewUnknown
}

func (v *txView[E, K]) put(key K, e *E, written bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cached == nil {
		v.cached = make(map[K]viewEntry[E])
	}
	delete(v.removed, key)
	v.cached[key] = viewEntry[E]{e: e, written: written || v.cached[key].written}
}

func (v *txView[E, K]) remove(keys []K) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.removed == nil {
		v.removed = make(map[K]struct{}, len(keys))
	}
	for _, k := range keys {
		delete(v.cached, k)
		v.removed[k] = struct{}{}
	}
}

func (v *txView[E, K]) clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cached, v.removed, v.cleared = nil, nil, true
}

// publish applies the view to scope. Written entities replace cached
// ones; entities only materialized yield to an instance cached meanwhile.
func (v *txView[E, K]) publish(scope dao.IdentityScope[K, *E]) {
	v.mu.Lock()
	cleared, cached := v.cleared, v.cached
	removed := make([]K, 0, len(v.removed))
	for k := range v.removed {
		removed = append(removed, k)
	}
	v.mu.Unlock()

	if cleared {
		scope.Clear()
	}
	if len(removed) > 0 {
		scope.RemoveAll(removed)
	}
	if len(cached) == 0 {
		return
	}
	scope.Lock()
	defer scope.Unlock()
	for k, ent := range cached {
		if !ent.written {
			if _, hit := scope.GetNoLock(k); hit {
				continue
			}
		}
		scope.PutNoLock(k, ent.e)
	}
}

// view returns the view of the transaction carried by ctx, or nil outside
// a transaction or without a scope.
func (d *Dao[E, K]) view(ctx context.Context) *txView[E, K] {
	if d.scope == nil {
		return nil
	}
	tc := dialect.TxFromContext(ctx)
	if tc == nil {
		return nil
	}
	v, loaded := tc.LoadOrStore(d, &txView[E, K]{})
	view := v.(*txView[E, K])
	if !loaded {
		tc.OnCommit(func() { view.publish(d.scope) })
	}
	return view
}

// track caches written entities. Inside a transaction they stay in its
// view until commit.
func (d *Dao[E, K]) track(ctx context.Context, list []pending[E, K]) {
	if len(list) == 0 {
		return
	}
	v := d.view(ctx)
	if v == nil {
		dialect.OnCommit(ctx, func() {
			if d.scope != nil {
				d.scope.Lock()
				defer d.scope.Unlock()
			}
			for _, p := range list {
				d.attach(p.key, p.e, false)
			}
		})
		return
	}
	for _, p := range list {
		if d.attacher != nil {
			d.attacher.AttachEntity(p.e)
		}
		v.put(p.key, p.e, true)
	}
}
