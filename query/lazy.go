package query

import (
	"context"
	"sync"

	"github.com/syssam/dao"
	"github.com/syssam/dao/dialect/sql"
)

// LazyList is a cursor-backed list. Rows are read from the cursor as far
// as an access requires; a cached list also keeps the entities it has
// materialized and closes the cursor once every entity is loaded. It is
// safe for concurrent use. The caller must Close it.
type LazyList[T any] struct {
	mu       sync.Mutex
	ctx      context.Context
	loader   Loader[T]
	cursor   *sql.Cursor
	cached   bool
	rows     []sql.Row
	entities []*T
	loaded   int
	done     bool
	err      error
}

func newLazyList[T any](ctx context.Context, l Loader[T], c *sql.Cursor, cached bool) *LazyList[T] {
	return &LazyList[T]{ctx: ctx, loader: l, cursor: c, cached: cached}
}

// readTo reads rows until index i is available or the cursor is
// exhausted. It requires the lock.
func (l *LazyList[T]) readTo(i int) error {
	for !l.done && len(l.rows) <= i {
		if !l.cursor.Next() {
			l.done = true
			l.err = l.cursor.Err()
			break
		}
		l.rows = append(l.rows, l.cursor.Row())
		if l.cached {
			l.entities = append(l.entities, nil)
		}
	}
	return l.err
}

// Get returns the entity at i.
func (l *LazyList[T]) Get(i int) (*T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.readTo(i); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(l.rows) {
		return nil, dao.NewUsageError("Get", "index %d out of range [0,%d)", i, len(l.rows))
	}
	if !l.cached {
		return l.loader.LoadCurrent(l.ctx, l.rows[i], 0, true), nil
	}
	if e := l.entities[i]; e != nil {
		return e, nil
	}
	e := l.loader.LoadCurrent(l.ctx, l.rows[i], 0, true)
	l.entities[i] = e
	l.loaded++
	if l.done && l.loaded == len(l.rows) {
		_ = l.cursor.Close()
	}
	return e, nil
}

// Len reads the remaining rows and returns their number. Entities are
// not materialized.
func (l *LazyList[T]) Len() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.readTo(int(^uint(0) >> 1)); err != nil {
		return 0, err
	}
	if l.cached {
		return len(l.entities), nil
	}
	return len(l.rows), nil
}

// LoadedCount returns the number of entities a cached list has materialized.
func (l *LazyList[T]) LoadedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// IsLoaded reports whether a cached list has materialized every entity.
func (l *LazyList[T]) IsLoaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cached && l.done && l.loaded == len(l.entities)
}

// LoadRemaining materializes every entity of a cached list.
func (l *LazyList[T]) LoadRemaining() error {
	if !l.cached {
		return dao.NewUsageError("LoadRemaining", "list is not cached")
	}
	n, err := l.Len()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if _, err := l.Get(i); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the backing cursor.
func (l *LazyList[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.done = true
	return l.cursor.Close()
}

// Iterator walks the results of a query once, materializing each row as
// it is reached. The cursor is closed when the rows are exhausted or an
// error occurs; call Close when stopping early.
type Iterator[T any] struct {
	ctx    context.Context
	loader Loader[T]
	cursor *sql.Cursor
	cur    *T
	err    error
}

// Next advances to the next entity.
func (it *Iterator[T]) Next() bool {
	if it.cursor.Next() {
		it.cur = it.loader.LoadCurrent(it.ctx, it.cursor.Row(), 0, true)
		return true
	}
	it.cur = nil
	it.err = it.cursor.Err()
	if cerr := it.cursor.Close(); it.err == nil {
		it.err = cerr
	}
	return false
}

// Entity returns the current entity.
func (it *Iterator[T]) Entity() *T { return it.cur }

// Err returns the error that stopped the iteration, if any.
func (it *Iterator[T]) Err() error { return it.err }

// Close closes the cursor.
func (it *Iterator[T]) Close() error { return it.cursor.Close() }
