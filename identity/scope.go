// Package identity provides in-memory identity scopes: maps from primary
// key to the single live object representing the row.
package identity

import (
	"sync"

	"github.com/syssam/dao"
)

// Scope is a map-backed identity scope holding strong references. Entries
// live until they are removed, detached or cleared.
type Scope[K comparable, T any] struct {
	mu   sync.Mutex
	m    map[K]T
	room int // entries the map was last sized for
}

var _ dao.IdentityScope[int64, *struct{}] = (*Scope[int64, *struct{}])(nil)

// New returns an empty scope.
func New[K comparable, T any]() *Scope[K, T] {
	return &Scope[K, T]{m: make(map[K]T)}
}

// Get returns the object cached for key.
func (s *Scope[K, T]) Get(key K) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.GetNoLock(key)
}

// GetNoLock is Get for callers holding the lock.
func (s *Scope[K, T]) GetNoLock(key K) (T, bool) {
	v, ok := s.m[key]
	return v, ok
}

// Put caches v under key.
func (s *Scope[K, T]) Put(key K, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = v
}

// PutNoLock is Put for callers holding the lock.
func (s *Scope[K, T]) PutNoLock(key K, v T) { s.m[key] = v }

// Remove drops the entry for key.
func (s *Scope[K, T]) Remove(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// RemoveAll drops the entries for keys.
func (s *Scope[K, T]) RemoveAll(keys []K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.m, k)
	}
}

// Clear drops every entry.
func (s *Scope[K, T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.m)
}

// Lock acquires the scope lock.
func (s *Scope[K, T]) Lock() { s.mu.Lock() }

// Unlock releases the scope lock.
func (s *Scope[K, T]) Unlock() { s.mu.Unlock() }

// ReserveRoom makes room for n more entries. The map is only rebuilt when
// it outgrows the size it was last reserved for, and then doubles, so
// reserving a few entries in a large scope costs nothing. The caller must
// hold the lock.
func (s *Scope[K, T]) ReserveRoom(n int) {
	need := len(s.m) + n
	if n <= 0 || need <= s.room {
		return
	}
	room := max(2*s.room, need)
	m := make(map[K]T, room)
	for k, v := range s.m {
		m[k] = v
	}
	s.m, s.room = m, room
}

// Detach removes the entry for key if it maps to v.
func (s *Scope[K, T]) Detach(key K, v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.m[key]
	if !ok || any(cur) != any(v) {
		return false
	}
	delete(s.m, key)
	return true
}

// Len returns the number of cached entries.
func (s *Scope[K, T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}
