package identity

import (
	"sync"
	"weak"

	"github.com/syssam/dao"
)

// Weak is an identity scope holding weak references: an entity that is no
// longer referenced elsewhere may be collected, after which its key misses.
type Weak[K comparable, E any] struct {
	mu      sync.Mutex
	m       map[K]weak.Pointer[E]
	purgeAt int // size at which ReserveRoom next drops collected entries
}

const minPurge = 64

var _ dao.IdentityScope[string, *struct{}] = (*Weak[string, struct{}])(nil)

// NewWeak returns an empty weak scope.
func NewWeak[K comparable, E any]() *Weak[K, E] {
	return &Weak[K, E]{m: make(map[K]weak.Pointer[E]), purgeAt: minPurge}
}

// Get returns the entity cached for key, if it is still alive.
func (s *Weak[K, E]) Get(key K) (*E, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.GetNoLock(key)
}

// GetNoLock is Get for callers holding the lock.
func (s *Weak[K, E]) GetNoLock(key K) (*E, bool) {
	p, ok := s.m[key]
	if !ok {
		return nil, false
	}
	e := p.Value()
	if e == nil {
		delete(s.m, key)
		return nil, false
	}
	return e, true
}

// Put caches e under key.
func (s *Weak[K, E]) Put(key K, e *E) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PutNoLock(key, e)
}

// PutNoLock is Put for callers holding the lock.
func (s *Weak[K, E]) PutNoLock(key K, e *E) { s.m[key] = weak.Make(e) }

// Remove drops the entry for key.
func (s *Weak[K, E]) Remove(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

// RemoveAll drops the entries for keys.
func (s *Weak[K, E]) RemoveAll(keys []K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.m, k)
	}
}

// Clear drops every entry.
func (s *Weak[K, E]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.m)
}

// Lock acquires the scope lock.
func (s *Weak[K, E]) Lock() { s.mu.Lock() }

// Unlock releases the scope lock.
func (s *Weak[K, E]) Unlock() { s.mu.Unlock() }

// ReserveRoom drops collected entries once the map would grow past twice
// its size after the previous purge. Between purges it does nothing, so
// the scan is amortized over the entries added. The caller must hold the
// lock.
func (s *Weak[K, E]) ReserveRoom(n int) {
	if len(s.m)+n <= s.purgeAt {
		return
	}
	for k, p := range s.m {
		if p.Value() == nil {
			delete(s.m, k)
		}
	}
	s.purgeAt = max(2*(len(s.m)+n), minPurge)
}

// Detach removes the entry for key if it refers to e.
func (s *Weak[K, E]) Detach(key K, e *E) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[key]
	if !ok || p != weak.Make(e) {
		return false
	}
	delete(s.m, key)
	return true
}
