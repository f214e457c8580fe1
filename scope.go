package dao

// IdentityScope maps primary-key values to the single live object that
// represents the row. Implementations may be swapped per data-access
// object; a nil scope disables identity caching.
//
// The NoLock variants must only be called between Lock and Unlock. The
// lock is not reentrant: callers holding it use the NoLock variants only.
type IdentityScope[K comparable, T any] interface {
	// Get returns the object cached for key.
	Get(key K) (T, bool)
	// GetNoLock is Get for callers already holding the lock.
	GetNoLock(key K) (T, bool)

	// Put caches v under key, replacing any previous entry.
	Put(key K, v T)
	// PutNoLock is Put for callers already holding the lock.
	PutNoLock(key K, v T)

	// Remove drops the entry for key.
	Remove(key K)
	// RemoveAll drops the entries for all keys under one lock acquisition.
	RemoveAll(keys []K)
	// Clear drops every entry.
	Clear()

	// Lock acquires the scope lock for a batch of NoLock calls.
	Lock()
	// Unlock releases the scope lock.
	Unlock()

	// ReserveRoom hints that about n more entries are coming. The caller
	// must hold the lock.
	ReserveRoom(n int)

	// Detach removes the entry for key only if it currently maps to v.
	Detach(key K, v T) bool
}
