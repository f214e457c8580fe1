package identity

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeReserveRoomAmortized(t *testing.T) {
	s := New[int, *int]()
	v := new(int)
	for i := 0; i < 100_000; i++ {
		s.PutNoLock(i, v)
	}

	s.Lock()
	defer s.Unlock()
	s.ReserveRoom(1)
	room := s.room
	assert.GreaterOrEqual(t, room, 100_001)
	for i := 0; i < 100; i++ {
		s.ReserveRoom(1)
	}
	assert.Equal(t, room, s.room, "small reservations do not rebuild the map")

	s.ReserveRoom(room)
	assert.Equal(t, 2*room, s.room, "outgrowing the reservation doubles it")
	assert.Len(t, s.m, 100_000)
}

// node holds a pointer so that it is never batched with other objects by
// the tiny allocator, which would delay its collection.
type node struct{ next *node }

func TestWeakReserveRoomAmortized(t *testing.T) {
	s := NewWeak[int, node]()
	live := make([]*node, 1000)
	for i := range live {
		live[i] = &node{}
		s.PutNoLock(i, live[i])
	}
	for i := 1000; i < 2000; i++ {
		s.PutNoLock(i, &node{})
	}
	runtime.GC()
	runtime.GC()

	s.ReserveRoom(1)
	require.Len(t, s.m, 1000, "collected entries are purged")
	purgeAt := s.purgeAt
	for i := 0; i < 100; i++ {
		s.ReserveRoom(1)
	}
	assert.Equal(t, purgeAt, s.purgeAt, "no scan until the map doubles")
	runtime.KeepAlive(live)
}

func BenchmarkScopeReserveRoom(b *testing.B) {
	s := New[int, *int]()
	v := new(int)
	for i := 0; i < 1_000_000; i++ {
		s.PutNoLock(i, v)
	}
	s.ReserveRoom(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.ReserveRoom(1)
	}
}
