// Package buffer implements the shared, reference-counted byte container
// that crosses the async boundaries between the datagram engine, the
// stream engine, and the router. Storage is pooled by size class so the
// packet plane's steady-state allocation rate stays flat regardless of
// packet rate.
package buffer

import (
	"sync"
	"sync/atomic"
)

// pools is keyed by capacity; each sync.Pool hands back *[]byte of that
// exact capacity so Acquire never has to grow a slice after a Get.
var (
	poolsMu sync.Mutex
	pools   = map[int]*sync.Pool{}
)

func poolFor(capacity int) *sync.Pool {
	poolsMu.Lock()
	p, ok := pools[capacity]
	if !ok {
		cap := capacity
		p = &sync.Pool{
			New: func() any {
				b := make([]byte, cap)
				return &b
			},
		}
		pools[capacity] = p
	}
	poolsMu.Unlock()
	return p
}

// Buffer is a finite sequence of octets, shared by the receiver, the
// router, and a sender concurrently. It is mutated only by the receive
// path that produced it; once handed to a send callback it must be
// treated as read-only. The last holder of a reference releases storage
// back to the pool.
type Buffer struct {
	pool     *sync.Pool
	storage  *[]byte
	data     []byte
	refs     atomic.Int32
	capacity int
	mu       sync.Mutex
}

// Acquire returns a Buffer whose capacity is exactly capacity octets and
// whose length equals capacity (callers typically Truncate after a short
// read). The single initial reference belongs to the caller.
func Acquire(capacity int) *Buffer {
	pool := poolFor(capacity)
	storage := pool.Get().(*[]byte)
	b := &Buffer{
		pool:     pool,
		storage:  storage,
		data:     (*storage)[:capacity],
		capacity: capacity,
	}
	b.refs.Store(1)
	return b
}

// Bytes returns the buffer's current contents. The returned slice is only
// valid while the caller holds a reference.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

// Len reports the buffer's current length (which may be less than its
// capacity after Truncate).
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Truncate shrinks the buffer's visible length to n, which must be no
// greater than its capacity. Used by the receive path to fix the length
// to the number of bytes actually read.
func (b *Buffer) Truncate(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > b.capacity {
		n = b.capacity
	}
	b.data = (*b.storage)[:n]
}

// Retain adds a reference and returns the same Buffer, for handoff to a
// second concurrent holder (e.g. both a send path and a logging path).
func (b *Buffer) Retain() *Buffer {
	b.refs.Add(1)
	return b
}

// Release drops a reference. When the last reference drops, storage
// returns to its size-classed pool.
func (b *Buffer) Release() {
	if b.refs.Add(-1) == 0 {
		b.pool.Put(b.storage)
	}
}
