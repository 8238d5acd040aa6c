// Package history provides the bounded, most-recent-first buffers that back
// the initial state sent to newly connected subscribers.
package history

import "sync"

// DefaultCapacity is the number of entries kept per buffer.
const DefaultCapacity = 50

// Buffer is a fixed-capacity ring ordered most recent first. Prepend is
// O(1); once the buffer is full every prepend evicts the oldest entry.
// Safe for concurrent use.
type Buffer[T any] struct {
	mu    sync.RWMutex
	items []T
	head  int // index of the most recent entry
	size  int
}

// New creates an empty Buffer. A capacity below 1 falls back to DefaultCapacity.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Prepend inserts v as the most recent entry.
func (b *Buffer[T]) Prepend(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prependLocked(v)
}

func (b *Buffer[T]) prependLocked(v T) {
	n := len(b.items)
	b.head = (b.head - 1 + n) % n
	b.items[b.head] = v
	if b.size < n {
		b.size++
	}
}

// Seed replaces the contents with vs, given most recent first. Entries past
// the capacity are ignored.
func (b *Buffer[T]) Seed(vs []T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.head, b.size = 0, 0

	if len(vs) > len(b.items) {
		vs = vs[:len(b.items)]
	}
	for i := len(vs) - 1; i >= 0; i-- {
		b.prependLocked(vs[i])
	}
}

// Snapshot returns a copy of the entries, most recent first.
func (b *Buffer[T]) Snapshot() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, b.size)
	n := len(b.items)
	for i := 0; i < b.size; i++ {
		out[i] = b.items[(b.head+i)%n]
	}
	return out
}

// Latest returns the most recent entry.
func (b *Buffer[T]) Latest() (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.size == 0 {
		var zero T
		return zero, false
	}
	return b.items[b.head], true
}

// Len returns the number of stored entries.
func (b *Buffer[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Cap returns the capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}
