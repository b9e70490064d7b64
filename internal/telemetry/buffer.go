package telemetry

import "sync"

// RingBuffer is a fixed-capacity FIFO that evicts its oldest item when full.
type RingBuffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	next     int
	size     int
	capacity int
}

// NewRingBuffer creates a buffer holding at most capacity items.
// Non-positive capacities fall back to 100.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &RingBuffer[T]{items: make([]T, capacity), capacity: capacity}
}

// Push appends item, overwriting the oldest entry once full.
func (b *RingBuffer[T]) Push(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.next] = item
	b.next = (b.next + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns a copy of the contents, oldest first. Never nil.
func (b *RingBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]T, b.size)
	if b.size < b.capacity {
		copy(out, b.items[:b.size])
		return out
	}
	n := copy(out, b.items[b.next:])
	copy(out[n:], b.items[:b.next])
	return out
}

// Len returns the number of buffered items.
func (b *RingBuffer[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Reset empties the buffer.
func (b *RingBuffer[T]) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.next, b.size = 0, 0
}
