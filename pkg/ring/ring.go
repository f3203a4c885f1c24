// ABOUTME: Fixed-capacity circular buffer with overwrite-oldest semantics
// ABOUTME: Used to keep a sliding window of recently produced samples
package ring

import (
	"errors"
	"fmt"
	"iter"
)

var (
	// ErrEmpty is returned when dequeuing from an empty buffer
	ErrEmpty = errors.New("ring buffer is empty")

	// ErrIndexOutOfRange is returned for random access outside [0, Len())
	ErrIndexOutOfRange = errors.New("ring buffer index out of range")

	// ErrInvalidCapacity is returned for a negative capacity
	ErrInvalidCapacity = errors.New("ring buffer capacity must be non-negative")

	// ErrInvalidRange is returned when a bulk enqueue range does not fit the source slice
	ErrInvalidRange = errors.New("invalid enqueue range")
)

// Buffer is a FIFO of fixed capacity. Enqueueing into a full buffer evicts the
// oldest elements. Logical element i lives at physical index (start+i) mod capacity.
//
// Buffer is not safe for concurrent use.
type Buffer[T any] struct {
	data  []T
	start int
	end   int // physical index of the newest element
	count int
}

// New creates a buffer holding at most capacity elements
func New[T any](capacity int) (*Buffer[T], error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Buffer[T]{
		data: make([]T, capacity),
		end:  capacity - 1,
	}, nil
}

// Len returns the number of stored elements
func (b *Buffer[T]) Len() int { return b.count }

// Cap returns the fixed capacity
func (b *Buffer[T]) Cap() int { return len(b.data) }

// Available returns Cap() - Len()
func (b *Buffer[T]) Available() int { return len(b.data) - b.count }

// Enqueue appends one element, evicting the oldest when full
func (b *Buffer[T]) Enqueue(item T) {
	capacity := len(b.data)
	if capacity == 0 {
		return
	}

	b.end = (b.end + 1) % capacity
	b.data[b.end] = item
	if b.count == capacity {
		b.start = (b.start + 1) % capacity
	} else {
		b.count++
	}
}

// EnqueueSlice appends items[start:start+count]. When more items arrive than
// there is room for, the overflow evicts from the front and Len saturates at Cap.
func (b *Buffer[T]) EnqueueSlice(items []T, start, count int) error {
	if start < 0 || count < 0 || start+count > len(items) {
		return fmt.Errorf("%w: start=%d count=%d len=%d", ErrInvalidRange, start, count, len(items))
	}

	capacity := len(b.data)
	if capacity == 0 || count == 0 {
		return nil
	}

	src := items[start : start+count]
	// Only the newest capacity items can survive; the rest still advance end
	if len(src) > capacity {
		skipped := len(src) - capacity
		src = src[skipped:]
		b.end = (b.end + skipped) % capacity
	}
	for _, item := range src {
		b.end = (b.end + 1) % capacity
		b.data[b.end] = item
	}

	overflow := count - b.Available()
	if overflow > 0 {
		b.start = (b.start + overflow) % capacity
		b.count = capacity
	} else {
		b.count += count
	}
	return nil
}

// Dequeue removes and returns the oldest element
func (b *Buffer[T]) Dequeue() (T, error) {
	var zero T
	if b.count == 0 {
		return zero, ErrEmpty
	}

	item := b.data[b.start]
	b.data[b.start] = zero
	b.start = (b.start + 1) % len(b.data)
	b.count--
	return item, nil
}

// At returns the index-th oldest element
func (b *Buffer[T]) At(index int) (T, error) {
	if index < 0 || index >= b.count {
		var zero T
		return zero, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, b.count)
	}
	return b.data[(b.start+index)%len(b.data)], nil
}

// Set overwrites the index-th oldest element
func (b *Buffer[T]) Set(index int, item T) error {
	if index < 0 || index >= b.count {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, b.count)
	}
	b.data[(b.start+index)%len(b.data)] = item
	return nil
}

// Clear drops all elements without releasing storage
func (b *Buffer[T]) Clear() {
	clear(b.data)
	b.start = 0
	b.end = len(b.data) - 1
	b.count = 0
}

// All iterates the elements oldest first. Each call starts a fresh iteration.
func (b *Buffer[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := 0; i < b.count; i++ {
			if !yield(b.data[(b.start+i)%len(b.data)]) {
				return
			}
		}
	}
}

// CopyTo copies up to len(dst) of the newest elements into dst in logical order
// and returns the number copied.
func (b *Buffer[T]) CopyTo(dst []T) int {
	n := min(len(dst), b.count)
	skip := b.count - n
	for i := 0; i < n; i++ {
		dst[i] = b.data[(b.start+skip+i)%len(b.data)]
	}
	return n
}
