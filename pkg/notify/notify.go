// ABOUTME: Observer registry for pipeline notifications
// ABOUTME: Handlers subscribe and receive events synchronously in subscription order
package notify

import (
	"slices"
	"sync"
)

// Handler receives an event
type Handler[E any] func(E)

type subscription[E any] struct {
	id uint64
	fn Handler[E]
}

// Notifier fans an event out to registered handlers. The zero value is ready to use.
//
// Handlers run on the goroutine that calls Notify and must not block.
type Notifier[E any] struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers []subscription[E]
}

// Subscribe registers fn and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (n *Notifier[E]) Subscribe(fn Handler[E]) (unsubscribe func()) {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.handlers = append(n.handlers, subscription[E]{id: id, fn: fn})
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			n.handlers = slices.DeleteFunc(n.handlers, func(s subscription[E]) bool {
				return s.id == id
			})
		})
	}
}

// Notify delivers e to every handler registered at the time of the call
func (n *Notifier[E]) Notify(e E) {
	n.mu.RLock()
	if len(n.handlers) == 0 {
		n.mu.RUnlock()
		return
	}
	handlers := slices.Clone(n.handlers)
	n.mu.RUnlock()

	for _, h := range handlers {
		h.fn(e)
	}
}

// Len returns the number of registered handlers
func (n *Notifier[E]) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.handlers)
}
