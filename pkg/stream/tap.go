// ABOUTME: Tap that mirrors a stream's reads into a circular buffer
// ABOUTME: Gives visualizers the most recent window of produced samples
package stream

import (
	"sync"
	"time"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/notify"
	"github.com/Resonate-Protocol/alpipe-go/pkg/ring"
)

// Tap listens to an observable stream and keeps the latest samples it produced.
// It is passive: it never reads from the stream itself.
type Tap[T audio.Sample] struct {
	mu          sync.Mutex
	buffer      *ring.Buffer[T]
	received    notify.Notifier[[]T]
	unsubscribe func()
}

// NewTap subscribes to source and remembers up to capacity samples
func NewTap[T audio.Sample](source Observable[T], capacity int) (*Tap[T], error) {
	buf, err := ring.New[T](capacity)
	if err != nil {
		return nil, err
	}

	t := &Tap[T]{buffer: buf}
	t.unsubscribe = source.Subscribe(t.onRead)
	return t, nil
}

// NewTapDuration sizes the tap to hold d worth of the source's audio
func NewTapDuration[T audio.Sample](source ObservableStream[T], d time.Duration) (*Tap[T], error) {
	return NewTap[T](source, int(source.Format().Samples(d)))
}

func (t *Tap[T]) onRead(samples []T) {
	t.mu.Lock()
	// The range is always valid here
	_ = t.buffer.EnqueueSlice(samples, 0, len(samples))
	t.mu.Unlock()

	t.received.Notify(samples)
}

// Subscribe registers fn for samples after they have been stored
func (t *Tap[T]) Subscribe(fn notify.Handler[[]T]) (unsubscribe func()) {
	return t.received.Subscribe(fn)
}

// Len returns the number of remembered samples
func (t *Tap[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buffer.Len()
}

// Latest copies the newest len(dst) samples into dst, oldest first
func (t *Tap[T]) Latest(dst []T) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buffer.CopyTo(dst)
}

// Samples returns a copy of every remembered sample, oldest first
func (t *Tap[T]) Samples() []T {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]T, 0, t.buffer.Len())
	for s := range t.buffer.All() {
		out = append(out, s)
	}
	return out
}

// Reset forgets everything stored so far
func (t *Tap[T]) Reset() {
	t.mu.Lock()
	t.buffer.Clear()
	t.mu.Unlock()
}

// Close stops listening to the source
func (t *Tap[T]) Close() {
	t.unsubscribe()
}
