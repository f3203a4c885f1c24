// ABOUTME: Buffer tracker that keeps output sink queues full
// ABOUTME: A ticker loop refills processed buffers from each tracked source's stream
package playback

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/audio/output"
	"github.com/Resonate-Protocol/alpipe-go/pkg/stream"
)

// DefaultUpdateDelay is the pause between refill passes
const DefaultUpdateDelay = 10 * time.Millisecond

// Source is something the tracker keeps fed: a stream to pull from and a sink to push to.
//
// Stream and Looping are called with the tracker's lock held and must not call
// back into the tracker. OnFinished and OnRefillError are called without it.
type Source interface {
	Sink() output.Sink
	Stream() stream.SampleStream[float32]
	Looping() bool

	// OnFinished reports that s was exhausted and every buffer of it has played
	OnFinished(s stream.SampleStream[float32])

	// OnRefillError reports that refilling stopped because of err
	OnRefillError(s stream.SampleStream[float32], err error)
}

// Stats are running totals of tracker activity
type Stats struct {
	Ticks           uint64
	BuffersFilled   uint64
	SamplesUploaded uint64
	Finished        uint64
	Errors          uint64
	Tracked         int
}

// entry is the per-source bookkeeping
type entry struct {
	source     Source
	sink       output.Sink
	stream     stream.SampleStream[float32]
	format     audio.Format
	buffers    []output.BufferID
	idle       []output.BufferID // allocated but not queued, oldest first
	bufferSize int
	cursor     int

	pendingFinish bool
	halted        bool
}

type notice struct {
	source Source
	stream stream.SampleStream[float32]
	err    error
}

// Tracker refills the buffer queues of every tracked source.
//
// All refills, whether from the background loop, Track or EnsureBuffers, run
// under one lock and share one scratch buffer.
type Tracker struct {
	mu      sync.Mutex
	entries []*entry
	scratch []float32

	lifeMu      sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
	updateDelay time.Duration

	ticks    atomic.Uint64
	filled   atomic.Uint64
	uploaded atomic.Uint64
	finished atomic.Uint64
	errs     atomic.Uint64
}

// Option configures a Tracker
type Option func(*Tracker)

// WithUpdateDelay sets the pause between refill passes
func WithUpdateDelay(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.updateDelay = d
		}
	}
}

// WithInitialCapacity preallocates the scratch buffer for buffers of n samples
func WithInitialCapacity(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.scratch = make([]float32, n)
		}
	}
}

// NewTracker creates a stopped tracker
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{updateDelay: DefaultUpdateDelay}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var (
	defaultOnce    sync.Once
	defaultTracker *Tracker
)

// Default returns a shared, running tracker
func Default() *Tracker {
	defaultOnce.Do(func() {
		defaultTracker = NewTracker()
		_ = defaultTracker.Start()
	})
	return defaultTracker
}

// UpdateDelay returns the pause between refill passes
func (t *Tracker) UpdateDelay() time.Duration { return t.updateDelay }

func (t *Tracker) find(src Source) (int, *entry) {
	for i, e := range t.entries {
		if e.source == src {
			return i, e
		}
	}
	return -1, nil
}

// Track registers src with bufferCount buffers of bufferSize samples each and
// fills up to preCache of them right away. Tracking a source again replaces
// its previous registration.
func (t *Tracker) Track(src Source, bufferCount, bufferSize, preCache int) error {
	if bufferCount < 1 || bufferSize < 1 || preCache < 0 {
		return fmt.Errorf("%w: buffers=%d size=%d precache=%d",
			audio.ErrInvalidArgument, bufferCount, bufferSize, preCache)
	}

	s := src.Stream()
	if s == nil {
		return fmt.Errorf("%w: source has no stream", audio.ErrInvalidArgument)
	}
	format := s.Format()
	if bufferSize%format.Channels != 0 {
		return fmt.Errorf("%w: buffer size %d is not a multiple of %d channels",
			audio.ErrInvalidArgument, bufferSize, format.Channels)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if i, old := t.find(src); old != nil {
		t.entries = slices.Delete(t.entries, i, i+1)
		if err := old.sink.Release(old.buffers); err != nil {
			log.Printf("Warning: failed to release buffers of replaced source: %v", err)
		}
	}

	sink := src.Sink()
	ids, err := sink.Allocate(bufferCount)
	if err != nil {
		return fmt.Errorf("failed to allocate %d buffers: %w", bufferCount, err)
	}

	if len(t.scratch) < bufferSize {
		t.scratch = make([]float32, bufferSize)
	}

	e := &entry{
		source:     src,
		sink:       sink,
		stream:     s,
		format:     format,
		buffers:    ids,
		idle:       slices.Clone(ids),
		bufferSize: bufferSize,
	}

	if err := t.fill(e, min(bufferCount, preCache)); err != nil {
		if relErr := sink.Release(ids); relErr != nil {
			log.Printf("Warning: failed to release buffers: %v", relErr)
		}
		return fmt.Errorf("pre-cache failed: %w", err)
	}

	t.entries = append(t.entries, e)
	return nil
}

// Untrack forgets src and releases its buffers. Unknown sources are ignored.
func (t *Tracker) Untrack(src Source) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, e := t.find(src)
	if e == nil {
		return nil
	}
	t.entries = slices.Delete(t.entries, i, i+1)

	if err := e.sink.Release(e.buffers); err != nil {
		return fmt.Errorf("failed to release buffers: %w", err)
	}
	return nil
}

// Tracked reports whether src is registered
func (t *Tracker) Tracked(src Source) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, e := t.find(src)
	return e != nil
}

// EnsureBuffers synchronously tops src's queue up to min(n, bufferCount)
// unplayed buffers, regardless of the sink's state.
func (t *Tracker) EnsureBuffers(src Source, n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, e := t.find(src)
	if e == nil {
		return ErrNotTracked
	}
	if e.halted || e.pendingFinish {
		return nil
	}

	if err := t.reclaim(e); err != nil {
		return err
	}

	pending := e.sink.Queued() - e.sink.Processed()
	want := min(n, len(e.buffers)) - pending
	if want <= 0 {
		return nil
	}
	return t.fill(e, want)
}

// Start launches the background refill loop
func (t *Tracker) Start() error {
	t.lifeMu.Lock()
	defer t.lifeMu.Unlock()

	if t.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.run(ctx, t.done)

	log.Printf("Buffer tracker started (update delay %v)", t.updateDelay)
	return nil
}

// Stop ends the background loop and waits for it to exit. It must not be
// called from a Source callback.
func (t *Tracker) Stop() error {
	t.lifeMu.Lock()
	defer t.lifeMu.Unlock()

	if t.cancel == nil {
		return ErrNotRunning
	}
	t.cancel()
	<-t.done
	t.cancel = nil
	t.done = nil

	log.Printf("Buffer tracker stopped")
	return nil
}

// Running reports whether the background loop is active
func (t *Tracker) Running() bool {
	t.lifeMu.Lock()
	defer t.lifeMu.Unlock()
	return t.cancel != nil
}

// Close stops the loop if needed and untracks every source
func (t *Tracker) Close() error {
	if t.Running() {
		if err := t.Stop(); err != nil {
			return err
		}
	}

	t.mu.Lock()
	entries := t.entries
	t.entries = nil
	t.mu.Unlock()

	for _, e := range entries {
		if err := e.sink.Release(e.buffers); err != nil {
			log.Printf("Warning: failed to release buffers: %v", err)
		}
	}
	return nil
}

// Stats returns a snapshot of the running totals
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	tracked := len(t.entries)
	t.mu.Unlock()

	return Stats{
		Ticks:           t.ticks.Load(),
		BuffersFilled:   t.filled.Load(),
		SamplesUploaded: t.uploaded.Load(),
		Finished:        t.finished.Load(),
		Errors:          t.errs.Load(),
		Tracked:         tracked,
	}
}

func (t *Tracker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.updateDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A pass is never started once cancelled
			if ctx.Err() != nil {
				return
			}
			t.tick()
		}
	}
}

// tick runs one refill pass over every entry, then delivers notifications
func (t *Tracker) tick() {
	t.ticks.Add(1)

	var notices []notice
	t.mu.Lock()
	for _, e := range t.entries {
		if n, ok := t.refill(e); ok {
			notices = append(notices, n)
		}
	}
	t.mu.Unlock()

	for _, n := range notices {
		if n.err != nil {
			n.source.OnRefillError(n.stream, n.err)
		} else {
			n.source.OnFinished(n.stream)
		}
	}
}

// refill tops up one entry; a returned notice must be delivered after unlocking
func (t *Tracker) refill(e *entry) (notice, bool) {
	if e.halted {
		return notice{}, false
	}

	switch e.sink.State() {
	case output.StateInitial, output.StateStopped:
		return notice{}, false
	}

	processed, queued := e.sink.Processed(), e.sink.Queued()
	if processed == 0 && queued >= len(e.buffers) {
		return notice{}, false
	}

	if e.pendingFinish {
		if queued-processed > 0 {
			return notice{}, false
		}
		e.halted = true
		t.finished.Add(1)
		return notice{source: e.source, stream: e.stream}, true
	}

	err := t.reclaim(e)
	if err == nil {
		err = t.fill(e, len(e.idle))
	}
	if err != nil {
		e.halted = true
		t.errs.Add(1)
		log.Printf("Refill halted: %v", err)
		return notice{source: e.source, stream: e.stream, err: err}, true
	}
	return notice{}, false
}

// reclaim moves every processed buffer from the sink queue to the idle list
func (t *Tracker) reclaim(e *entry) error {
	for range e.sink.Processed() {
		id, err := e.sink.Unqueue()
		if err != nil {
			return fmt.Errorf("failed to unqueue buffer: %w", err)
		}
		e.idle = append(e.idle, id)
	}
	return nil
}

// fill reads, uploads and queues up to n idle buffers, stopping early when
// the stream runs out
func (t *Tracker) fill(e *entry, n int) error {
	for ; n > 0 && len(e.idle) > 0 && !e.pendingFinish; n-- {
		samples, ok, err := t.read(e)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		// An empty buffer would replay whatever it held before
		if len(samples) == 0 {
			e.pendingFinish = true
			return nil
		}

		id := e.idle[0]
		if err := e.sink.Upload(id, e.format, samples); err != nil {
			return fmt.Errorf("failed to upload buffer: %w", err)
		}
		if err := e.sink.Enqueue(id); err != nil {
			return fmt.Errorf("failed to queue buffer: %w", err)
		}

		e.idle = slices.Delete(e.idle, 0, 1)
		e.cursor = (e.cursor + 1) % len(e.buffers)
		t.filled.Add(1)
		t.uploaded.Add(uint64(len(samples)))

		if len(samples) < e.bufferSize {
			e.pendingFinish = true
		}
	}
	return nil
}

// read pulls one buffer's worth of samples into the scratch buffer. ok is
// false when a looping source produced nothing at all.
func (t *Tracker) read(e *entry) (samples []float32, ok bool, err error) {
	buf := t.scratch[:e.bufferSize]

	n, err := e.stream.Read(buf, 0, e.bufferSize)
	if err != nil {
		return nil, false, fmt.Errorf("stream read failed: %w", err)
	}

	if n < e.bufferSize && e.source.Looping() {
		for n < e.bufferSize {
			if e.stream.Length() == 0 {
				return nil, false, nil
			}
			if err := e.stream.SetSamplePosition(0); err != nil {
				return nil, false, fmt.Errorf("loop rewind failed: %w", err)
			}
			m, err := e.stream.Read(buf, n, e.bufferSize-n)
			if err != nil {
				return nil, false, fmt.Errorf("stream read failed: %w", err)
			}
			if m == 0 {
				return nil, false, nil
			}
			n += m
		}
	}

	// Sinks only take whole frames
	n -= n % e.format.Channels
	return buf[:n], true, nil
}
