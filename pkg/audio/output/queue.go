// ABOUTME: Device-independent buffer queue shared by all output backends
// ABOUTME: Tracks queued and processed buffers while a device pulls samples from it
package output

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
)

// Queue implements Sink in software. A device backend pulls samples with Read
// from its own callback or goroutine; everything else is bookkeeping.
//
// While playing with nothing left to play the queue emits silence and counts
// an underrun, but keeps reporting StatePlaying.
type Queue struct {
	mu        sync.Mutex
	format    audio.Format
	nextID    BufferID
	buffers   map[BufferID][]float32
	queue     []BufferID
	processed int // queue[:processed] have been played
	offset    int // read position inside queue[processed]
	state     State
	gain      float32
	closed    bool

	underruns atomic.Uint64
	played    atomic.Uint64
}

// NewQueue creates an empty queue accepting buffers in format f
func NewQueue(f audio.Format) (*Queue, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &Queue{
		format:  f,
		buffers: make(map[BufferID][]float32),
		state:   StateInitial,
		gain:    1,
	}, nil
}

// Format returns the only format the queue accepts
func (q *Queue) Format() audio.Format { return q.format }

func (q *Queue) checkOpen() error {
	if q.closed {
		return fmt.Errorf("%w: output queue", audio.ErrClosed)
	}
	return nil
}

func (q *Queue) Allocate(n int) ([]BufferID, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: cannot allocate %d buffers", audio.ErrInvalidArgument, n)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.checkOpen(); err != nil {
		return nil, err
	}

	ids := make([]BufferID, n)
	for i := range ids {
		q.nextID++
		ids[i] = q.nextID
		q.buffers[q.nextID] = nil
	}
	return ids, nil
}

func (q *Queue) Release(ids []BufferID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.checkOpen(); err != nil {
		return err
	}

	for _, id := range ids {
		if _, ok := q.buffers[id]; !ok {
			return fmt.Errorf("%w: %d", ErrUnknownBuffer, id)
		}
	}

	for _, id := range ids {
		delete(q.buffers, id)
		if i := slices.Index(q.queue, id); i >= 0 {
			q.queue = slices.Delete(q.queue, i, i+1)
			switch {
			case i < q.processed:
				q.processed--
			case i == q.processed:
				q.offset = 0
			}
		}
	}
	return nil
}

func (q *Queue) Enqueue(id BufferID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.checkOpen(); err != nil {
		return err
	}

	if _, ok := q.buffers[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBuffer, id)
	}
	if slices.Contains(q.queue, id) {
		return fmt.Errorf("%w: %d", ErrBufferQueued, id)
	}
	q.queue = append(q.queue, id)
	return nil
}

func (q *Queue) Unqueue() (BufferID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.checkOpen(); err != nil {
		return 0, err
	}

	if q.processed == 0 {
		return 0, ErrNoProcessed
	}
	id := q.queue[0]
	q.queue = slices.Delete(q.queue, 0, 1)
	q.processed--
	return id, nil
}

func (q *Queue) Queued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

func (q *Queue) Processed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processed
}

// Upload copies samples into the buffer. Buffers waiting to be played cannot be overwritten.
func (q *Queue) Upload(id BufferID, f audio.Format, samples []float32) error {
	if f != q.format {
		return fmt.Errorf("%w: queue plays %v, upload is %v", audio.ErrFormatMismatch, q.format, f)
	}
	if len(samples)%f.Channels != 0 {
		return fmt.Errorf("%w: %d samples is not a whole number of %d-channel frames",
			audio.ErrInvalidArgument, len(samples), f.Channels)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.checkOpen(); err != nil {
		return err
	}

	buf, ok := q.buffers[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBuffer, id)
	}
	if i := slices.Index(q.queue, id); i >= q.processed {
		return fmt.Errorf("%w: %d is pending playback", ErrBufferQueued, id)
	}
	q.buffers[id] = append(buf[:0], samples...)
	return nil
}

func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Play starts or resumes playback. Starting from a stopped state replays
// the whole queue from its first buffer.
func (q *Queue) Play() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.checkOpen(); err != nil {
		return err
	}

	switch q.state {
	case StateInitial, StateStopped:
		q.processed = 0
		q.offset = 0
	}
	q.state = StatePlaying
	return nil
}

func (q *Queue) Pause() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.checkOpen(); err != nil {
		return err
	}

	if q.state == StatePlaying {
		q.state = StatePaused
	}
	return nil
}

func (q *Queue) Stop() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.checkOpen(); err != nil {
		return err
	}

	q.state = StateStopped
	q.processed = len(q.queue)
	q.offset = 0
	return nil
}

// Close drops all buffers; every later call fails with audio.ErrClosed
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.state = StateStopped
	q.buffers = nil
	q.queue = nil
	q.processed = 0
	q.offset = 0
	return nil
}

// SetGain scales every sample read from the queue
func (q *Queue) SetGain(gain float32) {
	if gain < 0 {
		gain = 0
	}
	q.mu.Lock()
	q.gain = gain
	q.mu.Unlock()
}

// Gain returns the current output gain
func (q *Queue) Gain() float32 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.gain
}

// Underruns counts reads that ran out of queued audio while playing
func (q *Queue) Underruns() uint64 { return q.underruns.Load() }

// SamplesPlayed counts samples handed to the device
func (q *Queue) SamplesPlayed() uint64 { return q.played.Load() }

// Read fills dst with the next queued samples and returns how many came from
// buffers. The rest of dst is zeroed.
func (q *Queue) Read(dst []float32) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	filled := 0
	if q.state == StatePlaying {
		for filled < len(dst) {
			if q.processed >= len(q.queue) {
				q.underruns.Add(1)
				break
			}

			buf := q.buffers[q.queue[q.processed]]
			n := copy(dst[filled:], buf[q.offset:])
			for i := filled; i < filled+n; i++ {
				dst[i] *= q.gain
			}
			filled += n
			q.offset += n

			if q.offset >= len(buf) {
				q.processed++
				q.offset = 0
			}
		}
	}

	clear(dst[filled:])
	q.played.Add(uint64(filled))
	return filled
}
