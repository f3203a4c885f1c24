// ABOUTME: Recorder that persists everything a stream produces
// ABOUTME: Subscribes to post-read notifications and hands each slice to an Encoder
package encode

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/stream"
)

// Recorder writes every sample read from a stream. It never reads the stream
// itself, so it records exactly what the consumer pulled.
type Recorder struct {
	mu          sync.Mutex
	enc         Encoder
	err         error
	samples     int64
	closed      bool
	unsubscribe func()
}

// NewRecorder starts recording source into enc
func NewRecorder(source stream.Observable[float32], enc Encoder) *Recorder {
	r := &Recorder{enc: enc}
	r.unsubscribe = source.Subscribe(r.onRead)
	return r
}

func (r *Recorder) onRead(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// After the first failure the file is already broken; keep the error.
	if r.closed || r.err != nil {
		return
	}
	if err := r.enc.Encode(samples); err != nil {
		r.err = err
		return
	}
	r.samples += int64(len(samples))
}

// Samples returns how many samples have been written
func (r *Recorder) Samples() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.samples
}

// Err returns the first encoding error, if any
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close stops recording and closes the encoder. It reports the first
// encoding error together with any close error.
func (r *Recorder) Close() error {
	r.unsubscribe()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return fmt.Errorf("%w: recorder", audio.ErrClosed)
	}
	r.closed = true

	return errors.Join(r.err, r.enc.Close())
}
