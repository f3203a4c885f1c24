// ABOUTME: Hardware sink contract used by the playback core
// ABOUTME: Buffer handles, queue bookkeeping and playback state of an output device
package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
)

var (
	// ErrUnknownBuffer is returned for a handle the sink did not allocate
	ErrUnknownBuffer = errors.New("unknown buffer")

	// ErrNoProcessed is returned by Unqueue when no queued buffer has finished playing
	ErrNoProcessed = errors.New("no processed buffers")

	// ErrBufferQueued is returned when a buffer that is still pending playback is queued or overwritten
	ErrBufferQueued = errors.New("buffer is queued")
)

// BufferID is an opaque handle to a sink-owned sample buffer
type BufferID uint32

// State is the playback state a sink reports
type State int

const (
	StateInitial State = iota
	StatePlaying
	StatePaused
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Sink is an output device that plays a queue of uploaded buffers in order.
//
// A buffer is processed once the device has played it completely. Processed
// buffers stay in the queue until Unqueue hands them back, oldest first.
type Sink interface {
	// Allocate creates n empty buffers
	Allocate(n int) ([]BufferID, error)

	// Release frees buffers, removing them from the queue if necessary
	Release(ids []BufferID) error

	// Enqueue appends a buffer to the play queue
	Enqueue(id BufferID) error

	// Unqueue removes the oldest processed buffer from the queue
	Unqueue() (BufferID, error)

	// Queued returns the number of buffers in the queue, processed ones included
	Queued() int

	// Processed returns the number of queued buffers that finished playing
	Processed() int

	// Upload replaces a buffer's contents with interleaved samples
	Upload(id BufferID, f audio.Format, samples []float32) error

	State() State
	Play() error
	Pause() error

	// Stop halts playback and marks every queued buffer processed
	Stop() error

	Close() error
}

// Backends lists the names accepted by Open
var Backends = []string{"malgo", "oto", "null", "portaudio"}

// Open creates the named backend for the given format
func Open(backend string, f audio.Format) (Sink, error) {
	var (
		sink Sink
		err  error
	)
	switch strings.ToLower(backend) {
	case "malgo", "":
		sink, err = wrap(NewMalgo(f))
	case "oto":
		sink, err = wrap(NewOto(f))
	case "null":
		sink, err = wrap(NewNull(f))
	case "portaudio":
		sink, err = wrap(NewPortAudio(f))
	default:
		err = fmt.Errorf("%w: unknown output backend %q (available: %s)",
			audio.ErrInvalidArgument, backend, strings.Join(Backends, ", "))
	}
	return sink, err
}

// wrap keeps a failed constructor's nil pointer out of the interface
func wrap[S Sink](s S, err error) (Sink, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
