// ABOUTME: Sample stream contract shared by producers and pipeline stages
// ABOUTME: Pull-based reads of interleaved samples plus read notifications
package stream

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/notify"
)

// SampleStream produces interleaved samples on demand.
//
// Lengths and positions count interleaved samples, not frames. They are only
// meaningful when CanSeek reports true; a non-seekable stream reports zero and
// rejects position changes with audio.ErrUnsupported.
//
// Read fills buf[offset:offset+count] and returns how many samples were written.
// It never returns more than count. A short read with a nil error means the
// stream is exhausted (or momentarily starved); it is not an error.
type SampleStream[T audio.Sample] interface {
	Format() audio.Format
	CanSeek() bool
	Length() int64
	Duration() time.Duration
	SamplePosition() int64
	SetSamplePosition(pos int64) error
	TimePosition() time.Duration
	SetTimePosition(d time.Duration) error
	Read(buf []T, offset, count int) (int, error)
}

// Observable streams publish every completed read. Handlers receive exactly the
// samples that were produced, after they have been written to the caller's buffer.
type Observable[T audio.Sample] interface {
	Subscribe(fn notify.Handler[[]T]) (unsubscribe func())
}

// ObservableStream is a stream that also publishes its reads
type ObservableStream[T audio.Sample] interface {
	SampleStream[T]
	Observable[T]
}

// CheckRead validates the arguments of a Read call
func CheckRead[T any](buf []T, offset, count int) error {
	if offset < 0 {
		return fmt.Errorf("%w: negative offset %d", audio.ErrInvalidArgument, offset)
	}
	if count <= 0 {
		return fmt.Errorf("%w: count must be positive, got %d", audio.ErrInvalidArgument, count)
	}
	if len(buf) < offset+count {
		return fmt.Errorf("%w: buffer of %d samples cannot hold offset %d + count %d",
			audio.ErrInvalidArgument, len(buf), offset, count)
	}
	return nil
}

func notSeekable() error {
	return fmt.Errorf("%w: stream does not support seeking", audio.ErrUnsupported)
}
