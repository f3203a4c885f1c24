// ABOUTME: Loop stage that rewinds a seekable stream at its end
// ABOUTME: Looping can be toggled while the stream is being read
package stream

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/notify"
)

// Loop reads from a seekable source and, while enabled, jumps back to sample 0
// whenever the source runs dry so that every read is filled completely.
type Loop[T audio.Sample] struct {
	reads notify.Notifier[[]T]

	source  SampleStream[T]
	enabled atomic.Bool
}

// NewLoop wraps source with looping enabled
func NewLoop[T audio.Sample](source SampleStream[T]) (*Loop[T], error) {
	if !source.CanSeek() {
		return nil, fmt.Errorf("%w: looped source must be seekable", audio.ErrUnsupported)
	}
	l := &Loop[T]{source: source}
	l.enabled.Store(true)
	return l, nil
}

// Enabled reports whether reads wrap around
func (l *Loop[T]) Enabled() bool { return l.enabled.Load() }

// SetEnabled turns wrapping on or off
func (l *Loop[T]) SetEnabled(enabled bool) { l.enabled.Store(enabled) }

// Source returns the wrapped stream
func (l *Loop[T]) Source() SampleStream[T] { return l.source }

func (l *Loop[T]) Subscribe(fn notify.Handler[[]T]) (unsubscribe func()) {
	return l.reads.Subscribe(fn)
}

func (l *Loop[T]) Format() audio.Format                  { return l.source.Format() }
func (l *Loop[T]) CanSeek() bool                         { return l.source.CanSeek() }
func (l *Loop[T]) Length() int64                         { return l.source.Length() }
func (l *Loop[T]) Duration() time.Duration               { return l.source.Duration() }
func (l *Loop[T]) SamplePosition() int64                 { return l.source.SamplePosition() }
func (l *Loop[T]) SetSamplePosition(pos int64) error     { return l.source.SetSamplePosition(pos) }
func (l *Loop[T]) TimePosition() time.Duration           { return l.source.TimePosition() }
func (l *Loop[T]) SetTimePosition(d time.Duration) error { return l.source.SetTimePosition(d) }

func (l *Loop[T]) Read(buf []T, offset, count int) (int, error) {
	if err := CheckRead(buf, offset, count); err != nil {
		return 0, err
	}

	// An empty source would never fill the request
	if l.source.Length() == 0 {
		return 0, nil
	}

	read, err := l.source.Read(buf, offset, count)
	if err != nil {
		return read, err
	}

	for l.Enabled() && read < count {
		if err := l.source.SetSamplePosition(0); err != nil {
			return read, err
		}
		n, err := l.source.Read(buf, offset+read, count-read)
		read += n
		if err != nil {
			return read, err
		}
		if n == 0 {
			break
		}
	}

	if read > 0 {
		l.reads.Notify(buf[offset : offset+read])
	}
	return read, nil
}
