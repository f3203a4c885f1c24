// ABOUTME: Seekable in-memory sample stream
// ABOUTME: Serves fully decoded audio and fixed test signals
package stream

import (
	"fmt"
	"sync"
	"time"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/notify"
)

// Memory is a finite, seekable stream over a slice of samples
type Memory[T audio.Sample] struct {
	reads notify.Notifier[[]T]

	mu     sync.Mutex
	format audio.Format
	data   []T
	pos    int64
}

// NewMemory creates a stream that reads data. The slice is not copied.
func NewMemory[T audio.Sample](format audio.Format, data []T) (*Memory[T], error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	return &Memory[T]{format: format, data: data}, nil
}

func (m *Memory[T]) Format() audio.Format { return m.format }
func (m *Memory[T]) CanSeek() bool        { return true }
func (m *Memory[T]) Length() int64        { return int64(len(m.data)) }

// Subscribe registers fn for every completed read
func (m *Memory[T]) Subscribe(fn notify.Handler[[]T]) (unsubscribe func()) {
	return m.reads.Subscribe(fn)
}

func (m *Memory[T]) Duration() time.Duration {
	return m.format.Duration(int64(len(m.data)))
}

func (m *Memory[T]) SamplePosition() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

func (m *Memory[T]) SetSamplePosition(pos int64) error {
	if pos < 0 || pos > int64(len(m.data)) {
		return fmt.Errorf("%w: position %d outside [0, %d]", audio.ErrInvalidArgument, pos, len(m.data))
	}
	m.mu.Lock()
	m.pos = pos
	m.mu.Unlock()
	return nil
}

func (m *Memory[T]) TimePosition() time.Duration {
	return m.format.Duration(m.SamplePosition())
}

func (m *Memory[T]) SetTimePosition(d time.Duration) error {
	return m.SetSamplePosition(m.format.Samples(d))
}

// Read copies the next samples into buf
func (m *Memory[T]) Read(buf []T, offset, count int) (int, error) {
	if err := CheckRead(buf, offset, count); err != nil {
		return 0, err
	}

	m.mu.Lock()
	n := copy(buf[offset:offset+count], m.data[m.pos:])
	m.pos += int64(n)
	m.mu.Unlock()

	if n > 0 {
		m.reads.Notify(buf[offset : offset+n])
	}
	return n, nil
}
