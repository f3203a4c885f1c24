// ABOUTME: Ogg Vorbis audio decoder
// ABOUTME: Seekable float32 stream over jfreymuth/oggvorbis
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/notify"
	"github.com/Resonate-Protocol/alpipe-go/pkg/stream"
	"github.com/jfreymuth/oggvorbis"
)

// Vorbis decodes an Ogg Vorbis file
type Vorbis struct {
	reads notify.Notifier[[]float32]

	mu     sync.Mutex
	file   io.ReadSeekCloser
	reader *oggvorbis.Reader
	format audio.Format
	length int64
	pos    int64
	closed bool
}

// OpenVorbis opens an Ogg Vorbis file
func OpenVorbis(path string) (*Vorbis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Vorbis file: %w", err)
	}

	d, err := NewVorbis(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

// NewVorbis decodes Ogg Vorbis data from r; Close closes r
func NewVorbis(r io.ReadSeekCloser) (*Vorbis, error) {
	reader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Ogg Vorbis: %w", err)
	}

	format, err := audio.NewFormat(reader.Channels(), reader.SampleRate())
	if err != nil {
		return nil, fmt.Errorf("invalid Vorbis header: %w", err)
	}

	return &Vorbis{
		file:   r,
		reader: reader,
		format: format,
		length: reader.Length() * int64(format.Channels),
	}, nil
}

func (d *Vorbis) Format() audio.Format { return d.format }

// CanSeek is false when the file has no final granule position to seek against
func (d *Vorbis) CanSeek() bool { return d.length > 0 }

func (d *Vorbis) Length() int64           { return d.length }
func (d *Vorbis) Duration() time.Duration { return d.format.Duration(d.length) }

func (d *Vorbis) Subscribe(fn notify.Handler[[]float32]) (unsubscribe func()) {
	return d.reads.Subscribe(fn)
}

func (d *Vorbis) SamplePosition() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

func (d *Vorbis) TimePosition() time.Duration {
	return d.format.Duration(d.SamplePosition())
}

// SetSamplePosition seeks to pos, rounded down to a whole frame
func (d *Vorbis) SetSamplePosition(pos int64) error {
	if !d.CanSeek() {
		return fmt.Errorf("%w: Vorbis stream without length", audio.ErrUnsupported)
	}
	if pos < 0 || pos > d.length {
		return fmt.Errorf("%w: position %d outside [0, %d]", audio.ErrInvalidArgument, pos, d.length)
	}

	channels := int64(d.format.Channels)
	frame := pos / channels

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errClosed("vorbis")
	}

	if err := d.reader.SetPosition(frame); err != nil {
		return fmt.Errorf("vorbis seek failed: %w", err)
	}
	d.pos = frame * channels
	return nil
}

func (d *Vorbis) SetTimePosition(t time.Duration) error {
	return d.SetSamplePosition(d.format.Samples(t))
}

func (d *Vorbis) Read(buf []float32, offset, count int) (int, error) {
	if err := stream.CheckRead(buf, offset, count); err != nil {
		return 0, err
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, errClosed("vorbis")
	}

	read := 0
	for read < count {
		n, err := d.reader.Read(buf[offset+read : offset+count])
		read += n
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			d.mu.Unlock()
			return 0, fmt.Errorf("vorbis decode error: %w", err)
		}
		if n == 0 {
			break
		}
	}
	d.pos += int64(read)
	d.mu.Unlock()

	if read > 0 {
		d.reads.Notify(buf[offset : offset+read])
	}
	return read, nil
}

func (d *Vorbis) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.file.Close()
}
