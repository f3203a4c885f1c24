// ABOUTME: FLAC audio decoder
// ABOUTME: Seekable float32 stream over mewkiz/flac frame parsing
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
	"github.com/mewkiz/flac"
)

// FLAC decodes a FLAC file one frame at a time
type FLAC struct {
	reads notify.Notifier[[]float32]

	mu       sync.Mutex
	file     io.ReadSeekCloser
	stream   *flac.Stream
	format   audio.Format
	bitDepth int
	length   int64
	pos      int64

	// interleaved samples of the current frame not yet handed out
	pending []float32
	// samples to drop after a seek landed on an earlier frame boundary
	skip int64
	closed bool
}

// OpenFLAC opens a FLAC file
func OpenFLAC(path string) (*FLAC, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	d, err := NewFLAC(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

// NewFLAC decodes FLAC data from r; Close closes r
func NewFLAC(r io.ReadSeekCloser) (*FLAC, error) {
	s, err := flac.NewSeek(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := s.Info
	format, err := audio.NewFormat(int(info.NChannels), int(info.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("invalid FLAC stream info: %w", err)
	}

	return &FLAC{
		file:     r,
		stream:   s,
		format:   format,
		bitDepth: int(info.BitsPerSample),
		length:   int64(info.NSamples) * int64(format.Channels),
	}, nil
}

func (d *FLAC) Format() audio.Format { return d.format }

// CanSeek is false when the stream header does not record a sample count
func (d *FLAC) CanSeek() bool { return d.length > 0 }

func (d *FLAC) Length() int64           { return d.length }
func (d *FLAC) Duration() time.Duration { return d.format.Duration(d.length) }

// BitDepth returns the bits per sample of the encoded stream
func (d *FLAC) BitDepth() int { return d.bitDepth }

func (d *FLAC) Subscribe(fn notify.Handler[[]float32]) (unsubscribe func()) {
	return d.reads.Subscribe(fn)
}

func (d *FLAC) SamplePosition() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

func (d *FLAC) TimePosition() time.Duration {
	return d.format.Duration(d.SamplePosition())
}

// SetSamplePosition seeks to pos, rounded down to a whole frame
func (d *FLAC) SetSamplePosition(pos int64) error {
	if !d.CanSeek() {
		return fmt.Errorf("%w: FLAC stream without sample count", audio.ErrUnsupported)
	}
	if pos < 0 || pos > d.length {
		return fmt.Errorf("%w: position %d outside [0, %d]", audio.ErrInvalidArgument, pos, d.length)
	}

	channels := int64(d.format.Channels)
	target := pos / channels

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errClosed("flac")
	}

	d.pending = d.pending[:0]
	d.skip = 0
	d.pos = target * channels
	if d.pos == d.length {
		return nil
	}

	start, err := d.stream.Seek(uint64(target))
	if err != nil {
		return fmt.Errorf("flac seek failed: %w", err)
	}
	d.skip = (target - int64(start)) * channels
	return nil
}

func (d *FLAC) SetTimePosition(t time.Duration) error {
	return d.SetSamplePosition(d.format.Samples(t))
}

func (d *FLAC) Read(buf []float32, offset, count int) (int, error) {
	if err := stream.CheckRead(buf, offset, count); err != nil {
		return 0, err
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, errClosed("flac")
	}

	read := 0
	for read < count {
		if len(d.pending) == 0 {
			more, err := d.nextFrame()
			if err != nil {
				d.mu.Unlock()
				return 0, err
			}
			if !more {
				break
			}
			continue
		}

		n := copy(buf[offset+read:offset+count], d.pending)
		d.pending = d.pending[n:]
		read += n
	}
	d.pos += int64(read)
	d.mu.Unlock()

	if read > 0 {
		d.reads.Notify(buf[offset : offset+read])
	}
	return read, nil
}

// nextFrame decodes the next frame into pending; false means end of stream
func (d *FLAC) nextFrame() (bool, error) {
	frame, err := d.stream.ParseNext()
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("flac decode error: %w", err)
	}

	channels := d.format.Channels
	block := int(frame.BlockSize)
	out := d.pending[:0]
	for i := 0; i < block; i++ {
		for ch := 0; ch < channels; ch++ {
			out = append(out, audio.Float32FromInt(frame.Subframes[ch].Samples[i], d.bitDepth))
		}
	}

	if d.skip > 0 {
		drop := min(int(d.skip), len(out))
		out = out[drop:]
		d.skip -= int64(drop)
	}
	d.pending = out
	return true, nil
}

func (d *FLAC) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.file.Close()
}
