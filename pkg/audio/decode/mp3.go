// ABOUTME: MP3 audio decoder
// ABOUTME: Seekable float32 stream over go-mp3, always 16-bit stereo
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/notify"
	"github.com/Resonate-Protocol/alpipe-go/pkg/stream"
	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces 16-bit little-endian stereo
const (
	mp3Channels       = 2
	mp3BytesPerSample = 2
)

// MP3 decodes an MP3 file
type MP3 struct {
	reads notify.Notifier[[]float32]

	mu      sync.Mutex
	file    io.ReadSeekCloser
	decoder *mp3.Decoder
	format  audio.Format
	length  int64
	pos     int64
	raw     []byte
	closed  bool
}

// OpenMP3 opens an MP3 file
func OpenMP3(path string) (*MP3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	d, err := NewMP3(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

// NewMP3 decodes MP3 data from r; Close closes r
func NewMP3(r io.ReadSeekCloser) (*MP3, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	return &MP3{
		file:    r,
		decoder: decoder,
		format:  audio.Format{Channels: mp3Channels, SampleRate: decoder.SampleRate()},
		length:  decoder.Length() / mp3BytesPerSample,
	}, nil
}

func (d *MP3) Format() audio.Format    { return d.format }
func (d *MP3) CanSeek() bool           { return true }
func (d *MP3) Length() int64           { return d.length }
func (d *MP3) Duration() time.Duration { return d.format.Duration(d.length) }

func (d *MP3) Subscribe(fn notify.Handler[[]float32]) (unsubscribe func()) {
	return d.reads.Subscribe(fn)
}

func (d *MP3) SamplePosition() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos
}

func (d *MP3) TimePosition() time.Duration {
	return d.format.Duration(d.SamplePosition())
}

// SetSamplePosition seeks to pos, rounded down to a whole frame
func (d *MP3) SetSamplePosition(pos int64) error {
	if pos < 0 || pos > d.length {
		return fmt.Errorf("%w: position %d outside [0, %d]", audio.ErrInvalidArgument, pos, d.length)
	}
	pos -= pos % mp3Channels

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errClosed("mp3")
	}

	if _, err := d.decoder.Seek(pos*mp3BytesPerSample, io.SeekStart); err != nil {
		return fmt.Errorf("mp3 seek failed: %w", err)
	}
	d.pos = pos
	return nil
}

func (d *MP3) SetTimePosition(t time.Duration) error {
	return d.SetSamplePosition(d.format.Samples(t))
}

func (d *MP3) Read(buf []float32, offset, count int) (int, error) {
	if err := stream.CheckRead(buf, offset, count); err != nil {
		return 0, err
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, errClosed("mp3")
	}

	need := count * mp3BytesPerSample
	if cap(d.raw) < need {
		d.raw = make([]byte, need)
	}
	raw := d.raw[:need]

	n, err := io.ReadFull(d.decoder, raw)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	if err != nil {
		d.mu.Unlock()
		return 0, fmt.Errorf("mp3 decode error: %w", err)
	}

	samples := n / mp3BytesPerSample
	for i := 0; i < samples; i++ {
		s := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		buf[offset+i] = audio.Float32FromInt16(s)
	}
	d.pos += int64(samples)
	d.mu.Unlock()

	if samples > 0 {
		d.reads.Notify(buf[offset : offset+samples])
	}
	return samples, nil
}

func (d *MP3) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.file.Close()
}
