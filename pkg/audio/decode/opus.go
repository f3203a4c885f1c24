// ABOUTME: Ogg Opus audio decoder
// ABOUTME: Demuxes Ogg pages with pion's oggreader and decodes packets with libopus
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/notify"
	"github.com/Resonate-Protocol/alpipe-go/pkg/stream"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"gopkg.in/hraban/opus.v2"
)

const (
	// libopus always decodes at 48kHz here
	opusSampleRate = 48000

	// 120ms at 48kHz, the largest Opus frame
	opusMaxFrame = 5760
)

var opusTags = []byte("OpusTags")

// Opus decodes an Ogg Opus file. Each Ogg page must carry one Opus packet,
// which is how WebRTC recorders write them. The stream cannot seek.
type Opus struct {
	reads notify.Notifier[[]float32]

	mu      sync.Mutex
	file    io.Closer
	ogg     *oggreader.OggReader
	decoder *opus.Decoder
	format  audio.Format
	pcm     []float32
	pending []float32
	preSkip int
	pos     int64
	closed  bool
}

// OpenOpus opens an Ogg Opus file
func OpenOpus(path string) (*Opus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Opus file: %w", err)
	}

	d, err := NewOpus(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

// NewOpus decodes Ogg Opus data from r; Close closes r
func NewOpus(r io.ReadCloser) (*Opus, error) {
	ogg, header, err := oggreader.NewWith(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read Ogg header: %w", err)
	}

	format, err := audio.NewFormat(int(header.Channels), opusSampleRate)
	if err != nil {
		return nil, fmt.Errorf("invalid Opus header: %w", err)
	}

	dec, err := opus.NewDecoder(opusSampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &Opus{
		file:    r,
		ogg:     ogg,
		decoder: dec,
		format:  format,
		pcm:     make([]float32, opusMaxFrame*format.Channels),
		preSkip: int(header.PreSkip) * format.Channels,
	}, nil
}

func (d *Opus) Format() audio.Format                { return d.format }
func (d *Opus) CanSeek() bool                       { return false }
func (d *Opus) Length() int64                       { return 0 }
func (d *Opus) Duration() time.Duration             { return 0 }
func (d *Opus) SamplePosition() int64               { return 0 }
func (d *Opus) SetSamplePosition(int64) error       { return errOpusSeek }
func (d *Opus) SetTimePosition(time.Duration) error { return errOpusSeek }

var errOpusSeek = fmt.Errorf("%w: Ogg Opus streams cannot seek", audio.ErrUnsupported)

func (d *Opus) Subscribe(fn notify.Handler[[]float32]) (unsubscribe func()) {
	return d.reads.Subscribe(fn)
}

// TimePosition reports how much audio has been read so far
func (d *Opus) TimePosition() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format.Duration(d.pos)
}

func (d *Opus) Read(buf []float32, offset, count int) (int, error) {
	if err := stream.CheckRead(buf, offset, count); err != nil {
		return 0, err
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, errClosed("opus")
	}

	read := 0
	for read < count {
		if len(d.pending) == 0 {
			more, err := d.nextPacket()
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

// nextPacket decodes the next audio page into pending; false means end of stream
func (d *Opus) nextPacket() (bool, error) {
	payload, _, err := d.ogg.ParseNextPage()
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ogg demux error: %w", err)
	}
	if len(payload) == 0 || bytes.HasPrefix(payload, opusTags) {
		return true, nil
	}

	frames, err := d.decoder.DecodeFloat32(payload, d.pcm)
	if err != nil {
		return false, fmt.Errorf("opus decode failed: %w", err)
	}

	out := d.pcm[:frames*d.format.Channels]
	if d.preSkip > 0 {
		drop := min(d.preSkip, len(out))
		out = out[drop:]
		d.preSkip -= drop
	}
	d.pending = out
	return true, nil
}

func (d *Opus) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.file.Close()
}
