// ABOUTME: WAV audio decoder
// ABOUTME: Decodes a whole PCM WAV file into a seekable in-memory stream
package decode

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/stream"
	"github.com/go-audio/wav"
)

// WAV is a fully decoded WAV file
type WAV struct {
	*stream.Memory[float32]

	bitDepth int
	closed   atomic.Bool
}

// OpenWAV decodes the WAV file at path
func OpenWAV(path string) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer f.Close()

	return NewWAV(f)
}

// NewWAV decodes all PCM data from r
func NewWAV(r io.ReadSeeker) (*WAV, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", audio.ErrUnsupported)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}

	bitDepth := int(decoder.BitDepth)
	format, err := audio.NewFormat(int(decoder.NumChans), int(decoder.SampleRate))
	if err != nil {
		return nil, fmt.Errorf("invalid WAV header: %w", err)
	}

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = audio.Float32FromInt(int32(v), bitDepth)
	}

	mem, err := stream.NewMemory(format, samples)
	if err != nil {
		return nil, err
	}
	return &WAV{Memory: mem, bitDepth: bitDepth}, nil
}

// BitDepth returns the bits per sample of the file
func (d *WAV) BitDepth() int { return d.bitDepth }

func (d *WAV) Read(buf []float32, offset, count int) (int, error) {
	if d.closed.Load() {
		return 0, errClosed("wav")
	}
	return d.Memory.Read(buf, offset, count)
}

// Close releases nothing but marks the stream unusable
func (d *WAV) Close() error {
	d.closed.Store(true)
	return nil
}
