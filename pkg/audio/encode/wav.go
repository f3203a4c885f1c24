// ABOUTME: WAV audio encoder
// ABOUTME: Quantizes float32 samples to 16-bit or 24-bit PCM in a WAV container
package encode

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
)

// WAV encodes PCM into a WAV file
type WAV struct {
	enc      *wav.Encoder
	buf      *goaudio.IntBuffer
	format   audio.Format
	bitDepth int
	file     io.Closer
}

// CreateWAV creates (or truncates) path and returns an encoder writing to it
func CreateWAV(path string, format audio.Format, bitDepth int) (*WAV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create WAV file: %w", err)
	}

	w, err := NewWAV(f, format, bitDepth)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.file = f
	return w, nil
}

// NewWAV writes to w, which must be seekable so the header can be patched on Close
func NewWAV(w io.WriteSeeker, format audio.Format, bitDepth int) (*WAV, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if bitDepth != 16 && bitDepth != 24 {
		return nil, fmt.Errorf("%w: unsupported bit depth: %d (supported: 16, 24)", audio.ErrInvalidArgument, bitDepth)
	}

	return &WAV{
		enc: wav.NewEncoder(w, format.SampleRate, bitDepth, format.Channels, 1),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
			SourceBitDepth: bitDepth,
		},
		format:   format,
		bitDepth: bitDepth,
	}, nil
}

// Format returns the format samples are expected in
func (e *WAV) Format() audio.Format { return e.format }

// Encode quantizes and appends samples
func (e *WAV) Encode(samples []float32) error {
	if len(samples)%e.format.Channels != 0 {
		return fmt.Errorf("%w: %d samples is not a whole number of %d-channel frames",
			audio.ErrInvalidArgument, len(samples), e.format.Channels)
	}

	data := e.buf.Data[:0]
	for _, s := range samples {
		if e.bitDepth == 24 {
			data = append(data, int(audio.Float32ToInt24(s)))
		} else {
			data = append(data, int(audio.Float32ToInt16(s)))
		}
	}
	e.buf.Data = data

	return e.enc.Write(e.buf)
}

// Close writes the final header and closes the file when CreateWAV opened it
func (e *WAV) Close() error {
	err := e.enc.Close()
	if e.file != nil {
		if cerr := e.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
