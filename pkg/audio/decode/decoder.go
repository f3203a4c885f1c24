// ABOUTME: Decoder contract and file dispatch
// ABOUTME: Opens audio files as float32 sample streams by extension
package decode

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/stream"
)

// Decoder is a file-backed float32 stream. Reads fail with audio.ErrClosed after Close.
type Decoder interface {
	stream.ObservableStream[float32]
	io.Closer
}

// Extensions lists the file extensions Open understands
var Extensions = []string{".mp3", ".flac", ".wav", ".ogg", ".oga", ".opus"}

// Open decodes the file at path, picking the codec from its extension
func Open(path string) (Decoder, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}

	var (
		dec Decoder
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		dec, err = wrap(OpenMP3(path))
	case ".flac":
		dec, err = wrap(OpenFLAC(path))
	case ".wav":
		dec, err = wrap(OpenWAV(path))
	case ".ogg", ".oga":
		dec, err = wrap(OpenVorbis(path))
	case ".opus":
		dec, err = wrap(OpenOpus(path))
	default:
		return nil, fmt.Errorf("%w: audio format %q (supported: %s)",
			audio.ErrUnsupported, ext, strings.Join(Extensions, ", "))
	}
	if err != nil {
		return nil, err
	}

	log.Printf("Loaded %s: %v, seekable=%v, duration=%v", Title(path), dec.Format(), dec.CanSeek(), dec.Duration())
	return dec, nil
}

func wrap[D Decoder](d D, err error) (Decoder, error) {
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Title derives a display title from a file name
func Title(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func errClosed(codec string) error {
	return fmt.Errorf("%w: %s decoder", audio.ErrClosed, codec)
}
