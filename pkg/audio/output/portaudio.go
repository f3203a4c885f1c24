//go:build portaudio

// ABOUTME: PortAudio output backend
// ABOUTME: Cross-platform callback output that drains the buffer queue
package output

import (
	"fmt"
	"log"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/gordonklaus/portaudio"
)

// PortAudio plays a Queue through the default PortAudio stream
type PortAudio struct {
	*Queue

	stream *portaudio.Stream
}

// NewPortAudio opens the default output stream for f
func NewPortAudio(f audio.Format) (*PortAudio, error) {
	q, err := NewQueue(f)
	if err != nil {
		return nil, err
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(0, f.Channels, float64(f.SampleRate), 0, func(out []float32) {
		q.Read(out)
	})
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start stream: %w", err)
	}

	log.Printf("Audio output initialized: %v (portaudio)", f)
	return &PortAudio{Queue: q, stream: stream}, nil
}

// Close stops the stream and drops all buffers
func (p *PortAudio) Close() error {
	if p.stream != nil {
		if err := p.stream.Stop(); err != nil {
			return err
		}
		if err := p.stream.Close(); err != nil {
			return err
		}
		p.stream = nil
	}
	if err := p.Queue.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
