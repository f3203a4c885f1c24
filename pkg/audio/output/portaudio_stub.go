//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"fmt"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
)

// PortAudio output implementation (stub)
type PortAudio struct {
	*Queue
}

// NewPortAudio reports that PortAudio support was not compiled in
func NewPortAudio(audio.Format) (*PortAudio, error) {
	return nil, fmt.Errorf("%w: PortAudio support not enabled (build with -tags portaudio)", audio.ErrUnsupported)
}
