// ABOUTME: Oto-based audio output backend
// ABOUTME: An oto player pulls float32 bytes straight from the buffer queue
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

var (
	// oto allows a single context per process
	otoMu     sync.Mutex
	otoCtx    *oto.Context
	otoFormat audio.Format
)

// Oto plays a Queue through an oto player
type Oto struct {
	*Queue

	player *oto.Player
}

// NewOto creates an oto player for f. Every Oto in a process must share one format.
func NewOto(f audio.Format) (*Oto, error) {
	q, err := NewQueue(f)
	if err != nil {
		return nil, err
	}

	ctx, err := otoContext(f)
	if err != nil {
		return nil, err
	}

	o := &Oto{Queue: q}
	o.player = ctx.NewPlayer(&byteReader{q: q})
	o.player.Play()

	log.Printf("Audio output initialized: %v (oto)", f)
	return o, nil
}

func otoContext(f audio.Format) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if f != otoFormat {
			return nil, fmt.Errorf("%w: oto is already running at %v, cannot open %v",
				audio.ErrFormatMismatch, otoFormat, f)
		}
		return otoCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       oto.FormatFloat32LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	otoCtx = ctx
	otoFormat = f
	return ctx, nil
}

// Close stops the player and drops all buffers
func (o *Oto) Close() error {
	if o.player != nil {
		o.player.Pause()
		o.player.Close()
		o.player = nil
	}
	return o.Queue.Close()
}
