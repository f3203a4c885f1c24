// ABOUTME: Null audio output backend that discards samples in real time
// ABOUTME: Drains the buffer queue on a ticker for headless runs and tests
package output

import (
	"context"
	"log"
	"time"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
)

const nullPeriod = 10 * time.Millisecond

// Null consumes its Queue at the format's sample rate without producing sound
type Null struct {
	*Queue

	cancel context.CancelFunc
	done   chan struct{}
}

// NewNull starts a real-time consumer for f
func NewNull(f audio.Format) (*Null, error) {
	return NewNullPeriod(f, nullPeriod)
}

// NewNullPeriod consumes one period's worth of samples per tick
func NewNullPeriod(f audio.Format, period time.Duration) (*Null, error) {
	q, err := NewQueue(f)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Null{
		Queue:  q,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	chunk := max(int(f.Samples(period)), f.Channels)
	go n.run(ctx, period, chunk)

	log.Printf("Audio output initialized: %v (null)", f)
	return n, nil
}

func (n *Null) run(ctx context.Context, period time.Duration, chunk int) {
	defer close(n.done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	buf := make([]float32, chunk)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.Read(buf)
		}
	}
}

// Close stops the consumer goroutine and drops all buffers
func (n *Null) Close() error {
	n.cancel()
	<-n.done
	return n.Queue.Close()
}
