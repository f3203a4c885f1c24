// ABOUTME: Audio output backend tests
// ABOUTME: Verifies backend selection and the Sink implementations
package output

import (
	"errors"
	"testing"
	"time"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
)

func TestBackendsImplementSink(t *testing.T) {
	var _ Sink = (*Queue)(nil)
	var _ Sink = (*Malgo)(nil)
	var _ Sink = (*Oto)(nil)
	var _ Sink = (*Null)(nil)
	var _ Sink = (*PortAudio)(nil)
}

func TestOpenUnknownBackend(t *testing.T) {
	sink, err := Open("alsa", audio.Format{Channels: 2, SampleRate: 48000})
	if !errors.Is(err, audio.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
	if sink != nil {
		t.Errorf("expected nil sink, got %v", sink)
	}
}

func TestOpenNull(t *testing.T) {
	sink, err := Open("null", audio.Format{Channels: 1, SampleRate: 1000})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sink.Close()

	if sink.State() != StateInitial {
		t.Errorf("expected initial state, got %v", sink.State())
	}

	// The embedded queue must not hide the sink's own methods
	ids, err := sink.Allocate(1)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if err := sink.Upload(ids[0], audio.Format{Channels: 1, SampleRate: 1000}, []float32{0.25}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if err := sink.Enqueue(ids[0]); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if sink.Queued() != 1 {
		t.Errorf("expected 1 queued buffer, got %d", sink.Queued())
	}
}

func TestNullDrainsInRealTime(t *testing.T) {
	f := audio.Format{Channels: 1, SampleRate: 1000}
	n, err := NewNullPeriod(f, time.Millisecond)
	if err != nil {
		t.Fatalf("NewNullPeriod: %v", err)
	}
	defer n.Close()

	ids, _ := n.Allocate(1)
	_ = n.Upload(ids[0], f, make([]float32, 5))
	_ = n.Enqueue(ids[0])
	_ = n.Play()

	deadline := time.Now().Add(2 * time.Second)
	for n.Processed() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("null output never processed the buffer")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNullCloseStopsConsumer(t *testing.T) {
	n, _ := NewNull(audio.Format{Channels: 2, SampleRate: 48000})
	if err := n.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	select {
	case <-n.done:
	default:
		t.Error("consumer goroutine still running after Close")
	}
}

func TestByteReader(t *testing.T) {
	f := audio.Format{Channels: 1, SampleRate: 1000}
	q, _ := NewQueue(f)
	ids, _ := q.Allocate(1)
	_ = q.Upload(ids[0], f, []float32{1, -1})
	_ = q.Enqueue(ids[0])
	_ = q.Play()

	r := &byteReader{q: q}
	p := make([]byte, 14)
	n, err := r.Read(p)
	if err != nil || n != 12 {
		t.Fatalf("expected 12 bytes, got %d (%v)", n, err)
	}

	want := []byte{0x00, 0x00, 0x80, 0x3f, 0x00, 0x00, 0x80, 0xbf, 0, 0, 0, 0}
	for i := range want {
		if p[i] != want[i] {
			t.Fatalf("byte %d: expected %#x, got %#x", i, want[i], p[i])
		}
	}
}

func TestWrite16Bit(t *testing.T) {
	out := make([]byte, 4)
	write16Bit(out, []float32{1, -1})

	if out[0] != 0xff || out[1] != 0x7f {
		t.Errorf("expected 0x7fff, got %#x%02x", out[1], out[0])
	}
	if out[2] != 0x01 || out[3] != 0x80 {
		t.Errorf("expected 0x8001, got %#x%02x", out[3], out[2])
	}
}

func TestWrite24Bit(t *testing.T) {
	out := make([]byte, 3)
	write24Bit(out, []float32{1})

	if out[0] != 0xff || out[1] != 0xff || out[2] != 0x7f {
		t.Errorf("expected 0x7fffff, got % x", out)
	}
}
