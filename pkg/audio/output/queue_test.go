// ABOUTME: Tests for the software buffer queue
// ABOUTME: Tests processed bookkeeping, state transitions and underruns
package output

import (
	"errors"
	"slices"
	"testing"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
)

var monoFormat = audio.Format{Channels: 1, SampleRate: 1000}

func newLoadedQueue(t *testing.T, contents ...[]float32) (*Queue, []BufferID) {
	t.Helper()

	q, err := NewQueue(monoFormat)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	ids, err := q.Allocate(len(contents))
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	for i, c := range contents {
		if err := q.Upload(ids[i], monoFormat, c); err != nil {
			t.Fatalf("Upload: %v", err)
		}
		if err := q.Enqueue(ids[i]); err != nil {
			t.Fatalf("Queue: %v", err)
		}
	}
	return q, ids
}

func TestQueuePlaysInOrder(t *testing.T) {
	q, ids := newLoadedQueue(t, []float32{1, 2}, []float32{3, 4, 5})
	_ = q.Play()

	dst := make([]float32, 3)
	if n := q.Read(dst); n != 3 || !slices.Equal(dst, []float32{1, 2, 3}) {
		t.Fatalf("unexpected first read %v (%d)", dst, n)
	}
	if q.Processed() != 1 {
		t.Errorf("expected 1 processed, got %d", q.Processed())
	}

	id, err := q.Unqueue()
	if err != nil || id != ids[0] {
		t.Errorf("expected to unqueue %d, got %d (%v)", ids[0], id, err)
	}
	if q.Queued() != 1 {
		t.Errorf("expected 1 queued, got %d", q.Queued())
	}

	n := q.Read(dst)
	if n != 2 || !slices.Equal(dst, []float32{4, 5, 0}) {
		t.Errorf("expected tail then silence, got %v (%d)", dst, n)
	}
	if q.Processed() != 1 || q.Queued() != 1 {
		t.Errorf("expected drained queue, processed=%d queued=%d", q.Processed(), q.Queued())
	}
	if q.Underruns() != 1 {
		t.Errorf("expected 1 underrun, got %d", q.Underruns())
	}
	if q.State() != StatePlaying {
		t.Errorf("expected queue to keep playing after underrun, got %v", q.State())
	}
}

func TestQueueSilentWhenNotPlaying(t *testing.T) {
	q, _ := newLoadedQueue(t, []float32{1, 1})

	dst := []float32{9, 9}
	if n := q.Read(dst); n != 0 || !slices.Equal(dst, []float32{0, 0}) {
		t.Errorf("expected silence before Play, got %v", dst)
	}

	_ = q.Play()
	_ = q.Pause()
	if n := q.Read(dst); n != 0 {
		t.Errorf("expected no samples while paused, got %d", n)
	}
	if q.State() != StatePaused {
		t.Errorf("expected paused, got %v", q.State())
	}
}

func TestQueueStopMarksAllProcessed(t *testing.T) {
	q, _ := newLoadedQueue(t, []float32{1}, []float32{2}, []float32{3})
	_ = q.Play()
	_ = q.Stop()

	if q.State() != StateStopped {
		t.Errorf("expected stopped, got %v", q.State())
	}
	if q.Processed() != 3 {
		t.Errorf("expected 3 processed, got %d", q.Processed())
	}

	// Playing again from stopped replays the queue
	_ = q.Play()
	if q.Processed() != 0 {
		t.Errorf("expected replay to reset processed, got %d", q.Processed())
	}
}

func TestQueueEmptyBufferIsProcessedImmediately(t *testing.T) {
	q, _ := newLoadedQueue(t, []float32{}, []float32{7})
	_ = q.Play()

	dst := make([]float32, 1)
	if n := q.Read(dst); n != 1 || dst[0] != 7 {
		t.Errorf("expected to skip empty buffer, got %v", dst)
	}
	if q.Processed() != 2 {
		t.Errorf("expected 2 processed, got %d", q.Processed())
	}
}

func TestQueueErrors(t *testing.T) {
	q, ids := newLoadedQueue(t, []float32{1})

	if _, err := q.Unqueue(); !errors.Is(err, ErrNoProcessed) {
		t.Errorf("expected ErrNoProcessed, got %v", err)
	}
	if err := q.Enqueue(ids[0]); !errors.Is(err, ErrBufferQueued) {
		t.Errorf("expected ErrBufferQueued, got %v", err)
	}
	if err := q.Upload(ids[0], monoFormat, []float32{2}); !errors.Is(err, ErrBufferQueued) {
		t.Errorf("expected ErrBufferQueued for pending buffer, got %v", err)
	}
	if err := q.Enqueue(99); !errors.Is(err, ErrUnknownBuffer) {
		t.Errorf("expected ErrUnknownBuffer, got %v", err)
	}
	if err := q.Upload(99, monoFormat, nil); !errors.Is(err, ErrUnknownBuffer) {
		t.Errorf("expected ErrUnknownBuffer, got %v", err)
	}

	stereo := audio.Format{Channels: 2, SampleRate: 1000}
	if err := q.Upload(ids[0], stereo, []float32{1, 1}); !errors.Is(err, audio.ErrFormatMismatch) {
		t.Errorf("expected ErrFormatMismatch, got %v", err)
	}
	if _, err := q.Allocate(-1); !errors.Is(err, audio.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestQueueRelease(t *testing.T) {
	q, ids := newLoadedQueue(t, []float32{1}, []float32{2}, []float32{3})
	_ = q.Play()

	dst := make([]float32, 1)
	q.Read(dst)

	if err := q.Release(ids[:2]); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if q.Queued() != 1 || q.Processed() != 0 {
		t.Errorf("expected 1 queued / 0 processed, got %d / %d", q.Queued(), q.Processed())
	}

	q.Read(dst)
	if dst[0] != 3 {
		t.Errorf("expected remaining buffer to play, got %v", dst[0])
	}

	if err := q.Release(ids[:1]); !errors.Is(err, ErrUnknownBuffer) {
		t.Errorf("expected ErrUnknownBuffer for released id, got %v", err)
	}
}

func TestQueueGain(t *testing.T) {
	q, _ := newLoadedQueue(t, []float32{0.5, -0.5})
	q.SetGain(0.5)
	_ = q.Play()

	dst := make([]float32, 2)
	q.Read(dst)
	if !slices.Equal(dst, []float32{0.25, -0.25}) {
		t.Errorf("expected gain applied, got %v", dst)
	}
	if q.SamplesPlayed() != 2 {
		t.Errorf("expected 2 samples played, got %d", q.SamplesPlayed())
	}
}

func TestQueueClosed(t *testing.T) {
	q, _ := newLoadedQueue(t, []float32{1})
	_ = q.Close()

	if _, err := q.Allocate(1); !errors.Is(err, audio.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := q.Play(); !errors.Is(err, audio.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if q.State() != StateStopped {
		t.Errorf("expected stopped, got %v", q.State())
	}
}
