// ABOUTME: Tests for the WAV encoder and stream recorder
// ABOUTME: Round-trips encoded files through the WAV decoder
package encode

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/alpipe-go/pkg/stream"
)

var stereo = audio.Format{Channels: 2, SampleRate: 8000}

func readAll(t *testing.T, path string) ([]float32, *decode.WAV) {
	t.Helper()
	dec, err := decode.OpenWAV(path)
	if err != nil {
		t.Fatalf("OpenWAV: %v", err)
	}
	t.Cleanup(func() { _ = dec.Close() })

	buf := make([]float32, dec.Length()+1)
	n, err := dec.Read(buf, 0, len(buf))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return buf[:n], dec
}

func TestWAVRoundTrip(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 0.25, 1, -1}

	tests := []struct {
		bitDepth  int
		tolerance float64
	}{
		{16, 1.0 / 32767},
		{24, 1.0 / 8388607},
	}

	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), "out.wav")
		enc, err := CreateWAV(path, stereo, tt.bitDepth)
		if err != nil {
			t.Fatalf("CreateWAV(%d): %v", tt.bitDepth, err)
		}
		if err := enc.Encode(samples[:4]); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if err := enc.Encode(samples[4:]); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if err := enc.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		got, dec := readAll(t, path)
		if dec.Format() != stereo || dec.BitDepth() != tt.bitDepth {
			t.Errorf("expected %v at %d bits, got %v at %d bits", stereo, tt.bitDepth, dec.Format(), dec.BitDepth())
		}
		if len(got) != len(samples) {
			t.Fatalf("expected %d samples, got %d", len(samples), len(got))
		}
		for i := range samples {
			if math.Abs(float64(got[i]-samples[i])) > 2*tt.tolerance {
				t.Errorf("%d-bit sample %d: expected %v, got %v", tt.bitDepth, i, samples[i], got[i])
			}
		}
	}
}

func TestWAVRejects(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if _, err := CreateWAV(path, stereo, 8); !errors.Is(err, audio.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for 8-bit, got %v", err)
	}

	enc, err := CreateWAV(path, stereo, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Close()
	if err := enc.Encode([]float32{0.1}); !errors.Is(err, audio.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for a partial frame, got %v", err)
	}
}

func TestRecorderWritesWhatWasRead(t *testing.T) {
	data := make([]float32, 100)
	for i := range data {
		data[i] = float32(i%10) / 10
	}
	src, err := stream.NewMemory(stereo, data)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "rec.wav")
	enc, err := CreateWAV(path, stereo, 16)
	if err != nil {
		t.Fatal(err)
	}
	rec := NewRecorder(src, enc)

	buf := make([]float32, 40)
	for range 2 {
		if _, err := src.Read(buf, 0, 40); err != nil {
			t.Fatal(err)
		}
	}
	if rec.Samples() != 80 {
		t.Errorf("expected 80 recorded samples, got %d", rec.Samples())
	}

	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := rec.Close(); !errors.Is(err, audio.ErrClosed) {
		t.Errorf("expected ErrClosed on second close, got %v", err)
	}

	// reads after Close are not recorded
	if _, err := src.Read(buf, 0, 20); err != nil {
		t.Fatal(err)
	}

	got, _ := readAll(t, path)
	if len(got) != 80 {
		t.Fatalf("expected 80 samples in file, got %d", len(got))
	}
	for i, v := range got {
		if math.Abs(float64(v-data[i])) > 1e-4 {
			t.Errorf("sample %d: expected %v, got %v", i, data[i], v)
			break
		}
	}
}

type failingEncoder struct{ calls int }

func (f *failingEncoder) Encode([]float32) error {
	f.calls++
	return errors.New("disk full")
}

func (f *failingEncoder) Close() error { return nil }

func TestRecorderKeepsFirstError(t *testing.T) {
	src, err := stream.NewMemory(stereo, make([]float32, 10))
	if err != nil {
		t.Fatal(err)
	}
	enc := &failingEncoder{}
	rec := NewRecorder(src, enc)

	buf := make([]float32, 4)
	_, _ = src.Read(buf, 0, 4)
	_, _ = src.Read(buf, 0, 4)

	if enc.calls != 1 {
		t.Errorf("expected encoding to stop after the first failure, got %d calls", enc.calls)
	}
	if rec.Err() == nil {
		t.Error("expected the encoding error to be kept")
	}
	if err := rec.Close(); err == nil {
		t.Error("expected Close to report the encoding error")
	}
}
