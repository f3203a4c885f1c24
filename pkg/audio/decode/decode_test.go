// ABOUTME: Tests for the audio decoders
// ABOUTME: Tests WAV and Vorbis decoding, seeking, dispatch and rejection of bad input
package decode

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/stream"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

type nopCloser struct {
	io.ReadSeeker
}

func (nopCloser) Close() error { return nil }

// writeWAV writes a 16-bit WAV file and returns its path
func writeWAV(t *testing.T, channels, sampleRate int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	return path
}

func TestWAVDecode(t *testing.T) {
	path := writeWAV(t, 2, 8000, []int{0, 16384, -32768, 32767, 100, -100})

	dec, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dec.Close()

	want := audio.Format{Channels: 2, SampleRate: 8000}
	if dec.Format() != want {
		t.Errorf("expected %v, got %v", want, dec.Format())
	}
	if !dec.CanSeek() || dec.Length() != 6 {
		t.Errorf("expected seekable stream of 6 samples, got seekable=%v length=%d", dec.CanSeek(), dec.Length())
	}

	buf := make([]float32, 8)
	n, err := dec.Read(buf, 0, 8)
	if err != nil || n != 6 {
		t.Fatalf("expected 6 samples, got %d (%v)", n, err)
	}

	expected := []float32{0, 0.5, -1, float32(32767) / 32768, float32(100) / 32768, float32(-100) / 32768}
	for i, v := range expected {
		if buf[i] != v {
			t.Errorf("sample %d: expected %v, got %v", i, v, buf[i])
		}
	}
}

func TestWAVSeekAndClose(t *testing.T) {
	path := writeWAV(t, 1, 1000, []int{1, 2, 3, 4, 5})

	dec, err := OpenWAV(path)
	if err != nil {
		t.Fatalf("OpenWAV: %v", err)
	}
	if dec.BitDepth() != 16 {
		t.Errorf("expected 16-bit, got %d", dec.BitDepth())
	}

	if err := dec.SetSamplePosition(3); err != nil {
		t.Fatalf("SetSamplePosition: %v", err)
	}
	buf := make([]float32, 5)
	if n, _ := dec.Read(buf, 0, 5); n != 2 {
		t.Errorf("expected 2 remaining samples, got %d", n)
	}

	_ = dec.Close()
	if _, err := dec.Read(buf, 0, 1); !errors.Is(err, audio.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestWAVNotifiesReads(t *testing.T) {
	path := writeWAV(t, 1, 1000, []int{1, 2, 3})
	dec, _ := Open(path)
	defer dec.Close()

	var got int
	dec.Subscribe(func(s []float32) { got += len(s) })

	buf := make([]float32, 4)
	_, _ = dec.Read(buf, 0, 4)
	if got != 3 {
		t.Errorf("expected 3 notified samples, got %d", got)
	}
}

// silence.ogg is 4992 frames of stereo 8kHz silence in 40 short Vorbis blocks
const vorbisFixture = "testdata/silence.ogg"

func TestVorbisDecode(t *testing.T) {
	dec, err := Open(vorbisFixture)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dec.Close()

	if _, ok := dec.(*Vorbis); !ok {
		t.Fatalf("expected .ogg to open as Vorbis, got %T", dec)
	}
	want := audio.Format{Channels: 2, SampleRate: 8000}
	if dec.Format() != want {
		t.Errorf("expected %v, got %v", want, dec.Format())
	}
	if !dec.CanSeek() || dec.Length() != 4992*2 {
		t.Fatalf("expected a seekable stream of %d samples, got seek=%v length=%d",
			4992*2, dec.CanSeek(), dec.Length())
	}

	var notified int
	dec.Subscribe(func(s []float32) { notified += len(s) })

	buf := make([]float32, 1000)
	total := 0
	for {
		n, err := dec.Read(buf, 0, len(buf))
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		for _, s := range buf[:n] {
			if s != 0 {
				t.Fatalf("expected silence, got %v", s)
			}
		}
		total += n
		if n < len(buf) {
			break
		}
	}

	if int64(total) != dec.Length() {
		t.Errorf("expected %d samples, read %d", dec.Length(), total)
	}
	if notified != total {
		t.Errorf("expected %d notified samples, got %d", total, notified)
	}
	if n, _ := dec.Read(buf, 0, 10); n != 0 {
		t.Errorf("expected exhausted stream, read %d", n)
	}
}

func TestVorbisSeekAndLoop(t *testing.T) {
	dec, err := OpenVorbis(vorbisFixture)
	if err != nil {
		t.Fatalf("OpenVorbis: %v", err)
	}

	if err := dec.SetSamplePosition(2001); err != nil {
		t.Fatalf("SetSamplePosition: %v", err)
	}
	if dec.SamplePosition() != 2000 {
		t.Errorf("expected position rounded down to 2000, got %d", dec.SamplePosition())
	}
	if err := dec.SetSamplePosition(dec.Length() + 2); !errors.Is(err, audio.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument past the end, got %v", err)
	}

	loop, err := stream.NewLoop[float32](dec)
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	buf := make([]float32, 12000)
	if n, err := loop.Read(buf, 0, len(buf)); err != nil || n != len(buf) {
		t.Errorf("expected looped read of %d samples, got %d (%v)", len(buf), n, err)
	}

	if err := dec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := dec.Read(buf, 0, 1); !errors.Is(err, audio.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestDecoderReadValidation(t *testing.T) {
	path := writeWAV(t, 1, 1000, []int{1, 2, 3})
	dec, _ := Open(path)
	defer dec.Close()

	tests := []struct {
		name   string
		buf    []float32
		offset int
		count  int
	}{
		{"negative offset", make([]float32, 4), -1, 1},
		{"zero count", make([]float32, 4), 0, 0},
		{"short buffer", make([]float32, 2), 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := dec.Read(tt.buf, tt.offset, tt.count); !errors.Is(err, audio.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	unsupported := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(unsupported, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(unsupported); !errors.Is(err, audio.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
	if _, err := Open(filepath.Join(dir, "missing.mp3")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRejectsGarbage(t *testing.T) {
	garbage := func() nopCloser {
		return nopCloser{bytes.NewReader(bytes.Repeat([]byte{0x42}, 64))}
	}

	if _, err := NewFLAC(garbage()); err == nil {
		t.Error("expected FLAC error for garbage input")
	}
	if _, err := NewVorbis(garbage()); err == nil {
		t.Error("expected Vorbis error for garbage input")
	}
	if _, err := NewOpus(garbage()); err == nil {
		t.Error("expected Opus error for garbage input")
	}
	if _, err := NewWAV(garbage()); !errors.Is(err, audio.ErrUnsupported) {
		t.Errorf("expected WAV ErrUnsupported, got %v", err)
	}
}

func TestTitle(t *testing.T) {
	tests := map[string]string{
		"/music/Song Name.flac": "Song Name",
		"track.mp3":             "track",
		"noext":                 "noext",
	}
	for path, want := range tests {
		if got := Title(path); got != want {
			t.Errorf("Title(%q) = %q, want %q", path, got, want)
		}
	}
}
