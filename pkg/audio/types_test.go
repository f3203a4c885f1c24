// ABOUTME: Tests for audio types
// ABOUTME: Tests format validation and sample conversion functions
package audio

import (
	"errors"
	"testing"
	"time"
)

func TestNewFormat(t *testing.T) {
	tests := []struct {
		name       string
		channels   int
		sampleRate int
		wantErr    bool
	}{
		{"mono", 1, 44100, false},
		{"stereo", 2, 48000, false},
		{"no channels", 0, 44100, true},
		{"zero rate", 2, 0, true},
		{"negative rate", 2, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFormat(tt.channels, tt.sampleRate)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestFormatComparedByValue(t *testing.T) {
	a := Format{Channels: 2, SampleRate: 48000}
	b := Format{Channels: 2, SampleRate: 48000}
	if a != b {
		t.Error("expected equal formats to compare equal")
	}
}

func TestFormatDuration(t *testing.T) {
	f := Format{Channels: 2, SampleRate: 48000}

	if d := f.Duration(96000); d != time.Second {
		t.Errorf("expected 1s, got %v", d)
	}
	if n := f.Samples(500 * time.Millisecond); n != 48000 {
		t.Errorf("expected 48000 samples, got %d", n)
	}
	if d := (Format{}).Duration(100); d != 0 {
		t.Errorf("expected zero duration for empty format, got %v", d)
	}
}

func TestFloat32ToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected int16
	}{
		{"zero", 0, 0},
		{"full positive", 1, 32767},
		{"full negative", -1, -32767},
		{"half", 0.5, 16384},
		{"clip high", 2, 32767},
		{"clip low", -2, -32768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Float32ToInt16(tt.input)
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestFloat32ToInt24(t *testing.T) {
	if got := Float32ToInt24(1); got != Max24Bit {
		t.Errorf("expected %d, got %d", Max24Bit, got)
	}
	if got := Float32ToInt24(-3); got != Min24Bit {
		t.Errorf("expected clipping to %d, got %d", Min24Bit, got)
	}
	if got := Float32ToInt24(0); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestFloat32FromInt(t *testing.T) {
	if got := Float32FromInt(1<<15, 16); got != 1 {
		t.Errorf("expected 1, got %v", got)
	}
	if got := Float32FromInt(-(1 << 23), 24); got != -1 {
		t.Errorf("expected -1, got %v", got)
	}
	if got := Float32FromInt(5, 0); got != 0 {
		t.Errorf("expected 0 for invalid bit depth, got %v", got)
	}
}

func TestRoundTrip16Bit(t *testing.T) {
	samples := []int16{0, 100, -100, 1000, -1000, 32767}

	for _, original := range samples {
		result := Float32ToInt16(Float32FromInt16(original))
		if result != original {
			t.Errorf("round-trip failed: %d -> %d", original, result)
		}
	}
}
