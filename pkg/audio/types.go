// ABOUTME: Audio type definitions
// ABOUTME: Defines the stream format descriptor and sample conversions
package audio

import (
	"fmt"
	"math"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Sample is the set of element types a sample stream can carry
type Sample interface {
	~int16 | ~int32 | ~float32 | ~float64
}

// Format describes interleaved PCM data
type Format struct {
	Channels   int
	SampleRate int
}

// NewFormat creates a validated format
func NewFormat(channels, sampleRate int) (Format, error) {
	f := Format{Channels: channels, SampleRate: sampleRate}
	if err := f.Validate(); err != nil {
		return Format{}, err
	}
	return f, nil
}

// Validate checks channel count and sample rate
func (f Format) Validate() error {
	if f.Channels < 1 {
		return fmt.Errorf("%w: channel count %d", ErrInvalidArgument, f.Channels)
	}
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidArgument, f.SampleRate)
	}
	return nil
}

// Duration converts an interleaved sample count to playback time
func (f Format) Duration(samples int64) time.Duration {
	if f.Channels <= 0 || f.SampleRate <= 0 {
		return 0
	}
	frames := samples / int64(f.Channels)
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Samples converts playback time to an interleaved sample count, aligned to whole frames
func (f Format) Samples(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	frames := int64(d) * int64(f.SampleRate) / int64(time.Second)
	return frames * int64(f.Channels)
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz %dch", f.SampleRate, f.Channels)
}

// Float32ToInt16 converts a [-1, 1] sample to int16 with clipping
func Float32ToInt16(sample float32) int16 {
	scaled := math.Round(float64(sample) * math.MaxInt16)
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int16(scaled)
}

// Float32ToInt24 converts a [-1, 1] sample to the signed 24-bit range with clipping
func Float32ToInt24(sample float32) int32 {
	scaled := math.Round(float64(sample) * Max24Bit)
	if scaled > Max24Bit {
		return Max24Bit
	}
	if scaled < Min24Bit {
		return Min24Bit
	}
	return int32(scaled)
}

// Float32FromInt16 converts an int16 sample to [-1, 1]
func Float32FromInt16(sample int16) float32 {
	return float32(sample) / math.MaxInt16
}

// Float32FromInt converts a signed PCM value of the given bit depth to [-1, 1]
func Float32FromInt(sample int32, bitDepth int) float32 {
	if bitDepth <= 0 || bitDepth > 32 {
		return 0
	}
	full := float64(int64(1) << (bitDepth - 1))
	return float32(float64(sample) / full)
}
