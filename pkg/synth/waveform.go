// ABOUTME: Periodic waveform shapes for the oscillator
// ABOUTME: Each shape maps a phase in [0, 2π) to an amplitude in [-1, 1]
package synth

import (
	"fmt"
	"math"
	"strings"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
)

// Waveform maps a phase in [0, 2π) to a value in [-1, 1]
type Waveform func(phase float64) float64

// Sine is a pure tone
func Sine(phase float64) float64 {
	return math.Sin(phase)
}

// Square is +1 for the first half of the period and -1 for the second
func Square(phase float64) float64 {
	if phase < math.Pi {
		return 1
	}
	return -1
}

// Triangle rises from -1 to 1 and falls back over one period
func Triangle(phase float64) float64 {
	t := phase / (2 * math.Pi)
	if t < 0.5 {
		return 4*t - 1
	}
	return 3 - 4*t
}

// Sawtooth falls linearly from 1 to -1 over one period
func Sawtooth(phase float64) float64 {
	return 1 - phase/math.Pi
}

// Pulse returns a rectangular wave that is high for the given fraction of the period
func Pulse(width float64) Waveform {
	width = math.Max(0, math.Min(1, width))
	return func(phase float64) float64 {
		if phase < width*2*math.Pi {
			return 1
		}
		return -1
	}
}

// WaveformByName resolves a waveform from its configuration name
func WaveformByName(name string) (Waveform, error) {
	switch strings.ToLower(name) {
	case "sine", "":
		return Sine, nil
	case "square":
		return Square, nil
	case "triangle":
		return Triangle, nil
	case "saw", "sawtooth":
		return Sawtooth, nil
	case "pulse":
		return Pulse(0.25), nil
	default:
		return nil, fmt.Errorf("%w: unknown waveform %q", audio.ErrInvalidArgument, name)
	}
}

// WaveformNames lists the names accepted by WaveformByName
var WaveformNames = []string{"sine", "square", "triangle", "sawtooth", "pulse"}

// normalizePhase folds any phase into [0, 2π)
func normalizePhase(phase float64) float64 {
	const twoPi = 2 * math.Pi
	p := math.Mod(phase, twoPi)
	if p < 0 {
		p += twoPi
	}
	if p >= twoPi {
		p = 0
	}
	return p
}
