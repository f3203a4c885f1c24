// ABOUTME: Oscillator that synthesizes a periodic signal as a sample stream
// ABOUTME: Frequency, amplitude and waveform can change between reads
package synth

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/notify"
)

const (
	// DefaultSampleRate matches CD audio
	DefaultSampleRate = 44100

	// DefaultFrequency is concert A
	DefaultFrequency = 440.0

	// DefaultAmplitude leaves headroom against clipping
	DefaultAmplitude = 0.5
)

// Oscillator is an endless, non-seekable float32 stream
type Oscillator struct {
	reads notify.Notifier[[]float32]

	mu        sync.Mutex
	format    audio.Format
	waveform  Waveform
	frequency float64
	amplitude float64
	phase     float64

	// channel index of the next sample within the current frame
	channel int
}

// NewOscillator creates a sine oscillator at the default frequency.
// A zero format falls back to mono at DefaultSampleRate.
func NewOscillator(format audio.Format) (*Oscillator, error) {
	if format == (audio.Format{}) {
		format = audio.Format{Channels: 1, SampleRate: DefaultSampleRate}
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}

	return &Oscillator{
		format:    format,
		waveform:  Sine,
		frequency: DefaultFrequency,
		amplitude: DefaultAmplitude,
	}, nil
}

func (o *Oscillator) Format() audio.Format                { return o.format }
func (o *Oscillator) CanSeek() bool                       { return false }
func (o *Oscillator) Length() int64                       { return 0 }
func (o *Oscillator) Duration() time.Duration             { return 0 }
func (o *Oscillator) SamplePosition() int64               { return 0 }
func (o *Oscillator) TimePosition() time.Duration         { return 0 }
func (o *Oscillator) SetSamplePosition(int64) error       { return errNotSeekable }
func (o *Oscillator) SetTimePosition(time.Duration) error { return errNotSeekable }

var errNotSeekable = fmt.Errorf("%w: oscillator cannot seek", audio.ErrUnsupported)

// Subscribe registers fn for every block of generated samples
func (o *Oscillator) Subscribe(fn notify.Handler[[]float32]) (unsubscribe func()) {
	return o.reads.Subscribe(fn)
}

// Frequency returns the current frequency in Hz
func (o *Oscillator) Frequency() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frequency
}

// SetFrequency changes the pitch without a phase jump
func (o *Oscillator) SetFrequency(hz float64) error {
	if hz < 0 || math.IsNaN(hz) || math.IsInf(hz, 0) {
		return fmt.Errorf("%w: frequency %v", audio.ErrInvalidArgument, hz)
	}
	o.mu.Lock()
	o.frequency = hz
	o.mu.Unlock()
	return nil
}

// Amplitude returns the output gain
func (o *Oscillator) Amplitude() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.amplitude
}

// SetAmplitude sets the output gain, clamped to [0, 1]
func (o *Oscillator) SetAmplitude(a float64) {
	a = math.Max(0, math.Min(1, a))
	o.mu.Lock()
	o.amplitude = a
	o.mu.Unlock()
}

// SetWaveform switches the signal shape
func (o *Oscillator) SetWaveform(w Waveform) {
	if w == nil {
		w = Sine
	}
	o.mu.Lock()
	o.waveform = w
	o.mu.Unlock()
}

// Phase returns the phase of the next frame, in [0, 2π)
func (o *Oscillator) Phase() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// SetPhase moves the oscillator to any phase; it is normalized into [0, 2π)
func (o *Oscillator) SetPhase(phase float64) {
	o.mu.Lock()
	o.phase = normalizePhase(phase)
	o.mu.Unlock()
}

// Read always fills the whole request
func (o *Oscillator) Read(buf []float32, offset, count int) (int, error) {
	if offset < 0 || count <= 0 || len(buf) < offset+count {
		return 0, fmt.Errorf("%w: offset %d count %d len %d", audio.ErrInvalidArgument, offset, count, len(buf))
	}

	o.mu.Lock()
	step := 2 * math.Pi * o.frequency / float64(o.format.SampleRate)
	channels := o.format.Channels
	value := float32(o.waveform(o.phase) * o.amplitude)

	for i := 0; i < count; i++ {
		buf[offset+i] = value
		o.channel++
		if o.channel == channels {
			o.channel = 0
			o.phase = normalizePhase(o.phase + step)
			value = float32(o.waveform(o.phase) * o.amplitude)
		}
	}
	o.mu.Unlock()

	o.reads.Notify(buf[offset : offset+count])
	return count, nil
}
