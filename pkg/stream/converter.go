// ABOUTME: Converter stages that transform an upstream stream
// ABOUTME: Channel up/down-mixing and per-sample type conversion
package stream

import (
	"fmt"
	"time"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/notify"
)

// converter holds what every conversion stage shares: the upstream stream,
// the declared output format and a scratch buffer for upstream reads.
// Positions are rescaled by outPer/inPer output samples per input sample.
type converter[In, Out audio.Sample] struct {
	reads notify.Notifier[[]Out]

	source  SampleStream[In]
	format  audio.Format
	scratch []In
	inPer   int64
	outPer  int64
}

func (c *converter[In, Out]) init(source SampleStream[In], format audio.Format, inPer, outPer int64) {
	c.source = source
	c.format = format
	c.inPer = inPer
	c.outPer = outPer
}

// Source returns the upstream stream
func (c *converter[In, Out]) Source() SampleStream[In] { return c.source }

// Subscribe registers fn for the converted samples of every read
func (c *converter[In, Out]) Subscribe(fn notify.Handler[[]Out]) (unsubscribe func()) {
	return c.reads.Subscribe(fn)
}

func (c *converter[In, Out]) Format() audio.Format    { return c.format }
func (c *converter[In, Out]) CanSeek() bool           { return c.source.CanSeek() }
func (c *converter[In, Out]) Duration() time.Duration { return c.source.Duration() }

func (c *converter[In, Out]) Length() int64 {
	return c.source.Length() * c.outPer / c.inPer
}

func (c *converter[In, Out]) SamplePosition() int64 {
	return c.source.SamplePosition() * c.outPer / c.inPer
}

func (c *converter[In, Out]) SetSamplePosition(pos int64) error {
	return c.source.SetSamplePosition(pos * c.inPer / c.outPer)
}

func (c *converter[In, Out]) TimePosition() time.Duration {
	return c.source.TimePosition()
}

func (c *converter[In, Out]) SetTimePosition(d time.Duration) error {
	return c.source.SetTimePosition(d)
}

// buffer returns a scratch slice of n samples. It grows and never shrinks.
func (c *converter[In, Out]) buffer(n int) []In {
	if cap(c.scratch) < n {
		c.scratch = make([]In, n)
	}
	return c.scratch[:n]
}

// MonoToStereo duplicates every mono sample into a left/right pair
type MonoToStereo[T audio.Sample] struct {
	converter[T, T]
}

// NewMonoToStereo wraps a mono stream
func NewMonoToStereo[T audio.Sample](source SampleStream[T]) (*MonoToStereo[T], error) {
	f := source.Format()
	if f.Channels != 1 {
		return nil, fmt.Errorf("%w: mono to stereo needs 1 channel, source has %d", audio.ErrFormatMismatch, f.Channels)
	}
	c := &MonoToStereo[T]{}
	c.init(source, audio.Format{Channels: 2, SampleRate: f.SampleRate}, 1, 2)
	return c, nil
}

// Read produces whole stereo frames; an odd count is rounded down.
func (c *MonoToStereo[T]) Read(buf []T, offset, count int) (int, error) {
	if err := CheckRead(buf, offset, count); err != nil {
		return 0, err
	}

	monoCount := count / 2
	if monoCount == 0 {
		return 0, nil
	}

	in := c.buffer(monoCount)
	n, err := c.source.Read(in, 0, monoCount)
	for i := 0; i < n; i++ {
		buf[offset+2*i] = in[i]
		buf[offset+2*i+1] = in[i]
	}

	out := 2 * n
	if out > 0 {
		c.reads.Notify(buf[offset : offset+out])
	}
	return out, err
}

// StereoToMono averages every left/right pair with the arithmetic mean.
// This is not energy preserving: fully out-of-phase channels cancel out.
type StereoToMono[T audio.Sample] struct {
	converter[T, T]
}

// NewStereoToMono wraps a stereo stream
func NewStereoToMono[T audio.Sample](source SampleStream[T]) (*StereoToMono[T], error) {
	f := source.Format()
	if f.Channels != 2 {
		return nil, fmt.Errorf("%w: stereo to mono needs 2 channels, source has %d", audio.ErrFormatMismatch, f.Channels)
	}
	c := &StereoToMono[T]{}
	c.init(source, audio.Format{Channels: 1, SampleRate: f.SampleRate}, 2, 1)
	return c, nil
}

func (c *StereoToMono[T]) Read(buf []T, offset, count int) (int, error) {
	if err := CheckRead(buf, offset, count); err != nil {
		return 0, err
	}

	in := c.buffer(count * 2)
	n, err := c.source.Read(in, 0, count*2)

	// A trailing half frame cannot be averaged and is dropped
	frames := n / 2
	for i := 0; i < frames; i++ {
		buf[offset+i] = T((float64(in[2*i]) + float64(in[2*i+1])) / 2)
	}

	if frames > 0 {
		c.reads.Notify(buf[offset : offset+frames])
	}
	return frames, err
}

// Converter changes the sample type one sample at a time
type Converter[In, Out audio.Sample] struct {
	converter[In, Out]
	convert func(In) Out
}

// NewConverter wraps source, passing every sample through fn
func NewConverter[In, Out audio.Sample](source SampleStream[In], fn func(In) Out) *Converter[In, Out] {
	c := &Converter[In, Out]{convert: fn}
	c.init(source, source.Format(), 1, 1)
	return c
}

func (c *Converter[In, Out]) Read(buf []Out, offset, count int) (int, error) {
	if err := CheckRead(buf, offset, count); err != nil {
		return 0, err
	}

	in := c.buffer(count)
	n, err := c.source.Read(in, 0, count)
	for i := 0; i < n; i++ {
		buf[offset+i] = c.convert(in[i])
	}

	if n > 0 {
		c.reads.Notify(buf[offset : offset+n])
	}
	return n, err
}

// ToChannels adapts a float32 stream to the given channel count, inserting a
// mono/stereo converter when needed. Other channel layouts are not converted.
func ToChannels(source SampleStream[float32], channels int) (SampleStream[float32], error) {
	have := source.Format().Channels
	switch {
	case have == channels:
		return source, nil
	case have == 1 && channels == 2:
		c, err := NewMonoToStereo(source)
		if err != nil {
			return nil, err
		}
		return c, nil
	case have == 2 && channels == 1:
		c, err := NewStereoToMono(source)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: no conversion from %d to %d channels", audio.ErrFormatMismatch, have, channels)
	}
}
