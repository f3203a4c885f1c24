// ABOUTME: Player that plays one sample stream on one output sink
// ABOUTME: Three-state playback machine mirrored from the sink, fed by a Tracker
package playback

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/audio/output"
	"github.com/Resonate-Protocol/alpipe-go/pkg/notify"
	"github.com/Resonate-Protocol/alpipe-go/pkg/stream"
	"github.com/google/uuid"
)

// Default buffering used by LoadDefault
const (
	DefaultBufferCount = 3
	DefaultBufferSize  = 4096
	DefaultPreCache    = 3
)

// State is the player's playback state
type State int

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "stopped"
	}
}

// EventType identifies a player event
type EventType int

const (
	EventPlaying EventType = iota
	EventPaused
	EventStopped
	EventFinished
	EventError
)

func (t EventType) String() string {
	switch t {
	case EventPlaying:
		return "playing"
	case EventPaused:
		return "paused"
	case EventStopped:
		return "stopped"
	case EventFinished:
		return "finished"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is published to player subscribers
type Event struct {
	Type EventType
	Err  error
}

// loaded is the stream currently on the player and how it is buffered
type loaded struct {
	stream      stream.SampleStream[float32]
	bufferCount int
	bufferSize  int
	preCache    int
}

// formatter is implemented by sinks bound to a single format
type formatter interface {
	Format() audio.Format
}

// Player owns an output sink and plays one stream at a time on it.
//
// Streams are compared by identity, so they must be pointer types.
type Player struct {
	events notify.Notifier[Event]

	id      uuid.UUID
	sink    output.Sink
	tracker *Tracker

	mu      sync.Mutex
	current atomic.Pointer[loaded]
	loop    atomic.Bool
	closed  bool
}

// NewPlayer creates a player for sink. A nil tracker uses Default().
func NewPlayer(sink output.Sink, tracker *Tracker) *Player {
	if tracker == nil {
		tracker = Default()
	}
	return &Player{
		id:      uuid.New(),
		sink:    sink,
		tracker: tracker,
	}
}

// ID identifies the player in logs and metrics
func (p *Player) ID() uuid.UUID { return p.id }

// Sink returns the player's output sink
func (p *Player) Sink() output.Sink { return p.sink }

// Stream returns the loaded stream, after any channel adaptation, or nil
func (p *Player) Stream() stream.SampleStream[float32] {
	if cur := p.current.Load(); cur != nil {
		return cur.stream
	}
	return nil
}

// Looping reports whether the stream restarts at its end
func (p *Player) Looping() bool { return p.loop.Load() }

// SetLoop turns looping on or off. Looping needs a seekable stream.
func (p *Player) SetLoop(loop bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if loop {
		if s := p.Stream(); s != nil && !s.CanSeek() {
			return fmt.Errorf("%w: cannot loop a stream that does not seek", audio.ErrUnsupported)
		}
	}
	p.loop.Store(loop)
	return nil
}

// Subscribe registers fn for player events. Playing, Paused and Stopped are
// raised just before the change takes effect, with the player locked; their
// handlers must not call Load, SetLoop, Play, Pause, Stop or Close. Finished and Error
// are raised from the tracker without any lock held.
func (p *Player) Subscribe(fn notify.Handler[Event]) (unsubscribe func()) {
	return p.events.Subscribe(fn)
}

// State mirrors the sink: anything other than playing or paused is stopped
func (p *Player) State() State {
	switch p.sink.State() {
	case output.StatePlaying:
		return StatePlaying
	case output.StatePaused:
		return StatePaused
	default:
		return StateStopped
	}
}

// Duration of the loaded stream, zero when unknown
func (p *Player) Duration() time.Duration {
	if s := p.Stream(); s != nil {
		return s.Duration()
	}
	return 0
}

// Position is the read position of the loaded stream. It runs ahead of what
// is audible by the buffered audio.
func (p *Player) Position() time.Duration {
	if s := p.Stream(); s != nil {
		return s.TimePosition()
	}
	return 0
}

// LoadDefault loads s with the default buffering
func (p *Player) LoadDefault(s stream.SampleStream[float32]) error {
	size := DefaultBufferSize - DefaultBufferSize%s.Format().Channels
	return p.Load(s, DefaultBufferCount, size, DefaultPreCache)
}

// Load stops playback, replaces the stream and registers the player with its
// tracker. Mono and stereo streams are adapted to the sink's channel count.
func (p *Player) Load(s stream.SampleStream[float32], bufferCount, bufferSize, preCache int) error {
	if s == nil {
		return fmt.Errorf("%w: nil stream", audio.ErrInvalidArgument)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("%w: player", audio.ErrClosed)
	}

	adapted, err := p.adapt(s)
	if err != nil {
		return err
	}

	if p.current.Load() != nil {
		if st := p.State(); st == StatePlaying || st == StatePaused {
			p.events.Notify(Event{Type: EventStopped})
		}
		if err := p.sink.Stop(); err != nil {
			return fmt.Errorf("failed to stop sink: %w", err)
		}
		if err := p.tracker.Untrack(p); err != nil {
			return err
		}
	}

	if !adapted.CanSeek() {
		p.loop.Store(false)
	}

	cur := &loaded{
		stream:      adapted,
		bufferCount: bufferCount,
		bufferSize:  bufferSize,
		preCache:    preCache,
	}
	p.current.Store(cur)

	if err := p.tracker.Track(p, bufferCount, bufferSize, preCache); err != nil {
		p.current.Store(nil)
		return err
	}

	log.Printf("Player %s loaded %v stream (%d x %d samples, %d pre-cached)",
		p.id, adapted.Format(), bufferCount, bufferSize, preCache)
	return nil
}

// adapt matches the stream's channel count to a sink bound to one format
func (p *Player) adapt(s stream.SampleStream[float32]) (stream.SampleStream[float32], error) {
	f, ok := p.sink.(formatter)
	if !ok {
		return s, nil
	}

	want := f.Format()
	if have := s.Format(); have.SampleRate != want.SampleRate {
		return nil, fmt.Errorf("%w: stream is %dHz, output is %dHz",
			audio.ErrFormatMismatch, have.SampleRate, want.SampleRate)
	}
	return stream.ToChannels(s, want.Channels)
}

// Play starts or resumes playback of the loaded stream
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("%w: player", audio.ErrClosed)
	}

	if p.current.Load() == nil || p.State() == StatePlaying {
		return nil
	}

	if err := p.tracker.EnsureBuffers(p, 1); err != nil {
		return err
	}

	p.events.Notify(Event{Type: EventPlaying})
	return p.sink.Play()
}

// Pause holds playback; queued buffers stay queued
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("%w: player", audio.ErrClosed)
	}

	if p.State() != StatePlaying {
		return nil
	}

	p.events.Notify(Event{Type: EventPaused})
	return p.sink.Pause()
}

// Stop halts playback, flushes the queued buffers and rewinds the stream so
// that a later Play starts from the beginning
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("%w: player", audio.ErrClosed)
	}

	if st := p.State(); st != StatePlaying && st != StatePaused {
		return nil
	}

	p.events.Notify(Event{Type: EventStopped})
	return p.rearm()
}

// rearm stops the sink and registers the rewound stream with fresh buffers.
// Must hold p.mu.
func (p *Player) rearm() error {
	cur := p.current.Load()
	if cur == nil {
		return nil
	}

	if err := p.sink.Stop(); err != nil {
		return fmt.Errorf("failed to stop sink: %w", err)
	}
	if err := p.tracker.Untrack(p); err != nil {
		return err
	}
	if cur.stream.CanSeek() {
		if err := cur.stream.SetSamplePosition(0); err != nil {
			return fmt.Errorf("failed to rewind stream: %w", err)
		}
	}
	return p.tracker.Track(p, cur.bufferCount, cur.bufferSize, cur.preCache)
}

// OnFinished is called by the tracker once s has played to the end
func (p *Player) OnFinished(s stream.SampleStream[float32]) {
	p.mu.Lock()
	if p.closed || p.Stream() != s {
		p.mu.Unlock()
		return
	}
	err := p.rearm()
	p.mu.Unlock()

	log.Printf("Player %s finished", p.id)
	if err != nil {
		p.events.Notify(Event{Type: EventError, Err: err})
	}
	p.events.Notify(Event{Type: EventFinished})
}

// OnRefillError is called by the tracker when it gave up refilling s
func (p *Player) OnRefillError(s stream.SampleStream[float32], err error) {
	if p.Stream() != s {
		return
	}
	log.Printf("Player %s refill error: %v", p.id, err)
	p.events.Notify(Event{Type: EventError, Err: err})
}

// Close stops playback, releases the buffers and closes the sink
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if err := p.sink.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := p.tracker.Untrack(p); err != nil {
		errs = append(errs, err)
	}
	if err := p.sink.Close(); err != nil {
		errs = append(errs, err)
	}
	p.current.Store(nil)
	return errors.Join(errs...)
}
