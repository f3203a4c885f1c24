// ABOUTME: Entry point for the alpipe player
// ABOUTME: Parses CLI flags and config, then plays a file or test tone through the tracker
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Resonate-Protocol/alpipe-go/internal/config"
	"github.com/Resonate-Protocol/alpipe-go/internal/metrics"
	"github.com/Resonate-Protocol/alpipe-go/internal/ui"
	"github.com/Resonate-Protocol/alpipe-go/internal/version"
	"github.com/Resonate-Protocol/alpipe-go/pkg/audio"
	"github.com/Resonate-Protocol/alpipe-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/alpipe-go/pkg/audio/encode"
	"github.com/Resonate-Protocol/alpipe-go/pkg/audio/output"
	"github.com/Resonate-Protocol/alpipe-go/pkg/playback"
	"github.com/Resonate-Protocol/alpipe-go/pkg/stream"
	"github.com/Resonate-Protocol/alpipe-go/pkg/synth"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// flagKeys maps CLI flags to their viper keys
var flagKeys = map[string]string{
	"backend":      "backend",
	"channels":     "channels",
	"buffers":      "buffers",
	"buffer-size":  "buffer_size",
	"precache":     "precache",
	"update-delay": "update_delay",
	"loop":         "loop",
	"frequency":    "frequency",
	"amplitude":    "amplitude",
	"waveform":     "waveform",
	"sample-rate":  "sample_rate",
	"log-file":     "log_file",
	"no-tui":       "no_tui",
	"metrics-addr": "metrics_addr",
	"tap-duration": "tap_duration",
	"record":       "record",
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	var configFile string
	var streamLogs bool

	cmd := &cobra.Command{
		Use:          "alpipe-player [file]",
		Short:        "Play an audio file, or a test tone when no file is given",
		Args:         cobra.MaximumNArgs(1),
		Version:      version.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if streamLogs {
				v.Set("no_tui", true)
			}
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return run(cmd.Context(), cfg, path)
		},
	}
	cmd.SetVersionTemplate(version.String() + "\n")

	flags := cmd.Flags()
	flags.StringVar(&configFile, "config", "", "Config file (yaml, toml or json)")
	flags.String("backend", "malgo", "Output backend: malgo, oto, null, portaudio")
	flags.Int("channels", 0, "Output channels (0 uses the source's)")
	flags.Int("buffers", playback.DefaultBufferCount, "Hardware buffers per player")
	flags.Int("buffer-size", playback.DefaultBufferSize, "Samples per hardware buffer")
	flags.Int("precache", playback.DefaultPreCache, "Buffers filled before playback starts")
	flags.Duration("update-delay", playback.DefaultUpdateDelay, "Refill loop period")
	flags.Bool("loop", false, "Loop the file")
	flags.Float64("frequency", synth.DefaultFrequency, "Test tone frequency (Hz)")
	flags.Float64("amplitude", synth.DefaultAmplitude, "Test tone amplitude (0..1)")
	flags.String("waveform", "sine", "Test tone waveform: sine, square, triangle, sawtooth, pulse")
	flags.Int("sample-rate", synth.DefaultSampleRate, "Test tone sample rate (Hz)")
	flags.String("log-file", "alpipe-player.log", "Log file path")
	flags.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	flags.BoolVar(&streamLogs, "stream-logs", false, "Alias for --no-tui")
	flags.String("metrics-addr", "", "Serve prometheus metrics on this address (e.g. :9090)")
	flags.Duration("tap-duration", 50*time.Millisecond, "Window of audio kept for the level meter")
	flags.String("record", "", "Also write everything played to this 16-bit WAV file")

	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}

	return cmd
}

// source is what the player plays, plus the oscillator when generating a tone
type source struct {
	stream stream.ObservableStream[float32]
	title  string
	osc    *synth.Oscillator
	closer io.Closer
}

func openSource(cfg config.Config, path string) (*source, error) {
	if path != "" {
		dec, err := decode.Open(path)
		if err != nil {
			return nil, err
		}
		return &source{stream: dec, title: decode.Title(path), closer: dec}, nil
	}

	osc, err := synth.NewOscillator(audio.Format{Channels: max(cfg.Channels, 1), SampleRate: cfg.SampleRate})
	if err != nil {
		return nil, err
	}
	wave, err := synth.WaveformByName(cfg.Waveform)
	if err != nil {
		return nil, err
	}
	osc.SetWaveform(wave)
	osc.SetAmplitude(cfg.Amplitude)
	if err := osc.SetFrequency(cfg.Frequency); err != nil {
		return nil, err
	}
	return &source{stream: osc, title: "Test tone", osc: osc}, nil
}

func setupLogging(cfg config.Config) (io.Closer, error) {
	f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}

	if cfg.NoTUI {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	} else {
		// TUI mode: log only to file
		log.SetOutput(f)
	}
	return f, nil
}

func run(parent context.Context, cfg config.Config, path string) error {
	logFile, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Starting %s", version.String())

	src, err := openSource(cfg, path)
	if err != nil {
		return err
	}
	if src.closer != nil {
		defer func() { _ = src.closer.Close() }()
	}

	format := src.stream.Format()
	if cfg.Channels > 0 {
		format.Channels = cfg.Channels
	}

	sink, err := output.Open(cfg.Backend, format)
	if err != nil {
		return fmt.Errorf("failed to open %s output: %w", cfg.Backend, err)
	}

	tracker := playback.NewTracker(playback.WithUpdateDelay(cfg.UpdateDelay))
	if err := tracker.Start(); err != nil {
		return err
	}
	defer func() { _ = tracker.Close() }()

	player := playback.NewPlayer(sink, tracker)
	defer func() {
		if err := player.Close(); err != nil {
			log.Printf("Error closing player: %v", err)
		}
	}()

	var tap *stream.Tap[float32]
	if cfg.TapDuration > 0 {
		tap, err = stream.NewTapDuration[float32](src.stream, cfg.TapDuration)
		if err != nil {
			return err
		}
		defer tap.Close()
	}

	if cfg.Record != "" {
		enc, err := encode.CreateWAV(cfg.Record, src.stream.Format(), 16)
		if err != nil {
			return err
		}
		rec := encode.NewRecorder(src.stream, enc)
		defer func() {
			if err := rec.Close(); err != nil {
				log.Printf("Recording to %s failed: %v", cfg.Record, err)
				return
			}
			log.Printf("Recorded %d samples to %s", rec.Samples(), cfg.Record)
		}()
	}

	finished := make(chan struct{}, 1)
	player.Subscribe(func(e playback.Event) {
		if e.Err != nil {
			log.Printf("Player event: %s: %v", e.Type, e.Err)
		} else {
			log.Printf("Player event: %s", e.Type)
		}
		if e.Type == playback.EventFinished {
			select {
			case finished <- struct{}{}:
			default:
			}
		}
	})

	bufferSize := cfg.BufferSize - cfg.BufferSize%format.Channels
	if err := player.Load(src.stream, cfg.Buffers, bufferSize, cfg.PreCache); err != nil {
		return err
	}
	if cfg.Loop {
		if err := player.SetLoop(true); err != nil {
			log.Printf("Loop unavailable: %v", err)
		}
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		sinks := map[string]metrics.SinkStats{}
		if s, ok := sink.(metrics.SinkStats); ok {
			sinks[player.ID().String()] = s
		}
		if _, err := metrics.Register(reg, tracker, sinks); err != nil {
			return err
		}
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, reg); err != nil {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	}

	var tuiProg *tea.Program
	var ctrl *ui.Control
	if !cfg.NoTUI {
		ctrl = ui.NewControl()
		tuiProg, err = ui.Run(ctrl)
		if err != nil {
			return fmt.Errorf("failed to start TUI: %w", err)
		}
		go func() {
			if _, err := tuiProg.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		defer tuiProg.Quit()
	} else {
		log.Printf("TUI disabled - logging to stdout and %s", cfg.LogFile)
	}

	// Helper to update TUI
	updateTUI := func(msg ui.StatusMsg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	initial := ui.StatusMsg{
		Title:      src.title,
		Backend:    cfg.Backend,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
	}
	if src.osc != nil {
		initial.Waveform = cfg.Waveform
		initial.Frequency = src.osc.Frequency()
	}
	updateTUI(initial)

	log.Printf("Playing %s on %s (%v)", src.title, cfg.Backend, format)
	if err := player.Play(); err != nil {
		return err
	}

	if tuiProg != nil {
		go statsUpdateLoop(ctx, player, tracker, tap, updateTUI)
	}

	var commands <-chan ui.Command
	var quit <-chan struct{}
	if ctrl != nil {
		commands = ctrl.Commands
		quit = ctrl.Quit
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("Shutdown signal received")
			return nil
		case <-quit:
			log.Printf("Received quit signal from TUI")
			return nil
		case <-finished:
			if cfg.NoTUI {
				log.Printf("Playback finished")
				return nil
			}
		case cmd := <-commands:
			if err := handleCommand(cmd, player, src.osc); err != nil {
				log.Printf("Command failed: %v", err)
			}
		}
	}
}

// gainer is implemented by every output.Queue backed sink
type gainer interface {
	SetGain(gain float32)
}

// handleCommand applies a TUI command to the player or oscillator
func handleCommand(cmd ui.Command, player *playback.Player, osc *synth.Oscillator) error {
	switch cmd.Kind {
	case ui.CommandTogglePlay:
		if player.State() == playback.StatePlaying {
			return player.Pause()
		}
		return player.Play()
	case ui.CommandStop:
		return player.Stop()
	case ui.CommandToggleLoop:
		return player.SetLoop(!player.Looping())
	case ui.CommandVolume:
		g, ok := player.Sink().(gainer)
		if !ok {
			return fmt.Errorf("%w: output has no volume control", audio.ErrUnsupported)
		}
		gain := float32(cmd.Volume) / 100
		if cmd.Muted {
			gain = 0
		}
		log.Printf("Volume change: %d%%, muted=%v", cmd.Volume, cmd.Muted)
		g.SetGain(gain)
	case ui.CommandWaveform:
		if osc == nil {
			return nil
		}
		wave, err := synth.WaveformByName(cmd.Waveform)
		if err != nil {
			return err
		}
		osc.SetWaveform(wave)
	case ui.CommandFrequency:
		if osc == nil {
			return nil
		}
		return osc.SetFrequency(cmd.Frequency)
	}
	return nil
}

// statsUpdateLoop periodically updates TUI with playback statistics
func statsUpdateLoop(ctx context.Context, player *playback.Player, tracker *playback.Tracker,
	tap *stream.Tap[float32], updateTUI func(ui.StatusMsg)) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	// Use a slower ticker for expensive runtime stats to avoid GC pauses
	runtimeStatsTicker := time.NewTicker(2 * time.Second)
	defer runtimeStatsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-runtimeStatsTicker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			updateTUI(ui.StatusMsg{
				Goroutines: runtime.NumGoroutine(),
				MemAlloc:   m.Alloc,
			})

		case <-ticker.C:
			stats := tracker.Stats()
			loop := player.Looping()
			sink := player.Sink()

			msg := ui.StatusMsg{
				State:    player.State().String(),
				Position: player.Position(),
				Duration: player.Duration(),
				Loop:     &loop,
				Ticks:    stats.Ticks,
				Queued:   sink.Queued() - sink.Processed(),
			}
			if s, ok := sink.(metrics.SinkStats); ok {
				msg.Underruns = s.Underruns()
				msg.SamplesPlayed = s.SamplesPlayed()
			}
			if tap != nil {
				level := ui.Peak(tap.Samples())
				msg.Level = &level
			}
			updateTUI(msg)
		}
	}
}
