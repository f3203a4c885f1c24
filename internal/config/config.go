// ABOUTME: Player configuration backed by viper
// ABOUTME: Defaults, optional config file, ALPIPE_ environment overrides and validation
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/Resonate-Protocol/alpipe-go/pkg/audio/output"
	"github.com/Resonate-Protocol/alpipe-go/pkg/playback"
	"github.com/Resonate-Protocol/alpipe-go/pkg/synth"
	"github.com/spf13/viper"
)

// ErrInvalid is wrapped by every validation failure returned from Load.
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix is prepended to environment overrides, e.g. ALPIPE_BACKEND.
const EnvPrefix = "ALPIPE"

// Config is the validated player configuration.
type Config struct {
	Backend     string
	Channels    int
	Buffers     int
	BufferSize  int
	PreCache    int
	UpdateDelay time.Duration
	Loop        bool

	Frequency  float64
	Amplitude  float64
	Waveform   string
	SampleRate int

	LogFile     string
	NoTUI       bool
	MetricsAddr string
	TapDuration time.Duration
	Record      string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", "malgo")
	v.SetDefault("channels", 0)
	v.SetDefault("buffers", playback.DefaultBufferCount)
	v.SetDefault("buffer_size", playback.DefaultBufferSize)
	v.SetDefault("precache", playback.DefaultPreCache)
	v.SetDefault("update_delay", playback.DefaultUpdateDelay)
	v.SetDefault("loop", false)
	v.SetDefault("frequency", synth.DefaultFrequency)
	v.SetDefault("amplitude", synth.DefaultAmplitude)
	v.SetDefault("waveform", "sine")
	v.SetDefault("sample_rate", synth.DefaultSampleRate)
	v.SetDefault("log_file", "alpipe-player.log")
	v.SetDefault("no_tui", false)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("tap_duration", 50*time.Millisecond)
	v.SetDefault("record", "")
}

// Load applies defaults, reads configFile when one is given, enables
// environment overrides and returns the validated result. A missing config
// file is logged and ignored.
func Load(v *viper.Viper, configFile string) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
				log.Printf("No config file found at %s, using defaults", configFile)
			} else {
				return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
			}
		}
	}

	cfg := Config{
		Backend:     strings.ToLower(v.GetString("backend")),
		Channels:    v.GetInt("channels"),
		Buffers:     v.GetInt("buffers"),
		BufferSize:  v.GetInt("buffer_size"),
		PreCache:    v.GetInt("precache"),
		UpdateDelay: v.GetDuration("update_delay"),
		Loop:        v.GetBool("loop"),
		Frequency:   v.GetFloat64("frequency"),
		Amplitude:   v.GetFloat64("amplitude"),
		Waveform:    strings.ToLower(v.GetString("waveform")),
		SampleRate:  v.GetInt("sample_rate"),
		LogFile:     v.GetString("log_file"),
		NoTUI:       v.GetBool("no_tui"),
		MetricsAddr: v.GetString("metrics_addr"),
		TapDuration: v.GetDuration("tap_duration"),
		Record:      v.GetString("record"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field and reports the first problem found.
func (c Config) Validate() error {
	switch {
	case !slices.Contains(output.Backends, c.Backend):
		return fmt.Errorf("%w: backend %q (want one of %s)", ErrInvalid, c.Backend, strings.Join(output.Backends, ", "))
	case c.Channels < 0 || c.Channels > 2:
		return fmt.Errorf("%w: channels %d (want 0, 1 or 2)", ErrInvalid, c.Channels)
	case c.Buffers < 1:
		return fmt.Errorf("%w: buffers %d", ErrInvalid, c.Buffers)
	case c.BufferSize < 1:
		return fmt.Errorf("%w: buffer_size %d", ErrInvalid, c.BufferSize)
	case c.PreCache < 0:
		return fmt.Errorf("%w: precache %d", ErrInvalid, c.PreCache)
	case c.UpdateDelay <= 0:
		return fmt.Errorf("%w: update_delay %v", ErrInvalid, c.UpdateDelay)
	case c.Frequency < 0 || math.IsNaN(c.Frequency) || math.IsInf(c.Frequency, 0):
		return fmt.Errorf("%w: frequency %v", ErrInvalid, c.Frequency)
	case c.Amplitude < 0 || c.Amplitude > 1 || math.IsNaN(c.Amplitude):
		return fmt.Errorf("%w: amplitude %v (want 0..1)", ErrInvalid, c.Amplitude)
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate %d", ErrInvalid, c.SampleRate)
	case c.TapDuration < 0:
		return fmt.Errorf("%w: tap_duration %v", ErrInvalid, c.TapDuration)
	}
	if _, err := synth.WaveformByName(c.Waveform); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
