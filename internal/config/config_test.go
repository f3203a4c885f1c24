// ABOUTME: Tests for configuration loading
// ABOUTME: Covers defaults, config files, environment overrides and validation
package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend != "malgo" {
		t.Errorf("expected backend malgo, got %s", cfg.Backend)
	}
	if cfg.Buffers != 3 || cfg.BufferSize != 4096 || cfg.PreCache != 3 {
		t.Errorf("unexpected buffer defaults: %d/%d/%d", cfg.Buffers, cfg.BufferSize, cfg.PreCache)
	}
	if cfg.UpdateDelay != 10*time.Millisecond {
		t.Errorf("expected update delay 10ms, got %v", cfg.UpdateDelay)
	}
	if cfg.Frequency != 440 || cfg.Amplitude != 0.5 || cfg.Waveform != "sine" {
		t.Errorf("unexpected synth defaults: %v %v %s", cfg.Frequency, cfg.Amplitude, cfg.Waveform)
	}
	if cfg.SampleRate != 44100 {
		t.Errorf("expected sample rate 44100, got %d", cfg.SampleRate)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alpipe.yaml")
	body := "backend: \"null\"\nbuffers: 5\nbuffer_size: 1024\nwaveform: square\nupdate_delay: 25ms\nloop: true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Backend != "null" {
		t.Errorf("expected backend null, got %s", cfg.Backend)
	}
	if cfg.Buffers != 5 || cfg.BufferSize != 1024 {
		t.Errorf("expected 5 buffers of 1024, got %d of %d", cfg.Buffers, cfg.BufferSize)
	}
	if cfg.Waveform != "square" {
		t.Errorf("expected square, got %s", cfg.Waveform)
	}
	if cfg.UpdateDelay != 25*time.Millisecond {
		t.Errorf("expected 25ms, got %v", cfg.UpdateDelay)
	}
	if !cfg.Loop {
		t.Error("expected loop to be enabled")
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := Load(viper.New(), path); err != nil {
		t.Fatalf("missing config file should fall back to defaults: %v", err)
	}
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("ALPIPE_BACKEND", "oto")
	t.Setenv("ALPIPE_FREQUENCY", "220")

	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend != "oto" {
		t.Errorf("expected backend from environment, got %s", cfg.Backend)
	}
	if cfg.Frequency != 220 {
		t.Errorf("expected frequency 220, got %v", cfg.Frequency)
	}
}

func TestValidate(t *testing.T) {
	valid, err := Load(viper.New(), "")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Backend = "alsa" }},
		{"too many channels", func(c *Config) { c.Channels = 6 }},
		{"no buffers", func(c *Config) { c.Buffers = 0 }},
		{"empty buffers", func(c *Config) { c.BufferSize = 0 }},
		{"negative precache", func(c *Config) { c.PreCache = -1 }},
		{"zero update delay", func(c *Config) { c.UpdateDelay = 0 }},
		{"negative frequency", func(c *Config) { c.Frequency = -1 }},
		{"loud amplitude", func(c *Config) { c.Amplitude = 1.5 }},
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"unknown waveform", func(c *Config) { c.Waveform = "noise" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}

	if err := valid.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
