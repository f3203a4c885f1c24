// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Holds playback state, renders the box layout and maps keys to commands
package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Source
	title      string
	backend    string
	sampleRate int
	channels   int

	// Playback
	state    string
	position time.Duration
	duration time.Duration
	loop     bool
	volume   int
	muted    bool

	// Synth
	synth     bool
	waveform  string
	frequency float64

	// Meter
	level float64

	// Stats
	queued        int
	underruns     uint64
	samplesPlayed uint64
	ticks         uint64

	// Debug
	showDebug  bool
	goroutines int
	memAlloc   uint64

	control *Control

	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderSource())
	b.WriteString(m.renderControls())
	b.WriteString(m.renderStats())
	if m.showDebug {
		b.WriteString(m.renderDebug())
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

const innerWidth = 52

func line(format string, args ...any) string {
	return fmt.Sprintf("│ %-*s │\n", innerWidth, truncate(fmt.Sprintf(format, args...), innerWidth))
}

func (m Model) renderHeader() string {
	icon := "■"
	switch m.state {
	case "playing":
		icon = "▶"
	case "paused":
		icon = "‖"
	}
	loop := ""
	if m.loop {
		loop = "  ⟳ loop"
	}

	return "┌─ Alpipe Player ──────────────────────────────────────┐\n" +
		line("Status: %s %s%s", icon, stateName(m.state), loop) +
		"├──────────────────────────────────────────────────────┤\n"
}

func (m Model) renderSource() string {
	if m.sampleRate == 0 {
		return line("No source")
	}

	var s string
	if m.synth {
		s += line("Oscillator: %s %.1fHz", m.waveform, m.frequency)
	} else {
		s += line("Track: %s", m.title)
		s += line("Time:  %s / %s", clock(m.position), clock(m.duration))
		s += line("[%s]", renderBar(progress(m.position, m.duration), 100, innerWidth-2))
	}
	s += line("Format: %dHz %s via %s", m.sampleRate, channelName(m.channels), m.backend)
	return s
}

func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}
	level := int(math.Round(m.level * 100))

	return line("") +
		line("Volume: [%s] %d%%%s", renderBar(m.volume, 100, 10), m.volume, muteIcon) +
		line("Level:  [%s] %d%%", renderBar(level, 100, 20), level)
}

func (m Model) renderStats() string {
	return "├──────────────────────────────────────────────────────┤\n" +
		line("Queued: %d  Underruns: %d  Played: %d", m.queued, m.underruns, m.samplesPlayed) +
		line("")
}

func (m Model) renderHelp() string {
	help := line("space:Play/Pause  s:Stop  l:Loop  ↑/↓:Volume  m:Mute")
	if m.synth {
		help += line("1-5:Waveform  ←/→:Frequency  d:Debug  q:Quit")
	} else {
		help += line("d:Debug  q:Quit")
	}
	return help + "└──────────────────────────────────────────────────────┘\n"
}

func (m Model) renderDebug() string {
	return line("DEBUG:") +
		line("  Ticks: %d", m.ticks) +
		line("  Goroutines: %d  Heap: %.1fMB", m.goroutines, float64(m.memAlloc)/(1<<20))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		m.control.quit()
		return m, tea.Quit
	case " ":
		m.control.send(Command{Kind: CommandTogglePlay})
	case "s":
		m.control.send(Command{Kind: CommandStop})
	case "l":
		m.control.send(Command{Kind: CommandToggleLoop})
	case "up", "down":
		step := 5
		if key == "down" {
			step = -5
		}
		m.volume = max(0, min(100, m.volume+step))
		m.sendVolume()
	case "m":
		m.muted = !m.muted
		m.sendVolume()
	case "left", "right":
		if m.synth {
			factor := math.Pow(2, 1.0/12)
			if key == "left" {
				factor = 1 / factor
			}
			m.frequency *= factor
			m.control.send(Command{Kind: CommandFrequency, Frequency: m.frequency})
		}
	case "1", "2", "3", "4", "5":
		if m.synth {
			m.waveform = waveformKeys[key]
			m.control.send(Command{Kind: CommandWaveform, Waveform: m.waveform})
		}
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

var waveformKeys = map[string]string{
	"1": "sine",
	"2": "square",
	"3": "triangle",
	"4": "sawtooth",
	"5": "pulse",
}

func (m Model) sendVolume() {
	m.control.send(Command{Kind: CommandVolume, Volume: m.volume, Muted: m.muted})
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.State != "" {
		m.state = msg.State
		m.position = msg.Position
		m.duration = msg.Duration
	}
	if msg.Title != "" {
		m.title = msg.Title
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.backend = msg.Backend
	}
	if msg.Loop != nil {
		m.loop = *msg.Loop
	}
	if msg.Waveform != "" {
		m.synth = true
		m.waveform = msg.Waveform
		m.frequency = msg.Frequency
	}
	if msg.Volume != 0 {
		m.volume = msg.Volume
	}
	if msg.Level != nil {
		m.level = max(0, min(1, *msg.Level))
	}
	if msg.Ticks != 0 {
		m.ticks = msg.Ticks
		m.queued = msg.Queued
		m.underruns = msg.Underruns
		m.samplesPlayed = msg.SamplesPlayed
	}
	if msg.Goroutines != 0 {
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
	}
}

// StatusMsg updates TUI state. Zero fields leave the current value alone.
type StatusMsg struct {
	State    string
	Position time.Duration
	Duration time.Duration
	Loop     *bool

	Title      string
	Backend    string
	SampleRate int
	Channels   int

	Waveform  string
	Frequency float64

	Volume int
	Level  *float64

	Ticks         uint64
	Queued        int
	Underruns     uint64
	SamplesPlayed uint64

	Goroutines int
	MemAlloc   uint64
}

// Utility functions
func renderBar(value, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := min(width, max(0, (value*width)/total))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len([]rune(s)) <= length {
		return s
	}
	return string([]rune(s)[:length-3]) + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}

func stateName(state string) string {
	if state == "" {
		return "stopped"
	}
	return state
}

func progress(pos, total time.Duration) int {
	if total <= 0 {
		return 0
	}
	return int(pos * 100 / total)
}

func clock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// Peak returns the largest absolute sample value, clipped to 1.
func Peak(samples []float32) float64 {
	var peak float64
	for _, s := range samples {
		peak = max(peak, math.Abs(float64(s)))
	}
	return min(peak, 1)
}
