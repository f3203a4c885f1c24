// ABOUTME: TUI initialization and control channel
// ABOUTME: Wraps the bubbletea program and carries key commands to the player loop
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// CommandKind identifies a user request raised from the keyboard
type CommandKind int

const (
	CommandTogglePlay CommandKind = iota
	CommandStop
	CommandToggleLoop
	CommandVolume
	CommandWaveform
	CommandFrequency
)

// Command is a user request for the playback loop
type Command struct {
	Kind      CommandKind
	Volume    int
	Muted     bool
	Waveform  string
	Frequency float64
}

// Control holds channels from the TUI to the playback loop
type Control struct {
	Commands chan Command
	Quit     chan struct{}
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Commands: make(chan Command, 10),
		Quit:     make(chan struct{}, 1),
	}
}

// send drops the command when nobody is listening fast enough.
func (c *Control) send(cmd Command) {
	if c == nil {
		return
	}
	select {
	case c.Commands <- cmd:
	default:
	}
}

func (c *Control) quit() {
	if c == nil {
		return
	}
	select {
	case c.Quit <- struct{}{}:
	default:
	}
}

// NewModel creates a new TUI model
func NewModel(ctrl *Control) Model {
	return Model{
		volume:  100,
		state:   "stopped",
		control: ctrl,
	}
}

// Run creates the TUI program; the caller starts it.
func Run(ctrl *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
	return p, nil
}
