// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the mixer and timer UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zerohz/zerohz-go/internal/control"
)

// Control holds channels for TUI to host communication
type Control struct {
	Commands chan control.Command
	Quit     chan QuitMsg
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Commands: make(chan control.Command, 32),
		Quit:     make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(ctrl *Control, name string) Model {
	return Model{
		name: name,
		ctrl: ctrl,
	}
}

// Run creates the TUI program; the caller runs it
func Run(ctrl *Control, name string) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(ctrl, name), tea.WithAltScreen())
	return p, nil
}
