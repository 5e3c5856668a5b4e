// ABOUTME: Bubbletea model for the mixer and timer TUI
// ABOUTME: Renders snapshots from the host and turns keys into commands
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zerohz/zerohz-go/internal/control"
	"github.com/zerohz/zerohz-go/pkg/mixer"
	"github.com/zerohz/zerohz-go/pkg/timer"
)

// volumeStep is the change per left/right key press
const volumeStep = 0.05

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true)
	clockStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	selectStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
)

// Model represents the TUI state
type Model struct {
	name string
	ctrl *Control

	// Latest host snapshot
	snapshot control.Snapshot
	ready    bool

	// Selection
	selected int

	// Last command error from the host
	lastError string

	// Dimensions
	width  int
	height int
}

// StateMsg carries a fresh snapshot from the host
type StateMsg struct {
	Snapshot control.Snapshot
}

// ErrorMsg reports a failed command
type ErrorMsg struct {
	Err error
}

// QuitMsg signals the host to shut down
type QuitMsg struct{}

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
	case StateMsg:
		m.applyState(msg)
	case ErrorMsg:
		if msg.Err != nil {
			m.lastError = msg.Err.Error()
		}
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString(m.renderTimer())
	b.WriteString(m.renderChannels())
	b.WriteString(m.renderStatus())
	b.WriteString(m.renderHelp())
	return b.String()
}

// renderHeader renders the title line
func (m Model) renderHeader() string {
	return titleStyle.Render(fmt.Sprintf("zerohz · %s", m.name)) + "\n\n"
}

// renderTimer renders the clock, mode and progress
func (m Model) renderTimer() string {
	t := m.snapshot.Timer

	clock := clockStyle
	switch {
	case t.Completed:
		clock = doneStyle
	case t.Warning:
		clock = warnStyle
	}

	state := "idle"
	switch {
	case t.Completed:
		state = "done"
	case t.Running && t.Paused:
		state = "paused"
	case t.Running:
		state = "running"
	}

	s := fmt.Sprintf("  %s  %s\n", clock.Render(t.Formatted), dimStyle.Render(fmt.Sprintf("%s · %s", t.Mode, state)))
	if t.Mode == timer.Countdown {
		s += fmt.Sprintf("  [%s] of %s\n", renderBar(t.Progress, 20), t.FormattedTarget)
	}
	return s + "\n"
}

// renderChannels renders one line per catalog sound
func (m Model) renderChannels() string {
	var b strings.Builder
	for i, ch := range m.snapshot.Mixer.Channels {
		cursor := "  "
		style := dimStyle
		if ch.Active {
			style = activeStyle
		}
		if i == m.selected {
			cursor = "> "
			style = selectStyle
		}

		line := fmt.Sprintf("%s%s %-10s [%s] %3d%%",
			cursor, loadIcon(ch), truncate(ch.Label, 10), renderBar(ch.Volume, 10), int(ch.Volume*100+0.5))
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String() + "\n"
}

// renderStatus renders transport, mute and the last error
func (m Model) renderStatus() string {
	mx := m.snapshot.Mixer

	transport := "▶ playing"
	if !mx.Playing {
		transport = "⏸ paused"
	}
	s := "  " + transport
	if mx.Muted {
		s += "  🔇 muted"
	}
	s += "\n"

	if m.lastError != "" {
		s += errorStyle.Render("  "+m.lastError) + "\n"
	}
	return s + "\n"
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	keys := []struct{ key, desc string }{
		{"↑/↓", "select"},
		{"←/→", "volume"},
		{"space", "toggle"},
		{"m", "mute"},
		{"p", "play/pause"},
		{"s", "timer"},
		{"r", "reset"},
		{"t", "mode"},
		{"1-5", "preset"},
		{"q", "quit"},
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, helpKeyStyle.Render(k.key)+helpStyle.Render(":"+k.desc))
	}
	return strings.Join(parts, helpStyle.Render("  ")) + "\n"
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		if m.ctrl != nil {
			select {
			case m.ctrl.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.snapshot.Mixer.Channels)-1 {
			m.selected++
		}
	case "left", "h":
		m.sendForSelected(control.Command{Type: control.AdjustVolume, Value: -volumeStep})
	case "right", "l":
		m.sendForSelected(control.Command{Type: control.AdjustVolume, Value: volumeStep})
	case " ", "space", "enter":
		m.sendForSelected(control.Command{Type: control.ToggleSound})
	case "m":
		m.send(control.Command{Type: control.ToggleMute})
	case "p":
		m.send(control.Command{Type: control.TogglePlay})
	case "s":
		m.send(control.Command{Type: control.TimerToggle})
	case "r":
		m.send(control.Command{Type: control.TimerReset})
	case "t":
		m.send(control.Command{Type: control.TimerMode})
	case "1", "2", "3", "4", "5":
		i := int(key[0] - '1')
		if i < len(timer.Presets) {
			m.send(control.Command{Type: control.TimerPreset, Preset: timer.Presets[i].ID})
		}
	}

	return m, nil
}

// sendForSelected sends cmd targeting the selected sound
func (m *Model) sendForSelected(cmd control.Command) {
	channels := m.snapshot.Mixer.Channels
	if m.selected < 0 || m.selected >= len(channels) {
		return
	}
	cmd.Sound = channels[m.selected].ID
	m.send(cmd)
}

// send hands cmd to the host without blocking the UI
func (m *Model) send(cmd control.Command) {
	if m.ctrl == nil {
		return
	}
	m.lastError = ""
	select {
	case m.ctrl.Commands <- cmd:
	default:
		m.lastError = "busy, command dropped"
	}
}

// applyState updates model from a host snapshot
func (m *Model) applyState(msg StateMsg) {
	m.snapshot = msg.Snapshot
	m.ready = true

	if n := len(m.snapshot.Mixer.Channels); m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// Utility functions
func renderBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func loadIcon(ch mixer.ChannelState) string {
	switch {
	case ch.Load == mixer.LoadFailed:
		return "✗"
	case ch.Active && ch.Load != mixer.LoadReady:
		return "…"
	case ch.Live:
		return "●"
	default:
		return "○"
	}
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
