// ABOUTME: Commands shared by the TUI and the remote, applied on the host loop
// ABOUTME: Maps each command onto mixer and timer operations
package control

import (
	"errors"
	"fmt"

	"github.com/zerohz/zerohz-go/pkg/mixer"
	"github.com/zerohz/zerohz-go/pkg/timer"
)

// ErrUnknownCommand is returned for command types the controller does not know
var ErrUnknownCommand = errors.New("unknown command")

// Command types
const (
	ToggleSound  = "toggle_sound"
	SetActive    = "set_active"
	SetVolume    = "set_volume"
	AdjustVolume = "adjust_volume"
	ToggleMute   = "toggle_mute"
	SetMuted     = "set_muted"
	TogglePlay   = "toggle_play"
	SetPlaying   = "set_playing"
	TimerToggle  = "timer_toggle"
	TimerStart   = "timer_start"
	TimerPause   = "timer_pause"
	TimerResume  = "timer_resume"
	TimerReset   = "timer_reset"
	TimerMode    = "timer_mode"
	TimerPreset  = "timer_preset"
	TimerTarget  = "timer_target"
)

// Command is one user intent
type Command struct {
	Type    string  `json:"type"`
	Sound   string  `json:"sound,omitempty"`
	Value   float64 `json:"value,omitempty"`
	On      bool    `json:"on,omitempty"`
	Mode    string  `json:"mode,omitempty"`
	Preset  string  `json:"preset,omitempty"`
	Seconds int     `json:"seconds,omitempty"`
}

// Snapshot is the combined read-only view rendered by every front end
type Snapshot struct {
	Mixer mixer.State
	Timer timer.State
}

// Controller applies commands to the two engines. It must only be used on
// the host loop.
type Controller struct {
	mixer *mixer.Mixer
	timer *timer.Engine
}

// New creates a controller over the mixer and timer
func New(m *mixer.Mixer, t *timer.Engine) *Controller {
	return &Controller{mixer: m, timer: t}
}

// Apply performs cmd
func (c *Controller) Apply(cmd Command) error {
	switch cmd.Type {
	case ToggleSound:
		return c.mixer.ToggleSound(cmd.Sound)
	case SetActive:
		return c.mixer.SetActive(cmd.Sound, cmd.On)
	case SetVolume:
		return c.mixer.SetVolume(cmd.Sound, cmd.Value)
	case AdjustVolume:
		return c.mixer.SetVolume(cmd.Sound, c.mixer.Volume(cmd.Sound)+cmd.Value)
	case ToggleMute:
		c.mixer.ToggleMute()
	case SetMuted:
		c.mixer.SetMuted(cmd.On)
	case TogglePlay:
		return c.mixer.TogglePlayPause()
	case SetPlaying:
		return c.mixer.SetPlaying(cmd.On)
	case TimerToggle:
		c.toggleTimer()
	case TimerStart:
		c.timer.Start()
	case TimerPause:
		c.timer.Pause()
	case TimerResume:
		c.timer.Resume()
	case TimerReset:
		c.timer.Reset()
	case TimerMode:
		if cmd.Mode == "" {
			c.timer.ToggleMode()
			return nil
		}
		m, err := timer.ParseMode(cmd.Mode)
		if err != nil {
			return err
		}
		c.timer.SetMode(m)
	case TimerPreset:
		p, ok := timer.PresetByID(cmd.Preset)
		if !ok {
			return fmt.Errorf("unknown preset: %s", cmd.Preset)
		}
		return c.timer.SetPreset(p)
	case TimerTarget:
		return c.timer.SetTarget(cmd.Seconds)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Type)
	}
	return nil
}

// toggleTimer starts an idle or finished timer, pauses a running one and
// resumes a paused one
func (c *Controller) toggleTimer() {
	st := c.timer.Snapshot()
	switch {
	case st.Running && !st.Paused:
		c.timer.Pause()
	case st.Running && st.Paused:
		c.timer.Resume()
	default:
		c.timer.Start()
	}
}

// Snapshot returns the combined view
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Mixer: c.mixer.Snapshot(),
		Timer: c.timer.Snapshot(),
	}
}
