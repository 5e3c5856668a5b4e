// ABOUTME: Timer modes, presets and clock formatting
// ABOUTME: Presets are fixed countdown targets offered by the UI
package timer

import "fmt"

// Mode selects counting direction
type Mode int

const (
	Stopwatch Mode = iota
	Countdown
)

func (m Mode) String() string {
	switch m {
	case Stopwatch:
		return "stopwatch"
	case Countdown:
		return "countdown"
	default:
		return "unknown"
	}
}

// ParseMode parses "stopwatch" or "countdown"
func ParseMode(s string) (Mode, error) {
	switch s {
	case "stopwatch":
		return Stopwatch, nil
	case "countdown":
		return Countdown, nil
	default:
		return Stopwatch, fmt.Errorf("unknown timer mode: %s", s)
	}
}

// Preset is a named countdown target
type Preset struct {
	ID      string
	Label   string
	Seconds int
}

// Presets offered by the UI, in display order
var Presets = []Preset{
	{ID: "pomodoro", Label: "Pomodoro", Seconds: 25 * 60},
	{ID: "short-break", Label: "Short break", Seconds: 5 * 60},
	{ID: "long-break", Label: "Long break", Seconds: 15 * 60},
	{ID: "focus", Label: "Deep focus", Seconds: 45 * 60},
	{ID: "hour", Label: "Hour", Seconds: 60 * 60},
}

// PresetByID looks up a preset
func PresetByID(id string) (Preset, bool) {
	for _, p := range Presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// FormatClock renders seconds as MM:SS; minutes are not wrapped into hours
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = -seconds
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
