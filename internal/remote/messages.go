// ABOUTME: Wire messages exchanged with websocket remote clients
// ABOUTME: JSON mirrors of the host snapshot plus the envelope and hello types
package remote

import (
	"encoding/json"
	"time"

	"github.com/zerohz/zerohz-go/internal/control"
)

// Message types
const (
	TypeHello   = "server/hello"
	TypeState   = "server/state"
	TypeError   = "server/error"
	TypeCommand = "client/command"
)

// Message is the top-level wrapper for all remote messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// inbound is a Message whose payload is decoded once the type is known
type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hello is sent to every client right after it connects
type Hello struct {
	ServerID string `json:"server_id"`
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Version  string `json:"version"`
}

// ErrorPayload reports a rejected command
type ErrorPayload struct {
	Message string `json:"message"`
	Command string `json:"command,omitempty"`
}

// State is the JSON form of control.Snapshot
type State struct {
	Sounds  []SoundState `json:"sounds"`
	Muted   bool         `json:"muted"`
	Playing bool         `json:"playing"`
	Timer   TimerState   `json:"timer"`
}

// SoundState is one mixer channel
type SoundState struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Active  bool    `json:"active"`
	Volume  float64 `json:"volume"`
	Load    string  `json:"load"`
	Live    bool    `json:"live"`
	Audible bool    `json:"audible"`
}

// TimerState is the timer view
type TimerState struct {
	Mode            string     `json:"mode"`
	TargetSeconds   int        `json:"target_seconds"`
	CurrentSeconds  int        `json:"current_seconds"`
	Running         bool       `json:"running"`
	Paused          bool       `json:"paused"`
	Progress        float64    `json:"progress"`
	Warning         bool       `json:"warning"`
	Completed       bool       `json:"completed"`
	Formatted       string     `json:"formatted"`
	FormattedTarget string     `json:"formatted_target"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// NewState converts a host snapshot to its wire form
func NewState(snap control.Snapshot) State {
	st := State{
		Sounds:  make([]SoundState, 0, len(snap.Mixer.Channels)),
		Muted:   snap.Mixer.Muted,
		Playing: snap.Mixer.Playing,
	}

	for _, ch := range snap.Mixer.Channels {
		st.Sounds = append(st.Sounds, SoundState{
			ID:      ch.ID,
			Label:   ch.Label,
			Active:  ch.Active,
			Volume:  ch.Volume,
			Load:    ch.Load.String(),
			Live:    ch.Live,
			Audible: ch.Audible,
		})
	}

	t := snap.Timer
	st.Timer = TimerState{
		Mode:            t.Mode.String(),
		TargetSeconds:   t.TargetSeconds,
		CurrentSeconds:  t.CurrentSeconds,
		Running:         t.Running,
		Paused:          t.Paused,
		Progress:        t.Progress,
		Warning:         t.Warning,
		Completed:       t.Completed,
		Formatted:       t.Formatted,
		FormattedTarget: t.FormattedTarget,
		StartedAt:       timePtr(t.StartedAt),
		CompletedAt:     timePtr(t.CompletedAt),
	}

	return st
}

// timePtr returns nil for the zero time so it is omitted on the wire
func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
