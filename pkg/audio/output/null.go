// ABOUTME: Offline audio output with no device behind it
// ABOUTME: Mixes voices on demand through Render, for headless runs and tests
package output

import (
	"sync/atomic"

	"github.com/zerohz/zerohz-go/pkg/audio"
)

// Null is an Output that renders only when asked
type Null struct {
	format    audio.Format
	voices    voiceSet
	suspended atomic.Bool
	oneShots  atomic.Int64
}

// NewNull creates an offline output
func NewNull(format audio.Format) *Null {
	return &Null{format: format}
}

// Format returns the output format
func (n *Null) Format() audio.Format {
	return n.format
}

// Decode converts an encoded file into a buffer at the output format
func (n *Null) Decode(data []byte) (*audio.Buffer, error) {
	return decodeFor(data, n.format)
}

// CreateChannel creates a voice that joins the mix when started
func (n *Null) CreateChannel(buf *audio.Buffer) (audio.Source, audio.Gain, error) {
	if err := checkBuffer(buf, n.format); err != nil {
		return nil, nil, err
	}

	gain := newGainStage(n.format.SampleRate)
	return &mixChannel{set: &n.voices, voice: newVoice(buf, gain, false)}, gain, nil
}

// PlayOnce adds a one-shot voice
func (n *Null) PlayOnce(buf *audio.Buffer, volume float64) error {
	if err := checkBuffer(buf, n.format); err != nil {
		return err
	}

	gain := newGainStage(n.format.SampleRate)
	gain.Set(volume)
	n.voices.add(newVoice(buf, gain, true))
	n.oneShots.Add(1)
	return nil
}

// Suspend makes Render produce silence without advancing voices
func (n *Null) Suspend() error {
	n.suspended.Store(true)
	return nil
}

// Resume undoes Suspend
func (n *Null) Resume() error {
	n.suspended.Store(false)
	return nil
}

// Close is a no-op
func (n *Null) Close() error {
	return nil
}

// Render mixes the next frames of every live voice
func (n *Null) Render(frames int) []float32 {
	out := make([]float32, frames*n.format.Channels)
	if n.suspended.Load() {
		return out
	}
	n.voices.render(out)
	return out
}

// Voices returns the number of voices currently in the mix
func (n *Null) Voices() int {
	return n.voices.len()
}

// OneShots returns how many one-shot sounds have been played
func (n *Null) OneShots() int {
	return int(n.oneShots.Load())
}
