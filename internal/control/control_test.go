// ABOUTME: Tests for command application
// ABOUTME: Drives a real mixer and timer through every command type
package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/zerohz/zerohz-go/pkg/audio"
	"github.com/zerohz/zerohz-go/pkg/mixer"
	"github.com/zerohz/zerohz-go/pkg/timer"
)

type stubSource struct{}

func (stubSource) Start() error { return nil }
func (stubSource) Stop() error  { return nil }

type stubGain struct{ target float64 }

func (g *stubGain) Set(v float64)                     { g.target = v }
func (g *stubGain) RampTo(v float64, _ time.Duration) { g.target = v }
func (g *stubGain) Target() float64                   { return g.target }

type stubEngine struct{ suspended bool }

func (e *stubEngine) Decode(data []byte) (*audio.Buffer, error) {
	return &audio.Buffer{Format: audio.Format{SampleRate: 48000, Channels: 2}, Samples: []float32{0, 0}}, nil
}

func (e *stubEngine) CreateChannel(buf *audio.Buffer) (audio.Source, audio.Gain, error) {
	return stubSource{}, &stubGain{}, nil
}

func (e *stubEngine) Suspend() error {
	e.suspended = true
	return nil
}

func (e *stubEngine) Resume() error {
	e.suspended = false
	return nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	return []byte(locator), nil
}

// inlineDispatcher drops load results; these tests never wait for buffers
type inlineDispatcher struct{}

func (inlineDispatcher) Post(fn func()) {}

func newController(t *testing.T) (*Controller, *stubEngine) {
	t.Helper()
	engine := &stubEngine{}
	mc := mixer.DefaultConfig()
	mc.Catalog = []mixer.Sound{{ID: "rain", Label: "Rain", Locator: "rain.mp3"}}
	mc.Logger = zerolog.Nop()
	m, err := mixer.New(engine, stubFetcher{}, inlineDispatcher{}, mc)
	if err != nil {
		t.Fatalf("mixer.New failed: %v", err)
	}
	tc := timer.DefaultConfig()
	tc.Clock = clockwork.NewFakeClock()
	tc.Mode = timer.Countdown
	tc.Logger = zerolog.Nop()
	tm := timer.New(tc)
	return New(m, tm), engine
}

func TestMixerCommands(t *testing.T) {
	c, engine := newController(t)

	steps := []Command{
		{Type: ToggleSound, Sound: "rain"},
		{Type: SetVolume, Sound: "rain", Value: 0.8},
		{Type: AdjustVolume, Sound: "rain", Value: 0.5},
		{Type: ToggleMute},
		{Type: TogglePlay},
	}
	for _, cmd := range steps {
		if err := c.Apply(cmd); err != nil {
			t.Fatalf("Apply(%s) failed: %v", cmd.Type, err)
		}
	}

	st := c.Snapshot().Mixer
	rain := st.Channels[0]
	if !rain.Active {
		t.Error("rain should be active")
	}
	if rain.Volume != 1 {
		t.Errorf("expected adjusted volume clamped to 1, got %v", rain.Volume)
	}
	if !st.Muted || st.Playing || !engine.suspended {
		t.Errorf("unexpected mixer state %+v", st)
	}

	_ = c.Apply(Command{Type: SetMuted, On: false})
	_ = c.Apply(Command{Type: SetPlaying, On: true})
	_ = c.Apply(Command{Type: SetActive, Sound: "rain", On: false})

	st = c.Snapshot().Mixer
	if st.Muted || !st.Playing || st.Channels[0].Active {
		t.Errorf("unexpected mixer state %+v", st)
	}
}

func TestMixerCommandErrors(t *testing.T) {
	c, _ := newController(t)

	err := c.Apply(Command{Type: ToggleSound, Sound: "ocean"})
	if !errors.Is(err, mixer.ErrUnknownSound) {
		t.Errorf("expected ErrUnknownSound, got %v", err)
	}
}

func TestTimerToggleCycles(t *testing.T) {
	c, _ := newController(t)

	_ = c.Apply(Command{Type: TimerToggle})
	if st := c.Snapshot().Timer; !st.Running || st.Paused {
		t.Fatalf("expected running, got %+v", st)
	}

	_ = c.Apply(Command{Type: TimerToggle})
	if st := c.Snapshot().Timer; !st.Paused {
		t.Fatalf("expected paused, got %+v", st)
	}

	_ = c.Apply(Command{Type: TimerToggle})
	if st := c.Snapshot().Timer; !st.Running || st.Paused {
		t.Fatalf("expected resumed, got %+v", st)
	}

	_ = c.Apply(Command{Type: TimerReset})
	if st := c.Snapshot().Timer; st.Running {
		t.Fatalf("expected idle, got %+v", st)
	}
}

func TestTimerCommands(t *testing.T) {
	c, _ := newController(t)

	if err := c.Apply(Command{Type: TimerPreset, Preset: "focus"}); err != nil {
		t.Fatalf("preset failed: %v", err)
	}
	if got := c.Snapshot().Timer.TargetSeconds; got != 2700 {
		t.Errorf("expected 2700, got %d", got)
	}

	if err := c.Apply(Command{Type: TimerTarget, Seconds: 90}); err != nil {
		t.Fatalf("target failed: %v", err)
	}
	if got := c.Snapshot().Timer.CurrentSeconds; got != 90 {
		t.Errorf("expected 90, got %d", got)
	}

	_ = c.Apply(Command{Type: TimerStart})
	_ = c.Apply(Command{Type: TimerPause})
	_ = c.Apply(Command{Type: TimerResume})
	if st := c.Snapshot().Timer; !st.Running || st.Paused {
		t.Errorf("expected running, got %+v", st)
	}

	if err := c.Apply(Command{Type: TimerMode, Mode: "stopwatch"}); err != nil {
		t.Fatalf("mode failed: %v", err)
	}
	if got := c.Snapshot().Timer.Mode; got != timer.Stopwatch {
		t.Errorf("expected stopwatch, got %v", got)
	}

	_ = c.Apply(Command{Type: TimerMode})
	if got := c.Snapshot().Timer.Mode; got != timer.Countdown {
		t.Errorf("expected toggle back to countdown, got %v", got)
	}
}

func TestTimerCommandErrors(t *testing.T) {
	c, _ := newController(t)

	tests := []struct {
		name string
		cmd  Command
	}{
		{"negative target", Command{Type: TimerTarget, Seconds: -5}},
		{"unknown preset", Command{Type: TimerPreset, Preset: "nap"}},
		{"unknown mode", Command{Type: TimerMode, Mode: "sundial"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Apply(tt.cmd); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	c, _ := newController(t)

	if err := c.Apply(Command{Type: "shuffle"}); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}
