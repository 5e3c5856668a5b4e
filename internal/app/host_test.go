// ABOUTME: Tests for host orchestration
// ABOUTME: Runs the full mixer, timer and remote stack on the offline output
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/zerohz/zerohz-go/internal/config"
	"github.com/zerohz/zerohz-go/internal/control"
	"github.com/zerohz/zerohz-go/internal/remote"
	"github.com/zerohz/zerohz-go/internal/ui"
	"github.com/zerohz/zerohz-go/pkg/audio"
	"github.com/zerohz/zerohz-go/pkg/audio/output"
	"github.com/zerohz/zerohz-go/pkg/mixer"
	"github.com/zerohz/zerohz-go/pkg/timer"
)

// testOutput skips real decoding so any fetched bytes play as a tone
type testOutput struct {
	*output.Null
}

func (o testOutput) Decode(data []byte) (*audio.Buffer, error) {
	format := o.Format()
	samples := make([]float32, 4800*format.Channels)
	for i := range samples {
		samples[i] = 0.25
	}
	return &audio.Buffer{Format: format, Samples: samples}, nil
}

type fakeFetcher struct{}

func (fakeFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if locator == "missing.mp3" {
		return nil, errors.New("not found")
	}
	return []byte(locator), nil
}

type recorder struct {
	mu    sync.Mutex
	snaps []control.Snapshot
}

func (r *recorder) Publish(snap control.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder) last() control.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snaps[len(r.snaps)-1]
}

var testCatalog = []mixer.Sound{
	{ID: "rain", Label: "Rain", Locator: "rain.mp3"},
	{ID: "fire", Label: "Fire", Locator: "fire.mp3"},
	{ID: "void", Label: "Void", Locator: "missing.mp3"},
}

// newTestHost builds a host from DefaultConfig, adjusted by configure if set
func newTestHost(t *testing.T, clock clockwork.Clock, configure func(*Config)) (*Host, *output.Null, *recorder) {
	t.Helper()

	cfg := DefaultConfig()
	if configure != nil {
		configure(&cfg)
	}
	if cfg.Catalog == nil {
		cfg.Catalog = testCatalog
	}

	null := output.NewNull(output.DefaultFormat)
	h, err := New(testOutput{null}, fakeFetcher{}, clock, cfg)
	if err != nil {
		t.Fatalf("failed to create host: %v", err)
	}

	rec := &recorder{}
	h.AddFrontend(rec)
	return h, null, rec
}

// pumpUntil runs the host loop on the test goroutine until cond holds
func pumpUntil(t *testing.T, h *Host, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		h.loop.RunPending()
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(time.Millisecond)
	}
}

func channel(snap control.Snapshot, id string) mixer.ChannelState {
	for _, ch := range snap.Mixer.Channels {
		if ch.ID == id {
			return ch
		}
	}
	return mixer.ChannelState{}
}

func TestNewRejectsDuplicateSounds(t *testing.T) {
	_, err := New(testOutput{output.NewNull(output.DefaultFormat)}, fakeFetcher{}, nil, Config{
		Catalog: []mixer.Sound{{ID: "rain"}, {ID: "rain"}},
	})
	if err == nil {
		t.Fatal("expected error for duplicate sound ids")
	}
}

func TestNewDefaults(t *testing.T) {
	h, _, _ := newTestHost(t, nil, nil)

	if h.config.Name == "" {
		t.Error("expected default name")
	}
	if h.chimes != nil {
		t.Error("expected chimes to be disabled")
	}
	if h.remote != nil {
		t.Error("expected no remote without an address")
	}
	if h.RemotePort() != 0 {
		t.Errorf("expected port 0, got %d", h.RemotePort())
	}
	if err := h.Listen(); err != nil {
		t.Errorf("expected Listen without remote to be a no-op, got %v", err)
	}
}

func TestToggleSoundPlays(t *testing.T) {
	h, null, rec := newTestHost(t, nil, nil)

	h.Submit(control.Command{Type: control.ToggleSound, Sound: "rain"}, nil)
	pumpUntil(t, h, func() bool {
		return rec.count() > 0 && channel(rec.last(), "rain").Live
	})

	if null.Voices() != 1 {
		t.Errorf("expected 1 voice, got %d", null.Voices())
	}

	snap := rec.last()
	if ch := channel(snap, "rain"); !ch.Audible || ch.Load != mixer.LoadReady {
		t.Errorf("expected audible ready channel, got %+v", ch)
	}

	nonZero := false
	for _, s := range null.Render(480) {
		if s != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Error("expected rendered audio")
	}

	h.Submit(control.Command{Type: control.ToggleSound, Sound: "rain"}, nil)
	pumpUntil(t, h, func() bool { return !channel(rec.last(), "rain").Live })

	if null.Voices() != 0 {
		t.Errorf("expected 0 voices, got %d", null.Voices())
	}
}

func TestFailedLoadStaysSilent(t *testing.T) {
	h, null, rec := newTestHost(t, nil, nil)

	h.Submit(control.Command{Type: control.ToggleSound, Sound: "void"}, nil)
	pumpUntil(t, h, func() bool {
		return rec.count() > 0 && channel(rec.last(), "void").Load == mixer.LoadFailed
	})

	ch := channel(rec.last(), "void")
	if !ch.Active || ch.Live || ch.Audible {
		t.Errorf("expected active silent channel, got %+v", ch)
	}
	if null.Voices() != 0 {
		t.Errorf("expected no voices, got %d", null.Voices())
	}
}

func TestCommandErrorReported(t *testing.T) {
	h, _, rec := newTestHost(t, nil, nil)

	var got error
	h.Submit(control.Command{Type: control.ToggleSound, Sound: "surf"}, func(err error) {
		got = err
	})
	h.loop.RunPending()

	if !errors.Is(got, mixer.ErrUnknownSound) {
		t.Errorf("expected ErrUnknownSound, got %v", got)
	}
	if rec.count() != 1 {
		t.Errorf("expected a publish after the failed command, got %d", rec.count())
	}
}

func TestMuteAndTransport(t *testing.T) {
	h, null, rec := newTestHost(t, nil, nil)

	h.Submit(control.Command{Type: control.ToggleMute}, nil)
	h.Submit(control.Command{Type: control.TogglePlay}, nil)
	h.loop.RunPending()

	snap := rec.last()
	if !snap.Mixer.Muted || snap.Mixer.Playing {
		t.Errorf("expected muted and paused, got %+v", snap.Mixer)
	}

	for _, s := range null.Render(64) {
		if s != 0 {
			t.Fatal("expected silence while suspended")
		}
	}
}

func TestTimerChimes(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h, null, rec := newTestHost(t, clock, func(c *Config) {
		c.TimerMode = timer.Countdown
		c.TargetSeconds = 10
		c.WarningSeconds = 5
		c.Chimes = true
	})

	h.Submit(control.Command{Type: control.TimerStart}, nil)
	h.loop.RunPending()

	if !h.timer.Polling() {
		t.Fatal("expected timer to poll while running")
	}

	clock.Advance(6 * time.Second)
	pumpUntil(t, h, func() bool { return null.OneShots() == 1 })

	if !rec.last().Timer.Warning {
		t.Error("expected warning state to be published")
	}

	clock.Advance(5 * time.Second)
	pumpUntil(t, h, func() bool { return null.OneShots() == 2 })

	snap := rec.last()
	if !snap.Timer.Completed || snap.Timer.Formatted != "00:00" {
		t.Errorf("expected completed timer, got %+v", snap.Timer)
	}
	if h.timer.Polling() {
		t.Error("expected polling to stop after completion")
	}
}

func TestTimerPublishesOnSecondChange(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h, _, rec := newTestHost(t, clock, func(c *Config) { c.TimerMode = timer.Stopwatch })

	h.Submit(control.Command{Type: control.TimerStart}, nil)
	h.loop.RunPending()
	before := rec.count()

	// A poll within the same second changes nothing
	ran := h.loop.Stats().Ran
	clock.Advance(100 * time.Millisecond)
	pumpUntil(t, h, func() bool { return h.loop.Stats().Ran > ran })

	if rec.count() != before {
		t.Errorf("expected no publish within a second, got %d new", rec.count()-before)
	}

	clock.Advance(time.Second)
	pumpUntil(t, h, func() bool { return rec.count() > before })

	if rec.last().Timer.Formatted != "00:01" {
		t.Errorf("expected 00:01, got %s", rec.last().Timer.Formatted)
	}
}

func TestRunWithRemote(t *testing.T) {
	h, _, rec := newTestHost(t, nil, func(c *Config) {
		c.RemoteAddr = "127.0.0.1:0"
		c.Name = "desk"
	})

	if err := h.Listen(); err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	if h.RemotePort() == 0 {
		t.Fatal("expected bound port")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	client := remote.NewClient(remote.ClientConfig{ServerAddr: fmt.Sprintf("127.0.0.1:%d", h.RemotePort())})
	dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer dialCancel()
	if err := client.Connect(dialCtx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer client.Close()

	if client.Hello().Name != "desk" {
		t.Errorf("expected hello from desk, got %+v", client.Hello())
	}

	if err := client.Send(control.Command{Type: control.SetMuted, On: true}); err != nil {
		t.Fatalf("failed to send: %v", err)
	}

	timeout := time.After(2 * time.Second)
	for muted := false; !muted; {
		select {
		case st := <-client.States:
			muted = st.Muted
		case <-timeout:
			t.Fatal("timed out waiting for muted state")
		}
	}

	if err := client.Send(control.Command{Type: control.ToggleSound, Sound: "surf"}); err != nil {
		t.Fatalf("failed to send: %v", err)
	}
	select {
	case e := <-client.Errors:
		if e.Command != control.ToggleSound {
			t.Errorf("unexpected error %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	if rec.count() == 0 {
		t.Error("expected local frontend to receive snapshots")
	}
}

func TestRunStopsOnTUIQuit(t *testing.T) {
	h, _, rec := newTestHost(t, nil, nil)
	h.tuiCtrl = ui.NewControl()

	done := make(chan error, 1)
	go func() { done <- h.Run(context.Background()) }()

	h.tuiCtrl.Commands <- control.Command{Type: control.ToggleMute}

	deadline := time.Now().Add(2 * time.Second)
	for rec.count() == 0 || !rec.last().Mixer.Muted {
		if time.Now().After(deadline) {
			t.Fatal("TUI command was not applied")
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.tuiCtrl.Quit <- ui.QuitMsg{}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after quit")
	}
}

func TestZeroSettingsReachEngines(t *testing.T) {
	cfg, err := config.Load("zerohz", []string{
		"-volume", "0",
		"-ramp", "0s",
		"-target", "0",
		"-warning", "0",
		"-backend", "null",
	})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	h, err := New(testOutput{output.NewNull(output.DefaultFormat)}, fakeFetcher{}, nil, ConfigFrom(cfg, zerolog.Nop()))
	if err != nil {
		t.Fatalf("failed to create host: %v", err)
	}

	for _, s := range cfg.Catalog {
		if v := h.mixer.Volume(s.ID); v != 0 {
			t.Errorf("%s: expected volume 0, got %v", s.ID, v)
		}
	}
	if st := h.timer.Snapshot(); st.TargetSeconds != 0 || st.Mode != timer.Countdown {
		t.Errorf("expected countdown with target 0, got %+v", st)
	}
}

func TestDefaultConfigMatchesRuntimeDefaults(t *testing.T) {
	cfg, err := config.Load("zerohz", []string{"-backend", "null"})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	got := ConfigFrom(cfg, zerolog.Nop())
	want := DefaultConfig()

	if got.DefaultVolume != want.DefaultVolume || got.Ramp != want.Ramp {
		t.Errorf("mixer defaults differ: %v/%v vs %v/%v", got.DefaultVolume, got.Ramp, want.DefaultVolume, want.Ramp)
	}
	if got.TargetSeconds != want.TargetSeconds || got.WarningSeconds != want.WarningSeconds || got.TimerMode != want.TimerMode {
		t.Errorf("timer defaults differ: %+v vs %+v", got, want)
	}
}
