// ABOUTME: Host application orchestration
// ABOUTME: Owns the host loop and coordinates mixer, timer, chimes and front ends
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/zerohz/zerohz-go/internal/chime"
	"github.com/zerohz/zerohz-go/internal/config"
	"github.com/zerohz/zerohz-go/internal/control"
	"github.com/zerohz/zerohz-go/internal/discovery"
	"github.com/zerohz/zerohz-go/internal/loop"
	"github.com/zerohz/zerohz-go/internal/remote"
	"github.com/zerohz/zerohz-go/internal/ui"
	"github.com/zerohz/zerohz-go/internal/version"
	"github.com/zerohz/zerohz-go/pkg/audio/output"
	"github.com/zerohz/zerohz-go/pkg/mixer"
	"github.com/zerohz/zerohz-go/pkg/timer"
)

// Config holds host configuration
type Config struct {
	Name string

	// Mixer
	Catalog       []mixer.Sound
	Volumes       map[string]float64
	DefaultVolume float64
	Ramp          time.Duration
	Preload       bool

	// Timer
	TimerMode      timer.Mode
	TargetSeconds  int
	WarningSeconds int
	Chimes         bool

	// Remote control; empty RemoteAddr disables it
	RemoteAddr string
	Advertise  bool

	Logger zerolog.Logger
}

// DefaultConfig returns a host configuration with the mixer and timer defaults
func DefaultConfig() Config {
	mc := mixer.DefaultConfig()
	tc := timer.DefaultConfig()
	return Config{
		DefaultVolume:  mc.DefaultVolume,
		Ramp:           mc.RampTimeConstant,
		TimerMode:      timer.Countdown,
		TargetSeconds:  tc.TargetSeconds,
		WarningSeconds: tc.WarningSeconds,
	}
}

// ConfigFrom maps loaded runtime settings onto a host configuration. Values
// are copied as given; defaults were already applied by config.Default.
func ConfigFrom(cfg config.Config, logger zerolog.Logger) Config {
	return Config{
		Name:           cfg.Name,
		Catalog:        cfg.Catalog,
		Volumes:        cfg.Volumes,
		DefaultVolume:  cfg.DefaultVolume,
		Ramp:           cfg.Ramp,
		TimerMode:      cfg.TimerMode(),
		TargetSeconds:  cfg.TargetSeconds,
		WarningSeconds: cfg.WarningSeconds,
		Chimes:         cfg.Chimes,
		RemoteAddr:     cfg.RemoteAddr,
		Advertise:      cfg.Advertise,
		Logger:         logger,
	}
}

// Frontend renders snapshots. Publish is called on the host loop and must
// not block.
type Frontend interface {
	Publish(snap control.Snapshot)
}

// Host represents the running application
type Host struct {
	config Config
	log    zerolog.Logger

	loop    *loop.Loop
	output  output.Output
	mixer   *mixer.Mixer
	timer   *timer.Engine
	control *control.Controller
	chimes  *chime.Chimes

	remote    *remote.Server
	discovery *discovery.Manager

	tui       *tuiFrontend
	tuiCtrl   *ui.Control
	frontends []Frontend

	// Host loop only
	lastTimer timer.State
}

// New wires every component around out. A nil clock uses the real clock.
func New(out output.Output, fetcher mixer.Fetcher, clock clockwork.Clock, config Config) (*Host, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.Name == "" {
		config.Name = version.Product
	}

	h := &Host{
		config: config,
		log:    config.Logger.With().Str("component", "host").Logger(),
		loop:   loop.New(clock),
		output: out,
	}

	m, err := mixer.New(out, fetcher, h.loop, mixer.Config{
		Catalog:          config.Catalog,
		DefaultVolume:    config.DefaultVolume,
		Volumes:          config.Volumes,
		RampTimeConstant: config.Ramp,
		Logger:           config.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mixer: %w", err)
	}
	h.mixer = m
	h.mixer.OnChange(h.publish)

	h.timer = timer.New(timer.Config{
		Clock:          clock,
		Scheduler:      h,
		Mode:           config.TimerMode,
		TargetSeconds:  config.TargetSeconds,
		WarningSeconds: config.WarningSeconds,
		OnWarning:      h.onWarning,
		OnComplete:     h.onComplete,
		Logger:         config.Logger,
	})

	h.control = control.New(h.mixer, h.timer)

	if config.Chimes {
		h.chimes = chime.New(out, out.Format(), chime.Config{Logger: config.Logger})
	}

	if config.RemoteAddr != "" {
		h.remote = remote.NewServer(remote.Config{
			Addr:      config.RemoteAddr,
			Name:      config.Name,
			Version:   version.Version,
			OnCommand: h.remoteCommand,
			Logger:    config.Logger,
		})
		h.frontends = append(h.frontends, h.remote)
	}

	return h, nil
}

// AddFrontend registers f to receive every published snapshot. Call before Run.
func (h *Host) AddFrontend(f Frontend) {
	h.frontends = append(h.frontends, f)
}

// AttachTUI connects a bubbletea program and its control channels. Call
// before Run; a quit from the TUI ends Run.
func (h *Host) AttachTUI(prog *tea.Program, ctrl *ui.Control) {
	h.tui = &tuiFrontend{prog: prog, pending: make(chan control.Snapshot, 1)}
	h.tuiCtrl = ctrl
	h.frontends = append(h.frontends, h.tui)
}

// Listen binds the remote control endpoint so address errors surface
// before Run. It is a no-op without a remote.
func (h *Host) Listen() error {
	if h.remote == nil || h.remote.Port() != 0 {
		return nil
	}
	return h.remote.Listen()
}

// RemotePort returns the bound remote port, or 0
func (h *Host) RemotePort() int {
	if h.remote == nil {
		return 0
	}
	return h.remote.Port()
}

// Submit queues cmd for the host loop. onErr, when set, receives a failure
// on the host loop.
func (h *Host) Submit(cmd control.Command, onErr func(error)) {
	h.loop.Post(func() {
		if err := h.control.Apply(cmd); err != nil {
			h.log.Warn().Err(err).Str("command", cmd.Type).Msg("command failed")
			if onErr != nil {
				onErr(err)
			}
		}
		h.publish()
	})
}

// Every implements timer.Scheduler on the host loop and publishes when the
// timer's view changes
func (h *Host) Every(d time.Duration, fn func()) (stop func()) {
	return h.loop.Every(d, func() {
		fn()
		h.publishIfTimerChanged()
	})
}

// Run serves the host loop until ctx is cancelled or the TUI quits
func (h *Host) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	if h.remote != nil {
		if err := h.Listen(); err != nil {
			return err
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := h.remote.Serve(ctx); err != nil {
				h.log.Error().Err(err).Msg("remote control failed")
			}
		}()

		if h.config.Advertise {
			h.discovery = discovery.NewManager(discovery.Config{
				ServiceName: h.config.Name,
				Port:        h.remote.Port(),
				Version:     version.Version,
				Logger:      h.config.Logger,
			})
			if err := h.discovery.Advertise(); err != nil {
				h.log.Warn().Err(err).Msg("failed to start mDNS advertisement")
			}
		}
	}

	if h.tuiCtrl != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.handleTUI(ctx, cancel)
		}()
	}
	if h.tui != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.tui.forward(ctx)
		}()
	}

	h.loop.Post(func() {
		if h.config.Preload {
			h.mixer.Preload()
		}
		h.publish()
	})

	h.log.Info().
		Str("name", h.config.Name).
		Int("sounds", len(h.config.Catalog)).
		Str("timer_mode", h.config.TimerMode.String()).
		Msg("host started")

	err := h.loop.Run(ctx)

	h.shutdown()
	wg.Wait()

	h.log.Info().Msg("host stopped")

	if ctx.Err() != nil {
		return nil
	}
	return err
}

// shutdown stops polling and every live channel. The output itself belongs
// to the caller.
func (h *Host) shutdown() {
	h.timer.Close()
	h.mixer.Close()
	if h.discovery != nil {
		h.discovery.Stop()
	}
}

// handleTUI forwards TUI commands to the loop and ends the run on quit
func (h *Host) handleTUI(ctx context.Context, cancel context.CancelFunc) {
	for {
		select {
		case cmd := <-h.tuiCtrl.Commands:
			h.Submit(cmd, h.reportTUIError)
		case <-h.tuiCtrl.Quit:
			h.log.Info().Msg("received quit signal from TUI")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

// reportTUIError shows a failed command in the TUI
func (h *Host) reportTUIError(err error) {
	if h.tui == nil {
		return
	}
	go h.tui.prog.Send(ui.ErrorMsg{Err: err})
}

// remoteCommand runs on a connection goroutine
func (h *Host) remoteCommand(clientID string, cmd control.Command) {
	h.Submit(cmd, func(err error) {
		h.remote.SendError(clientID, cmd, err)
	})
}

// publish sends the current snapshot to every front end
func (h *Host) publish() {
	snap := h.control.Snapshot()
	h.lastTimer = snap.Timer
	for _, f := range h.frontends {
		f.Publish(snap)
	}
}

// publishIfTimerChanged avoids republishing on polls within one second
func (h *Host) publishIfTimerChanged() {
	if h.timer.Snapshot() == h.lastTimer {
		return
	}
	h.publish()
}

func (h *Host) onWarning() {
	h.log.Info().Int("remaining", h.timer.Snapshot().CurrentSeconds).Msg("timer warning")
	if h.chimes != nil {
		h.chimes.Play(chime.Warning)
	}
}

func (h *Host) onComplete() {
	h.log.Info().Msg("timer complete")
	if h.chimes != nil {
		h.chimes.Play(chime.Complete)
	}
}

// tuiFrontend forwards snapshots into a bubbletea program. Only the newest
// unsent snapshot is kept so a slow program never blocks the host loop.
type tuiFrontend struct {
	prog    *tea.Program
	pending chan control.Snapshot
}

// Publish replaces any unsent snapshot; called only from the host loop
func (f *tuiFrontend) Publish(snap control.Snapshot) {
	select {
	case <-f.pending:
	default:
	}
	f.pending <- snap
}

func (f *tuiFrontend) forward(ctx context.Context) {
	for {
		select {
		case snap := <-f.pending:
			f.prog.Send(ui.StateMsg{Snapshot: snap})
		case <-ctx.Done():
			return
		}
	}
}
