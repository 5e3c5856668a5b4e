// ABOUTME: Drift-free timer engine with one-shot warning and completion edges
// ABOUTME: Elapsed time is accumulated per running segment, never per tick
package timer

import (
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// ErrNegativeTarget is returned when a countdown target is below zero
var ErrNegativeTarget = errors.New("negative timer target")

const (
	// DefaultPollInterval keeps the displayed second boundary prompt
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultWarningSeconds is the remaining time at which the warning fires
	DefaultWarningSeconds = 300

	// DefaultTargetSeconds is the countdown target before any preset is chosen
	DefaultTargetSeconds = 1500
)

// Scheduler runs fn on the host goroutine every d until stop is called
type Scheduler interface {
	Every(d time.Duration, fn func()) (stop func())
}

// Config holds timer configuration. TargetSeconds and WarningSeconds are
// taken literally; start from DefaultConfig.
type Config struct {
	Clock          clockwork.Clock
	Scheduler      Scheduler
	PollInterval   time.Duration
	Mode           Mode
	TargetSeconds  int
	WarningSeconds int
	OnWarning      func()
	OnComplete     func()
	Logger         zerolog.Logger
}

// DefaultConfig returns a configuration with the default poll interval,
// target and warning threshold
func DefaultConfig() Config {
	return Config{
		PollInterval:   DefaultPollInterval,
		TargetSeconds:  DefaultTargetSeconds,
		WarningSeconds: DefaultWarningSeconds,
	}
}

// State is the read-only view of the timer
type State struct {
	Mode            Mode
	TargetSeconds   int
	CurrentSeconds  int
	Running         bool
	Paused          bool
	StartedAt       time.Time
	CompletedAt     time.Time
	Progress        float64
	Warning         bool
	Completed       bool
	Formatted       string
	FormattedTarget string
}

// Engine is a stopwatch/countdown timer. All methods must be called from
// the host goroutine that also runs the scheduler callbacks.
type Engine struct {
	clock      clockwork.Clock
	scheduler  Scheduler
	interval   time.Duration
	warnAt     int
	onWarning  func()
	onComplete func()
	log        zerolog.Logger

	mode         Mode
	target       int
	running      bool
	paused       bool
	startedAt    time.Time
	completedAt  time.Time
	accumulated  time.Duration
	segmentStart time.Time

	warned    bool
	completed bool

	stopPoll func()
}

// New creates an idle timer
func New(config Config) *Engine {
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.WarningSeconds < 0 {
		config.WarningSeconds = 0
	}
	if config.TargetSeconds < 0 {
		config.TargetSeconds = 0
	}

	return &Engine{
		clock:      config.Clock,
		scheduler:  config.Scheduler,
		interval:   config.PollInterval,
		warnAt:     config.WarningSeconds,
		onWarning:  config.OnWarning,
		onComplete: config.OnComplete,
		log:        config.Logger.With().Str("component", "timer").Logger(),
		mode:       config.Mode,
		target:     config.TargetSeconds,
	}
}

// Start begins a run. Starting a paused timer resumes it; starting a
// completed countdown begins a fresh full-length run.
func (e *Engine) Start() {
	if e.running {
		e.Resume()
		return
	}

	if !e.completedAt.IsZero() {
		e.accumulated = 0
		e.startedAt = time.Time{}
		e.completedAt = time.Time{}
		e.clearLatches()
	}

	now := e.clock.Now()
	e.running = true
	e.paused = false
	e.segmentStart = now
	if e.startedAt.IsZero() {
		e.startedAt = now
	}

	e.log.Debug().Str("mode", e.mode.String()).Int("target", e.target).Msg("timer started")

	e.startPolling()
	e.Tick()
}

// Pause closes the current segment. A countdown that ran out since the
// last poll completes instead of pausing.
func (e *Engine) Pause() {
	if !e.running || e.paused {
		return
	}

	e.Tick()
	if !e.running {
		return
	}

	e.closeSegment()
	e.paused = true
	e.stopPolling()

	e.log.Debug().Dur("elapsed", e.accumulated).Msg("timer paused")
}

// Resume opens a new segment after Pause
func (e *Engine) Resume() {
	if !e.running || !e.paused {
		return
	}

	e.paused = false
	e.segmentStart = e.clock.Now()

	e.log.Debug().Dur("elapsed", e.accumulated).Msg("timer resumed")

	e.startPolling()
	e.Tick()
}

// Reset returns to idle and clears every latch
func (e *Engine) Reset() {
	e.stopPolling()

	e.running = false
	e.paused = false
	e.accumulated = 0
	e.segmentStart = time.Time{}
	e.startedAt = time.Time{}
	e.completedAt = time.Time{}
	e.clearLatches()
}

// SetTarget changes the countdown target. While the timer is not running
// the display is re-based onto the new target.
func (e *Engine) SetTarget(seconds int) error {
	if seconds < 0 {
		return ErrNegativeTarget
	}

	e.target = seconds
	if !e.running {
		e.accumulated = 0
		e.completedAt = time.Time{}
		e.clearLatches()
		return nil
	}

	e.Tick()
	return nil
}

// SetPreset stops any run, switches to countdown and applies the preset's
// target
func (e *Engine) SetPreset(p Preset) error {
	if p.Seconds < 0 {
		return ErrNegativeTarget
	}
	e.SetMode(Countdown)
	e.Reset()
	return e.SetTarget(p.Seconds)
}

// SetMode switches counting direction with a full timing reset
func (e *Engine) SetMode(m Mode) {
	if e.mode == m {
		return
	}
	e.mode = m
	e.Reset()
}

// ToggleMode flips between stopwatch and countdown
func (e *Engine) ToggleMode() {
	if e.mode == Stopwatch {
		e.SetMode(Countdown)
	} else {
		e.SetMode(Stopwatch)
	}
}

// Tick re-derives the display from elapsed time and fires pending edges
func (e *Engine) Tick() {
	if !e.running || e.paused {
		return
	}

	if e.mode == Countdown && e.currentSeconds() == 0 && e.completedAt.IsZero() {
		e.closeSegment()
		e.running = false
		e.completedAt = e.clock.Now()
		e.stopPolling()

		e.log.Info().Int("target", e.target).Msg("countdown completed")
	}

	if e.isWarning() && !e.warned {
		e.warned = true
		if e.onWarning != nil {
			e.onWarning()
		}
	}

	if e.isCompleted() && !e.completed {
		e.completed = true
		if e.onComplete != nil {
			e.onComplete()
		}
	}
}

// Polling reports whether a poll interval is currently scheduled
func (e *Engine) Polling() bool {
	return e.stopPoll != nil
}

// Snapshot returns the current read-only view
func (e *Engine) Snapshot() State {
	cur := e.currentSeconds()
	return State{
		Mode:            e.mode,
		TargetSeconds:   e.target,
		CurrentSeconds:  cur,
		Running:         e.running,
		Paused:          e.paused,
		StartedAt:       e.startedAt,
		CompletedAt:     e.completedAt,
		Progress:        e.progress(cur),
		Warning:         e.isWarning(),
		Completed:       e.isCompleted(),
		Formatted:       FormatClock(cur),
		FormattedTarget: FormatClock(e.target),
	}
}

// Close cancels polling
func (e *Engine) Close() {
	e.stopPolling()
}

func (e *Engine) elapsed() time.Duration {
	if e.segmentStart.IsZero() {
		return e.accumulated
	}
	return e.accumulated + e.clock.Since(e.segmentStart)
}

func (e *Engine) closeSegment() {
	if e.segmentStart.IsZero() {
		return
	}
	e.accumulated += e.clock.Since(e.segmentStart)
	e.segmentStart = time.Time{}
}

func (e *Engine) currentSeconds() int {
	elapsed := int(e.elapsed() / time.Second)
	if e.mode == Stopwatch {
		return elapsed
	}
	if remaining := e.target - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

func (e *Engine) progress(cur int) float64 {
	if e.mode != Countdown || e.target == 0 {
		return 0
	}
	return float64(e.target-cur) / float64(e.target)
}

func (e *Engine) isWarning() bool {
	if e.mode != Countdown || !e.running {
		return false
	}
	cur := e.currentSeconds()
	return cur > 0 && cur <= e.warnAt
}

func (e *Engine) isCompleted() bool {
	return e.mode == Countdown && e.currentSeconds() == 0 && !e.completedAt.IsZero()
}

func (e *Engine) clearLatches() {
	e.warned = false
	e.completed = false
}

func (e *Engine) startPolling() {
	if e.stopPoll != nil || e.scheduler == nil {
		return
	}
	e.stopPoll = e.scheduler.Every(e.interval, e.Tick)
}

func (e *Engine) stopPolling() {
	if e.stopPoll == nil {
		return
	}
	e.stopPoll()
	e.stopPoll = nil
}
