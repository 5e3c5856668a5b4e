// ABOUTME: Mixer controller reconciling desired sounds against live channels
// ABOUTME: Handles volumes, master mute and global play/pause of the output
package mixer

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrUnknownSound is returned for ids outside the catalog
	ErrUnknownSound = errors.New("unknown sound")

	// ErrNotLoaded is returned when starting a channel without a buffer
	ErrNotLoaded = errors.New("sound buffer not loaded")

	// ErrInvalidVolume is returned for volumes that cannot be clamped
	ErrInvalidVolume = errors.New("invalid volume")
)

const (
	// DefaultVolume is the starting level of every channel
	DefaultVolume = 0.5

	// DefaultRampTimeConstant smooths every volume and mute change
	DefaultRampTimeConstant = 100 * time.Millisecond
)

// Config holds mixer configuration. Every value is taken literally, so a
// DefaultVolume of 0 starts channels silent; start from DefaultConfig.
type Config struct {
	Catalog          []Sound
	DefaultVolume    float64
	Volumes          map[string]float64
	RampTimeConstant time.Duration
	Logger           zerolog.Logger
}

// DefaultConfig returns a configuration with the default volume and ramp
func DefaultConfig() Config {
	return Config{
		DefaultVolume:    DefaultVolume,
		RampTimeConstant: DefaultRampTimeConstant,
	}
}

// ChannelState is the read-only view of one channel
type ChannelState struct {
	ID      string
	Label   string
	Active  bool
	Volume  float64
	Load    LoadState
	Live    bool
	Audible bool
}

// State is the read-only view of the whole mixer
type State struct {
	Channels []ChannelState
	Muted    bool
	Playing  bool
}

// Mixer owns the desired mixer state and drives the channel graph towards it
type Mixer struct {
	engine  Engine
	catalog []Sound
	known   map[string]bool
	cache   *BufferCache
	graph   *ChannelGraph
	log     zerolog.Logger

	active  map[string]bool
	volumes map[string]float64
	muted   bool
	playing bool

	onChange []func()
}

// New creates a mixer. Transport starts playing with no sound active.
func New(engine Engine, fetcher Fetcher, dispatch Dispatcher, config Config) (*Mixer, error) {
	if math.IsNaN(config.DefaultVolume) {
		return nil, fmt.Errorf("%w: NaN default", ErrInvalidVolume)
	}
	if config.RampTimeConstant < 0 {
		config.RampTimeConstant = 0
	}

	logger := config.Logger.With().Str("component", "mixer").Logger()

	m := &Mixer{
		engine:  engine,
		catalog: config.Catalog,
		known:   make(map[string]bool, len(config.Catalog)),
		log:     logger,
		active:  make(map[string]bool),
		volumes: make(map[string]float64, len(config.Catalog)),
		playing: true,
	}

	for _, s := range config.Catalog {
		if s.ID == "" {
			return nil, fmt.Errorf("sound with empty id")
		}
		if m.known[s.ID] {
			return nil, fmt.Errorf("duplicate sound id %q", s.ID)
		}
		m.known[s.ID] = true

		v := config.DefaultVolume
		if override, ok := config.Volumes[s.ID]; ok {
			v = override
		}
		m.volumes[s.ID] = clamp(v)
	}

	m.cache = NewBufferCache(config.Catalog, fetcher, engine, dispatch, logger)
	m.graph = NewChannelGraph(engine, m.cache, config.RampTimeConstant, logger)
	m.cache.OnLoaded(m.loaded)

	return m, nil
}

// Preload requests every catalog buffer without activating anything
func (m *Mixer) Preload() {
	for _, s := range m.catalog {
		m.cache.EnsureLoaded(s.ID)
	}
}

// OnChange registers fn to run after a buffer load settles
func (m *Mixer) OnChange(fn func()) {
	m.onChange = append(m.onChange, fn)
}

// ToggleSound flips whether id should be heard
func (m *Mixer) ToggleSound(id string) error {
	if !m.known[id] {
		return fmt.Errorf("%w: %s", ErrUnknownSound, id)
	}
	return m.SetActive(id, !m.active[id])
}

// SetActive turns id on or off. Turning the first sound on while the
// transport is paused resumes the transport.
func (m *Mixer) SetActive(id string, on bool) error {
	if !m.known[id] {
		return fmt.Errorf("%w: %s", ErrUnknownSound, id)
	}
	if m.active[id] == on {
		return nil
	}

	wasEmpty := len(m.active) == 0
	if on {
		m.active[id] = true
		m.cache.EnsureLoaded(id)
	} else {
		delete(m.active, id)
	}

	if on && wasEmpty && !m.playing {
		if err := m.SetPlaying(true); err != nil {
			m.log.Warn().Err(err).Msg("failed to auto-resume transport")
		}
	}

	m.reconcile()
	return nil
}

// SetVolume stores v clamped to [0,1] and ramps the channel if it is live
func (m *Mixer) SetVolume(id string, v float64) error {
	if !m.known[id] {
		return fmt.Errorf("%w: %s", ErrUnknownSound, id)
	}
	if math.IsNaN(v) {
		return fmt.Errorf("%w: NaN", ErrInvalidVolume)
	}

	m.volumes[id] = clamp(v)
	m.graph.Ramp(id, m.effectiveVolume(id))
	return nil
}

// Volume returns the stored volume of id, ignoring mute
func (m *Mixer) Volume(id string) float64 {
	return m.volumes[id]
}

// SetMuted ramps every live channel to silence or back to its stored volume
func (m *Mixer) SetMuted(muted bool) {
	if m.muted == muted {
		return
	}
	m.muted = muted

	for _, id := range m.graph.Live() {
		m.graph.Ramp(id, m.effectiveVolume(id))
	}
	m.log.Debug().Bool("muted", muted).Msg("mute changed")
}

// ToggleMute flips master mute
func (m *Mixer) ToggleMute() {
	m.SetMuted(!m.muted)
}

// Muted reports master mute
func (m *Mixer) Muted() bool {
	return m.muted
}

// SetPlaying suspends or resumes the shared output. On error the transport
// state is unchanged.
func (m *Mixer) SetPlaying(playing bool) error {
	if m.playing == playing {
		return nil
	}

	if playing {
		if err := m.engine.Resume(); err != nil {
			return fmt.Errorf("failed to resume output: %w", err)
		}
	} else {
		if err := m.engine.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend output: %w", err)
		}
	}

	m.playing = playing
	m.log.Debug().Bool("playing", playing).Msg("transport changed")

	m.reconcile()
	return nil
}

// TogglePlayPause flips the transport
func (m *Mixer) TogglePlayPause() error {
	return m.SetPlaying(!m.playing)
}

// Playing reports whether the transport is running
func (m *Mixer) Playing() bool {
	return m.playing
}

// Snapshot returns the current read-only view
func (m *Mixer) Snapshot() State {
	st := State{
		Channels: make([]ChannelState, 0, len(m.catalog)),
		Muted:    m.muted,
		Playing:  m.playing,
	}

	for _, s := range m.catalog {
		load := m.cache.State(s.ID)
		active := m.active[s.ID]
		st.Channels = append(st.Channels, ChannelState{
			ID:      s.ID,
			Label:   s.Label,
			Active:  active,
			Volume:  m.volumes[s.ID],
			Load:    load,
			Live:    m.graph.IsLive(s.ID),
			Audible: active && load == LoadReady && m.playing && !m.muted,
		})
	}

	return st
}

// Close stops every live channel
func (m *Mixer) Close() {
	m.graph.StopAll()
}

// reconcile brings live channels in line with active and loaded sounds
func (m *Mixer) reconcile() {
	for _, s := range m.catalog {
		desired := m.active[s.ID] && m.cache.State(s.ID) == LoadReady
		live := m.graph.IsLive(s.ID)

		switch {
		case desired && !live:
			if err := m.graph.Start(s.ID, m.effectiveVolume(s.ID)); err != nil {
				m.log.Warn().Err(err).Str("sound", s.ID).Msg("failed to start channel")
			}
		case !desired && live:
			if err := m.graph.Stop(s.ID); err != nil {
				m.log.Warn().Err(err).Str("sound", s.ID).Msg("failed to stop channel")
			}
		}
	}
}

func (m *Mixer) loaded(id string) {
	m.reconcile()
	for _, fn := range m.onChange {
		fn()
	}
}

func (m *Mixer) effectiveVolume(id string) float64 {
	if m.muted {
		return 0
	}
	return m.volumes[id]
}

func clamp(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
