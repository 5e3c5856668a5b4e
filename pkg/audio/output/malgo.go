// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio via malgo with a callback that mixes every live voice
package output

import (
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
	"github.com/zerohz/zerohz-go/pkg/audio"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	format   audio.Format
	log      zerolog.Logger

	voices voiceSet

	// Callback thread only
	mixBuf []float32
}

// NewMalgo initializes the playback device and starts it
func NewMalgo(format audio.Format, logger zerolog.Logger) (*Malgo, error) {
	m := &Malgo{
		format: format,
		log:    logger,
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.malgoCtx = ctx

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(format.Channels)
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	onSamples := func(pOutputSample, pInputSamples []byte, frameCount uint32) {
		m.dataCallback(pOutputSample, frameCount)
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		m.freeContext()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		m.freeContext()
		return nil, fmt.Errorf("failed to start device: %w", err)
	}
	m.device = device

	logger.Info().
		Int("sample_rate", format.SampleRate).
		Int("channels", format.Channels).
		Msg("audio output initialized (malgo/F32)")

	return m, nil
}

// dataCallback is called by malgo to fill the audio output buffer
func (m *Malgo) dataCallback(pOutput []byte, frameCount uint32) {
	n := int(frameCount) * m.format.Channels
	if len(m.mixBuf) < n {
		m.mixBuf = make([]float32, n)
	}
	samples := m.mixBuf[:n]

	m.voices.render(samples)
	putFloat32LE(pOutput, samples)
}

// Format returns the device format
func (m *Malgo) Format() audio.Format {
	return m.format
}

// Decode converts an encoded file into a buffer at the device format
func (m *Malgo) Decode(data []byte) (*audio.Buffer, error) {
	return decodeFor(data, m.format)
}

// CreateChannel creates a voice that joins the mix when started
func (m *Malgo) CreateChannel(buf *audio.Buffer) (audio.Source, audio.Gain, error) {
	if err := checkBuffer(buf, m.format); err != nil {
		return nil, nil, err
	}

	gain := newGainStage(m.format.SampleRate)
	return &mixChannel{set: &m.voices, voice: newVoice(buf, gain, false)}, gain, nil
}

// PlayOnce adds a one-shot voice that leaves the mix when it ends
func (m *Malgo) PlayOnce(buf *audio.Buffer, volume float64) error {
	if err := checkBuffer(buf, m.format); err != nil {
		return err
	}

	gain := newGainStage(m.format.SampleRate)
	gain.Set(volume)
	m.voices.add(newVoice(buf, gain, true))
	return nil
}

// Suspend stops the device; voices keep their positions
func (m *Malgo) Suspend() error {
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

// Resume starts the device again
func (m *Malgo) Resume() error {
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

// Close releases output resources
func (m *Malgo) Close() error {
	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
	m.freeContext()
	return nil
}

func (m *Malgo) freeContext() {
	if m.malgoCtx == nil {
		return
	}
	if err := m.malgoCtx.Uninit(); err != nil {
		m.log.Warn().Err(err).Msg("failed to uninit malgo context")
	}
	m.malgoCtx.Free()
	m.malgoCtx = nil
}

// mixChannel is the Source half of a channel mixed in software
type mixChannel struct {
	set     *voiceSet
	voice   *voice
	started bool
	stopped bool
}

func (c *mixChannel) Start() error {
	if c.stopped {
		return errChannelStopped
	}
	if c.started {
		return nil
	}
	c.started = true
	c.set.add(c.voice)
	return nil
}

func (c *mixChannel) Stop() error {
	if c.stopped {
		return nil
	}
	c.stopped = true
	c.set.remove(c.voice)
	return nil
}
