// ABOUTME: Oto-based audio output implementation
// ABOUTME: One oto player per channel, with software gain applied before oto
package output

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"
	"github.com/zerohz/zerohz-go/pkg/audio"
)

var errChannelStopped = errors.New("channel already stopped")

// Oto output implementation using oto library
type Oto struct {
	otoCtx *oto.Context
	format audio.Format
	log    zerolog.Logger
}

// NewOto creates the oto context. oto only allows one context per process,
// so this must be called once.
func NewOto(format audio.Format, logger zerolog.Logger) (*Oto, error) {
	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatFloat32LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	logger.Info().
		Int("sample_rate", format.SampleRate).
		Int("channels", format.Channels).
		Msg("audio output initialized")

	return &Oto{
		otoCtx: ctx,
		format: format,
		log:    logger,
	}, nil
}

// Format returns the device format
func (o *Oto) Format() audio.Format {
	return o.format
}

// Decode converts an encoded file into a buffer at the device format
func (o *Oto) Decode(data []byte) (*audio.Buffer, error) {
	return decodeFor(data, o.format)
}

// CreateChannel creates a paused oto player looping buf through a gain stage
func (o *Oto) CreateChannel(buf *audio.Buffer) (audio.Source, audio.Gain, error) {
	if err := checkBuffer(buf, o.format); err != nil {
		return nil, nil, err
	}

	gain := newGainStage(o.format.SampleRate)
	v := newVoice(buf, gain, false)
	player := o.otoCtx.NewPlayer(&otoStream{voice: v, channels: o.format.Channels})

	return &otoChannel{player: player}, gain, nil
}

// PlayOnce plays buf to the end and releases its player
func (o *Oto) PlayOnce(buf *audio.Buffer, volume float64) error {
	if err := checkBuffer(buf, o.format); err != nil {
		return err
	}

	gain := newGainStage(o.format.SampleRate)
	gain.Set(volume)
	player := o.otoCtx.NewPlayer(&otoStream{voice: newVoice(buf, gain, true), channels: o.format.Channels})
	player.Play()

	go func() {
		for player.IsPlaying() {
			time.Sleep(50 * time.Millisecond)
		}
		if err := player.Close(); err != nil {
			o.log.Warn().Err(err).Msg("failed to close one-shot player")
		}
	}()

	return nil
}

// Suspend pauses the whole oto context
func (o *Oto) Suspend() error {
	if err := o.otoCtx.Suspend(); err != nil {
		return fmt.Errorf("failed to suspend oto context: %w", err)
	}
	return nil
}

// Resume resumes the oto context
func (o *Oto) Resume() error {
	if err := o.otoCtx.Resume(); err != nil {
		return fmt.Errorf("failed to resume oto context: %w", err)
	}
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	return o.otoCtx.Suspend()
}

// otoChannel is the Source half of one oto-backed channel
type otoChannel struct {
	player  *oto.Player
	started bool
	stopped bool
}

func (c *otoChannel) Start() error {
	if c.stopped {
		return errChannelStopped
	}
	if c.started {
		return nil
	}
	c.started = true
	c.player.Play()
	return nil
}

func (c *otoChannel) Stop() error {
	if c.stopped {
		return nil
	}
	c.stopped = true
	c.player.Pause()
	return c.player.Close()
}

// otoStream adapts a voice to the byte stream oto pulls from
type otoStream struct {
	voice    *voice
	channels int
	scratch  []float32
}

func (s *otoStream) Read(p []byte) (int, error) {
	if s.voice.done {
		return 0, io.EOF
	}

	frameBytes := 4 * s.channels
	n := (len(p) / frameBytes) * s.channels
	if n == 0 {
		return 0, nil
	}

	if len(s.scratch) < n {
		s.scratch = make([]float32, n)
	}
	samples := s.scratch[:n]
	s.voice.read(samples)
	putFloat32LE(p, samples)

	return n * 4, nil
}
