// ABOUTME: Synthesised timer notification chimes
// ABOUTME: Sine-tone warning beeps and completion arpeggio played one-shot
package chime

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/zerohz/zerohz-go/pkg/audio"
)

// Sound identifies a chime
type Sound int

const (
	Warning Sound = iota
	Complete
)

func (s Sound) String() string {
	switch s {
	case Warning:
		return "warning"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

const (
	// WarningVolume is the default warning level
	WarningVolume = 0.5

	// CompleteVolume is the default completion level
	CompleteVolume = 0.7

	// floorGain is where every note's exponential decay ends
	floorGain = 0.01
)

// Note is one decaying sine tone
type Note struct {
	Freq  float64
	Start time.Duration
	End   time.Duration
	Gain  float64
}

// Notes returns the tones making up s at the given volume
func Notes(s Sound, volume float64) []Note {
	switch s {
	case Warning:
		// Two A4 beeps
		return []Note{
			{Freq: 440, Start: 0, End: 400 * time.Millisecond, Gain: volume * 0.4},
			{Freq: 440, Start: 200 * time.Millisecond, End: 500 * time.Millisecond, Gain: volume * 0.4},
		}
	case Complete:
		// Rising C5, G5, C6
		return []Note{
			{Freq: 523.25, Start: 0, End: 300 * time.Millisecond, Gain: volume * 0.5},
			{Freq: 783.99, Start: 150 * time.Millisecond, End: 500 * time.Millisecond, Gain: volume * 0.5},
			{Freq: 1046.5, Start: 300 * time.Millisecond, End: 800 * time.Millisecond, Gain: volume * 0.6},
		}
	default:
		return nil
	}
}

// Synthesize renders notes into a buffer at format. Each note starts at its
// gain and decays exponentially to floorGain by its end.
func Synthesize(notes []Note, format audio.Format) *audio.Buffer {
	var length time.Duration
	for _, n := range notes {
		if n.End > length {
			length = n.End
		}
	}

	rate := float64(format.SampleRate)
	frames := int(length.Seconds() * rate)
	samples := make([]float32, frames*format.Channels)

	for _, n := range notes {
		first := int(n.Start.Seconds() * rate)
		last := int(n.End.Seconds() * rate)
		if last > frames {
			last = frames
		}
		if n.Gain <= 0 || last <= first {
			continue
		}

		span := float64(last - first)
		ratio := floorGain / n.Gain
		for f := first; f < last; f++ {
			pos := float64(f - first)
			gain := n.Gain * math.Pow(ratio, pos/span)
			v := float32(gain * math.Sin(2*math.Pi*n.Freq*pos/rate))
			for ch := 0; ch < format.Channels; ch++ {
				samples[f*format.Channels+ch] += v
			}
		}
	}

	for i, s := range samples {
		samples[i] = audio.Clip(s)
	}

	return &audio.Buffer{Format: format, Samples: samples}
}

// Sink plays a buffer a single time
type Sink interface {
	PlayOnce(buf *audio.Buffer, volume float64) error
}

// Config holds chime configuration
type Config struct {
	WarningVolume  float64
	CompleteVolume float64
	Logger         zerolog.Logger
}

// Chimes holds pre-rendered chimes for one output
type Chimes struct {
	sink    Sink
	buffers map[Sound]*audio.Buffer
	log     zerolog.Logger
}

// New renders both chimes at the sink's format
func New(sink Sink, format audio.Format, config Config) *Chimes {
	if config.WarningVolume == 0 {
		config.WarningVolume = WarningVolume
	}
	if config.CompleteVolume == 0 {
		config.CompleteVolume = CompleteVolume
	}

	return &Chimes{
		sink: sink,
		buffers: map[Sound]*audio.Buffer{
			Warning:  Synthesize(Notes(Warning, config.WarningVolume), format),
			Complete: Synthesize(Notes(Complete, config.CompleteVolume), format),
		},
		log: config.Logger.With().Str("component", "chime").Logger(),
	}
}

// Play starts s on the sink. Failures are logged, never returned.
func (c *Chimes) Play(s Sound) {
	buf, ok := c.buffers[s]
	if !ok {
		return
	}

	if err := c.sink.PlayOnce(buf, 1); err != nil {
		c.log.Warn().Err(err).Str("chime", s.String()).Msg("failed to play chime")
		return
	}
	c.log.Debug().Str("chime", s.String()).Msg("chime played")
}
