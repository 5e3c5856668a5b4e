// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for the shared playback device and backend selection
package output

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/zerohz/zerohz-go/pkg/audio"
	"github.com/zerohz/zerohz-go/pkg/audio/decode"
	"github.com/zerohz/zerohz-go/pkg/audio/resample"
)

// Output is one shared audio device carrying any number of channels.
// It is created once at startup and closed once at shutdown.
type Output interface {
	// Format returns the device format every buffer is converted to
	Format() audio.Format

	// Decode converts an encoded file into a buffer playable on this device
	Decode(data []byte) (*audio.Buffer, error)

	// CreateChannel wires a new looping source and its gain stage into the output
	CreateChannel(buf *audio.Buffer) (audio.Source, audio.Gain, error)

	// PlayOnce plays buf a single time at the given volume
	PlayOnce(buf *audio.Buffer, volume float64) error

	// Suspend silences the whole device without touching any channel
	Suspend() error

	// Resume restarts a suspended device
	Resume() error

	// Close releases output resources
	Close() error
}

// DefaultFormat is the device format used when none is configured
var DefaultFormat = audio.Format{
	Codec:      "pcm",
	SampleRate: 48000,
	Channels:   2,
	BitDepth:   32,
}

// Open creates the named backend: "oto", "malgo" or "null"
func Open(backend string, format audio.Format, logger zerolog.Logger) (Output, error) {
	if format.SampleRate == 0 {
		format.SampleRate = DefaultFormat.SampleRate
	}
	if format.Channels == 0 {
		format.Channels = DefaultFormat.Channels
	}
	format.Codec = DefaultFormat.Codec
	format.BitDepth = DefaultFormat.BitDepth

	logger = logger.With().Str("component", "output").Str("backend", backend).Logger()

	switch backend {
	case "", "oto":
		return NewOto(format, logger)
	case "malgo":
		return NewMalgo(format, logger)
	case "null":
		return NewNull(format), nil
	default:
		return nil, fmt.Errorf("unknown output backend: %s", backend)
	}
}

// decodeFor decodes data and converts it to the device format
func decodeFor(data []byte, format audio.Format) (*audio.Buffer, error) {
	buf, err := decode.Decode(data)
	if err != nil {
		return nil, err
	}
	return resample.Convert(buf, format.SampleRate, format.Channels), nil
}

// checkBuffer rejects buffers that cannot be played on format
func checkBuffer(buf *audio.Buffer, format audio.Format) error {
	if buf == nil || buf.Frames() == 0 {
		return fmt.Errorf("empty buffer")
	}
	if buf.Format.Channels != format.Channels || buf.Format.SampleRate != format.SampleRate {
		return fmt.Errorf("buffer format %dHz/%dch does not match output %dHz/%dch",
			buf.Format.SampleRate, buf.Format.Channels, format.SampleRate, format.Channels)
	}
	return nil
}
