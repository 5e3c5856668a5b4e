// ABOUTME: Ogg Opus audio decoder
// ABOUTME: Decodes .opus files to float32 samples via libopusfile
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/zerohz/zerohz-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// Opus always decodes at 48kHz
const opusSampleRate = 48000

// maxOpusFrame is 120ms at 48kHz, the longest Opus packet
const maxOpusFrame = 5760

// OpusDecoder decodes Ogg Opus audio
type OpusDecoder struct{}

// NewOpus creates a new Opus decoder
func NewOpus() Decoder {
	return &OpusDecoder{}
}

// Decode converts Ogg Opus bytes to a PCM buffer
func (d *OpusDecoder) Decode(data []byte) (*audio.Buffer, error) {
	channels, err := opusChannels(data)
	if err != nil {
		return nil, err
	}

	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create opus stream: %w", err)
	}
	defer stream.Close()

	pcm := make([]float32, maxOpusFrame*channels)
	var samples []float32
	for {
		n, err := stream.ReadFloat32(pcm)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("opus decode failed: %w", err)
		}
		if n == 0 {
			break
		}
		// n counts samples per channel
		samples = append(samples, pcm[:n*channels]...)
	}

	return &audio.Buffer{
		Format: audio.Format{
			Codec:      "opus",
			SampleRate: opusSampleRate,
			Channels:   channels,
			BitDepth:   16,
		},
		Samples: samples,
	}, nil
}

// opusChannels reads the channel count from the OpusHead packet
func opusChannels(data []byte) (int, error) {
	idx := bytes.Index(data, []byte("OpusHead"))
	// magic(8) + version(1) + channel count(1)
	if idx < 0 || len(data) < idx+10 {
		return 0, fmt.Errorf("opus: missing OpusHead packet")
	}
	channels := int(data[idx+9])
	if channels < 1 || channels > 2 {
		return 0, fmt.Errorf("opus: unsupported channel count %d", channels)
	}
	return channels, nil
}
