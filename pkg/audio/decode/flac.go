// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC files frame by frame to float32 samples
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/zerohz/zerohz-go/pkg/audio"
)

// FLACDecoder decodes FLAC audio
type FLACDecoder struct{}

// NewFLAC creates a new FLAC decoder
func NewFLAC() Decoder {
	return &FLACDecoder{}
}

// Decode converts FLAC bytes to a PCM buffer
func (d *FLACDecoder) Decode(data []byte) (*audio.Buffer, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open flac stream: %w", err)
	}

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)
	if channels == 0 {
		return nil, fmt.Errorf("flac stream reports no channels")
	}

	samples := make([]float32, 0, int(info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flac decode error: %w", err)
		}

		// Subframes arrive already decorrelated, one per channel
		blockSize := len(frame.Subframes[0].Samples)
		for i := 0; i < blockSize; i++ {
			for ch := 0; ch < channels && ch < len(frame.Subframes); ch++ {
				samples = append(samples, audio.SampleFromInt(frame.Subframes[ch].Samples[i], bitDepth))
			}
		}
	}

	return &audio.Buffer{
		Format: audio.Format{
			Codec:      "flac",
			SampleRate: int(info.SampleRate),
			Channels:   channels,
			BitDepth:   bitDepth,
		},
		Samples: samples,
	}, nil
}
