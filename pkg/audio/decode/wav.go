// ABOUTME: WAV audio decoder
// ABOUTME: Decodes RIFF/WAVE PCM files to float32 samples
package decode

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"
	"github.com/zerohz/zerohz-go/pkg/audio"
)

// WAVDecoder decodes integer PCM WAV audio
type WAVDecoder struct{}

// NewWAV creates a new WAV decoder
func NewWAV() Decoder {
	return &WAVDecoder{}
}

// Decode converts WAV bytes to a PCM buffer
func (d *WAVDecoder) Decode(data []byte) (*audio.Buffer, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file")
	}

	pcm, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav decode error: %w", err)
	}

	bitDepth := int(decoder.BitDepth)
	samples := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		// 8-bit WAV is unsigned
		if bitDepth == 8 {
			v -= 128
		}
		samples[i] = audio.SampleFromInt(int32(v), bitDepth)
	}

	return &audio.Buffer{
		Format: audio.Format{
			Codec:      "wav",
			SampleRate: pcm.Format.SampleRate,
			Channels:   pcm.Format.NumChannels,
			BitDepth:   bitDepth,
		},
		Samples: samples,
	}, nil
}
