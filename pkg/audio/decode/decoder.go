// ABOUTME: Decoder interface definition and container sniffing
// ABOUTME: Picks the right codec for a whole encoded file and decodes it to PCM
package decode

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/zerohz/zerohz-go/pkg/audio"
)

// ErrUnsupportedFormat is returned when no decoder recognises the data
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decoder decodes a complete encoded file to PCM
type Decoder interface {
	// Decode converts encoded audio data to a PCM buffer
	Decode(data []byte) (*audio.Buffer, error)
}

// New returns the decoder for a codec name
func New(codec string) (Decoder, error) {
	switch codec {
	case "mp3":
		return NewMP3(), nil
	case "flac":
		return NewFLAC(), nil
	case "opus":
		return NewOpus(), nil
	case "wav":
		return NewWAV(), nil
	default:
		return nil, fmt.Errorf("%w: codec %q", ErrUnsupportedFormat, codec)
	}
}

// Decode sniffs the container and decodes data with the matching decoder
func Decode(data []byte) (*audio.Buffer, error) {
	codec := Sniff(data)
	if codec == "" {
		return nil, ErrUnsupportedFormat
	}

	dec, err := New(codec)
	if err != nil {
		return nil, err
	}

	buf, err := dec.Decode(data)
	if err != nil {
		return nil, err
	}
	if buf.Frames() == 0 {
		return nil, fmt.Errorf("%s: no audio frames decoded", codec)
	}
	return buf, nil
}

// Sniff identifies the codec from the leading bytes, or returns ""
func Sniff(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("fLaC")):
		return "flac"
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return "wav"
	case bytes.HasPrefix(data, []byte("OggS")):
		// Only Opus is decoded out of Ogg; the head packet sits in the first page
		head := data
		if len(head) > 128 {
			head = head[:128]
		}
		if bytes.Contains(head, []byte("OpusHead")) {
			return "opus"
		}
		return ""
	case bytes.HasPrefix(data, []byte("ID3")):
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG audio frame sync
		return "mp3"
	}
	return ""
}
