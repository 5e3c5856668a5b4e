// ABOUTME: Software mixing of concurrent voices into one stream
// ABOUTME: Sums voices, soft-limits the result and packs float32 output bytes
package output

import (
	"encoding/binary"
	"math"
	"sync"
)

// voiceSet is the collection of voices summed into one device stream.
// The host adds and removes voices while the audio thread renders.
type voiceSet struct {
	mu      sync.Mutex
	voices  []*voice
	scratch []float32
}

func (s *voiceSet) add(v *voice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voices = append(s.voices, v)
}

func (s *voiceSet) remove(v *voice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.voices {
		if existing == v {
			s.voices = append(s.voices[:i], s.voices[i+1:]...)
			return
		}
	}
}

func (s *voiceSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voices)
}

// render mixes every voice into out and drops finished one-shots
func (s *voiceSet) render(out []float32) {
	clear(out)

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.scratch) < len(out) {
		s.scratch = make([]float32, len(out))
	}
	scratch := s.scratch[:len(out)]

	remaining := s.voices[:0]
	for _, v := range s.voices {
		v.read(scratch)
		for i, sample := range scratch {
			out[i] += sample
		}
		if !v.done {
			remaining = append(remaining, v)
		}
	}
	for i := len(remaining); i < len(s.voices); i++ {
		s.voices[i] = nil
	}
	s.voices = remaining

	softClip(out)
}

// softClip applies a gentle limiter above 0.8 before hard clipping
func softClip(samples []float32) {
	for i, v := range samples {
		if v > 0.8 {
			v = 0.8 + 0.2*(1.0-1.0/(1.0+(v-0.8)*5.0))
		} else if v < -0.8 {
			v = -0.8 - 0.2*(1.0-1.0/(1.0+(-v-0.8)*5.0))
		}

		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		samples[i] = v
	}
}

// putFloat32LE packs samples as little-endian float32 bytes
func putFloat32LE(out []byte, samples []float32) {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
}
