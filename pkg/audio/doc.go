// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Buffer and the Source/Gain playback node interfaces
// Package audio provides the fundamental audio types shared by the decoders,
// the output backends and the mixer.
//
// This package defines:
//   - Format: Describes a PCM layout (sample rate, channels, bit depth)
//   - Buffer: Decoded, immutable, interleaved float32 PCM
//   - Source and Gain: the two halves of one playback channel
//
// It also provides sample conversion helpers between integer PCM and float32.
//
// Example:
//
//	buf := &audio.Buffer{
//	    Format:  audio.Format{SampleRate: 48000, Channels: 2},
//	    Samples: samples,
//	}
//	fmt.Println(buf.Duration())
package audio
