// ABOUTME: Audio decoder package for whole-file decoding
// ABOUTME: Provides Decoder interface, container sniffing and MP3, FLAC, Opus, WAV decoders
// Package decode turns complete encoded sound files into PCM buffers.
//
// Supports: MP3, FLAC, Ogg Opus and integer PCM WAV.
//
// All decoders produce an *audio.Buffer of interleaved float32 samples.
// Decode sniffs the container from its magic bytes, so callers never name
// the codec.
//
// Example:
//
//	data, _ := os.ReadFile("rain.mp3")
//	buf, err := decode.Decode(data)
package decode
